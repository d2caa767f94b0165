package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/techlab/whatsapp-gateway/internal/model"
	xhttp "github.com/techlab/whatsapp-gateway/pkg/http"
)

type TemplateService interface {
	Create(ctx context.Context, tpl *model.Template) (*model.Template, error)
	Update(ctx context.Context, tpl *model.Template) (*model.Template, error)
	Get(ctx context.Context, id int64) (*model.Template, error)
	List(ctx context.Context, f model.TemplateFilter) ([]*model.Template, int64, error)
	Preview(ctx context.Context, id int64, rec *model.RecordRef) (string, error)
	Placeholders() []string
}

type TemplateHandler struct {
	svc TemplateService
}

func RegisterTemplateRoutes(e *router.Group, h *TemplateHandler) {
	e.POST("/templates", h.CreateTemplate)
	e.GET("/templates", h.ListTemplates)
	e.GET("/templates/placeholders", h.ListPlaceholders)
	e.GET("/templates/{id}", h.GetTemplate)
	e.PUT("/templates/{id}", h.UpdateTemplate)
	e.POST("/templates/{id}/preview", h.PreviewTemplate)
}

func NewTemplateHandler(templateService TemplateService) *TemplateHandler {
	return &TemplateHandler{
		svc: templateService,
	}
}

// templateRequest mirrors model.Template with create-friendly defaults:
// gateway type "both", interactive type "none", active true.
type templateRequest struct {
	Name             string                    `json:"name"`
	ModelName        string                    `json:"model_name"`
	GatewayType      model.TemplateGatewayType `json:"gateway_type"`
	DefaultGatewayID *int64                    `json:"default_gateway_id"`
	Body             string                    `json:"body"`
	MediaURL         string                    `json:"media_url"`
	InteractiveType  model.InteractiveType     `json:"interactive_type"`
	Active           *bool                     `json:"active"`
}

func (r templateRequest) toModel() *model.Template {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	gt := r.GatewayType
	if gt == "" {
		gt = model.TemplateGatewayBoth
	}
	it := r.InteractiveType
	if it == "" {
		it = model.InteractiveTypeNone
	}
	return &model.Template{
		Name:             r.Name,
		ModelName:        r.ModelName,
		GatewayType:      gt,
		DefaultGatewayID: r.DefaultGatewayID,
		Body:             r.Body,
		MediaURL:         r.MediaURL,
		InteractiveType:  it,
		Active:           active,
	}
}

type templatePreviewRequest struct {
	Record *model.RecordRef `json:"record"`
}

type templateListResponse struct {
	Items []*model.Template `json:"items"`
	Total int64             `json:"total"`
}

type placeholdersResponse struct {
	Placeholders []string `json:"placeholders"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TemplateHandler) CreateTemplate(ctx *xhttp.RequestCtx) {
	var req templateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	tpl, err := h.svc.Create(ctx, req.toModel())
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, tpl)
}

func (h *TemplateHandler) UpdateTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid template id")
		return
	}
	var req templateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	tpl := req.toModel()
	tpl.ID = id
	tpl, err = h.svc.Update(ctx, tpl)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tpl)
}

func (h *TemplateHandler) GetTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid template id")
		return
	}
	tpl, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tpl)
}

func (h *TemplateHandler) ListTemplates(ctx *xhttp.RequestCtx) {
	var f model.TemplateFilter

	if v := query(ctx, "model_name"); v != "" {
		f.ModelName = &v
	}
	if v := query(ctx, "gateway_type"); v != "" {
		gt := model.TemplateGatewayType(v)
		f.GatewayType = &gt
	}
	if v := query(ctx, "active"); v != "" {
		active := v == "true" || v == "1"
		f.Active = &active
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, templateListResponse{Items: items, Total: total})
}

// PreviewTemplate renders the stored template against the posted record
// snapshot. Unresolvable placeholders come back as inline error markers,
// not HTTP errors.
func (h *TemplateHandler) PreviewTemplate(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid template id")
		return
	}
	var req templatePreviewRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	rendered, err := h.svc.Preview(ctx, id, req.Record)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, previewResponse{Rendered: rendered})
}

func (h *TemplateHandler) ListPlaceholders(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, 200, placeholdersResponse{Placeholders: h.svc.Placeholders()})
}

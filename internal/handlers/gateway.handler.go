package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/techlab/whatsapp-gateway/internal/model"
	xhttp "github.com/techlab/whatsapp-gateway/pkg/http"
)

type GatewayService interface {
	Create(ctx context.Context, gw *model.Gateway) (*model.Gateway, error)
	Update(ctx context.Context, gw *model.Gateway) (*model.Gateway, error)
	Get(ctx context.Context, id int64) (*model.GatewayInfo, error)
	List(ctx context.Context, f model.GatewayFilter) ([]*model.GatewayInfo, int64, error)
	TestSend(ctx context.Context, gatewayID int64, phoneNumber string) (*model.SubmitReceipt, error)
}

type GatewayHandler struct {
	svc GatewayService
}

func RegisterGatewayRoutes(e *router.Group, h *GatewayHandler) {
	e.POST("/gateways", h.CreateGateway)
	e.GET("/gateways", h.ListGateways)
	e.GET("/gateways/{id}", h.GetGateway)
	e.PUT("/gateways/{id}", h.UpdateGateway)
	e.POST("/gateways/{id}/test", h.TestGateway)
}

func NewGatewayHandler(gatewayService GatewayService) *GatewayHandler {
	return &GatewayHandler{
		svc: gatewayService,
	}
}

// gatewayRequest mirrors model.Gateway with Active defaulting to true,
// so a bare create payload yields a usable gateway.
type gatewayRequest struct {
	Name     string                    `json:"name"`
	Type     model.GatewayType         `json:"type"`
	Active   *bool                     `json:"active"`
	External *model.ExternalRestConfig `json:"external"`
	Meta     *model.MetaCloudConfig    `json:"meta"`
}

func (r gatewayRequest) toModel() *model.Gateway {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &model.Gateway{
		Name:     r.Name,
		Type:     r.Type,
		Active:   active,
		External: r.External,
		Meta:     r.Meta,
	}
}

type testSendRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type gatewayListResponse struct {
	Items []*model.GatewayInfo `json:"items"`
	Total int64                `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *GatewayHandler) CreateGateway(ctx *xhttp.RequestCtx) {
	var req gatewayRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	gw, err := h.svc.Create(ctx, req.toModel())
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, gw)
}

func (h *GatewayHandler) UpdateGateway(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid gateway id")
		return
	}
	var req gatewayRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	gw := req.toModel()
	gw.ID = id
	gw, err = h.svc.Update(ctx, gw)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, gw)
}

func (h *GatewayHandler) GetGateway(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid gateway id")
		return
	}
	info, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, info)
}

func (h *GatewayHandler) ListGateways(ctx *xhttp.RequestCtx) {
	var f model.GatewayFilter

	if v := query(ctx, "type"); v != "" {
		gt := model.GatewayType(v)
		f.Type = &gt
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
	writeJSON(ctx, 200, gatewayListResponse{Items: items, Total: total})
}

// TestGateway pushes a fixed test message through the normal submit
// path. Answers 202 like any other dispatch.
func (h *GatewayHandler) TestGateway(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid gateway id")
		return
	}
	var req testSendRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	receipt, err := h.svc.TestSend(ctx, id, req.PhoneNumber)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 202, receipt)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/techlab/whatsapp-gateway/internal/dispatcher"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/render"
	"github.com/techlab/whatsapp-gateway/internal/repository"
	"github.com/techlab/whatsapp-gateway/internal/services"
	xhttp "github.com/techlab/whatsapp-gateway/pkg/http"
)

type MessageService interface {
	Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitReceipt, error)
	Preview(ctx context.Context, req model.PreviewRequest) (string, error)
}

type MessageHandler struct {
	svc MessageService
}

func RegisterMessageRoutes(e *router.Group, h *MessageHandler) {
	e.POST("/messages", h.SubmitMessage)
	e.POST("/messages/preview", h.PreviewMessage)
}

func NewMessageHandler(messageService MessageService) *MessageHandler {
	return &MessageHandler{
		svc: messageService,
	}
}

type submitMessageRequest struct {
	GatewayID   int64            `json:"gateway_id"`
	TemplateID  *int64           `json:"template_id"`
	PhoneNumber string           `json:"phone_number"`
	Message     string           `json:"message"`
	Record      *model.RecordRef `json:"record"`
}

type previewMessageRequest struct {
	TemplateID int64            `json:"template_id"`
	Record     *model.RecordRef `json:"record"`
}

type previewResponse struct {
	Rendered string `json:"rendered"`
}

/* --------------------------------- Routes ----------------------------------- */

// SubmitMessage accepts a dispatch request and answers 202 with the job
// handle. The send itself happens asynchronously; poll /jobs/{id} or the
// audit trail for the outcome.
func (h *MessageHandler) SubmitMessage(ctx *xhttp.RequestCtx) {
	var req submitMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	receipt, err := h.svc.Submit(ctx, model.SubmitRequest{
		GatewayID:   req.GatewayID,
		TemplateID:  req.TemplateID,
		PhoneNumber: req.PhoneNumber,
		Message:     req.Message,
		Record:      req.Record,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 202, receipt)
}

func (h *MessageHandler) PreviewMessage(ctx *xhttp.RequestCtx) {
	var req previewMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	rendered, err := h.svc.Preview(ctx, model.PreviewRequest{
		TemplateID: req.TemplateID,
		Record:     req.Record,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, previewResponse{Rendered: rendered})
}

/* --------------------------------- Helpers ----------------------------------- */

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP statuses. Retry
// rejections travel as a warning payload so clients can surface them as
// a notice rather than a failure.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, dispatcher.ErrJobNotFound):
		writeError(ctx, 404, err.Error())
	case errors.Is(err, model.ErrInvalidConfig), errors.Is(err, render.ErrInvalidPlaceholder):
		writeError(ctx, 422, err.Error())
	case errors.Is(err, services.ErrAlreadySent), errors.Is(err, services.ErrGatewayUnavailable):
		writeJSON(ctx, 409, map[string]string{"warning": err.Error()})
	default:
		writeError(ctx, 400, err.Error())
	}
}

// pathID reads the {id} route segment.
func pathID(ctx *xhttp.RequestCtx) (int64, error) {
	v, _ := ctx.UserValue("id").(string)
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

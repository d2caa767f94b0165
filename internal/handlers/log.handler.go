package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/techlab/whatsapp-gateway/internal/model"
	xhttp "github.com/techlab/whatsapp-gateway/pkg/http"
)

type LogService interface {
	Get(ctx context.Context, id int64) (*model.GatewayLog, error)
	List(ctx context.Context, f model.LogFilter) ([]*model.GatewayLog, int64, error)
	Retry(ctx context.Context, logID int64) (*model.SubmitReceipt, error)
}

type LogHandler struct {
	svc LogService
}

func RegisterLogRoutes(e *router.Group, h *LogHandler) {
	e.GET("/logs", h.ListLogs)
	e.GET("/logs/{id}", h.GetLog)
	e.POST("/logs/{id}/retry", h.RetryLog)
}

func NewLogHandler(logService LogService) *LogHandler {
	return &LogHandler{
		svc: logService,
	}
}

type logListResponse struct {
	Items []*model.GatewayLog `json:"items"`
	Total int64               `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *LogHandler) ListLogs(ctx *xhttp.RequestCtx) {
	var f model.LogFilter

	if v := query(ctx, "gateway_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.GatewayID = &id
		}
	}
	if v := query(ctx, "status"); v != "" {
		for _, s := range splitCSV(v) {
			f.Statuses = append(f.Statuses, model.LogStatus(s))
		}
	}
	if v := query(ctx, "phone_number"); v != "" {
		f.PhoneNumber = &v
	}
	if v := query(ctx, "source_model"); v != "" {
		f.SourceModel = &v
	}
	if v := query(ctx, "source_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.SourceID = &id
		}
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
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
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, logListResponse{Items: items, Total: total})
}

func (h *LogHandler) GetLog(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid log id")
		return
	}
	entry, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, entry)
}

// RetryLog re-enqueues the message behind a failed attempt. Answers 202
// with a fresh job handle, or 409 with a warning when the row was already
// sent or its gateway is gone.
func (h *LogHandler) RetryLog(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid log id")
		return
	}
	receipt, err := h.svc.Retry(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 202, receipt)
}

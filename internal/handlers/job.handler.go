package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/techlab/whatsapp-gateway/internal/dispatcher"
	xhttp "github.com/techlab/whatsapp-gateway/pkg/http"
)

type JobService interface {
	Get(ctx context.Context, jobID string) (*dispatcher.JobRecord, error)
}

// JobHandler exposes the job tracker so clients can poll submit receipts.
type JobHandler struct {
	svc JobService
}

func RegisterJobRoutes(e *router.Group, h *JobHandler) {
	e.GET("/jobs/{id}", h.GetJob)
}

func NewJobHandler(jobService JobService) *JobHandler {
	return &JobHandler{
		svc: jobService,
	}
}

func (h *JobHandler) GetJob(ctx *xhttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		writeError(ctx, 400, "job id is required")
		return
	}
	job, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, job)
}

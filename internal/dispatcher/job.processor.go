package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/queue"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
)

// DispatchProcessor consumes dispatch jobs off the queue, runs them
// through the Dispatcher and keeps the job tracker in step with the
// outcome.
type DispatchProcessor struct {
	dispatcher *Dispatcher
	tracker    *JobTracker
}

func NewDispatchProcessor(d *Dispatcher, tracker *JobTracker) *DispatchProcessor {
	return &DispatchProcessor{
		dispatcher: d,
		tracker:    tracker,
	}
}

func (p *DispatchProcessor) GetType() string {
	return "dispatch"
}

func (p *DispatchProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var req model.DispatchRequest
	if err := json.Unmarshal(queueMessage.Data, &req); err != nil {
		logger.Error("failed to unmarshal dispatch request", "queue_id", queueMessage.ID, "error", err)
		if jobID := queueMessage.Metadata["job_id"]; jobID != "" {
			if markErr := p.tracker.MarkFailed(ctx, jobID, 0, err); markErr != nil {
				logger.Warn("failed to mark job failed", "job_id", jobID, "error", markErr)
			}
		}
		// A payload that never parses will not parse on redelivery
		// either; the error routes it to the DLQ once retries run out.
		return err
	}
	if req.JobID == "" {
		req.JobID = queueMessage.Metadata["job_id"]
	}

	if err := p.tracker.MarkRunning(ctx, req.JobID); err != nil {
		logger.Warn("failed to mark job running", "job_id", req.JobID, "error", err)
	}

	logger.Info("dispatching message",
		"job_id", req.JobID,
		"gateway_id", req.GatewayID,
		"attempt", queueMessage.Attempts+1)

	entry, err := p.dispatcher.Dispatch(ctx, &req)
	var logID int64
	if entry != nil {
		logID = entry.ID
	}

	if err != nil {
		if markErr := p.tracker.MarkFailed(ctx, req.JobID, logID, err); markErr != nil {
			logger.Warn("failed to mark job failed", "job_id", req.JobID, "error", markErr)
		}
		return err // NACK, the queue drives redelivery and the DLQ
	}

	if markErr := p.tracker.MarkSucceeded(ctx, req.JobID, logID); markErr != nil {
		logger.Warn("failed to mark job succeeded", "job_id", req.JobID, "error", markErr)
	}
	return nil
}

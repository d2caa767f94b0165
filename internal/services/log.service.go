package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/techlab/whatsapp-gateway/internal/chatter"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/repository"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
)

type LogStore interface {
	Get(ctx context.Context, id int64) (*model.GatewayLog, error)
	List(ctx context.Context, f model.LogFilter) ([]*model.GatewayLog, int64, error)
}

// LogService reads the audit trail and drives manual retries. Log rows
// themselves are immutable; a retry is a brand-new dispatch.
type LogService struct {
	logs      LogStore
	gateways  GatewayReader
	queue     DispatchPublisher
	tracker   JobMarker
	directory chatter.Directory
}

func NewLogService(logs LogStore, gateways GatewayReader, queue DispatchPublisher, tracker JobMarker, directory chatter.Directory) *LogService {
	if directory == nil {
		directory = chatter.Noop{}
	}
	return &LogService{
		logs:      logs,
		gateways:  gateways,
		queue:     queue,
		tracker:   tracker,
		directory: directory,
	}
}

func (s *LogService) List(ctx context.Context, f model.LogFilter) ([]*model.GatewayLog, int64, error) {
	logs, total, err := s.logs.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	s.resolveSourceNames(ctx, logs)
	return logs, total, nil
}

func (s *LogService) Get(ctx context.Context, id int64) (*model.GatewayLog, error) {
	entry, err := s.logs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveSourceNames(ctx, []*model.GatewayLog{entry})
	return entry, nil
}

// Retry re-enqueues the message captured by a failed log row as a fresh
// dispatch. Successful rows are a no-op, and the target gateway must
// still be live.
func (s *LogService) Retry(ctx context.Context, logID int64) (*model.SubmitReceipt, error) {
	entry, err := s.logs.Get(ctx, logID)
	if err != nil {
		return nil, err
	}
	if entry.Status == model.LogStatusSuccess {
		return nil, ErrAlreadySent
	}

	gw, err := s.gateways.Get(ctx, entry.GatewayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGatewayUnavailable
		}
		return nil, err
	}
	if !gw.Active {
		return nil, ErrGatewayUnavailable
	}

	dispatch := &model.DispatchRequest{
		JobID:       uuid.NewString(),
		GatewayID:   entry.GatewayID,
		Message:     entry.Message,
		PhoneNumber: entry.PhoneNumber,
		SourceModel: entry.SourceModel,
		SourceID:    entry.SourceID,
	}

	queueID, err := s.queue.PublishJSON(ctx, dispatch, map[string]string{"job_id": dispatch.JobID})
	if err != nil {
		return nil, fmt.Errorf("enqueue retry: %w", err)
	}
	if err := s.tracker.MarkQueued(ctx, dispatch.JobID, gw.ID); err != nil {
		logger.Warn("failed to mark job queued", "job_id", dispatch.JobID, "error", err)
	}

	return &model.SubmitReceipt{JobID: dispatch.JobID, QueueID: queueID}, nil
}

// resolveSourceNames decorates entries with the display name of their
// source record. Best-effort: a host miss leaves the name empty.
func (s *LogService) resolveSourceNames(ctx context.Context, logs []*model.GatewayLog) {
	for _, entry := range logs {
		if entry.SourceModel == "" || entry.SourceID == 0 {
			continue
		}
		if name, ok := s.directory.ResolveDisplayName(ctx, entry.SourceModel, entry.SourceID); ok {
			entry.SourceName = name
		}
	}
}

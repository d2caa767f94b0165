package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/render"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
)

var (
	ErrEmptyPhone         = errors.New("phone number is required")
	ErrEmptyMessage       = errors.New("message content is empty")
	ErrNoGateway          = errors.New("no gateway selected and the template names no default")
	ErrGatewayInactive    = errors.New("gateway is not active")
	ErrTemplateInactive   = errors.New("template is not active")
	ErrAlreadySent        = errors.New("message was already sent successfully")
	ErrGatewayUnavailable = errors.New("gateway is not active or does not exist")
)

type GatewayReader interface {
	Get(ctx context.Context, id int64) (*model.Gateway, error)
}

type TemplateReader interface {
	Get(ctx context.Context, id int64) (*model.Template, error)
}

// DispatchPublisher hands finalized dispatch requests to the queue.
type DispatchPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// JobMarker seeds the job tracker when a dispatch is accepted.
type JobMarker interface {
	MarkQueued(ctx context.Context, jobID string, gatewayID int64) error
}

// MessageService turns submit requests into queued dispatch jobs:
// template resolution and rendering happen here, synchronously, so the
// queue only ever carries final message bodies.
type MessageService struct {
	gateways  GatewayReader
	templates TemplateReader
	renderer  *render.Renderer
	queue     DispatchPublisher
	tracker   JobMarker
}

func NewMessageService(gateways GatewayReader, templates TemplateReader, renderer *render.Renderer, queue DispatchPublisher, tracker JobMarker) *MessageService {
	return &MessageService{
		gateways:  gateways,
		templates: templates,
		renderer:  renderer,
		queue:     queue,
		tracker:   tracker,
	}
}

// Submit validates the request, resolves template and gateway, renders
// the body when needed and enqueues the dispatch. It answers with a job
// handle; the send itself happens asynchronously.
func (s *MessageService) Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitReceipt, error) {
	req.Message = strings.TrimSpace(req.Message)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.PhoneNumber == "" {
		return nil, ErrEmptyPhone
	}

	var warnings []string
	var tpl *model.Template
	if req.TemplateID != nil {
		var err error
		tpl, err = s.templates.Get(ctx, *req.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("load template %d: %w", *req.TemplateID, err)
		}
		if !tpl.Active {
			return nil, ErrTemplateInactive
		}
		if req.GatewayID == 0 && tpl.DefaultGatewayID != nil {
			req.GatewayID = *tpl.DefaultGatewayID
		}
		// An explicit message always wins over the template body.
		if req.Message == "" {
			rendered, err := s.renderTemplate(tpl, req.Record)
			if err != nil {
				return nil, err
			}
			req.Message = rendered
		}
	}

	if req.GatewayID == 0 {
		return nil, ErrNoGateway
	}
	gw, err := s.gateways.Get(ctx, req.GatewayID)
	if err != nil {
		return nil, fmt.Errorf("load gateway %d: %w", req.GatewayID, err)
	}
	if !gw.Active {
		return nil, ErrGatewayInactive
	}

	if tpl != nil && !tpl.CompatibleWith(gw.Type) {
		warnings = append(warnings, fmt.Sprintf(
			"template %q is designed for %s gateways, but gateway %q is %s",
			tpl.Name, tpl.GatewayType, gw.Name, gw.Type))
	}

	if req.Message == "" {
		return nil, ErrEmptyMessage
	}

	dispatch := &model.DispatchRequest{
		JobID:       uuid.NewString(),
		GatewayID:   gw.ID,
		Message:     req.Message,
		PhoneNumber: req.PhoneNumber,
		TemplateID:  req.TemplateID,
	}
	if req.Record != nil {
		dispatch.SourceModel = req.Record.Model
		dispatch.SourceID = req.Record.ID
	}

	queueID, err := s.queue.PublishJSON(ctx, dispatch, map[string]string{"job_id": dispatch.JobID})
	if err != nil {
		return nil, fmt.Errorf("enqueue dispatch: %w", err)
	}
	if err := s.tracker.MarkQueued(ctx, dispatch.JobID, gw.ID); err != nil {
		logger.Warn("failed to mark job queued", "job_id", dispatch.JobID, "error", err)
	}

	return &model.SubmitReceipt{
		JobID:    dispatch.JobID,
		QueueID:  queueID,
		Warnings: warnings,
	}, nil
}

// Preview renders a template against a record snapshot without sending.
func (s *MessageService) Preview(ctx context.Context, req model.PreviewRequest) (string, error) {
	tpl, err := s.templates.Get(ctx, req.TemplateID)
	if err != nil {
		return "", fmt.Errorf("load template %d: %w", req.TemplateID, err)
	}
	return s.renderer.Render(tpl, req.Record)
}

// renderTemplate fills the message from the template. Without a record
// snapshot the body travels verbatim; selecting a template in a form
// before the record exists must not explode into error markers.
func (s *MessageService) renderTemplate(tpl *model.Template, rec *model.RecordRef) (string, error) {
	if rec == nil {
		return tpl.Body, nil
	}
	return s.renderer.Render(tpl, rec)
}

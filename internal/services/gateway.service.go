package services

import (
	"context"
	"fmt"

	"github.com/techlab/whatsapp-gateway/internal/model"
)

// TestSendMessage is dispatched by the gateway connectivity check.
const TestSendMessage = "Test message from WhatsApp gateway"

type GatewayStore interface {
	Create(ctx context.Context, gw *model.Gateway) (*model.Gateway, error)
	Update(ctx context.Context, gw *model.Gateway) (*model.Gateway, error)
	Get(ctx context.Context, id int64) (*model.Gateway, error)
	List(ctx context.Context, f model.GatewayFilter) ([]*model.Gateway, int64, error)
}

type LogCounter interface {
	CountByGateway(ctx context.Context, gatewayID int64) (int64, error)
}

// GatewayService owns gateway configuration. Reads are decorated with the
// audit-trail usage count.
type GatewayService struct {
	gateways GatewayStore
	logs     LogCounter
	messages *MessageService
}

func NewGatewayService(gateways GatewayStore, logs LogCounter, messages *MessageService) *GatewayService {
	return &GatewayService{
		gateways: gateways,
		logs:     logs,
		messages: messages,
	}
}

func (s *GatewayService) Create(ctx context.Context, gw *model.Gateway) (*model.Gateway, error) {
	if err := gw.Validate(); err != nil {
		return nil, err
	}
	return s.gateways.Create(ctx, gw)
}

func (s *GatewayService) Update(ctx context.Context, gw *model.Gateway) (*model.Gateway, error) {
	if err := gw.Validate(); err != nil {
		return nil, err
	}
	return s.gateways.Update(ctx, gw)
}

func (s *GatewayService) Get(ctx context.Context, id int64) (*model.GatewayInfo, error) {
	gw, err := s.gateways.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.logs.CountByGateway(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count gateway logs: %w", err)
	}

	return &model.GatewayInfo{Gateway: gw, LogCount: count}, nil
}

func (s *GatewayService) List(ctx context.Context, f model.GatewayFilter) ([]*model.GatewayInfo, int64, error) {
	gateways, total, err := s.gateways.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	infos := make([]*model.GatewayInfo, len(gateways))
	for i, gw := range gateways {
		count, err := s.logs.CountByGateway(ctx, gw.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("count gateway logs: %w", err)
		}
		infos[i] = &model.GatewayInfo{Gateway: gw, LogCount: count}
	}
	return infos, total, nil
}

// TestSend pushes a fixed test message through the gateway via the normal
// submit path, so the whole chain is exercised, queue included.
func (s *GatewayService) TestSend(ctx context.Context, gatewayID int64, phoneNumber string) (*model.SubmitReceipt, error) {
	return s.messages.Submit(ctx, model.SubmitRequest{
		GatewayID:   gatewayID,
		PhoneNumber: phoneNumber,
		Message:     TestSendMessage,
	})
}

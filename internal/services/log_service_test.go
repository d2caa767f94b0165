package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/repository"
)

type MockLogStore struct {
	mock.Mock
}

func (m *MockLogStore) Get(ctx context.Context, id int64) (*model.GatewayLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewayLog), args.Error(1)
}

func (m *MockLogStore) List(ctx context.Context, f model.LogFilter) ([]*model.GatewayLog, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.GatewayLog), args.Get(1).(int64), args.Error(2)
}

type stubDirectory struct {
	names map[string]string
}

func (d *stubDirectory) ResolveDisplayName(_ context.Context, recordModel string, recordID int64) (string, bool) {
	name, ok := d.names[recordKey(recordModel, recordID)]
	return name, ok
}

func (d *stubDirectory) PostNote(context.Context, string, int64, string, bool) error {
	return nil
}

func recordKey(recordModel string, recordID int64) string {
	return fmt.Sprintf("%s/%d", recordModel, recordID)
}

func failedLog(id int64) *model.GatewayLog {
	return &model.GatewayLog{
		ID:           id,
		GatewayID:    1,
		GatewayType:  model.GatewayTypeExternalRest,
		Message:      "Ciao Mario",
		PhoneNumber:  "+393331234567",
		Status:       model.LogStatusError,
		ResponseCode: 502,
		ResponseBody: "bad gateway",
		SourceModel:  "crm.lead",
		SourceID:     9,
	}
}

func TestLogService_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("re-enqueues a failed attempt", func(t *testing.T) {
		logs := new(MockLogStore)
		gateways := new(MockGatewayReader)
		publisher := new(MockDispatchPublisher)
		tracker := new(MockJobMarker)

		logs.On("Get", ctx, int64(10)).Return(failedLog(10), nil)
		gateways.On("Get", ctx, int64(1)).Return(activeGateway(1), nil)

		var published *model.DispatchRequest
		publisher.On("PublishJSON", ctx, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				published = args.Get(1).(*model.DispatchRequest)
			}).
			Return("7-0", nil)
		tracker.On("MarkQueued", ctx, mock.AnythingOfType("string"), int64(1)).Return(nil)

		service := NewLogService(logs, gateways, publisher, tracker, nil)

		receipt, err := service.Retry(ctx, 10)
		require.NoError(t, err)
		assert.NotEmpty(t, receipt.JobID)
		assert.Equal(t, "7-0", receipt.QueueID)

		require.NotNil(t, published)
		assert.Equal(t, "Ciao Mario", published.Message)
		assert.Equal(t, "+393331234567", published.PhoneNumber)
		assert.Equal(t, "crm.lead", published.SourceModel)
		assert.Equal(t, int64(9), published.SourceID)
		tracker.AssertExpectations(t)
	})

	t.Run("refuses an already successful attempt", func(t *testing.T) {
		logs := new(MockLogStore)
		entry := failedLog(11)
		entry.Status = model.LogStatusSuccess
		logs.On("Get", ctx, int64(11)).Return(entry, nil)

		service := NewLogService(logs, new(MockGatewayReader), new(MockDispatchPublisher), new(MockJobMarker), nil)

		_, err := service.Retry(ctx, 11)
		assert.ErrorIs(t, err, ErrAlreadySent)
	})

	t.Run("refuses when the gateway is gone", func(t *testing.T) {
		logs := new(MockLogStore)
		gateways := new(MockGatewayReader)
		logs.On("Get", ctx, int64(12)).Return(failedLog(12), nil)
		gateways.On("Get", ctx, int64(1)).Return(nil, repository.ErrNotFound)

		service := NewLogService(logs, gateways, new(MockDispatchPublisher), new(MockJobMarker), nil)

		_, err := service.Retry(ctx, 12)
		assert.ErrorIs(t, err, ErrGatewayUnavailable)
	})

	t.Run("refuses when the gateway is disabled", func(t *testing.T) {
		logs := new(MockLogStore)
		gateways := new(MockGatewayReader)
		logs.On("Get", ctx, int64(13)).Return(failedLog(13), nil)
		gw := activeGateway(1)
		gw.Active = false
		gateways.On("Get", ctx, int64(1)).Return(gw, nil)

		service := NewLogService(logs, gateways, new(MockDispatchPublisher), new(MockJobMarker), nil)

		_, err := service.Retry(ctx, 13)
		assert.ErrorIs(t, err, ErrGatewayUnavailable)
	})

	t.Run("surfaces queue publish failures", func(t *testing.T) {
		logs := new(MockLogStore)
		gateways := new(MockGatewayReader)
		publisher := new(MockDispatchPublisher)
		logs.On("Get", ctx, int64(14)).Return(failedLog(14), nil)
		gateways.On("Get", ctx, int64(1)).Return(activeGateway(1), nil)
		publisher.On("PublishJSON", ctx, mock.Anything, mock.Anything).Return("", errors.New("redis down"))

		service := NewLogService(logs, gateways, publisher, new(MockJobMarker), nil)

		_, err := service.Retry(ctx, 14)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enqueue retry")
	})
}

func TestLogService_ListResolvesSourceNames(t *testing.T) {
	ctx := context.Background()
	logs := new(MockLogStore)

	entries := []*model.GatewayLog{failedLog(1), failedLog(2)}
	entries[1].SourceModel = ""
	entries[1].SourceID = 0
	logs.On("List", ctx, mock.Anything).Return(entries, int64(2), nil)

	directory := &stubDirectory{names: map[string]string{recordKey("crm.lead", 9): "Mario Rossi"}}
	service := NewLogService(logs, new(MockGatewayReader), new(MockDispatchPublisher), new(MockJobMarker), directory)

	got, total, err := service.List(ctx, model.LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Mario Rossi", got[0].SourceName)
	assert.Empty(t, got[1].SourceName)
}

func TestLogService_GetResolvesSourceName(t *testing.T) {
	ctx := context.Background()
	logs := new(MockLogStore)
	logs.On("Get", ctx, int64(3)).Return(failedLog(3), nil)

	directory := &stubDirectory{names: map[string]string{recordKey("crm.lead", 9): "Mario Rossi"}}
	service := NewLogService(logs, new(MockGatewayReader), new(MockDispatchPublisher), new(MockJobMarker), directory)

	entry, err := service.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", entry.SourceName)
}

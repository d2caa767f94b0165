package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/internal/queue"
)

func queueMessage(t *testing.T, req *model.DispatchRequest) *queue.Message {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return &queue.Message{
		ID:       "1-0",
		Data:     data,
		Metadata: map[string]string{"job_id": req.JobID},
	}
}

func TestDispatchProcessor_Success(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t, http.StatusOK, "sent")
	tracker, _ := setupTracker(t)
	processor := NewDispatchProcessor(d, tracker)

	assert.Equal(t, "dispatch", processor.GetType())

	req := &model.DispatchRequest{
		JobID:       "job-ok",
		GatewayID:   1,
		Message:     "Ciao!",
		PhoneNumber: "+393331234567",
	}
	require.NoError(t, tracker.MarkQueued(context.Background(), req.JobID, req.GatewayID))

	err := processor.Process(context.Background(), queueMessage(t, req))
	require.NoError(t, err)

	record, err := tracker.Get(context.Background(), "job-ok")
	require.NoError(t, err)
	assert.Equal(t, JobStatusSucceeded, record.Status)
	assert.Equal(t, 1, record.Attempts)
	assert.NotZero(t, record.LogID)
}

func TestDispatchProcessor_SendFailureNacks(t *testing.T) {
	d, logs, _, _ := newTestDispatcher(t, http.StatusServiceUnavailable, "maintenance")
	tracker, _ := setupTracker(t)
	processor := NewDispatchProcessor(d, tracker)

	req := &model.DispatchRequest{
		JobID:       "job-fail",
		GatewayID:   1,
		Message:     "Ciao!",
		PhoneNumber: "+393331234567",
	}
	require.NoError(t, tracker.MarkQueued(context.Background(), req.JobID, req.GatewayID))

	err := processor.Process(context.Background(), queueMessage(t, req))
	require.Error(t, err, "send failures must NACK for queue-level retry")

	record, err := tracker.Get(context.Background(), "job-fail")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, record.Status)
	assert.NotZero(t, record.LogID, "the failed attempt is still auditable")
	assert.Contains(t, record.Error, "503")

	logs.mu.Lock()
	assert.Len(t, logs.entries, 1)
	logs.mu.Unlock()
}

func TestDispatchProcessor_MalformedPayload(t *testing.T) {
	d, logs, _, _ := newTestDispatcher(t, http.StatusOK, "")
	tracker, _ := setupTracker(t)
	processor := NewDispatchProcessor(d, tracker)

	msg := &queue.Message{
		ID:       "1-1",
		Data:     []byte("{not json"),
		Metadata: map[string]string{"job_id": "job-bad"},
	}
	require.NoError(t, tracker.MarkQueued(context.Background(), "job-bad", 1))

	err := processor.Process(context.Background(), msg)
	require.Error(t, err)

	record, err := tracker.Get(context.Background(), "job-bad")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, record.Status)

	logs.mu.Lock()
	assert.Empty(t, logs.entries, "nothing dispatched, nothing logged")
	logs.mu.Unlock()
}

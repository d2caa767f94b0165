package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techlab/whatsapp-gateway/pkg/redis"
)

func setupTracker(t *testing.T) (*JobTracker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	adapter, err := redis.NewRedisAdapter("", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return NewJobTracker(adapter, TrackerConfig{KeyPrefix: "job:", TTL: time.Hour}), mr
}

func TestJobTracker_Lifecycle(t *testing.T) {
	tracker, mr := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.MarkQueued(ctx, "j-1", 7))

	record, err := tracker.Get(ctx, "j-1")
	require.NoError(t, err)
	assert.Equal(t, "j-1", record.ID)
	assert.Equal(t, JobStatusQueued, record.Status)
	assert.Equal(t, int64(7), record.GatewayID)
	assert.Zero(t, record.Attempts)
	assert.False(t, record.EnqueuedAt.IsZero())

	require.NoError(t, tracker.MarkRunning(ctx, "j-1"))
	require.NoError(t, tracker.MarkRunning(ctx, "j-1"))

	record, err = tracker.Get(ctx, "j-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusRunning, record.Status)
	assert.Equal(t, 2, record.Attempts)

	require.NoError(t, tracker.MarkSucceeded(ctx, "j-1", 31))

	record, err = tracker.Get(ctx, "j-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusSucceeded, record.Status)
	assert.Equal(t, int64(31), record.LogID)
	assert.Empty(t, record.Error)

	assert.Greater(t, mr.TTL("job:j-1"), time.Duration(0), "job records must expire")
}

func TestJobTracker_MarkFailed(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.MarkQueued(ctx, "j-2", 7))
	require.NoError(t, tracker.MarkRunning(ctx, "j-2"))
	require.NoError(t, tracker.MarkFailed(ctx, "j-2", 12, errors.New("unexpected status code: 502")))

	record, err := tracker.Get(ctx, "j-2")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, record.Status)
	assert.Equal(t, int64(12), record.LogID)
	assert.Equal(t, 1, record.Attempts)
	assert.Contains(t, record.Error, "502")
}

func TestJobTracker_FailedWithoutLogKeepsNoLogID(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.MarkQueued(ctx, "j-3", 7))
	require.NoError(t, tracker.MarkFailed(ctx, "j-3", 0, errors.New("bad payload")))

	record, err := tracker.Get(ctx, "j-3")
	require.NoError(t, err)
	assert.Zero(t, record.LogID)
}

func TestJobTracker_GetUnknown(t *testing.T) {
	tracker, _ := setupTracker(t)

	_, err := tracker.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

package dispatcher

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/techlab/whatsapp-gateway/pkg/redis"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "success"
	JobStatusFailed    = "error"
)

var ErrJobNotFound = errors.New("job not found")

// JobRecord is the queryable state of one submitted dispatch, kept in
// redis until its TTL runs out.
type JobRecord struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	GatewayID  int64     `json:"gateway_id"`
	Attempts   int       `json:"attempts"`
	LogID      int64     `json:"log_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type TrackerConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		KeyPrefix: "job:",
		TTL:       24 * time.Hour,
	}
}

// JobTracker records per-job dispatch progress in redis hashes so
// submitters can poll the handle they got back from the API.
type JobTracker struct {
	redis  redis.RedisAdapter
	config TrackerConfig
}

func NewJobTracker(redisAdapter redis.RedisAdapter, config TrackerConfig) *JobTracker {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultTrackerConfig().KeyPrefix
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTrackerConfig().TTL
	}
	return &JobTracker{redis: redisAdapter, config: config}
}

func (t *JobTracker) key(jobID string) string {
	return t.config.KeyPrefix + jobID
}

func (t *JobTracker) MarkQueued(ctx context.Context, jobID string, gatewayID int64) error {
	now := time.Now().Unix()
	return t.redis.HSetAll(t.key(jobID), map[string]interface{}{
		"status":      JobStatusQueued,
		"gateway_id":  gatewayID,
		"attempts":    0,
		"enqueued_at": now,
		"updated_at":  now,
	}, t.config.TTL)
}

func (t *JobTracker) MarkRunning(ctx context.Context, jobID string) error {
	if err := t.redis.HIncrement(t.key(jobID), "attempts", 1); err != nil {
		return err
	}
	return t.redis.HSetAll(t.key(jobID), map[string]interface{}{
		"status":     JobStatusRunning,
		"updated_at": time.Now().Unix(),
	}, t.config.TTL)
}

func (t *JobTracker) MarkSucceeded(ctx context.Context, jobID string, logID int64) error {
	return t.redis.HSetAll(t.key(jobID), map[string]interface{}{
		"status":     JobStatusSucceeded,
		"log_id":     logID,
		"error":      "",
		"updated_at": time.Now().Unix(),
	}, t.config.TTL)
}

func (t *JobTracker) MarkFailed(ctx context.Context, jobID string, logID int64, cause error) error {
	fields := map[string]interface{}{
		"status":     JobStatusFailed,
		"error":      cause.Error(),
		"updated_at": time.Now().Unix(),
	}
	if logID != 0 {
		fields["log_id"] = logID
	}
	return t.redis.HSetAll(t.key(jobID), fields, t.config.TTL)
}

func (t *JobTracker) Get(ctx context.Context, jobID string) (*JobRecord, error) {
	fields, err := t.redis.HGetAll(t.key(jobID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}

	record := &JobRecord{
		ID:     jobID,
		Status: fields["status"],
		Error:  fields["error"],
	}
	record.GatewayID, _ = strconv.ParseInt(fields["gateway_id"], 10, 64)
	record.LogID, _ = strconv.ParseInt(fields["log_id"], 10, 64)
	attempts, _ := strconv.ParseInt(fields["attempts"], 10, 64)
	record.Attempts = int(attempts)

	if sec, err := strconv.ParseInt(fields["enqueued_at"], 10, 64); err == nil {
		record.EnqueuedAt = time.Unix(sec, 0).UTC()
	}
	if sec, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		record.UpdatedAt = time.Unix(sec, 0).UTC()
	}
	return record, nil
}

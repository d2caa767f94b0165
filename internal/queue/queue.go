// Package queue is the dispatch work queue, built on Redis Streams.
// Competing consumers read through a consumer group; deliveries that sit
// pending past the visibility timeout are reclaimed and retried, and a
// message that exhausts its retries is parked on a dead-letter stream so
// a poison payload cannot wedge the queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/techlab/whatsapp-gateway/pkg/redis"
)

// Stream entry field names. Caller metadata is namespaced under metaPrefix
// so it can never collide with the envelope fields.
const (
	fieldData      = "data"
	fieldTimestamp = "timestamp"
	fieldAttempts  = "attempts"
	metaPrefix     = "meta_"
)

const dlqSuffix = ":dlq"

// Message is one delivery handed to a handler. Attempts counts reclaims
// after a visibility timeout, so the first delivery arrives with 0.
type Message struct {
	ID        string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
	Attempts  int

	acked  bool
	nacked bool
	queue  *Queue
}

// Ack acknowledges the delivery so it is never redelivered.
func (m *Message) Ack() error {
	if m.acked {
		return fmt.Errorf("message already acknowledged")
	}
	if m.nacked {
		return fmt.Errorf("message already rejected")
	}
	m.acked = true
	return m.queue.ack(m.ID)
}

// Nack rejects the delivery. The entry stays pending and comes back via
// the reclaim loop once its visibility timeout runs out.
func (m *Message) Nack() error {
	if m.acked {
		return fmt.Errorf("message already acknowledged")
	}
	if m.nacked {
		return fmt.Errorf("message already rejected")
	}
	m.nacked = true
	return nil
}

// MessageHandler processes one delivery. Returning nil acknowledges the
// message; returning an error leaves it pending for redelivery.
type MessageHandler func(ctx context.Context, msg *Message) error

type QueueConfig struct {
	Name          string
	ConsumerGroup string
	ConsumerName  string
	// MaxRetries bounds reclaims, not deliveries: a message is parked on
	// the DLQ once it has been reclaimed MaxRetries times.
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	// MaxLen caps the stream length (approximate trim on publish).
	// Zero leaves the stream unbounded.
	MaxLen    int64
	EnableDLQ bool
}

func (c *QueueConfig) applyDefaults() {
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "dispatchers"
	}
	if c.ConsumerName == "" {
		c.ConsumerName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.VisibilityTimeout == 0 {
		c.VisibilityTimeout = 30 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
}

type Queue struct {
	adapter redis.RedisAdapter
	config  QueueConfig
	handler MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type QueueStats struct {
	TotalMessages   int64
	PendingMessages int64
	ConsumerCount   int64
}

func NewQueue(adapter redis.RedisAdapter, config QueueConfig) (*Queue, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	config.applyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		adapter: adapter,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	// BUSYGROUP on an existing group is fine, any other setup failure
	// surfaces on the first read.
	_ = q.adapter.XGroupCreateMkStream(config.Name, config.ConsumerGroup, "0")

	return q, nil
}

// Publish appends a message to the stream and returns its stream id.
func (q *Queue) Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error) {
	values := map[string]interface{}{
		fieldData:      string(data),
		fieldTimestamp: time.Now().Format(time.RFC3339Nano),
		fieldAttempts:  0,
	}
	for k, v := range metadata {
		values[metaPrefix+k] = v
	}

	id, err := q.adapter.XAdd(q.config.Name, values)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}

	if q.config.MaxLen > 0 {
		_ = q.adapter.XTrimApprox(q.config.Name, q.config.MaxLen)
	}
	return id, nil
}

// PublishJSON marshals v and publishes it.
func (q *Queue) PublishJSON(ctx context.Context, v interface{}, metadata map[string]string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	return q.Publish(ctx, data, metadata)
}

// Consume starts the consumer goroutine. The handler's return value
// drives acknowledgement; see MessageHandler.
func (q *Queue) Consume(handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	q.handler = handler
	q.wg.Add(1)
	go q.consumeLoop()
	return nil
}

func (q *Queue) consumeLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.pollNew()
			q.reclaimStale()
		}
	}
}

func (q *Queue) pollNew() {
	entries, err := q.adapter.XReadGroup(
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.Name,
		">",
		q.config.BatchSize,
	)
	if err != nil {
		return
	}

	for _, entry := range entries {
		q.deliver(q.decode(entry))
	}
}

// reclaimStale takes over pending entries whose consumer went quiet for
// longer than the visibility timeout.
func (q *Queue) reclaimStale() {
	summary, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup)
	if err != nil || summary == nil || summary.Count == 0 {
		return
	}

	pending, err := q.adapter.XPendingExt(q.config.Name, q.config.ConsumerGroup, "-", "+", 100)
	if err != nil {
		return
	}

	var stale []string
	for _, p := range pending {
		if p.Idle >= q.config.VisibilityTimeout {
			stale = append(stale, p.ID)
		}
	}
	if len(stale) == 0 {
		return
	}

	entries, err := q.adapter.XClaim(
		q.config.Name,
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.VisibilityTimeout,
		stale...,
	)
	if err != nil {
		return
	}

	for _, entry := range entries {
		msg := q.decode(entry)
		msg.Attempts++
		q.deliver(msg)
	}
}

func (q *Queue) deliver(msg *Message) {
	if msg.Attempts >= q.config.MaxRetries {
		q.parkInDLQ(msg)
		_ = q.ack(msg.ID)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.VisibilityTimeout)
	defer cancel()

	if err := q.handler(ctx, msg); err != nil {
		// Leave the entry pending; reclaimStale redelivers it.
		return
	}
	_ = q.ack(msg.ID)
}

func (q *Queue) ack(id string) error {
	return q.adapter.XAck(q.config.Name, q.config.ConsumerGroup, id)
}

// parkInDLQ copies an exhausted message onto the dead-letter stream with
// enough context to trace it back.
func (q *Queue) parkInDLQ(msg *Message) {
	if !q.config.EnableDLQ {
		return
	}

	values := map[string]interface{}{
		fieldData:        string(msg.Data),
		"original_id":    msg.ID,
		"original_queue": q.config.Name,
		fieldAttempts:    msg.Attempts,
		"failed_at":      time.Now().Format(time.RFC3339Nano),
	}
	for k, v := range msg.Metadata {
		values[metaPrefix+k] = v
	}

	_, _ = q.adapter.XAdd(q.config.Name+dlqSuffix, values)
}

func (q *Queue) decode(entry redis.StreamMessage) *Message {
	msg := &Message{
		ID:       entry.ID,
		Metadata: make(map[string]string),
		queue:    q,
	}

	for k, v := range entry.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case fieldData:
			msg.Data = []byte(s)
		case fieldTimestamp:
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				msg.Timestamp = ts
			}
		case fieldAttempts:
			if n, err := strconv.Atoi(s); err == nil {
				msg.Attempts = n
			}
		default:
			if strings.HasPrefix(k, metaPrefix) {
				msg.Metadata[strings.TrimPrefix(k, metaPrefix)] = s
			}
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return msg
}

// Stop halts the consumer and waits up to timeout for it to come back.
// A consumer blocked inside a stream read cannot be interrupted and
// shows up here as a timeout error.
func (q *Queue) Stop(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for queue to stop")
	}
}

func (q *Queue) GetStats() (*QueueStats, error) {
	total, err := q.adapter.XLen(q.config.Name)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{TotalMessages: total}
	if pending, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup); err == nil && pending != nil {
		stats.PendingMessages = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}
	return stats, nil
}

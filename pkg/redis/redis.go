// Package redis wraps go-redis behind the narrow surface the dispatch
// queue and the job tracker consume. Every key the adapter touches is
// namespaced with the prefix given at construction.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Options = goredis.UniversalOptions

// StreamMessage is a single entry read from a Redis Stream.
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

type RedisAdapter interface {
	// Hash operations back the job tracker.
	HSetAll(key string, fields map[string]interface{}, ttl time.Duration) error
	HGetAll(key string) (map[string]string, error)
	HIncrement(key string, field string, value int64) error

	// Stream operations back the dispatch queue.
	XAdd(key string, values map[string]interface{}) (string, error)
	XReadGroup(group, consumer, key, id string, count int64) ([]StreamMessage, error)
	XAck(key, group string, ids ...string) error
	XGroupCreateMkStream(key, group, start string) error
	XLen(key string) (int64, error)
	XTrimApprox(key string, maxLen int64) error
	XPending(key, group string) (*goredis.XPending, error)
	XPendingExt(key, group string, start, end string, count int64) ([]goredis.XPendingExt, error)
	XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error)

	Ping(ctx context.Context) error

	// Client exposes the underlying connection for operations the
	// adapter does not cover. Keys used through it are NOT prefixed.
	Client() goredis.UniversalClient
}

type adapter struct {
	keyPrefix string
	rdb       goredis.UniversalClient
}

// NewRedisAdapter opens a connection and verifies it with a ping. Each
// call returns an independent client; callers own its lifecycle.
func NewRedisAdapter(keysPrefix string, opts *goredis.UniversalOptions) (RedisAdapter, error) {
	c := goredis.NewUniversalClient(opts)
	if cmd := c.Ping(context.Background()); cmd.Err() != nil {
		return nil, cmd.Err()
	}
	return &adapter{keyPrefix: keysPrefix, rdb: c}, nil
}

func (r *adapter) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *adapter) Client() goredis.UniversalClient {
	return r.rdb
}

// HSetAll writes fields to a hash and refreshes its TTL in one pipeline.
// A non-positive ttl leaves the expiry untouched.
func (r *adapter) HSetAll(key string, fields map[string]interface{}, ttl time.Duration) error {
	cmds, err := r.rdb.TxPipelined(context.Background(), func(pipe goredis.Pipeliner) error {
		pipe.HSet(context.Background(), r.keyPrefix+key, fields)
		if ttl > 0 {
			pipe.Expire(context.Background(), r.keyPrefix+key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to pipeline HSet: %w", err)
	}
	for _, cmd := range cmds {
		if cmd != nil && cmd.Err() != nil {
			return fmt.Errorf("pipelined HSet error: %w", cmd.Err())
		}
	}
	return nil
}

func (r *adapter) HGetAll(key string) (map[string]string, error) {
	st := r.rdb.HGetAll(context.Background(), r.keyPrefix+key)
	if st.Err() != nil {
		return nil, st.Err()
	}
	return st.Val(), nil
}

func (r *adapter) HIncrement(key string, field string, value int64) error {
	return r.rdb.HIncrBy(context.Background(), r.keyPrefix+key, field, value).Err()
}

func (r *adapter) XAdd(key string, values map[string]interface{}) (string, error) {
	cmd := r.rdb.XAdd(context.Background(), &goredis.XAddArgs{
		Stream: r.keyPrefix + key,
		ID:     "*",
		Values: values,
	})
	if cmd.Err() != nil {
		return "", cmd.Err()
	}
	return cmd.Val(), nil
}

func (r *adapter) XReadGroup(group, consumer, key, id string, count int64) ([]StreamMessage, error) {
	streams := r.rdb.XReadGroup(context.Background(), &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.keyPrefix + key, id},
		Count:    count,
		Block:    0,
	})
	if streams.Err() != nil {
		return nil, streams.Err()
	}

	var messages []StreamMessage
	for _, stream := range streams.Val() {
		for _, msg := range stream.Messages {
			messages = append(messages, StreamMessage{ID: msg.ID, Values: msg.Values})
		}
	}
	return messages, nil
}

func (r *adapter) XAck(key, group string, ids ...string) error {
	return r.rdb.XAck(context.Background(), r.keyPrefix+key, group, ids...).Err()
}

func (r *adapter) XGroupCreateMkStream(key, group, start string) error {
	return r.rdb.XGroupCreateMkStream(context.Background(), r.keyPrefix+key, group, start).Err()
}

func (r *adapter) XLen(key string) (int64, error) {
	cmd := r.rdb.XLen(context.Background(), r.keyPrefix+key)
	if cmd.Err() != nil {
		return 0, cmd.Err()
	}
	return cmd.Val(), nil
}

func (r *adapter) XTrimApprox(key string, maxLen int64) error {
	return r.rdb.XTrimMaxLenApprox(context.Background(), r.keyPrefix+key, maxLen, 0).Err()
}

func (r *adapter) XPending(key, group string) (*goredis.XPending, error) {
	cmd := r.rdb.XPending(context.Background(), r.keyPrefix+key, group)
	if cmd.Err() != nil {
		return nil, cmd.Err()
	}
	return cmd.Val(), nil
}

func (r *adapter) XPendingExt(key, group string, start, end string, count int64) ([]goredis.XPendingExt, error) {
	cmd := r.rdb.XPendingExt(context.Background(), &goredis.XPendingExtArgs{
		Stream: r.keyPrefix + key,
		Group:  group,
		Start:  start,
		End:    end,
		Count:  count,
	})
	if cmd.Err() != nil {
		return nil, cmd.Err()
	}
	return cmd.Val(), nil
}

func (r *adapter) XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error) {
	cmd := r.rdb.XClaim(context.Background(), &goredis.XClaimArgs{
		Stream:   r.keyPrefix + key,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	})
	if cmd.Err() != nil {
		return nil, cmd.Err()
	}

	var messages []StreamMessage
	for _, msg := range cmd.Val() {
		messages = append(messages, StreamMessage{ID: msg.ID, Values: msg.Values})
	}
	return messages, nil
}

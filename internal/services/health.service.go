package services

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"github.com/techlab/whatsapp-gateway/pkg/redis"
)

// healthProbeTimeout bounds each dependency ping so a wedged backend
// turns into a 503 instead of a hung request.
const healthProbeTimeout = 2 * time.Second

// HealthService answers readiness probes by pinging the backing
// stores. A process that cannot reach postgres or redis cannot accept
// messages, so it should be pulled from rotation.
type HealthService struct {
	db      *pg.DB
	adapter redis.RedisAdapter
}

func NewHealthService(db *pg.DB, adapter redis.RedisAdapter) *HealthService {
	return &HealthService{db: db, adapter: adapter}
}

// Get returns the first dependency failure, nil when all are reachable.
func (s *HealthService) Get() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		return errors.Wrap(err, "postgres")
	}
	if err := s.adapter.Ping(ctx); err != nil {
		return errors.Wrap(err, "redis")
	}
	return nil
}

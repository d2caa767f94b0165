package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/techlab/whatsapp-gateway/internal/config"
	gateway "github.com/techlab/whatsapp-gateway/internal/gateways"
	"github.com/techlab/whatsapp-gateway/internal/queue"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
	"github.com/techlab/whatsapp-gateway/pkg/prom"
	"github.com/techlab/whatsapp-gateway/pkg/redis"
	"github.com/techlab/whatsapp-gateway/pkg/worker"
)

// ProcessingTimeout must outlive the provider send deadline, otherwise a
// slow provider would be reported as a worker timeout instead of a send
// failure.
const ProcessingTimeout = gateway.SendTimeout + 5*time.Second
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// Service consumes the dispatch queue and fans messages out to a worker
// pool running the registered processor.
type Service struct {
	adapter   redis.RedisAdapter
	queues    []*queue.Queue
	processor Processor
	metrics   *ServiceMetrics
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	pool      *worker.Pool[*jobResult]
}

// Processor handles one queue message. Returning an error NACKs the
// message so the queue redelivers it.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

func NewService(redisAdapter redis.RedisAdapter) (*Service, error) {
	ctx, cancel := context.WithCancel(context.Background())
	service := &Service{
		adapter: redisAdapter,
		queues:  make([]*queue.Queue, 0),
		metrics: NewServiceMetrics(),
		ctx:     ctx,
		cancel:  cancel,
	}
	service.pool = worker.NewPool(config.Get().DispatchWorkers, 10_000, service.workerHandler)
	return service, nil
}

// RegisterProcessor sets the processor messages are handed to.
func (s *Service) RegisterProcessor(processor Processor) {
	s.processor = processor
	logger.Info("registered processor", "type", processor.GetType())
}

// Start spins up the worker pool and the queue consumers.
func (s *Service) Start() error {
	logger.Info("starting dispatch service...")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pool.Run()
	}()

	consumers := config.Get().DispatchConsumers
	if consumers <= 0 {
		consumers = 1
	}

	for i := 0; i < consumers; i++ {
		queueConfig := queue.QueueConfig{
			Name:              config.Get().DispatchQueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      config.Get().QueueConsumerName,
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		}
		queueConfig.ConsumerName = fmt.Sprintf("%s-instance-%d", queueConfig.ConsumerName, i)

		q, err := queue.NewQueue(s.adapter, queueConfig)
		if err != nil {
			return fmt.Errorf("failed to create queue %d: %w", i, err)
		}

		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}

		s.queues = append(s.queues, q)
		logger.Info("started consumer instance", "instance", i)
	}

	s.wg.Add(2)
	go s.metricsReporter()
	go s.healthChecker()

	logger.Info("dispatch service started", "consumers", len(s.queues), "workers", config.Get().DispatchWorkers)
	return nil
}

func (s *Service) metricsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) reportMetrics() {
	stats := s.metrics.GetStats()

	logger.Info("dispatch metrics",
		"total_processed", stats["total_processed"],
		"total_failed", stats["total_failed"],
		"rate_per_second", stats["rate_per_second"],
		"avg_duration_ms", stats["avg_duration_ms"],
		"uptime_seconds", stats["uptime_seconds"],
		"worker_backlog", s.pool.Backlog())

	for i, q := range s.queues {
		if qStats, err := q.GetStats(); err == nil {
			logger.Info("queue stats", "queue", i, "total", qStats.TotalMessages, "pending", qStats.PendingMessages)
			if i == 0 {
				prom.SetQueueDepth(config.Get().DispatchQueueName, float64(qStats.PendingMessages))
			}
		}
	}
}

func (s *Service) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) performHealthCheck() {
	if err := s.adapter.Ping(context.Background()); err != nil {
		logger.Error("health check failed: redis connection error", "error", err)
		return
	}

	for i, q := range s.queues {
		stats, err := q.GetStats()
		if err != nil {
			logger.Warn("health check warning: queue stats unavailable", "queue", i, "error", err)
			continue
		}

		if stats.PendingMessages > 10000 {
			logger.Warn("health check warning: queue has high lag", "queue", i, "pending_messages", stats.PendingMessages)
		}
	}

	logger.Info("health check: ok")
}

// Stop drains the consumers, stops the worker pool and reports final
// metrics.
func (s *Service) Stop() {
	logger.Info("shutting down dispatch service...")

	s.cancel()

	timeout := ShutdownTimeout
	stopChan := make(chan bool, len(s.queues))

	for i, q := range s.queues {
		go func(index int, queue *queue.Queue) {
			if err := queue.Stop(timeout); err != nil {
				logger.Error("error stopping queue", "queue", index, "error", err)
			}
			stopChan <- true
		}(i, q)
	}

	for range s.queues {
		select {
		case <-stopChan:
		case <-time.After(timeout + 5*time.Second):
			logger.Warn("timeout waiting for queues to stop")
		}
	}

	s.pool.Shutdown()
	s.wg.Wait()
	s.reportMetrics()

	logger.Info("dispatch service stopped")
}

type jobResult struct {
	msg        *queue.Message
	resultChan chan error
	ctx        context.Context
}

// messageHandler bridges a queue delivery onto the worker pool and blocks
// until the worker reports the outcome, so ack/nack happens on the
// consumer goroutine.
func (s *Service) messageHandler(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)

	msgCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout+time.Second)
	defer cancel()

	job := &jobResult{
		msg:        msg,
		resultChan: resultChan,
		ctx:        msgCtx,
	}

	s.pool.Submit(job)

	select {
	case err := <-resultChan:
		return err
	case <-msgCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process message: %w", msgCtx.Err())
	}
}

func (s *Service) workerHandler(workerIndex int, jobRes *jobResult) {
	msg := jobRes.msg
	start := time.Now()
	var resultErr error

	select {
	case <-jobRes.ctx.Done():
		logger.Warn("job context cancelled before processing started", "worker", workerIndex)
		return
	default:
	}

	if s.processor == nil {
		logger.Warn("no processor registered", "worker", workerIndex)
		s.metrics.RecordFailure()
		resultErr = nil // ACK, a missing processor will not appear on retry
	} else {
		if err := s.processor.Process(jobRes.ctx, msg); err != nil {
			s.metrics.RecordFailure()
			logger.Error("failed to process message", "worker", workerIndex, "error", err)
			resultErr = err
		} else {
			s.metrics.RecordSuccess(time.Since(start))
			resultErr = nil
		}
	}

	// If messageHandler already timed out there is no receiver, bail out
	// via the context instead of blocking the worker.
	select {
	case jobRes.resultChan <- resultErr:
	case <-jobRes.ctx.Done():
		logger.Warn("context cancelled while sending result", "worker", workerIndex)
	}
}

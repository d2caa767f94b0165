package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techlab/whatsapp-gateway/internal/chatter"
	"github.com/techlab/whatsapp-gateway/internal/config"
	"github.com/techlab/whatsapp-gateway/internal/dispatcher"
	"github.com/techlab/whatsapp-gateway/internal/handlers"
	"github.com/techlab/whatsapp-gateway/internal/queue"
	"github.com/techlab/whatsapp-gateway/internal/render"
	"github.com/techlab/whatsapp-gateway/internal/repository"
	"github.com/techlab/whatsapp-gateway/internal/services"
	xhttp "github.com/techlab/whatsapp-gateway/pkg/http"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"github.com/techlab/whatsapp-gateway/pkg/redis"
)

// Populated by the release build via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	envPath := flag.String("env", defaultEnvFile(), "env file to load before reading process env")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Info("starting api", "version", version, "commit", commit, "built", date)

	opt := xhttp.DefaultServerOption
	s := xhttp.NewServer(opt)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(opt.RequestTimeout))
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf, writeConf := pgConfigs()
	db, err := pg.CreateReadWrite(readConf, writeConf, config.Get().AppDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		os.Exit(1)
	}

	redisAdap, err := redis.NewRedisAdapter(config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "api",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		os.Exit(1)
	}

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().DispatchQueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		os.Exit(1)
	}

	tracker := dispatcher.NewJobTracker(redisAdap, dispatcher.TrackerConfig{
		TTL: time.Duration(config.Get().JobStatusTTLHours) * time.Hour,
	})

	gatewayRepo := repository.NewGatewayRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	logRepo := repository.NewGatewayLogRepository(db)

	renderer := render.New(
		render.UserScope{
			Name:  config.Get().SenderUserName,
			Email: config.Get().SenderUserEmail,
			Phone: config.Get().SenderUserPhone,
		},
		render.CompanyScope{
			Name:      config.Get().CompanyName,
			Email:     config.Get().CompanyEmail,
			Phone:     config.Get().CompanyPhone,
			Website:   config.Get().CompanyWebsite,
			VAT:       config.Get().CompanyVATNumber,
			Signature: config.Get().CompanySignature,
		},
	)

	var directory chatter.Directory = chatter.Noop{}
	if config.Get().ChatterBaseURL != "" {
		directory = chatter.NewClient(config.Get().ChatterBaseURL, config.Get().ChatterAuthToken, nil)
	}

	// services
	messageService := services.NewMessageService(gatewayRepo, templateRepo, renderer, q, tracker)
	gatewayService := services.NewGatewayService(gatewayRepo, logRepo, messageService)
	templateService := services.NewTemplateService(templateRepo, gatewayRepo, renderer)
	logService := services.NewLogService(logRepo, gatewayRepo, q, tracker, directory)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	messageHandler := handlers.NewMessageHandler(messageService)
	gatewayHandler := handlers.NewGatewayHandler(gatewayService)
	templateHandler := handlers.NewTemplateHandler(templateService)
	logHandler := handlers.NewLogHandler(logService)
	jobHandler := handlers.NewJobHandler(tracker)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterMessageRoutes(g, messageHandler)
	handlers.RegisterGatewayRoutes(g, gatewayHandler)
	handlers.RegisterTemplateRoutes(g, templateHandler)
	handlers.RegisterLogRoutes(g, logHandler)
	handlers.RegisterJobRoutes(g, jobHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(config.Get().HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}

func pgConfigs() (read pg.Config, write pg.Config) {
	read = pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	write = pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}
	return read, write
}

// defaultEnvFile points the -env flag at ./.env when one exists, so
// local runs pick it up without an explicit flag.
func defaultEnvFile() string {
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}

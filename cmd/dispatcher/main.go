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
	"github.com/techlab/whatsapp-gateway/internal/phone"
	"github.com/techlab/whatsapp-gateway/internal/repository"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"github.com/techlab/whatsapp-gateway/pkg/prom"
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
	logger.Info("starting dispatcher", "version", version, "commit", commit, "built", date)

	readConf, writeConf := pgConfigs()
	db, err := pg.CreateReadWrite(readConf, writeConf, config.Get().AppDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		os.Exit(1)
	}

	redisAdap, err := redis.NewRedisAdapter(config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "dispatcher",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		os.Exit(1)
	}

	gatewayRepo := repository.NewGatewayRepository(db)
	logRepo := repository.NewGatewayLogRepository(db)

	var directory chatter.Directory = chatter.Noop{}
	if config.Get().ChatterBaseURL != "" {
		directory = chatter.NewClient(config.Get().ChatterBaseURL, config.Get().ChatterAuthToken, nil)
	}

	normalizer := phone.NewNormalizer(config.Get().DefaultCountryCode)
	d := dispatcher.New(gatewayRepo, logRepo, directory, normalizer, nil)

	tracker := dispatcher.NewJobTracker(redisAdap, dispatcher.TrackerConfig{
		TTL: time.Duration(config.Get().JobStatusTTLHours) * time.Hour,
	})

	service, err := dispatcher.NewService(redisAdap)
	if err != nil {
		logger.Error("failed to create dispatch service", "error", err)
		os.Exit(1)
	}
	service.RegisterProcessor(dispatcher.NewDispatchProcessor(d, tracker))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	namespace := config.Get().PromNamespace
	if namespace == "" {
		namespace = config.Get().AppName
	}
	if err := prom.Create(hostname, config.Get().AppEnv, namespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		os.Exit(1)
	}

	metricsAddr := config.Get().AppDebugMetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9100"
	}
	metricsURI := config.Get().AppDebugMetricsURI
	if metricsURI == "" {
		metricsURI = "/metrics"
	}
	go func() {
		prom.ListenAndServe(metricsAddr, metricsURI)
	}()

	go func() {
		if err := service.Start(); err != nil {
			logger.Error("failed to start dispatch service", "error", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
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

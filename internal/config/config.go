package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
)

var config *Config

// Config holds every environment-driven setting for the binaries. Only
// this struct should be consulted for configuration; no direct env reads
// elsewhere.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=whatsapp_gateway"`
	AppDebug            bool   `env:"APP_DEBUG,default=true"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR,default=:8080"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	// DefaultCountryCode is prepended to bare 10-digit national numbers.
	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE,default=39"`

	DispatchQueueName  string `env:"DISPATCH_QUEUE_NAME,default=whatsapp:dispatch"`
	QueueConsumerGroup string `env:"QUEUE_CONSUMER_GROUP,default=dispatchers"`
	QueueConsumerName  string `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries    int    `env:"QUEUE_MAX_RETRIES"`
	// Must stay above the 30s provider send deadline so an in-flight
	// dispatch is never claimed by a second consumer.
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=45s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ"`

	DispatchConsumers int `env:"DISPATCH_CONSUMERS,default=2"`
	DispatchWorkers   int `env:"DISPATCH_WORKERS,default=8"`

	// Job status records in redis expire after this many hours.
	JobStatusTTLHours int `env:"JOB_STATUS_TTL_HOURS,default=24"`

	// Host application callback used for chatter notes and display-name
	// lookups. Empty base URL disables the integration.
	ChatterBaseURL   string `env:"CHATTER_BASE_URL"`
	ChatterAuthToken string `env:"CHATTER_AUTH_TOKEN"`

	// Identity exposed to templates under the user. and company. roots.
	SenderUserName   string `env:"SENDER_USER_NAME"`
	SenderUserEmail  string `env:"SENDER_USER_EMAIL"`
	SenderUserPhone  string `env:"SENDER_USER_PHONE"`
	CompanyName      string `env:"COMPANY_NAME"`
	CompanyEmail     string `env:"COMPANY_EMAIL"`
	CompanyPhone     string `env:"COMPANY_PHONE"`
	CompanyWebsite   string `env:"COMPANY_WEBSITE"`
	CompanyVATNumber string `env:"COMPANY_VAT_NUMBER"`
	CompanySignature string `env:"COMPANY_SIGNATURE"`
}

// Load publishes the env file at path (when given) into the process
// environment, then unmarshals the environment into the package Config.
func Load(path string) error {
	if path != "" {
		logger.Info("loading env file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "load env file %s", path)
		}
	}

	c := &Config{}
	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "unmarshal environment")
	}

	config = c
	return nil
}

// Get panics when called before Load; that is a programming error, not
// a runtime condition to handle.
func Get() *Config {
	if config == nil {
		logger.Panic("config read before Load")
	}
	return config
}

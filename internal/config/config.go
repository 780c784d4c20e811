// Package config provides configuration structures and validation for the credit
// ledger services. Values come from an optional .env file under ./configs and
// are overridden by environment variables.
package config

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"
)

// Config holds the complete application configuration. Each field is one
// subsystem and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Credit      CreditConfig
	Scheduler   SchedulerConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

type KafkaConfig struct {
	Brokers               string
	NotificationTopic     string // Farmer notifications, consumed by the messaging gateway
	CollectionEventsTopic string // Delivery and payment events from the collections service
	NumPartitions         int
	ReplicationFactor     int
	ConsumerGroup         string
	MinBytes              int
	MaxBytes              int
	MaxWait               time.Duration
	StartOffset           int64
	DLQTopic              string
}

type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
	// FixturesPath holds stand-ins for tables other services own. Local development only.
	FixturesPath string
}

type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig configures the pending payments cache. A zero PendingTTL
// disables caching.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PendingTTL time.Duration
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

type WorkerPoolConfig struct {
	Size int // Maximum number of concurrent farmer jobs in a batch
}

// CreditConfig is the credit policy. Percentages are decimal strings.
type CreditConfig struct {
	NewPercentage         string
	NewMaxAmount          int64
	EstablishedPercentage string
	EstablishedMaxAmount  int64
	PremiumPercentage     string
	PremiumMaxAmount      int64
	SettlementRule        string // RFC 5545 RRULE, anchored at each profile's first settlement date
}

// SchedulerConfig holds cron specs with a leading seconds field
type SchedulerConfig struct {
	SettlementSpec  string
	DefaultScanSpec string
	ReconcileSpec   string
	BatchSize       int
	LockTTL         time.Duration // Upper bound on one job run across replicas
}

// validate performs validation of all configuration values and reports
// every problem at once
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.NotificationTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_NOTIFICATION_TOPIC is required")
	}
	if c.Kafka.CollectionEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_COLLECTION_EVENTS_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// PostgreSQL
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}
	if c.Postgres.FixturesPath != "" && c.Application.Env == "production" {
		validationErrors = append(validationErrors, "POSTGRES_FIXTURES_PATH must not be set in production")
	}

	// MongoDB
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Redis
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.PendingTTL < 0 {
		validationErrors = append(validationErrors, "REDIS_PENDING_TTL must not be negative")
	}

	// Outbox
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Credit policy
	for key, pct := range map[string]string{
		"CREDIT_NEW_PERCENTAGE":         c.Credit.NewPercentage,
		"CREDIT_ESTABLISHED_PERCENTAGE": c.Credit.EstablishedPercentage,
		"CREDIT_PREMIUM_PERCENTAGE":     c.Credit.PremiumPercentage,
	} {
		d, err := decimal.NewFromString(pct)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			validationErrors = append(validationErrors, key+" must be a number between 0 and 100")
		}
	}
	if c.Credit.NewMaxAmount < 0 || c.Credit.EstablishedMaxAmount < 0 || c.Credit.PremiumMaxAmount < 0 {
		validationErrors = append(validationErrors, "CREDIT_*_MAX_AMOUNT must not be negative")
	}
	if _, err := rrule.StrToROption(c.Credit.SettlementRule); err != nil {
		validationErrors = append(validationErrors, "CREDIT_SETTLEMENT_RULE is not a valid RRULE")
	}

	// Scheduler
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for key, spec := range map[string]string{
		"SCHEDULER_SETTLEMENT_SPEC":   c.Scheduler.SettlementSpec,
		"SCHEDULER_DEFAULT_SCAN_SPEC": c.Scheduler.DefaultScanSpec,
		"SCHEDULER_RECONCILE_SPEC":    c.Scheduler.ReconcileSpec,
	} {
		if _, err := parser.Parse(spec); err != nil {
			validationErrors = append(validationErrors, key+" is not a valid cron spec")
		}
	}
	if c.Scheduler.BatchSize <= 0 {
		validationErrors = append(validationErrors, "SCHEDULER_BATCH_SIZE must be greater than 0")
	}
	if c.Scheduler.LockTTL <= 0 {
		validationErrors = append(validationErrors, "SCHEDULER_LOCK_TTL must be greater than 0")
	}

	if len(validationErrors) > 0 {
		// Map iteration order is random
		sort.Strings(validationErrors)
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

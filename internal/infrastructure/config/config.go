package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Queue     QueueConfig
	Ingest    IngestConfig
	Agent     AgentConfig
	Breaker   BreakerConfig
	Scheduler SchedulerConfig
	Reconcile ReconcileConfig
	Alerting  AlertingConfig
	Archive   ArchiveConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. Redis backs the shared
// callback idempotency store; when disabled an in-process store is used.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds admin token settings
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// QueueConfig holds the sync job processor configuration
type QueueConfig struct {
	Enabled      bool
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	JobTTL       time.Duration
	ClaimTimeout time.Duration
}

// IngestConfig holds batch ingestion limits
type IngestConfig struct {
	MaxItemsPerBatch int
	MaxStockPerBatch int
	SubChunkSize     int
}

// AgentConfig holds outbound agent HTTP client settings
type AgentConfig struct {
	CallTimeout       time.Duration
	HeartbeatInterval time.Duration
}

// BreakerConfig holds circuit breaker tuning
type BreakerConfig struct {
	MinCalls     uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// SchedulerConfig holds background task configuration
type SchedulerConfig struct {
	Enabled              bool
	ReconcileSchedule    string
	HealthSweepSchedule  string
	DLQAlertSchedule     string
	DailyPurgeSchedule   string
	WeeklyDeepSchedule   string
	JobTimeout           time.Duration
	DLQAlertThreshold    int64
	DLQResolvedRetention time.Duration
}

// ReconcileConfig holds reconciliation engine tuning
type ReconcileConfig struct {
	LeafRangeSize  int
	MaxRanges      int
	EventRetention time.Duration
}

// AlertingConfig holds the operator alert sink settings
type AlertingConfig struct {
	WebhookURL     string
	WebhookTimeout time.Duration
}

// ArchiveConfig holds S3 archival settings for reconciliation history
type ArchiveConfig struct {
	Enabled   bool
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // custom endpoint for S3-compatible stores
	AccessKey string
	SecretKey string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SYNC_ prefix (e.g., SYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetDuration("jwt.expiration"),
			Issuer:     v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Queue: QueueConfig{
			Enabled:      v.GetBool("queue.enabled"),
			BatchSize:    v.GetInt("queue.batch_size"),
			PollInterval: v.GetDuration("queue.poll_interval"),
			MaxRetries:   v.GetInt("queue.max_retries"),
			JobTTL:       v.GetDuration("queue.job_ttl"),
			ClaimTimeout: v.GetDuration("queue.claim_timeout"),
		},
		Ingest: IngestConfig{
			MaxItemsPerBatch: v.GetInt("ingest.max_items_per_batch"),
			MaxStockPerBatch: v.GetInt("ingest.max_stock_per_batch"),
			SubChunkSize:     v.GetInt("ingest.sub_chunk_size"),
		},
		Agent: AgentConfig{
			CallTimeout:       v.GetDuration("agent.call_timeout"),
			HeartbeatInterval: v.GetDuration("agent.heartbeat_interval"),
		},
		Breaker: BreakerConfig{
			MinCalls:     uint32(v.GetUint32("breaker.min_calls")),
			FailureRatio: v.GetFloat64("breaker.failure_ratio"),
			OpenTimeout:  v.GetDuration("breaker.open_timeout"),
		},
		Scheduler: SchedulerConfig{
			Enabled:              v.GetBool("scheduler.enabled"),
			ReconcileSchedule:    v.GetString("scheduler.reconcile_schedule"),
			HealthSweepSchedule:  v.GetString("scheduler.health_sweep_schedule"),
			DLQAlertSchedule:     v.GetString("scheduler.dlq_alert_schedule"),
			DailyPurgeSchedule:   v.GetString("scheduler.daily_purge_schedule"),
			WeeklyDeepSchedule:   v.GetString("scheduler.weekly_deep_schedule"),
			JobTimeout:           v.GetDuration("scheduler.job_timeout"),
			DLQAlertThreshold:    v.GetInt64("scheduler.dlq_alert_threshold"),
			DLQResolvedRetention: v.GetDuration("scheduler.dlq_resolved_retention"),
		},
		Reconcile: ReconcileConfig{
			LeafRangeSize:  v.GetInt("reconcile.leaf_range_size"),
			MaxRanges:      v.GetInt("reconcile.max_ranges"),
			EventRetention: v.GetDuration("reconcile.event_retention"),
		},
		Alerting: AlertingConfig{
			WebhookURL:     v.GetString("alerting.webhook_url"),
			WebhookTimeout: v.GetDuration("alerting.webhook_timeout"),
		},
		Archive: ArchiveConfig{
			Enabled:   v.GetBool("archive.enabled"),
			Bucket:    v.GetString("archive.bucket"),
			Prefix:    v.GetString("archive.prefix"),
			Region:    v.GetString("archive.region"),
			Endpoint:  v.GetString("archive.endpoint"),
			AccessKey: v.GetString("archive.access_key"),
			SecretKey: v.GetString("archive.secret_key"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Expiration == 0 {
		cfg.JWT.Expiration = 8 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "sync-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 20 << 20 // 20MB, stock batches run large
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Correlation-ID"}
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 50
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = 5 * time.Second
	}
	if cfg.Queue.MaxRetries == 0 {
		cfg.Queue.MaxRetries = 5
	}
	if cfg.Queue.JobTTL == 0 {
		cfg.Queue.JobTTL = 24 * time.Hour
	}
	if cfg.Queue.ClaimTimeout == 0 {
		// Covers the push round trip plus the agent's asynchronous callback
		cfg.Queue.ClaimTimeout = 15 * time.Minute
	}
	if cfg.Ingest.MaxItemsPerBatch == 0 {
		cfg.Ingest.MaxItemsPerBatch = 500
	}
	if cfg.Ingest.MaxStockPerBatch == 0 {
		cfg.Ingest.MaxStockPerBatch = 5000
	}
	if cfg.Ingest.SubChunkSize == 0 {
		cfg.Ingest.SubChunkSize = 50
	}
	if cfg.Agent.CallTimeout == 0 {
		cfg.Agent.CallTimeout = 30 * time.Second
	}
	if cfg.Agent.HeartbeatInterval == 0 {
		cfg.Agent.HeartbeatInterval = 30 * time.Second
	}
	if cfg.Breaker.MinCalls == 0 {
		cfg.Breaker.MinCalls = 5
	}
	if cfg.Breaker.FailureRatio == 0 {
		cfg.Breaker.FailureRatio = 0.5
	}
	if cfg.Breaker.OpenTimeout == 0 {
		cfg.Breaker.OpenTimeout = 60 * time.Second
	}
	if cfg.Scheduler.ReconcileSchedule == "" {
		cfg.Scheduler.ReconcileSchedule = "0 * * * *" // hourly
	}
	if cfg.Scheduler.HealthSweepSchedule == "" {
		cfg.Scheduler.HealthSweepSchedule = "*/5 * * * *"
	}
	if cfg.Scheduler.DLQAlertSchedule == "" {
		cfg.Scheduler.DLQAlertSchedule = "*/15 * * * *"
	}
	if cfg.Scheduler.DailyPurgeSchedule == "" {
		cfg.Scheduler.DailyPurgeSchedule = "0 3 * * *"
	}
	if cfg.Scheduler.WeeklyDeepSchedule == "" {
		cfg.Scheduler.WeeklyDeepSchedule = "0 4 * * 0"
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.DLQResolvedRetention == 0 {
		cfg.Scheduler.DLQResolvedRetention = 30 * 24 * time.Hour
	}
	if cfg.Reconcile.LeafRangeSize == 0 {
		cfg.Reconcile.LeafRangeSize = 10
	}
	if cfg.Reconcile.MaxRanges == 0 {
		cfg.Reconcile.MaxRanges = 10000
	}
	if cfg.Reconcile.EventRetention == 0 {
		cfg.Reconcile.EventRetention = 90 * 24 * time.Hour
	}
	if cfg.Alerting.WebhookTimeout == 0 {
		cfg.Alerting.WebhookTimeout = 10 * time.Second
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "reconciliation"
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "eu-west-3"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "sync-backend"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Breaker.FailureRatio < 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be between 0.0 and 1.0, got %f", c.Breaker.FailureRatio)
	}
	if c.Reconcile.LeafRangeSize <= 0 {
		return fmt.Errorf("reconcile.leaf_range_size must be positive")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Archive.Enabled && c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when archival is enabled")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port pair for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

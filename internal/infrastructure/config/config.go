package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AGRO_DATABASE_HOST
const EnvPrefix = "AGRO"

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Event       EventConfig
	Eligibility EligibilityConfig
	Financing   FinancingConfig
	Repayment   RepaymentConfig
	Storage     StorageConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings. When disabled, handler
// idempotency falls back to an in-process store.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for validating caller tokens
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
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
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// EventConfig tunes the outbox processor
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
	ClaimTimeout     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	IdempotencyTTL   time.Duration
}

// EligibilityConfig controls how the eligible amount is derived
type EligibilityConfig struct {
	// SubtractOutstanding deducts the principal of open financings from the
	// estimated total. Off by default: sequential financings may each use
	// the full estimated amount.
	SubtractOutstanding bool
}

// FinancingConfig holds the overdue policy parameters
type FinancingConfig struct {
	CycleLength        time.Duration
	GracePeriod        time.Duration
	ReconcileBatchSize int
}

// RepaymentConfig bounds retries of payment registration on version conflicts
type RepaymentConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// StorageConfig holds S3-compatible object storage settings for ledger exports
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
}

// Load reads configuration. Priority, highest first:
//  1. AGRO_* environment variables (a .env file in the working directory is
//     loaded into the environment first, without overriding real variables)
//  2. config.toml in ., ./config or /app
//  3. built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
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
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			BaseBackoff:      v.GetDuration("event.base_backoff"),
			MaxBackoff:       v.GetDuration("event.max_backoff"),
			ClaimTimeout:     v.GetDuration("event.claim_timeout"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
			IdempotencyTTL:   v.GetDuration("event.idempotency_ttl"),
		},
		Eligibility: EligibilityConfig{
			SubtractOutstanding: v.GetBool("eligibility.subtract_outstanding"),
		},
		Financing: FinancingConfig{
			CycleLength:        v.GetDuration("financing.cycle_length"),
			GracePeriod:        v.GetDuration("financing.grace_period"),
			ReconcileBatchSize: v.GetInt("financing.reconcile_batch_size"),
		},
		Repayment: RepaymentConfig{
			MaxRetries:   v.GetInt("repayment.max_retries"),
			RetryBackoff: v.GetDuration("repayment.retry_backoff"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			KeyPrefix:       v.GetString("storage.key_prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}
}

func applyDefaults(cfg *Config) {
	setString(&cfg.App.Name, "agrocredit-engine")
	setString(&cfg.App.Env, "development")
	setString(&cfg.App.Port, "8080")

	setString(&cfg.Database.Driver, "postgres")
	setString(&cfg.Database.Host, "localhost")
	setInt(&cfg.Database.Port, 5432)
	setString(&cfg.Database.User, "postgres")
	setString(&cfg.Database.DBName, "agrocredit")
	setString(&cfg.Database.SSLMode, "disable")
	setString(&cfg.Database.SQLitePath, "agrocredit.db")
	setInt(&cfg.Database.MaxOpenConns, 25)
	setInt(&cfg.Database.MaxIdleConns, 5)
	setDuration(&cfg.Database.ConnMaxLifetime, time.Hour)
	setDuration(&cfg.Database.ConnMaxIdleTime, 30*time.Minute)

	setString(&cfg.Redis.Host, "localhost")
	setInt(&cfg.Redis.Port, 6379)

	setString(&cfg.JWT.Issuer, "agrocredit")
	setDuration(&cfg.JWT.AccessTokenExpiration, 15*time.Minute)

	setString(&cfg.Log.Level, "info")
	setString(&cfg.Log.Format, "console")
	setString(&cfg.Log.Output, "stdout")

	setDuration(&cfg.HTTP.ReadTimeout, 15*time.Second)
	setDuration(&cfg.HTTP.WriteTimeout, 30*time.Second)
	setDuration(&cfg.HTTP.IdleTimeout, 60*time.Second)
	setDuration(&cfg.HTTP.ShutdownTimeout, 30*time.Second)
	setInt(&cfg.HTTP.MaxHeaderBytes, 1<<20)
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}

	setInt(&cfg.Event.BatchSize, 100)
	setDuration(&cfg.Event.PollInterval, 2*time.Second)
	setInt(&cfg.Event.MaxRetries, 5)
	setDuration(&cfg.Event.BaseBackoff, time.Second)
	setDuration(&cfg.Event.MaxBackoff, 5*time.Minute)
	setDuration(&cfg.Event.ClaimTimeout, 5*time.Minute)
	setDuration(&cfg.Event.CleanupRetention, 7*24*time.Hour)
	setDuration(&cfg.Event.IdempotencyTTL, 7*24*time.Hour)

	setDuration(&cfg.Financing.CycleLength, 120*24*time.Hour)
	setDuration(&cfg.Financing.GracePeriod, 30*24*time.Hour)
	setInt(&cfg.Financing.ReconcileBatchSize, 500)

	setInt(&cfg.Repayment.MaxRetries, 3)
	setDuration(&cfg.Repayment.RetryBackoff, 25*time.Millisecond)

	setString(&cfg.Storage.Region, "us-east-1")
	setString(&cfg.Storage.KeyPrefix, "exports/")

	setString(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	setString(&cfg.Telemetry.ServiceName, cfg.App.Name)
	setDuration(&cfg.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
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
	if c.Repayment.MaxRetries < 0 {
		return fmt.Errorf("repayment.max_retries cannot be negative")
	}
	if c.Financing.CycleLength < 0 || c.Financing.GracePeriod < 0 {
		return fmt.Errorf("financing.cycle_length and financing.grace_period cannot be negative")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production")
			}
		}
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

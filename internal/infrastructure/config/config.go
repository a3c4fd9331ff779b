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
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Event       EventConfig
	HTTP        HTTPConfig
	Idempotency IdempotencyConfig
	Telemetry   TelemetryConfig
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

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// EventConfig holds outbox processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
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

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// IdempotencyConfig holds idempotency store configuration
type IdempotencyConfig struct {
	Enabled bool
	Backend string // redis, memory
	TTL     time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL Collector gRPC endpoint (e.g. "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0, 1.0 = 100%
	ServiceName       string
	Insecure          bool // Use non-TLS connection (development only)
	DBTraceEnabled    bool
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with ORDERCORE_ prefix (e.g. ORDERCORE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine, defaults and env vars take over.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ORDERCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App:         loadApp(v),
		Database:    loadDatabase(v),
		Redis:       loadRedis(v),
		Log:         loadLog(v),
		Event:       loadEvent(v),
		HTTP:        loadHTTP(v),
		Idempotency: loadIdempotency(v),
		Telemetry:   loadTelemetry(v),
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadApp(v *viper.Viper) AppConfig {
	return AppConfig{
		Name: v.GetString("app.name"),
		Env:  v.GetString("app.env"),
		Port: v.GetString("app.port"),
	}
}

func loadDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
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
	}
}

func loadRedis(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Host:     v.GetString("redis.host"),
		Port:     v.GetInt("redis.port"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func loadLog(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
}

func loadEvent(v *viper.Viper) EventConfig {
	return EventConfig{
		ProcessorEnabled: v.GetBool("event.processor_enabled"),
		BatchSize:        v.GetInt("event.batch_size"),
		PollInterval:     v.GetDuration("event.poll_interval"),
		MaxRetries:       v.GetInt("event.max_retries"),
		CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
		CleanupRetention: v.GetDuration("event.cleanup_retention"),
	}
}

func loadHTTP(v *viper.Viper) HTTPConfig {
	return HTTPConfig{
		ReadTimeout:      v.GetDuration("http.read_timeout"),
		WriteTimeout:     v.GetDuration("http.write_timeout"),
		IdleTimeout:      v.GetDuration("http.idle_timeout"),
		MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
		MaxBodySize:      v.GetInt64("http.max_body_size"),
		CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
		CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
		TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),

		RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
		RateLimitRequests: v.GetInt("http.rate_limit_requests"),
		RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
	}
}

func loadIdempotency(v *viper.Viper) IdempotencyConfig {
	return IdempotencyConfig{
		Enabled: v.GetBool("idempotency.enabled"),
		Backend: v.GetString("idempotency.backend"),
		TTL:     v.GetDuration("idempotency.ttl"),
	}
}

func loadTelemetry(v *viper.Viper) TelemetryConfig {
	return TelemetryConfig{
		Enabled:           v.GetBool("telemetry.enabled"),
		CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
		SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
		ServiceName:       v.GetString("telemetry.service_name"),
		Insecure:          v.GetBool("telemetry.insecure"),
		DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
	}
}

func defaultString(p *string, def string) {
	if *p == "" {
		*p = def
	}
}

func defaultInt(p *int, def int) {
	if *p == 0 {
		*p = def
	}
}

func defaultDuration(p *time.Duration, def time.Duration) {
	if *p == 0 {
		*p = def
	}
}

// applyDefaults fills in built-in defaults for fields left unset
func applyDefaults(cfg *Config) {
	defaultString(&cfg.App.Name, "ordercore-backend")
	defaultString(&cfg.App.Env, "development")
	defaultString(&cfg.App.Port, "8080")

	defaultString(&cfg.Database.Host, "localhost")
	defaultInt(&cfg.Database.Port, 5432)
	defaultString(&cfg.Database.User, "postgres")
	defaultString(&cfg.Database.DBName, "ordercore")
	defaultString(&cfg.Database.SSLMode, "disable")
	defaultInt(&cfg.Database.MaxOpenConns, 25)
	defaultInt(&cfg.Database.MaxIdleConns, 5)
	defaultInt(&cfg.Database.ConnMaxLifetime, 60)
	defaultInt(&cfg.Database.ConnMaxIdleTime, 30)

	defaultString(&cfg.Redis.Host, "localhost")
	defaultInt(&cfg.Redis.Port, 6379)

	defaultString(&cfg.Log.Level, "info")
	defaultString(&cfg.Log.Format, "console")
	defaultString(&cfg.Log.Output, "stdout")

	defaultInt(&cfg.Event.BatchSize, 100)
	defaultDuration(&cfg.Event.PollInterval, 5*time.Second)
	defaultInt(&cfg.Event.MaxRetries, 5)
	defaultDuration(&cfg.Event.CleanupRetention, 168*time.Hour)

	defaultDuration(&cfg.HTTP.ReadTimeout, 15*time.Second)
	defaultDuration(&cfg.HTTP.WriteTimeout, 15*time.Second)
	defaultDuration(&cfg.HTTP.IdleTimeout, 60*time.Second)
	defaultInt(&cfg.HTTP.MaxHeaderBytes, 1<<20)
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	// CORS origins intentionally have no wildcard fallback. An empty list
	// means no cross-origin requests until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Store-ID"}
	}
	defaultInt(&cfg.HTTP.RateLimitRequests, 100)
	defaultDuration(&cfg.HTTP.RateLimitWindow, time.Minute)

	defaultString(&cfg.Idempotency.Backend, "memory")
	defaultDuration(&cfg.Idempotency.TTL, 24*time.Hour)

	defaultString(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	defaultString(&cfg.Telemetry.ServiceName, "ordercore-backend")
	defaultDuration(&cfg.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)
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

	if c.App.Env == "production" {
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
	}

	if c.Idempotency.Backend != "memory" && c.Idempotency.Backend != "redis" {
		return fmt.Errorf("idempotency.backend must be 'memory' or 'redis', got %q", c.Idempotency.Backend)
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

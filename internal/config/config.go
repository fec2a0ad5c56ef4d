package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Mail      MailConfig
	Queue     QueueConfig
	Realtime  RealtimeConfig
	Scheduler SchedulerConfig
	Dashboard DashboardConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
}

// AuthConfig defines how identity provider tokens are verified.
type AuthConfig struct {
	JWTSecret       string
	Issuer          string
	TokenTTLMinutes int
}

// StorageConfig locates the attachment blob store.
type StorageConfig struct {
	Root           string
	MaxUploadBytes int64
}

// MailConfig configures the outbound SMTP relay.
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
}

// QueueConfig configures the AMQP broker used to hand mail off to the worker.
type QueueConfig struct {
	URL       string
	MailQueue string
	Prefetch  int
}

// RealtimeConfig tunes live sessions.
type RealtimeConfig struct {
	SessionBuffer       int
	PingIntervalSeconds int
	RelayEnabled        bool
	RelayChannel        string
}

// SchedulerConfig controls background jobs.
type SchedulerConfig struct {
	EscalationEnabled         bool
	EscalationIntervalMinutes int
	EscalationAfterHours      int
	DailySummaryEnabled       bool
	DailySummaryHour          int
	WeeklyReportEnabled       bool
	WeeklyReportHour          int
	Timezone                  string
}

// DashboardConfig controls the cached staff dashboard.
type DashboardConfig struct {
	CacheTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 8*1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:          os.Getenv("AUTH_JWT_ISSUER"),
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 60),
		},
		Storage: StorageConfig{
			Root:           getEnv("STORAGE_ROOT", "media"),
			MaxUploadBytes: int64(getEnvAsInt("STORAGE_MAX_UPLOAD_BYTES", 5*1024*1024)),
		},
		Mail: MailConfig{
			Enabled:  getEnvAsBool("MAIL_ENABLED", false),
			Host:     getEnv("MAIL_SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("MAIL_SMTP_PORT", 587),
			Username: os.Getenv("MAIL_SMTP_USERNAME"),
			Password: os.Getenv("MAIL_SMTP_PASSWORD"),
			From:     getEnv("MAIL_FROM", "helpdesk@example.edu"),
			BaseURL:  getEnv("MAIL_BASE_URL", "http://localhost:5173"),
		},
		Queue: QueueConfig{
			URL:       os.Getenv("AMQP_URL"),
			MailQueue: getEnv("AMQP_MAIL_QUEUE", "helpdesk.mail"),
			Prefetch:  getEnvAsInt("AMQP_PREFETCH", 20),
		},
		Realtime: RealtimeConfig{
			SessionBuffer:       getEnvAsInt("REALTIME_SESSION_BUFFER", 32),
			PingIntervalSeconds: getEnvAsInt("REALTIME_PING_INTERVAL_SECONDS", 20),
			RelayEnabled:        getEnvAsBool("REALTIME_RELAY_ENABLED", false),
			RelayChannel:        getEnv("REALTIME_RELAY_CHANNEL", "helpdesk:live"),
		},
		Scheduler: SchedulerConfig{
			EscalationEnabled:         getEnvAsBool("SCHEDULER_ESCALATION_ENABLED", true),
			EscalationIntervalMinutes: getEnvAsInt("SCHEDULER_ESCALATION_INTERVAL_MINUTES", 30),
			EscalationAfterHours:      getEnvAsInt("SCHEDULER_ESCALATION_AFTER_HOURS", 24),
			DailySummaryEnabled:       getEnvAsBool("SCHEDULER_DAILY_SUMMARY_ENABLED", true),
			DailySummaryHour:          getEnvAsInt("SCHEDULER_DAILY_SUMMARY_HOUR", 8),
			WeeklyReportEnabled:       getEnvAsBool("SCHEDULER_WEEKLY_REPORT_ENABLED", true),
			WeeklyReportHour:          getEnvAsInt("SCHEDULER_WEEKLY_REPORT_HOUR", 9),
			Timezone:                  getEnv("SCHEDULER_TIMEZONE", "UTC"),
		},
		Dashboard: DashboardConfig{
			CacheTTLSeconds: getEnvAsInt("DASHBOARD_CACHE_TTL_SECONDS", 60),
		},
	}

	if cfg.Storage.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("invalid STORAGE_MAX_UPLOAD_BYTES: %d", cfg.Storage.MaxUploadBytes)
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PingInterval returns the keepalive interval for live sessions.
func (r RealtimeConfig) PingInterval() time.Duration {
	if r.PingIntervalSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(r.PingIntervalSeconds) * time.Second
}

// EscalationAfter is how long a ticket may stay pending before staff are reminded.
func (s SchedulerConfig) EscalationAfter() time.Duration {
	if s.EscalationAfterHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.EscalationAfterHours) * time.Hour
}

// Location returns the timezone used for wall-clock jobs.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheTTL returns how long dashboard results stay cached.
func (d DashboardConfig) CacheTTL() time.Duration {
	if d.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(d.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

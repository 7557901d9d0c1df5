package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Escalation   EscalationConfig
	OTP          OTPConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	RunMigrations     bool
	ConnMaxIdleSec    int32
	ConnMaxLifeSec    int32
	QueryTimeoutMilli int
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
}

// AuthConfig defines token verification parameters. Tokens are issued by an
// external identity service; this service only verifies them.
type AuthConfig struct {
	JWTSecret string
}

// EscalationConfig holds SLA thresholds. These are deployment inputs, not
// product constants; defaults are conservative.
type EscalationConfig struct {
	AssignmentDelayMinutes int
	ScheduleGraceMinutes   int
	StuckCeilingHours      int
	SweepIntervalSeconds   int
}

// OTPConfig controls completion-confirmation codes.
type OTPConfig struct {
	TTLMinutes int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	SMSSender  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "repair-dispatch-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:               os.Getenv("POSTGRES_DSN"),
			MaxConns:          int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:     getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:    int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:    int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			QueryTimeoutMilli: getEnvAsInt("POSTGRES_QUERY_TIMEOUT_MS", 3000),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Escalation: EscalationConfig{
			AssignmentDelayMinutes: getEnvAsInt("ESCALATION_ASSIGNMENT_DELAY_MINUTES", 240),
			ScheduleGraceMinutes:   getEnvAsInt("ESCALATION_SCHEDULE_GRACE_MINUTES", 30),
			StuckCeilingHours:      getEnvAsInt("ESCALATION_STUCK_CEILING_HOURS", 48),
			SweepIntervalSeconds:   getEnvAsInt("ESCALATION_SWEEP_INTERVAL_SECONDS", 300),
		},
		OTP: OTPConfig{
			TTLMinutes: getEnvAsInt("OTP_TTL_MINUTES", 5),
		},
		Notification: NotificationConfig{
			SMSSender:  getEnv("NOTIFY_SMS_SENDER", ""),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
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

// QueryTimeout bounds individual persistence calls.
func (p PostgresConfig) QueryTimeout() time.Duration {
	if p.QueryTimeoutMilli <= 0 {
		return 3 * time.Second
	}
	return time.Duration(p.QueryTimeoutMilli) * time.Millisecond
}

// AssignmentDelay is T1: max tolerated time in ASSIGNED before L1.
func (e EscalationConfig) AssignmentDelay() time.Duration {
	return time.Duration(e.AssignmentDelayMinutes) * time.Minute
}

// ScheduleGrace is the slack after a scheduled slot before an SLA breach.
func (e EscalationConfig) ScheduleGrace() time.Duration {
	return time.Duration(e.ScheduleGraceMinutes) * time.Minute
}

// StuckCeiling is the hard cap on time in any single non-terminal state.
func (e EscalationConfig) StuckCeiling() time.Duration {
	return time.Duration(e.StuckCeilingHours) * time.Hour
}

// SweepInterval spaces periodic monitor runs.
func (e EscalationConfig) SweepInterval() time.Duration {
	if e.SweepIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(e.SweepIntervalSeconds) * time.Second
}

// TTL is the validity window of an issued OTP code.
func (o OTPConfig) TTL() time.Duration {
	if o.TTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(o.TTLMinutes) * time.Minute
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

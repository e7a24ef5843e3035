package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Log          LogConfig
	Tracing      TracingConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	Redis        RedisConfig
	Notification NotificationConfig
	Risk         RiskConfig
	Sync         SyncConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// TLS is enabled when both cert and key are set. ClientCAFile turns on mTLS.
	TLSCertFile  string
	TLSKeyFile   string
	ClientCAFile string
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

type DatabaseConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	// Global rate limit per IP
	RequestsPerSecond float64
	BurstSize         int
	// Auth endpoints have stricter limits
	AuthRequestsPerMinute int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// NotificationConfig selects one driver per channel. Valid driver names are
// listed in validDrivers.
type NotificationConfig struct {
	EmailDriver string
	SMSDriver   string
	PushDriver  string

	KafkaBrokers []string
	KafkaTopic   string

	SQSQueueURL string
	SQSRegion   string

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	SendTimeout        time.Duration
}

// RiskConfig holds the 0-100 score breakpoints shared by every risk bucketing path.
type RiskConfig struct {
	ModerateThreshold float64
	HighThreshold     float64
}

type SyncConfig struct {
	DefaultLimit int
	MaxLimit     int
}

var validDrivers = map[string][]string{
	"email": {"mock", "log", "mailgun", "sqs"},
	"sms":   {"mock", "log", "twilio", "sqs"},
	"push":  {"mock", "log", "firebase", "kafka"},
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "juanheart-api"),
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.0.0"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			TLSCertFile:     getEnv("SERVER_TLS_CERT", ""),
			TLSKeyFile:      getEnv("SERVER_TLS_KEY", ""),
			ClientCAFile:    getEnv("SERVER_TLS_CLIENT_CA", ""),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			Name:               getEnv("DB_NAME", "juanheart"),
			User:               getEnv("DB_USER", "juanheart"),
			Password:           getEnv("DB_PASSWORD", ""),
			SSLMode:            getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:    getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			Issuer:          getEnv("JWT_ISSUER", "juanheart-api"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "juanheart-api"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", "otel-collector:4318"),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 0.1),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Request-ID"}),
			MaxAge:         getEnvDuration("CORS_MAX_AGE", 12*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:     getEnvFloat("RATE_LIMIT_RPS", 100),
			BurstSize:             getEnvInt("RATE_LIMIT_BURST", 200),
			AuthRequestsPerMinute: getEnvInt("RATE_LIMIT_AUTH_RPM", 10),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("REDIS_CACHE_TTL", 10*time.Minute),
		},
		Notification: NotificationConfig{
			EmailDriver:        getEnv("NOTIFY_EMAIL_DRIVER", "mock"),
			SMSDriver:          getEnv("NOTIFY_SMS_DRIVER", "mock"),
			PushDriver:         getEnv("NOTIFY_PUSH_DRIVER", "mock"),
			KafkaBrokers:       getEnvSlice("NOTIFY_KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:         getEnv("NOTIFY_KAFKA_TOPIC", "juanheart.push"),
			SQSQueueURL:        getEnv("NOTIFY_SQS_QUEUE_URL", ""),
			SQSRegion:          getEnv("NOTIFY_SQS_REGION", "ap-southeast-1"),
			BreakerMaxFailures: uint32(getEnvInt("NOTIFY_BREAKER_MAX_FAILURES", 5)),
			BreakerOpenTimeout: getEnvDuration("NOTIFY_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			SendTimeout:        getEnvDuration("NOTIFY_SEND_TIMEOUT", 5*time.Second),
		},
		Risk: RiskConfig{
			ModerateThreshold: getEnvFloat("RISK_MODERATE_THRESHOLD", 40),
			HighThreshold:     getEnvFloat("RISK_HIGH_THRESHOLD", 70),
		},
		Sync: SyncConfig{
			DefaultLimit: getEnvInt("SYNC_DEFAULT_LIMIT", 100),
			MaxLimit:     getEnvInt("SYNC_MAX_LIMIT", 500),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces production security requirements.
func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.IsProduction() {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}

	if cfg.Database.SSLMode == "disable" && cfg.App.IsProduction() {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	for channel, driver := range map[string]string{
		"email": cfg.Notification.EmailDriver,
		"sms":   cfg.Notification.SMSDriver,
		"push":  cfg.Notification.PushDriver,
	} {
		if !contains(validDrivers[channel], driver) {
			errs = append(errs, fmt.Sprintf("NOTIFY_%s_DRIVER=%q is not one of %v", strings.ToUpper(channel), driver, validDrivers[channel]))
		}
	}

	if cfg.Notification.SMSDriver == "sqs" || cfg.Notification.EmailDriver == "sqs" {
		if cfg.Notification.SQSQueueURL == "" {
			errs = append(errs, "NOTIFY_SQS_QUEUE_URL is required when an sqs driver is selected")
		}
	}

	if cfg.Risk.ModerateThreshold <= 0 || cfg.Risk.HighThreshold > 100 || cfg.Risk.ModerateThreshold >= cfg.Risk.HighThreshold {
		errs = append(errs, "risk thresholds must satisfy 0 < RISK_MODERATE_THRESHOLD < RISK_HIGH_THRESHOLD <= 100")
	}

	if cfg.Sync.DefaultLimit <= 0 || cfg.Sync.DefaultLimit > cfg.Sync.MaxLimit {
		errs = append(errs, "SYNC_DEFAULT_LIMIT must be positive and not exceed SYNC_MAX_LIMIT")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

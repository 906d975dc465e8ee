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
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Lockout  LockoutConfig
	Mail     MailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type RedisConfig struct {
	URL string
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	AppKey            string
	AccessTokenExpiry time.Duration
	OTPTTL            time.Duration
	ResendCooldown    time.Duration
	BcryptCost        int
	TimingDelayBase   time.Duration
	TimingDelayRandom time.Duration
	CleanupInterval   time.Duration
}

// LockoutConfig drives the fail-counter / suspension policy
type LockoutConfig struct {
	MaxLoginAttempts int
	MaxOTPAttempts   int
	SuspendDuration  time.Duration
	FailCounterTTL   time.Duration
}

type MailConfig struct {
	Driver       string // log, ses or smtp
	From         string
	AWSRegion    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	appKey := getEnv("APP_KEY", "")
	if appKey == "" {
		return nil, fmt.Errorf("APP_KEY is required")
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "kosanku"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "localhost:6379"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AppKey:            appKey,
			AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
			OTPTTL:            getEnvAsDuration("OTP_TTL", 15*time.Minute),
			ResendCooldown:    getEnvAsDuration("OTP_RESEND_COOLDOWN", 60*time.Second),
			BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
			TimingDelayBase:   time.Duration(getEnvAsInt("TIMING_DELAY_BASE_MS", 0)) * time.Millisecond,
			TimingDelayRandom: time.Duration(getEnvAsInt("TIMING_DELAY_RANDOM_MS", 0)) * time.Millisecond,
			CleanupInterval:   getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
		Lockout: LockoutConfig{
			MaxLoginAttempts: getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			MaxOTPAttempts:   getEnvAsInt("MAX_OTP_ATTEMPTS", 5),
			SuspendDuration:  time.Duration(getEnvAsInt("SUSPEND_MINUTES", 10)) * time.Minute,
			FailCounterTTL:   getEnvAsDuration("FAIL_COUNTER_TTL", 15*time.Minute),
		},
		Mail: MailConfig{
			Driver:       strings.ToLower(getEnv("MAIL_DRIVER", "log")),
			From:         getEnv("MAIL_FROM", "no-reply@kosanku.local"),
			AWSRegion:    getEnv("AWS_REGION", "ap-southeast-1"),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 1025),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSecret("JWT_SECRET", jwtSecret, env); err != nil {
		return nil, err
	}
	if err := validateSecret("APP_KEY", appKey, env); err != nil {
		return nil, err
	}

	if cfg.Lockout.MaxLoginAttempts < 1 || cfg.Lockout.MaxOTPAttempts < 1 {
		return nil, fmt.Errorf("MAX_LOGIN_ATTEMPTS and MAX_OTP_ATTEMPTS must be at least 1")
	}
	if cfg.Lockout.SuspendDuration <= 0 {
		return nil, fmt.Errorf("SUSPEND_MINUTES must be positive")
	}

	switch cfg.Mail.Driver {
	case "log", "ses", "smtp":
	default:
		return nil, fmt.Errorf("MAIL_DRIVER must be one of log, ses, smtp (got %q)", cfg.Mail.Driver)
	}

	return cfg, nil
}

// validateSecret enforces minimum strength for signing and hashing keys
func validateSecret(name, secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		origins := splitList(getEnv("ALLOWED_ORIGINS", ""))
		if origins == nil {
			return []string{}
		}
		return origins
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	Port        string

	FrontendURL string

	Coinbase CoinbaseConfig

	StoreBackend string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string

	Email EmailConfig

	OTLPEndpoint string
}

// CoinbaseConfig carries the payment processor credentials.
type CoinbaseConfig struct {
	BaseURL       string
	APIKey        string
	APIVersion    string
	WebhookSecret string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

const (
	StoreBackendDatabase = "database"
	StoreBackendMemory   = "memory"
)

// Load loads configuration from environment variables and .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "givecoin"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		Port:        getenv("PORT", "5000"),
		FrontendURL: strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:8080"), "/"),
		Coinbase: CoinbaseConfig{
			BaseURL:       strings.TrimRight(getenv("COINBASE_BASE_URL", "https://api.commerce.coinbase.com"), "/"),
			APIKey:        strings.TrimSpace(getenv("COINBASE_API_KEY", "")),
			APIVersion:    getenv("COINBASE_API_VERSION", "2018-03-22"),
			WebhookSecret: strings.TrimSpace(getenv("COINBASE_WEBHOOK_SECRET", "")),
		},
		StoreBackend:      strings.ToLower(getenv("STORE_BACKEND", StoreBackendDatabase)),
		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "givecoin"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "donations@localhost"),
		},
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that must not reach production.
// An empty webhook secret disables signature verification, so it is only
// tolerated in development-like environments.
func (c Config) Validate() error {
	if c.Coinbase.WebhookSecret == "" && !c.IsDevelopment() {
		return errors.New("COINBASE_WEBHOOK_SECRET is required outside development environments")
	}
	switch c.StoreBackend {
	case StoreBackendDatabase, StoreBackendMemory:
	default:
		return errors.New("STORE_BACKEND must be \"database\" or \"memory\"")
	}
	return nil
}

// IsDevelopment reports whether the environment is development-like.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

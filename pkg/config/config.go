package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: empty URL disables persistence)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Yahoo YahooConfig

	// Forecast model
	Forecast ForecastConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// YahooConfig holds Yahoo Finance configuration
type YahooConfig struct {
	BaseURL     string
	HistoryURL  string
	RequestsSec float64       // client-side throttle
	Proxy       string
	Timeout     time.Duration // per-request timeout
	UserAgent   string
	MaxRetries  int // 0 = no retry
}

// ForecastConfig holds forecast service configuration
type ForecastConfig struct {
	Symbol        string        // default index symbol
	ModelPath     string        // YAML model config (empty = built-in defaults)
	CacheTTL      time.Duration // report cache TTL
	ScheduleCron  string        // scheduled refresh (with seconds)
	HistoryStart  string        // first date requested from the provider (YYYY-MM-DD)
	Parallelism   int           // concurrent walk-forward windows
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "indexcast"),
			User:            getEnv("DB_USER", "indexcast"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// External APIs
		Yahoo: YahooConfig{
			BaseURL:     getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			HistoryURL:  getEnv("YAHOO_HISTORY_URL", "https://finance.yahoo.com"),
			RequestsSec: getEnvAsFloat("YAHOO_REQUESTS_PER_SEC", 2),
			Proxy:       getEnv("HTTPS_PROXY", ""),
			Timeout:     getEnvAsDuration("YAHOO_TIMEOUT", "30s"),
			UserAgent:   getEnv("YAHOO_USER_AGENT", "Mozilla/5.0 (compatible; indexcast/1.0)"),
			MaxRetries:  getEnvAsInt("YAHOO_MAX_RETRIES", 3),
		},

		Forecast: ForecastConfig{
			Symbol:       getEnv("FORECAST_SYMBOL", "^GSPC"),
			ModelPath:    getEnv("FORECAST_MODEL_CONFIG", ""),
			CacheTTL:     getEnvAsDuration("FORECAST_CACHE_TTL", "6h"),
			ScheduleCron: getEnv("FORECAST_CRON", "CRON_TZ=America/New_York 0 30 16 * * 1-5"),
			HistoryStart: getEnv("FORECAST_HISTORY_START", "1927-12-30"),
			Parallelism:  getEnvAsInt("FORECAST_PARALLELISM", 4),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Forecast.Symbol == "" {
		return fmt.Errorf("FORECAST_SYMBOL is required")
	}

	if _, err := time.Parse("2006-01-02", c.Forecast.HistoryStart); err != nil {
		return fmt.Errorf("FORECAST_HISTORY_START must be YYYY-MM-DD: %w", err)
	}

	if c.Forecast.Parallelism < 1 {
		return fmt.Errorf("FORECAST_PARALLELISM must be >= 1")
	}

	if c.Yahoo.RequestsSec <= 0 {
		return fmt.Errorf("YAHOO_REQUESTS_PER_SEC must be > 0")
	}

	if c.Yahoo.MaxRetries < 0 {
		return fmt.Errorf("YAHOO_MAX_RETRIES must be >= 0")
	}

	if c.Yahoo.Timeout <= 0 {
		return fmt.Errorf("YAHOO_TIMEOUT must be > 0")
	}

	return nil
}

// HistoryStartDate returns the parsed provider start date
func (c *Config) HistoryStartDate() time.Time {
	t, _ := time.Parse("2006-01-02", c.Forecast.HistoryStart)
	return t
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential environment variable names
const (
	EnvFREDAPIKey   = "FRED_API_KEY"
	EnvNasdaqAPIKey = "NASDAQ_DATA_LINK_API_KEY"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// External APIs
	FRED   FREDConfig
	SGS    SGSConfig
	PTAX   PTAXConfig
	Nasdaq NasdaqConfig

	// HTTP
	HTTP HTTPConfig

	// Database (optional, read-only source of target prices)
	Database DatabaseConfig

	// Redis (optional response cache)
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// FREDConfig holds FRED (St. Louis Fed) API configuration
type FREDConfig struct {
	APIKey  string
	BaseURL string
}

// SGSConfig holds BCB SGS time-series API configuration
type SGSConfig struct {
	BaseURL string
}

// PTAXConfig holds BCB Olinda PTAX API configuration
type PTAXConfig struct {
	BaseURL string
}

// NasdaqConfig holds Nasdaq Data Link (datatables) configuration
type NasdaqConfig struct {
	APIKey  string
	BaseURL string
}

// HTTPConfig holds outbound HTTP settings shared by all fetchers
type HTTPConfig struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second per host, 0 = unlimited
	Retries   int     // 0 = a failed request aborts the run
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		FRED: FREDConfig{
			APIKey:  getEnv(EnvFREDAPIKey, ""),
			BaseURL: getEnv("FRED_BASE_URL", "https://api.stlouisfed.org"),
		},
		SGS: SGSConfig{
			BaseURL: getEnv("SGS_BASE_URL", "https://api.bcb.gov.br"),
		},
		PTAX: PTAXConfig{
			BaseURL: getEnv("PTAX_BASE_URL", "https://olinda.bcb.gov.br"),
		},
		Nasdaq: NasdaqConfig{
			APIKey:  getEnv(EnvNasdaqAPIKey, ""),
			BaseURL: getEnv("NASDAQ_BASE_URL", "https://data.nasdaq.com"),
		},

		HTTP: HTTPConfig{
			Timeout:   getEnvAsDuration("HTTP_TIMEOUT", "30s"),
			RateLimit: getEnvAsFloat("HTTP_RATE_LIMIT", 0),
			Retries:   getEnvAsInt("HTTP_RETRIES", 0),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 4),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 0),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "24h"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks value ranges; credentials are checked per run by RequireCredentials
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT must be >= 0")
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("HTTP_RETRIES must be >= 0")
	}
	return nil
}

// MissingCredentialsError lists every required credential that is not set
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// Enumerated renders the missing names as a numbered console list
func (e *MissingCredentialsError) Enumerated() string {
	var b strings.Builder
	for i, name := range e.Missing {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, name)
	}
	return b.String()
}

// providerCredentials maps provider names to the env var they require
var providerCredentials = map[string]string{
	"fred":   EnvFREDAPIKey,
	"nasdaq": EnvNasdaqAPIKey,
}

// CredentialFor returns the env var a provider needs, or "" if it needs none
func CredentialFor(provider string) string {
	return providerCredentials[provider]
}

// credential returns the loaded value for a credential env var
func (c *Config) credential(name string) string {
	switch name {
	case EnvFREDAPIKey:
		return c.FRED.APIKey
	case EnvNasdaqAPIKey:
		return c.Nasdaq.APIKey
	default:
		return ""
	}
}

// RequireCredentials checks the credentials needed by the given providers.
// Returns *MissingCredentialsError naming exactly the unset variables, in provider order.
func (c *Config) RequireCredentials(providers ...string) error {
	seen := make(map[string]bool)
	var missing []string
	for _, p := range providers {
		name := CredentialFor(p)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if c.credential(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Missing: missing}
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

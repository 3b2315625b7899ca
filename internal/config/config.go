package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	LLM      LLMConfig
	Images   ImagesConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type CatalogConfig struct {
	File        string
	ImagesDir   string
	ImagePrefix string
}

type ScraperConfig struct {
	Workers      int
	SettleTime   time.Duration
	ScrollPasses int
	ScrollStep   time.Duration
	NavRetries   int
	RateLimitMin time.Duration
	RateLimitMax time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	Locale         string
}

type LLMConfig struct {
	Provider     string
	OllamaURL    string
	OllamaModel  string
	GeminiAPIKey string
	GeminiModel  string
	Temperature  float64
	Timeout      time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
}

type ImagesConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	UserAgent   string
	S3Bucket    string
	S3Region    string
}

// DatabaseConfig is optional; an empty Host disables the run journal.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// RedisConfig is optional; an empty Addr disables event publishing.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Catalog: CatalogConfig{
			File:        getEnvOrDefault("CATALOG_FILE", "data.json"),
			ImagesDir:   getEnvOrDefault("IMAGES_DIR", "images"),
			ImagePrefix: getEnvOrDefault("IMAGE_PREFIX", "images"),
		},
		Scraper: ScraperConfig{
			Workers:      getIntOrDefault("SCRAPER_WORKERS", 4),
			SettleTime:   getDurationOrDefault("SCRAPER_SETTLE_TIME", 10*time.Second),
			ScrollPasses: getIntOrDefault("SCRAPER_SCROLL_PASSES", 3),
			ScrollStep:   getDurationOrDefault("SCRAPER_SCROLL_STEP", time.Second),
			NavRetries:   getIntOrDefault("SCRAPER_NAV_RETRIES", 3),
			RateLimitMin: getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 0),
			RateLimitMax: getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 0),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		LLM: LLMConfig{
			Provider:     getEnvOrDefault("LLM_PROVIDER", "ollama"),
			OllamaURL:    getEnvOrDefault("OLLAMA_URL", "http://localhost:11434/api/chat"),
			OllamaModel:  getEnvOrDefault("OLLAMA_MODEL", "llama3.2"),
			GeminiAPIKey: getEnvOrDefault("GEMINI_API_KEY", ""),
			GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			Temperature:  getFloatOrDefault("LLM_TEMPERATURE", 0),
			Timeout:      getDurationOrDefault("LLM_TIMEOUT", 30*time.Second),
			MaxAttempts:  getIntOrDefault("LLM_MAX_ATTEMPTS", 3),
			RetryDelay:   getDurationOrDefault("LLM_RETRY_DELAY", 2*time.Second),
		},
		Images: ImagesConfig{
			Timeout:     getDurationOrDefault("IMAGE_TIMEOUT", 10*time.Second),
			MaxAttempts: getIntOrDefault("IMAGE_MAX_ATTEMPTS", 3),
			RetryDelay:  getDurationOrDefault("IMAGE_RETRY_DELAY", time.Second),
			UserAgent:   getEnvOrDefault("IMAGE_USER_AGENT", defaultUserAgent),
			S3Bucket:    getEnvOrDefault("S3_BUCKET", ""),
			S3Region:    getEnvOrDefault("S3_REGION", "us-east-1"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", ""),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "fidget_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:fidget_catalog"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
			File:   getEnvOrDefault("LOG_FILE", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.Workers < 1 {
		return fmt.Errorf("SCRAPER_WORKERS must be at least 1")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Scraper.NavRetries < 1 {
		return fmt.Errorf("SCRAPER_NAV_RETRIES must be at least 1")
	}

	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("LLM_MAX_ATTEMPTS must be at least 1")
	}

	if c.Images.MaxAttempts < 1 {
		return fmt.Errorf("IMAGE_MAX_ATTEMPTS must be at least 1")
	}

	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.OllamaURL == "" {
			return fmt.Errorf("OLLAMA_URL is required for the ollama provider")
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}

	if c.Catalog.File == "" {
		return fmt.Errorf("CATALOG_FILE must not be empty")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Database   DatabaseConfig
	Inference  InferenceConfig
	Advisor    AdvisorConfig
	MarketData MarketDataConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig holds the PostgreSQL connection string.
type DatabaseConfig struct {
	URL string
}

// InferenceConfig selects the language-model provider and its credentials.
type InferenceConfig struct {
	Provider        string // 'openai' or 'anthropic'
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Model           string
	RequestTimeout  time.Duration
}

// AdvisorConfig tunes the advisory pipeline.
type AdvisorConfig struct {
	MaxToolRounds  int
	CandidateLimit int
}

// MarketDataConfig selects the market-data tool executor.
type MarketDataConfig struct {
	Mode           string // 'simulated' or 'live'
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

const (
	defaultPort        = "8080"
	defaultReadTimeout = 10 * time.Second
	// The blocking advise endpoint holds the response open for the whole
	// pipeline run, so writes need far more headroom than reads.
	defaultWriteTimeout    = 6 * time.Minute
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultProvider         = "openai"
	defaultModel            = "gpt-4o"
	defaultInferenceTimeout = 120 * time.Second

	defaultMaxToolRounds  = 8
	defaultCandidateLimit = 15

	defaultMarketDataMode    = "simulated"
	defaultMarketDataBaseURL = "https://api.coingecko.com/api/v3"
	defaultMarketDataTimeout = 30 * time.Second
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Inference: InferenceConfig{
			Provider:        getEnv("INFERENCE_PROVIDER", defaultProvider),
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:           getEnv("INFERENCE_MODEL", defaultModel),
			RequestTimeout:  defaultInferenceTimeout,
		},
		Advisor: AdvisorConfig{
			MaxToolRounds:  defaultMaxToolRounds,
			CandidateLimit: defaultCandidateLimit,
		},
		MarketData: MarketDataConfig{
			Mode:           getEnv("MARKET_DATA_MODE", defaultMarketDataMode),
			BaseURL:        getEnv("MARKET_DATA_BASE_URL", defaultMarketDataBaseURL),
			APIKey:         os.Getenv("MARKET_DATA_API_KEY"),
			RequestTimeout: defaultMarketDataTimeout,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	switch cfg.Inference.Provider {
	case "openai", "anthropic":
	default:
		return Config{}, fmt.Errorf("invalid INFERENCE_PROVIDER: must be 'openai' or 'anthropic'")
	}

	if v := os.Getenv("INFERENCE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INFERENCE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Inference.RequestTimeout = d
	}

	if v := os.Getenv("ADVISOR_MAX_TOOL_ROUNDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid ADVISOR_MAX_TOOL_ROUNDS: must be a positive integer")
		}
		cfg.Advisor.MaxToolRounds = n
	}

	switch cfg.MarketData.Mode {
	case "simulated", "live":
	default:
		return Config{}, fmt.Errorf("invalid MARKET_DATA_MODE: must be 'simulated' or 'live'")
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisURL    string
	APIKey      string

	LogLevel  string
	LogPretty bool

	AllowedAssets string

	OpenAIAPIKey string
	OpenAIModel  string

	ZScoreMethod      string
	ZScoreWindow      int
	SignalRefreshSecs int
	SignalCacheSecs   int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		APIKey:      strings.TrimSpace(os.Getenv("API_KEY")),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.APIKey == "" {
		log.Println("Warning: API_KEY not set, API authentication disabled")
	}

	cfg.Port = 8080
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			cfg.Port = n
		}
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogPretty = strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_PRETTY")), "true")

	cfg.AllowedAssets = strings.TrimSpace(os.Getenv("ALLOWED_ASSETS"))

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, signal narratives fall back to templates")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.ZScoreMethod = strings.ToLower(strings.TrimSpace(os.Getenv("ZSCORE_METHOD")))
	if cfg.ZScoreMethod == "" {
		cfg.ZScoreMethod = "iqr"
	}

	cfg.ZScoreWindow = 0
	if v := strings.TrimSpace(os.Getenv("ZSCORE_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ZScoreWindow = n
		}
	}

	cfg.SignalRefreshSecs = 3600
	if v := strings.TrimSpace(os.Getenv("SIGNAL_REFRESH_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SignalRefreshSecs = n
		}
	}

	cfg.SignalCacheSecs = 300
	if v := strings.TrimSpace(os.Getenv("SIGNAL_CACHE_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SignalCacheSecs = n
		}
	}

	return cfg
}

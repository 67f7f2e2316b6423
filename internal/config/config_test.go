package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("SIGNAL_REFRESH_SECS", "")
	t.Setenv("ZSCORE_METHOD", "")

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.SignalRefreshSecs != 3600 {
		t.Fatalf("expected default refresh secs 3600, got %d", cfg.SignalRefreshSecs)
	}
	if cfg.ZScoreMethod != "iqr" {
		t.Fatalf("expected default zscore method iqr, got %s", cfg.ZScoreMethod)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.LogLevel)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("API_KEY", "sekrit")
	t.Setenv("PORT", "9090")
	t.Setenv("ZSCORE_METHOD", "MAD")
	t.Setenv("SIGNAL_REFRESH_SECS", "120")
	t.Setenv("ALLOWED_ASSETS", "btc,eth")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" || cfg.APIKey != "sekrit" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.ZScoreMethod != "mad" {
		t.Fatalf("expected lowered zscore method, got %s", cfg.ZScoreMethod)
	}
	if cfg.SignalRefreshSecs != 120 {
		t.Fatalf("expected refresh secs 120, got %d", cfg.SignalRefreshSecs)
	}
	if cfg.AllowedAssets != "btc,eth" {
		t.Fatalf("expected allowed assets passthrough, got %s", cfg.AllowedAssets)
	}

	t.Setenv("SIGNAL_REFRESH_SECS", "bad")
	cfg = Load()
	if cfg.SignalRefreshSecs != 3600 {
		t.Fatalf("invalid refresh secs should fall back to default, got %d", cfg.SignalRefreshSecs)
	}
}

package config

import (
	"strings"
	"testing"
	"time"

	"log/slog"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/modelarena?sslmode=disable")
	t.Setenv("ENCRYPTION_KEY", testEncryptionKey)

	optional := []string{
		"PORT",
		"SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"DATABASE_MAX_CONNECTIONS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"ADMIN_JWT_SECRET",
		"ADMIN_PASSWORD",
		"AUTH_TOKEN_DURATION_HOURS",
	}
	for _, key := range optional {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout %v, got %v", defaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("expected zero write timeout for streaming responses, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Auth.TokenDuration != defaultTokenDuration {
		t.Errorf("expected default token duration %v, got %v", defaultTokenDuration, cfg.Auth.TokenDuration)
	}
	if len(cfg.Crypto.Key) != 32 {
		t.Errorf("expected 32-byte encryption key, got %d bytes", len(cfg.Crypto.Key))
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoadRequiresEncryptionKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENCRYPTION_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when ENCRYPTION_KEY is unset")
	}
}

func TestLoadRejectsBadEncryptionKey(t *testing.T) {
	cases := []string{
		"tooshort",
		strings.Repeat("0", 63),
		strings.Repeat("z", 64),
	}

	for _, key := range cases {
		setRequiredEnv(t)
		t.Setenv("ENCRYPTION_KEY", key)

		if _, err := Load(); err == nil {
			t.Errorf("expected error for ENCRYPTION_KEY=%q", key)
		}
	}
}

func TestLoadWithOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "30")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS", "15")
	t.Setenv("DATABASE_MAX_CONNECTIONS", "50")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("AUTH_TOKEN_DURATION_HOURS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout 30s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected shutdown timeout 15s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.MaxConnections != 50 {
		t.Errorf("expected 50 max connections, got %d", cfg.Database.MaxConnections)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level debug, got %v", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format text, got %q", cfg.Logging.Format)
	}
	if cfg.Auth.TokenDuration != 8*time.Hour {
		t.Errorf("expected token duration 8h, got %v", cfg.Auth.TokenDuration)
	}
}

func TestLoadPrefersCloudRunPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8888")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "8888" {
		t.Errorf("expected PORT to win, got %q", cfg.Server.Port)
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_READ_TIMEOUT_SECONDS":     "-1",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS": "abc",
		"DATABASE_MAX_CONNECTIONS":        "0",
		"LOG_LEVEL":                       "verbose",
		"LOG_FORMAT":                      "xml",
		"AUTH_TOKEN_DURATION_HOURS":       "-2",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func TestParseSecondsRejectsInvalidInput(t *testing.T) {
	cases := []string{"-1", "abc", "3.5"}

	for _, input := range cases {
		if _, err := parseSeconds(input); err == nil {
			t.Fatalf("expected error for input %q", input)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEnvFile(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	return path
}

var allKeys = []string{
	"BROVADO_ENVIRONMENT", "BROVADO_API_URL", "BROVADO_SOCKET_URL", "BROVADO_RPC_URL",
	"BROVADO_DATABASE_PATH", "BROVADO_LOG_PATH", "BROVADO_PING_INTERVAL",
	"BROVADO_HTTP_TIMEOUT", "BROVADO_BANNER_TTL",
}

func TestLoadReadsExplicitEnvFile(t *testing.T) {
	for _, key := range allKeys {
		_ = os.Unsetenv(key)
	}

	envPath := writeEnvFile(t, t.TempDir(), `
BROVADO_ENVIRONMENT=development
BROVADO_API_URL=http://localhost:8081
BROVADO_SOCKET_URL=ws://localhost:8081
BROVADO_RPC_URL=http://localhost:8545
BROVADO_DATABASE_PATH=/var/lib/brovado/brovado.db
BROVADO_PING_INTERVAL=5s
`)
	t.Setenv("BROVADO_ENV_FILE", envPath)

	cfg := Load()

	if cfg.Environment != "development" {
		t.Fatalf("Environment = %q, want %q", cfg.Environment, "development")
	}
	if cfg.APIBaseURL != "http://localhost:8081" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.SocketURL != "ws://localhost:8081" {
		t.Fatalf("SocketURL = %q", cfg.SocketURL)
	}
	if cfg.RPCURL != "http://localhost:8545" {
		t.Fatalf("RPCURL = %q", cfg.RPCURL)
	}
	if cfg.DatabasePath != "/var/lib/brovado/brovado.db" {
		t.Fatalf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.PingInterval != 5*time.Second {
		t.Fatalf("PingInterval = %v, want 5s", cfg.PingInterval)
	}
}

func TestLoadEnvVarOverridesEnvFile(t *testing.T) {
	for _, key := range allKeys {
		_ = os.Unsetenv(key)
	}

	envPath := writeEnvFile(t, t.TempDir(), `
BROVADO_API_URL=http://file.example
BROVADO_DATABASE_PATH=/file.db
`)
	t.Setenv("BROVADO_ENV_FILE", envPath)
	t.Setenv("BROVADO_DATABASE_PATH", "/override.db")

	cfg := Load()

	if cfg.DatabasePath != "/override.db" {
		t.Fatalf("DatabasePath = %q, want %q", cfg.DatabasePath, "/override.db")
	}
	if cfg.APIBaseURL != "http://file.example" {
		t.Fatalf("APIBaseURL = %q, want file value", cfg.APIBaseURL)
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	for _, key := range append([]string{"BROVADO_ENV_FILE"}, allKeys...) {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.APIBaseURL != "https://prod-api.kosetto.com" {
		t.Fatalf("APIBaseURL = %q, want default", cfg.APIBaseURL)
	}
	if cfg.DatabasePath != "./data/brovado.db" {
		t.Fatalf("DatabasePath = %q, want default", cfg.DatabasePath)
	}
	if cfg.PingInterval != 3*time.Second {
		t.Fatalf("PingInterval = %v, want 3s", cfg.PingInterval)
	}
	if cfg.BannerTTL != 4*time.Second {
		t.Fatalf("BannerTTL = %v, want 4s", cfg.BannerTTL)
	}
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	for _, key := range allKeys {
		_ = os.Unsetenv(key)
	}
	_ = os.Unsetenv("BROVADO_ENV_FILE")
	t.Setenv("BROVADO_PING_INTERVAL", "not-a-duration")

	cfg := Load()
	if cfg.PingInterval != 3*time.Second {
		t.Fatalf("PingInterval = %v, want default 3s", cfg.PingInterval)
	}
}

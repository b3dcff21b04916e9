package config

import (
	"bufio"
	"os"
	"strings"
	"time"
)

type Config struct {
	Environment  string
	APIBaseURL   string
	SocketURL    string
	RPCURL       string
	DatabasePath string
	LogPath      string
	PingInterval time.Duration
	HTTPTimeout  time.Duration
	BannerTTL    time.Duration
}

func Load() *Config {
	fileEnv := loadEnvFile(os.Getenv("BROVADO_ENV_FILE"))

	get := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		if value, exists := fileEnv[key]; exists {
			return value
		}
		return defaultValue
	}

	return &Config{
		Environment:  get("BROVADO_ENVIRONMENT", "production"),
		APIBaseURL:   get("BROVADO_API_URL", "https://prod-api.kosetto.com"),
		SocketURL:    get("BROVADO_SOCKET_URL", "wss://prod-api.kosetto.com"),
		RPCURL:       get("BROVADO_RPC_URL", "https://mainnet.base.org"),
		DatabasePath: get("BROVADO_DATABASE_PATH", "./data/brovado.db"),
		LogPath:      get("BROVADO_LOG_PATH", "./data/brovado.log"),
		PingInterval: parseDuration(get("BROVADO_PING_INTERVAL", "3s"), 3*time.Second),
		HTTPTimeout:  parseDuration(get("BROVADO_HTTP_TIMEOUT", "30s"), 30*time.Second),
		BannerTTL:    parseDuration(get("BROVADO_BANNER_TTL", "4s"), 4*time.Second),
	}
}

// loadEnvFile reads KEY=VALUE lines from an optional env file. Environment
// variables always win over file entries.
func loadEnvFile(path string) map[string]string {
	entries := map[string]string{}
	if path == "" {
		return entries
	}

	f, err := os.Open(path)
	if err != nil {
		return entries
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		entries[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return entries
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

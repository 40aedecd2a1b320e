package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Backend service (pin tracking + alerts)
	Backend BackendConfig

	// Market-directory service (slug resolution)
	Directory DirectoryConfig

	// Marketplace URL handling
	Marketplace MarketplaceConfig

	// Synthetic/offline mode
	Synthetic SyntheticConfig

	// Client cache TTLs and refresh intervals
	Cache CacheConfig

	// Local API server for the dashboard and popup
	APIServer APIServerConfig

	// Shell-state persistence
	Storage StorageConfig
}

// BackendConfig holds the backing service connection settings.
type BackendConfig struct {
	BaseURL string
	UserID  string // single-user client; the backend keys collections by user
	Timeout time.Duration
}

// DirectoryConfig holds the slug-resolution collaborator settings.
type DirectoryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// MarketplaceConfig controls which marketplace URLs are accepted.
type MarketplaceConfig struct {
	Host string
}

// SyntheticConfig controls the offline data generator.
type SyntheticConfig struct {
	Enabled bool  // run entirely against synthetic data
	Seed    int64 // rng seed for reproducible synthesized histories
}

// CacheConfig holds cache TTLs and background refresh intervals.
type CacheConfig struct {
	PinnedTTL     time.Duration
	AlertsTTL     time.Duration
	SnapshotTTL   time.Duration
	PinnedRefresh time.Duration
	AlertsRefresh time.Duration
}

// APIServerConfig holds the local HTTP server settings.
type APIServerConfig struct {
	Port           int
	AllowedOrigins []string
	PushInterval   time.Duration // websocket summary push cadence
}

// StorageConfig holds shell-state persistence settings.
type StorageConfig struct {
	DBPath string // empty = default under the user temp dir
}

// Load builds config from environment variables with defaults.
func Load() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: envString("BACKEND_BASE_URL", "http://localhost:8000"),
			UserID:  envString("BACKEND_USER_ID", "1"),
			Timeout: envDuration("BACKEND_TIMEOUT", 30*time.Second),
		},

		Directory: DirectoryConfig{
			BaseURL: envString("DIRECTORY_BASE_URL", "https://gamma-api.polymarket.com"),
			Timeout: envDuration("DIRECTORY_TIMEOUT", 15*time.Second),
		},

		Marketplace: MarketplaceConfig{
			Host: envString("MARKETPLACE_HOST", "polymarket.com"),
		},

		Synthetic: SyntheticConfig{
			Enabled: envBoolDefault("USE_SYNTHETIC_DATA", false),
			Seed:    envInt64("SYNTHETIC_SEED", 1),
		},

		Cache: CacheConfig{
			PinnedTTL:     envDuration("CACHE_PINNED_TTL", 60*time.Second),
			AlertsTTL:     envDuration("CACHE_ALERTS_TTL", 45*time.Second),
			SnapshotTTL:   envDuration("CACHE_SNAPSHOT_TTL", 120*time.Second),
			PinnedRefresh: envDuration("REFRESH_PINNED_INTERVAL", 60*time.Second),
			AlertsRefresh: envDuration("REFRESH_ALERTS_INTERVAL", 45*time.Second),
		},

		APIServer: APIServerConfig{
			Port:           envInt("API_SERVER_PORT", 8090),
			AllowedOrigins: envStringSliceDefault("API_ALLOWED_ORIGINS", []string{"*"}),
			PushInterval:   envDuration("API_PUSH_INTERVAL", 5*time.Second),
		},

		Storage: StorageConfig{
			DBPath: envString("SHELL_DB_PATH", ""),
		},
	}
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envInt64(key string, defaultVal int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}

func envStringSliceDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

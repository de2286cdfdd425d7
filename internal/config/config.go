package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/forex/internal/domain"
)

// Persistence backends for the remote transaction store.
const (
	BackendWebApp = "webapp"
	BackendSheets = "sheets"
	BackendNone   = "none"
)

// DefaultRateFeedURL is the Bank of Taiwan daily rate board.
const DefaultRateFeedURL = "https://rate.bot.com.tw/xrt/flcsv/0/day"

// DefaultRateSources are the proxy templates tried in order; {url} is
// replaced with the escaped feed URL.
var DefaultRateSources = []string{
	"https://corsproxy.io/?{url}",
	"https://api.allorigins.win/get?url={url}",
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PersistenceEndpoint   string
	AuthEndpoint          string
	Currencies            domain.Catalog
	StoreKey              string
	StoreBackend          string
	SheetsSpreadsheetID   string
	SheetsCredentialsJSON string
	DatabaseURL           string
	RateFeedURL           string
	RateSources           []string
	RateCacheTTL          time.Duration
	RateStaleThreshold    time.Duration
	RateWorkerInterval    time.Duration
	HTTPTimeout           time.Duration
	HTTPRetryMax          int
	HTTPRetryBaseDelay    time.Duration
	HTTPPort              string
	SessionTTL            time.Duration
	APIKey                string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	endpoint := envOrDefaultWarn("PERSISTENCE_ENDPOINT", "")
	return Config{
		PersistenceEndpoint:   endpoint,
		AuthEndpoint:          envOrDefault("AUTH_ENDPOINT", endpoint),
		Currencies:            envOrDefaultCatalog("CURRENCIES"),
		StoreKey:              envOrDefault("STORE_KEY", "forex_transactions"),
		StoreBackend:          envOrDefaultChoice("STORE_BACKEND", BackendWebApp, BackendWebApp, BackendSheets, BackendNone),
		SheetsSpreadsheetID:   envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON: envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		RateFeedURL:           envOrDefault("RATE_FEED_URL", DefaultRateFeedURL),
		RateSources:           envOrDefaultList("RATE_SOURCES", DefaultRateSources),
		RateCacheTTL:          envOrDefaultDuration("RATE_CACHE_TTL", 5*time.Minute),
		RateStaleThreshold:    envOrDefaultDuration("RATE_STALE_THRESHOLD", 24*time.Hour),
		RateWorkerInterval:    envOrDefaultDuration("RATE_WORKER_INTERVAL", 1*time.Hour),
		HTTPTimeout:           envOrDefaultDuration("HTTP_TIMEOUT", 15*time.Second),
		HTTPRetryMax:          envOrDefaultMinInt("HTTP_RETRY_MAX", 3, 0),
		HTTPRetryBaseDelay:    envOrDefaultDuration("HTTP_RETRY_BASE_DELAY", 1*time.Second),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		SessionTTL:            envOrDefaultDuration("SESSION_TTL", 12*time.Hour),
		APIKey:                envOrDefault("API_KEY", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultMinInt(key string, defaultVal, minVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minVal {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "min", minVal, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

// envOrDefaultDuration also rejects zero and negative durations.
func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultChoice(key, defaultVal string, allowed ...string) string {
	v := strings.ToLower(envOrDefault(key, defaultVal))
	if !lo.Contains(allowed, v) {
		slog.Warn("invalid env var choice, using default", "key", key, "value", v, "allowed", allowed, "default", defaultVal)
		return defaultVal
	}
	return v
}

// envOrDefaultList splits a comma-separated value, dropping blanks.
func envOrDefaultList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), defaultVal...)
	}
	items := lo.Compact(lo.Map(strings.Split(v, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	if len(items) == 0 {
		slog.Warn("empty list env var, using default", "key", key)
		return append([]string(nil), defaultVal...)
	}
	return items
}

func envOrDefaultCatalog(key string) domain.Catalog {
	codes := envOrDefaultList(key, nil)
	if len(codes) == 0 {
		return domain.DefaultCatalog()
	}
	return domain.CatalogFromCodes(codes)
}

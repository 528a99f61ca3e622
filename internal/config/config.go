package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string
	AliasPath string

	MarketAPIBaseURL  string
	MarketPlatform    string
	MarketRateLimitRPS int
	MarketTimeoutMs   int
	CatalogMaxAgeHrs  int

	PriceWorkers  int
	PriceRetryMax int

	WatchDir         string
	WatchIntervalSec int
	WatchAutoExport  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		AliasPath: getEnv("ALIAS_PATH", filepath.Join(cwd, "aliases.yaml")),

		MarketAPIBaseURL:   getEnv("MARKET_API_BASE_URL", "https://api.warframe.market/v1"),
		MarketPlatform:     getEnv("MARKET_PLATFORM", "pc"),
		MarketRateLimitRPS: getEnvInt("MARKET_RATE_LIMIT_RPS", 3),
		MarketTimeoutMs:    getEnvInt("MARKET_TIMEOUT_MS", 15000),
		CatalogMaxAgeHrs:   getEnvInt("CATALOG_MAX_AGE_HOURS", 24),

		PriceWorkers:  getEnvInt("PRICE_WORKERS", 4),
		PriceRetryMax: getEnvInt("PRICE_RETRY_MAX", 3),

		WatchDir:         getEnv("WATCH_DIR", filepath.Join(cwd, "incoming")),
		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 30),
		WatchAutoExport:  getEnvBool("WATCH_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

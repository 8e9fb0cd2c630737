package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	CatalogPath    string
	DatabaseURL    string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PingTimeout    time.Duration
	TimeScale      float64
	LogLevel       string
	LogDev         bool
	OriginPatterns []string

	// DotEnvLoaded is false when no .env file was found.
	DotEnvLoaded bool
}

// Load reads COOK_* variables, after merging a .env file if one exists.
func Load() (Config, error) {
	return loadWithDotEnv(".env")
}

func loadWithDotEnv(path string) (Config, error) {
	loaded := true
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
		loaded = false
	}

	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.DotEnvLoaded = loaded
	return cfg, nil
}

func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        getEnv("COOK_ADDR", ":8080"),
		CatalogPath: getEnv("COOK_CATALOG_PATH", "recipes.yaml"),
		DatabaseURL: getEnv("COOK_DATABASE_URL", ""),
		LogLevel:    getEnv("COOK_LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PingInterval, err = getEnvAsDuration("COOK_PING_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PingTimeout, err = getEnvAsDuration("COOK_PING_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.WriteTimeout, err = getEnvAsDuration("COOK_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TimeScale, err = getEnvAsFloat("COOK_TIME_SCALE", 1); err != nil {
		return Config{}, err
	}
	if cfg.TimeScale <= 0 {
		return Config{}, fmt.Errorf("COOK_TIME_SCALE must be positive, got %v", cfg.TimeScale)
	}
	if cfg.LogDev, err = getEnvAsBool("COOK_LOG_DEV", false); err != nil {
		return Config{}, err
	}
	if v := getEnv("COOK_ORIGIN_PATTERNS", ""); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.OriginPatterns = append(cfg.OriginPatterns, p)
			}
		}
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDataDir     = "data"
	defaultPort        = 8080
	defaultDefaultDays = 90
)

// Config holds environment-driven settings for the coalboard service.
type Config struct {
	DataDir      string
	WeatherDir   string
	ScheduleFile string
	RegistryFile string
	Port         int
	BearerToken  string
	DefaultDays  int
	LogLevel     string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		DataDir:     defaultDataDir,
		Port:        defaultPort,
		DefaultDays: defaultDefaultDays,
	}

	if dir := strings.TrimSpace(os.Getenv("COALBOARD_DATA_DIR")); dir != "" {
		cfg.DataDir = dir
	}

	cfg.WeatherDir = filepath.Join(cfg.DataDir, "weather_data")
	if dir := strings.TrimSpace(os.Getenv("COALBOARD_WEATHER_DIR")); dir != "" {
		cfg.WeatherDir = dir
	}

	cfg.ScheduleFile = "schedule.json"
	if path := strings.TrimSpace(os.Getenv("COALBOARD_SCHEDULE_FILE")); path != "" {
		cfg.ScheduleFile = path
	}

	cfg.RegistryFile = "categories.yaml"
	if path := strings.TrimSpace(os.Getenv("COALBOARD_REGISTRY_FILE")); path != "" {
		cfg.RegistryFile = path
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	}

	if daysStr := os.Getenv("API_DEFAULT_DAYS"); daysStr != "" {
		if days, err := strconv.Atoi(daysStr); err == nil && days > 0 {
			cfg.DefaultDays = days
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_DAYS: %s", daysStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")
	cfg.LogLevel = os.Getenv("COALBOARD_LOG_LEVEL")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

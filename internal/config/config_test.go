package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"COALBOARD_DATA_DIR", "COALBOARD_WEATHER_DIR", "COALBOARD_SCHEDULE_FILE",
		"COALBOARD_REGISTRY_FILE", "PORT", "API_DEFAULT_DAYS", "API_BEARER_TOKEN",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "weather_data"), cfg.WeatherDir)
	assert.Equal(t, "schedule.json", cfg.ScheduleFile)
	assert.Equal(t, "categories.yaml", cfg.RegistryFile)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 90, cfg.DefaultDays)
	assert.Equal(t, ":8080", cfg.ListenAddr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COALBOARD_DATA_DIR", "/srv/coal")
	t.Setenv("PORT", "9000")
	t.Setenv("API_DEFAULT_DAYS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/coal", cfg.DataDir)
	assert.Equal(t, filepath.Join("/srv/coal", "weather_data"), cfg.WeatherDir)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 30, cfg.DefaultDays)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "abc")

	_, err := Load()
	assert.Error(t, err)
}

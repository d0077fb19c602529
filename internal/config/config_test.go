package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "prospector.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.company-information.service.gov.uk", cfg.CompaniesHouse.BaseURL)
	assert.Equal(t, "https://www.planit.org.uk", cfg.PlanIt.BaseURL)
	assert.Equal(t, 100, cfg.PlanIt.PageSize)
	assert.Equal(t, "https://planningdata.london.gov.uk/api-guest/applications", cfg.Datahub.BaseURL)
	assert.Equal(t, "https://use-land-property-data.service.gov.uk/api", cfg.LandRegistry.BaseURL)
	assert.Equal(t, 7, cfg.Refresh.DaysOld)
	assert.Equal(t, 50, cfg.Refresh.Limit)
	assert.Equal(t, 100, cfg.Refresh.DispatchDelayMS)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
  format: console
server:
  port: 9090
refresh:
  days_old: 14
  limit: 25
datahub:
  postcode_areas: ["E", "SW"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 14, cfg.Refresh.DaysOld)
	assert.Equal(t, 25, cfg.Refresh.Limit)
	assert.Equal(t, []string{"E", "SW"}, cfg.Datahub.PostcodeAreas)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("PROSPECTOR_STORE_DRIVER", "sqlite")
	t.Setenv("PROSPECTOR_COMPANIES_HOUSE_KEY", "env-key")
	t.Setenv("PROSPECTOR_REFRESH_LIMIT", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "env-key", cfg.CompaniesHouse.Key)
	assert.Equal(t, 10, cfg.Refresh.Limit)
}

func TestInitLogger(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())

	err = InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}

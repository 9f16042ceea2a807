package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
root_folder: /data/fires
output_folder: /data/outputs
`))
	require.NoError(t, err)

	assert.Equal(t, "/data/fires", cfg.RootFolder)
	assert.Equal(t, 2, cfg.ConcurrencyLimit)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 600, cfg.TimeoutSeconds)
	assert.Equal(t, 10.0, cfg.Optimization.LightMB)
	assert.Equal(t, 100.0, cfg.Optimization.AggressiveMB)
	assert.Equal(t, 30.0, cfg.Raster.ResolutionMeters)
	assert.Equal(t, []string{"16mmh", "20mmh", "24mmh", "40mmh"}, cfg.Raster.Scenarios)
	assert.Equal(t, "/data/outputs/wildfire_jobs.db", cfg.StorePath)
}

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
root_folder: /data/fires
output_folder: /data/outputs
severity_folder: /data/mtbs
years: [2020, 2021]
concurrency_limit: 4
skip_existing: true
max_attempts: 5
timeout_seconds: 900
optimization:
  light_mb: 20
  moderate_mb: 80
  aggressive_mb: 150
  peak_multiplier: 3.5
raster:
  resolution_meters: 10
  scenarios: ["16mmh"]
upload:
  enabled: true
  bucket: wildfire-outputs
  region: us-west-2
`))
	require.NoError(t, err)

	assert.Equal(t, []int{2020, 2021}, cfg.Years)
	assert.Equal(t, 4, cfg.ConcurrencyLimit)
	assert.True(t, cfg.SkipExisting)
	assert.Equal(t, 20.0, cfg.Optimization.LightMB)
	assert.Equal(t, 10.0, cfg.Raster.ResolutionMeters)
	assert.True(t, cfg.Upload.Enabled)
	assert.Equal(t, "wildfire-outputs", cfg.Upload.Bucket)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
root_folder: /data/fires
output_folder: /data/outputs
concurency_limit: 4
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestParse_RejectsMissingRequired(t *testing.T) {
	_, err := Parse([]byte(`output_folder: /data/outputs`))
	assert.Error(t, err)
}

func TestParse_RejectsBadTypes(t *testing.T) {
	_, err := Parse([]byte(`
root_folder: /data/fires
output_folder: /data/outputs
concurrency_limit: -2
`))
	assert.Error(t, err)
}

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "salesight.db", cfg.Store.DatabaseURL)
	assert.Equal(t, []int{1, 2, 7}, cfg.Features.Lags)
	assert.Equal(t, []int{3, 7}, cfg.Features.RollingWindows)
	assert.Equal(t, "expanding", cfg.Features.AggregateMode)
	assert.False(t, cfg.Features.Scale)
	assert.Equal(t, "random_forest", cfg.Model.Family)
	assert.Equal(t, 100, cfg.Model.NEstimators)
	assert.Equal(t, 10, cfg.Model.MaxDepth)
	assert.Equal(t, 5, cfg.Model.MinSamplesSplit)
	assert.Equal(t, 2, cfg.Model.MinSamplesLeaf)
	assert.Equal(t, "time", cfg.Training.SplitMode)
	assert.InDelta(t, 0.2, cfg.Training.TestFraction, 0.001)
	assert.Equal(t, 5, cfg.Training.CVFolds)
	assert.InDelta(t, 0.7, cfg.Training.MinR2, 0.001)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 100, cfg.Explain.SampleSize)
	assert.Equal(t, 10, cfg.Explain.TopN)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/salesight
features:
  lags: [1, 3, 14]
  aggregate_mode: full_history
model:
  family: gradient_boosting
  n_estimators: 250
training:
  split_mode: random
  seed: 7
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, []int{1, 3, 14}, cfg.Features.Lags)
	assert.Equal(t, "full_history", cfg.Features.AggregateMode)
	assert.Equal(t, "gradient_boosting", cfg.Model.Family)
	assert.Equal(t, 250, cfg.Model.NEstimators)
	assert.Equal(t, "random", cfg.Training.SplitMode)
	assert.Equal(t, int64(7), cfg.Training.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep defaults
	assert.Equal(t, 5, cfg.Training.CVFolds)
}

func TestLoadFromEnv(t *testing.T) {
	chtemp(t)

	t.Setenv("SALESIGHT_STORE_DRIVER", "postgres")
	t.Setenv("SALESIGHT_TRAINING_CV_FOLDS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Training.CVFolds)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	assert.Error(t, InitLogger(LogConfig{Level: "shout", Format: "json"}))
}

package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/config"
)

var initForce bool

// starterConfig is the commented template `salesight init` writes. It
// must stay in sync with defaultConfigFile; TestStarterConfigMatchesDefaults
// round-trips it to catch drift.
const starterConfig = `store:
  # "sqlite" or "postgres"
  driver: sqlite
  # sqlite file path, or a postgres connection URL
  database_url: salesight.db

features:
  # lagged sales/orders/rating offsets, in days
  lags: [1, 2, 7]
  # trailing-window sizes for rolling mean/std
  rolling_windows: [3, 7]
  # window for the linear sales trend feature
  trend_window: 7
  # "expanding" uses strictly-prior history for entity aggregates;
  # "full_history" is the legacy whole-series behavior
  aggregate_mode: expanding
  # standardize feature columns (fitted on the training window only)
  scale: false

model:
  # "random_forest" or "gradient_boosting"
  family: random_forest
  n_estimators: 100
  max_depth: 10
  min_samples_split: 5
  min_samples_leaf: 2
  # gradient boosting only
  learning_rate: 0.1

training:
  # "time" holds out each entity's trailing days; "random" shuffles
  split_mode: time
  test_fraction: 0.2
  cv_folds: 5
  # test R2 below this is flagged in the artifact metrics
  min_r2: 0.7
  seed: 42
  grid_search: false
  artifact_path: model.json.gz

explain:
  # background rows sampled per attribution
  sample_size: 100
  # contributions reported per explanation
  top_n: 10

server:
  port: 8080
  # requests per second; 0 disables limiting
  rate_limit: 10

log:
  # debug, info, warn, error
  level: info
  # "json" or "console"
  format: json
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented config.yaml with the default settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil && !initForce {
			return eris.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
			return eris.Wrap(err, "write config")
		}

		zap.L().Info("config written", zap.String("path", path))
		return nil
	},
}

func defaultConfigFile() config.Config {
	return config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: "salesight.db"},
		Features: config.FeatureConfig{
			Lags:           []int{1, 2, 7},
			RollingWindows: []int{3, 7},
			TrendWindow:    7,
			AggregateMode:  "expanding",
		},
		Model: config.ModelConfig{
			Family:          "random_forest",
			NEstimators:     100,
			MaxDepth:        10,
			MinSamplesSplit: 5,
			MinSamplesLeaf:  2,
			LearningRate:    0.1,
		},
		Training: config.TrainingConfig{
			SplitMode:    "time",
			TestFraction: 0.2,
			CVFolds:      5,
			MinR2:        0.7,
			Seed:         42,
			ArtifactPath: "model.json.gz",
		},
		Explain: config.ExplainConfig{SampleSize: 100, TopN: 10},
		Server:  config.ServerConfig{Port: 8080, RateLimit: 10},
		Log:     config.LogConfig{Level: "info", Format: "json"},
	}
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}

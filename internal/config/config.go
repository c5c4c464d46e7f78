package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Features FeatureConfig  `yaml:"features" mapstructure:"features"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Training TrainingConfig `yaml:"training" mapstructure:"training"`
	Explain  ExplainConfig  `yaml:"explain" mapstructure:"explain"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the observation database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FeatureConfig configures the feature pipeline.
type FeatureConfig struct {
	Lags           []int  `yaml:"lags" mapstructure:"lags"`
	RollingWindows []int  `yaml:"rolling_windows" mapstructure:"rolling_windows"`
	TrendWindow    int    `yaml:"trend_window" mapstructure:"trend_window"`
	AggregateMode  string `yaml:"aggregate_mode" mapstructure:"aggregate_mode"`
	Scale          bool   `yaml:"scale" mapstructure:"scale"`
}

// ModelConfig selects the ensemble family and its hyperparameters.
type ModelConfig struct {
	Family          string  `yaml:"family" mapstructure:"family"`
	NEstimators     int     `yaml:"n_estimators" mapstructure:"n_estimators"`
	MaxDepth        int     `yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesSplit int     `yaml:"min_samples_split" mapstructure:"min_samples_split"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf" mapstructure:"min_samples_leaf"`
	LearningRate    float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
}

// TrainingConfig configures the evaluation workflow.
type TrainingConfig struct {
	SplitMode    string  `yaml:"split_mode" mapstructure:"split_mode"`
	TestFraction float64 `yaml:"test_fraction" mapstructure:"test_fraction"`
	CVFolds      int     `yaml:"cv_folds" mapstructure:"cv_folds"`
	MinR2        float64 `yaml:"min_r2" mapstructure:"min_r2"`
	Seed         int64   `yaml:"seed" mapstructure:"seed"`
	GridSearch   bool    `yaml:"grid_search" mapstructure:"grid_search"`
	ArtifactPath string  `yaml:"artifact_path" mapstructure:"artifact_path"`
}

// ExplainConfig configures the attribution engine.
type ExplainConfig struct {
	SampleSize int `yaml:"sample_size" mapstructure:"sample_size"`
	TopN       int `yaml:"top_n" mapstructure:"top_n"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SALESIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "salesight.db")
	v.SetDefault("features.lags", []int{1, 2, 7})
	v.SetDefault("features.rolling_windows", []int{3, 7})
	v.SetDefault("features.trend_window", 7)
	v.SetDefault("features.aggregate_mode", "expanding")
	v.SetDefault("features.scale", false)
	v.SetDefault("model.family", "random_forest")
	v.SetDefault("model.n_estimators", 100)
	v.SetDefault("model.max_depth", 10)
	v.SetDefault("model.min_samples_split", 5)
	v.SetDefault("model.min_samples_leaf", 2)
	v.SetDefault("model.learning_rate", 0.1)
	v.SetDefault("training.split_mode", "time")
	v.SetDefault("training.test_fraction", 0.2)
	v.SetDefault("training.cv_folds", 5)
	v.SetDefault("training.min_r2", 0.7)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.artifact_path", "model.json.gz")
	v.SetDefault("explain.sample_size", 100)
	v.SetDefault("explain.top_n", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package train

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/artifact"
	"github.com/tablewise/salesight/internal/feature"
	"github.com/tablewise/salesight/internal/model"
	"github.com/tablewise/salesight/internal/tree"
)

// Config drives a full training run.
type Config struct {
	Spec         ModelSpec  `json:"spec" yaml:"spec"`
	SplitMode    SplitMode  `json:"split_mode" yaml:"split_mode"`
	TestFraction float64    `json:"test_fraction" yaml:"test_fraction"`
	CVFolds      int        `json:"cv_folds" yaml:"cv_folds"`
	MinR2        float64    `json:"min_r2" yaml:"min_r2"`
	Seed         int64      `json:"seed" yaml:"seed"`
	GridSearch   bool       `json:"grid_search" yaml:"grid_search"`
	Grid         Grid       `json:"grid" yaml:"grid"`
}

// DefaultConfig mirrors the production training setup.
func DefaultConfig() Config {
	return Config{
		Spec: ModelSpec{
			Family:       tree.FamilyForest,
			NEstimators:  100,
			LearningRate: 0.1,
			Params: tree.Params{
				MaxDepth:        10,
				MinSamplesSplit: 5,
				MinSamplesLeaf:  2,
			},
		},
		SplitMode:    SplitTime,
		TestFraction: 0.2,
		CVFolds:      5,
		MinR2:        0.7,
		Seed:         42,
	}
}

// Trainer runs the end-to-end workflow: features, split, optional grid
// search, fit, score, bundle.
type Trainer struct {
	pipeline *feature.Pipeline
	cfg      Config
}

// NewTrainer builds a trainer over the given feature pipeline.
func NewTrainer(p *feature.Pipeline, cfg Config) *Trainer {
	if cfg.TestFraction == 0 {
		cfg.TestFraction = 0.2
	}
	if cfg.CVFolds == 0 {
		cfg.CVFolds = 5
	}
	return &Trainer{pipeline: p, cfg: cfg}
}

// Train produces a versioned artifact from raw observations. A test R²
// below the configured floor is logged and recorded in the metrics but
// does not fail the run; the caller decides whether to ship the model.
func (t *Trainer) Train(ctx context.Context, ds model.Dataset) (*artifact.Artifact, error) {
	m, err := t.pipeline.Build(ds)
	if err != nil {
		return nil, eris.Wrap(err, "train: build features")
	}

	trainSet, testSet, err := Split(m, t.cfg.SplitMode, t.cfg.TestFraction, t.cfg.Seed)
	if err != nil {
		return nil, err
	}

	var scaler *feature.Scaler
	if t.pipeline.Config().Scale {
		// Fit on the training rows only; the test window must not
		// inform the column means and stddevs. Set rows alias the
		// matrix rows, so transforming the matrix standardizes both
		// sets with the train-fitted parameters.
		scaler, err = feature.FitScaler(trainSet.X)
		if err != nil {
			return nil, eris.Wrap(err, "train: fit scaler")
		}
		if err := scaler.Transform(m.Rows); err != nil {
			return nil, eris.Wrap(err, "train: scale features")
		}
	}

	spec := t.cfg.Spec
	if t.cfg.GridSearch {
		spec, _, err = GridSearch(ctx, spec, t.cfg.Grid, trainSet, t.cfg.CVFolds, t.cfg.Seed)
		if err != nil {
			return nil, eris.Wrap(err, "train: grid search")
		}
	}

	cvMean, cvStd, err := CrossValidate(ctx, spec, trainSet, t.cfg.CVFolds, t.cfg.Seed)
	if err != nil {
		return nil, eris.Wrap(err, "train: cross-validate")
	}

	fitted, err := spec.Fit(ctx, trainSet.X, trainSet.Y, t.cfg.Seed)
	if err != nil {
		return nil, eris.Wrap(err, "train: fit")
	}

	trainR2, trainMSE, trainMAE := evaluate(fitted, trainSet)
	testR2, testMSE, testMAE := evaluate(fitted, testSet)

	metrics := artifact.Metrics{
		TrainR2:      trainR2,
		TestR2:       testR2,
		TrainMSE:     trainMSE,
		TestMSE:      testMSE,
		TrainMAE:     trainMAE,
		TestMAE:      testMAE,
		CVMeanR2:     cvMean,
		CVStdR2:      cvStd,
		FeatureCount: len(m.Names),
	}
	if testR2 < t.cfg.MinR2 {
		metrics.BelowQualityFloor = true
		zap.L().Warn("model quality below floor",
			zap.Float64("test_r2", testR2),
			zap.Float64("min_r2", t.cfg.MinR2))
	}

	family := spec.Family
	if family == "" {
		family = tree.FamilyForest
	}
	a, err := artifact.New(family, fitted, m.Names, scaler, t.pipeline.Config(), metrics)
	if err != nil {
		return nil, err
	}

	zap.L().Info("training complete",
		zap.String("artifact_id", a.ID),
		zap.String("family", string(family)),
		zap.Int("train_rows", len(trainSet.Y)),
		zap.Int("test_rows", len(testSet.Y)),
		zap.Float64("test_r2", testR2),
		zap.Float64("cv_mean_r2", cvMean))
	return a, nil
}

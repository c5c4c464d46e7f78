package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tablewise/salesight/internal/feature"
	"github.com/tablewise/salesight/internal/model"
	"github.com/tablewise/salesight/internal/store"
	"github.com/tablewise/salesight/internal/train"
	"github.com/tablewise/salesight/internal/tree"
)

// featureConfig bridges the file/env config into the pipeline config.
func featureConfig() feature.Config {
	return feature.Config{
		Lags:           cfg.Features.Lags,
		RollingWindows: cfg.Features.RollingWindows,
		TrendWindow:    cfg.Features.TrendWindow,
		AggregateMode:  feature.AggregateMode(cfg.Features.AggregateMode),
		Scale:          cfg.Features.Scale,
	}
}

func trainConfig() train.Config {
	return train.Config{
		Spec: train.ModelSpec{
			Family:       tree.Family(cfg.Model.Family),
			NEstimators:  cfg.Model.NEstimators,
			LearningRate: cfg.Model.LearningRate,
			Params: tree.Params{
				MaxDepth:        cfg.Model.MaxDepth,
				MinSamplesSplit: cfg.Model.MinSamplesSplit,
				MinSamplesLeaf:  cfg.Model.MinSamplesLeaf,
			},
		},
		SplitMode:    train.SplitMode(cfg.Training.SplitMode),
		TestFraction: cfg.Training.TestFraction,
		CVFolds:      cfg.Training.CVFolds,
		MinR2:        cfg.Training.MinR2,
		Seed:         cfg.Training.Seed,
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// loadDataset pulls observations from the store, optionally one entity.
func loadDataset(ctx context.Context, s store.Store, entityID string) (model.Dataset, error) {
	ds, err := s.LoadObservations(ctx, store.Filter{EntityID: entityID})
	if err != nil {
		return nil, err
	}
	if len(ds) == 0 {
		return nil, eris.New("no observations in store; run `salesight import` first")
	}
	return ds, nil
}

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, eris.Errorf("bad date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

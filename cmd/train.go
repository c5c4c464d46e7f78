package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/artifact"
	"github.com/tablewise/salesight/internal/feature"
	"github.com/tablewise/salesight/internal/train"
)

var (
	trainOut        string
	trainGridSearch bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on the stored observations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		ds, err := loadDataset(ctx, s, "")
		if err != nil {
			return err
		}

		tc := trainConfig()
		if trainGridSearch {
			tc.GridSearch = true
			tc.Grid = train.Grid{
				MaxDepth:       []int{5, 10, 15},
				NEstimators:    []int{50, 100, 200},
				MinSamplesLeaf: []int{1, 2, 4},
			}
		}

		trainer := train.NewTrainer(feature.NewPipeline(featureConfig()), tc)
		a, err := trainer.Train(ctx, ds)
		if err != nil {
			return err
		}

		out := trainOut
		if out == "" {
			out = cfg.Training.ArtifactPath
		}
		if err := artifact.Save(a, out); err != nil {
			return err
		}

		zap.L().Info("model trained",
			zap.String("artifact", out),
			zap.Float64("test_r2", a.Metrics.TestR2),
			zap.Float64("test_mae", a.Metrics.TestMAE),
			zap.Float64("cv_mean_r2", a.Metrics.CVMeanR2),
			zap.Bool("below_quality_floor", a.Metrics.BelowQualityFloor),
		)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainOut, "out", "", "artifact output path (default from config)")
	trainCmd.Flags().BoolVar(&trainGridSearch, "grid-search", false, "search depth/estimators/leaf size before fitting")
	rootCmd.AddCommand(trainCmd)
}

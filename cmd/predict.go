package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablewise/salesight/internal/artifact"
	"github.com/tablewise/salesight/internal/explain"
)

var (
	predictEntity   string
	predictDate     string
	predictArtifact string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the next-day sales change for an entity on a date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		date, err := parseDay(predictDate)
		if err != nil {
			return err
		}
		eng, err := loadEngine(predictArtifact)
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		ds, err := loadDataset(ctx, s, predictEntity)
		if err != nil {
			return err
		}

		p, err := eng.Predict(ctx, ds, predictEntity, date)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func loadEngine(path string) (*explain.Engine, error) {
	if path == "" {
		path = cfg.Training.ArtifactPath
	}
	a, err := artifact.Load(path)
	if err != nil {
		return nil, err
	}
	return explain.NewEngine(a, explain.Options{
		SampleSize: cfg.Explain.SampleSize,
		Seed:       cfg.Training.Seed,
	})
}

func init() {
	predictCmd.Flags().StringVar(&predictEntity, "entity", "", "entity id (required)")
	predictCmd.Flags().StringVar(&predictDate, "date", "", "date YYYY-MM-DD (required)")
	predictCmd.Flags().StringVar(&predictArtifact, "model", "", "artifact path (default from config)")
	_ = predictCmd.MarkFlagRequired("entity")
	_ = predictCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(predictCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablewise/salesight/internal/model"
)

var (
	importanceArtifact string
	importanceSample   int
	importanceLimit    int
)

var importanceCmd = &cobra.Command{
	Use:   "importance",
	Short: "Rank features by mean absolute attribution across the dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		eng, err := loadEngine(importanceArtifact)
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		ds, err := loadDataset(ctx, s, "")
		if err != nil {
			return err
		}

		entries, err := eng.GlobalImportance(ctx, ds, importanceSample)
		if err != nil {
			return err
		}
		printImportance(entries, importanceLimit)
		return nil
	},
}

func printImportance(entries []model.ImportanceEntry, limit int) {
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	for i, e := range entries {
		fmt.Printf("%3d  %-24s %9.4f\n", i+1, e.Feature, e.Importance)
	}
}

func init() {
	importanceCmd.Flags().StringVar(&importanceArtifact, "model", "", "artifact path (default from config)")
	importanceCmd.Flags().IntVar(&importanceSample, "sample", 100, "rows to sample")
	importanceCmd.Flags().IntVar(&importanceLimit, "limit", 20, "features to show (0 = all)")
	rootCmd.AddCommand(importanceCmd)
}

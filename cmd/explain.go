package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablewise/salesight/internal/model"
)

var (
	explainEntity   string
	explainDate     string
	explainArtifact string
	explainTopN     int
	explainJSON     bool
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Attribute a prediction to its features",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		date, err := parseDay(explainDate)
		if err != nil {
			return err
		}
		eng, err := loadEngine(explainArtifact)
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		ds, err := loadDataset(ctx, s, explainEntity)
		if err != nil {
			return err
		}

		topN := explainTopN
		if topN == 0 {
			topN = cfg.Explain.TopN
		}
		att, err := eng.Explain(ctx, ds, explainEntity, date, topN)
		if err != nil {
			return err
		}

		if explainJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(att)
		}
		printAttribution(att)
		return nil
	},
}

func printAttribution(att *model.Attribution) {
	fmt.Printf("%s\n\n", att.Summary)
	fmt.Printf("prediction %+.2f  (baseline %+.2f, attributed %+.2f)\n\n", att.Prediction, att.Baseline, att.TotalImpact)
	for _, c := range att.Contributions {
		fmt.Printf("  %-24s %12.3f  %+9.3f\n", c.Feature, c.Value, c.Impact)
	}
}

func init() {
	explainCmd.Flags().StringVar(&explainEntity, "entity", "", "entity id (required)")
	explainCmd.Flags().StringVar(&explainDate, "date", "", "date YYYY-MM-DD (required)")
	explainCmd.Flags().StringVar(&explainArtifact, "model", "", "artifact path (default from config)")
	explainCmd.Flags().IntVar(&explainTopN, "top", 0, "number of contributions to show (default from config)")
	explainCmd.Flags().BoolVar(&explainJSON, "json", false, "emit JSON instead of a table")
	_ = explainCmd.MarkFlagRequired("entity")
	_ = explainCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(explainCmd)
}

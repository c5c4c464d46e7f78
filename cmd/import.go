package main

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/ingest"
	"github.com/tablewise/salesight/internal/model"
)

var importSheet string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import daily observations from a CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		var ds model.Dataset
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			ds, err = ingest.ReadCSV(path)
		case ".xlsx":
			ds, err = ingest.ReadXLSX(path, ingest.XLSXOptions{SheetName: importSheet})
		default:
			return eris.Errorf("unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
		}
		if err != nil {
			return err
		}

		// catch duplicate (entity, date) rows before they hit the store
		sorted := make(model.Dataset, len(ds))
		copy(sorted, ds)
		sorted.Sort()
		if err := sorted.Validate(); err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		batchID := uuid.NewString()
		n, err := s.SaveObservations(ctx, ds, batchID)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", path),
			zap.String("batch_id", batchID),
			zap.Int("rows", n),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	rootCmd.AddCommand(importCmd)
}

package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/model"
)

// XLSXOptions selects the sheet to read. Defaults to the first sheet.
type XLSXOptions struct {
	SheetIndex int
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX loads observations from an XLSX sheet whose first row is
// the header.
func ReadXLSX(path string, opts XLSXOptions) (model.Dataset, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: sheet %q is empty", sheet.Name)
	}

	cols, err := columnMap(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var ds model.Dataset
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}
		o, err := parseRow(cols, cells, i+1)
		if err != nil {
			return nil, err
		}
		ds = append(ds, o)
	}

	zap.L().Info("xlsx loaded",
		zap.String("path", path),
		zap.String("sheet", sheet.Name),
		zap.Int("rows", len(ds)))
	return ds, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (%d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = cell.String()
	}
	return out
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

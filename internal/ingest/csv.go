package ingest

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/model"
)

// ReadCSV loads observations from a CSV file with a header row.
func ReadCSV(path string) (model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // column map handles short rows

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	cols, err := columnMap(header)
	if err != nil {
		return nil, err
	}

	var ds model.Dataset
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read csv row %d", line)
		}
		o, err := parseRow(cols, record, line)
		if err != nil {
			return nil, err
		}
		ds = append(ds, o)
	}

	zap.L().Info("csv loaded",
		zap.String("path", path),
		zap.Int("rows", len(ds)))
	return ds, nil
}

// Package ingest loads daily observations from client files. Both
// readers enforce the same column contract: a header row naming the
// fields, with entity_id, date and sales mandatory. Unknown columns
// are an error, not a warning, because a typoed header would otherwise
// silently drop a covariate from every downstream model.
package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tablewise/salesight/internal/model"
)

var requiredColumns = []string{"entity_id", "date", "sales"}

var knownColumns = map[string]bool{
	"entity_id": true, "date": true, "sales": true,
	"orders": true, "rating": true, "cancel_rate": true,
	"advertising_on": true, "rainfall_mm": true,
	"temperature_c": true, "is_holiday": true,
}

// columnMap resolves a header row into name → position.
func columnMap(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "" {
			continue
		}
		if !knownColumns[name] {
			return nil, eris.Errorf("ingest: unknown column %q", name)
		}
		if _, dup := cols[name]; dup {
			return nil, eris.Errorf("ingest: duplicate column %q", name)
		}
		cols[name] = i
	}
	for _, req := range requiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, eris.Errorf("ingest: missing required column %q", req)
		}
	}
	return cols, nil
}

// parseRow converts one record into an Observation. line is 1-based
// and refers to the data row for error messages.
func parseRow(cols map[string]int, record []string, line int) (model.Observation, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var o model.Observation
	o.EntityID = get("entity_id")
	if o.EntityID == "" {
		return o, eris.Errorf("ingest: row %d: empty entity_id", line)
	}

	date, err := parseDate(get("date"))
	if err != nil {
		return o, eris.Wrapf(err, "ingest: row %d", line)
	}
	o.Date = date

	o.Sales, err = parseFloat(get("sales"), "sales", line)
	if err != nil {
		return o, err
	}

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"orders", &o.Orders},
		{"rating", &o.Rating},
		{"cancel_rate", &o.CancelRate},
		{"rainfall_mm", &o.RainfallMM},
		{"temperature_c", &o.TemperatureC},
	} {
		if v := get(f.name); v != "" {
			*f.dst, err = parseFloat(v, f.name, line)
			if err != nil {
				return o, err
			}
		}
	}

	o.AdvertisingOn, err = parseBool(get("advertising_on"), "advertising_on", line)
	if err != nil {
		return o, err
	}
	o.IsHoliday, err = parseBool(get("is_holiday"), "is_holiday", line)
	if err != nil {
		return o, err
	}
	return o, nil
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "01-02-06", "2006/01/02"}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, eris.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, eris.Errorf("unparseable date %q", s)
}

func parseFloat(s, col string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, eris.Errorf("ingest: row %d: column %s: bad number %q", line, col, s)
	}
	return v, nil
}

func parseBool(s, col string, line int) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y":
		return true, nil
	default:
		return false, eris.Errorf("ingest: row %d: column %s: bad boolean %q", line, col, s)
	}
}

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/tablewise/salesight/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS observations (
	entity_id      TEXT NOT NULL,
	date           TEXT NOT NULL,
	sales          REAL NOT NULL,
	orders         REAL NOT NULL DEFAULT 0,
	rating         REAL NOT NULL DEFAULT 0,
	cancel_rate    REAL NOT NULL DEFAULT 0,
	advertising_on INTEGER NOT NULL DEFAULT 0,
	rainfall_mm    REAL NOT NULL DEFAULT 0,
	temperature_c  REAL NOT NULL DEFAULT 0,
	is_holiday     INTEGER NOT NULL DEFAULT 0,
	batch_id       TEXT,
	imported_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (entity_id, date)
);

CREATE INDEX IF NOT EXISTS idx_observations_date ON observations(date);
CREATE INDEX IF NOT EXISTS idx_observations_batch ON observations(batch_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveObservations(ctx context.Context, obs []model.Observation, batchID string) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations
			(entity_id, date, sales, orders, rating, cancel_rate,
			 advertising_on, rainfall_mm, temperature_c, is_holiday, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, date) DO UPDATE SET
			sales = excluded.sales,
			orders = excluded.orders,
			rating = excluded.rating,
			cancel_rate = excluded.cancel_rate,
			advertising_on = excluded.advertising_on,
			rainfall_mm = excluded.rainfall_mm,
			temperature_c = excluded.temperature_c,
			is_holiday = excluded.is_holiday,
			batch_id = excluded.batch_id
	`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, o := range obs {
		_, err := stmt.ExecContext(ctx,
			o.EntityID, o.Date.UTC().Format("2006-01-02"), o.Sales, o.Orders,
			o.Rating, o.CancelRate, boolToInt(o.AdvertisingOn),
			o.RainfallMM, o.TemperatureC, boolToInt(o.IsHoliday), batchID,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert observation %s/%s", o.EntityID, o.Date.Format("2006-01-02"))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit observations")
	}

	zap.L().Info("observations saved",
		zap.Int("count", len(obs)),
		zap.String("batch_id", batchID))
	return len(obs), nil
}

func (s *SQLiteStore) LoadObservations(ctx context.Context, f Filter) (model.Dataset, error) {
	query := `SELECT entity_id, date, sales, orders, rating, cancel_rate,
	                 advertising_on, rainfall_mm, temperature_c, is_holiday
	          FROM observations WHERE 1=1`
	var args []any

	if f.EntityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, f.EntityID)
	}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.From.UTC().Format("2006-01-02"))
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, f.To.UTC().Format("2006-01-02"))
	}
	query += ` ORDER BY entity_id, date`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load observations")
	}
	defer rows.Close() //nolint:errcheck

	var ds model.Dataset
	for rows.Next() {
		var o model.Observation
		var date string
		var ads, holiday int
		if err := rows.Scan(&o.EntityID, &date, &o.Sales, &o.Orders, &o.Rating,
			&o.CancelRate, &ads, &o.RainfallMM, &o.TemperatureC, &holiday); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		o.Date, err = time.ParseInLocation("2006-01-02", date, time.UTC)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse date %q", date)
		}
		o.AdvertisingOn = ads != 0
		o.IsHoliday = holiday != 0
		ds = append(ds, o)
	}
	return ds, eris.Wrap(rows.Err(), "sqlite: load observations iterate")
}

func (s *SQLiteStore) Entities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT entity_id FROM observations ORDER BY entity_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entities")
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entity")
		}
		out = append(out, id)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list entities iterate")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

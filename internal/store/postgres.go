package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tablewise/salesight/internal/model"
)

// pgxQuerier is the slice of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool pgxQuerier
}

// NewPostgres connects to the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (or mock).
func NewPostgresFromPool(pool pgxQuerier) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS observations (
	entity_id      TEXT NOT NULL,
	date           DATE NOT NULL,
	sales          DOUBLE PRECISION NOT NULL,
	orders         DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating         DOUBLE PRECISION NOT NULL DEFAULT 0,
	cancel_rate    DOUBLE PRECISION NOT NULL DEFAULT 0,
	advertising_on BOOLEAN NOT NULL DEFAULT FALSE,
	rainfall_mm    DOUBLE PRECISION NOT NULL DEFAULT 0,
	temperature_c  DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_holiday     BOOLEAN NOT NULL DEFAULT FALSE,
	batch_id       TEXT,
	imported_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (entity_id, date)
);

CREATE INDEX IF NOT EXISTS idx_observations_date ON observations(date);
CREATE INDEX IF NOT EXISTS idx_observations_batch ON observations(batch_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresUpsert = `
	INSERT INTO observations
		(entity_id, date, sales, orders, rating, cancel_rate,
		 advertising_on, rainfall_mm, temperature_c, is_holiday, batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (entity_id, date) DO UPDATE SET
		sales = EXCLUDED.sales,
		orders = EXCLUDED.orders,
		rating = EXCLUDED.rating,
		cancel_rate = EXCLUDED.cancel_rate,
		advertising_on = EXCLUDED.advertising_on,
		rainfall_mm = EXCLUDED.rainfall_mm,
		temperature_c = EXCLUDED.temperature_c,
		is_holiday = EXCLUDED.is_holiday,
		batch_id = EXCLUDED.batch_id
`

func (s *PostgresStore) SaveObservations(ctx context.Context, obs []model.Observation, batchID string) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, o := range obs {
		_, err := tx.Exec(ctx, postgresUpsert,
			o.EntityID, o.Date.UTC().Truncate(24*time.Hour), o.Sales, o.Orders,
			o.Rating, o.CancelRate, o.AdvertisingOn,
			o.RainfallMM, o.TemperatureC, o.IsHoliday, batchID,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert observation %s/%s", o.EntityID, o.Date.Format("2006-01-02"))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit observations")
	}

	zap.L().Info("observations saved",
		zap.Int("count", len(obs)),
		zap.String("batch_id", batchID))
	return len(obs), nil
}

func (s *PostgresStore) LoadObservations(ctx context.Context, f Filter) (model.Dataset, error) {
	query := `SELECT entity_id, date, sales, orders, rating, cancel_rate,
	                 advertising_on, rainfall_mm, temperature_c, is_holiday
	          FROM observations WHERE 1=1`
	var args []any

	if f.EntityID != "" {
		args = append(args, f.EntityID)
		query += ` AND entity_id = $` + strconv.Itoa(len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From.UTC().Truncate(24*time.Hour))
		query += ` AND date >= $` + strconv.Itoa(len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.UTC().Truncate(24*time.Hour))
		query += ` AND date <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY entity_id, date`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load observations")
	}
	defer rows.Close()

	var ds model.Dataset
	for rows.Next() {
		var o model.Observation
		if err := rows.Scan(&o.EntityID, &o.Date, &o.Sales, &o.Orders, &o.Rating,
			&o.CancelRate, &o.AdvertisingOn, &o.RainfallMM, &o.TemperatureC, &o.IsHoliday); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		o.Date = o.Date.UTC()
		ds = append(ds, o)
	}
	return ds, eris.Wrap(rows.Err(), "postgres: load observations iterate")
}

func (s *PostgresStore) Entities(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT entity_id FROM observations ORDER BY entity_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entities")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entity")
		}
		out = append(out, id)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list entities iterate")
}

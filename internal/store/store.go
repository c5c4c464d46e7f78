package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tablewise/salesight/internal/model"
)

// Filter narrows observation queries. Zero values mean "no constraint".
type Filter struct {
	EntityID string    `json:"entity_id,omitempty"`
	From     time.Time `json:"from,omitempty"`
	To       time.Time `json:"to,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

// Store is the persistence interface for daily observations. Saves are
// idempotent upserts keyed on (entity_id, date): re-importing a file
// overwrites rather than duplicates.
type Store interface {
	SaveObservations(ctx context.Context, obs []model.Observation, batchID string) (int, error)
	LoadObservations(ctx context.Context, f Filter) (model.Dataset, error)
	Entities(ctx context.Context) ([]string, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

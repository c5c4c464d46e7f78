package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablewise/salesight/internal/model"
)

func TestPostgresSaveObservations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresFromPool(mock)
	obs := []model.Observation{
		{EntityID: "bistro", Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Sales: 100, Orders: 12, Rating: 4.2},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO observations").
		WithArgs("bistro", obs[0].Date, 100.0, 12.0, 4.2, 0.0, false, 0.0, 0.0, false, "batch-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.SaveObservations(context.Background(), obs, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresFromPool(mock)
	obs := []model.Observation{
		{EntityID: "bistro", Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Sales: 100},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO observations").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = s.SaveObservations(context.Background(), obs, "b")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadObservations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresFromPool(mock)
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"entity_id", "date", "sales", "orders", "rating", "cancel_rate",
		"advertising_on", "rainfall_mm", "temperature_c", "is_holiday",
	}).AddRow("bistro", date, 100.0, 12.0, 4.2, 0.0, true, 1.5, 22.0, false)

	mock.ExpectQuery("SELECT entity_id, date, sales").
		WithArgs("bistro").
		WillReturnRows(rows)

	ds, err := s.LoadObservations(context.Background(), Filter{EntityID: "bistro"})
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "bistro", ds[0].EntityID)
	assert.True(t, ds[0].AdvertisingOn)
	assert.InDelta(t, 22.0, ds[0].TemperatureC, 1e-12)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEntities(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresFromPool(mock)
	mock.ExpectQuery("SELECT DISTINCT entity_id").
		WillReturnRows(pgxmock.NewRows([]string{"entity_id"}).AddRow("bistro").AddRow("diner"))

	ids, err := s.Entities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bistro", "diner"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

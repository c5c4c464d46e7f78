package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/tablewise/salesight/internal/explain"
	"github.com/tablewise/salesight/internal/feature"
	"github.com/tablewise/salesight/internal/model"
	"github.com/tablewise/salesight/internal/store"
	"github.com/tablewise/salesight/internal/train"
)

func apiFixture(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()

	start := time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC) // a Monday
	var ds model.Dataset
	for i := 0; i < 30; i++ {
		date := start.AddDate(0, 0, i)
		sales := 200 + 12*math.Sin(float64(i)/2)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			sales += 40
		}
		ds = append(ds, model.Observation{
			EntityID: "bistro", Date: date, Sales: sales,
			Orders: sales / 10, Rating: 4.0, TemperatureC: 21,
		})
	}

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { s.Close() })
	_, err = s.SaveObservations(ctx, ds, "fixture")
	require.NoError(t, err)

	tc := train.DefaultConfig()
	tc.Spec.NEstimators = 10
	tc.Spec.Params.MaxDepth = 4
	a, err := train.NewTrainer(feature.NewPipeline(feature.DefaultConfig()), tc).Train(ctx, ds)
	require.NoError(t, err)

	eng, err := explain.NewEngine(a, explain.Options{SampleSize: 15, Seed: 42})
	require.NoError(t, err)

	return &api{engine: eng, store: s, topN: 10}
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServeHealth(t *testing.T) {
	h := apiFixture(t).router(0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServePredict(t *testing.T) {
	h := apiFixture(t).router(0)

	w := postJSON(t, h, "/predict", queryRequest{EntityID: "bistro", Date: "2025-04-20"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p model.Prediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "bistro", p.EntityID)
	assert.InDelta(t, p.PreviousSales+p.Delta, p.PredictedSales, 1e-9)
}

func TestServePredictValidation(t *testing.T) {
	h := apiFixture(t).router(0)

	w := postJSON(t, h, "/predict", queryRequest{Date: "2025-04-20"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, h, "/predict", queryRequest{EntityID: "bistro", Date: "soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, h, "/predict", queryRequest{EntityID: "bistro", Date: "2030-01-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestServeExplain(t *testing.T) {
	h := apiFixture(t).router(0)

	w := postJSON(t, h, "/explain", queryRequest{EntityID: "bistro", Date: "2025-04-22", TopN: 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var att model.Attribution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &att))
	assert.Len(t, att.Contributions, 5)
	assert.InDelta(t, att.Prediction, att.Baseline+att.TotalImpact, 1e-6)
	assert.NotEmpty(t, att.Summary)
}

func TestServeImportance(t *testing.T) {
	h := apiFixture(t).router(0)

	req := httptest.NewRequest(http.MethodGet, "/importance?sample=5", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entries []model.ImportanceEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.NotEmpty(t, entries)

	req = httptest.NewRequest(http.MethodGet, "/importance?sample=-2", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServeRateLimit(t *testing.T) {
	h := apiFixture(t).router(rate.Limit(1))

	var saw429 bool
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			saw429 = true
		}
	}
	assert.True(t, saw429, "burst of requests never hit the limiter")
}

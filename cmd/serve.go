package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tablewise/salesight/internal/explain"
	"github.com/tablewise/salesight/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions and explanations over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, err := loadEngine("")
		if err != nil {
			return err
		}
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		api := &api{engine: eng, store: s, topN: cfg.Explain.TopN}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.router(rate.Limit(cfg.Server.RateLimit)),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

type api struct {
	engine *explain.Engine
	store  store.Store
	topN   int
}

func (a *api) router(limit rate.Limit) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	if limit > 0 {
		r.Use(rateLimiter(rate.NewLimiter(limit, int(limit)+1)))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/predict", a.handlePredict)
	r.Post("/explain", a.handleExplain)
	r.Get("/importance", a.handleImportance)
	return r
}

func rateLimiter(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type queryRequest struct {
	EntityID string `json:"entity_id"`
	Date     string `json:"date"`
	TopN     int    `json:"top_n,omitempty"`
}

func (a *api) decodeQuery(w http.ResponseWriter, r *http.Request) (*queryRequest, time.Time, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, time.Time{}, false
	}
	if req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return nil, time.Time{}, false
	}
	date, err := parseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, time.Time{}, false
	}
	return &req, date, true
}

func (a *api) handlePredict(w http.ResponseWriter, r *http.Request) {
	req, date, ok := a.decodeQuery(w, r)
	if !ok {
		return
	}

	ds, err := a.store.LoadObservations(r.Context(), store.Filter{EntityID: req.EntityID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	p, err := a.engine.Predict(r.Context(), ds, req.EntityID, date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *api) handleExplain(w http.ResponseWriter, r *http.Request) {
	req, date, ok := a.decodeQuery(w, r)
	if !ok {
		return
	}
	topN := req.TopN
	if topN == 0 {
		topN = a.topN
	}

	ds, err := a.store.LoadObservations(r.Context(), store.Filter{EntityID: req.EntityID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	att, err := a.engine.Explain(r.Context(), ds, req.EntityID, date, topN)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, att)
}

func (a *api) handleImportance(w http.ResponseWriter, r *http.Request) {
	sample := 100
	if s := r.URL.Query().Get("sample"); s != "" {
		if _, err := fmt.Sscanf(s, "%d", &sample); err != nil || sample <= 0 {
			writeError(w, http.StatusBadRequest, "bad sample parameter")
			return
		}
	}

	ds, err := a.store.LoadObservations(r.Context(), store.Filter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entries, err := a.engine.GlobalImportance(r.Context(), ds, sample)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/search"
	"github.com/sells-group/prospect-cli/internal/workerpool"
)

var servePort int

const requestTimeout = 60 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for searches, rules, and geocoding",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := prometheus.Register(workerpool.NewCollector(env.Pool, "shared")); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return eris.Wrap(err, "register pool metrics")
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the API routes over env.
func buildRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		st := env.Pool.Stats()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"workers":     st.Workers,
			"queue_depth": st.QueueDepth,
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Post("/search", handleSearch(env))
		r.Get("/rules", handleListRules(env))
		r.Put("/rules", handleUpdateRules(env))
		r.Post("/rules/reset", handleResetRules(env))
		r.Get("/geocode", handleGeocode(env))
		r.Get("/pool", handlePoolStats(env))
		r.Put("/pool", handleResizePool(env))
	})
	return r
}

// searchRequest is a SearchQuery plus API-only options.
type searchRequest struct {
	model.SearchQuery
	Insights int `json:"insights"`
}

func handleSearch(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := searchRequest{SearchQuery: model.DefaultQuery("")}
		if cfg.Search.DefaultRadiusMiles > 0 {
			req.RadiusMiles = cfg.Search.DefaultRadiusMiles
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		agg := env.NewAggregator()
		defer agg.Close()
		rs, err := agg.Run(r.Context(), req.SearchQuery, nil)
		if err != nil {
			if eris.Is(err, search.ErrCancelled) || r.Context().Err() != nil {
				writeError(w, http.StatusServiceUnavailable, "search cancelled")
				return
			}
			zap.L().Error("search failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		if req.Insights > 0 {
			if err := enrichInsights(r.Context(), env.Insight, rs, req.Insights); err != nil {
				writeError(w, http.StatusServiceUnavailable, "insights cancelled")
				return
			}
		}
		writeJSON(w, http.StatusOK, rs)
	}
}

func handleListRules(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, env.Scoring.Rules())
	}
}

// ruleUpdate changes one rule; nil fields are left alone.
type ruleUpdate struct {
	ID      string `json:"id"`
	Points  *int   `json:"points,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

func handleUpdateRules(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates []ruleUpdate
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		// Check every id first so a bad batch changes nothing.
		for _, u := range updates {
			if _, err := env.Scoring.Rule(u.ID); err != nil {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
		}
		for _, u := range updates {
			if u.Points != nil {
				if _, err := env.Scoring.SetPoints(u.ID, *u.Points); err != nil {
					writeError(w, http.StatusNotFound, err.Error())
					return
				}
			}
			if u.Enabled != nil {
				if err := env.Scoring.SetEnabled(u.ID, *u.Enabled); err != nil {
					writeError(w, http.StatusNotFound, err.Error())
					return
				}
			}
		}
		persistRules(w, r, env)
	}
}

func handleResetRules(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env.Scoring.ResetAll()
		persistRules(w, r, env)
	}
}

func persistRules(w http.ResponseWriter, r *http.Request, env *appEnv) {
	if env.Store != nil {
		if err := saveRules(r.Context(), env.Scoring, env.Store); err != nil {
			zap.L().Error("save scoring rules", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "rules applied but not saved")
			return
		}
	}
	writeJSON(w, http.StatusOK, env.Scoring.Rules())
}

func handleGeocode(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		if addr := qs.Get("address"); addr != "" {
			loc, err := env.Geocoder.Geocode(r.Context(), addr)
			if err != nil {
				writeError(w, http.StatusServiceUnavailable, "geocode cancelled")
				return
			}
			writeJSON(w, http.StatusOK, loc)
			return
		}

		lat, latErr := strconv.ParseFloat(qs.Get("lat"), 64)
		lon, lonErr := strconv.ParseFloat(qs.Get("lon"), 64)
		if latErr != nil || lonErr != nil {
			writeError(w, http.StatusBadRequest, "address or lat and lon are required")
			return
		}
		loc, err := env.Geocoder.ReverseGeocode(r.Context(), lat, lon)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "geocode cancelled")
			return
		}
		writeJSON(w, http.StatusOK, loc)
	}
}

// maxPoolWorkers caps PUT /pool.
const maxPoolWorkers = 256

func handlePoolStats(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, env.Pool.Stats())
	}
}

// handleResizePool changes the shared pool's worker count. It returns once the
// tasks running on the old workers have finished.
func handleResizePool(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Workers int `json:"workers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Workers < 1 || body.Workers > maxPoolWorkers {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("workers must be between 1 and %d", maxPoolWorkers))
			return
		}
		if err := env.Pool.Resize(body.Workers); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		zap.L().Info("pool resized via api", zap.Int("workers", body.Workers))
		writeJSON(w, http.StatusOK, env.Pool.Stats())
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

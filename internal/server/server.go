// Package server exposes analysis runs and their exports over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/config"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/pipeline"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/store"
)

// Runner executes analysis runs.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// Options configures a Server.
type Options struct {
	Config    config.ServerConfig
	OutputDir string
	Catalog   *config.Catalog
	Runner    Runner
	// Store is optional; without it run metadata comes from export files only.
	Store store.Store
}

// Server is the HTTP API.
type Server struct {
	opts    Options
	limiter *rate.Limiter
	router  chi.Router
	log     *zap.Logger
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	burst := opts.Config.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(opts.Config.RateLimit)
	if opts.Config.RateLimit <= 0 {
		limit = rate.Inf
	}
	s := &Server{
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		log:     zap.L().With(zap.String("component", "server")),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	origins := s.opts.Config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Get("/cities", s.handleCities)
		api.With(s.rateLimit).Post("/analyze", s.handleAnalyze)
		api.Get("/last-run/{city}", s.handleLastRun)
		api.Get("/hotspots", s.handleHotspots)
		api.Get("/export/latest/{city}/{dtype}", s.handleExportLatest)
		api.Get("/geojson/{city}", s.handleGeoJSON)
		api.Get("/runs", s.handleListRuns)
		api.Get("/runs/{id}", s.handleGetRun)
	})

	return r
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	s.log.Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// envelope is the JSON body of every API response.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{"success": false, "error": msg})
}

// Package server exposes the schema engine over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"schema-engine/internal/engine"
	"schema-engine/internal/migration"
	"schema-engine/internal/schema"
	"schema-engine/internal/store"
)

// Server serves the engine API backed by a schema store.
type Server struct {
	store   *store.Store
	logger  zerolog.Logger
	options migration.Options
	router  *mux.Router

	mu      sync.RWMutex
	engines map[string]*engine.Engine
	// gen is bumped on every forget; loads that started earlier are not cached.
	gen     uint64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMatchOptions sets the matcher options used for migration plans.
func WithMatchOptions(opts migration.Options) Option {
	return func(s *Server) {
		s.options = opts
	}
}

// New builds a server and its routes.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:   st,
		logger:  zerolog.Nop(),
		options: migration.DefaultOptions(),
		engines: map[string]*engine.Engine{},
	}
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	api.HandleFunc("/schemas", s.handleListSchemas).Methods("GET")
	api.HandleFunc("/schemas", s.handlePutSchema).Methods("PUT")
	api.HandleFunc("/schemas/{id}", s.handleGetSchema).Methods("GET")
	api.HandleFunc("/schemas/{id}/runs", s.handleListRuns).Methods("GET")

	api.HandleFunc("/active", s.handleGetActive).Methods("GET")
	api.HandleFunc("/active", s.handlePutActive).Methods("PUT")

	api.HandleFunc("/validate", s.handleValidate).Methods("POST")
	api.HandleFunc("/visibility", s.handleVisibility).Methods("POST")
	api.HandleFunc("/relationships/evaluate", s.handleEvaluate).Methods("POST")
	api.HandleFunc("/dependencies/sources", s.handleSources).Methods("POST")

	api.HandleFunc("/migrations/plan", s.handlePlan).Methods("POST")
	api.HandleFunc("/migrations/run", s.handleRun).Methods("POST")

	router.Use(s.logRequests)
	s.router = router

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("serving schema engine")

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// engineFor loads and caches the engine for def. Cached engines are keyed by
// schema ref and dropped when that version is saved again. gen must be read
// with generation before def was fetched from the store.
func (s *Server) engineFor(def *schema.SchemaDefinition, gen uint64) (*engine.Engine, error) {
	ref := def.Ref()

	s.mu.RLock()
	e, ok := s.engines[ref]
	s.mu.RUnlock()

	if ok {
		return e, nil
	}

	e, err := engine.Load(def, engine.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return e, nil
	}

	if cached, ok := s.engines[ref]; ok {
		return cached, nil
	}

	s.engines[ref] = e

	return e, nil
}

func (s *Server) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.gen
}

func (s *Server) forget(ref string) {
	s.mu.Lock()
	delete(s.engines, ref)
	s.gen++
	s.mu.Unlock()
}

func (s *Server) resolve(ctx context.Context, target schemaTarget) (*engine.Engine, error) {
	if target.Schema != nil {
		return engine.Load(target.Schema, engine.WithLogger(s.logger))
	}

	gen := s.generation()

	def, err := s.lookup(ctx, target.SchemaID, target.Version)
	if err != nil {
		return nil, err
	}

	return s.engineFor(def, gen)
}

func (s *Server) lookup(ctx context.Context, id, version string) (*schema.SchemaDefinition, error) {
	switch {
	case id == "":
		return s.store.Active(ctx)
	case version == "":
		return s.store.LatestSchema(ctx, id)
	default:
		return s.store.GetSchema(ctx, id, version)
	}
}

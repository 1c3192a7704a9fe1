package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hannes/pellucid-sanitizer/anonymizer"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
	"github.com/hannes/pellucid-sanitizer/sanitizer"
	"github.com/hannes/pellucid-sanitizer/store"
)

const defaultMaxBatchSize = 100

// Detector runs detection without substitution. *pii.LocalSanitizer
// satisfies it.
type Detector interface {
	Catalog() *detectors.Catalog
	Detect(text string, level detectors.PrivacyLevel) []detectors.EntityMatch
}

// RemoteInfo exposes the informational endpoints of the remote anonymizer.
// *anonymizer.Client satisfies it.
type RemoteInfo interface {
	Health(ctx context.Context) error
	Stats(ctx context.Context) (anonymizer.Stats, error)
}

// Server represents the HTTP server
type Server struct {
	router       *chi.Mux
	routesOnce   sync.Once
	service      *sanitizer.Service
	detector     Detector
	remote       RemoteInfo
	store        store.Store
	defaults     sanitizer.Options
	maxBatchSize int
	startTime    time.Time
	logger       zerolog.Logger
}

// Option configures the Server
type Option func(*Server)

// WithStore sets the submission store. The default is an in-memory store.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithRemoteInfo enables remote health and stats reporting
func WithRemoteInfo(r RemoteInfo) Option {
	return func(s *Server) { s.remote = r }
}

// WithDefaults sets the options used when a request omits them
func WithDefaults(opts sanitizer.Options) Option {
	return func(s *Server) { s.defaults = opts }
}

func WithMaxBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// NewServer creates a new server instance
func NewServer(service *sanitizer.Service, detector Detector, opts ...Option) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		service:      service,
		detector:     detector,
		defaults:     sanitizer.Options{Level: detectors.Standard, PreserveContext: true},
		maxBatchSize: defaultMaxBatchSize,
		startTime:    time.Now(),
		logger:       log.With().Str("component", "server").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	return s
}

// Routes returns the chi router with all middleware and routes
func (s *Server) Routes() http.Handler {
	s.routesOnce.Do(s.mountRoutes)
	return s.router
}

// mountRoutes registers middleware and routes; chi rejects middleware added
// after the first route, so it runs once per Server
func (s *Server) mountRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sanitize", s.handleSanitize)
		r.Post("/sanitize/batch", s.handleSanitizeBatch)
		r.Post("/validate", s.handleValidate)
		r.Post("/entities/detected", s.handleDetect)
		r.Post("/submissions", s.handleCreateSubmission)
		r.Get("/submissions/{id}", s.handleGetSubmission)
	})
}

// requestLogger logs method, path, status and duration. Bodies are never logged.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().
		Str("addr", addr).
		Bool("remote", s.service.RemoteEnabled()).
		Int("max_batch_size", s.maxBatchSize).
		Str("default_level", s.defaults.Level.String()).
		Msg("sanitizer service started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	sentry.Flush(2 * time.Second)
	s.logger.Info().Msg("server stopped")
	return nil
}

// Close closes the server and cleans up resources
func (s *Server) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

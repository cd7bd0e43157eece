// Package http serves the status API: health, Prometheus metrics, scheduler
// runs and cached evaluations.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/adapters/http/handlers"
	"github.com/longregen/amaru/internal/adapters/http/middleware"
	"github.com/longregen/amaru/internal/config"
	"github.com/longregen/amaru/internal/ports"
)

type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	runRepo    ports.RunRepository
	store      ports.AnalyticsStore
	checks     []handlers.HealthCheck
	logger     *zap.Logger
}

// NewServer builds the router. store may be nil when no fitness store is
// configured; the evaluation lookup then answers 404.
func NewServer(
	cfg *config.Config,
	runRepo ports.RunRepository,
	store ports.AnalyticsStore,
	checks []handlers.HealthCheck,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:  cfg,
		runRepo: runRepo,
		store:   store,
		checks:  checks,
		logger:  logger,
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Tracing("amaru", r))
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(s.config.Server.CORSOrigins))
	r.Use(middleware.Metrics)

	healthHandler := handlers.NewHealthHandler(s.checks...)
	r.Get("/health", healthHandler.Handle)
	r.Get("/health/detailed", healthHandler.HandleDetailed)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(s.config.Server.APIToken))

		runsHandler := handlers.NewRunsHandler(s.runRepo, s.logger)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Get("/runs/{id}/rounds", runsHandler.Rounds)

		if s.store != nil {
			evaluationsHandler := handlers.NewEvaluationsHandler(s.store, s.logger)
			r.Get("/evaluations/{astHash}/{suiteHash}", evaluationsHandler.Get)
		}
	})

	s.router = r
}

// Start listens until Stop is called; it then returns http.ErrServerClosed.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

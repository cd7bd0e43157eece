package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	amaruhttp "github.com/longregen/amaru/internal/adapters/http"
	"github.com/longregen/amaru/internal/adapters/tracing"
)

// serveCmd starts the HTTP status server
func serveCmd() *cobra.Command {
	var traceSpans bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP status server",
		Long: `Start the Amaru status server. It exposes health checks, Prometheus
metrics and a read-only API over recorded runs and cached evaluations.

Endpoints:
  GET /health, /health/detailed, /metrics
  GET /api/v1/runs, /api/v1/runs/{id}, /api/v1/runs/{id}/rounds
  GET /api/v1/evaluations/{astHash}/{suiteHash}   (when a fitness store is configured)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), traceSpans)
		},
	}
	cmd.Flags().BoolVar(&traceSpans, "trace", false, "export OpenTelemetry spans to stderr")
	return cmd
}

// runServer initializes and starts the HTTP status server
func runServer(ctx context.Context, traceSpans bool) error {
	var spanWriter io.Writer
	if traceSpans {
		spanWriter = os.Stderr
	}
	shutdown, err := tracing.InitTracer("amaru", spanWriter)
	if err != nil {
		logger.Warn("failed to initialize tracing", zap.Error(err))
	} else {
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("error shutting down tracer", zap.Error(err))
			}
		}()
	}

	st, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer st.close()
	logger.Info("store opened", zap.String("backend", cfg.Store.Backend))

	server := amaruhttp.NewServer(cfg, st.runs, st.fitness, st.checks, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.Info("received signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

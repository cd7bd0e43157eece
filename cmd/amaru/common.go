package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/longregen/amaru/internal/adapters/badger"
	"github.com/longregen/amaru/internal/adapters/executor"
	"github.com/longregen/amaru/internal/adapters/http/handlers"
	"github.com/longregen/amaru/internal/adapters/memory"
	"github.com/longregen/amaru/internal/adapters/postgres"
	"github.com/longregen/amaru/internal/adapters/retry"
	"github.com/longregen/amaru/internal/cachet"
	"github.com/longregen/amaru/internal/config"
	"github.com/longregen/amaru/internal/evaluation"
	"github.com/longregen/amaru/internal/language"
	"github.com/longregen/amaru/internal/ports"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg    *config.Config
	logger *zap.Logger
)

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if lc.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		level, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// initDB initializes a database connection pool for CLI commands
func initDB(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("PostgreSQL connection required. Set AMARU_POSTGRES_URL")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Force UTC timezone to prevent timezone-related issues with TIMESTAMP columns
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return pool, nil
}

// stores are the persistence adapters of the configured backend.
type stores struct {
	fitness ports.AnalyticsStore
	runs    ports.RunRepository
	tx      ports.TransactionManager
	checks  []handlers.HealthCheck
	close   func()
}

// openStores opens the configured store backend. The "none" backend keeps
// run bookkeeping in memory and has no fitness store.
func openStores(ctx context.Context) (*stores, error) {
	switch cfg.Store.Backend {
	case "", "none":
		return &stores{runs: memory.NewRunRepository(), close: func() {}}, nil

	case "memory":
		return &stores{
			fitness: memory.NewFitnessStore(),
			runs:    memory.NewRunRepository(),
			close:   func() {},
		}, nil

	case "badger":
		bcfg := badger.DefaultConfig()
		bcfg.Path = cfg.Store.BadgerPath
		db, err := badger.Open(bcfg, logger)
		if err != nil {
			return nil, err
		}
		fitness := badger.NewFitnessStore(db)
		return &stores{
			fitness: fitness,
			runs:    badger.NewRunRepository(db),
			checks: []handlers.HealthCheck{{
				Name:     "badger",
				Critical: true,
				Check: func(ctx context.Context) error {
					_, err := fitness.Len(ctx)
					return err
				},
			}},
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("failed to close badger database", zap.Error(err))
				}
			},
		}, nil

	case "postgres":
		pool, err := initDB(ctx)
		if err != nil {
			return nil, err
		}
		return &stores{
			fitness: postgres.NewFitnessRepository(pool),
			runs:    postgres.NewRunRepository(pool),
			tx:      postgres.NewTransactionManager(pool),
			checks: []handlers.HealthCheck{{
				Name:     "postgres",
				Critical: true,
				Check:    pool.Ping,
			}},
			close: pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// evaluator is the evaluation stack built from the configuration.
type evaluator struct {
	pipeline *evaluation.Pipeline
	binder   *evaluation.Binder
}

func newEvaluator(fitness ports.AnalyticsStore) (*evaluator, error) {
	var info *language.Information
	if cfg.Cachets.LanguageFile != "" {
		var err error
		info, err = language.LoadFile(cfg.Cachets.LanguageFile)
		if err != nil {
			return nil, err
		}
	}

	set, err := cachet.Build(cfg.Cachets.Enabled, cfg.Cachets.Weights, info, cfg.Cachets.CurrentSystem)
	if err != nil {
		return nil, err
	}

	if !cfg.Evaluation.Cache {
		fitness = nil
	}
	pipeline := evaluation.NewPipeline(evaluation.NewFitnessCache(fitness, logger), set, pipelineConfig(cfg.Evaluation, set), logger)

	factory := executor.NewHTTPFactory(executor.Config{
		BaseURL:        cfg.Executor.URL,
		RequestSlack:   cfg.Executor.RequestSlack,
		MaxFailures:    cfg.Executor.MaxFailures,
		BreakerTimeout: cfg.Executor.BreakerTimeout,
	}, logger)

	return &evaluator{
		pipeline: pipeline,
		binder:   evaluation.NewBinder(factory, cfg.Evaluation.DefaultTimeout, logger),
	}, nil
}

// pipelineConfig maps the evaluation section onto the pipeline. Traces are
// collected whenever an enabled cachet estimates runtimes from them.
func pipelineConfig(ec config.EvaluationConfig, set *cachet.Set) evaluation.Config {
	ecfg := evaluation.DefaultConfig()
	ecfg.ParallelRepeatsThreshold = ec.ParallelRepeatsThreshold
	ecfg.MaxParallelTests = ec.MaxParallelTests
	ecfg.Retry = retry.SettleConfig{
		MaxRetries: ec.TransientRetries,
		MaxJitter:  ec.TransientJitter,
	}
	ecfg.CollectTraces = ec.CollectTraces || set.NeedsTraces()
	ecfg.ProfileDir = ec.ProfileDir
	return ecfg
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB creates a pool on the integration database and makes sure the
// schema exists. Tests are skipped unless TEST_DATABASE_URL or PGHOST is set.
//
// The function respects the following environment variables:
//   - TEST_DATABASE_URL: Complete database URL (takes precedence)
//   - PGHOST: Database host or Unix socket directory
//   - PGPORT: Database port (default: 5432)
//   - PGUSER: Database user (default: postgres)
//   - PGDATABASE: Database name (default: amaru_test)
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := getTestDatabaseURL()
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := EnsureSchema(context.Background(), pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	cleanupTestData(t, pool)

	// t.Cleanup runs in LIFO order, so this cleanup runs before pool.Close()
	t.Cleanup(func() {
		cleanupTestData(t, pool)
		pool.Close()
	})

	return pool
}

func getTestDatabaseURL() string {
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	pgHost := os.Getenv("PGHOST")
	if pgHost == "" {
		return ""
	}
	pgPort := os.Getenv("PGPORT")
	pgUser := os.Getenv("PGUSER")
	pgDatabase := os.Getenv("PGDATABASE")

	if pgPort == "" {
		pgPort = "5432"
	}
	if pgUser == "" {
		pgUser = "postgres"
	}
	if pgDatabase == "" {
		pgDatabase = "amaru_test"
	}

	// Unix socket connection
	if pgHost[0] == '/' {
		return fmt.Sprintf("postgres://%s@:%s/%s?host=%s&sslmode=disable",
			pgUser, pgPort, pgDatabase, pgHost)
	}

	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable",
		pgUser, pgHost, pgPort, pgDatabase)
}

func cleanupTestData(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	if _, err := pool.Exec(ctx, `DELETE FROM scheduler_runs WHERE id LIKE 'sr_test%'`); err != nil {
		t.Logf("Warning: failed to clean up test runs: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM fitness_evaluations WHERE ast_hash LIKE 'test%'`); err != nil {
		t.Logf("Warning: failed to clean up test evaluations: %v", err)
	}
}

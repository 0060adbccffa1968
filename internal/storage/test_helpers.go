package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/eve-companion/internal/config"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// testPostgres connects to the local test database, skipping the test when
// none is reachable. Set POSTGRES_TEST_DB to point at a scratch database.
func testPostgres(t *testing.T) *PostgresDB {
	cfg := &config.PostgresConfig{
		Host:           getTestEnv("POSTGRES_HOST", "localhost"),
		Port:           getTestEnv("POSTGRES_PORT", "5432"),
		Database:       getTestEnv("POSTGRES_TEST_DB", "eve_companion_test"),
		User:           getTestEnv("POSTGRES_USER", "companion"),
		Password:       getTestEnv("POSTGRES_PASSWORD", ""),
		MaxConnections: 5,
	}

	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func getTestEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

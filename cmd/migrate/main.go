// Package main provides a CLI tool for running database migrations.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/eve-companion/internal/config"
	"github.com/eve-companion/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		dbType = flag.String("db", "postgres", "Database type: postgres, clickhouse")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch *dbType {
	case "postgres":
		if err := runMigrations("Postgres", postgresURL(cfg), "migrations/postgres", *action); err != nil {
			log.Fatalf("Postgres migration failed: %v", err)
		}
	case "clickhouse":
		if err := runMigrations("ClickHouse", clickhouseURL(cfg), "migrations/clickhouse", *action); err != nil {
			log.Fatalf("ClickHouse migration failed: %v", err)
		}
	default:
		log.Fatalf("Unknown database type: %s", *dbType)
	}
}

func postgresURL(cfg *config.Config) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.Database,
	)
}

func clickhouseURL(cfg *config.Config) string {
	return fmt.Sprintf(
		"clickhouse://%s:%s?username=%s&password=%s&database=%s&x-multi-statement=true",
		cfg.Database.ClickHouse.Host,
		cfg.Database.ClickHouse.Port,
		cfg.Database.ClickHouse.User,
		cfg.Database.ClickHouse.Password,
		cfg.Database.ClickHouse.Database,
	)
}

func runMigrations(label, databaseURL, migrationsPath, action string) error {
	switch action {
	case "up":
		log.Printf("Running %s migrations...", label)
		if err := storage.RunMigrations(databaseURL, migrationsPath); err != nil {
			return err
		}
		log.Printf("%s migrations completed successfully", label)

	case "down":
		log.Printf("Rolling back %s migration...", label)
		if err := storage.RollbackMigrations(databaseURL, migrationsPath); err != nil {
			return err
		}
		log.Printf("%s migration rolled back successfully", label)

	case "version":
		version, dirty, err := storage.MigrationVersion(databaseURL, migrationsPath)
		if err != nil {
			return err
		}
		log.Printf("Current %s migration version: %d (dirty: %v)", label, version, dirty)

	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	return nil
}

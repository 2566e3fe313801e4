package db

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres() *pgxpool.Pool {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatal(err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatal(err)
	}

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal("Postgres connection failed:", err)
	}

	log.Println("✅ Connected to PostgreSQL")

	// Initialize schema
	if err := initSchema(db); err != nil {
		log.Fatal("Failed to initialize schema:", err)
	}

	return db
}

// initSchema creates or updates the database schema
func initSchema(db *pgxpool.Pool) error {
	ctx := context.Background()

	// -------------------------------
	// BARS
	// -------------------------------
	barsTableSQL := `
		CREATE TABLE IF NOT EXISTS bars (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			normalized_name VARCHAR(255) NOT NULL,
			city VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			website VARCHAR(500) NOT NULL DEFAULT '',
			menu_url VARCHAR(500) NOT NULL DEFAULT '',
			discovered_at TIMESTAMPTZ NOT NULL,
			source_queries TEXT[] NOT NULL DEFAULT '{}'
		)
	`
	if _, err := db.Exec(ctx, barsTableSQL); err != nil {
		return err
	}

	// Dedup scans are always city-scoped; list order is discovery time.
	barIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_bars_city ON bars(city);
		CREATE INDEX IF NOT EXISTS idx_bars_city_discovered ON bars(city, discovered_at);
	`
	if _, err := db.Exec(ctx, barIndexSQL); err != nil {
		return err
	}

	// -------------------------------
	// COST ENTRIES (append-only)
	// -------------------------------
	costTableSQL := `
		CREATE TABLE IF NOT EXISTS cost_entries (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			provider VARCHAR(100) NOT NULL,
			operation VARCHAR(100) NOT NULL,
			city VARCHAR(255) NOT NULL DEFAULT '',
			input_tokens INT NOT NULL DEFAULT 0,
			output_tokens INT NOT NULL DEFAULT 0,
			rate_ref VARCHAR(255) NOT NULL,
			computed_cost NUMERIC(14, 8) NOT NULL,
			error_tag TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := db.Exec(ctx, costTableSQL); err != nil {
		return err
	}

	costIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_cost_entries_ts ON cost_entries(ts);
		CREATE INDEX IF NOT EXISTS idx_cost_entries_provider ON cost_entries(provider);
	`
	if _, err := db.Exec(ctx, costIndexSQL); err != nil {
		return err
	}

	log.Println("✅ Schema initialized successfully")
	return nil
}

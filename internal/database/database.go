// Package database persists the ingestion pipeline's state: raw aggregator
// records, normalized transactions, categories, categorization rules, and
// bank-link ownership.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool; all repositories hang off it.
type DB struct {
	pool *pgxpool.Pool
}

// New opens a connection pool and verifies the database is reachable before
// the server starts taking webhook deliveries.
func New(databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close releases the pool
func (db *DB) Close() {
	db.pool.Close()
}

// Pool exposes the underlying pool for migrations and ad-hoc queries
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

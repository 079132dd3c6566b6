// Package store provides Postgres persistence for the match engine and the
// redis client used by the score cache.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/redis/go-redis/v9"
)

// NewPool creates and verifies a pgxpool connection pool with pgvector types
// registered on every connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// Store wraps the connection pool with the engine's queries.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS candidates (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		location TEXT,
		skills JSONB,
		experience JSONB,
		fit_indicators JSONB,
		suggested_roles JSONB,
		embedding VECTOR(1536),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS internal_listings (
		id UUID PRIMARY KEY,
		employer_id UUID NOT NULL,
		title TEXT NOT NULL,
		company TEXT,
		description TEXT,
		location TEXT,
		remote BOOLEAN NOT NULL DEFAULT false,
		embedding VECTOR(1536),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS external_listings (
		id UUID PRIMARY KEY,
		source TEXT NOT NULL,
		external_id TEXT NOT NULL,
		title TEXT NOT NULL,
		company TEXT,
		location TEXT,
		description TEXT,
		url TEXT,
		salary_min TEXT,
		salary_max TEXT,
		raw_payload JSONB,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (source, external_id)
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		candidate_id UUID NOT NULL,
		listing_id UUID NOT NULL,
		score INTEGER NOT NULL,
		reason TEXT,
		suggested BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (candidate_id, listing_id)
	)`,
}

// Migrate applies the engine's schema. Statements are idempotent; tables
// shared with the profile/listing CRUD service are created only when absent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// ErrNoDatabase is returned by every query when the service runs without Postgres.
var ErrNoDatabase = errors.New("database not available")

// DSNFromEnv returns DATABASE_URL, or builds one from DB_* variables.
// ok is false when neither is configured.
func DSNFromEnv() (dsn string, ok bool) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, true
	}
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	if host == "" || user == "" || dbname == "" {
		return "", false
	}
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, dbname), true
}

// Open creates a connection pool and verifies it with a ping.
func Open(ctx context.Context, dsn string, log logrus.FieldLogger) (*pgxpool.Pool, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings optimized for PgBouncer
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection pool initialized")
	return pool, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS extractions (
	id                UUID PRIMARY KEY,
	document_key      TEXT NOT NULL DEFAULT '',
	filename          TEXT NOT NULL DEFAULT '',
	mime_type         TEXT NOT NULL DEFAULT '',
	text_source       TEXT NOT NULL,
	source_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	staff_name        TEXT,
	property_name     TEXT,
	total_amount      NUMERIC(14,2),
	invoice_date      DATE,
	field_source      TEXT NOT NULL DEFAULT 'heuristic',
	result_json       JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verdicts (
	id                 BIGSERIAL PRIMARY KEY,
	extraction_id      UUID NOT NULL REFERENCES extractions(id) ON DELETE CASCADE,
	status             TEXT NOT NULL,
	matched_staff_name TEXT,
	details            TEXT NOT NULL DEFAULT '',
	name_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
	amount_matched     BOOLEAN NOT NULL DEFAULT false,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS verdicts_extraction_idx ON verdicts (extraction_id, created_at DESC);
`

// Repository persists extractions and their verdict history. A Repository
// with a nil pool answers every call with ErrNoDatabase.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps a pool, which may be nil.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Available reports whether a database is configured.
func (r *Repository) Available() bool {
	return r != nil && r.pool != nil
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	if !r.Available() {
		return ErrNoDatabase
	}
	return r.pool.Ping(ctx)
}

// EnsureSchema creates the tables if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if !r.Available() {
		return ErrNoDatabase
	}
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.Available() {
		r.pool.Close()
	}
}

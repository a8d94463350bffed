// Package postgres implements the repository interfaces on PostgreSQL using
// pgx's connection pool.
//
// The queries mirror the sqlite package statement for statement; the
// differences are $n placeholders, RETURNING instead of a re-read, and pgx's
// own error types.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/articles-api/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

// Pool is the part of *pgxpool.Pool the repository uses. pgxmock's pool
// satisfies it too, which is how the tests run without a server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// querier is shared by Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB struct {
	pool Pool
}

// Open connects to databaseURL, verifies the connection and runs migrations.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := NewWithPool(pool)
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

// NewWithPool wraps an existing pool without touching the schema.
func NewWithPool(pool Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
		created_on    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id          TEXT PRIMARY KEY,
		author_id   TEXT NOT NULL,
		author_name TEXT NOT NULL,
		title       TEXT NOT NULL,
		article     TEXT NOT NULL,
		created_on  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created_on ON articles(created_on)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         TEXT PRIMARY KEY,
		author_id  TEXT NOT NULL,
		article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		comment    TEXT NOT NULL,
		posted_on  TIMESTAMPTZ NOT NULL
	)`,
	// Comment text is unbounded and a btree entry is capped near 2.7kB, so
	// the unique index keys on a digest of the text.
	`DROP INDEX IF EXISTS idx_comments_article_text`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_comments_article_md5 ON comments(article_id, md5(comment))`,
	`CREATE TABLE IF NOT EXISTS flags (
		id          TEXT PRIMARY KEY,
		target_type TEXT NOT NULL CHECK (target_type IN ('article', 'comment')),
		target_id   TEXT NOT NULL,
		flagged_by  TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		created_on  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_flags_target_user ON flags(target_type, target_id, flagged_by)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// withTx runs fn in a transaction; fn's error triggers a rollback and is
// returned as is.
func (db *DB) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: committing transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var found bool
	if err := q.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

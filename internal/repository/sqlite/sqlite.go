// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code and works everywhere Go works.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      a connection pool (NOT a single connection!)
//   - sql.Tx      a transaction, pinned to one connection
//   - sql.Row     a single result row
//   - sql.Rows    multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/articles-api/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// querier is the subset of *sql.DB and *sql.Tx the read helpers need, so the
// same scan code runs inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/articles.db"  file-based database (persistent)
//   - ":memory:"          in-memory database (tests)
//
// ONE CONNECTION:
// Every connection to ":memory:" is a brand new, empty database, and SQLite
// only allows one writer at a time anyway. Capping the pool at one
// connection keeps tests on a single shared database and turns concurrent
// writes into a queue instead of SQLITE_BUSY errors. Transactions hold that
// connection, so code inside withTx must only use the *sql.Tx.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Comments rely on
	// ON DELETE CASCADE, so they must be on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks the database is still reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrations is an ordered list of idempotent statements, run on every start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin      BOOLEAN NOT NULL DEFAULT 0,
		created_on    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id          TEXT PRIMARY KEY,
		author_id   TEXT NOT NULL,
		author_name TEXT NOT NULL,
		title       TEXT NOT NULL,
		article     TEXT NOT NULL,
		created_on  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created_on ON articles(created_on)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         TEXT PRIMARY KEY,
		author_id  TEXT NOT NULL,
		article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		comment    TEXT NOT NULL,
		posted_on  DATETIME NOT NULL
	)`,
	// Backstop for the conditional insert in CreateComment.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_comments_article_text ON comments(article_id, comment)`,
	`CREATE TABLE IF NOT EXISTS flags (
		id          TEXT PRIMARY KEY,
		target_type TEXT NOT NULL CHECK (target_type IN ('article', 'comment')),
		target_id   TEXT NOT NULL,
		flagged_by  TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		created_on  DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_flags_target_user ON flags(target_type, target_id, flagged_by)`,
}

func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction. fn's error rolls the transaction back
// and is returned unchanged so apperror kinds survive.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.
func isUniqueViolation(err error) bool {
	var sqErr *msqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	code := sqErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// exists runs a SELECT EXISTS(...) query.
func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var found bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

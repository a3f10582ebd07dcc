// Package sqlite stores users, credentials and classified emails in a local
// SQLite file for single-node deployments.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// DB wraps sqlx.DB
type DB struct {
	*sqlx.DB
}

// Open connects to the database at path, creating its directory when needed.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	return &DB{db}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	google_id TEXT UNIQUE NOT NULL,
	email TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS oauth_credentials (
	id TEXT PRIMARY KEY,
	owner_id TEXT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	provider TEXT NOT NULL,
	access_token TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS classified_emails (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	remote_id TEXT NOT NULL,
	thread_id TEXT NOT NULL DEFAULT '',
	sender TEXT NOT NULL,
	subject TEXT NOT NULL,
	snippet TEXT NOT NULL,
	received_at DATETIME NOT NULL,
	category TEXT NOT NULL,
	urgency INTEGER NOT NULL CHECK (urgency BETWEEN 0 AND 10),
	summary TEXT NOT NULL,
	suggested_reply TEXT,
	archived_at DATETIME,
	created_at DATETIME NOT NULL,
	UNIQUE (user_id, remote_id)
);

CREATE INDEX IF NOT EXISTS idx_classified_emails_inbox
	ON classified_emails (user_id, archived_at, received_at DESC);
`

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

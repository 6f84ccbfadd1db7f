// Package sqlite provides the embedded store used for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
)

// SQLiteConfig holds configuration for the SQLite store.
type SQLiteConfig struct {
	// DatabasePath is the filesystem path of the database file.
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/postboard.db"`
}

// DB is a shared SQLite handle. Writes go through ExecContext or Tx, which
// serialize on one lock because the driver does not support concurrent writers.
type DB struct {
	*sql.DB

	writeLock *sync.Mutex
	log       logging.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT    PRIMARY KEY,
	name          TEXT    NOT NULL,
	email         TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id         TEXT    PRIMARY KEY,
	title      TEXT    NOT NULL,
	content    TEXT    NOT NULL,
	image      TEXT,
	categories TEXT    NOT NULL DEFAULT '[]',
	tags       TEXT    NOT NULL DEFAULT '[]',
	author_id  TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS posts_author_id ON posts (author_id);

CREATE TABLE IF NOT EXISTS post_likes (
	post_id TEXT NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	PRIMARY KEY (post_id, user_id)
);

CREATE TABLE IF NOT EXISTS post_comments (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id   TEXT    NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
	user_id   TEXT    NOT NULL,
	text      TEXT    NOT NULL,
	timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS post_comments_post_id ON post_comments (post_id, id);
`

// Open opens (creating if needed) the database file and applies the schema.
func Open(ctx context.Context, cfg SQLiteConfig) (*DB, error) {
	log := logging.GetLogger("infra.sqlite.db").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+cfg.DatabasePath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	log.DebugContext(ctx, "sqlite opened")

	return &DB{
		DB:        db,
		writeLock: new(sync.Mutex),
		log:       log,
	}, nil
}

// ExecContext runs a write statement under the write lock.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.writeLock.Lock()
	defer db.writeLock.Unlock()

	//nolint:wrapcheck
	return db.DB.ExecContext(ctx, query, args...)
}

// Tx runs fn in a transaction under the write lock, committing if fn succeeds.
func (db *DB) Tx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	db.writeLock.Lock()
	defer db.writeLock.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Ping checks that the database answers.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return errors.Join(domain.ErrStoreUnavailable, fmt.Errorf("ping: %w", err))
	}

	return nil
}

// Close closes the database.
func (db *DB) Close(ctx context.Context) error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	db.log.DebugContext(ctx, "sqlite closed")

	return nil
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}

	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	default:
		return false
	}
}

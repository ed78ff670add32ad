// Package db provides the local job store backed by embedded SQLite.
//
// The store is the single source of truth on this machine. Every mutation is
// committed immediately; remote failures never roll anything back.
//
// Architecture:
//   - Database file: ~/.jobtracker/jobs.db (configurable)
//   - WAL mode: concurrent readers while the tracker writes
//   - Schema: jobs, meta tables
//   - Live snapshots: Watch publishes the full job list after every write
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

// DB wraps the SQLite connection and the set of live snapshot subscribers.
type DB struct {
	conn *sql.DB
	path string

	watchersMu sync.Mutex
	watchers   map[chan []*schema.Job]struct{}
	watchWG    sync.WaitGroup
	done       chan struct{} // closed by Close
}

// Open creates a new database connection at the specified path.
//
// The database is opened with WAL enabled so that queries keep working while a
// sync pass is writing. The caller MUST call Close() when done.
//
// Example:
//
//	store, err := db.Open("~/.jobtracker/jobs.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*DB, error) {
	filePath := strings.TrimPrefix(path, "file:")

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:     conn,
		path:     filePath,
		watchers: make(map[chan []*schema.Job]struct{}),
		done:     make(chan struct{}),
	}

	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// RawDB returns the underlying connection pool.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection and ends all Watch streams.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	db.watchersMu.Lock()
	for ch := range db.watchers {
		close(ch)
		delete(db.watchers, ch)
	}
	db.watchersMu.Unlock()
	close(db.done)
	db.watchWG.Wait()

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// This is idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY,
		company_name TEXT NOT NULL,
		job_url TEXT NOT NULL,
		job_title TEXT NOT NULL DEFAULT '',
		job_description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'SAVED',
		timestamp INTEGER NOT NULL,
		last_modified INTEGER NOT NULL
	);

	-- URL is the join key for sync and duplicate detection
	CREATE INDEX IF NOT EXISTS idx_jobs_url ON jobs(job_url);
	CREATE INDEX IF NOT EXISTS idx_jobs_timestamp ON jobs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

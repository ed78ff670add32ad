package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Well-known meta keys.
const (
	MetaLastSync    = "last_sync"
	MetaLastDeleted = "last_deleted_job"
)

// GetMeta returns the stored value for key and whether it exists.
func (db *DB) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, true, nil
}

// SetMeta stores value under key, replacing any previous value.
func (db *DB) SetMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO meta (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

// DeleteMeta removes key. Missing keys are not an error.
func (db *DB) DeleteMeta(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete meta %s: %w", key, err)
	}
	return nil
}

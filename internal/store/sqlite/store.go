// Package sqlite implements the interaction store backend on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/critiqapp/critiq-sync/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Backend is a store.Backend persisted in a single SQLite file.
type Backend struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ store.Backend = (*Backend)(nil)

// Open creates a new SQLite backend at the given path.
// It configures WAL mode, sets pragmas, and applies the schema.
func Open(path string, logger *slog.Logger) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("sqlite store opened", "path", path)
	}

	return &Backend{db: db, logger: logger, now: time.Now}, nil
}

// Get implements store.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set implements store.Backend.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(b.now()))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete implements store.Backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Scan implements store.Backend.
func (b *Backend) Scan(ctx context.Context, prefix string) iter.Seq2[store.Item, error] {
	return func(yield func(store.Item, error) bool) {
		lo, hi := prefixRange(prefix)

		var (
			rows *sql.Rows
			err  error
		)
		if hi == "" {
			rows, err = b.db.QueryContext(ctx,
				`SELECT key, value FROM entries WHERE key >= ? ORDER BY key`, lo)
		} else {
			rows, err = b.db.QueryContext(ctx,
				`SELECT key, value FROM entries WHERE key >= ? AND key < ? ORDER BY key`, lo, hi)
		}
		if err != nil {
			yield(store.Item{}, fmt.Errorf("scan %s: %w", prefix, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var item store.Item
			if err := rows.Scan(&item.Key, &item.Value); err != nil {
				yield(store.Item{}, fmt.Errorf("scan %s: %w", prefix, err))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(store.Item{}, fmt.Errorf("scan %s: %w", prefix, err))
		}
	}
}

// Replace implements store.Backend.
func (b *Backend) Replace(ctx context.Context, prefix string, items []store.Item) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	lo, hi := prefixRange(prefix)
	if hi == "" {
		_, err = tx.ExecContext(ctx, `DELETE FROM entries WHERE key >= ?`, lo)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM entries WHERE key >= ? AND key < ?`, lo, hi)
	}
	if err != nil {
		return fmt.Errorf("clear %s: %w", prefix, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(b.now())
	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.Key, item.Value, now); err != nil {
			return fmt.Errorf("insert %s: %w", item.Key, err)
		}
	}

	return tx.Commit()
}

// Close closes the underlying database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

// prefixRange returns the half-open key range [lo, hi) covering prefix.
// hi is empty when the range is unbounded above.
func prefixRange(prefix string) (lo, hi string) {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return prefix, string(end[:i+1])
		}
	}
	return prefix, ""
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Package storage journals every trader tick to SQLite so sessions can be replayed.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	json "github.com/goccy/go-json"

	"tickbot-go/internal/signal"
	"tickbot-go/internal/trader"
)

// Entry is one journaled tick: what the trader saw and what it answered.
type Entry struct {
	Seq      int64
	Snapshot signal.Snapshot
	Result   trader.Result
}

// Journal handles persistent storage of ticks in SQLite.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) a journal with WAL mode enabled.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ticks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			snapshot BLOB NOT NULL,
			result BLOB NOT NULL,
			trader_data TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ticks table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Append stores one tick.
func (j *Journal) Append(ctx context.Context, snap signal.Snapshot, res trader.Result) error {
	snapshot, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	result, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		"INSERT INTO ticks (ts, snapshot, result, trader_data) VALUES (?, ?, ?, ?)",
		snap.Timestamp, snapshot, result, res.TraderData,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tick: %w", err)
	}
	return nil
}

// LastTraderData returns the most recent blob the trader handed back, "" for an empty journal.
func (j *Journal) LastTraderData(ctx context.Context) (string, error) {
	var blob string
	err := j.db.QueryRowContext(ctx, "SELECT trader_data FROM ticks ORDER BY id DESC LIMIT 1").Scan(&blob)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last trader data: %w", err)
	}
	return blob, nil
}

// Count returns the number of journaled ticks.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ticks: %w", err)
	}
	return n, nil
}

// Load returns every tick with sequence >= fromSeq in journal order.
func (j *Journal) Load(ctx context.Context, fromSeq int64) ([]Entry, error) {
	var entries []Entry
	err := j.Replay(ctx, fromSeq, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// Replay streams ticks with sequence >= fromSeq to fn, stopping at the first error.
func (j *Journal) Replay(ctx context.Context, fromSeq int64, fn func(Entry) error) error {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, snapshot, result FROM ticks WHERE id >= ? ORDER BY id ASC",
		fromSeq,
	)
	if err != nil {
		return fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry    Entry
			snapshot []byte
			result   []byte
		)
		if err := rows.Scan(&entry.Seq, &snapshot, &result); err != nil {
			return fmt.Errorf("failed to scan tick: %w", err)
		}
		if err := json.Unmarshal(snapshot, &entry.Snapshot); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot %d: %w", entry.Seq, err)
		}
		if err := json.Unmarshal(result, &entry.Result); err != nil {
			return fmt.Errorf("failed to unmarshal result %d: %w", entry.Seq, err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Package storage persists host-shell state across restarts: which alert
// was last surfaced to the user, and the log of surfaced alerts. The
// client caches themselves are deliberately not persisted; only the shell
// needs memory between runs so restarts do not re-announce old alerts.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pinwatch/internal/models"
)

const lastAlertKey = "last_alert_id"

// Storage wraps a SQLite database for shell-state persistence.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/pinwatch/shell.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "pinwatch", "shell.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS shell_state (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS surfaced_alerts (
			alert_id     TEXT PRIMARY KEY,
			market_id    TEXT NOT NULL,
			market_title TEXT,
			change_pct   REAL NOT NULL,
			surfaced_at  INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LastAlertID returns the most recently surfaced alert id, or "" when
// nothing has been surfaced yet.
func (s *Storage) LastAlertID() (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM shell_state WHERE key = ?`, lastAlertKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last alert id: %w", err)
	}
	return value, nil
}

// SetLastAlertID records the most recently surfaced alert id.
func (s *Storage) SetLastAlertID(id string) error {
	_, err := s.db.Exec(
		`INSERT INTO shell_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastAlertKey, id, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store last alert id: %w", err)
	}
	return nil
}

// MarkSurfaced logs an alert as surfaced. Returns false if the alert was
// already logged (a restart must not re-announce it).
func (s *Storage) MarkSurfaced(alert models.AlertItem) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO surfaced_alerts
		 (alert_id, market_id, market_title, change_pct, surfaced_at)
		 VALUES (?, ?, ?, ?, ?)`,
		alert.ID, alert.MarketID, alert.MarketTitle, alert.ChangePct, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to log surfaced alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// SurfacedCount reports how many alerts have been surfaced so far.
func (s *Storage) SurfacedCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM surfaced_alerts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count surfaced alerts: %w", err)
	}
	return n, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-inference-pipeline/internal/model"
)

// ErrNotFound is returned when a stored record does not exist
var ErrNotFound = errors.New("record not found")

// Store persists alerts and benchmark results in SQLite
type Store struct {
	db *sql.DB
}

// Open connects to the database at path and creates missing tables
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers; one connection avoids "database is locked"
	db.SetMaxOpenConns(1)

	alertTable := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		rule_id TEXT,
		severity TEXT,
		source TEXT,
		acknowledged INTEGER,
		payload TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	benchmarkTable := `
	CREATE TABLE IF NOT EXISTS benchmark_results (
		id TEXT PRIMARY KEY,
		name TEXT,
		payload TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{alertTable, benchmarkTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAlert inserts an alert or updates its acknowledgement
func (s *Store) SaveAlert(ctx context.Context, alert model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, rule_id, severity, source, acknowledged, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET acknowledged = excluded.acknowledged, payload = excluded.payload, updated_at = excluded.updated_at`,
		alert.ID, alert.RuleID, string(alert.Severity), string(alert.Source), alert.Acknowledged, string(payload),
		alert.Timestamp.UTC(), now)
	return err
}

// ListAlerts returns up to limit alerts, newest first; limit <= 0 means all.
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM alerts ORDER BY created_at DESC, rowid DESC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var alert model.Alert
		if err := json.Unmarshal([]byte(payload), &alert); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// GetAlert fetches one alert by id
func (s *Store) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM alerts WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Alert{}, err
	}

	var alert model.Alert
	if err := json.Unmarshal([]byte(payload), &alert); err != nil {
		return model.Alert{}, fmt.Errorf("decode alert: %w", err)
	}
	return alert, nil
}

// SaveBenchmarkResult stores a completed result. Results are immutable, so a
// second save of the same id is rejected by the primary key.
func (s *Store) SaveBenchmarkResult(ctx context.Context, result model.BenchmarkResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO benchmark_results (id, name, payload, created_at) VALUES (?, ?, ?, ?)`,
		result.ID, result.Name, string(payload), result.Timestamp.UTC())
	return err
}

// ListBenchmarkResults returns up to limit results, newest first; limit <= 0 means all.
func (s *Store) ListBenchmarkResults(ctx context.Context, limit int) ([]model.BenchmarkResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM benchmark_results ORDER BY created_at DESC, rowid DESC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.BenchmarkResult{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var result model.BenchmarkResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("decode benchmark result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// sqlLimit maps "no limit" onto sqlite's LIMIT -1
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

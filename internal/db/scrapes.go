package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scrape statuses
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Scrape is one row of the scrape log
type Scrape struct {
	ID          string
	Target      string
	StartedAt   time.Time
	Duration    time.Duration
	Status      string
	ErrorClass  string
	Message     string
	Metrics     int
	SmartErrors int
}

// RecordScrape appends a scrape to the log, assigning an ID if it has none
func (d *DB) RecordScrape(ctx context.Context, s *Scrape) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO scrapes (id, target, started_at, duration_ms, status, error_class, message, metrics, smart_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Target, s.StartedAt.UnixMilli(), s.Duration.Milliseconds(), s.Status,
		nullString(s.ErrorClass), nullString(s.Message), s.Metrics, s.SmartErrors)
	if err != nil {
		return fmt.Errorf("failed to record scrape: %w", err)
	}

	return nil
}

// RecentScrapes returns the newest scrapes first, optionally for one target only
func (d *DB) RecentScrapes(ctx context.Context, target string, limit int) ([]*Scrape, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, target, started_at, duration_ms, status, error_class, message, metrics, smart_errors
		FROM scrapes
		WHERE ? = '' OR target = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, target, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrapes: %w", err)
	}
	defer rows.Close()

	return scanScrapes(rows)
}

// PruneScrapes removes scrapes older than the given duration
func (d *DB) PruneScrapes(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	result, err := d.conn.ExecContext(ctx, `DELETE FROM scrapes WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune scrapes: %w", err)
	}
	return result.RowsAffected()
}

func scanScrapes(rows *sql.Rows) ([]*Scrape, error) {
	var scrapes []*Scrape
	for rows.Next() {
		var s Scrape
		var startedAt, durationMs int64
		var errorClass, message sql.NullString

		err := rows.Scan(
			&s.ID, &s.Target, &startedAt, &durationMs, &s.Status,
			&errorClass, &message, &s.Metrics, &s.SmartErrors,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrape: %w", err)
		}

		s.StartedAt = time.UnixMilli(startedAt)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		s.ErrorClass = errorClass.String
		s.Message = message.String

		scrapes = append(scrapes, &s)
	}

	return scrapes, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Package sqlite persists one partition's FinalRecords and checkpoint in a
// single database file. Records and the checkpoint offset commit in the
// same transaction, so the recorded offset can never run ahead of the
// records actually written.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"labelbot/internal/domain"
)

type Store struct {
	db *sql.DB
}

// PartitionPath returns the canonical database path for one partition.
// Parts are numbered from 1.
func PartitionPath(dir string, part int) string {
	return filepath.Join(dir, fmt.Sprintf("part_%d.db", part))
}

// Open creates or opens a partition database and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		idx         INTEGER PRIMARY KEY,
		final_label TEXT,
		strategy    TEXT NOT NULL,
		margin      REAL,
		decided_at  DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS checkpoint (
		id          INTEGER PRIMARY KEY CHECK (id = 1),
		next_offset INTEGER NOT NULL,
		updated_at  DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NextOffset returns the first unprocessed item index for this partition,
// 0 when no checkpoint has ever been written.
func (s *Store) NextOffset() (int, error) {
	var offset int
	err := s.db.QueryRow(`SELECT next_offset FROM checkpoint WHERE id = 1`).Scan(&offset)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading checkpoint: %w", err)
	}
	return offset, nil
}

// Commit appends records and advances the checkpoint in one transaction.
// Re-committing an already-written index is a no-op (INSERT OR IGNORE) and
// the offset never moves backward, so replaying a crashed run cannot
// duplicate output or skip items.
func (s *Store) Commit(records []domain.FinalRecord, nextOffset int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO records (idx, final_label, strategy, margin, decided_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		var label any
		if r.FinalLabel != nil {
			label = string(*r.FinalLabel)
		}
		var margin any
		if r.Margin != nil {
			margin = *r.Margin
		}
		decidedAt := r.DecidedAt
		if decidedAt.IsZero() {
			decidedAt = time.Now()
		}
		if _, err := stmt.Exec(r.Index, label, string(r.Strategy), margin, decidedAt.UTC()); err != nil {
			return fmt.Errorf("inserting record idx=%d: %w", r.Index, err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO checkpoint (id, next_offset, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			next_offset = MAX(next_offset, excluded.next_offset),
			updated_at  = excluded.updated_at`,
		nextOffset, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("advancing checkpoint: %w", err)
	}
	return tx.Commit()
}

// Records returns every committed record in index order.
func (s *Store) Records() ([]domain.FinalRecord, error) {
	rows, err := s.db.Query(
		`SELECT idx, final_label, strategy, margin, decided_at FROM records ORDER BY idx`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.FinalRecord
	for rows.Next() {
		var (
			r      domain.FinalRecord
			label  sql.NullString
			margin sql.NullFloat64
		)
		if err := rows.Scan(&r.Index, &label, &r.Strategy, &margin, &r.DecidedAt); err != nil {
			return nil, err
		}
		if label.Valid {
			l := domain.Label(label.String)
			r.FinalLabel = &l
		}
		if margin.Valid {
			m := margin.Float64
			r.Margin = &m
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecordCount returns the number of committed records.
func (s *Store) RecordCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// StrategyCounts tallies committed records by strategy.
func (s *Store) StrategyCounts() (map[domain.Strategy]int, error) {
	rows, err := s.db.Query(`SELECT strategy, COUNT(*) FROM records GROUP BY strategy`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Strategy]int)
	for rows.Next() {
		var strategy string
		var n int
		if err := rows.Scan(&strategy, &n); err != nil {
			return nil, err
		}
		counts[domain.Strategy(strategy)] = n
	}
	return counts, rows.Err()
}

// LabelCounts tallies resolved records by final label.
func (s *Store) LabelCounts() (map[domain.Label]int, error) {
	rows, err := s.db.Query(
		`SELECT final_label, COUNT(*) FROM records WHERE final_label IS NOT NULL GROUP BY final_label`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Label]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[domain.Label(label)] = n
	}
	return counts, rows.Err()
}

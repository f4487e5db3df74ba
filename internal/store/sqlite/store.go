// Package sqlite persists report rows in a local SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/MrWong99/callsight/internal/report"
)

var _ report.Sink = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS report_rows (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id             TEXT    NOT NULL,
    file               TEXT    NOT NULL,
    total_duration_s   INTEGER NOT NULL DEFAULT 0,
    speaker1_time_s    INTEGER NOT NULL DEFAULT 0,
    speaker2_time_s    INTEGER NOT NULL DEFAULT 0,
    speaker1_sentiment REAL,
    speaker2_sentiment REAL,
    phrase             TEXT    NOT NULL DEFAULT '',
    nearest_phrase     TEXT    NOT NULL DEFAULT '',
    category           TEXT    NOT NULL DEFAULT '',
    type               TEXT    NOT NULL DEFAULT '',
    similarity         REAL,
    llm_response       TEXT    NOT NULL DEFAULT '',
    validated          INTEGER,
    summary            TEXT    NOT NULL DEFAULT '',
    created_at         TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_report_rows_run_id ON report_rows (run_id);
`

// Store writes report rows to a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping checks that the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteRows implements [report.Sink]. Rows are inserted in one transaction.
func (s *Store) WriteRows(ctx context.Context, runID string, rows []report.Row) (err error) {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_rows
		    (run_id, file, total_duration_s, speaker1_time_s, speaker2_time_s,
		     speaker1_sentiment, speaker2_sentiment, phrase, nearest_phrase,
		     category, type, similarity, llm_response, validated, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			runID,
			r.File,
			r.TotalDurationS,
			r.Speaker1TimeS,
			r.Speaker2TimeS,
			nullFloat(r.Speaker1Sentiment),
			nullFloat(r.Speaker2Sentiment),
			r.Phrase,
			r.NearestPhrase,
			r.Category,
			r.Type,
			nullFloat(r.Similarity),
			r.LLMResponse,
			nullBool(r.Validated),
			r.Summary,
		); err != nil {
			return fmt.Errorf("sqlite store: insert row for %s: %w", r.File, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: commit: %w", err)
	}
	return nil
}

// Rows returns the rows written under runID in insertion order.
func (s *Store) Rows(ctx context.Context, runID string) ([]report.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file, total_duration_s, speaker1_time_s, speaker2_time_s,
		       speaker1_sentiment, speaker2_sentiment, phrase, nearest_phrase,
		       category, type, similarity, llm_response, validated, summary
		FROM report_rows
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query rows: %w", err)
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var (
			r          report.Row
			s1, s2, sm sql.NullFloat64
			validated  sql.NullBool
		)
		if err := rows.Scan(&r.File, &r.TotalDurationS, &r.Speaker1TimeS, &r.Speaker2TimeS,
			&s1, &s2, &r.Phrase, &r.NearestPhrase, &r.Category, &r.Type,
			&sm, &r.LLMResponse, &validated, &r.Summary); err != nil {
			return nil, fmt.Errorf("sqlite store: scan row: %w", err)
		}
		r.Speaker1Sentiment = floatPtr(s1)
		r.Speaker2Sentiment = floatPtr(s2)
		r.Similarity = floatPtr(sm)
		if validated.Valid {
			v := validated.Bool
			r.Validated = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunIDs returns the distinct run IDs in the order they were first written.
func (s *Store) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id FROM report_rows GROUP BY run_id ORDER BY MIN(id) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite store: scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MrWong99/callsight/internal/report"
)

// WriteRows implements [report.Sink]. All rows of one call are inserted in a
// single batch inside a transaction.
func (s *Store) WriteRows(ctx context.Context, runID string, rows []report.Row) error {
	if len(rows) == 0 {
		return nil
	}
	const q = `
		INSERT INTO report_rows
		    (run_id, file, total_duration_s, speaker1_time_s, speaker2_time_s,
		     speaker1_sentiment, speaker2_sentiment, phrase, nearest_phrase,
		     category, type, similarity, llm_response, validated, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(q,
			runID,
			r.File,
			r.TotalDurationS,
			r.Speaker1TimeS,
			r.Speaker2TimeS,
			r.Speaker1Sentiment,
			r.Speaker2Sentiment,
			r.Phrase,
			r.NearestPhrase,
			r.Category,
			r.Type,
			r.Similarity,
			r.LLMResponse,
			r.Validated,
			r.Summary,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres store: write rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit: %w", err)
	}
	return nil
}

// Rows returns the report rows written under runID in insertion order.
func (s *Store) Rows(ctx context.Context, runID string) ([]report.Row, error) {
	const q = `
		SELECT file, total_duration_s, speaker1_time_s, speaker2_time_s,
		       speaker1_sentiment, speaker2_sentiment, phrase, nearest_phrase,
		       category, type, similarity, llm_response, validated, summary
		FROM   report_rows
		WHERE  run_id = $1
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.Row, error) {
		var r report.Row
		err := row.Scan(
			&r.File,
			&r.TotalDurationS,
			&r.Speaker1TimeS,
			&r.Speaker2TimeS,
			&r.Speaker1Sentiment,
			&r.Speaker2Sentiment,
			&r.Phrase,
			&r.NearestPhrase,
			&r.Category,
			&r.Type,
			&r.Similarity,
			&r.LLMResponse,
			&r.Validated,
			&r.Summary,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	return out, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlReportRows = `
CREATE TABLE IF NOT EXISTS report_rows (
    id                 BIGSERIAL         PRIMARY KEY,
    run_id             TEXT              NOT NULL,
    file               TEXT              NOT NULL,
    total_duration_s   INTEGER           NOT NULL DEFAULT 0,
    speaker1_time_s    INTEGER           NOT NULL DEFAULT 0,
    speaker2_time_s    INTEGER           NOT NULL DEFAULT 0,
    speaker1_sentiment DOUBLE PRECISION,
    speaker2_sentiment DOUBLE PRECISION,
    phrase             TEXT              NOT NULL DEFAULT '',
    nearest_phrase     TEXT              NOT NULL DEFAULT '',
    category           TEXT              NOT NULL DEFAULT '',
    type               TEXT              NOT NULL DEFAULT '',
    similarity         DOUBLE PRECISION,
    llm_response       TEXT              NOT NULL DEFAULT '',
    validated          BOOLEAN,
    summary            TEXT              NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_report_rows_run_id
    ON report_rows (run_id);

CREATE INDEX IF NOT EXISTS idx_report_rows_file
    ON report_rows (file);
`

// ddlDetections returns the detections DDL with the embedding dimension
// substituted. The dimension is baked into the column type at creation time.
func ddlDetections(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS detections (
    id             UUID              PRIMARY KEY,
    run_id         TEXT              NOT NULL,
    file           TEXT              NOT NULL,
    phrase         TEXT              NOT NULL,
    nearest_phrase TEXT              NOT NULL DEFAULT '',
    category       TEXT              NOT NULL DEFAULT '',
    type           TEXT              NOT NULL DEFAULT '',
    similarity     DOUBLE PRECISION  NOT NULL DEFAULT 0,
    llm_response   TEXT              NOT NULL DEFAULT '',
    embedding      vector(%d),
    created_at     TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_detections_run_id
    ON detections (run_id);

CREATE INDEX IF NOT EXISTS idx_detections_embedding
    ON detections USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates the tables, indexes and the vector extension. It is
// idempotent and safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlReportRows,
		ddlDetections(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/MrWong99/callsight/internal/validate"
)

// StoredDetection is a persisted detection with its cosine distance to a query
// embedding. Distance is zero outside [Store.SimilarDetections].
type StoredDetection struct {
	ID    uuid.UUID
	RunID string
	validate.ValidatedDetection
	Embedding []float32
	Distance  float64
}

// SaveDetections stores detections with their phrase embeddings. vectors must
// be parallel to detections. Each detection gets a fresh random ID, returned
// in input order.
func (s *Store) SaveDetections(ctx context.Context, runID string, detections []validate.ValidatedDetection, vectors [][]float32) ([]uuid.UUID, error) {
	if len(detections) != len(vectors) {
		return nil, fmt.Errorf("postgres store: save detections: %d detections but %d embeddings", len(detections), len(vectors))
	}
	if len(detections) == 0 {
		return nil, nil
	}
	const q = `
		INSERT INTO detections
		    (id, run_id, file, phrase, nearest_phrase, category, type, similarity, llm_response, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ids := make([]uuid.UUID, len(detections))
	batch := &pgx.Batch{}
	for i, d := range detections {
		if len(vectors[i]) != s.dims {
			return nil, fmt.Errorf("postgres store: save detections: embedding %d has %d dimensions, want %d", i, len(vectors[i]), s.dims)
		}
		ids[i] = uuid.New()
		batch.Queue(q,
			ids[i].String(),
			runID,
			d.File,
			d.Phrase,
			d.NearestPhrase,
			d.Category,
			d.Type,
			d.Similarity,
			d.LLMResponse,
			pgvector.NewVector(vectors[i]),
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("postgres store: save detections: %w", err)
	}
	return ids, nil
}

// SimilarDetections returns the topK stored detections whose phrase
// embeddings are closest (cosine distance) to embedding, most similar first.
func (s *Store) SimilarDetections(ctx context.Context, embedding []float32, topK int) ([]StoredDetection, error) {
	if topK <= 0 {
		return []StoredDetection{}, nil
	}
	const q = `
		SELECT id::text, run_id, file, phrase, nearest_phrase, category, type, similarity,
		       llm_response, embedding, embedding <=> $1 AS distance
		FROM   detections
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres store: similar detections: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (StoredDetection, error) {
		var (
			sd  StoredDetection
			id  string
			vec pgvector.Vector
		)
		if err := row.Scan(
			&id,
			&sd.RunID,
			&sd.File,
			&sd.Phrase,
			&sd.NearestPhrase,
			&sd.Category,
			&sd.Type,
			&sd.Similarity,
			&sd.LLMResponse,
			&vec,
			&sd.Distance,
		); err != nil {
			return StoredDetection{}, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return StoredDetection{}, err
		}
		sd.ID = parsed
		sd.Validated = true
		sd.Embedding = vec.Slice()
		return sd, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan detections: %w", err)
	}
	if results == nil {
		results = []StoredDetection{}
	}
	return results, nil
}

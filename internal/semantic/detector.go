package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MrWong99/callsight/internal/catalog"
	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/pkg/provider/embeddings"
)

// DefaultThreshold is the default minimum cosine similarity for acceptance.
const DefaultThreshold = 0.70

// Match is the outcome of comparing one chunk against the catalog. Score is
// the best similarity found and is set even when the chunk is rejected.
type Match struct {
	Accepted bool
	Entry    catalog.Entry
	Score    float64
}

// Detection is one accepted chunk.
type Detection struct {
	File          string  `json:"file"`
	Phrase        string  `json:"phrase"`
	NearestPhrase string  `json:"nearest_phrase"`
	Category      string  `json:"category"`
	Type          string  `json:"type"`
	Similarity    float64 `json:"similarity"`
}

// Detector ranks chunks against precomputed catalog embeddings.
type Detector struct {
	embedder embeddings.Provider
	entries  []catalog.Entry
	vectors  [][]float32
	metrics  *observe.Metrics
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithDetectorMetrics overrides the metrics sink.
func WithDetectorMetrics(m *observe.Metrics) DetectorOption {
	return func(d *Detector) { d.metrics = m }
}

// NewDetector embeds every catalog entry in one batch call. The vectors are
// kept for the lifetime of the Detector.
func NewDetector(ctx context.Context, emb embeddings.Provider, cat *catalog.Catalog, opts ...DetectorOption) (*Detector, error) {
	if emb == nil {
		return nil, errors.New("semantic: embeddings provider must not be nil")
	}
	d := &Detector{embedder: emb, entries: cat.Entries()}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	if len(d.entries) == 0 {
		return nil, fmt.Errorf("semantic: %w", catalog.ErrEmptyCatalog)
	}

	phrases := make([]string, len(d.entries))
	for i, e := range d.entries {
		phrases[i] = e.Phrase
	}
	start := time.Now()
	vecs, err := emb.EmbedBatch(ctx, phrases)
	if err := d.metrics.TimeProvider(ctx, "embeddings", start, err); err != nil {
		return nil, fmt.Errorf("semantic: embed catalog: %w", err)
	}
	if len(vecs) != len(phrases) {
		return nil, fmt.Errorf("semantic: embed catalog: got %d vectors for %d phrases", len(vecs), len(phrases))
	}
	d.vectors = vecs
	return d, nil
}

// Entries returns the catalog entries in ranking order.
func (d *Detector) Entries() []catalog.Entry {
	return append([]catalog.Entry(nil), d.entries...)
}

// Detect embeds chunk and returns its nearest catalog entry. Ties go to the
// entry that comes first in catalog order. The chunk is accepted when the
// best score is at least threshold.
func (d *Detector) Detect(ctx context.Context, chunk string, threshold float64) (Match, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return Match{}, err
	}
	start := time.Now()
	vec, err := d.embedder.Embed(ctx, chunk)
	if err := d.metrics.TimeProvider(ctx, "embeddings", start, err); err != nil {
		return Match{}, fmt.Errorf("semantic: embed chunk: %w", err)
	}

	best, bestScore := -1, math.Inf(-1)
	for i, v := range d.vectors {
		if s := embeddings.CosineSimilarity(vec, v); s > bestScore {
			best, bestScore = i, s
		}
	}
	m := Match{Score: bestScore}
	if bestScore >= threshold {
		m.Accepted = true
		m.Entry = d.entries[best]
	}
	return m, nil
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

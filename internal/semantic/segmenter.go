// Package semantic implements the embedding path of objection detection.
//
// A [Segmenter] turns a turn's text into overlapping sentence windows
// ("chunks"), a [Detector] ranks every chunk against the catalog phrases by
// cosine similarity, and a [Processor] runs both over whole transcripts and
// folders, isolating per-file failures.
//
// Catalog phrase embeddings are computed once in [NewDetector] and reused for
// every comparison for the lifetime of the Detector.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/pkg/provider/segment"
)

var (
	// ErrInvalidWindow is returned for a window size below 1 or a negative overlap.
	ErrInvalidWindow = errors.New("semantic: invalid sentence window")

	// ErrInvalidThreshold is returned for a similarity threshold outside [0,1].
	ErrInvalidThreshold = errors.New("semantic: threshold must be in [0,1]")
)

// Config controls how text is cut into chunks.
type Config struct {
	// WindowSize is the number of sentences per chunk. Must be >= 1.
	WindowSize int

	// Overlap is the number of sentences shared by consecutive windows. The
	// stride is WindowSize-Overlap, never less than 1.
	Overlap int

	// MinSentenceLength drops sentences with fewer characters.
	MinSentenceLength int

	// MinChunkWords drops chunks with fewer whitespace-separated words.
	MinChunkWords int

	// IrrelevantPhrases drops chunks whose lowercased, trimmed text equals one
	// of these.
	IrrelevantPhrases []string
}

// DefaultIrrelevantPhrases are courtesy phrases that never carry an objection.
var DefaultIrrelevantPhrases = []string{
	"buenos dias", "buenas tardes", "buenas noches", "hola", "gracias",
	"muchas gracias", "de nada", "hasta luego", "adios", "vale gracias",
	"si claro", "perfecto gracias", "un momento por favor",
}

// DefaultConfig returns the windowing defaults: three-sentence windows
// sharing one sentence.
func DefaultConfig() Config {
	return Config{
		WindowSize:        3,
		Overlap:           1,
		MinSentenceLength: 10,
		MinChunkWords:     4,
		IrrelevantPhrases: append([]string(nil), DefaultIrrelevantPhrases...),
	}
}

// Validate reports configuration defects.
func (c Config) Validate() error {
	var errs []error
	if c.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("%w: window size %d < 1", ErrInvalidWindow, c.WindowSize))
	}
	if c.Overlap < 0 {
		errs = append(errs, fmt.Errorf("%w: negative overlap %d", ErrInvalidWindow, c.Overlap))
	}
	if c.MinSentenceLength < 0 {
		errs = append(errs, fmt.Errorf("semantic: negative min sentence length %d", c.MinSentenceLength))
	}
	if c.MinChunkWords < 0 {
		errs = append(errs, fmt.Errorf("semantic: negative min chunk words %d", c.MinChunkWords))
	}
	return errors.Join(errs...)
}

// Stride returns the window advance, clamped to 1.
func (c Config) Stride() int {
	return max(1, c.WindowSize-c.Overlap)
}

// ValidateThreshold returns ErrInvalidThreshold when th is outside [0,1].
func ValidateThreshold(th float64) error {
	if th < 0 || th > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, th)
	}
	return nil
}

// Segmenter cuts text into relevant sentence windows. It is safe for
// concurrent use when its sentence provider is.
type Segmenter struct {
	sentences  segment.Provider
	cfg        Config
	irrelevant map[string]struct{}
	metrics    *observe.Metrics
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithSegmenterMetrics overrides the metrics sink.
func WithSegmenterMetrics(m *observe.Metrics) SegmenterOption {
	return func(s *Segmenter) { s.metrics = m }
}

// NewSegmenter validates cfg and returns a Segmenter splitting sentences
// with sp.
func NewSegmenter(sp segment.Provider, cfg Config, opts ...SegmenterOption) (*Segmenter, error) {
	if sp == nil {
		return nil, errors.New("semantic: sentence provider must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Segmenter{
		sentences:  sp,
		cfg:        cfg,
		irrelevant: make(map[string]struct{}, len(cfg.IrrelevantPhrases)),
	}
	for _, p := range cfg.IrrelevantPhrases {
		s.irrelevant[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// Config returns the segmenter configuration.
func (s *Segmenter) Config() Config { return s.cfg }

// Segment returns the relevant chunks of text in order.
func (s *Segmenter) Segment(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	raw, err := s.sentences.Sentences(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("semantic: split sentences: %w", err)
	}

	sentences := make([]string, 0, len(raw))
	for _, sent := range raw {
		sent = strings.TrimSpace(sent)
		if utf8.RuneCountInString(sent) < s.cfg.MinSentenceLength {
			s.metrics.SentencesDropped.Add(ctx, 1)
			continue
		}
		sentences = append(sentences, sent)
	}

	var chunks []string
	for _, w := range windows(len(sentences), s.cfg.WindowSize, s.cfg.Stride()) {
		chunk := strings.Join(sentences[w[0]:w[1]], " ")
		if !s.relevant(chunk) {
			s.metrics.RecordChunk(ctx, observe.OutcomeDiscarded)
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (s *Segmenter) relevant(chunk string) bool {
	if _, ok := s.irrelevant[strings.ToLower(strings.TrimSpace(chunk))]; ok {
		return false
	}
	return len(strings.Fields(chunk)) >= s.cfg.MinChunkWords
}

// windows returns [start,end) bounds of sliding windows over n items. The
// last window is the first one reaching n, so no window is a strict suffix
// of its predecessor. Fewer than size items yield a single window.
func windows(n, size, stride int) [][2]int {
	if n == 0 {
		return nil
	}
	var out [][2]int
	for start := 0; ; start += stride {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
		if end == n {
			return out
		}
	}
}

// Package callmetrics derives talk time and mean sentiment per speaker from
// timestamped transcripts.
package callmetrics

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/internal/transcript"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
)

const stage = "metrics"

// ErrNoTimedTurns is returned when no turn carries a usable timestamp.
var ErrNoTimedTurns = errors.New("callmetrics: no turn with a valid timestamp")

// CallMetrics holds the timing and sentiment figures of one call. A nil
// sentiment means it could not be computed.
type CallMetrics struct {
	File              string   `json:"file"`
	TotalDurationS    int      `json:"total_duration_s"`
	Speaker1TimeS     int      `json:"speaker1_time_s"`
	Speaker2TimeS     int      `json:"speaker2_time_s"`
	Speaker1Sentiment *float64 `json:"speaker1_sentiment"`
	Speaker2Sentiment *float64 `json:"speaker2_sentiment"`
}

// Analyzer computes CallMetrics. It is safe for concurrent use when the
// sentiment provider is.
type Analyzer struct {
	sentiment sentiment.Provider
	workers   int
	metrics   *observe.Metrics
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWorkers sets how many files ProcessDirectory handles at once.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = max(n, 1) }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New returns an Analyzer classifying turns with sp.
func New(sp sentiment.Provider, opts ...Option) *Analyzer {
	a := &Analyzer{sentiment: sp, workers: 1}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

type timedTurn struct {
	speaker int
	at      int
	text    string
}

// Compute derives the metrics of one call. A turn lasts until the next
// timed turn starts; the last turn lasts 0 seconds and negative gaps count
// as 0. Turns without a parsable timestamp are skipped.
func (a *Analyzer) Compute(ctx context.Context, file string, turns []transcript.Turn) (CallMetrics, error) {
	log := observe.Logger(ctx)

	timed := make([]timedTurn, 0, len(turns))
	for i, t := range turns {
		at, err := transcript.ParseTimestamp(t.Timestamp)
		if err != nil {
			log.Warn("callmetrics: skipping turn", "file", file, "index", i, "err", err)
			a.metrics.RecordSkippedTurn(ctx, stage, "timestamp")
			continue
		}
		timed = append(timed, timedTurn{speaker: t.SpeakerNum, at: at, text: t.Text})
	}
	if len(timed) == 0 {
		return CallMetrics{}, ErrNoTimedTurns
	}

	m := CallMetrics{File: file}
	var texts [2][]string
	for i, t := range timed {
		m.TotalDurationS = max(m.TotalDurationS, t.at)
		d := 0
		if i+1 < len(timed) {
			d = max(0, timed[i+1].at-t.at)
		}
		switch t.speaker {
		case 1:
			m.Speaker1TimeS += d
			texts[0] = append(texts[0], t.text)
		case 2:
			m.Speaker2TimeS += d
			texts[1] = append(texts[1], t.text)
		}
	}

	m.Speaker1Sentiment = a.meanSentiment(ctx, file, 1, texts[0])
	m.Speaker2Sentiment = a.meanSentiment(ctx, file, 2, texts[1])
	return m, nil
}

// meanSentiment averages label scores over texts, rounded to 3 decimals. It
// returns nil when any classification fails.
func (a *Analyzer) meanSentiment(ctx context.Context, file string, speaker int, texts []string) *float64 {
	if len(texts) == 0 {
		zero := 0.0
		return &zero
	}
	scores := make(stats.Float64Data, 0, len(texts))
	for _, text := range texts {
		start := time.Now()
		label, err := a.sentiment.Classify(ctx, text)
		if err := a.metrics.TimeProvider(ctx, "sentiment", start, err); err != nil {
			observe.Logger(ctx).Warn("callmetrics: sentiment unavailable",
				"file", file, "speaker", speaker, "err", err)
			return nil
		}
		scores = append(scores, label.Score())
	}
	mean, _ := scores.Mean()
	mean, _ = stats.Round(mean, 3)
	return &mean
}

// ProcessFile parses path and computes its metrics.
func (a *Analyzer) ProcessFile(ctx context.Context, path string) (CallMetrics, error) {
	turns, err := transcript.ParseFile(path)
	if err != nil {
		return CallMetrics{}, fmt.Errorf("callmetrics: %w", err)
	}
	m, err := a.Compute(ctx, filepath.Base(path), turns)
	if err != nil {
		return CallMetrics{}, fmt.Errorf("callmetrics: %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// ProcessDirectory computes metrics for every *.txt transcript in dir, in
// lexical file order. Failing files are logged and omitted.
func (a *Analyzer) ProcessDirectory(ctx context.Context, dir string) ([]CallMetrics, error) {
	ctx, end := a.metrics.StartStage(ctx, "callmetrics.ProcessDirectory")
	defer end()
	log := observe.Logger(ctx)

	files, err := transcript.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("callmetrics: %w", err)
	}

	results := make([]*CallMetrics, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := a.ProcessFile(gctx, path)
			if err != nil {
				log.Warn("callmetrics: skipping file", "file", filepath.Base(path), "err", err)
				a.metrics.RecordFile(gctx, stage, observe.StatusFailed)
				return nil
			}
			a.metrics.RecordFile(gctx, stage, observe.StatusOK)
			results[i] = &m
			return nil
		})
	}
	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	out := make([]CallMetrics, 0, len(files))
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	if waitErr != nil {
		return out, fmt.Errorf("callmetrics: %w", waitErr)
	}
	log.Info("callmetrics: directory done", "dir", dir, "files", len(out))
	return out, nil
}

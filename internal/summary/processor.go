package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/internal/transcript"
)

const stage = "summary"

// Summary is the summary of one call.
type Summary struct {
	File    string `json:"file"`
	Summary string `json:"summary"`
}

// Processor summarises every transcript in a folder.
type Processor struct {
	summariser Summariser
	workers    int
	metrics    *observe.Metrics
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets how many files are summarised at once.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) { p.workers = max(n, 1) }
}

// WithProcessorMetrics overrides the metrics sink.
func WithProcessorMetrics(m *observe.Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor returns a Processor using s.
func NewProcessor(s Summariser, opts ...ProcessorOption) *Processor {
	p := &Processor{summariser: s, workers: 1}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// ProcessDirectory summarises every *.txt transcript in dir in lexical
// order. Files that fail or yield an empty summary are logged and omitted.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) ([]Summary, error) {
	ctx, end := p.metrics.StartStage(ctx, "summary.ProcessDirectory")
	defer end()
	log := observe.Logger(ctx)

	files, err := transcript.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	results := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := filepath.Base(path)
			raw, err := os.ReadFile(path)
			if err == nil {
				results[i], err = p.summariser.Summarise(gctx, string(raw))
			}
			switch {
			case err != nil:
				log.Warn("summary: skipping file", "file", name, "err", err)
				p.metrics.RecordFile(gctx, stage, observe.StatusFailed)
			case results[i] == "":
				log.Warn("summary: no summary produced", "file", name)
				p.metrics.RecordFile(gctx, stage, observe.StatusFailed)
			default:
				p.metrics.RecordFile(gctx, stage, observe.StatusOK)
			}
			return nil
		})
	}
	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	var out []Summary
	for i, s := range results {
		if s != "" {
			out = append(out, Summary{File: filepath.Base(files[i]), Summary: s})
		}
	}
	if waitErr != nil {
		return out, fmt.Errorf("summary: %w", waitErr)
	}
	log.Info("summary: directory done", "dir", dir, "summaries", len(out))
	return out, nil
}

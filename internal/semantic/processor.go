package semantic

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/internal/transcript"
)

const stage = "semantic"

// Stats counts the chunks seen while processing one transcript. Discarded
// chunks are those below the threshold.
type Stats struct {
	Processed int
	Discarded int
	Accepted  int
}

// Processor runs segmentation and detection over transcripts.
type Processor struct {
	seg           *Segmenter
	det           *Detector
	workers       int
	clientOnly    bool
	clientSpeaker int
	metrics       *observe.Metrics
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets how many files ProcessFolder handles at once. Values
// below 1 are treated as 1.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) { p.workers = max(n, 1) }
}

// WithClientOnly restricts processing to turns spoken by speaker.
func WithClientOnly(speaker int) ProcessorOption {
	return func(p *Processor) {
		p.clientOnly = true
		p.clientSpeaker = speaker
	}
}

// WithProcessorMetrics overrides the metrics sink.
func WithProcessorMetrics(m *observe.Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor returns a Processor over seg and det.
func NewProcessor(seg *Segmenter, det *Detector, opts ...ProcessorOption) *Processor {
	p := &Processor{seg: seg, det: det, workers: 1}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// ProcessTranscription segments every turn and returns the accepted chunks
// tagged with file. A provider failure aborts the transcript.
func (p *Processor) ProcessTranscription(ctx context.Context, turns []transcript.Turn, file string, threshold float64) ([]Detection, Stats, error) {
	var stats Stats
	if err := ValidateThreshold(threshold); err != nil {
		return nil, stats, err
	}
	log := observe.Logger(ctx)

	var out []Detection
	for _, turn := range turns {
		if p.clientOnly && turn.SpeakerNum != p.clientSpeaker {
			continue
		}
		chunks, err := p.seg.Segment(ctx, turn.Text)
		if err != nil {
			p.metrics.RecordChunk(ctx, observe.OutcomeFailed)
			return nil, stats, fmt.Errorf("semantic: %s: %w", file, err)
		}
		for _, chunk := range chunks {
			stats.Processed++
			m, err := p.det.Detect(ctx, chunk, threshold)
			if err != nil {
				p.metrics.RecordChunk(ctx, observe.OutcomeFailed)
				return nil, stats, fmt.Errorf("semantic: %s: %w", file, err)
			}
			if !m.Accepted {
				stats.Discarded++
				p.metrics.RecordChunk(ctx, observe.OutcomeRejected)
				log.Debug("semantic: chunk rejected", "file", file, "score", round3(m.Score))
				continue
			}
			stats.Accepted++
			p.metrics.RecordChunk(ctx, observe.OutcomeAccepted)
			out = append(out, Detection{
				File:          file,
				Phrase:        chunk,
				NearestPhrase: m.Entry.Phrase,
				Category:      m.Entry.Category,
				Type:          m.Entry.Type,
				Similarity:    round3(m.Score),
			})
		}
	}
	log.Info("semantic: transcript processed",
		"file", file,
		"chunks_processed", stats.Processed,
		"chunks_discarded", stats.Discarded,
		"objections", stats.Accepted,
	)
	return out, stats, nil
}

// ProcessFolder processes every *.txt transcript in dir in lexical order. A
// file that fails to parse or process is logged and skipped. The returned
// detections keep file order regardless of the worker count.
func (p *Processor) ProcessFolder(ctx context.Context, dir string, threshold float64) ([]Detection, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	ctx, end := p.metrics.StartStage(ctx, "semantic.ProcessFolder")
	defer end()
	log := observe.Logger(ctx)

	files, err := transcript.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("semantic: %w", err)
	}
	if len(files) == 0 {
		log.Warn("semantic: no transcripts found", "dir", dir)
		return nil, nil
	}
	log.Info("semantic: processing folder", "dir", dir, "files", len(files), "workers", p.workers)

	results := make([][]Detection, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.metrics.ActiveFiles.Add(gctx, 1)
			defer p.metrics.ActiveFiles.Add(gctx, -1)

			dets, err := p.processFile(gctx, path, threshold)
			if err != nil {
				log.Warn("semantic: skipping file", "file", filepath.Base(path), "err", err)
				p.metrics.RecordFile(gctx, stage, observe.StatusFailed)
				return nil
			}
			p.metrics.RecordFile(gctx, stage, observe.StatusOK)
			results[i] = dets
			return nil
		})
	}
	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	var out []Detection
	for _, r := range results {
		out = append(out, r...)
	}
	if waitErr != nil {
		return out, fmt.Errorf("semantic: process folder: %w", waitErr)
	}
	log.Info("semantic: folder done", "dir", dir, "detections", len(out))
	return out, nil
}

func (p *Processor) processFile(ctx context.Context, path string, threshold float64) ([]Detection, error) {
	turns, err := transcript.ParseFile(path)
	if err != nil {
		return nil, err
	}
	dets, _, err := p.ProcessTranscription(ctx, turns, filepath.Base(path), threshold)
	return dets, err
}

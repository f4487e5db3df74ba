// Package analyzer turns regex detections into per-call reports and folds
// those reports into corpus-level statistics.
package analyzer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/MrWong99/callsight/internal/objection"
	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/internal/transcript"
)

const stage = "regex"

// DefaultClientSpeaker is the speaker number of the customer in a typical
// two-party call where the agent speaks first.
const DefaultClientSpeaker = 2

// TypeCount is the number of objections of one type in a call.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Report is the regex-path analysis of one call.
type Report struct {
	File            string                `json:"file"`
	TotalTurns      int                   `json:"total_turns"`
	ClientTurns     int                   `json:"client_turns"`
	ObjectionsFound int                   `json:"objections_found"`
	ObjectionTypes  []TypeCount           `json:"objection_types"`
	AvgIntensity    *float64              `json:"avg_intensity,omitempty"`
	Objections      []objection.Objection `json:"objections,omitempty"`
	Turns           []transcript.Turn     `json:"turns,omitempty"`
}

// Config selects what a Report carries.
type Config struct {
	ClientSpeaker      int
	IncludeTurns       bool
	IncludeDetails     bool
	CalculateIntensity bool
}

// DefaultConfig reports details and intensity but not the raw turns.
func DefaultConfig() Config {
	return Config{
		ClientSpeaker:      DefaultClientSpeaker,
		IncludeDetails:     true,
		CalculateIntensity: true,
	}
}

// Analyzer runs the regex detector over whole calls.
type Analyzer struct {
	detector *objection.Detector
	cfg      Config
	metrics  *observe.Metrics
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMetrics overrides the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New returns an Analyzer using det.
func New(det *objection.Detector, cfg Config, opts ...Option) *Analyzer {
	a := &Analyzer{detector: det, cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// Analyze detects objections in turns spoken by clientSpeaker and builds the
// report for file.
func (a *Analyzer) Analyze(ctx context.Context, file string, turns []transcript.Turn, clientSpeaker int) Report {
	objs := a.detector.DetectInConversation(ctx, turns, clientSpeaker)

	r := Report{
		File:            file,
		TotalTurns:      len(turns),
		ObjectionsFound: len(objs),
		ObjectionTypes:  countTypes(objs),
	}
	for _, t := range turns {
		if t.SpeakerNum == clientSpeaker {
			r.ClientTurns++
		}
	}
	if a.cfg.CalculateIntensity {
		avg := AverageIntensity(objs)
		r.AvgIntensity = &avg
	}
	if a.cfg.IncludeDetails {
		r.Objections = objs
	}
	if a.cfg.IncludeTurns {
		r.Turns = turns
	}
	return r
}

// AnalyzeFile parses path and analyzes it with the configured client speaker.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (Report, error) {
	turns, err := transcript.ParseFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("analyzer: %w", err)
	}
	return a.Analyze(ctx, filepath.Base(path), turns, a.cfg.ClientSpeaker), nil
}

// AnalyzeFiles analyzes every path in order. Files that cannot be parsed are
// logged and left out of the result.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) ([]Report, error) {
	ctx, end := a.metrics.StartStage(ctx, "analyzer.AnalyzeFiles")
	defer end()
	log := observe.Logger(ctx)

	reports := make([]Report, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("analyzer: %w", err)
		}
		r, err := a.AnalyzeFile(ctx, path)
		if err != nil {
			log.Warn("analyzer: skipping file", "file", filepath.Base(path), "err", err)
			a.metrics.RecordFile(ctx, stage, observe.StatusFailed)
			continue
		}
		a.metrics.RecordFile(ctx, stage, observe.StatusOK)
		reports = append(reports, r)
	}
	return reports, nil
}

// AnalyzeDir analyzes every *.txt transcript in dir in lexical order.
func (a *Analyzer) AnalyzeDir(ctx context.Context, dir string) ([]Report, error) {
	paths, err := transcript.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}
	return a.AnalyzeFiles(ctx, paths)
}

// AverageIntensity is the mean intensity of objs, or 0 when there are none.
func AverageIntensity(objs []objection.Objection) float64 {
	if len(objs) == 0 {
		return 0
	}
	sum := 0
	for _, o := range objs {
		sum += o.Intensity
	}
	return float64(sum) / float64(len(objs))
}

// countTypes counts objections per type in order of first appearance.
func countTypes(objs []objection.Objection) []TypeCount {
	var out []TypeCount
	index := make(map[string]int)
	for _, o := range objs {
		i, ok := index[o.Type]
		if !ok {
			i = len(out)
			index[o.Type] = i
			out = append(out, TypeCount{Type: o.Type})
		}
		out[i].Count++
	}
	return out
}

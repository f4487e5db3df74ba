package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/MrWong99/callsight/internal/analyzer"
	"github.com/MrWong99/callsight/internal/callmetrics"
	"github.com/MrWong99/callsight/internal/report"
	"github.com/MrWong99/callsight/internal/semantic"
	"github.com/MrWong99/callsight/internal/summary"
	"github.com/MrWong99/callsight/internal/validate"
)

// RegexResult is the content of the regex report file.
type RegexResult struct {
	Summary analyzer.CorpusSummary `json:"summary"`
	Reports []analyzer.Report      `json:"reports"`
}

func (a *App) output(name string) string {
	return filepath.Join(a.cfg.Paths.OutputDir, name)
}

// Clean writes a cleaned copy of every raw transcript to the clean directory
// and returns the number of files written.
func (a *App) Clean(ctx context.Context) (int, error) {
	ctx, end := a.metrics.StartStage(ctx, "app.Clean")
	defer end()

	n, err := a.cleaner.CleanDir(ctx, a.cfg.Paths.RawDir, a.cfg.Paths.CleanDir)
	if err != nil {
		return n, fmt.Errorf("app: clean: %w", err)
	}
	slog.Info("transcripts cleaned", "files", n, "dir", a.cfg.Paths.CleanDir)
	return n, nil
}

// AnalyzeRegex runs the regex detector over the clean directory and writes
// the per-call reports with their corpus summary.
func (a *App) AnalyzeRegex(ctx context.Context) (RegexResult, error) {
	ctx, end := a.metrics.StartStage(ctx, "app.AnalyzeRegex")
	defer end()

	reports, err := a.regex.AnalyzeDir(ctx, a.cfg.Paths.CleanDir)
	if err != nil {
		return RegexResult{}, fmt.Errorf("app: analyze: %w", err)
	}
	res := RegexResult{Summary: analyzer.Summarize(reports), Reports: reports}
	if err := report.WriteJSON(a.output(report.RegexReportsFile), res); err != nil {
		return res, fmt.Errorf("app: analyze: %w", err)
	}
	slog.Info("regex analysis complete",
		"files", res.Summary.TotalFiles,
		"objections", res.Summary.TotalObjections,
		"most_common", res.Summary.MostCommonObjection,
	)
	return res, nil
}

// DetectSemantic runs segmentation and embedding detection over the clean
// directory. A threshold of 0 uses the configured one.
func (a *App) DetectSemantic(ctx context.Context, threshold float64) ([]semantic.Detection, error) {
	ctx, end := a.metrics.StartStage(ctx, "app.DetectSemantic")
	defer end()

	if threshold == 0 {
		threshold = a.cfg.Semantic.Threshold
	}
	if err := semantic.ValidateThreshold(threshold); err != nil {
		return nil, fmt.Errorf("app: detect: %w", err)
	}
	proc, err := a.semanticProcessor(ctx)
	if err != nil {
		return nil, err
	}
	dets, err := proc.ProcessFolder(ctx, a.cfg.Paths.CleanDir, threshold)
	if err != nil {
		return nil, fmt.Errorf("app: detect: %w", err)
	}
	if dets == nil {
		dets = []semantic.Detection{}
	}
	if err := report.WriteJSON(a.output(report.SemanticDetectionsFile), dets); err != nil {
		return dets, fmt.Errorf("app: detect: %w", err)
	}
	slog.Info("semantic detection complete", "detections", len(dets), "threshold", threshold)
	return dets, nil
}

// Validate asks the LLM to confirm every stored semantic detection and writes
// the verdicts. When a detection store is configured, the validated
// detections are also persisted with their phrase embeddings; a failure there
// is logged and does not fail the stage.
func (a *App) Validate(ctx context.Context) ([]validate.ValidatedDetection, error) {
	ctx, end := a.metrics.StartStage(ctx, "app.Validate")
	defer end()

	if a.validator == nil {
		return nil, fmt.Errorf("app: validate: llm: %w", ErrProviderMissing)
	}
	dets, err := report.ReadJSON[[]semantic.Detection](a.output(report.SemanticDetectionsFile))
	if err != nil {
		return nil, fmt.Errorf("app: validate: %w", err)
	}
	validated, err := a.validator.ValidateAll(ctx, dets)
	if err != nil {
		return validated, fmt.Errorf("app: validate: %w", err)
	}
	if validated == nil {
		validated = []validate.ValidatedDetection{}
	}
	if err := report.WriteJSON(a.output(report.ValidatedDetectionsFile), validated); err != nil {
		return validated, fmt.Errorf("app: validate: %w", err)
	}

	accepted := 0
	for _, v := range validated {
		if v.Validated {
			accepted++
		}
	}
	slog.Info("validation complete", "detections", len(validated), "accepted", accepted)

	if err := a.persistDetections(ctx, validated); err != nil {
		slog.Warn("failed to persist validated detections", "run_id", a.runID, "err", err)
	}
	return validated, nil
}

func (a *App) persistDetections(ctx context.Context, validated []validate.ValidatedDetection) error {
	if a.detections == nil || len(validated) == 0 {
		return nil
	}
	if a.providers.Embeddings == nil {
		return fmt.Errorf("embeddings: %w", ErrProviderMissing)
	}
	phrases := make([]string, len(validated))
	for i, v := range validated {
		phrases[i] = v.Phrase
	}
	vectors, err := a.providers.Embeddings.EmbedBatch(ctx, phrases)
	if err != nil {
		return fmt.Errorf("embed phrases: %w", err)
	}
	ids, err := a.detections.SaveDetections(ctx, a.runID, validated, vectors)
	if err != nil {
		return err
	}
	slog.Debug("validated detections persisted", "run_id", a.runID, "count", len(ids))
	return nil
}

// Metrics computes speaking time and sentiment per raw transcript.
func (a *App) Metrics(ctx context.Context) ([]callmetrics.CallMetrics, error) {
	ctx, end := a.metrics.StartStage(ctx, "app.Metrics")
	defer end()

	if a.callMetrics == nil {
		return nil, fmt.Errorf("app: metrics: sentiment: %w", ErrProviderMissing)
	}
	cms, err := a.callMetrics.ProcessDirectory(ctx, a.cfg.Paths.RawDir)
	if err != nil {
		return cms, fmt.Errorf("app: metrics: %w", err)
	}
	if cms == nil {
		cms = []callmetrics.CallMetrics{}
	}
	if err := report.WriteJSON(a.output(report.CallMetricsFile), cms); err != nil {
		return cms, fmt.Errorf("app: metrics: %w", err)
	}
	slog.Info("call metrics complete", "files", len(cms))
	return cms, nil
}

// Summaries writes one LLM summary per raw transcript.
func (a *App) Summaries(ctx context.Context) ([]summary.Summary, error) {
	ctx, end := a.metrics.StartStage(ctx, "app.Summaries")
	defer end()

	if a.summaries == nil {
		return nil, fmt.Errorf("app: summaries: llm: %w", ErrProviderMissing)
	}
	sums, err := a.summaries.ProcessDirectory(ctx, a.cfg.Paths.RawDir)
	if err != nil {
		return sums, fmt.Errorf("app: summaries: %w", err)
	}
	if sums == nil {
		sums = []summary.Summary{}
	}
	if err := report.WriteJSON(a.output(report.CallSummariesFile), sums); err != nil {
		return sums, fmt.Errorf("app: summaries: %w", err)
	}
	slog.Info("summaries complete", "files", len(sums))
	return sums, nil
}

// Report joins call metrics, validated detections and summaries into the
// final CSV and forwards the rows to every sink. Call metrics are required;
// missing detection or summary files are treated as empty.
func (a *App) Report(ctx context.Context) ([]report.Row, error) {
	ctx, end := a.metrics.StartStage(ctx, "app.Report")
	defer end()

	cms, err := report.ReadJSON[[]callmetrics.CallMetrics](a.output(report.CallMetricsFile))
	if err != nil {
		return nil, fmt.Errorf("app: report: %w", err)
	}
	validated, err := readOptional[[]validate.ValidatedDetection](a.output(report.ValidatedDetectionsFile))
	if err != nil {
		return nil, fmt.Errorf("app: report: %w", err)
	}
	sums, err := readOptional[[]summary.Summary](a.output(report.CallSummariesFile))
	if err != nil {
		return nil, fmt.Errorf("app: report: %w", err)
	}

	rows := report.Build(cms, validated, sums)
	if err := report.WriteCSVFile(a.output(report.FinalReportFile), rows); err != nil {
		return rows, fmt.Errorf("app: report: %w", err)
	}

	var errs []error
	for _, s := range a.sinks {
		if err := s.WriteRows(ctx, a.runID, rows); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return rows, fmt.Errorf("app: report: sinks: %w", err)
	}
	slog.Info("final report written", "rows", len(rows), "run_id", a.runID)
	return rows, nil
}

func readOptional[T any](path string) (T, error) {
	v, err := report.ReadJSON[T](path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("input file missing, treating as empty", "path", path)
		var zero T
		return zero, nil
	}
	return v, err
}

// Run executes every stage in pipeline order and stops at the first error.
// Stages whose provider is not configured are skipped with a warning, as are
// the stages that read their output.
func (a *App) Run(ctx context.Context) error {
	steps := []struct {
		name  string
		after string
		fn    func(context.Context) error
	}{
		{"clean", "", func(ctx context.Context) error { _, err := a.Clean(ctx); return err }},
		{"analyze", "", func(ctx context.Context) error { _, err := a.AnalyzeRegex(ctx); return err }},
		{"detect", "", func(ctx context.Context) error { _, err := a.DetectSemantic(ctx, 0); return err }},
		{"validate", "detect", func(ctx context.Context) error { _, err := a.Validate(ctx); return err }},
		{"metrics", "", func(ctx context.Context) error { _, err := a.Metrics(ctx); return err }},
		{"summarize", "", func(ctx context.Context) error { _, err := a.Summaries(ctx); return err }},
		{"report", "metrics", func(ctx context.Context) error { _, err := a.Report(ctx); return err }},
	}
	skipped := make(map[string]bool)
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if skipped[s.after] {
			slog.Warn("stage skipped", "stage", s.name, "missing", s.after)
			a.progress.Skip(s.name, s.after+" skipped")
			skipped[s.name] = true
			continue
		}
		a.progress.Start(s.name)
		err := s.fn(ctx)
		switch {
		case errors.Is(err, ErrProviderMissing):
			slog.Warn("stage skipped", "stage", s.name, "err", err)
			a.progress.Skip(s.name, err.Error())
			skipped[s.name] = true
		case err != nil:
			a.progress.Finish(s.name, err)
			return err
		default:
			a.progress.Finish(s.name, nil)
		}
	}
	return nil
}

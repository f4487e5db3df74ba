// Package app wires the callsight stages into a runnable pipeline.
//
// New builds the catalog, detectors, validator, analyzers and report sinks
// once from the config and the injected providers. Each stage method runs one
// step of the pipeline and hands its result to the next step through a JSON
// file in the configured output directory, so any stage can also run on its
// own. Run executes every stage in order. Close releases the sinks.
//
// For testing, inject sinks and stores via functional options (WithSinks,
// WithDetectionStore, …). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/MrWong99/callsight/internal/analyzer"
	"github.com/MrWong99/callsight/internal/callmetrics"
	"github.com/MrWong99/callsight/internal/catalog"
	"github.com/MrWong99/callsight/internal/config"
	"github.com/MrWong99/callsight/internal/health"
	"github.com/MrWong99/callsight/internal/objection"
	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/internal/report"
	"github.com/MrWong99/callsight/internal/resilience"
	"github.com/MrWong99/callsight/internal/semantic"
	"github.com/MrWong99/callsight/internal/store/postgres"
	"github.com/MrWong99/callsight/internal/store/sqlite"
	"github.com/MrWong99/callsight/internal/summary"
	"github.com/MrWong99/callsight/internal/transcript"
	"github.com/MrWong99/callsight/internal/validate"
	"github.com/MrWong99/callsight/pkg/provider/embeddings"
	"github.com/MrWong99/callsight/pkg/provider/llm"
	"github.com/MrWong99/callsight/pkg/provider/segment"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
)

// ErrProviderMissing is returned by a stage whose provider is not configured.
var ErrProviderMissing = errors.New("app: provider not configured")

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM        llm.Provider
	Embeddings embeddings.Provider
	Segmenter  segment.Provider
	Sentiment  sentiment.Provider
}

// DetectionStore persists validated detections with their phrase embeddings.
type DetectionStore interface {
	SaveDetections(ctx context.Context, runID string, detections []validate.ValidatedDetection, vectors [][]float32) ([]uuid.UUID, error)
}

// App owns the pipeline components and the report sinks.
type App struct {
	cfg       *config.Config
	providers Providers
	runID     string
	metrics   *observe.Metrics

	catalog     *catalog.Catalog
	cleaner     *transcript.Cleaner
	regex       *analyzer.Analyzer
	segmenter   *semantic.Segmenter
	validator   *validate.Validator
	callMetrics *callmetrics.Analyzer
	summaries   *summary.Processor

	sinks      []report.Sink
	sinksSet   bool
	detections DetectionStore
	checkers   []health.Checker
	progress   *health.Progress

	detectorOnce sync.Once
	processor    *semantic.Processor
	detectorErr  error

	// closers are called in order during Close.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCatalog uses cat instead of loading the configured catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(a *App) { a.catalog = cat }
}

// WithSinks replaces the sinks New would open from the store config.
func WithSinks(sinks ...report.Sink) Option {
	return func(a *App) {
		a.sinks = sinks
		a.sinksSet = true
	}
}

// WithDetectionStore persists validated detections in s.
func WithDetectionStore(s DetectionStore) Option {
	return func(a *App) { a.detections = s }
}

// WithRunID tags persisted rows with id instead of a random UUID.
func WithRunID(id string) Option {
	return func(a *App) { a.runID = id }
}

// WithProgress records stage transitions of Run in p.
func WithProgress(p *health.Progress) Option {
	return func(a *App) { a.progress = p }
}

// WithMetrics overrides the metrics sink of every component.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App from cfg and providers. Stages whose provider is nil
// are left unconfigured and fail with [ErrProviderMissing] when run. LLM,
// embeddings and sentiment calls are guarded by circuit breakers.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	if providers != nil {
		a.providers = *providers
	}
	for _, o := range opts {
		o(a)
	}
	if a.runID == "" {
		a.runID = uuid.NewString()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.progress == nil {
		a.progress = health.NewProgress()
	}

	if err := a.initCatalog(); err != nil {
		return nil, err
	}
	a.guardProviders()
	if err := a.initStages(); err != nil {
		return nil, err
	}
	if err := a.initSinks(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	slog.Info("app initialised",
		"run_id", a.runID,
		"patterns", a.catalog.PatternCount(),
		"sinks", len(a.sinks),
	)
	return a, nil
}

// RunID returns the identifier attached to every persisted row.
func (a *App) RunID() string { return a.runID }

// Catalog returns the objection catalog in use.
func (a *App) Catalog() *catalog.Catalog { return a.catalog }

// Progress returns the stage tracker updated by Run.
func (a *App) Progress() *health.Progress { return a.progress }

// Checkers returns readiness probes for the stores opened by New.
func (a *App) Checkers() []health.Checker { return a.checkers }

func (a *App) initCatalog() error {
	if a.catalog == nil {
		if path := a.cfg.Catalog.Path; path != "" {
			cat, err := catalog.Load(path)
			if err != nil {
				return fmt.Errorf("app: %w", err)
			}
			a.catalog = cat
		} else {
			a.catalog = catalog.Default()
		}
	}
	for _, d := range catalog.Lint(a.catalog.Entries(), a.cfg.Catalog.LintSimilarity) {
		slog.Warn("catalog phrases are near-duplicates",
			"a", d.A.Phrase, "a_type", d.A.Type, "a_category", d.A.Category,
			"b", d.B.Phrase, "b_type", d.B.Type, "b_category", d.B.Category,
			"similarity", d.Similarity,
		)
	}
	return nil
}

func (a *App) guardProviders() {
	bc := a.cfg.Validation.Breaker
	breaker := func(name string) *resilience.CircuitBreaker {
		return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         name,
			MaxFailures:  bc.MaxFailures,
			ResetTimeout: bc.ResetTimeout,
		})
	}
	if a.providers.LLM != nil {
		a.providers.LLM = resilience.GuardLLM(a.providers.LLM, breaker("llm"))
	}
	if a.providers.Embeddings != nil {
		a.providers.Embeddings = resilience.GuardEmbeddings(a.providers.Embeddings, breaker("embeddings"))
	}
	if a.providers.Sentiment != nil {
		a.providers.Sentiment = resilience.GuardSentiment(a.providers.Sentiment, breaker("sentiment"))
	}
}

func (a *App) initStages() error {
	cfg := a.cfg

	cl := cfg.Cleaning
	a.cleaner = transcript.NewCleaner(cl.FillerWords,
		transcript.WithAccentNormalization(cl.NormalizeAccents),
		transcript.WithPunctuationRemoval(cl.RemovePunctuation),
	)

	det := objection.New(a.catalog,
		objection.WithContextWindow(cfg.Analysis.ContextWindow),
		objection.WithMetrics(a.metrics),
	)
	a.regex = analyzer.New(det, cfg.Analysis.AnalyzerConfig(), analyzer.WithMetrics(a.metrics))

	if a.providers.Segmenter != nil {
		seg, err := semantic.NewSegmenter(a.providers.Segmenter, cfg.Semantic.SegmenterConfig(),
			semantic.WithSegmenterMetrics(a.metrics))
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.segmenter = seg
	}

	if a.providers.LLM != nil {
		v, err := validate.New(a.providers.LLM, cfg.Validation.ValidatorConfig(), validate.WithMetrics(a.metrics))
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.validator = v

		s := summary.NewLLMSummariser(a.providers.LLM,
			summary.WithMaxTokens(cfg.Summary.MaxTokens),
			summary.WithTemperature(cfg.Summary.Temperature),
			summary.WithMetrics(a.metrics),
		)
		a.summaries = summary.NewProcessor(s,
			summary.WithWorkers(cfg.Semantic.Workers),
			summary.WithProcessorMetrics(a.metrics),
		)
	}

	if a.providers.Sentiment != nil {
		a.callMetrics = callmetrics.New(a.providers.Sentiment,
			callmetrics.WithWorkers(cfg.Semantic.Workers),
			callmetrics.WithMetrics(a.metrics),
		)
	}
	return nil
}

func (a *App) initSinks(ctx context.Context) error {
	if a.sinksSet {
		return nil
	}
	st := a.cfg.Store
	if st.SQLitePath != "" {
		s, err := sqlite.Open(ctx, st.SQLitePath)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.sinks = append(a.sinks, s)
		a.closers = append(a.closers, s.Close)
		a.checkers = append(a.checkers, health.Checker{Name: "sqlite", Check: s.Ping})
	}
	if st.PostgresDSN != "" {
		dims := st.EmbeddingDimensions
		if dims == 0 && a.providers.Embeddings != nil {
			dims = a.providers.Embeddings.Dimensions()
		}
		s, err := postgres.NewStore(ctx, st.PostgresDSN, dims)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.sinks = append(a.sinks, s)
		a.closers = append(a.closers, s.Close)
		a.checkers = append(a.checkers, health.Checker{Name: "postgres", Check: s.Ping})
		if a.detections == nil {
			a.detections = s
		}
	}
	return nil
}

// semanticProcessor embeds the catalog on first use.
func (a *App) semanticProcessor(ctx context.Context) (*semantic.Processor, error) {
	if a.segmenter == nil {
		return nil, fmt.Errorf("app: semantic: segmenter: %w", ErrProviderMissing)
	}
	if a.providers.Embeddings == nil {
		return nil, fmt.Errorf("app: semantic: embeddings: %w", ErrProviderMissing)
	}
	a.detectorOnce.Do(func() {
		det, err := semantic.NewDetector(ctx, a.providers.Embeddings, a.catalog,
			semantic.WithDetectorMetrics(a.metrics))
		if err != nil {
			a.detectorErr = fmt.Errorf("app: %w", err)
			return
		}
		opts := []semantic.ProcessorOption{
			semantic.WithWorkers(a.cfg.Semantic.Workers),
			semantic.WithProcessorMetrics(a.metrics),
		}
		if a.cfg.Semantic.ClientOnly {
			opts = append(opts, semantic.WithClientOnly(a.cfg.Analysis.ClientSpeaker))
		}
		a.processor = semantic.NewProcessor(a.segmenter, det, opts...)
	})
	return a.processor, a.detectorErr
}

// Close releases every sink opened by New. Only the first call has an effect.
func (a *App) Close() error {
	var closeErr error
	a.stopOnce.Do(func() {
		var errs []error
		for _, closer := range a.closers {
			if err := closer(); err != nil {
				errs = append(errs, err)
			}
		}
		closeErr = errors.Join(errs...)
	})
	return closeErr
}

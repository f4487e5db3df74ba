package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/callsight/internal/config"
	"github.com/MrWong99/callsight/internal/validate"
	"github.com/MrWong99/callsight/pkg/provider/embeddings"
	embmock "github.com/MrWong99/callsight/pkg/provider/embeddings/mock"
	"github.com/MrWong99/callsight/pkg/provider/llm"
	llmmock "github.com/MrWong99/callsight/pkg/provider/llm/mock"
	"github.com/MrWong99/callsight/pkg/provider/segment"
	segmock "github.com/MrWong99/callsight/pkg/provider/segment/mock"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
	sentmock "github.com/MrWong99/callsight/pkg/provider/sentiment/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
log_level: debug

providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  embeddings:
    name: openai
    model: text-embedding-3-small
  segmenter:
    name: remote
    base_url: http://localhost:8090
    options:
      language: es
  sentiment:
    name: remote
    base_url: http://localhost:8091

semantic:
  threshold: 0.8
  window_size: 2
  overlap: 0
  workers: 4

validation:
  keywords: ["si", "vale"]
  breaker:
    max_failures: 3
    reset_timeout: 10s

store:
  sqlite_path: output/callsight.sqlite
  embedding_dimensions: 1536
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q, want %q", cfg.LogLevel, config.LogDebug)
	}
	if cfg.Providers.LLM.Name != "openai" || cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("providers.llm: got %+v", cfg.Providers.LLM)
	}
	if got := config.OptString(cfg.Providers.Segmenter.Options, "language"); got != "es" {
		t.Errorf("providers.segmenter.options.language: got %q, want es", got)
	}
	if cfg.Semantic.Threshold != 0.8 || cfg.Semantic.WindowSize != 2 || cfg.Semantic.Overlap != 0 || cfg.Semantic.Workers != 4 {
		t.Errorf("semantic: got %+v", cfg.Semantic)
	}
	if cfg.Validation.Breaker.ResetTimeout != 10*time.Second || cfg.Validation.Breaker.MaxFailures != 3 {
		t.Errorf("validation.breaker: got %+v", cfg.Validation.Breaker)
	}
	if len(cfg.Validation.Keywords) != 2 {
		t.Errorf("validation.keywords: got %v", cfg.Validation.Keywords)
	}
	if cfg.Store.EmbeddingDimensions != 1536 {
		t.Errorf("store.embedding_dimensions: got %d, want 1536", cfg.Store.EmbeddingDimensions)
	}

	// Omitted keys keep their defaults.
	def := config.Default()
	if cfg.Semantic.MinSentenceLength != def.Semantic.MinSentenceLength {
		t.Errorf("semantic.min_sentence_length: got %d, want default %d", cfg.Semantic.MinSentenceLength, def.Semantic.MinSentenceLength)
	}
	if cfg.Analysis.ClientSpeaker != 2 || cfg.Analysis.ContextWindow != 100 {
		t.Errorf("analysis: got %+v", cfg.Analysis)
	}
	if cfg.Paths.OutputDir != "output" {
		t.Errorf("paths.output_dir: got %q", cfg.Paths.OutputDir)
	}
}

func TestLoadFromReader_EmptyIsDefault(t *testing.T) {
	for _, doc := range []string{"", "{}"} {
		cfg, err := config.LoadFromReader(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", doc, err)
		}
		if cfg.Semantic.Threshold != 0.70 {
			t.Errorf("%q: threshold = %v, want 0.70", doc, cfg.Semantic.Threshold)
		}
		if cfg.Validation.MaxTokens != 10 || cfg.Summary.MaxTokens != 150 {
			t.Errorf("%q: max tokens = %d/%d, want 10/150", doc, cfg.Validation.MaxTokens, cfg.Summary.MaxTokens)
		}
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("semantic:\n  treshold: 0.5\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.SQLitePath != "output/callsight.sqlite" {
		t.Errorf("store.sqlite_path: got %q", cfg.Store.SQLitePath)
	}

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load example: %v", err)
	}
	if cfg.Validation.Breaker.ResetTimeout != 30*time.Second {
		t.Errorf("breaker reset_timeout = %v, want 30s", cfg.Validation.Breaker.ResetTimeout)
	}
	if cfg.Store.SQLitePath != "output/callsight.db" {
		t.Errorf("sqlite_path = %q", cfg.Store.SQLitePath)
	}
	if got := config.OptInt(cfg.Providers.Sentiment.Options, "max_tokens"); got != 5 {
		t.Errorf("sentiment max_tokens = %d, want 5", got)
	}
	if len(cfg.Cleaning.FillerWords) == 0 {
		t.Error("omitted filler_words should keep the defaults")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"log level", "log_level: verbose", "log_level"},
		{"threshold above one", "semantic:\n  threshold: 1.5", "semantic.threshold"},
		{"negative threshold", "semantic:\n  threshold: -0.1", "semantic.threshold"},
		{"window size", "semantic:\n  window_size: 0", "window"},
		{"negative overlap", "semantic:\n  overlap: -1", "overlap"},
		{"negative workers", "semantic:\n  workers: -2", "semantic.workers"},
		{"negative context window", "analysis:\n  context_window: -1", "analysis.context_window"},
		{"empty keywords", "validation:\n  keywords: []", "validation.keywords"},
		{"blank keyword", "validation:\n  keywords: [\"SI\", \" \"]", "validation.keywords[1]"},
		{"template missing phrase", "validation:\n  prompt_template: \"{{.Category}} {{.Type}}\"", "Phrase"},
		{"template unparsable", "validation:\n  prompt_template: \"{{.Category\"", "prompt_template"},
		{"temperature", "validation:\n  temperature: 2.5", "validation.temperature"},
		{"summary temperature", "summary:\n  temperature: -1", "summary.temperature"},
		{"dimensions", "store:\n  embedding_dimensions: -1", "store.embedding_dimensions"},
		{"lint similarity", "catalog:\n  lint_similarity: 1.2", "catalog.lint_similarity"},
		{"postgres without embeddings", "providers:\n  embeddings:\n    name: \"\"\nstore:\n  postgres_dsn: postgres://x", "postgres_dsn"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error should mention %q, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidate_Sentinels(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("validation:\n  keywords: []\n  prompt_template: \"{{.Type}}\""))
	if !errors.Is(err, validate.ErrNoKeywords) {
		t.Errorf("expected ErrNoKeywords, got %v", err)
	}
	if !errors.Is(err, validate.ErrInvalidTemplate) {
		t.Errorf("expected ErrInvalidTemplate, got %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	yaml := `
log_level: loud
semantic:
  threshold: 2
validation:
  temperature: 3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"log_level", "semantic.threshold", "validation.temperature"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_OverlapNotSmallerIsAccepted(t *testing.T) {
	if _, err := config.LoadFromReader(strings.NewReader("semantic:\n  window_size: 2\n  overlap: 3")); err != nil {
		t.Fatalf("overlap >= window_size should only warn, got %v", err)
	}
}

func TestValidate_UnknownProviderIsWarning(t *testing.T) {
	if _, err := config.LoadFromReader(strings.NewReader("providers:\n  llm:\n    name: fakecloud")); err != nil {
		t.Fatalf("unknown provider should only warn, got %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	for _, kind := range []string{"llm", "embeddings", "segmenter", "sentiment"} {
		if len(config.ValidProviderNames[kind]) == 0 {
			t.Errorf("no known provider names for %q", kind)
		}
	}
}

func TestComponentConfigs(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Semantic.SegmenterConfig().Validate(); err != nil {
		t.Errorf("default segmenter config invalid: %v", err)
	}
	vc := cfg.Validation.ValidatorConfig()
	if vc.MaxTokens != 10 || len(vc.Keywords) != 3 {
		t.Errorf("validator config: got %+v", vc)
	}
	ac := cfg.Analysis.AnalyzerConfig()
	if ac.ClientSpeaker != 2 || !ac.IncludeDetails || !ac.CalculateIntensity || ac.IncludeTurns {
		t.Errorf("analyzer config: got %+v", ac)
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	reg := config.NewRegistry()
	entry := config.ProviderEntry{Name: "nope"}
	checks := map[string]func() error{
		"llm":        func() error { _, err := reg.CreateLLM(entry); return err },
		"embeddings": func() error { _, err := reg.CreateEmbeddings(entry); return err },
		"segmenter":  func() error { _, err := reg.CreateSegmenter(entry); return err },
		"sentiment":  func() error { _, err := reg.CreateSentiment(entry); return err },
	}
	for kind, create := range checks {
		err := create()
		if !errors.Is(err, config.ErrProviderNotRegistered) {
			t.Errorf("%s: expected ErrProviderNotRegistered, got %v", kind, err)
		}
		if err != nil && !strings.Contains(err.Error(), kind) {
			t.Errorf("%s: error should name the kind, got %v", kind, err)
		}
	}
}

func TestRegistry_Registered(t *testing.T) {
	reg := config.NewRegistry()
	wantLLM := &llmmock.Provider{}
	wantEmb := &embmock.Provider{}
	wantSeg := &segmock.Provider{}
	wantSent := &sentmock.Provider{}

	var gotEntry config.ProviderEntry
	reg.RegisterLLM("stub", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return wantLLM, nil
	})
	reg.RegisterEmbeddings("stub", func(config.ProviderEntry) (embeddings.Provider, error) { return wantEmb, nil })
	reg.RegisterSegmenter("stub", func(config.ProviderEntry) (segment.Provider, error) { return wantSeg, nil })
	reg.RegisterSentiment("stub", func(config.ProviderEntry) (sentiment.Provider, error) { return wantSent, nil })

	entry := config.ProviderEntry{Name: "stub", Model: "m"}
	if got, err := reg.CreateLLM(entry); err != nil || got != wantLLM {
		t.Errorf("CreateLLM: got %v, %v", got, err)
	}
	if gotEntry.Model != "m" {
		t.Errorf("factory received entry %+v", gotEntry)
	}
	if got, err := reg.CreateEmbeddings(entry); err != nil || got != wantEmb {
		t.Errorf("CreateEmbeddings: got %v, %v", got, err)
	}
	if got, err := reg.CreateSegmenter(entry); err != nil || got != wantSeg {
		t.Errorf("CreateSegmenter: got %v, %v", got, err)
	}
	if got, err := reg.CreateSentiment(entry); err != nil || got != wantSent {
		t.Errorf("CreateSentiment: got %v, %v", got, err)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterLLM("broken", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

func TestOptHelpers(t *testing.T) {
	opts := map[string]any{"language": "es", "timeout_s": 5, "ratio": 2.9, "bad": true}
	if got := config.OptString(opts, "language"); got != "es" {
		t.Errorf("OptString = %q", got)
	}
	if got := config.OptString(opts, "bad"); got != "" {
		t.Errorf("OptString(non-string) = %q", got)
	}
	if got := config.OptString(nil, "language"); got != "" {
		t.Errorf("OptString(nil) = %q", got)
	}
	if got := config.OptInt(opts, "timeout_s"); got != 5 {
		t.Errorf("OptInt = %d", got)
	}
	if got := config.OptInt(opts, "ratio"); got != 2 {
		t.Errorf("OptInt(float) = %d", got)
	}
	if got := config.OptInt(opts, "missing"); got != 0 {
		t.Errorf("OptInt(missing) = %d", got)
	}
}

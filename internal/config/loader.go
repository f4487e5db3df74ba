package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/callsight/internal/semantic"
	"github.com/MrWong99/callsight/internal/validate"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "openai-direct", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
	"segmenter":  {"rules", "remote"},
	"sentiment":  {"llm", "remote"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("segmenter", cfg.Providers.Segmenter.Name)
	validateProviderName("sentiment", cfg.Providers.Sentiment.Name)

	if cfg.Catalog.LintSimilarity < 0 || cfg.Catalog.LintSimilarity > 1 {
		errs = append(errs, fmt.Errorf("catalog.lint_similarity %v is out of range [0, 1]", cfg.Catalog.LintSimilarity))
	}

	// Analysis
	if cfg.Analysis.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("analysis.context_window %d must not be negative", cfg.Analysis.ContextWindow))
	}

	// Semantic
	sem := cfg.Semantic
	if err := semantic.ValidateThreshold(sem.Threshold); err != nil {
		errs = append(errs, fmt.Errorf("semantic.threshold: %w", err))
	}
	if err := sem.SegmenterConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("semantic: %w", err))
	}
	if sem.Workers < 0 {
		errs = append(errs, fmt.Errorf("semantic.workers %d must not be negative", sem.Workers))
	}
	if sem.WindowSize >= 1 && sem.Overlap >= sem.WindowSize {
		slog.Warn("semantic.overlap is not smaller than window_size; windows advance one sentence at a time",
			"window_size", sem.WindowSize,
			"overlap", sem.Overlap,
		)
	}

	// Validation
	val := cfg.Validation
	if len(val.Keywords) == 0 {
		errs = append(errs, fmt.Errorf("validation.keywords: %w", validate.ErrNoKeywords))
	}
	for i, k := range val.Keywords {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, fmt.Errorf("validation.keywords[%d] is blank", i))
		}
	}
	if _, err := validate.ParseTemplate(val.PromptTemplate); err != nil {
		errs = append(errs, fmt.Errorf("validation.prompt_template: %w", err))
	}
	if val.Temperature < 0 || val.Temperature > 2 {
		errs = append(errs, fmt.Errorf("validation.temperature %v is out of range [0, 2]", val.Temperature))
	}
	if val.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("validation.max_tokens %d must not be negative", val.MaxTokens))
	}
	if val.Breaker.MaxFailures < 0 || val.Breaker.ResetTimeout < 0 {
		errs = append(errs, errors.New("validation.breaker values must not be negative"))
	}

	// Summary
	if cfg.Summary.Temperature < 0 || cfg.Summary.Temperature > 2 {
		errs = append(errs, fmt.Errorf("summary.temperature %v is out of range [0, 2]", cfg.Summary.Temperature))
	}
	if cfg.Summary.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("summary.max_tokens %d must not be negative", cfg.Summary.MaxTokens))
	}

	// Store
	if cfg.Store.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("store.embedding_dimensions %d must not be negative", cfg.Store.EmbeddingDimensions))
	}
	if cfg.Store.PostgresDSN != "" && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("store.postgres_dsn requires providers.embeddings to embed detection phrases"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

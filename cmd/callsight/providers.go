package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/callsight/internal/app"
	"github.com/MrWong99/callsight/internal/config"
	"github.com/MrWong99/callsight/pkg/provider/embeddings"
	ollamaembed "github.com/MrWong99/callsight/pkg/provider/embeddings/ollama"
	oaembed "github.com/MrWong99/callsight/pkg/provider/embeddings/openai"
	"github.com/MrWong99/callsight/pkg/provider/llm"
	"github.com/MrWong99/callsight/pkg/provider/llm/anyllm"
	oallm "github.com/MrWong99/callsight/pkg/provider/llm/openai"
	"github.com/MrWong99/callsight/pkg/provider/segment"
	segremote "github.com/MrWong99/callsight/pkg/provider/segment/remote"
	"github.com/MrWong99/callsight/pkg/provider/segment/rules"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
	"github.com/MrWong99/callsight/pkg/provider/sentiment/llmsentiment"
	sentremote "github.com/MrWong99/callsight/pkg/provider/sentiment/remote"
)

// llmSentiment is the sentiment provider name backed by the configured LLM.
// It is built after the LLM instead of through the registry.
const llmSentiment = "llm"

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	for _, providerName := range anyllm.SupportedProviders {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	reg.RegisterLLM("openai-direct", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		if org := config.OptString(entry.Options, "organization"); org != "" {
			opts = append(opts, oallm.WithOrganization(org))
		}
		if secs := config.OptInt(entry.Options, "timeout_seconds"); secs > 0 {
			opts = append(opts, oallm.WithTimeout(time.Duration(secs)*time.Second))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────
	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		if dims := config.OptInt(entry.Options, "dimensions"); dims > 0 {
			opts = append(opts, oaembed.WithDimensions(dims))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []ollamaembed.Option
		if dims := config.OptInt(entry.Options, "dimensions"); dims > 0 {
			opts = append(opts, ollamaembed.WithDimensions(dims))
		}
		if secs := config.OptInt(entry.Options, "timeout_seconds"); secs > 0 {
			opts = append(opts, ollamaembed.WithTimeout(time.Duration(secs)*time.Second))
		}
		return ollamaembed.New(entry.BaseURL, entry.Model, opts...)
	})

	// ── Segmenter ─────────────────────────────────────────────────────────────
	reg.RegisterSegmenter("rules", func(config.ProviderEntry) (segment.Provider, error) {
		return rules.New(), nil
	})

	reg.RegisterSegmenter("remote", func(entry config.ProviderEntry) (segment.Provider, error) {
		var opts []segremote.Option
		if lang := config.OptString(entry.Options, "language"); lang != "" {
			opts = append(opts, segremote.WithLanguage(lang))
		}
		if secs := config.OptInt(entry.Options, "timeout_seconds"); secs > 0 {
			opts = append(opts, segremote.WithTimeout(time.Duration(secs)*time.Second))
		}
		return segremote.New(entry.BaseURL, opts...)
	})

	// ── Sentiment ─────────────────────────────────────────────────────────────
	reg.RegisterSentiment("remote", func(entry config.ProviderEntry) (sentiment.Provider, error) {
		timeout := 30 * time.Second
		if secs := config.OptInt(entry.Options, "timeout_seconds"); secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
		return sentremote.New(entry.BaseURL, timeout)
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry.
// An empty name leaves the slot nil so the stages that need it are skipped.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	var err error

	if ps.LLM, err = create("llm", cfg.Providers.LLM, reg.CreateLLM); err != nil {
		return nil, err
	}
	if ps.Embeddings, err = create("embeddings", cfg.Providers.Embeddings, reg.CreateEmbeddings); err != nil {
		return nil, err
	}
	if ps.Segmenter, err = create("segmenter", cfg.Providers.Segmenter, reg.CreateSegmenter); err != nil {
		return nil, err
	}

	entry := cfg.Providers.Sentiment
	if entry.Name == llmSentiment {
		if ps.LLM == nil {
			slog.Warn("llm sentiment needs an llm provider; call metrics disabled")
			return ps, nil
		}
		var opts []llmsentiment.Option
		if n := config.OptInt(entry.Options, "max_tokens"); n > 0 {
			opts = append(opts, llmsentiment.WithMaxTokens(n))
		}
		ps.Sentiment = llmsentiment.New(ps.LLM, opts...)
		slog.Info("provider created", "kind", "sentiment", "name", entry.Name)
		return ps, nil
	}
	if ps.Sentiment, err = create("sentiment", entry, reg.CreateSentiment); err != nil {
		return nil, err
	}
	return ps, nil
}

// create builds one provider. Unregistered names are logged and yield the
// zero value.
func create[P any](kind string, entry config.ProviderEntry, factory func(config.ProviderEntry) (P, error)) (P, error) {
	var zero P
	if entry.Name == "" {
		return zero, nil
	}
	p, err := factory(entry)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("unknown provider, skipping", "kind", kind, "name", entry.Name)
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("create %s provider %q: %w", kind, entry.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", entry.Name)
	return p, nil
}

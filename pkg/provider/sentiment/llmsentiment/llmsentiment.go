// Package llmsentiment classifies sentiment by asking an LLM for a single
// POS, NEU or NEG label.
package llmsentiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/callsight/pkg/provider/llm"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
)

const systemPrompt = `Eres un clasificador de sentimiento para transcripciones de llamadas comerciales en español.
Responde únicamente con una etiqueta: POS, NEU o NEG.`

var _ sentiment.Provider = (*Classifier)(nil)

// Classifier implements sentiment.Provider on top of an llm.Provider.
type Classifier struct {
	llm       llm.Provider
	maxTokens int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(c *Classifier) { c.maxTokens = n }
}

// New returns a Classifier backed by provider.
func New(provider llm.Provider, opts ...Option) *Classifier {
	c := &Classifier{llm: provider, maxTokens: 5}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify implements sentiment.Provider. An unrecognised reply is treated as
// neutral and logged.
func (c *Classifier) Classify(ctx context.Context, text string) (sentiment.Label, error) {
	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: text}},
		MaxTokens:    c.maxTokens,
		Temperature:  0,
	})
	if err != nil {
		return "", fmt.Errorf("llmsentiment: classify: %w", err)
	}
	label, ok := sentiment.ParseLabel(resp.Content)
	if !ok {
		slog.Warn("llmsentiment: unrecognised label, using neutral", "reply", resp.Content)
		return sentiment.Neutral, nil
	}
	return label, nil
}

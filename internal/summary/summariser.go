// Package summary produces short natural-language summaries of calls.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/pkg/provider/llm"
)

// summarisationPrompt asks for a two-line Spanish summary.
const summarisationPrompt = `Resume la siguiente conversación telefónica en español en un máximo de dos líneas, destacando lo más importante.`

// contextRatio is the share of the model's context window the prompt may use.
const contextRatio = 0.75

const (
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.0
)

// ErrPromptTooLong is returned when not even a truncated transcript fits the
// model's context window.
var ErrPromptTooLong = errors.New("summary: transcript does not fit the context window")

// Summariser produces a concise summary of a call transcript.
type Summariser interface {
	// Summarise returns the summary of text, or "" for a blank transcript.
	Summarise(ctx context.Context, text string) (string, error)
}

// LLMSummariser uses an LLM provider to summarise calls.
type LLMSummariser struct {
	llm         llm.Provider
	maxTokens   int
	temperature float64
	metrics     *observe.Metrics
}

// Option configures an LLMSummariser.
type Option func(*LLMSummariser)

// WithMaxTokens caps the summary length. Default: DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(s *LLMSummariser) { s.maxTokens = n }
}

// WithTemperature sets the sampling temperature. Default: 0.
func WithTemperature(t float64) Option {
	return func(s *LLMSummariser) { s.temperature = t }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *LLMSummariser) { s.metrics = m }
}

// NewLLMSummariser creates a new [LLMSummariser] backed by the given provider.
func NewLLMSummariser(provider llm.Provider, opts ...Option) *LLMSummariser {
	s := &LLMSummariser{llm: provider, maxTokens: DefaultMaxTokens, temperature: DefaultTemperature}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Summarise sends text to the LLM with the summarisation prompt. Transcripts
// that exceed the model's context budget are cut from the end.
func (s *LLMSummariser) Summarise(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	text, err := s.fit(text)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: summarisationPrompt,
		Messages:     []llm.Message{{Role: "user", Content: text}},
		MaxTokens:    s.maxTokens,
		Temperature:  s.temperature,
	})
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err := s.metrics.TimeProvider(ctx, "llm", start, err); err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// fit shortens text until the request fits contextRatio of the model's
// context window minus the completion budget. Models that report no context
// window are not checked.
func (s *LLMSummariser) fit(text string) (string, error) {
	window := s.llm.Capabilities().ContextWindow
	if window <= 0 {
		return text, nil
	}
	budget := int(float64(window)*contextRatio) - s.maxTokens
	if budget <= 0 {
		return "", ErrPromptTooLong
	}

	for {
		n, err := s.llm.CountTokens([]llm.Message{
			{Role: "system", Content: summarisationPrompt},
			{Role: "user", Content: text},
		})
		if err != nil {
			return "", fmt.Errorf("summarise: count tokens: %w", err)
		}
		if n <= budget {
			return text, nil
		}
		runes := []rune(text)
		keep := min(len(runes)*budget/n, len(runes)-1)
		if keep <= 0 {
			return "", ErrPromptTooLong
		}
		text = string(runes[:keep])
	}
}

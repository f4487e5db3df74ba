package resilience

import (
	"context"

	"github.com/MrWong99/callsight/pkg/provider/embeddings"
	"github.com/MrWong99/callsight/pkg/provider/llm"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
)

var (
	_ llm.Provider        = (*guardedLLM)(nil)
	_ embeddings.Provider = (*guardedEmbeddings)(nil)
	_ sentiment.Provider  = (*guardedSentiment)(nil)
)

// GuardLLM routes Complete through cb. Token counting and capabilities are
// local and bypass the breaker.
func GuardLLM(p llm.Provider, cb *CircuitBreaker) llm.Provider {
	return &guardedLLM{Provider: p, cb: cb}
}

type guardedLLM struct {
	llm.Provider
	cb *CircuitBreaker
}

func (g *guardedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var resp *llm.CompletionResponse
	err := g.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		resp, err = g.Provider.Complete(ctx, req)
		return err
	})
	return resp, err
}

// GuardEmbeddings routes Embed and EmbedBatch through cb.
func GuardEmbeddings(p embeddings.Provider, cb *CircuitBreaker) embeddings.Provider {
	return &guardedEmbeddings{Provider: p, cb: cb}
}

type guardedEmbeddings struct {
	embeddings.Provider
	cb *CircuitBreaker
}

func (g *guardedEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := g.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		vec, err = g.Provider.Embed(ctx, text)
		return err
	})
	return vec, err
}

func (g *guardedEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := g.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		vecs, err = g.Provider.EmbedBatch(ctx, texts)
		return err
	})
	return vecs, err
}

// GuardSentiment routes Classify through cb.
func GuardSentiment(p sentiment.Provider, cb *CircuitBreaker) sentiment.Provider {
	return &guardedSentiment{Provider: p, cb: cb}
}

type guardedSentiment struct {
	sentiment.Provider
	cb *CircuitBreaker
}

func (g *guardedSentiment) Classify(ctx context.Context, text string) (sentiment.Label, error) {
	var label sentiment.Label
	err := g.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		label, err = g.Provider.Classify(ctx, text)
		return err
	})
	return label, err
}

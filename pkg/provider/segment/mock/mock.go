// Package mock provides a test double for segment.Provider.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/MrWong99/callsight/pkg/provider/segment"
)

// Provider is a mock segment.Provider. When SentencesFunc is nil, text is
// split on "." and every non-blank piece is returned with its period.
type Provider struct {
	mu sync.Mutex

	SentencesFunc func(text string) ([]string, error)
	Err           error

	Calls []string
}

// Sentences records the call and returns the configured split.
func (p *Provider) Sentences(_ context.Context, text string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.SentencesFunc != nil {
		return p.SentencesFunc(text)
	}
	var out []string
	for _, part := range strings.Split(text, ".") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part+".")
		}
	}
	return out, nil
}

// CallCount returns the number of Sentences calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

var _ segment.Provider = (*Provider)(nil)

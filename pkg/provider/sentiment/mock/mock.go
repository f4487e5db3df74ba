// Package mock provides a test double for sentiment.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/callsight/pkg/provider/sentiment"
)

// Provider is a mock sentiment.Provider. ClassifyFunc takes precedence over
// Label/Err.
type Provider struct {
	mu sync.Mutex

	ClassifyFunc func(text string) (sentiment.Label, error)
	Label        sentiment.Label
	Err          error

	Calls []string
}

// Classify records the call and returns the configured label.
func (p *Provider) Classify(_ context.Context, text string) (sentiment.Label, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, text)
	if p.ClassifyFunc != nil {
		return p.ClassifyFunc(text)
	}
	return p.Label, p.Err
}

var _ sentiment.Provider = (*Provider)(nil)

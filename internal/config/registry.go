package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/callsight/pkg/provider/embeddings"
	"github.com/MrWong99/callsight/pkg/provider/llm"
	"github.com/MrWong99/callsight/pkg/provider/segment"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	llm        map[string]func(ProviderEntry) (llm.Provider, error)
	embeddings map[string]func(ProviderEntry) (embeddings.Provider, error)
	segmenter  map[string]func(ProviderEntry) (segment.Provider, error)
	sentiment  map[string]func(ProviderEntry) (sentiment.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:        make(map[string]func(ProviderEntry) (llm.Provider, error)),
		embeddings: make(map[string]func(ProviderEntry) (embeddings.Provider, error)),
		segmenter:  make(map[string]func(ProviderEntry) (segment.Provider, error)),
		sentiment:  make(map[string]func(ProviderEntry) (sentiment.Provider, error)),
	}
}

// RegisterLLM registers an LLM provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	register(r, r.llm, name, factory)
}

// RegisterEmbeddings registers an embeddings provider factory under name.
func (r *Registry) RegisterEmbeddings(name string, factory func(ProviderEntry) (embeddings.Provider, error)) {
	register(r, r.embeddings, name, factory)
}

// RegisterSegmenter registers a sentence segmenter factory under name.
func (r *Registry) RegisterSegmenter(name string, factory func(ProviderEntry) (segment.Provider, error)) {
	register(r, r.segmenter, name, factory)
}

// RegisterSentiment registers a sentiment classifier factory under name.
func (r *Registry) RegisterSentiment(name string, factory func(ProviderEntry) (sentiment.Provider, error)) {
	register(r, r.sentiment, name, factory)
}

// CreateLLM instantiates an LLM provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	return create(r, r.llm, "llm", entry)
}

// CreateEmbeddings instantiates an embeddings provider using the factory registered under entry.Name.
func (r *Registry) CreateEmbeddings(entry ProviderEntry) (embeddings.Provider, error) {
	return create(r, r.embeddings, "embeddings", entry)
}

// CreateSegmenter instantiates a sentence segmenter using the factory registered under entry.Name.
func (r *Registry) CreateSegmenter(entry ProviderEntry) (segment.Provider, error) {
	return create(r, r.segmenter, "segmenter", entry)
}

// CreateSentiment instantiates a sentiment classifier using the factory registered under entry.Name.
func (r *Registry) CreateSentiment(entry ProviderEntry) (sentiment.Provider, error) {
	return create(r, r.sentiment, "sentiment", entry)
}

func register[T any](r *Registry, m map[string]func(ProviderEntry) (T, error), name string, factory func(ProviderEntry) (T, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m[name] = factory
}

func create[T any](r *Registry, m map[string]func(ProviderEntry) (T, error), kind string, entry ProviderEntry) (T, error) {
	r.mu.RLock()
	factory, ok := m[entry.Name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, kind, entry.Name)
	}
	return factory(entry)
}

// OptString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func OptString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// OptInt extracts an integer value from a provider Options map. YAML numbers
// decode as int; float values are truncated. Returns 0 when absent.
func OptInt(opts map[string]any, key string) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

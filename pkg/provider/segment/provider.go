// Package segment defines the Provider interface for sentence-boundary
// detection. The semantic segmenter asks a Provider for the ordered sentences
// of a turn before windowing them into chunks.
//
// Implementations must be safe for concurrent use.
package segment

import "context"

// Provider splits text into ordered sentence spans.
type Provider interface {
	// Sentences returns the sentences of text in order, each trimmed of
	// surrounding whitespace. Empty input yields an empty slice.
	Sentences(ctx context.Context, text string) ([]string, error)
}

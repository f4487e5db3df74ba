// Package sentiment defines the Provider interface for per-turn sentiment
// classification used by the call metrics stage.
//
// Implementations must be safe for concurrent use.
package sentiment

import (
	"context"
	"strings"
)

// Label is a three-way sentiment class.
type Label string

const (
	Positive Label = "POS"
	Neutral  Label = "NEU"
	Negative Label = "NEG"
)

// Provider classifies text into a sentiment Label.
type Provider interface {
	Classify(ctx context.Context, text string) (Label, error)
}

// Score maps a label to its numeric weight: POS=1, NEG=-1, anything else 0.
func (l Label) Score() float64 {
	switch l {
	case Positive:
		return 1
	case Negative:
		return -1
	default:
		return 0
	}
}

// ParseLabel maps a free-form model or sidecar answer onto a Label. English
// and Spanish spellings are accepted; the first recognised word wins. ok is
// false when nothing is recognised.
func ParseLabel(s string) (Label, bool) {
	for _, word := range strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !('A' <= r && r <= 'Z')
	}) {
		switch word {
		case "POS", "POSITIVE", "POSITIVO", "POSITIVA":
			return Positive, true
		case "NEG", "NEGATIVE", "NEGATIVO", "NEGATIVA":
			return Negative, true
		case "NEU", "NEUTRAL", "NEUTRO", "NEUTRA":
			return Neutral, true
		}
	}
	return "", false
}

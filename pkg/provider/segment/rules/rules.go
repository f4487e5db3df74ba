// Package rules is an in-process sentence splitter for Spanish and English
// conversational text. It breaks after '.', '!', '?' and '…' runs followed by
// whitespace, and never after a known abbreviation or a single initial.
package rules

import (
	"context"
	"strings"
	"unicode"

	"github.com/MrWong99/callsight/pkg/provider/segment"
)

// DefaultAbbreviations are lowercase tokens, without the trailing period,
// that do not end a sentence.
var DefaultAbbreviations = []string{
	"sr", "sra", "srta", "dr", "dra", "lic", "ing", "ud", "uds", "vd", "etc",
	"aprox", "núm", "num", "pág", "tel", "av", "mr", "mrs", "ms", "vs",
}

var _ segment.Provider = (*Splitter)(nil)

// Splitter implements segment.Provider with punctuation rules.
type Splitter struct {
	abbrev map[string]struct{}
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithAbbreviations replaces the abbreviation list.
func WithAbbreviations(words []string) Option {
	return func(s *Splitter) {
		s.abbrev = make(map[string]struct{}, len(words))
		for _, w := range words {
			s.abbrev[strings.ToLower(strings.TrimSuffix(w, "."))] = struct{}{}
		}
	}
}

// New returns a Splitter using DefaultAbbreviations unless overridden.
func New(opts ...Option) *Splitter {
	s := &Splitter{}
	WithAbbreviations(DefaultAbbreviations)(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Sentences implements segment.Provider.
func (s *Splitter) Sentences(_ context.Context, text string) ([]string, error) {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i
		for end+1 < len(runes) && (isTerminator(runes[end+1]) || isCloser(runes[end+1])) {
			end++
		}
		if end+1 < len(runes) && !unicode.IsSpace(runes[end+1]) {
			i = end
			continue
		}
		if runes[i] == '.' && end == i && s.isAbbreviation(runes[start:i]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start : end+1])); sentence != "" {
			out = append(out, sentence)
		}
		start = end + 1
		i = end
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out, nil
}

// isAbbreviation reports whether the word right before a period is an
// abbreviation or a single-letter initial.
func (s *Splitter) isAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && (unicode.IsLetter(before[j-1]) || before[j-1] == '.') {
		j--
	}
	word := strings.ToLower(string(before[j:]))
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 {
		return true
	}
	_, ok := s.abbrev[word]
	return ok
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == '»' || r == '”'
}

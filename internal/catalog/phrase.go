package catalog

import (
	"regexp"
	"strings"
)

// Entry is a natural-language phrase derived from one catalog pattern.
type Entry struct {
	Phrase   string `json:"phrase"`
	Category string `json:"category"`
	Type     string `json:"type"`
}

var (
	wordBoundary   = regexp.MustCompile(`\\b`)
	nonCapturing   = regexp.MustCompile(`\(\?:.*?\)`)
	optionalGroup  = regexp.MustCompile(`\(.*?\?\)`)
	escapedClass   = regexp.MustCompile(`\\[sSwWdD][+*?]?`)
	anyQuantified  = regexp.MustCompile(`\.[+*?]`)
	syntaxChars    = regexp.MustCompile(`[\\()?|^$*+]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// RegexToPhrase turns a catalog pattern into a readable phrase for embedding.
//
// Word boundaries are dropped, non-capturing groups and groups ending in "?"
// are removed with their content, character-class escapes and ".*"-style
// wildcards become spaces, remaining syntax characters
// (\ ( ) ? | ^ $ * +) become spaces and whitespace is collapsed. The result is
// idempotent: feeding a phrase back in returns it unchanged.
func RegexToPhrase(pattern string) string {
	s := wordBoundary.ReplaceAllString(pattern, "")
	s = nonCapturing.ReplaceAllString(s, "")
	s = optionalGroup.ReplaceAllString(s, "")
	s = escapedClass.ReplaceAllString(s, " ")
	s = anyQuantified.ReplaceAllString(s, " ")
	s = syntaxChars.ReplaceAllString(s, " ")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func deriveEntries(groups []Group) []Entry {
	var out []Entry
	for _, g := range groups {
		for _, p := range g.Patterns {
			phrase := RegexToPhrase(p.Source)
			if phrase == "" {
				continue
			}
			out = append(out, Entry{Phrase: phrase, Category: g.Category, Type: g.Type})
		}
	}
	return out
}

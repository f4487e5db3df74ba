// Package objection implements the deterministic regex path of objection
// detection: each client turn is normalised and scanned against the catalog,
// emitting at most one [Objection] per (turn, category).
package objection

import (
	"context"
	"strings"

	"github.com/MrWong99/callsight/internal/catalog"
	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/internal/transcript"
)

// DefaultContextWindow is the number of characters of each neighbouring turn
// kept as context.
const DefaultContextWindow = 100

// Objection is one regex-path detection.
type Objection struct {
	Type          string `json:"type"`
	Category      string `json:"category"`
	Intensity     int    `json:"intensity"`
	MatchedText   string `json:"matched_text"`
	Pattern       string `json:"pattern"`
	Timestamp     string `json:"timestamp"`
	Speaker       string `json:"speaker"`
	FullText      string `json:"full_text"`
	ContextBefore string `json:"context_before"`
	ContextAfter  string `json:"context_after"`
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "ä", "a", "â", "a",
	"é", "e", "è", "e", "ë", "e", "ê", "e",
	"í", "i", "ì", "i", "ï", "i", "î", "i",
	"ó", "o", "ò", "o", "ö", "o", "ô", "o",
	"ú", "u", "ù", "u", "ü", "u", "û", "u",
)

// Normalize lowercases text and maps accented vowels onto their plain form.
// Other characters (ñ included) are left untouched.
func Normalize(text string) string {
	return accentReplacer.Replace(strings.ToLower(text))
}

// Detector scans text against a catalog. It is safe for concurrent use.
type Detector struct {
	groups        []catalog.Group
	contextWindow int
	metrics       *observe.Metrics
}

// Option configures a Detector.
type Option func(*Detector)

// WithContextWindow sets how many characters of the neighbouring turns are
// kept as context. Negative values are treated as 0.
func WithContextWindow(n int) Option {
	return func(d *Detector) { d.contextWindow = max(n, 0) }
}

// WithMetrics overrides the metrics sink. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Detector) { d.metrics = m }
}

// New returns a Detector over cat.
func New(cat *catalog.Catalog, opts ...Option) *Detector {
	d := &Detector{
		groups:        cat.Groups(),
		contextWindow: DefaultContextWindow,
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d
}

// Detect scans one piece of text. Groups are visited in catalog order and
// the first matching pattern of a group is the only one reported for it.
func (d *Detector) Detect(text, timestamp, speaker, contextBefore, contextAfter string) []Objection {
	normalized := Normalize(text)
	var out []Objection
	for _, g := range d.groups {
		p, loc, ok := firstMatch(g.Patterns, normalized)
		if !ok {
			continue
		}
		out = append(out, Objection{
			Type:          g.Type,
			Category:      g.Category,
			Intensity:     g.Intensity,
			MatchedText:   normalized[loc[0]:loc[1]],
			Pattern:       p.Source,
			Timestamp:     timestamp,
			Speaker:       speaker,
			FullText:      text,
			ContextBefore: contextBefore,
			ContextAfter:  contextAfter,
		})
	}
	return out
}

// firstMatch returns the first pattern in order that matches s.
func firstMatch(patterns []catalog.Pattern, s string) (catalog.Pattern, []int, bool) {
	for _, p := range patterns {
		if loc := p.Regexp.FindStringIndex(s); loc != nil {
			return p, loc, true
		}
	}
	return catalog.Pattern{}, nil, false
}

// DetectInConversation scans every turn spoken by clientSpeaker. Context is
// the leading characters of the turns right before and after, whoever spoke
// them, and empty at the conversation edges. Malformed turns are skipped.
func (d *Detector) DetectInConversation(ctx context.Context, turns []transcript.Turn, clientSpeaker int) []Objection {
	var out []Objection
	for i, turn := range turns {
		if turn.SpeakerNum != clientSpeaker {
			continue
		}
		if err := turn.Validate(); err != nil {
			observe.Logger(ctx).Warn("objection: skipping malformed turn", "index", i, "err", err)
			d.metrics.RecordSkippedTurn(ctx, "regex", "malformed")
			continue
		}
		var before, after string
		if i > 0 {
			before = truncate(turns[i-1].Text, d.contextWindow)
		}
		if i < len(turns)-1 {
			after = truncate(turns[i+1].Text, d.contextWindow)
		}
		for _, o := range d.Detect(turn.Text, turn.Timestamp, turn.Speaker, before, after) {
			d.metrics.RecordObjection(ctx, o.Type)
			out = append(out, o)
		}
	}
	return out
}

// truncate returns the first n characters of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultFillerWords are Spanish discourse fillers removed by the Cleaner.
var DefaultFillerWords = []string{
	"eh", "ehm", "em", "mm", "mmm", "ah", "aja", "o sea", "digamos", "pues", "vale",
}

var (
	cleanHeaderRe   = regexp.MustCompile(`^(Speaker\s+\d+:.*?\})\s*(.*)$`)
	punctuationRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
)

// Cleaner normalises transcript text while keeping speaker headers intact.
// A Cleaner is safe for concurrent use.
type Cleaner struct {
	filler            *regexp.Regexp
	normalizeAccents  bool
	removePunctuation bool
}

// CleanerOption configures a Cleaner.
type CleanerOption func(*Cleaner)

// WithAccentNormalization toggles accent stripping. Default: on.
func WithAccentNormalization(on bool) CleanerOption {
	return func(c *Cleaner) { c.normalizeAccents = on }
}

// WithPunctuationRemoval toggles punctuation stripping. Default: on.
func WithPunctuationRemoval(on bool) CleanerOption {
	return func(c *Cleaner) { c.removePunctuation = on }
}

// NewCleaner builds a Cleaner that removes fillers as whole words. Filler
// words are matched literally after the same lowercasing and accent stripping
// applied to the text.
func NewCleaner(fillers []string, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{normalizeAccents: true, removePunctuation: true}
	for _, o := range opts {
		o(c)
	}
	var alts []string
	for _, f := range fillers {
		f = strings.TrimSpace(strings.ToLower(f))
		if c.normalizeAccents {
			f = stripAccents(f)
		}
		if f != "" {
			alts = append(alts, regexp.QuoteMeta(f))
		}
	}
	if len(alts) > 0 {
		c.filler = regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
	}
	return c
}

// CleanText lowercases, strips accents, removes fillers and punctuation, and
// collapses whitespace.
func (c *Cleaner) CleanText(s string) string {
	s = strings.ToLower(s)
	if c.normalizeAccents {
		s = stripAccents(s)
	}
	if c.filler != nil {
		s = c.filler.ReplaceAllString(s, " ")
	}
	if c.removePunctuation {
		s = punctuationRe.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(whitespaceRunRe.ReplaceAllString(s, " "))
}

// CleanTranscript cleans every content line of a transcript. Speaker headers
// up to the closing timestamp brace are preserved verbatim; blank lines and
// lines starting with "---" are kept as they are.
func (c *Cleaner) CleanTranscript(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if m := cleanHeaderRe.FindStringSubmatch(line); m != nil {
			content := ""
			if strings.TrimSpace(m[2]) != "" {
				content = c.CleanText(m[2])
			}
			out = append(out, strings.TrimSpace(m[1]+" "+content))
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "---") {
			out = append(out, line)
			continue
		}
		out = append(out, c.CleanText(line))
	}
	return strings.Join(out, "\n")
}

// CleanDir writes a cleaned copy of every *.txt file in rawDir into cleanDir
// under the same name. A file that cannot be read or written is logged and
// skipped. It returns the number of files written.
func (c *Cleaner) CleanDir(ctx context.Context, rawDir, cleanDir string) (int, error) {
	files, err := ListFiles(rawDir)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(cleanDir, 0o755); err != nil {
		return 0, fmt.Errorf("transcript: create %q: %w", cleanDir, err)
	}

	written := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("transcript: skipping unreadable file", "file", path, "err", err)
			continue
		}
		dst := filepath.Join(cleanDir, filepath.Base(path))
		if err := os.WriteFile(dst, []byte(c.CleanTranscript(string(raw))), 0o644); err != nil {
			slog.Warn("transcript: failed to write cleaned file", "file", dst, "err", err)
			continue
		}
		written++
	}
	slog.Info("transcript: cleaned directory", "src", rawDir, "dst", cleanDir, "files", written, "found", len(files))
	return written, nil
}

// stripAccents decomposes s and drops nonspacing marks.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

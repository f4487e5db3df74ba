package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoTurns is returned when a transcript contains no speaker turns.
var ErrNoTurns = errors.New("transcript: no speaker turns found")

var headerRe = regexp.MustCompile(`^Speaker\s+(\d+):\s*(\{\s*([\d:]+)\s*\})?\s*(.*)$`)

var metadataPrefixes = []string{
	"automatically transcribed",
	"total recording length",
	"---",
	"end of transcript",
}

// Parse reads a transcript of the form
//
//	Speaker 1: {0:03} Buenas tardes, le llamo de ...
//	Speaker 2: {0:09} Dígame.
//
// Continuation lines are appended to the current turn. Blank and metadata
// lines are skipped.
func Parse(r io.Reader) ([]Turn, error) {
	var (
		turns   []Turn
		current *Turn
		text    []string
	)
	flush := func() {
		if current != nil {
			current.Text = strings.Join(text, " ")
			turns = append(turns, *current)
		}
		current, text = nil, nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || isMetadata(line) {
			continue
		}
		if m := headerRe.FindStringSubmatch(line); m != nil {
			flush()
			num, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("transcript: speaker number %q: %w", m[1], err)
			}
			current = &Turn{
				Speaker:    "Speaker " + m[1],
				SpeakerNum: num,
				Timestamp:  strings.TrimSpace(m[3]),
			}
			if rest := strings.TrimSpace(m[4]); rest != "" {
				text = append(text, rest)
			}
			continue
		}
		if current != nil {
			text = append(text, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("transcript: read: %w", err)
	}
	flush()

	if len(turns) == 0 {
		return nil, ErrNoTurns
	}
	return turns, nil
}

// ParseFile opens path and parses it with [Parse].
func ParseFile(path string) ([]Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %q: %w", path, err)
	}
	defer f.Close()
	turns, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return turns, nil
}

func isMetadata(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range metadataPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

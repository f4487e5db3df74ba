// Package transcript reads speaker-labelled call transcripts.
//
// A transcript is a plain-text file of "Speaker N: {m:ss} text" headers, each
// optionally followed by continuation lines. [Parse] turns it into ordered
// [Turn] values; [Cleaner] writes normalised copies that keep the headers
// intact so the cleaned files parse the same way.
package transcript

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Turn is one speaker utterance in a call. Turns are immutable once parsed and
// their order within a conversation is meaningful.
type Turn struct {
	Speaker    string `json:"speaker"`
	SpeakerNum int    `json:"speaker_num"`
	Timestamp  string `json:"timestamp"`
	Text       string `json:"text"`
}

// ErrMalformedTurn is wrapped by [Turn.Validate].
var ErrMalformedTurn = errors.New("transcript: malformed turn")

// Validate reports turns that cannot be attributed to a speaker.
func (t Turn) Validate() error {
	switch {
	case strings.TrimSpace(t.Speaker) == "":
		return fmt.Errorf("%w: missing speaker label", ErrMalformedTurn)
	case t.SpeakerNum < 0:
		return fmt.Errorf("%w: negative speaker number %d", ErrMalformedTurn, t.SpeakerNum)
	}
	return nil
}

// ParseTimestamp converts "m:ss" or "h:mm:ss" into seconds.
func ParseTimestamp(ts string) (int, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, fmt.Errorf("transcript: empty timestamp")
	}
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("transcript: timestamp %q: want m:ss or h:mm:ss", ts)
	}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("transcript: timestamp %q: bad field %q", ts, p)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("transcript: timestamp %q: field %q out of range", ts, p)
		}
		total = total*60 + n
	}
	return total, nil
}

package callmetrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/callsight/internal/observe/observetest"
	"github.com/MrWong99/callsight/internal/transcript"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
	sentmock "github.com/MrWong99/callsight/pkg/provider/sentiment/mock"
)

// keywordSentiment labels "gracias" positive and "caro" negative.
func keywordSentiment() *sentmock.Provider {
	return &sentmock.Provider{ClassifyFunc: func(text string) (sentiment.Label, error) {
		switch {
		case strings.Contains(text, "gracias"):
			return sentiment.Positive, nil
		case strings.Contains(text, "caro"):
			return sentiment.Negative, nil
		}
		return sentiment.Neutral, nil
	}}
}

func newAnalyzer(t *testing.T, sp sentiment.Provider, opts ...Option) (*Analyzer, *observetest.Reader) {
	t.Helper()
	m, reader := observetest.New(t)
	return New(sp, append(opts, WithMetrics(m))...), reader
}

func ptr(v float64) *float64 { return &v }

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestCompute(t *testing.T) {
	t.Parallel()

	a, reader := newAnalyzer(t, keywordSentiment())
	turns := []transcript.Turn{
		{SpeakerNum: 1, Timestamp: "0:00", Text: "Buenas tardes, muchas gracias por atender."},
		{SpeakerNum: 2, Timestamp: "0:10", Text: "Dígame."},
		{SpeakerNum: 1, Timestamp: "0:12", Text: "Le ofrezco un seguro."},
		{SpeakerNum: 2, Timestamp: "", Text: "sin marca"},
		{SpeakerNum: 2, Timestamp: "0:40", Text: "Es muy caro."},
		{SpeakerNum: 1, Timestamp: "0:35", Text: "Entiendo."},
	}

	got, err := a.Compute(context.Background(), "call1.txt", turns)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := CallMetrics{
		File:              "call1.txt",
		TotalDurationS:    40,
		Speaker1TimeS:     10 + 28,
		Speaker2TimeS:     2,
		Speaker1Sentiment: ptr(0.333),
		Speaker2Sentiment: ptr(-0.5),
	}
	if got.File != want.File || got.TotalDurationS != want.TotalDurationS ||
		got.Speaker1TimeS != want.Speaker1TimeS || got.Speaker2TimeS != want.Speaker2TimeS {
		t.Errorf("timing = %+v, want %+v", got, want)
	}
	if !equalPtr(got.Speaker1Sentiment, want.Speaker1Sentiment) || !equalPtr(got.Speaker2Sentiment, want.Speaker2Sentiment) {
		t.Errorf("sentiment = %v/%v, want %v/%v", *got.Speaker1Sentiment, *got.Speaker2Sentiment, 0.333, -0.5)
	}
	if n := reader.Counter("callsight.turns.skipped", "stage", "metrics", "reason", "timestamp"); n != 1 {
		t.Errorf("skipped turns = %d, want 1", n)
	}
}

func TestCompute_SilentSpeakerScoresZero(t *testing.T) {
	t.Parallel()

	sp := keywordSentiment()
	a, _ := newAnalyzer(t, sp)
	got, err := a.Compute(context.Background(), "mono.txt", []transcript.Turn{
		{SpeakerNum: 1, Timestamp: "0:00", Text: "Hola, gracias."},
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.TotalDurationS != 0 || got.Speaker1TimeS != 0 {
		t.Errorf("timing = %+v", got)
	}
	if !equalPtr(got.Speaker2Sentiment, ptr(0)) {
		t.Errorf("Speaker2Sentiment = %v, want 0", got.Speaker2Sentiment)
	}
	if len(sp.Calls) != 1 {
		t.Errorf("expected 1 classification, got %d", len(sp.Calls))
	}
}

func TestCompute_SentimentFailureKeepsTiming(t *testing.T) {
	t.Parallel()

	a, reader := newAnalyzer(t, &sentmock.Provider{Err: errors.New("model offline")})
	got, err := a.Compute(context.Background(), "call.txt", []transcript.Turn{
		{SpeakerNum: 1, Timestamp: "0:00", Text: "Hola."},
		{SpeakerNum: 2, Timestamp: "0:07", Text: "Dígame."},
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.Speaker1TimeS != 7 || got.TotalDurationS != 7 {
		t.Errorf("timing = %+v", got)
	}
	if got.Speaker1Sentiment != nil || got.Speaker2Sentiment != nil {
		t.Errorf("expected unset sentiment, got %v/%v", got.Speaker1Sentiment, got.Speaker2Sentiment)
	}
	if n := reader.Counter("callsight.provider.errors", "kind", "sentiment"); n != 2 {
		t.Errorf("provider.errors = %d, want 2", n)
	}
}

func TestCompute_NoTimedTurns(t *testing.T) {
	t.Parallel()

	a, _ := newAnalyzer(t, keywordSentiment())
	_, err := a.Compute(context.Background(), "x.txt", []transcript.Turn{{SpeakerNum: 1, Text: "hola"}})
	if !errors.Is(err, ErrNoTimedTurns) {
		t.Errorf("expected ErrNoTimedTurns, got %v", err)
	}
}

func TestProcessDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"b.txt": "Speaker 1: {0:00} Hola.\nSpeaker 2: {0:05} Es caro.\n",
		"a.txt": "Speaker 1: {0:00} Gracias.\nSpeaker 2: {1:00} Adiós.\n",
		"c.txt": "Speaker 1: sin tiempo\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	a, reader := newAnalyzer(t, keywordSentiment(), WithWorkers(2))
	got, err := a.ProcessDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	if len(got) != 2 || got[0].File != "a.txt" || got[1].File != "b.txt" {
		t.Fatalf("metrics = %+v", got)
	}
	if got[0].Speaker1TimeS != 60 {
		t.Errorf("a.txt Speaker1TimeS = %d, want 60", got[0].Speaker1TimeS)
	}
	if n := reader.Counter("callsight.files.processed", "stage", "metrics", "status", "failed"); n != 1 {
		t.Errorf("failed files = %d, want 1", n)
	}
}

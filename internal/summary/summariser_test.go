package summary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/callsight/internal/observe/observetest"
	"github.com/MrWong99/callsight/pkg/provider/llm"
	llmmock "github.com/MrWong99/callsight/pkg/provider/llm/mock"
)

func newSummariser(t *testing.T, p llm.Provider, opts ...Option) *LLMSummariser {
	t.Helper()
	m, _ := observetest.New(t)
	return NewLLMSummariser(p, append(opts, WithMetrics(m))...)
}

func TestLLMSummariser_Summarise(t *testing.T) {
	t.Run("empty transcript returns empty string", func(t *testing.T) {
		p := &llmmock.Provider{}
		s := newSummariser(t, p)

		result, err := s.Summarise(context.Background(), "  \n ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
		if len(p.CompleteCalls) != 0 {
			t.Errorf("expected no LLM calls for empty input, got %d", len(p.CompleteCalls))
		}
	})

	t.Run("summarises transcript via LLM", func(t *testing.T) {
		p := &llmmock.Provider{
			CompleteResponse: &llm.CompletionResponse{
				Content: "  El cliente considera caro el seguro.\nPide un descuento.  ",
			},
		}
		s := newSummariser(t, p)

		result, err := s.Summarise(context.Background(), "Speaker 2: {0:05} Es muy caro.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "El cliente considera caro el seguro.\nPide un descuento." {
			t.Errorf("unexpected result: %q", result)
		}
		if len(p.CompleteCalls) != 1 {
			t.Fatalf("expected 1 Complete call, got %d", len(p.CompleteCalls))
		}
		req := p.CompleteCalls[0].Req
		if req.SystemPrompt != summarisationPrompt {
			t.Errorf("expected summarisation prompt, got %q", req.SystemPrompt)
		}
		if req.MaxTokens != DefaultMaxTokens || req.Temperature != 0 {
			t.Errorf("unexpected params: max_tokens=%d temperature=%v", req.MaxTokens, req.Temperature)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
	})

	t.Run("propagates LLM error", func(t *testing.T) {
		p := &llmmock.Provider{CompleteErr: errors.New("throttled")}
		s := newSummariser(t, p)

		if _, err := s.Summarise(context.Background(), "hola"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("truncates to the context budget", func(t *testing.T) {
		p := &llmmock.Provider{
			CompleteResponse:  &llm.CompletionResponse{Content: "resumen"},
			ModelCapabilities: llm.ModelCapabilities{ContextWindow: 400},
		}
		s := newSummariser(t, p)
		text := strings.Repeat("palabra ", 250)

		if _, err := s.Summarise(context.Background(), text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sent := p.CompleteCalls[0].Req.Messages[0].Content
		if len(sent) >= len(strings.TrimSpace(text)) {
			t.Fatalf("expected truncation, sent %d of %d bytes", len(sent), len(text))
		}
		if !strings.HasPrefix(text, sent) {
			t.Error("truncated text must be a prefix of the transcript")
		}
		budget := int(400*contextRatio) - DefaultMaxTokens
		n := llm.EstimateTokens([]llm.Message{
			{Role: "system", Content: summarisationPrompt},
			{Role: "user", Content: sent},
		})
		if n > budget {
			t.Errorf("prompt uses %d tokens, budget %d", n, budget)
		}
	})

	t.Run("fails when nothing fits", func(t *testing.T) {
		p := &llmmock.Provider{
			TokenCount:        10_000,
			ModelCapabilities: llm.ModelCapabilities{ContextWindow: 400},
		}
		s := newSummariser(t, p)

		if _, err := s.Summarise(context.Background(), "una llamada"); !errors.Is(err, ErrPromptTooLong) {
			t.Errorf("expected ErrPromptTooLong, got %v", err)
		}
		if len(p.CompleteCalls) != 0 {
			t.Errorf("expected no completion, got %d", len(p.CompleteCalls))
		}
	})
}

func TestProcessDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"a.txt": "Speaker 2: {0:01} Es caro.",
		"b.txt": "",
		"c.txt": "Speaker 2: {0:01} No tengo tiempo.",
		"d.txt": "Speaker 2: {0:01} fallo",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p := &llmmock.Provider{CompleteFunc: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		text := req.Messages[0].Content
		if strings.Contains(text, "fallo") {
			return nil, errors.New("boom")
		}
		return &llm.CompletionResponse{Content: "Resumen: " + text[strings.Index(text, "}")+2:]}, nil
	}}
	m, reader := observetest.New(t)
	proc := NewProcessor(NewLLMSummariser(p, WithMetrics(m)), WithWorkers(2), WithProcessorMetrics(m))

	got, err := proc.ProcessDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	want := []Summary{
		{File: "a.txt", Summary: "Resumen: Es caro."},
		{File: "c.txt", Summary: "Resumen: No tengo tiempo."},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("summary %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if n := reader.Counter("callsight.files.processed", "stage", "summary", "status", "failed"); n != 2 {
		t.Errorf("failed files = %d, want 2", n)
	}
}

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/callsight/pkg/provider/llm"
)

// TestConvertMessage_Roles checks that the supported roles map to the right union member.
func TestConvertMessage_Roles(t *testing.T) {
	t.Parallel()

	sys, err := convertMessage(llm.Message{Role: "system", Content: "Eres un analista."})
	if err != nil {
		t.Fatalf("system: unexpected error: %v", err)
	}
	if sys.OfSystem == nil {
		t.Error("system: expected OfSystem to be set")
	}

	user, err := convertMessage(llm.Message{Role: "user", Content: "¿Es una objeción?"})
	if err != nil {
		t.Fatalf("user: unexpected error: %v", err)
	}
	if user.OfUser == nil {
		t.Error("user: expected OfUser to be set")
	}

	asst, err := convertMessage(llm.Message{Role: "assistant", Content: "SI"})
	if err != nil {
		t.Fatalf("assistant: unexpected error: %v", err)
	}
	if asst.OfAssistant == nil {
		t.Error("assistant: expected OfAssistant to be set")
	}
}

// TestConvertMessage_UnknownRole checks that unknown roles return an error.
func TestConvertMessage_UnknownRole(t *testing.T) {
	t.Parallel()
	if _, err := convertMessage(llm.Message{Role: "tool", Content: "x"}); err == nil {
		t.Fatal("expected error for unsupported role, got nil")
	}
}

func TestModelCapabilities(t *testing.T) {
	t.Parallel()
	tests := []struct {
		model   string
		context int
	}{
		{"gpt-4o-mini", 128_000},
		{"gpt-4", 8_192},
		{"gpt-3.5-turbo", 16_385},
		{"o3-mini", 200_000},
		{"my-custom-model", 128_000},
	}
	for _, tc := range tests {
		caps := modelCapabilities(tc.model)
		if caps.ContextWindow != tc.context {
			t.Errorf("%s: ContextWindow = %d, want %d", tc.model, caps.ContextWindow, tc.context)
		}
		if caps.MaxOutputTokens <= 0 {
			t.Errorf("%s: expected positive MaxOutputTokens", tc.model)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("sk-test", "gpt-4o", WithBaseURL("https://custom.example.com"), WithOrganization("org-123")); err != nil {
		t.Errorf("unexpected error with options: %v", err)
	}
}

// TestComplete_SendsZeroTemperature verifies that a zero temperature is sent
// explicitly and that the reply content is surfaced.
func TestComplete_SendsZeroTemperature(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 0,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "SI"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 1, "total_tokens": 13}
		}`))
	}))
	defer srv.Close()

	p, err := New("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Messages:  []llm.Message{{Role: "user", Content: "¿Es una objeción?"}},
		MaxTokens: 10,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "SI" {
		t.Errorf("Content = %q, want %q", resp.Content, "SI")
	}
	if resp.Usage.TotalTokens != 13 {
		t.Errorf("TotalTokens = %d, want 13", resp.Usage.TotalTokens)
	}
	temp, ok := got["temperature"]
	if !ok {
		t.Fatal("request did not include temperature")
	}
	if temp.(float64) != 0 {
		t.Errorf("temperature = %v, want 0", temp)
	}
}

// Package remote is a sentiment.Provider backed by an HTTP classifier sidecar
// (for example a robertuito-sentiment service). The sidecar accepts
// POST /sentiment {"text": "..."} and answers {"label": "POS", "score": 0.93}.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/callsight/pkg/provider/internal/jsonhttp"
	"github.com/MrWong99/callsight/pkg/provider/sentiment"
)

var _ sentiment.Provider = (*Client)(nil)

// Client implements sentiment.Provider over HTTP.
type Client struct {
	http *jsonhttp.Client
}

// New returns a Client for the sidecar at baseURL. A zero timeout selects 30s.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("remote sentiment: baseURL must not be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{http: jsonhttp.New(baseURL, timeout)}, nil
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify implements sentiment.Provider. Labels the sidecar returns that do
// not map onto POS, NEU or NEG are reported as errors.
func (c *Client) Classify(ctx context.Context, text string) (sentiment.Label, error) {
	var resp classifyResponse
	if err := c.http.Post(ctx, "/sentiment", classifyRequest{Text: text}, &resp); err != nil {
		return "", fmt.Errorf("remote sentiment: %w", err)
	}
	label, ok := sentiment.ParseLabel(resp.Label)
	if !ok {
		return "", fmt.Errorf("remote sentiment: unknown label %q", resp.Label)
	}
	return label, nil
}

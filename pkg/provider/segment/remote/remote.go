// Package remote is a segment.Provider backed by an HTTP sentence-splitting
// sidecar (for example a spaCy service). The sidecar accepts
// POST /sentences {"text": "..."} and answers {"sentences": ["...", ...]}.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/callsight/pkg/provider/internal/jsonhttp"
	"github.com/MrWong99/callsight/pkg/provider/segment"
)

var _ segment.Provider = (*Client)(nil)

// Client implements segment.Provider over HTTP.
type Client struct {
	http     *jsonhttp.Client
	language string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout  time.Duration
	language string
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLanguage forwards a language hint (e.g. "es") to the sidecar.
func WithLanguage(lang string) Option {
	return func(o *options) { o.language = lang }
}

// New returns a Client for the sidecar at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("remote segmenter: baseURL must not be empty")
	}
	o := options{timeout: 30 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{http: jsonhttp.New(baseURL, o.timeout), language: o.language}, nil
}

type sentencesRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type sentencesResponse struct {
	Sentences []string `json:"sentences"`
}

// Sentences implements segment.Provider. Blank spans in the reply are dropped.
func (c *Client) Sentences(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var resp sentencesResponse
	if err := c.http.Post(ctx, "/sentences", sentencesRequest{Text: text, Language: c.language}, &resp); err != nil {
		return nil, fmt.Errorf("remote segmenter: %w", err)
	}
	out := make([]string, 0, len(resp.Sentences))
	for _, s := range resp.Sentences {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

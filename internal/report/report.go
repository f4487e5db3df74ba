// Package report joins call metrics, validated detections and summaries
// into the final per-call table and moves stage results between runs.
package report

import (
	"context"
	"strconv"

	"github.com/MrWong99/callsight/internal/callmetrics"
	"github.com/MrWong99/callsight/internal/summary"
	"github.com/MrWong99/callsight/internal/validate"
)

// Columns is the report column order.
var Columns = []string{
	"file",
	"total_duration_s",
	"speaker1_time_s",
	"speaker2_time_s",
	"speaker1_sentiment",
	"speaker2_sentiment",
	"phrase",
	"nearest_phrase",
	"category",
	"type",
	"similarity",
	"llm_response",
	"validated",
	"summary",
}

// Row is one line of the final report: a call, optionally paired with one of
// its validated detections. Detection fields are zero when the call had none.
type Row struct {
	File              string   `json:"file"`
	TotalDurationS    int      `json:"total_duration_s"`
	Speaker1TimeS     int      `json:"speaker1_time_s"`
	Speaker2TimeS     int      `json:"speaker2_time_s"`
	Speaker1Sentiment *float64 `json:"speaker1_sentiment"`
	Speaker2Sentiment *float64 `json:"speaker2_sentiment"`
	Phrase            string   `json:"phrase,omitempty"`
	NearestPhrase     string   `json:"nearest_phrase,omitempty"`
	Category          string   `json:"category,omitempty"`
	Type              string   `json:"type,omitempty"`
	Similarity        *float64 `json:"similarity,omitempty"`
	LLMResponse       string   `json:"llm_response,omitempty"`
	Validated         *bool    `json:"validated,omitempty"`
	Summary           string   `json:"summary,omitempty"`
}

// HasDetection reports whether the row carries a detection.
func (r Row) HasDetection() bool { return r.Validated != nil }

// Record renders r in Columns order. Unset values are empty strings.
func (r Row) Record() []string {
	return []string{
		r.File,
		strconv.Itoa(r.TotalDurationS),
		strconv.Itoa(r.Speaker1TimeS),
		strconv.Itoa(r.Speaker2TimeS),
		formatFloat(r.Speaker1Sentiment),
		formatFloat(r.Speaker2Sentiment),
		r.Phrase,
		r.NearestPhrase,
		r.Category,
		r.Type,
		formatFloat(r.Similarity),
		r.LLMResponse,
		formatBool(r.Validated),
		r.Summary,
	}
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

// Build left-joins detections and summaries onto metrics by file name. Each
// call yields one row per detection, or a single row without detection
// fields. Rows follow the order of metrics, then of detections.
func Build(metrics []callmetrics.CallMetrics, detections []validate.ValidatedDetection, summaries []summary.Summary) []Row {
	byFile := make(map[string][]validate.ValidatedDetection)
	for _, d := range detections {
		byFile[d.File] = append(byFile[d.File], d)
	}
	summaryOf := make(map[string]string, len(summaries))
	for _, s := range summaries {
		if _, ok := summaryOf[s.File]; !ok {
			summaryOf[s.File] = s.Summary
		}
	}

	var rows []Row
	for _, m := range metrics {
		base := Row{
			File:              m.File,
			TotalDurationS:    m.TotalDurationS,
			Speaker1TimeS:     m.Speaker1TimeS,
			Speaker2TimeS:     m.Speaker2TimeS,
			Speaker1Sentiment: m.Speaker1Sentiment,
			Speaker2Sentiment: m.Speaker2Sentiment,
			Summary:           summaryOf[m.File],
		}
		dets := byFile[m.File]
		if len(dets) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, d := range dets {
			r := base
			sim, validated := d.Similarity, d.Validated
			r.Phrase = d.Phrase
			r.NearestPhrase = d.NearestPhrase
			r.Category = d.Category
			r.Type = d.Type
			r.Similarity = &sim
			r.LLMResponse = d.LLMResponse
			r.Validated = &validated
			rows = append(rows, r)
		}
	}
	return rows
}

// Sink persists report rows of one pipeline run.
type Sink interface {
	WriteRows(ctx context.Context, runID string, rows []Row) error
	Close() error
}

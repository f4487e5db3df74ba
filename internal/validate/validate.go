// Package validate confirms semantic detections with a language model.
//
// Each detection costs exactly one completion request. Transport failures are
// reported as [ErrNoAnswer] and never retried here; the reply is upper-cased
// and accepted when it contains any configured keyword.
package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/MrWong99/callsight/internal/observe"
	"github.com/MrWong99/callsight/internal/semantic"
	"github.com/MrWong99/callsight/pkg/provider/llm"
)

// DefaultPromptTemplate asks the model for a one-word verdict in Spanish.
const DefaultPromptTemplate = `Eres un analista experto en ventas telefónicas.
Una frase de un cliente ha sido clasificada automáticamente como posible objeción de venta.

Categoría: {{.Category}}
Tipo: {{.Type}}
Frase: "{{.Phrase}}"

¿Constituye esta frase una objeción de venta genuina por parte del cliente?
Responde únicamente con SI o NO.`

// DefaultKeywords are the affirmative replies that accept a detection.
var DefaultKeywords = []string{"SI", "SÍ", "YES"}

var (
	// ErrNoKeywords is returned by New when no usable keyword is configured.
	ErrNoKeywords = errors.New("validate: at least one non-blank keyword is required")

	// ErrInvalidTemplate is returned by New for a prompt template that does
	// not parse or does not reference .Category, .Type and .Phrase.
	ErrInvalidTemplate = errors.New("validate: invalid prompt template")

	// ErrNoAnswer is returned by Validate when the model could not be asked.
	ErrNoAnswer = errors.New("validate: no answer from model")
)

// ValidatedDetection is a semantic detection with the model's verdict.
type ValidatedDetection struct {
	semantic.Detection
	LLMResponse string `json:"llm_response"`
	Validated   bool   `json:"validated"`
}

// Config controls prompt construction and acceptance.
type Config struct {
	// Keywords accept a detection when any of them occurs in the upper-cased
	// reply. Defaults to DefaultKeywords when nil.
	Keywords []string

	// PromptTemplate is a text/template over .Category, .Type and .Phrase.
	// Empty means DefaultPromptTemplate.
	PromptTemplate string

	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns a deterministic, short-reply configuration.
func DefaultConfig() Config {
	return Config{
		Keywords:       append([]string(nil), DefaultKeywords...),
		PromptTemplate: DefaultPromptTemplate,
		MaxTokens:      10,
	}
}

type promptData struct {
	Category string
	Type     string
	Phrase   string
}

// Validator asks an LLM to confirm detections. Safe for concurrent use when
// the provider is.
type Validator struct {
	llm         llm.Provider
	tmpl        *template.Template
	keywords    []string
	maxTokens   int
	temperature float64
	metrics     *observe.Metrics
}

// Option configures a Validator.
type Option func(*Validator)

// WithMetrics overrides the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// New validates cfg and returns a Validator using provider.
func New(provider llm.Provider, cfg Config, opts ...Option) (*Validator, error) {
	if provider == nil {
		return nil, errors.New("validate: llm provider must not be nil")
	}
	keywords, err := normalizeKeywords(cfg.Keywords)
	if err != nil {
		return nil, err
	}
	tmpl, err := ParseTemplate(cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("validate: temperature must be in [0,2], got %v", cfg.Temperature)
	}

	v := &Validator{
		llm:         provider,
		tmpl:        tmpl,
		keywords:    keywords,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	for _, o := range opts {
		o(v)
	}
	if v.metrics == nil {
		v.metrics = observe.DefaultMetrics()
	}
	return v, nil
}

func normalizeKeywords(in []string) ([]string, error) {
	if in == nil {
		in = DefaultKeywords
	}
	if len(in) == 0 {
		return nil, ErrNoKeywords
	}
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" {
			return nil, fmt.Errorf("%w: blank keyword", ErrNoKeywords)
		}
		out = append(out, k)
	}
	return out, nil
}

// ParseTemplate parses src (DefaultPromptTemplate when empty) and checks that
// it renders all three fields.
func ParseTemplate(src string) (*template.Template, error) {
	if src == "" {
		src = DefaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	probe := promptData{Category: "\x00category\x00", Type: "\x00type\x00", Phrase: "\x00phrase\x00"}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	out := sb.String()
	for field, marker := range map[string]string{
		"Category": probe.Category,
		"Type":     probe.Type,
		"Phrase":   probe.Phrase,
	} {
		if !strings.Contains(out, marker) {
			return nil, fmt.Errorf("%w: missing {{.%s}}", ErrInvalidTemplate, field)
		}
	}
	return tmpl, nil
}

// Prompt renders the prompt for d.
func (v *Validator) Prompt(d semantic.Detection) (string, error) {
	var sb strings.Builder
	err := v.tmpl.Execute(&sb, promptData{Category: d.Category, Type: d.Type, Phrase: d.Phrase})
	if err != nil {
		return "", fmt.Errorf("validate: render prompt: %w", err)
	}
	return sb.String(), nil
}

// Accepts reports whether reply contains an affirmative keyword after
// trimming and upper-casing.
func (v *Validator) Accepts(reply string) bool {
	reply = strings.ToUpper(strings.TrimSpace(reply))
	for _, k := range v.keywords {
		if strings.Contains(reply, k) {
			return true
		}
	}
	return false
}

// Validate sends one request for d. An empty or negative reply is a valid
// rejection; a failed request returns an error wrapping ErrNoAnswer.
func (v *Validator) Validate(ctx context.Context, d semantic.Detection) (ValidatedDetection, error) {
	prompt, err := v.Prompt(d)
	if err != nil {
		return ValidatedDetection{}, err
	}

	start := time.Now()
	resp, err := v.llm.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:   v.maxTokens,
		Temperature: v.temperature,
	})
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err := v.metrics.TimeProvider(ctx, "llm", start, err); err != nil {
		v.metrics.RecordValidation(ctx, observe.OutcomeNoAnswer)
		return ValidatedDetection{}, fmt.Errorf("%w: %w", ErrNoAnswer, err)
	}

	reply := strings.ToUpper(strings.TrimSpace(resp.Content))
	out := ValidatedDetection{
		Detection:   d,
		LLMResponse: reply,
		Validated:   v.Accepts(reply),
	}
	outcome := observe.OutcomeRejected
	if out.Validated {
		outcome = observe.OutcomeAccepted
	}
	v.metrics.RecordValidation(ctx, outcome)
	observe.Logger(ctx).Debug("validate: verdict",
		"file", d.File,
		"category", d.Category,
		"response", reply,
		"validated", out.Validated,
	)
	return out, nil
}

// ValidateAll validates detections in order and keeps only the accepted
// ones. A detection that cannot be validated is logged and dropped. The
// batch stops early only when ctx is done.
func (v *Validator) ValidateAll(ctx context.Context, detections []semantic.Detection) ([]ValidatedDetection, error) {
	ctx, end := v.metrics.StartStage(ctx, "validate.ValidateAll")
	defer end()
	log := observe.Logger(ctx)

	var out []ValidatedDetection
	for i, d := range detections {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("validate: %w", err)
		}
		vd, err := v.Validate(ctx, d)
		if err != nil {
			log.Warn("validate: skipping detection", "index", i, "file", d.File, "err", err)
			continue
		}
		if vd.Validated {
			out = append(out, vd)
		}
	}
	log.Info("validate: batch done", "detections", len(detections), "confirmed", len(out))
	return out, nil
}

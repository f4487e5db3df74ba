package config

import (
	"slices"
	"time"

	"github.com/MrWong99/callsight/internal/analyzer"
	"github.com/MrWong99/callsight/internal/objection"
	"github.com/MrWong99/callsight/internal/semantic"
	"github.com/MrWong99/callsight/internal/summary"
	"github.com/MrWong99/callsight/internal/transcript"
	"github.com/MrWong99/callsight/internal/validate"
)

// Default returns the configuration used for every key the YAML file omits.
func Default() *Config {
	seg := semantic.DefaultConfig()
	val := validate.DefaultConfig()
	return &Config{
		LogLevel: LogInfo,
		Providers: ProvidersConfig{
			LLM:        ProviderEntry{Name: "anthropic", Model: "claude-3-5-haiku-latest"},
			Embeddings: ProviderEntry{Name: "ollama", BaseURL: "http://localhost:11434", Model: "nomic-embed-text"},
			Segmenter:  ProviderEntry{Name: "rules"},
			Sentiment:  ProviderEntry{Name: "llm"},
		},
		Catalog: CatalogConfig{LintSimilarity: 0.92},
		Analysis: AnalysisConfig{
			ClientSpeaker:      analyzer.DefaultClientSpeaker,
			ContextWindow:      objection.DefaultContextWindow,
			IncludeDetails:     true,
			CalculateIntensity: true,
		},
		Semantic: SemanticConfig{
			Threshold:         semantic.DefaultThreshold,
			WindowSize:        seg.WindowSize,
			Overlap:           seg.Overlap,
			MinSentenceLength: seg.MinSentenceLength,
			MinChunkWords:     seg.MinChunkWords,
			IrrelevantPhrases: seg.IrrelevantPhrases,
			Workers:           1,
		},
		Validation: ValidationConfig{
			Keywords:    slices.Clone(validate.DefaultKeywords),
			MaxTokens:   val.MaxTokens,
			Temperature: val.Temperature,
			Breaker:     BreakerConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second},
		},
		Summary: SummaryConfig{
			MaxTokens:   summary.DefaultMaxTokens,
			Temperature: summary.DefaultTemperature,
		},
		Cleaning: CleaningConfig{
			FillerWords:       slices.Clone(transcript.DefaultFillerWords),
			NormalizeAccents:  true,
			RemovePunctuation: true,
		},
		Paths: PathsConfig{
			RawDir:    "data/raw",
			CleanDir:  "data/clean",
			OutputDir: "output",
		},
		Telemetry: TelemetryConfig{ServiceName: "callsight"},
	}
}

// SegmenterConfig converts the semantic section into a [semantic.Config].
func (c SemanticConfig) SegmenterConfig() semantic.Config {
	return semantic.Config{
		WindowSize:        c.WindowSize,
		Overlap:           c.Overlap,
		MinSentenceLength: c.MinSentenceLength,
		MinChunkWords:     c.MinChunkWords,
		IrrelevantPhrases: c.IrrelevantPhrases,
	}
}

// ValidatorConfig converts the validation section into a [validate.Config].
func (c ValidationConfig) ValidatorConfig() validate.Config {
	return validate.Config{
		Keywords:       c.Keywords,
		PromptTemplate: c.PromptTemplate,
		MaxTokens:      c.MaxTokens,
		Temperature:    c.Temperature,
	}
}

// AnalyzerConfig converts the analysis section into an [analyzer.Config].
func (c AnalysisConfig) AnalyzerConfig() analyzer.Config {
	return analyzer.Config{
		ClientSpeaker:      c.ClientSpeaker,
		IncludeTurns:       c.IncludeTurns,
		IncludeDetails:     c.IncludeDetails,
		CalculateIntensity: c.CalculateIntensity,
	}
}

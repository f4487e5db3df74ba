package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/callsight/internal/catalog"
	"github.com/MrWong99/callsight/internal/objection"
	"github.com/MrWong99/callsight/internal/observe/observetest"
	"github.com/MrWong99/callsight/internal/transcript"
)

func newAnalyzer(t *testing.T, cfg Config) (*Analyzer, *observetest.Reader) {
	t.Helper()
	m, reader := observetest.New(t)
	det := objection.New(catalog.Default(), objection.WithMetrics(m))
	return New(det, cfg, WithMetrics(m)), reader
}

var call = []transcript.Turn{
	{Speaker: "Speaker 1", SpeakerNum: 1, Timestamp: "0:01", Text: "Le llamo para ofrecerle el seguro."},
	{Speaker: "Speaker 2", SpeakerNum: 2, Timestamp: "0:05", Text: "Es demasiado caro y no tengo tiempo."},
	{Speaker: "Speaker 1", SpeakerNum: 1, Timestamp: "0:09", Text: "Tenemos un plan básico."},
	{Speaker: "Speaker 2", SpeakerNum: 2, Timestamp: "0:14", Text: "Hay algún descuento?"},
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	a, _ := newAnalyzer(t, DefaultConfig())
	r := a.Analyze(context.Background(), "call1.txt", call, 2)

	if r.File != "call1.txt" || r.TotalTurns != 4 || r.ClientTurns != 2 {
		t.Errorf("unexpected counts: %+v", r)
	}
	if r.ObjectionsFound != 3 {
		t.Fatalf("ObjectionsFound = %d, want 3: %+v", r.ObjectionsFound, r.Objections)
	}
	wantTypes := []TypeCount{{Type: "precio", Count: 2}, {Type: "tiempo", Count: 1}}
	if len(r.ObjectionTypes) != len(wantTypes) {
		t.Fatalf("ObjectionTypes = %+v", r.ObjectionTypes)
	}
	for i := range wantTypes {
		if r.ObjectionTypes[i] != wantTypes[i] {
			t.Errorf("ObjectionTypes[%d] = %+v, want %+v", i, r.ObjectionTypes[i], wantTypes[i])
		}
	}
	// precio/alta (3) + tiempo/alta (3) + precio/baja (1)
	if r.AvgIntensity == nil || *r.AvgIntensity != 7.0/3.0 {
		t.Errorf("AvgIntensity = %v, want %v", r.AvgIntensity, 7.0/3.0)
	}
	if len(r.Objections) != 3 {
		t.Errorf("expected details to be included, got %d", len(r.Objections))
	}
	if r.Turns != nil {
		t.Error("turns must be omitted by default")
	}
}

func TestAnalyze_Options(t *testing.T) {
	t.Parallel()

	a, _ := newAnalyzer(t, Config{ClientSpeaker: 2, IncludeTurns: true})
	r := a.Analyze(context.Background(), "call1.txt", call, 2)
	if r.AvgIntensity != nil {
		t.Error("intensity must be omitted when disabled")
	}
	if r.Objections != nil {
		t.Error("details must be omitted when disabled")
	}
	if len(r.Turns) != 4 {
		t.Errorf("expected 4 turns, got %d", len(r.Turns))
	}
}

func TestAnalyze_NoObjections(t *testing.T) {
	t.Parallel()

	a, _ := newAnalyzer(t, DefaultConfig())
	r := a.Analyze(context.Background(), "quiet.txt", call[:1], 2)
	if r.ObjectionsFound != 0 || len(r.ObjectionTypes) != 0 {
		t.Errorf("expected no objections, got %+v", r)
	}
	if r.AvgIntensity == nil || *r.AvgIntensity != 0 {
		t.Errorf("AvgIntensity = %v, want 0", r.AvgIntensity)
	}
}

func TestAverageIntensity_Empty(t *testing.T) {
	t.Parallel()

	if got := AverageIntensity(nil); got != 0 {
		t.Errorf("AverageIntensity(nil) = %v, want 0", got)
	}
}

func TestAnalyzeDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"a.txt": "Speaker 1: {0:01} Buenas tardes.\nSpeaker 2: {0:04} Ahora no tengo tiempo.\n",
		"b.txt": "End of transcript\n",
		"c.txt": "Speaker 2: {0:02} Eso es una estafa.\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	a, reader := newAnalyzer(t, DefaultConfig())
	reports, err := a.AnalyzeDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("AnalyzeDir: %v", err)
	}
	if len(reports) != 2 || reports[0].File != "a.txt" || reports[1].File != "c.txt" {
		t.Fatalf("reports = %+v", reports)
	}
	if reports[1].ObjectionTypes[0].Type != "confianza" {
		t.Errorf("c.txt types = %+v", reports[1].ObjectionTypes)
	}
	if n := reader.Counter("callsight.files.processed", "stage", "regex", "status", "failed"); n != 1 {
		t.Errorf("failed files = %d, want 1", n)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	f := func(v float64) *float64 { return &v }
	reports := []Report{
		{ObjectionsFound: 3, ObjectionTypes: []TypeCount{{"tiempo", 1}, {"precio", 2}}, AvgIntensity: f(2)},
		{ObjectionsFound: 1, ObjectionTypes: []TypeCount{{"precio", 1}}},
		{ObjectionsFound: 2, ObjectionTypes: []TypeCount{{"tiempo", 2}}, AvgIntensity: f(3)},
		{ObjectionsFound: 0, AvgIntensity: f(0)},
	}
	got := Summarize(reports)
	want := CorpusSummary{
		TotalFiles:           4,
		TotalObjections:      6,
		AvgObjectionsPerFile: 1.5,
		MostCommonObjection:  "tiempo",
		OverallAvgIntensity:  5.0 / 3.0,
	}
	if got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	if got := Summarize(nil); got != (CorpusSummary{}) {
		t.Errorf("Summarize(nil) = %+v", got)
	}
}

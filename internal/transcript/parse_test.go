package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCall = `Automatically transcribed by Sonix
Speaker 1: {0:03} Buenas tardes, le llamo de Seguros Sol.
Speaker 2: {0:09} Dígame.
Ahora mismo estoy ocupado.

Speaker 1: {0:15}
¿Cuándo le viene bien?
Speaker 3: sin marca de tiempo
---
End of transcript
`

func TestParse(t *testing.T) {
	t.Parallel()

	turns, err := Parse(strings.NewReader(sampleCall))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Turn{
		{Speaker: "Speaker 1", SpeakerNum: 1, Timestamp: "0:03", Text: "Buenas tardes, le llamo de Seguros Sol."},
		{Speaker: "Speaker 2", SpeakerNum: 2, Timestamp: "0:09", Text: "Dígame. Ahora mismo estoy ocupado."},
		{Speaker: "Speaker 1", SpeakerNum: 1, Timestamp: "0:15", Text: "¿Cuándo le viene bien?"},
		{Speaker: "Speaker 3", SpeakerNum: 3, Timestamp: "", Text: "sin marca de tiempo"},
	}
	if len(turns) != len(want) {
		t.Fatalf("got %d turns, want %d: %+v", len(turns), len(want), turns)
	}
	for i := range want {
		if turns[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, turns[i], want[i])
		}
	}
}

func TestParse_NoTurns(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("Automatically transcribed\n\nsolo texto suelto\n"))
	if !errors.Is(err, ErrNoTurns) {
		t.Fatalf("expected ErrNoTurns, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "call.txt")
	if err := os.WriteFile(path, []byte(sampleCall), 0o644); err != nil {
		t.Fatal(err)
	}
	turns, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(turns) != 4 {
		t.Errorf("got %d turns, want 4", len(turns))
	}
	if _, err := ParseFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTurnValidate(t *testing.T) {
	t.Parallel()

	if err := (Turn{Speaker: "Speaker 1", SpeakerNum: 1}).Validate(); err != nil {
		t.Errorf("valid turn: %v", err)
	}
	for _, bad := range []Turn{{SpeakerNum: 1}, {Speaker: "Speaker -1", SpeakerNum: -1}} {
		if err := bad.Validate(); !errors.Is(err, ErrMalformedTurn) {
			t.Errorf("Validate(%+v) = %v, want ErrMalformedTurn", bad, err)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0:03", 3, false},
		{"1:05", 65, false},
		{" 12:00 ", 720, false},
		{"1:02:03", 3723, false},
		{"0:60", 0, true},
		{"5", 0, true},
		{"a:bc", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseTimestamp(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseTimestamp(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimestamp(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "notes.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.txt" || filepath.Base(files[1]) != "b.txt" {
		t.Errorf("ListFiles = %v", files)
	}
	if _, err := ListFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

package rules

import (
	"context"
	"slices"
	"testing"
)

func TestSentences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "spanish punctuation",
			in:   "Buenas tardes. ¿Le interesa la oferta? ¡Es muy caro!",
			want: []string{"Buenas tardes.", "¿Le interesa la oferta?", "¡Es muy caro!"},
		},
		{
			name: "abbreviation does not split",
			in:   "Hablé con el Sr. Gómez ayer. Dijo que no.",
			want: []string{"Hablé con el Sr. Gómez ayer.", "Dijo que no."},
		},
		{
			name: "ellipsis and repeated marks",
			in:   "No sé… tal vez?? Lo pienso",
			want: []string{"No sé…", "tal vez??", "Lo pienso"},
		},
		{
			name: "decimal is not a boundary",
			in:   "Cuesta 19.99 al mes. Es demasiado.",
			want: []string{"Cuesta 19.99 al mes.", "Es demasiado."},
		},
		{
			name: "closing quote stays with sentence",
			in:   `Me dijo "no gracias." Y colgó.`,
			want: []string{`Me dijo "no gracias."`, "Y colgó."},
		},
		{
			name: "no terminator",
			in:   "  sin puntuacion final  ",
			want: []string{"sin puntuacion final"},
		},
		{name: "empty", in: "   ", want: nil},
	}
	s := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Sentences(context.Background(), tc.in)
			if err != nil {
				t.Fatalf("Sentences: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("Sentences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWithAbbreviations(t *testing.T) {
	t.Parallel()
	s := New(WithAbbreviations([]string{"cía."}))
	got, _ := s.Sentences(context.Background(), "Trabajo en Pérez y Cía. desde hace años. Gracias.")
	want := []string{"Trabajo en Pérez y Cía. desde hace años.", "Gracias."}
	if !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

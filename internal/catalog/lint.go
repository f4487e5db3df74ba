package catalog

import "github.com/antzucaro/matchr"

// Duplicate is a pair of derived phrases from different (type, category)
// cells that are close enough to confuse the semantic detector.
type Duplicate struct {
	A, B       Entry
	Similarity float64
}

// Lint returns every pair of entries from different (type, category) cells
// whose Jaro-Winkler similarity is at least minSimilarity. A non-positive
// minSimilarity disables the check.
func Lint(entries []Entry, minSimilarity float64) []Duplicate {
	if minSimilarity <= 0 {
		return nil
	}
	var out []Duplicate
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if a.Type == b.Type && a.Category == b.Category {
				continue
			}
			sim := matchr.JaroWinkler(a.Phrase, b.Phrase, false)
			if sim >= minSimilarity {
				out = append(out, Duplicate{A: a, B: b, Similarity: sim})
			}
		}
	}
	return out
}

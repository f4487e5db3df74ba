package analyzer

// CorpusSummary aggregates the reports of many calls.
type CorpusSummary struct {
	TotalFiles           int     `json:"total_files"`
	TotalObjections      int     `json:"total_objections"`
	AvgObjectionsPerFile float64 `json:"avg_objections_per_file"`
	MostCommonObjection  string  `json:"most_common_objection,omitempty"`
	OverallAvgIntensity  float64 `json:"overall_avg_intensity"`
}

// Summarize folds reports into corpus statistics.
//
// MostCommonObjection is the type present in the most calls; ties go to the
// type seen first. OverallAvgIntensity averages only the reports that carry
// an intensity figure.
func Summarize(reports []Report) CorpusSummary {
	if len(reports) == 0 {
		return CorpusSummary{}
	}

	s := CorpusSummary{TotalFiles: len(reports)}
	presence := make(map[string]int)
	var (
		order      []string
		intensity  float64
		intensityN int
	)
	for _, r := range reports {
		s.TotalObjections += r.ObjectionsFound
		for _, tc := range r.ObjectionTypes {
			if _, ok := presence[tc.Type]; !ok {
				order = append(order, tc.Type)
			}
			presence[tc.Type]++
		}
		if r.AvgIntensity != nil {
			intensity += *r.AvgIntensity
			intensityN++
		}
	}

	s.AvgObjectionsPerFile = float64(s.TotalObjections) / float64(len(reports))
	best := 0
	for _, typ := range order {
		if presence[typ] > best {
			best = presence[typ]
			s.MostCommonObjection = typ
		}
	}
	if intensityN > 0 {
		s.OverallAvgIntensity = intensity / float64(intensityN)
	}
	return s
}

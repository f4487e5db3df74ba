package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
)

// Stage hand-off file names inside the output directory.
const (
	RegexReportsFile        = "regex_reports.json"
	SemanticDetectionsFile  = "semantic_detections.json"
	ValidatedDetectionsFile = "validated_detections.json"
	CallMetricsFile         = "call_metrics.json"
	CallSummariesFile       = "call_summaries.json"
	FinalReportFile         = "final_report.csv"
)

// WriteCSV writes a header and rows separated by ';'.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("report: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes rows to path, creating parent directories.
func WriteCSVFile(path string, rows []Row) (err error) {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("report: close %q: %w", path, cerr)
		}
	}()
	return WriteCSV(f, rows)
}

// WriteTable renders rows as an aligned text table, omitting the long
// summary and response columns.
func WriteTable(w io.Writer, rows []Row) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"file", "duration_s", "type", "category", "similarity", "phrase"})
	t.SetAutoWrapText(false)
	for _, r := range rows {
		rec := r.Record()
		t.Append([]string{rec[0], rec[1], rec[9], rec[8], rec[10], rec[6]})
	}
	t.Render()
}

// WriteJSON writes v as indented JSON to path, creating parent directories.
func WriteJSON(path string, v any) (err error) {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("report: close %q: %w", path, cerr)
		}
	}()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: encode %q: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the JSON file at path into a value of type T.
func ReadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("report: %w", err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("report: decode %q: %w", path, err)
	}
	return v, nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return f, nil
}

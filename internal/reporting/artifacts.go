package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names.
const (
	FileReport       = "REPORT.md"
	FileMovers       = "movers.csv"
	FileMonthlyBySet = "monthly_by_set.csv"
	FileReleasePivot = "release_pivot.csv"
	FileSummary      = "summary.csv"
	FileDashboard    = "dashboard.xlsx"
)

// WriteArtifacts writes REPORT.md and the CSV exports into dir, plus
// dashboard.xlsx when withXLSX is set. Returns the written paths in order.
func WriteArtifacts(r *Report, dir string, withXLSX bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{FileReport, RenderMarkdown(r)},
		{FileMovers, RenderMoversCSV(r.Movers)},
		{FileMonthlyBySet, RenderMonthlyCSV(r.MonthlyBySet, r.Metrics)},
		{FileReleasePivot, RenderPivotCSV(r.ReleasePivot)},
		{FileSummary, RenderSummaryCSV(r.Summary)},
	}

	written := make([]string, 0, len(files)+1)
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.name, err)
		}
		written = append(written, path)
	}

	if !withXLSX {
		return written, nil
	}

	path := filepath.Join(dir, FileDashboard)
	out, err := os.Create(path)
	if err != nil {
		return written, fmt.Errorf("create %s: %w", FileDashboard, err)
	}
	if err := WriteXLSX(out, r); err != nil {
		_ = out.Close()
		return written, err
	}
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", FileDashboard, err)
	}
	return append(written, path), nil
}

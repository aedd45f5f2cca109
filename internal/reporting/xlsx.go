package reporting

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"card-market-lab/internal/domain"
)

// Workbook sheet names, in tab order.
const (
	SheetOverview   = "Overview"
	SheetTopMovers  = "Top Movers"
	SheetMonthly    = "Monthly by Set"
	SheetPivot      = "Release Pivot"
	SheetCohorts    = "Cohorts"
	SheetSummary    = "Column Summary"
	SheetCardTypes  = "Card Types"
	SheetDataChecks = "Data Quality"
)

// RenderXLSX builds the dashboard workbook. The caller owns the returned
// file and must Close it.
func RenderXLSX(r *Report) (*excelize.File, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetOverview, overviewRows(r)},
		{SheetTopMovers, moverRows(r.TopMovers)},
		{SheetMonthly, monthlyRows(r.MonthlyBySet, r.Metrics)},
		{SheetPivot, pivotRows(r.ReleasePivot)},
		{SheetCohorts, cohortRows(r.Cohorts)},
		{SheetSummary, summaryRows(r.Summary)},
		{SheetCardTypes, cardTypeRows(r.CardTypes)},
		{SheetDataChecks, qualityRows(r.DataQuality)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("rename sheet %s: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
		}

		if err := writeSheet(f, s.name, s.rows, header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteXLSX renders the workbook and writes it to w.
func WriteXLSX(w io.Writer, r *Report) error {
	f, err := RenderXLSX(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 {
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
	}
	return nil
}

func overviewRows(r *Report) [][]any {
	return [][]any{
		{"Field", "Value"},
		{"Run ID", r.RunID},
		{"Generated", r.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z")},
		{"Source", r.Source},
		{"Data Version", r.DataVersion},
		{"Window Start", r.Window.Start},
		{"Window End", r.Window.End},
		{"Maturation Months", r.Window.MaturationMonths},
		{"Raw Rows", r.DataSummary.RawRows},
		{"Filtered Rows", r.DataSummary.FilteredRows},
		{"Unique Cards", r.DataSummary.UniqueCards},
		{"Sets", r.DataSummary.Sets},
		{"Items", r.DataSummary.Items},
		{"Movers", len(r.Movers)},
	}
}

func moverRows(movers []domain.Mover) [][]any {
	rows := [][]any{{"Item", "Grade", "Set", "Trailing Avg", "Latest Price", "Latest Date", "Window", "Change %"}}
	for _, m := range movers {
		rows = append(rows, []any{
			m.ItemName, m.Grade, m.SetName, m.TrailingAvg, m.LatestPrice,
			m.LatestDate.Format(dateLayout), m.WindowSize, m.PercentChange,
		})
	}
	return rows
}

func monthlyRows(data []domain.MonthlySetRow, specs []domain.MetricSpec) [][]any {
	header := []any{"Set", "Grade", "Date"}
	for _, s := range specs {
		header = append(header, s.Metric.String())
	}

	rows := [][]any{header}
	for _, d := range data {
		row := []any{d.Group.SetName, d.Group.Grade, d.Month.Format(dateLayout)}
		for _, s := range specs {
			row = append(row, cellValue(d.Values, s.Metric))
		}
		rows = append(rows, row)
	}
	return rows
}

func pivotRows(p *domain.ReleasePivot) [][]any {
	header := []any{"mos_since_release"}
	if p == nil {
		return [][]any{header}
	}
	for _, c := range p.Columns {
		header = append(header, c.Name())
	}

	rows := [][]any{header}
	for _, pr := range p.Rows {
		row := []any{pr.MonthsSinceRelease}
		for _, v := range pr.Values {
			row = append(row, optionalCell(v))
		}
		rows = append(rows, row)
	}
	return rows
}

func cohortRows(cohorts []domain.Cohort) [][]any {
	rows := [][]any{{"Cohort", "Metric", "Set"}}
	for _, c := range cohorts {
		for _, m := range c.Members {
			rows = append(rows, []any{string(c.Name), c.Metric.String(), m})
		}
	}
	return rows
}

func summaryRows(summary []domain.ColumnSummary) [][]any {
	rows := [][]any{{"Column", "Type", "Non-null", "Unique", "Min", "Max", "Mean", "Description"}}
	for _, s := range summary {
		rows = append(rows, []any{
			s.Column, s.DType, s.NonNullCount, s.UniqueCount,
			statCell(s.Min), statCell(s.Max), statCell(s.Mean),
			s.Description,
		})
	}
	return rows
}

func cardTypeRows(types []domain.CardTypeCount) [][]any {
	rows := [][]any{{"Card Type", "Count"}}
	for _, t := range types {
		rows = append(rows, []any{t.CardType, t.Count})
	}
	return rows
}

func qualityRows(q DataQualitySection) [][]any {
	rows := [][]any{{"Check", "Threshold", "Actual", "Status"}}
	for _, c := range q.Checks {
		rows = append(rows, []any{c.Name, c.Threshold, c.Actual, passFail(c.Pass)})
	}
	return rows
}

// cellValue returns "" for a missing metric so the cell stays blank.
func cellValue(values domain.MetricValues, m domain.Metric) any {
	if v, ok := values[m]; ok {
		return v
	}
	return ""
}

func optionalCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func statCell(v *float64) any {
	if v == nil {
		return NotApplicable
	}
	return *v
}

package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"card-market-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// RenderMoversCSV renders movers as CSV string, one row per (item, grade, set).
func RenderMoversCSV(movers []domain.Mover) string {
	rows := [][]string{{
		"poke_id", "poke_name", "grade", "set_name",
		"trailing_avg", "latest_price", "latest_date", "window_size", "percent_change",
	}}
	for _, m := range movers {
		rows = append(rows, []string{
			m.ItemID,
			m.ItemName,
			m.Grade,
			m.SetName,
			strconv.FormatFloat(m.TrailingAvg, 'f', 6, 64),
			strconv.FormatFloat(m.LatestPrice, 'f', 6, 64),
			m.LatestDate.Format(dateLayout),
			strconv.Itoa(m.WindowSize),
			strconv.Itoa(m.PercentChange),
		})
	}
	return writeCSV(rows)
}

// RenderMonthlyCSV renders the monthly resample with one column per metric.
func RenderMonthlyCSV(rows []domain.MonthlySetRow, specs []domain.MetricSpec) string {
	header := []string{"set_name", "grade", "date"}
	for _, s := range specs {
		header = append(header, s.Metric.String())
	}

	out := [][]string{header}
	for _, r := range rows {
		rec := []string{r.Group.SetName, r.Group.Grade, r.Month.Format(dateLayout)}
		for _, s := range specs {
			rec = append(rec, formatValue(r.Values, s.Metric))
		}
		out = append(out, rec)
	}
	return writeCSV(out)
}

// RenderPivotCSV renders the release-month pivot with flattened column names.
func RenderPivotCSV(p *domain.ReleasePivot) string {
	if p == nil {
		return writeCSV([][]string{{"mos_since_release"}})
	}

	header := []string{"mos_since_release"}
	for _, c := range p.Columns {
		header = append(header, c.Name())
	}

	out := [][]string{header}
	for _, row := range p.Rows {
		rec := []string{strconv.Itoa(row.MonthsSinceRelease)}
		for _, v := range row.Values {
			rec = append(rec, formatCell(v))
		}
		out = append(out, rec)
	}
	return writeCSV(out)
}

// RenderSummaryCSV renders the column summary table.
func RenderSummaryCSV(summary []domain.ColumnSummary) string {
	out := [][]string{{"column", "dtype", "non_null_count", "unique_count", "min", "max", "mean", "description"}}
	for _, s := range summary {
		out = append(out, []string{
			s.Column,
			s.DType,
			strconv.Itoa(s.NonNullCount),
			strconv.Itoa(s.UniqueCount),
			formatStat(s.Min),
			formatStat(s.Max),
			formatStat(s.Mean),
			s.Description,
		})
	}
	return writeCSV(out)
}

func writeCSV(rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	// WriteAll into a strings.Builder cannot fail.
	_ = w.WriteAll(rows)
	return sb.String()
}

func formatValue(values domain.MetricValues, m domain.Metric) string {
	v, ok := values[m]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// NotApplicable marks a summary statistic the column type has no value for.
const NotApplicable = "N/A"

// formatStat renders a summary statistic; nil means not applicable.
func formatStat(v *float64) string {
	if v == nil {
		return NotApplicable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

package reporting

import (
	"fmt"
	"strings"

	"card-market-lab/internal/domain"
)

// maxMarkdownPivotColumns caps the pivot table width in REPORT.md.
// The full pivot is always available in release_pivot.csv.
const maxMarkdownPivotColumns = 8

// RenderMarkdown renders the dashboard report as Markdown.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Card Market Dashboard\n\n")
	sb.WriteString(fmt.Sprintf("Run ID: %s\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n", r.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z")))
	sb.WriteString(fmt.Sprintf("Source: %s\n", r.Source))
	sb.WriteString(fmt.Sprintf("Data Version: %s\n\n", r.DataVersion))

	// Window
	sb.WriteString("## Analysis Window\n\n")
	sb.WriteString(fmt.Sprintf("- Months: %s to %s (inclusive)\n", r.Window.Start, r.Window.End))
	sb.WriteString(fmt.Sprintf("- Maturation clip: first %d months after release excluded\n\n", r.Window.MaturationMonths))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Raw Rows | %d |\n", r.DataSummary.RawRows))
	sb.WriteString(fmt.Sprintf("| Filtered Rows | %d |\n", r.DataSummary.FilteredRows))
	sb.WriteString(fmt.Sprintf("| Unique Cards | %d |\n", r.DataSummary.UniqueCards))
	sb.WriteString(fmt.Sprintf("| Sets | %d |\n", r.DataSummary.Sets))
	sb.WriteString(fmt.Sprintf("| Items | %d |\n", r.DataSummary.Items))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.Checks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, c := range r.DataQuality.Checks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, passFail(c.Pass)))
		}
		sb.WriteString(fmt.Sprintf("\nAll checks passed: %t\n", r.DataQuality.AllChecksPassed))
		if len(r.DataQuality.Issues) > 0 {
			sb.WriteString("\n### Issues\n\n")
			for _, issue := range r.DataQuality.Issues {
				sb.WriteString("- " + issue + "\n")
			}
		}
	} else {
		sb.WriteString("No data quality checks run.\n")
	}
	sb.WriteString("\n")

	// Movers
	sb.WriteString(fmt.Sprintf("## Top Movers (trailing %d observations)\n\n", r.MoverWindow))
	if len(r.TopMovers) > 0 {
		sb.WriteString("| Item | Grade | Set | Trailing Avg | Latest | Change % |\n")
		sb.WriteString("|------|-------|-----|--------------|--------|----------|\n")
		for _, m := range r.TopMovers {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %.2f | %d |\n",
				m.ItemName, m.Grade, m.SetName, m.TrailingAvg, m.LatestPrice, m.PercentChange))
		}
	} else {
		sb.WriteString("No movers above the price floor.\n")
	}
	sb.WriteString("\n")

	// Cohorts
	sb.WriteString("## Cohorts\n\n")
	if len(r.Cohorts) > 0 {
		sb.WriteString("| Cohort | Metric | Sets |\n")
		sb.WriteString("|--------|--------|------|\n")
		for _, c := range r.Cohorts {
			members := "-"
			if len(c.Members) > 0 {
				members = strings.Join(c.Members, ", ")
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", c.Name, c.Metric, members))
		}
	} else {
		sb.WriteString("No cohorts configured.\n")
	}
	sb.WriteString("\n")

	// Charts
	sb.WriteString("## Charts\n\n")
	if len(r.Charts) > 0 {
		sb.WriteString("| Chart | Metric | Series | Points |\n")
		sb.WriteString("|-------|--------|--------|--------|\n")
		for _, c := range r.Charts {
			points := 0
			for _, s := range c.Series {
				points += len(s.Points)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d |\n", c.Title, c.Metric, len(c.Series), points))
		}
	} else {
		sb.WriteString("No chart data available.\n")
	}
	sb.WriteString("\n")

	// Release pivot
	sb.WriteString("## Price by Months Since Release\n\n")
	if r.ReleasePivot != nil && len(r.ReleasePivot.Rows) > 0 {
		writePivot(&sb, r.ReleasePivot)
	} else {
		sb.WriteString("No release-month data available.\n")
	}
	sb.WriteString("\n")

	// Flag shares
	sb.WriteString("## Card Attributes\n\n")
	if len(r.FlagShares) > 0 {
		sb.WriteString("| Attribute | Share |\n")
		sb.WriteString("|-----------|-------|\n")
		for _, f := range r.FlagShares {
			sb.WriteString(fmt.Sprintf("| %s | %.1f%% |\n", f.Label, f.Share*100))
		}
	} else {
		sb.WriteString("No card attribute data available.\n")
	}
	sb.WriteString("\n")

	// Card types
	sb.WriteString("## Card Type Distribution\n\n")
	if len(r.CardTypeBins) > 0 {
		sb.WriteString(fmt.Sprintf("%d card types.\n\n", len(r.CardTypes)))
		sb.WriteString("| Count Range | Card Types | Cards |\n")
		sb.WriteString("|-------------|------------|-------|\n")
		for _, b := range r.CardTypeBins {
			sb.WriteString(fmt.Sprintf("| %.0f-%.0f | %d | %.0f |\n", b.Lower, b.Upper, b.Items, b.Weight))
		}
	} else {
		sb.WriteString("No card type data available.\n")
	}
	sb.WriteString("\n")

	// Column summary
	sb.WriteString("## Column Summary\n\n")
	if len(r.Summary) > 0 {
		sb.WriteString("| Column | Type | Non-null | Unique | Min | Max | Mean | Description |\n")
		sb.WriteString("|--------|------|----------|--------|-----|-----|------|-------------|\n")
		for _, s := range r.Summary {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %s | %s | %s | %s |\n",
				s.Column, s.DType, s.NonNullCount, s.UniqueCount,
				formatStat(s.Min), formatStat(s.Max), formatStat(s.Mean),
				s.Description))
		}
	} else {
		sb.WriteString("No rows to summarize.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func writePivot(sb *strings.Builder, p *domain.ReleasePivot) {
	cols := p.Columns
	if len(cols) > maxMarkdownPivotColumns {
		cols = cols[:maxMarkdownPivotColumns]
	}

	sb.WriteString("| Months |")
	for _, c := range cols {
		sb.WriteString(fmt.Sprintf(" %s %s |", c.Metric, c.Group))
	}
	sb.WriteString("\n|--------|")
	for range cols {
		sb.WriteString("------|")
	}
	sb.WriteString("\n")

	for _, row := range p.Rows {
		sb.WriteString(fmt.Sprintf("| %d |", row.MonthsSinceRelease))
		for i := range cols {
			sb.WriteString(fmt.Sprintf(" %s |", formatOptional(row.Values[i])))
		}
		sb.WriteString("\n")
	}

	if len(p.Columns) > len(cols) {
		sb.WriteString(fmt.Sprintf("\n%d of %d columns shown; see release_pivot.csv.\n", len(cols), len(p.Columns)))
	}
}

func passFail(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

// formatOptional renders nil as an empty cell.
func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}


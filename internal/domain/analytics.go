package domain

import (
	"fmt"
	"time"
)

// GroupKey identifies an aggregation group: a set, optionally split by grade.
type GroupKey struct {
	SetName string `json:"set_name"`
	Grade   string `json:"grade,omitempty"` // empty when grouping by set only
}

// String renders the key as "set" or "set/grade".
func (k GroupKey) String() string {
	if k.Grade == "" {
		return k.SetName
	}
	return k.SetName + "/" + k.Grade
}

// Less orders keys by set name, then grade.
func (k GroupKey) Less(other GroupKey) bool {
	if k.SetName != other.SetName {
		return k.SetName < other.SetName
	}
	return k.Grade < other.Grade
}

// MonthlySetRow is one (group, month-end) row of the monthly resample.
// Months inside a group's span without observations have empty Values.
type MonthlySetRow struct {
	Group  GroupKey     `json:"group"`
	Month  time.Time    `json:"month"` // month-end date
	Values MetricValues `json:"values"`
}

// PivotColumn is one (metric, group) column of the release-month pivot.
type PivotColumn struct {
	Metric Metric   `json:"metric"`
	Group  GroupKey `json:"group"`
}

// Name renders the flattened column name, e.g. avg_price_bb_mo_price_by_set_evolving-skies.
func (c PivotColumn) Name() string {
	return fmt.Sprintf("avg_price_%s_%s", c.Metric, c.Group)
}

// PivotRow holds one release month; Values align with ReleasePivot.Columns.
type PivotRow struct {
	MonthsSinceRelease int        `json:"mos_since_release"`
	Values             []*float64 `json:"values"` // nil = group never reached this month
}

// ReleasePivot is the dense months-since-release table.
type ReleasePivot struct {
	Columns []PivotColumn `json:"columns"`
	Rows    []PivotRow    `json:"rows"`
}

// Value returns the cell for (month, column index); nil when missing or out of range.
func (p *ReleasePivot) Value(month, col int) *float64 {
	if month < 0 || month >= len(p.Rows) || col < 0 || col >= len(p.Columns) {
		return nil
	}
	return p.Rows[month].Values[col]
}

// ColumnIndex returns the index of the (metric, group) column, or -1.
func (p *ReleasePivot) ColumnIndex(m Metric, g GroupKey) int {
	for i, c := range p.Columns {
		if c.Metric == m && c.Group == g {
			return i
		}
	}
	return -1
}

// CohortName identifies a price-tier cohort.
type CohortName string

const (
	CohortHighValueCards CohortName = "high_value_cards"
	CohortLowValueCards  CohortName = "low_value_cards"
	CohortMidValueBoxes  CohortName = "mid_value_boxes"
	CohortLowValueBoxes  CohortName = "low_value_boxes"
)

// Cohort is the membership of one cohort rule, set names sorted ascending.
type Cohort struct {
	Name    CohortName `json:"name"`
	Metric  Metric     `json:"metric"`
	Members []string   `json:"members"`
}

// Contains reports whether set is a member.
func (c Cohort) Contains(set string) bool {
	for _, m := range c.Members {
		if m == set {
			return true
		}
	}
	return false
}

// Mover is the trailing-window price comparison for one (item, grade, set).
type Mover struct {
	ItemID        string    `json:"item_id"`
	ItemName      string    `json:"item_name"`
	Grade         string    `json:"grade"`
	SetName       string    `json:"set_name"`
	TrailingAvg   float64   `json:"trailing_avg"`
	LatestPrice   float64   `json:"latest_price"`
	LatestDate    time.Time `json:"latest_date"`
	WindowSize    int       `json:"window_size"` // observations actually used, <= configured window
	PercentChange int       `json:"percent_change"`
}

// ColumnSummary describes one column of the feature table.
// Min, Max and Mean are nil for non-numeric or all-missing columns.
type ColumnSummary struct {
	Column       string   `json:"column"`
	DType        string   `json:"dtype"`
	NonNullCount int      `json:"non_null_count"`
	UniqueCount  int      `json:"unique_count"`
	Min          *float64 `json:"min"`
	Max          *float64 `json:"max"`
	Mean         *float64 `json:"mean"` // rounded to 3 decimals
	Description  string   `json:"description"`
}

// FlagShare is the share of cards carrying one flag.
type FlagShare struct {
	Label string  `json:"label"`
	Share float64 `json:"share"` // 0..1
}

// HistogramBin is one equal-width bucket of a weighted histogram.
type HistogramBin struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Items  int     `json:"items"`
	Weight float64 `json:"weight"`
}

// SeriesPoint is one chart point; Value nil renders as a gap.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// Series is one line of a time-series chart.
type Series struct {
	Group  GroupKey      `json:"group"`
	Metric Metric        `json:"metric"`
	Points []SeriesPoint `json:"points"`
}

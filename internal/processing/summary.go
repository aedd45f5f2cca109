package processing

import (
	"math"
	"sort"
	"strings"
	"time"

	"card-market-lab/internal/domain"
)

// Column data types reported by Summarize.
const (
	DTypeString = "string"
	DTypeInt    = "int64"
	DTypeFloat  = "float64"
	DTypeBool   = "bool"
	DTypeDate   = "datetime"
)

// column extracts one feature_set column from an observation.
// get returns false for a missing value.
type column struct {
	name  string
	dtype string
	get   func(o *domain.Observation) (any, bool)
}

func stringColumn(name string, f func(o *domain.Observation) string) column {
	return column{name: name, dtype: DTypeString, get: func(o *domain.Observation) (any, bool) {
		v := f(o)
		return v, v != ""
	}}
}

func intColumn(name string, f func(o *domain.Observation) *int) column {
	return column{name: name, dtype: DTypeInt, get: func(o *domain.Observation) (any, bool) {
		v := f(o)
		if v == nil {
			return nil, false
		}
		return *v, true
	}}
}

func dateColumn(name string, f func(o *domain.Observation) time.Time) column {
	return column{name: name, dtype: DTypeDate, get: func(o *domain.Observation) (any, bool) {
		v := f(o)
		return v, !v.IsZero()
	}}
}

// featureColumns lists every column of the feature table in schema order.
func featureColumns() []column {
	cols := []column{
		stringColumn("poke_name", func(o *domain.Observation) string { return o.ItemName }),
		stringColumn("poke_id", func(o *domain.Observation) string { return o.ItemID }),
		stringColumn("number", func(o *domain.Observation) string { return o.Number }),
		stringColumn("grade", func(o *domain.Observation) string { return o.Grade }),
		stringColumn("set_name", func(o *domain.Observation) string { return o.SetName }),
		intColumn("set_year", func(o *domain.Observation) *int { return o.SetYear }),
		stringColumn("product_type", func(o *domain.Observation) string { return o.ProductType }),
		dateColumn("release_date", func(o *domain.Observation) time.Time { return o.ReleaseDate }),
		dateColumn("date", func(o *domain.Observation) time.Time { return o.Date }),
		{name: "price", dtype: DTypeFloat, get: func(o *domain.Observation) (any, bool) {
			if o.Price == nil {
				return nil, false
			}
			return *o.Price, true
		}},
		intColumn("mos_since_release", func(o *domain.Observation) *int { return o.MonthsSinceRelease }),
	}
	for _, m := range domain.AllMetrics {
		cols = append(cols, column{name: string(m), dtype: DTypeFloat, get: func(o *domain.Observation) (any, bool) {
			v, ok := o.Metrics[m]
			return v, ok
		}})
	}
	for _, f := range domain.AllFlags {
		cols = append(cols, column{name: string(f), dtype: DTypeBool, get: func(o *domain.Observation) (any, bool) {
			v, ok := o.Flags[f]
			return v, ok
		}})
	}
	return cols
}

// numeric converts a column value to float64 for min/max/mean.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, !math.IsNaN(x)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func isNumericDType(dtype string) bool {
	return dtype == DTypeInt || dtype == DTypeFloat || dtype == DTypeBool
}

// Summarize builds descriptive statistics for every feature_set column.
// Non-numeric columns, and numeric columns with no values, leave Min, Max and
// Mean nil. Descriptions come from descriptions; unknown columns stay blank.
func Summarize(obs []*domain.Observation, descriptions map[string]string) []domain.ColumnSummary {
	cols := featureColumns()
	out := make([]domain.ColumnSummary, 0, len(cols))

	for _, c := range cols {
		s := domain.ColumnSummary{
			Column:      c.name,
			DType:       c.dtype,
			Description: descriptions[c.name],
		}

		distinct := make(map[any]struct{})
		var sum float64
		var n int
		lo, hi := math.Inf(1), math.Inf(-1)

		for _, o := range obs {
			v, ok := c.get(o)
			if !ok {
				continue
			}
			if t, isTime := v.(time.Time); isTime {
				v = t.UTC()
			}
			s.NonNullCount++
			distinct[v] = struct{}{}

			if !isNumericDType(c.dtype) {
				continue
			}
			if f, ok := numeric(v); ok {
				sum += f
				n++
				lo = math.Min(lo, f)
				hi = math.Max(hi, f)
			}
		}
		s.UniqueCount = len(distinct)

		if n > 0 {
			mean := math.Round(sum/float64(n)*1000) / 1000
			s.Min, s.Max, s.Mean = &lo, &hi, &mean
		}
		out = append(out, s)
	}
	return out
}

// FlagBreakdown extracts is_* columns from a summary as card shares,
// sorted by share ascending with the prefix trimmed from labels.
// Flags without a mean are skipped.
func FlagBreakdown(summary []domain.ColumnSummary) []domain.FlagShare {
	var out []domain.FlagShare
	for _, s := range summary {
		if !strings.HasPrefix(s.Column, domain.FlagPrefix) || s.Mean == nil {
			continue
		}
		out = append(out, domain.FlagShare{
			Label: strings.TrimPrefix(s.Column, domain.FlagPrefix),
			Share: *s.Mean,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Share < out[j].Share })
	return out
}

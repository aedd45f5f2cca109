package storage

import "card-market-lab/internal/domain"

// Scalar columns of feature_set in scan order. Metric and flag columns
// follow, in domain.AllMetrics and domain.AllFlags order.
const (
	ColItemID             = "poke_id"
	ColItemName           = "poke_name"
	ColNumber             = "number"
	ColGrade              = "grade"
	ColSetName            = "set_name"
	ColSetYear            = "set_year"
	ColProductType        = "product_type"
	ColReleaseDate        = "release_date"
	ColDate               = "date"
	ColPrice              = "price"
	ColMonthsSinceRelease = "mos_since_release"
)

// ScalarColumns lists the non-metric, non-flag columns of feature_set.
var ScalarColumns = []string{
	ColItemID,
	ColItemName,
	ColNumber,
	ColGrade,
	ColSetName,
	ColSetYear,
	ColProductType,
	ColReleaseDate,
	ColDate,
	ColPrice,
	ColMonthsSinceRelease,
}

// FeatureSetColumns returns every feature_set column in scan order.
func FeatureSetColumns() []string {
	cols := make([]string, 0, len(ScalarColumns)+len(domain.AllMetrics)+len(domain.AllFlags))
	cols = append(cols, ScalarColumns...)
	for _, m := range domain.AllMetrics {
		cols = append(cols, string(m))
	}
	for _, f := range domain.AllFlags {
		cols = append(cols, string(f))
	}
	return cols
}

// MetricsFromNullable builds MetricValues from nullable values in
// domain.AllMetrics order. Nil entries are left out.
func MetricsFromNullable(vals []*float64) domain.MetricValues {
	out := make(domain.MetricValues, len(vals))
	for i, v := range vals {
		if v != nil && i < len(domain.AllMetrics) {
			out[domain.AllMetrics[i]] = *v
		}
	}
	return out
}

// FlagsFromNullable builds FlagValues from nullable values in
// domain.AllFlags order. Nil entries are left out.
func FlagsFromNullable(vals []*bool) domain.FlagValues {
	out := make(domain.FlagValues, len(vals))
	for i, v := range vals {
		if v != nil && i < len(domain.AllFlags) {
			out[domain.AllFlags[i]] = *v
		}
	}
	return out
}

// MetricsToNullable is the inverse of MetricsFromNullable.
func MetricsToNullable(vals domain.MetricValues) []*float64 {
	out := make([]*float64, len(domain.AllMetrics))
	for i, m := range domain.AllMetrics {
		if v, ok := vals[m]; ok {
			out[i] = &v
		}
	}
	return out
}

// FlagsToNullable is the inverse of FlagsFromNullable.
func FlagsToNullable(vals domain.FlagValues) []*bool {
	out := make([]*bool, len(domain.AllFlags))
	for i, f := range domain.AllFlags {
		if v, ok := vals[f]; ok {
			out[i] = &v
		}
	}
	return out
}

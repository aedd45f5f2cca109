package domain

import (
	"fmt"
	"math"
	"strings"
)

// Metric identifies a pre-computed per-set aggregate column of feature_set.
type Metric string

const (
	MetricAvgSealedPrice  Metric = "avg_mo_price_sealed_in_set"
	MetricMaxSealedPrice  Metric = "max_mo_price_sealed_in_set"
	MetricAvgCardPrice    Metric = "avg_mo_price_card_in_set"
	MetricMaxCardPrice    Metric = "max_mo_price_card_in_set"
	MetricTop10CardSum    Metric = "top10_nm_card_mo_sum_in_set"
	MetricTop10CardAvg    Metric = "top10_nm_card_mo_avg_in_set"
	MetricBoosterBoxPrice Metric = "bb_mo_price_by_set"
	MetricETBPrice        Metric = "etb_mo_price_by_set"
	MetricTop10ToBoxRatio Metric = "top10_mo_card_sum_to_bb_cost_ratio"
	MetricAvgPSA10Price   Metric = "avg_mo_price_psa_10_in_set"
	MetricMaxPSA10Price   Metric = "max_mo_price_psa_10_in_set"
)

// AllMetrics lists every metric column in feature_set order.
var AllMetrics = []Metric{
	MetricAvgSealedPrice,
	MetricMaxSealedPrice,
	MetricAvgCardPrice,
	MetricMaxCardPrice,
	MetricTop10CardSum,
	MetricTop10CardAvg,
	MetricBoosterBoxPrice,
	MetricETBPrice,
	MetricTop10ToBoxRatio,
	MetricAvgPSA10Price,
	MetricMaxPSA10Price,
}

// String returns the column name.
func (m Metric) String() string {
	return string(m)
}

// IsValid checks if the metric is a known feature_set column.
func (m Metric) IsValid() bool {
	for _, known := range AllMetrics {
		if m == known {
			return true
		}
	}
	return false
}

// MetricValues holds metric values for one row. Absent key = missing.
type MetricValues map[Metric]float64

// Reduction names how a group of values collapses to one value.
type Reduction string

const (
	ReduceMean Reduction = "mean"
	ReduceMax  Reduction = "max"
	ReduceMin  Reduction = "min"
	ReduceSum  Reduction = "sum"
)

// Apply reduces values. Returns false for an empty slice.
func (r Reduction) Apply(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	switch r {
	case ReduceMax:
		out := math.Inf(-1)
		for _, v := range values {
			out = math.Max(out, v)
		}
		return out, true
	case ReduceMin:
		out := math.Inf(1)
		for _, v := range values {
			out = math.Min(out, v)
		}
		return out, true
	case ReduceSum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum, true
	default:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), true
	}
}

// IsValid checks if the reduction is supported.
func (r Reduction) IsValid() bool {
	switch r {
	case ReduceMean, ReduceMax, ReduceMin, ReduceSum:
		return true
	}
	return false
}

// MetricSpec pairs a metric with the reduction used when aggregating it.
type MetricSpec struct {
	Metric    Metric    `json:"metric"`
	Reduction Reduction `json:"reduction"`
}

// DefaultAggregateMetrics is the metric set charted per set and per release month.
func DefaultAggregateMetrics() []MetricSpec {
	return []MetricSpec{
		{Metric: MetricAvgSealedPrice, Reduction: ReduceMean},
		{Metric: MetricAvgCardPrice, Reduction: ReduceMean},
		{Metric: MetricTop10CardAvg, Reduction: ReduceMean},
		{Metric: MetricTop10CardSum, Reduction: ReduceMean},
		{Metric: MetricBoosterBoxPrice, Reduction: ReduceMean},
		{Metric: MetricAvgPSA10Price, Reduction: ReduceMean},
		{Metric: MetricTop10ToBoxRatio, Reduction: ReduceMean},
	}
}

// ParseMetricSpecs validates "metric" or "metric:reduction" entries.
// A bare metric name defaults to mean.
func ParseMetricSpecs(entries []string) ([]MetricSpec, error) {
	specs := make([]MetricSpec, 0, len(entries))
	seen := make(map[Metric]struct{}, len(entries))
	for _, e := range entries {
		name, red, found := strings.Cut(strings.TrimSpace(e), ":")
		spec := MetricSpec{Metric: Metric(name), Reduction: ReduceMean}
		if found {
			spec.Reduction = Reduction(red)
		}
		if !spec.Metric.IsValid() {
			return nil, fmt.Errorf("unknown metric %q", name)
		}
		if !spec.Reduction.IsValid() {
			return nil, fmt.Errorf("unknown reduction %q for metric %s", red, name)
		}
		if _, dup := seen[spec.Metric]; dup {
			return nil, fmt.Errorf("metric %s listed twice", name)
		}
		seen[spec.Metric] = struct{}{}
		specs = append(specs, spec)
	}
	return specs, nil
}

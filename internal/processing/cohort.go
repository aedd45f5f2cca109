package processing

import (
	"math"
	"sort"

	"card-market-lab/internal/domain"
)

// CohortRule qualifies a set when the maximum of Metric over its monthly
// series lies in the closed interval [Min, Max]. A nil bound is open.
type CohortRule struct {
	Name    domain.CohortName
	Metric  domain.Metric
	Min     *float64
	Max     *float64
	Exclude []string // sets never listed, even when qualifying
}

// Contains reports whether v lies inside the rule's interval.
func (r CohortRule) Contains(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Cohort thresholds.
const (
	DefaultCardValueThreshold = 700.0
	DefaultMidBoxMin          = 500.0
	DefaultMidBoxMax          = 1000.0
	DefaultLowBoxMax          = 200.0
)

// DefaultCohortRules returns the four price-tier rules.
func DefaultCohortRules() []CohortRule {
	return []CohortRule{
		{Name: domain.CohortHighValueCards, Metric: domain.MetricTop10CardSum, Min: float64Ptr(DefaultCardValueThreshold)},
		{Name: domain.CohortLowValueCards, Metric: domain.MetricTop10CardSum, Max: float64Ptr(DefaultCardValueThreshold)},
		{Name: domain.CohortMidValueBoxes, Metric: domain.MetricBoosterBoxPrice, Min: float64Ptr(DefaultMidBoxMin), Max: float64Ptr(DefaultMidBoxMax)},
		{Name: domain.CohortLowValueBoxes, Metric: domain.MetricBoosterBoxPrice, Max: float64Ptr(DefaultLowBoxMax)},
	}
}

// SetMaxima reduces monthly rows to the maximum of metric per set.
// Sets with no value for metric are absent from the result.
func SetMaxima(rows []domain.MonthlySetRow, metric domain.Metric) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range rows {
		v, ok := r.Values[metric]
		if !ok || math.IsNaN(v) {
			continue
		}
		if cur, seen := out[r.Group.SetName]; !seen || v > cur {
			out[r.Group.SetName] = v
		}
	}
	return out
}

// Classify evaluates every rule independently against the monthly rows.
// A set may belong to several cohorts.
func Classify(rows []domain.MonthlySetRow, rules []CohortRule) []domain.Cohort {
	maxima := make(map[domain.Metric]map[string]float64)
	cohorts := make([]domain.Cohort, 0, len(rules))

	for _, rule := range rules {
		m, ok := maxima[rule.Metric]
		if !ok {
			m = SetMaxima(rows, rule.Metric)
			maxima[rule.Metric] = m
		}

		excluded := make(map[string]struct{}, len(rule.Exclude))
		for _, s := range rule.Exclude {
			excluded[s] = struct{}{}
		}

		members := []string{}
		for set, v := range m {
			if _, skip := excluded[set]; skip {
				continue
			}
			if rule.Contains(v) {
				members = append(members, set)
			}
		}
		sort.Strings(members)

		cohorts = append(cohorts, domain.Cohort{Name: rule.Name, Metric: rule.Metric, Members: members})
	}
	return cohorts
}

func float64Ptr(v float64) *float64 {
	return &v
}

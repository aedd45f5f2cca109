package processing

import (
	"sort"

	"card-market-lab/internal/domain"
)

// GroupBy selects the aggregation group key.
type GroupBy struct {
	Grade bool // split each set by grade
}

func (g GroupBy) key(o *domain.Observation) domain.GroupKey {
	k := domain.GroupKey{SetName: o.SetName}
	if g.Grade {
		k.Grade = o.Grade
	}
	return k
}

// metricBuckets collects raw metric values before reduction.
type metricBuckets map[domain.Metric][]float64

func (b metricBuckets) add(o *domain.Observation, specs []domain.MetricSpec) {
	for _, s := range specs {
		if v, ok := o.Metric(s.Metric); ok {
			b[s.Metric] = append(b[s.Metric], v)
		}
	}
}

func (b metricBuckets) reduce(specs []domain.MetricSpec) domain.MetricValues {
	out := make(domain.MetricValues, len(specs))
	for _, s := range specs {
		if v, ok := s.Reduction.Apply(b[s.Metric]); ok {
			out[s.Metric] = v
		}
	}
	return out
}

// AggregateBySet resamples each group onto month-end boundaries.
// Every month between a group's first and last observation gets a row;
// months without observations carry no values rather than zeros.
// Rows are ordered by group, then month.
func AggregateBySet(obs []*domain.Observation, groupBy GroupBy, specs []domain.MetricSpec) []domain.MonthlySetRow {
	type span struct {
		first, last domain.Month
		buckets     map[domain.Month]metricBuckets
	}
	groups := make(map[domain.GroupKey]*span)

	for _, o := range obs {
		if o.Date.IsZero() {
			continue
		}
		k := groupBy.key(o)
		m := domain.MonthOf(o.Date)
		sp, ok := groups[k]
		if !ok {
			sp = &span{first: m, last: m, buckets: make(map[domain.Month]metricBuckets)}
			groups[k] = sp
		}
		if m.Before(sp.first) {
			sp.first = m
		}
		if sp.last.Before(m) {
			sp.last = m
		}
		b, ok := sp.buckets[m]
		if !ok {
			b = make(metricBuckets)
			sp.buckets[m] = b
		}
		b.add(o, specs)
	}

	var rows []domain.MonthlySetRow
	for _, k := range sortedKeys(groups) {
		sp := groups[k]
		for m := sp.first; !sp.last.Before(m); m = m.Next() {
			values := domain.MetricValues{}
			if b, ok := sp.buckets[m]; ok {
				values = b.reduce(specs)
			}
			rows = append(rows, domain.MonthlySetRow{Group: k, Month: m.End(), Values: values})
		}
	}
	return rows
}

// AggregateByRelease averages each group per months-since-release and pivots
// groups onto columns. The row axis is dense over 0..max observed month across
// all groups; months a group never reached stay nil. No forward fill.
// Observations with an unknown or negative months-since-release fall
// outside the axis.
func AggregateByRelease(obs []*domain.Observation, groupBy GroupBy, specs []domain.MetricSpec) *domain.ReleasePivot {
	groups := make(map[domain.GroupKey]map[int]metricBuckets)
	maxMonth := -1

	for _, o := range obs {
		mos, ok := o.Months()
		if !ok || mos < 0 {
			continue
		}
		k := groupBy.key(o)
		byMonth, ok := groups[k]
		if !ok {
			byMonth = make(map[int]metricBuckets)
			groups[k] = byMonth
		}
		b, ok := byMonth[mos]
		if !ok {
			b = make(metricBuckets)
			byMonth[mos] = b
		}
		b.add(o, specs)
		if mos > maxMonth {
			maxMonth = mos
		}
	}

	pivot := &domain.ReleasePivot{}
	if maxMonth < 0 {
		return pivot
	}

	keys := sortedKeys(groups)
	for _, s := range specs {
		for _, k := range keys {
			pivot.Columns = append(pivot.Columns, domain.PivotColumn{Metric: s.Metric, Group: k})
		}
	}

	// Reduce each (group, month) once, then lay values out by column.
	reduced := make(map[domain.GroupKey]map[int]domain.MetricValues, len(groups))
	for k, byMonth := range groups {
		reduced[k] = make(map[int]domain.MetricValues, len(byMonth))
		for m, b := range byMonth {
			reduced[k][m] = b.reduce(specs)
		}
	}

	pivot.Rows = make([]domain.PivotRow, maxMonth+1)
	for m := 0; m <= maxMonth; m++ {
		row := domain.PivotRow{MonthsSinceRelease: m, Values: make([]*float64, len(pivot.Columns))}
		for i, c := range pivot.Columns {
			if vals, ok := reduced[c.Group][m]; ok {
				if v, ok := vals[c.Metric]; ok {
					row.Values[i] = &v
				}
			}
		}
		pivot.Rows[m] = row
	}
	return pivot
}

// SeriesFor extracts one chart line per group for metric from monthly rows.
// Months without a value become gaps.
func SeriesFor(rows []domain.MonthlySetRow, metric domain.Metric) []domain.Series {
	index := make(map[domain.GroupKey]int)
	var out []domain.Series
	for _, r := range rows {
		i, ok := index[r.Group]
		if !ok {
			i = len(out)
			index[r.Group] = i
			out = append(out, domain.Series{Group: r.Group, Metric: metric})
		}
		p := domain.SeriesPoint{Date: r.Month}
		if v, ok := r.Values[metric]; ok {
			p.Value = &v
		}
		out[i].Points = append(out[i].Points, p)
	}
	return out
}

// FilterRows keeps monthly rows whose set belongs to sets.
func FilterRows(rows []domain.MonthlySetRow, sets []string) []domain.MonthlySetRow {
	keep := make(map[string]struct{}, len(sets))
	for _, s := range sets {
		keep[s] = struct{}{}
	}
	var out []domain.MonthlySetRow
	for _, r := range rows {
		if _, ok := keep[r.Group.SetName]; ok {
			out = append(out, r)
		}
	}
	return out
}

func sortedKeys[V any](m map[domain.GroupKey]V) []domain.GroupKey {
	keys := make([]domain.GroupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

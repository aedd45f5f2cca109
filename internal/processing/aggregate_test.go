package processing

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-market-lab/internal/domain"
)

var sumOnly = []domain.MetricSpec{{Metric: domain.MetricTop10CardSum, Reduction: domain.ReduceMean}}

func TestAggregateBySet_MeanPerMonthWithGaps(t *testing.T) {
	obs := []*domain.Observation{
		makeObs("a", month(2023, 1), 3, domain.MetricValues{domain.MetricTop10CardSum: 100}),
		makeObs("a", time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC), 3, domain.MetricValues{domain.MetricTop10CardSum: 200}),
		makeObs("a", month(2023, 3), 5, domain.MetricValues{domain.MetricTop10CardSum: 400}),
		makeObs("b", month(2023, 2), 4, domain.MetricValues{}),
	}

	rows := AggregateBySet(obs, GroupBy{}, sumOnly)

	want := []domain.MonthlySetRow{
		{Group: domain.GroupKey{SetName: "a"}, Month: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), Values: domain.MetricValues{domain.MetricTop10CardSum: 150}},
		{Group: domain.GroupKey{SetName: "a"}, Month: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), Values: domain.MetricValues{}},
		{Group: domain.GroupKey{SetName: "a"}, Month: time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), Values: domain.MetricValues{domain.MetricTop10CardSum: 400}},
		{Group: domain.GroupKey{SetName: "b"}, Month: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), Values: domain.MetricValues{}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("AggregateBySet mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateBySet_GroupByGrade(t *testing.T) {
	nm := makeObs("a", month(2023, 1), 3, domain.MetricValues{domain.MetricTop10CardSum: 100})
	psa := makeObs("a", month(2023, 1), 3, domain.MetricValues{domain.MetricTop10CardSum: 300})
	psa.Grade = "PSA 10"

	rows := AggregateBySet([]*domain.Observation{nm, psa}, GroupBy{Grade: true}, sumOnly)

	require.Len(t, rows, 2)
	assert.Equal(t, domain.GroupKey{SetName: "a", Grade: "NM"}, rows[0].Group)
	assert.Equal(t, 100.0, rows[0].Values[domain.MetricTop10CardSum])
	assert.Equal(t, domain.GroupKey{SetName: "a", Grade: "PSA 10"}, rows[1].Group)
	assert.Equal(t, 300.0, rows[1].Values[domain.MetricTop10CardSum])
}

func TestAggregateBySet_Empty(t *testing.T) {
	assert.Empty(t, AggregateBySet(nil, GroupBy{}, sumOnly))
}

func TestAggregateByRelease_DenseAxis(t *testing.T) {
	obs := []*domain.Observation{
		makeObs("short", month(2024, 1), 0, domain.MetricValues{domain.MetricTop10CardSum: 50}),
		makeObs("short", month(2024, 2), 1, domain.MetricValues{domain.MetricTop10CardSum: 70}),
		makeObs("long", month(2020, 1), 0, domain.MetricValues{domain.MetricTop10CardSum: 10}),
		makeObs("long", month(2020, 5), 4, domain.MetricValues{domain.MetricTop10CardSum: 30}),
		makeObs("long", month(2020, 5), 4, domain.MetricValues{domain.MetricTop10CardSum: 50}),
	}

	pivot := AggregateByRelease(obs, GroupBy{}, sumOnly)

	require.Len(t, pivot.Rows, 5)
	for i, row := range pivot.Rows {
		assert.Equal(t, i, row.MonthsSinceRelease)
		assert.Len(t, row.Values, len(pivot.Columns))
	}

	require.Len(t, pivot.Columns, 2)
	assert.Equal(t, "avg_price_top10_nm_card_mo_sum_in_set_long", pivot.Columns[0].Name())
	assert.Equal(t, "avg_price_top10_nm_card_mo_sum_in_set_short", pivot.Columns[1].Name())

	long := pivot.ColumnIndex(domain.MetricTop10CardSum, domain.GroupKey{SetName: "long"})
	short := pivot.ColumnIndex(domain.MetricTop10CardSum, domain.GroupKey{SetName: "short"})

	require.NotNil(t, pivot.Value(0, long))
	assert.Equal(t, 10.0, *pivot.Value(0, long))
	assert.Nil(t, pivot.Value(1, long), "gap must not be filled")
	require.NotNil(t, pivot.Value(4, long))
	assert.Equal(t, 40.0, *pivot.Value(4, long))

	require.NotNil(t, pivot.Value(1, short))
	assert.Equal(t, 70.0, *pivot.Value(1, short))
	for m := 2; m <= 4; m++ {
		assert.Nil(t, pivot.Value(m, short), "month %d past short set lifetime", m)
	}
}

func TestAggregateByRelease_Empty(t *testing.T) {
	pivot := AggregateByRelease(nil, GroupBy{}, sumOnly)
	assert.Empty(t, pivot.Rows)
	assert.Empty(t, pivot.Columns)
}

func TestAggregateByRelease_SkipsUnknownReleaseMonth(t *testing.T) {
	unknown := makeObs("a", month(2024, 3), 0, domain.MetricValues{domain.MetricTop10CardSum: 999})
	unknown.MonthsSinceRelease = nil
	obs := []*domain.Observation{
		unknown,
		makeObs("a", month(2024, 2), 1, domain.MetricValues{domain.MetricTop10CardSum: 20}),
	}

	pivot := AggregateByRelease(obs, GroupBy{}, sumOnly)

	require.Len(t, pivot.Rows, 2)
	col := pivot.ColumnIndex(domain.MetricTop10CardSum, domain.GroupKey{SetName: "a"})
	assert.Nil(t, pivot.Value(0, col))
	require.NotNil(t, pivot.Value(1, col))
	assert.Equal(t, 20.0, *pivot.Value(1, col))
}

func TestSeriesFor_PreservesGaps(t *testing.T) {
	rows := []domain.MonthlySetRow{
		{Group: domain.GroupKey{SetName: "a"}, Month: month(2023, 1), Values: domain.MetricValues{domain.MetricBoosterBoxPrice: 120}},
		{Group: domain.GroupKey{SetName: "a"}, Month: month(2023, 2), Values: domain.MetricValues{}},
		{Group: domain.GroupKey{SetName: "b"}, Month: month(2023, 2), Values: domain.MetricValues{domain.MetricBoosterBoxPrice: 90}},
	}

	series := SeriesFor(rows, domain.MetricBoosterBoxPrice)

	require.Len(t, series, 2)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, 120.0, *series[0].Points[0].Value)
	assert.Nil(t, series[0].Points[1].Value)
	assert.Equal(t, "b", series[1].Group.SetName)
}

func TestFilterRows(t *testing.T) {
	rows := []domain.MonthlySetRow{
		{Group: domain.GroupKey{SetName: "a"}},
		{Group: domain.GroupKey{SetName: "b"}},
		{Group: domain.GroupKey{SetName: "a"}},
	}
	assert.Len(t, FilterRows(rows, []string{"a"}), 2)
	assert.Empty(t, FilterRows(rows, nil))
}

package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-market-lab/internal/domain"
)

func monthlyRows(set string, metric domain.Metric, values ...float64) []domain.MonthlySetRow {
	rows := make([]domain.MonthlySetRow, len(values))
	for i, v := range values {
		rows[i] = domain.MonthlySetRow{
			Group:  domain.GroupKey{SetName: set},
			Month:  month(2023, 1).AddDate(0, i, 0),
			Values: domain.MetricValues{metric: v},
		}
	}
	return rows
}

func cohortByName(cohorts []domain.Cohort, name domain.CohortName) domain.Cohort {
	for _, c := range cohorts {
		if c.Name == name {
			return c
		}
	}
	return domain.Cohort{}
}

func TestClassify_CardValueScenario(t *testing.T) {
	rows := monthlyRows("X", domain.MetricTop10CardSum, 650, 720, 690)

	cohorts := Classify(rows, DefaultCohortRules())

	assert.True(t, cohortByName(cohorts, domain.CohortHighValueCards).Contains("X"))
	assert.False(t, cohortByName(cohorts, domain.CohortLowValueCards).Contains("X"))
}

func TestClassify_BoundariesAreClosed(t *testing.T) {
	var rows []domain.MonthlySetRow
	rows = append(rows, monthlyRows("exactly-700", domain.MetricTop10CardSum, 700)...)
	rows = append(rows, monthlyRows("box-500", domain.MetricBoosterBoxPrice, 450, 500)...)
	rows = append(rows, monthlyRows("box-1000", domain.MetricBoosterBoxPrice, 1000)...)
	rows = append(rows, monthlyRows("box-1001", domain.MetricBoosterBoxPrice, 1001)...)
	rows = append(rows, monthlyRows("box-200", domain.MetricBoosterBoxPrice, 120, 200)...)

	cohorts := Classify(rows, DefaultCohortRules())

	// 700 qualifies for both card cohorts.
	assert.Equal(t, []string{"exactly-700"}, cohortByName(cohorts, domain.CohortHighValueCards).Members)
	assert.Equal(t, []string{"exactly-700"}, cohortByName(cohorts, domain.CohortLowValueCards).Members)
	assert.Equal(t, []string{"box-1000", "box-500"}, cohortByName(cohorts, domain.CohortMidValueBoxes).Members)
	assert.Equal(t, []string{"box-200"}, cohortByName(cohorts, domain.CohortLowValueBoxes).Members)
}

func TestClassify_MissingMetricNeverQualifies(t *testing.T) {
	rows := []domain.MonthlySetRow{
		{Group: domain.GroupKey{SetName: "blank"}, Month: month(2023, 1), Values: domain.MetricValues{}},
	}

	for _, c := range Classify(rows, DefaultCohortRules()) {
		assert.Empty(t, c.Members, "cohort %s", c.Name)
	}
}

func TestClassify_Exclude(t *testing.T) {
	rows := append(monthlyRows("evolving-skies", domain.MetricTop10CardSum, 2000),
		monthlyRows("fusion-strike", domain.MetricTop10CardSum, 900)...)
	rules := []CohortRule{{
		Name:    domain.CohortHighValueCards,
		Metric:  domain.MetricTop10CardSum,
		Min:     ptr(700.0),
		Exclude: []string{"evolving-skies"},
	}}

	cohorts := Classify(rows, rules)

	require.Len(t, cohorts, 1)
	assert.Equal(t, []string{"fusion-strike"}, cohorts[0].Members)
}

func TestClassify_MonotonicUnderWidening(t *testing.T) {
	var rows []domain.MonthlySetRow
	for i, v := range []float64{150, 320, 480, 640, 700, 760, 990, 1200} {
		rows = append(rows, monthlyRows(string(rune('a'+i)), domain.MetricBoosterBoxPrice, v)...)
	}

	narrow := CohortRule{Name: "n", Metric: domain.MetricBoosterBoxPrice, Min: ptr(500.0), Max: ptr(1000.0)}
	widenings := []CohortRule{
		{Name: "lower", Metric: domain.MetricBoosterBoxPrice, Min: ptr(300.0), Max: ptr(1000.0)},
		{Name: "upper", Metric: domain.MetricBoosterBoxPrice, Min: ptr(500.0), Max: ptr(1500.0)},
		{Name: "open", Metric: domain.MetricBoosterBoxPrice},
	}

	base := Classify(rows, []CohortRule{narrow})[0]
	for _, w := range widenings {
		wide := Classify(rows, []CohortRule{w})[0]
		for _, m := range base.Members {
			assert.True(t, wide.Contains(m), "%s dropped %s", w.Name, m)
		}
		assert.GreaterOrEqual(t, len(wide.Members), len(base.Members))
	}
}

func TestSetMaxima_AcrossGrades(t *testing.T) {
	rows := []domain.MonthlySetRow{
		{Group: domain.GroupKey{SetName: "a", Grade: "NM"}, Values: domain.MetricValues{domain.MetricBoosterBoxPrice: 100}},
		{Group: domain.GroupKey{SetName: "a", Grade: "PSA 10"}, Values: domain.MetricValues{domain.MetricBoosterBoxPrice: 300}},
	}

	assert.Equal(t, map[string]float64{"a": 300}, SetMaxima(rows, domain.MetricBoosterBoxPrice))
}

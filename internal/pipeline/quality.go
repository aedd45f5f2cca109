package pipeline

import (
	"fmt"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/processing"
	"card-market-lab/internal/reporting"
)

// Quality thresholds.
const (
	DefaultMinPricedShare       = 0.5
	DefaultMinReleaseKnownShare = 0.95
)

// QualityCheck represents one data quality criterion.
type QualityCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// QualityResult contains all checks. Failing checks do not stop the
// pipeline; they are surfaced in the report.
type QualityResult struct {
	Checks  []QualityCheck
	AllPass bool
	Errors  []string // per-row or per-metric findings
}

// QualityChecker validates the loaded feature table before aggregation.
type QualityChecker struct {
	settings        reporting.Settings
	featureSetLimit int
	minPricedShare  float64
	minReleaseKnown float64
}

// NewQualityChecker creates a checker for the given analysis settings.
func NewQualityChecker(settings reporting.Settings) *QualityChecker {
	return &QualityChecker{
		settings:        settings,
		minPricedShare:  DefaultMinPricedShare,
		minReleaseKnown: DefaultMinReleaseKnownShare,
	}
}

// WithFeatureSetLimit enables the truncation check: a load that returns
// exactly limit rows probably cut the table short.
func (c *QualityChecker) WithFeatureSetLimit(limit int) *QualityChecker {
	c.featureSetLimit = limit
	return c
}

// Check performs every data quality check.
func (c *QualityChecker) Check(observations []domain.Observation) *QualityResult {
	result := &QualityResult{
		Checks:  make([]QualityCheck, 0, 6),
		AllPass: true,
		Errors:  []string{},
	}

	add := func(check QualityCheck, errs ...string) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
		}
		result.Errors = append(result.Errors, errs...)
	}

	raw := make([]*domain.Observation, len(observations))
	for i := range observations {
		raw[i] = &observations[i]
	}
	window := processing.ClipMaturation(
		processing.SelectByDate(raw, c.settings.Start, c.settings.End),
		c.settings.MaturationMonths,
	)

	// Check 1: anything loaded at all
	add(QualityCheck{
		Name:      "Observations loaded",
		Threshold: "> 0",
		Actual:    fmt.Sprintf("%d", len(raw)),
		Pass:      len(raw) > 0,
	})

	// Check 2: load not truncated by the row limit
	if c.featureSetLimit > 0 {
		add(QualityCheck{
			Name:      "Feature set below row limit",
			Threshold: fmt.Sprintf("< %d", c.featureSetLimit),
			Actual:    fmt.Sprintf("%d", len(raw)),
			Pass:      len(raw) < c.featureSetLimit,
		})
	}

	// Check 3: rows survive the date and maturation filters
	add(QualityCheck{
		Name:      "Rows in analysis window",
		Threshold: "> 0",
		Actual:    fmt.Sprintf("%d", len(window)),
		Pass:      len(window) > 0,
	})

	// Check 4: enough priced rows for movers
	add(c.checkPricedShare(window))

	// Check 5: months-since-release known for the release pivot
	add(c.checkReleaseKnown(raw))

	// Check 6: every configured metric has data
	coverage, missing := c.checkMetricCoverage(window)
	add(coverage, missing...)

	return result
}

func (c *QualityChecker) checkPricedShare(window []*domain.Observation) QualityCheck {
	priced := 0
	for _, o := range window {
		if o.HasPositivePrice() {
			priced++
		}
	}
	share := ratio(priced, len(window))
	return QualityCheck{
		Name:      "Rows with usable price",
		Threshold: fmt.Sprintf(">= %.0f%%", c.minPricedShare*100),
		Actual:    fmt.Sprintf("%.1f%%", share*100),
		Pass:      len(window) > 0 && share >= c.minPricedShare,
	}
}

// checkReleaseKnown counts rows whose months-since-release is known.
func (c *QualityChecker) checkReleaseKnown(raw []*domain.Observation) QualityCheck {
	known := 0
	for _, o := range raw {
		if o.MonthsSinceRelease != nil {
			known++
		}
	}
	share := ratio(known, len(raw))
	return QualityCheck{
		Name:      "Rows with release month",
		Threshold: fmt.Sprintf(">= %.0f%%", c.minReleaseKnown*100),
		Actual:    fmt.Sprintf("%.1f%%", share*100),
		Pass:      len(raw) > 0 && share >= c.minReleaseKnown,
	}
}

func (c *QualityChecker) checkMetricCoverage(window []*domain.Observation) (QualityCheck, []string) {
	var errors []string
	covered := 0
	for _, spec := range c.settings.Metrics {
		found := false
		for _, o := range window {
			if _, ok := o.Metric(spec.Metric); ok {
				found = true
				break
			}
		}
		if found {
			covered++
			continue
		}
		errors = append(errors, fmt.Sprintf("no values for metric %s in analysis window", spec.Metric))
	}

	total := len(c.settings.Metrics)
	return QualityCheck{
		Name:      "Metrics with data",
		Threshold: fmt.Sprintf("= %d", total),
		Actual:    fmt.Sprintf("%d", covered),
		Pass:      covered == total,
	}, errors
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// convertToDataQuality converts QualityResult to reporting.DataQualitySection.
func convertToDataQuality(result *QualityResult) reporting.DataQualitySection {
	checks := make([]reporting.QualityCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.QualityCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		Checks:          checks,
		Issues:          result.Errors,
		AllChecksPassed: result.AllPass,
	}
}

package pipeline

import (
	"fmt"

	"card-market-lab/internal/config"
	"card-market-lab/internal/domain"
	"card-market-lab/internal/processing"
	"card-market-lab/internal/reporting"
)

// SettingsFromConfig translates the analysis, cohort, mover and histogram
// sections of cfg into generator settings. cfg must already be validated;
// metric parsing errors are still returned rather than ignored.
func SettingsFromConfig(cfg *config.Config) (reporting.Settings, error) {
	specs, err := domain.ParseMetricSpecs(cfg.Analysis.Metrics)
	if err != nil {
		return reporting.Settings{}, fmt.Errorf("analysis metrics: %w", err)
	}

	rules := make([]processing.CohortRule, len(cfg.Cohorts))
	for i, c := range cfg.Cohorts {
		rules[i] = processing.CohortRule{
			Name:    domain.CohortName(c.Name),
			Metric:  domain.Metric(c.Metric),
			Min:     c.Min,
			Max:     c.Max,
			Exclude: c.Exclude,
		}
	}

	start, end := cfg.DateRange()
	return reporting.Settings{
		Start:            start,
		End:              end,
		MaturationMonths: cfg.Analysis.MaturationMonths,
		Metrics:          specs,
		GroupByGrade:     cfg.Analysis.GroupByGrade,
		Cohorts:          rules,
		MoverWindow:      cfg.Movers.Window,
		MoverFilter: processing.MoverFilter{
			MinLatestPrice: cfg.Movers.MinLatestPrice,
			Limit:          cfg.Movers.Limit,
		},
		HistogramBins: cfg.Histogram.Bins,
	}, nil
}

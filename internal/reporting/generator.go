package reporting

import (
	"fmt"
	"time"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/processing"
)

// Settings controls every stage of report generation.
type Settings struct {
	Start            domain.Month
	End              domain.Month
	MaturationMonths int
	Metrics          []domain.MetricSpec
	GroupByGrade     bool
	Cohorts          []processing.CohortRule
	MoverWindow      int
	MoverFilter      processing.MoverFilter
	HistogramBins    int
}

// DefaultSettings mirrors the dashboard defaults over the 2021-01..2024-11 window.
func DefaultSettings() Settings {
	return Settings{
		Start:            domain.Month{Year: 2021, Month: time.January},
		End:              domain.Month{Year: 2024, Month: time.November},
		MaturationMonths: processing.DefaultMaturationMonths,
		Metrics:          domain.DefaultAggregateMetrics(),
		Cohorts:          processing.DefaultCohortRules(),
		MoverWindow:      processing.DefaultTrailingWindow,
		MoverFilter:      processing.MoverFilter{MinLatestPrice: processing.DefaultMinLatestPrice},
		HistogramBins:    processing.DefaultHistogramBins,
	}
}

// Generator produces reports from loaded observations.
type Generator struct {
	settings Settings
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(settings Settings) *Generator {
	return &Generator{
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Settings returns the generator settings.
func (g *Generator) Settings() Settings {
	return g.settings
}

// Generate runs filter, aggregation, cohort, mover and summary stages over
// observations. Inputs are not modified. Run metadata (RunID, Source,
// DataVersion, DataQuality) is left for the caller.
func (g *Generator) Generate(observations []domain.Observation, cardTypes []domain.CardTypeCount) *Report {
	s := g.settings
	raw := pointers(observations)

	filtered := processing.ClipMaturation(processing.SelectByDate(raw, s.Start, s.End), s.MaturationMonths)
	cards := processing.CardsOnly(processing.Dedupe(filtered))

	groupBy := processing.GroupBy{Grade: s.GroupByGrade}
	specs := monthlySpecs(s.Metrics, s.Cohorts)
	monthly := processing.AggregateBySet(filtered, groupBy, specs)
	cohorts := processing.Classify(monthly, s.Cohorts)

	movers := processing.ComputeMovers(filtered, s.MoverWindow)
	moverWindow := s.MoverWindow
	if moverWindow <= 0 {
		moverWindow = processing.DefaultTrailingWindow
	}

	sortedTypes := processing.SortCardTypes(cardTypes)

	return &Report{
		GeneratedAt: g.now(),
		Window: Window{
			Start:            s.Start.String(),
			End:              s.End.String(),
			MaturationMonths: s.MaturationMonths,
		},
		DataSummary: DataSummary{
			RawRows:      len(raw),
			FilteredRows: len(filtered),
			UniqueCards:  len(cards),
			Sets:         countDistinct(filtered, func(o *domain.Observation) string { return o.SetName }),
			Items:        countDistinct(filtered, func(o *domain.Observation) string { return o.ItemID }),
		},
		Metrics:      specs,
		MonthlyBySet: monthly,
		ReleasePivot: processing.AggregateByRelease(filtered, groupBy, s.Metrics),
		Charts:       buildCharts(monthly, cohorts),
		Cohorts:      cohorts,
		Movers:       movers,
		TopMovers:    processing.TopMovers(movers, s.MoverFilter),
		MoverWindow:  moverWindow,
		Summary:      processing.Summarize(raw, domain.ColumnDescriptions),
		FlagShares:   processing.FlagBreakdown(processing.Summarize(cards, domain.ColumnDescriptions)),
		CardTypes:    sortedTypes,
		CardTypeBins: processing.CardTypeHistogram(sortedTypes, s.HistogramBins),
	}
}

// buildCharts lays out the dashboard charts: top-10 card value across all
// sets, one chart per cohort on the cohort's own metric, and booster-box
// prices across all sets.
func buildCharts(monthly []domain.MonthlySetRow, cohorts []domain.Cohort) []Chart {
	charts := []Chart{{
		Title:  "Top 10 card value, all sets",
		Metric: domain.MetricTop10CardSum,
		Series: processing.SeriesFor(monthly, domain.MetricTop10CardSum),
	}}
	for _, c := range cohorts {
		charts = append(charts, Chart{
			Title:  fmt.Sprintf("%s (%d sets)", c.Name, len(c.Members)),
			Metric: c.Metric,
			Series: processing.SeriesFor(processing.FilterRows(monthly, c.Members), c.Metric),
		})
	}
	return append(charts, Chart{
		Title:  "Booster box price, all sets",
		Metric: domain.MetricBoosterBoxPrice,
		Series: processing.SeriesFor(monthly, domain.MetricBoosterBoxPrice),
	})
}

// monthlySpecs returns metrics plus a mean spec for every cohort metric
// that metrics does not already resample.
func monthlySpecs(metrics []domain.MetricSpec, rules []processing.CohortRule) []domain.MetricSpec {
	seen := make(map[domain.Metric]struct{}, len(metrics))
	for _, m := range metrics {
		seen[m.Metric] = struct{}{}
	}
	specs := metrics
	for _, r := range rules {
		if _, ok := seen[r.Metric]; ok {
			continue
		}
		seen[r.Metric] = struct{}{}
		if len(specs) == len(metrics) {
			specs = append([]domain.MetricSpec(nil), metrics...)
		}
		specs = append(specs, domain.MetricSpec{Metric: r.Metric, Reduction: domain.ReduceMean})
	}
	return specs
}

func pointers(obs []domain.Observation) []*domain.Observation {
	out := make([]*domain.Observation, len(obs))
	for i := range obs {
		out[i] = &obs[i]
	}
	return out
}

func countDistinct(obs []*domain.Observation, key func(*domain.Observation) string) int {
	seen := make(map[string]struct{})
	for _, o := range obs {
		seen[key(o)] = struct{}{}
	}
	return len(seen)
}

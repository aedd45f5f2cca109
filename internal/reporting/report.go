package reporting

import (
	"time"

	"card-market-lab/internal/domain"
)

// Report is one rendered dashboard: every table and chart series derived
// from a single pipeline pass.
type Report struct {
	// Metadata
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
	DataVersion string    `json:"data_version"` // short hash of the loaded rows

	Window      Window             `json:"window"`
	DataSummary DataSummary        `json:"data_summary"`
	DataQuality DataQualitySection `json:"data_quality"`

	// Aggregates
	Metrics      []domain.MetricSpec    `json:"metrics"`
	MonthlyBySet []domain.MonthlySetRow `json:"monthly_by_set"`
	ReleasePivot *domain.ReleasePivot   `json:"release_pivot"`
	Charts       []Chart                `json:"charts"`
	Cohorts      []domain.Cohort        `json:"cohorts"`

	// Movers holds every computed mover, TopMovers the filtered view.
	Movers      []domain.Mover `json:"-"`
	TopMovers   []domain.Mover `json:"top_movers"`
	MoverWindow int            `json:"mover_window"`

	// Descriptive
	Summary      []domain.ColumnSummary `json:"summary"`
	FlagShares   []domain.FlagShare     `json:"flag_shares"`
	CardTypes    []domain.CardTypeCount `json:"card_types"`
	CardTypeBins []domain.HistogramBin  `json:"card_type_bins"`
}

// Window is the analysis date range.
type Window struct {
	Start            string `json:"start"` // YYYY-MM
	End              string `json:"end"`   // YYYY-MM, inclusive
	MaturationMonths int    `json:"maturation_months"`
}

// DataSummary counts rows at each stage of the pipeline.
type DataSummary struct {
	RawRows      int `json:"raw_rows"`
	FilteredRows int `json:"filtered_rows"` // after date and maturation filters
	UniqueCards  int `json:"unique_cards"`
	Sets         int `json:"sets"`
	Items        int `json:"items"`
}

// DataQualitySection lists the data checks run before aggregation.
type DataQualitySection struct {
	Checks          []QualityCheckRow `json:"checks"`
	Issues          []string          `json:"issues,omitempty"`
	AllChecksPassed bool              `json:"all_checks_passed"`
}

// QualityCheckRow represents one data quality criterion.
type QualityCheckRow struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

// Chart is one titled line chart.
type Chart struct {
	Title  string          `json:"title"`
	Metric domain.Metric   `json:"metric"`
	Series []domain.Series `json:"series"`
}

package domain

import "time"

// ProductTypeCard marks single-card rows in feature_set.
// Sealed product rows carry other values ("sealed", "booster-box", ...).
const ProductTypeCard = "card"

// Observation is one row of the denormalized monthly feature table.
// Corresponds to the feature_set table. Per-set aggregate metrics are
// pre-joined onto every row; a metric missing from Metrics is NULL upstream.
type Observation struct {
	ItemID             string    // poke_id
	ItemName           string    // poke_name
	Number             string    // catalog number within the set
	Grade              string    // NM, PSA 7-10, BGS 9.5
	SetName            string    // set slug
	SetYear            *int      // release year of the set, NULL if unknown
	ProductType        string    // card | sealed product type
	ReleaseDate        time.Time // set release date
	Date               time.Time // observation month
	Price              *float64  // observed price, NULL if not scraped
	MonthsSinceRelease *int      // 0 = release month, NULL if release date unknown

	Metrics MetricValues // per-set aggregates, absent key = missing
	Flags   FlagValues   // card attributes, absent key = missing
}

// Metric returns the value of metric m and whether it is present.
func (o *Observation) Metric(m Metric) (float64, bool) {
	v, ok := o.Metrics[m]
	return v, ok
}

// Months returns the months since release and whether it is known.
func (o *Observation) Months() (int, bool) {
	if o.MonthsSinceRelease == nil {
		return 0, false
	}
	return *o.MonthsSinceRelease, true
}

// HasPositivePrice reports whether the observation carries a usable price.
func (o *Observation) HasPositivePrice() bool {
	return o.Price != nil && *o.Price > 0
}

// Int returns a pointer to v, for nullable integer columns.
func Int(v int) *int {
	return &v
}

// CardTypeCount is one row of the card-type frequency table (psa_data).
type CardTypeCount struct {
	CardType string
	Count    int
}

// GradedCard is one graded-card record in psa_data.
type GradedCard struct {
	CertNumber string
	CardType   string
	Grade      string
}

// Month is a calendar month, used for inclusive date range selection.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses "YYYY-MM" or "YYYY" (January) into a Month.
func ParseMonth(s string) (Month, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return Month{Year: t.Year(), Month: t.Month()}, nil
	}
	t, err := time.Parse("2006", s)
	if err != nil {
		return Month{}, err
	}
	return Month{Year: t.Year(), Month: time.January}, nil
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the month at midnight UTC (month-end label).
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, -1)
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// Before reports whether m is strictly before other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return m.Start().Format("2006-01")
}

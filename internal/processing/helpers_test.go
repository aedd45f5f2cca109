package processing

import (
	"time"

	"card-market-lab/internal/domain"
)

// month returns the first day of year-month in UTC.
func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

// makeObs builds a card observation with the given metric values.
func makeObs(set string, date time.Time, mos int, metrics domain.MetricValues) *domain.Observation {
	return &domain.Observation{
		ItemID:             "id-" + set,
		ItemName:           "card-" + set,
		Grade:              "NM",
		SetName:            set,
		SetYear:            domain.Int(2021),
		ProductType:        domain.ProductTypeCard,
		ReleaseDate:        date.AddDate(0, -mos, 0),
		Date:               date,
		MonthsSinceRelease: domain.Int(mos),
		Metrics:            metrics,
	}
}

// makePriced builds a priced observation for one item identity.
func makePriced(item, grade, set string, date time.Time, price float64) *domain.Observation {
	return &domain.Observation{
		ItemID:      item,
		ItemName:    item,
		Grade:       grade,
		SetName:     set,
		ProductType: domain.ProductTypeCard,
		Date:        date,
		Price:       ptr(price),
	}
}

func ptr[T any](v T) *T {
	return &v
}

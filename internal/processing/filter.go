// Package processing implements the filtering, aggregation and classification
// stages of the dashboard pipeline. Every function here is pure: inputs are
// never modified and results are freshly allocated.
package processing

import (
	"card-market-lab/internal/domain"
)

// DefaultMaturationMonths is the number of post-release months clipped away.
const DefaultMaturationMonths = 2

// SelectByDate keeps observations whose date falls inside [start, end],
// both calendar months inclusive.
func SelectByDate(obs []*domain.Observation, start, end domain.Month) []*domain.Observation {
	lo := start.Start()
	hi := end.Next().Start()

	result := make([]*domain.Observation, 0, len(obs))
	for _, o := range obs {
		if o.Date.Before(lo) || !o.Date.Before(hi) {
			continue
		}
		result = append(result, o)
	}
	return result
}

// ClipMaturation drops observations taken while a set was still maturing:
// only rows with MonthsSinceRelease > months survive. Rows with an unknown
// release month never pass. Idempotent.
func ClipMaturation(obs []*domain.Observation, months int) []*domain.Observation {
	result := make([]*domain.Observation, 0, len(obs))
	for _, o := range obs {
		if mos, ok := o.Months(); ok && mos > months {
			result = append(result, o)
		}
	}
	return result
}

// dedupeKey identifies a unique card across price grades and dates.
// Unknown set years compare equal to each other.
type dedupeKey struct {
	itemName  string
	itemID    string
	setYear   int
	yearKnown bool
}

// Dedupe keeps the first observation per (item name, item id, set year).
func Dedupe(obs []*domain.Observation) []*domain.Observation {
	seen := make(map[dedupeKey]struct{}, len(obs))
	result := make([]*domain.Observation, 0, len(obs))
	for _, o := range obs {
		k := dedupeKey{itemName: o.ItemName, itemID: o.ItemID}
		if o.SetYear != nil {
			k.setYear, k.yearKnown = *o.SetYear, true
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, o)
	}
	return result
}

// CardsOnly keeps single-card rows, dropping sealed product.
func CardsOnly(obs []*domain.Observation) []*domain.Observation {
	result := make([]*domain.Observation, 0, len(obs))
	for _, o := range obs {
		if o.ProductType == domain.ProductTypeCard {
			result = append(result, o)
		}
	}
	return result
}

package processing

import (
	"math"
	"sort"

	"card-market-lab/internal/domain"
)

// Mover defaults.
const (
	DefaultTrailingWindow = 3
	DefaultMinLatestPrice = 25.0
)

type moverKey struct {
	itemID   string
	itemName string
	grade    string
	setName  string
}

// ComputeMovers compares each (item, grade, set) identity's latest price
// against the mean of its trailing window.
//
// Ordering convention: observations are sorted by date ascending (ties keep
// input order), the last window entries are kept and the final element is the
// latest observation. The trailing average includes the latest price.
// Rows with a missing or non-positive price are ignored.
func ComputeMovers(obs []*domain.Observation, window int) []domain.Mover {
	if window <= 0 {
		window = DefaultTrailingWindow
	}

	groups := make(map[moverKey][]*domain.Observation)
	var order []moverKey
	for _, o := range obs {
		if !o.HasPositivePrice() {
			continue
		}
		k := moverKey{itemID: o.ItemID, itemName: o.ItemName, grade: o.Grade, setName: o.SetName}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}

	movers := make([]domain.Mover, 0, len(order))
	for _, k := range order {
		series := groups[k]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		if len(series) > window {
			series = series[len(series)-window:]
		}

		sum := 0.0
		for _, o := range series {
			sum += *o.Price
		}
		avg := sum / float64(len(series))
		last := series[len(series)-1]

		movers = append(movers, domain.Mover{
			ItemID:        k.itemID,
			ItemName:      k.itemName,
			Grade:         k.grade,
			SetName:       k.setName,
			TrailingAvg:   avg,
			LatestPrice:   *last.Price,
			LatestDate:    last.Date,
			WindowSize:    len(series),
			PercentChange: PercentChange(*last.Price, avg),
		})
	}
	return movers
}

// PercentChange returns round((latest-avg)/avg*100), half away from zero.
// Degenerate inputs (zero, NaN or infinite average, NaN result) yield 0.
func PercentChange(latest, avg float64) int {
	if avg == 0 || math.IsNaN(avg) || math.IsInf(avg, 0) {
		return 0
	}
	pct := (latest - avg) / avg * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	return int(math.Round(pct))
}

// MoverFilter narrows the top-movers view. Zero values disable a criterion.
type MoverFilter struct {
	SetName        string
	Grade          string
	MinLatestPrice float64
	Limit          int
}

// TopMovers filters movers and sorts them by percent change descending.
// Ties order by item name, grade, then set for stable output.
func TopMovers(movers []domain.Mover, f MoverFilter) []domain.Mover {
	out := make([]domain.Mover, 0, len(movers))
	for _, m := range movers {
		if f.SetName != "" && m.SetName != f.SetName {
			continue
		}
		if f.Grade != "" && m.Grade != f.Grade {
			continue
		}
		if m.LatestPrice < f.MinLatestPrice {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PercentChange != b.PercentChange {
			return a.PercentChange > b.PercentChange
		}
		if a.ItemName != b.ItemName {
			return a.ItemName < b.ItemName
		}
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		return a.SetName < b.SetName
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

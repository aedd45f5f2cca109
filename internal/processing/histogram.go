package processing

import (
	"sort"

	"card-market-lab/internal/domain"
)

// DefaultHistogramBins is the bin count of the card-type histogram.
const DefaultHistogramBins = 10

// SortCardTypes returns card types ordered by count ascending, then label.
func SortCardTypes(types []domain.CardTypeCount) []domain.CardTypeCount {
	out := make([]domain.CardTypeCount, len(types))
	copy(out, types)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count < out[j].Count
		}
		return out[i].CardType < out[j].CardType
	})
	return out
}

// CardTypeHistogram buckets card types by occurrence count into equal-width
// bins, each weighted by the counts that fall into it.
func CardTypeHistogram(types []domain.CardTypeCount, bins int) []domain.HistogramBin {
	values := make([]float64, len(types))
	for i, t := range types {
		values[i] = float64(t.Count)
	}
	return Histogram(values, values, bins)
}

// Histogram splits [min, max] of values into bins equal-width buckets.
// The last bucket is closed on both ends. weights may be nil (weight 1 each).
// A single distinct value yields one bucket of width zero.
func Histogram(values, weights []float64, bins int) []domain.HistogramBin {
	if len(values) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		bins = 1
	}

	width := (hi - lo) / float64(bins)
	out := make([]domain.HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for i, v := range values {
		idx := bins - 1
		if width > 0 {
			idx = int((v - lo) / width)
			if idx >= bins {
				idx = bins - 1
			}
		}
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		out[idx].Items++
		out[idx].Weight += w
	}
	return out
}

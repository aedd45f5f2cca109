package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-market-lab/internal/domain"
)

func TestHistogram_EqualWidth(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 5, 9, 10}, nil, 5)

	require.Len(t, bins, 5)
	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 10.0, bins[4].Upper)
	assert.Equal(t, []int{2, 1, 1, 0, 2}, []int{bins[0].Items, bins[1].Items, bins[2].Items, bins[3].Items, bins[4].Items})
}

func TestHistogram_SingleValue(t *testing.T) {
	bins := Histogram([]float64{7, 7}, []float64{1, 2}, 10)

	require.Len(t, bins, 1)
	assert.Equal(t, 2, bins[0].Items)
	assert.Equal(t, 3.0, bins[0].Weight)
}

func TestHistogram_Empty(t *testing.T) {
	assert.Nil(t, Histogram(nil, nil, 10))
}

func TestCardTypeHistogram_WeightsByCount(t *testing.T) {
	types := []domain.CardTypeCount{
		{CardType: "pokemon", Count: 500},
		{CardType: "trainer", Count: 60},
		{CardType: "energy", Count: 50},
	}

	bins := CardTypeHistogram(types, 2)

	require.Len(t, bins, 2)
	assert.Equal(t, 2, bins[0].Items)
	assert.Equal(t, 110.0, bins[0].Weight)
	assert.Equal(t, 1, bins[1].Items)
	assert.Equal(t, 500.0, bins[1].Weight)
}

func TestSortCardTypes(t *testing.T) {
	types := []domain.CardTypeCount{{CardType: "b", Count: 60}, {CardType: "a", Count: 60}, {CardType: "c", Count: 50}}

	sorted := SortCardTypes(types)

	assert.Equal(t, []domain.CardTypeCount{{CardType: "c", Count: 50}, {CardType: "a", Count: 60}, {CardType: "b", Count: 60}}, sorted)
	assert.Equal(t, "b", types[0].CardType, "input untouched")
}

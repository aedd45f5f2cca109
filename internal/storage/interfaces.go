package storage

import (
	"context"

	"card-market-lab/internal/domain"
)

// ObservationStore reads the denormalized monthly feature table (feature_set).
// Rows come back in insertion order so that "first occurrence" during
// deduplication is stable across backends.
type ObservationStore interface {
	// GetFeatureSet returns at most limit observations.
	// Returns ErrInvalidInput if limit is not positive.
	GetFeatureSet(ctx context.Context, limit int) ([]domain.Observation, error)
}

// ObservationWriter appends rows to feature_set.
// Used for seeding fixture data and by integration tests; the dashboard
// itself never writes.
type ObservationWriter interface {
	InsertBulk(ctx context.Context, obs []domain.Observation) error
}

// CardTypeStore reads the card-type frequency table derived from psa_data.
type CardTypeStore interface {
	// GetCardTypeCounts returns card types with at least minCount graded
	// cards, at most limit rows, ordered by card type.
	GetCardTypeCounts(ctx context.Context, minCount, limit int) ([]domain.CardTypeCount, error)
}

// CardTypeWriter records graded cards in psa_data.
type CardTypeWriter interface {
	InsertCards(ctx context.Context, cards []domain.GradedCard) error
}

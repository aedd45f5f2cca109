package memory

import (
	"context"
	"maps"
	"sync"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	rows []domain.Observation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{}
}

// InsertBulk appends observations in order. Duplicates are kept, as upstream.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []domain.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		s.rows = append(s.rows, copyObservation(o))
	}
	return nil
}

// GetFeatureSet returns the first limit observations in insertion order.
func (s *ObservationStore) GetFeatureSet(_ context.Context, limit int) ([]domain.Observation, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.rows))
	out := make([]domain.Observation, n)
	for i := range n {
		out[i] = copyObservation(s.rows[i])
	}
	return out, nil
}

// copyObservation detaches the nullable and map fields from the caller.
func copyObservation(o domain.Observation) domain.Observation {
	if o.Price != nil {
		p := *o.Price
		o.Price = &p
	}
	if o.SetYear != nil {
		o.SetYear = domain.Int(*o.SetYear)
	}
	if o.MonthsSinceRelease != nil {
		o.MonthsSinceRelease = domain.Int(*o.MonthsSinceRelease)
	}
	o.Metrics = maps.Clone(o.Metrics)
	o.Flags = maps.Clone(o.Flags)
	return o
}

var (
	_ storage.ObservationStore  = (*ObservationStore)(nil)
	_ storage.ObservationWriter = (*ObservationStore)(nil)
)

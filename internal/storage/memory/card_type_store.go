package memory

import (
	"context"
	"sort"
	"sync"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/storage"
)

// CardTypeStore is an in-memory implementation of storage.CardTypeStore.
type CardTypeStore struct {
	mu     sync.RWMutex
	counts map[string]int // card type -> graded cards
}

// NewCardTypeStore creates a new in-memory card type store.
func NewCardTypeStore() *CardTypeStore {
	return &CardTypeStore{counts: make(map[string]int)}
}

// InsertCards records graded cards. Cards without a type are rejected.
func (s *CardTypeStore) InsertCards(_ context.Context, cards []domain.GradedCard) error {
	for _, c := range cards {
		if c.CardType == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cards {
		s.counts[c.CardType]++
	}
	return nil
}

// GetCardTypeCounts returns types with at least minCount cards, ordered by
// card type and truncated to limit.
func (s *CardTypeStore) GetCardTypeCounts(_ context.Context, minCount, limit int) ([]domain.CardTypeCount, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CardTypeCount
	for cardType, n := range s.counts {
		if n >= minCount {
			out = append(out, domain.CardTypeCount{CardType: cardType, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardType < out[j].CardType })

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ storage.CardTypeStore  = (*CardTypeStore)(nil)
	_ storage.CardTypeWriter = (*CardTypeStore)(nil)
)

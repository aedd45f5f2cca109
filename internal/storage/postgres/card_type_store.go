package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/storage"
)

// CardTypeStore implements storage.CardTypeStore using PostgreSQL.
type CardTypeStore struct {
	pool *Pool
}

// NewCardTypeStore creates a new CardTypeStore.
func NewCardTypeStore(pool *Pool) *CardTypeStore {
	return &CardTypeStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.CardTypeStore  = (*CardTypeStore)(nil)
	_ storage.CardTypeWriter = (*CardTypeStore)(nil)
)

// GetCardTypeCounts returns card types with at least minCount graded cards.
func (s *CardTypeStore) GetCardTypeCounts(ctx context.Context, minCount, limit int) ([]domain.CardTypeCount, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT card_type, COUNT(*) AS count
		FROM psa_data
		GROUP BY card_type
		HAVING COUNT(*) >= $1
		ORDER BY card_type
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, minCount, limit)
	if err != nil {
		return nil, fmt.Errorf("query card type counts: %w", err)
	}
	defer rows.Close()

	var out []domain.CardTypeCount
	for rows.Next() {
		var c domain.CardTypeCount
		var count int64
		if err := rows.Scan(&c.CardType, &count); err != nil {
			return nil, fmt.Errorf("scan card type count: %w", err)
		}
		c.Count = int(count)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card type counts: %w", err)
	}
	return out, nil
}

// InsertCards appends graded card records in a single transaction, sent as
// one pipelined batch.
func (s *CardTypeStore) InsertCards(ctx context.Context, cards []domain.GradedCard) error {
	if len(cards) == 0 {
		return nil
	}
	for _, c := range cards {
		if c.CardType == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO psa_data (cert_number, card_type, grade) VALUES ($1, $2, $3)`
	batch := &pgx.Batch{}
	for _, c := range cards {
		batch.Queue(query, c.CertNumber, c.CardType, c.Grade)
	}
	if err := execBatch(ctx, tx, batch, "insert psa_data row"); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

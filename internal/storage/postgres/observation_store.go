package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *Pool
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.ObservationStore  = (*ObservationStore)(nil)
	_ storage.ObservationWriter = (*ObservationStore)(nil)
)

// selectFeatureSet coalesces NULL text to "". NULL numbers stay NULL.
var selectFeatureSet = `
	SELECT
		COALESCE(poke_id, ''), COALESCE(poke_name, ''), COALESCE(number, ''),
		COALESCE(grade, ''), COALESCE(set_name, ''), set_year,
		COALESCE(product_type, ''), release_date, date, price,
		mos_since_release,
		` + strings.Join(metricAndFlagColumns(), ", ") + `
	FROM feature_set
	ORDER BY id
	LIMIT $1
`

// GetFeatureSet returns at most limit rows in load order.
func (s *ObservationStore) GetFeatureSet(ctx context.Context, limit int) ([]domain.Observation, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, selectFeatureSet, limit)
	if err != nil {
		return nil, fmt.Errorf("query feature_set: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// InsertBulk appends observations in a single transaction, sent as one
// pipelined batch.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	cols := storage.FeatureSetColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO feature_set (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(query, observationArgs(o)...)
	}
	if err := execBatch(ctx, tx, batch, "insert feature_set row"); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func metricAndFlagColumns() []string {
	cols := storage.FeatureSetColumns()
	return cols[len(storage.ScalarColumns):]
}

func observationArgs(o domain.Observation) []any {
	args := []any{
		o.ItemID, o.ItemName, o.Number, o.Grade, o.SetName, o.SetYear,
		o.ProductType, nullableDate(o.ReleaseDate), nullableDate(o.Date),
		o.Price, o.MonthsSinceRelease,
	}
	for _, v := range storage.MetricsToNullable(o.Metrics) {
		args = append(args, v)
	}
	for _, v := range storage.FlagsToNullable(o.Flags) {
		args = append(args, v)
	}
	return args
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// scanObservations scans feature_set rows selected by selectFeatureSet.
func scanObservations(rows pgx.Rows) ([]domain.Observation, error) {
	var out []domain.Observation

	for rows.Next() {
		var (
			o                 domain.Observation
			releaseDate, date *time.Time
			metrics           = make([]*float64, len(domain.AllMetrics))
			flags             = make([]*bool, len(domain.AllFlags))
		)

		dest := []any{
			&o.ItemID, &o.ItemName, &o.Number, &o.Grade, &o.SetName, &o.SetYear,
			&o.ProductType, &releaseDate, &date, &o.Price, &o.MonthsSinceRelease,
		}
		for i := range metrics {
			dest = append(dest, &metrics[i])
		}
		for i := range flags {
			dest = append(dest, &flags[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan feature_set row: %w", err)
		}

		if releaseDate != nil {
			o.ReleaseDate = *releaseDate
		}
		if date != nil {
			o.Date = *date
		}
		o.Metrics = storage.MetricsFromNullable(metrics)
		o.Flags = storage.FlagsFromNullable(flags)
		out = append(out, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature_set rows: %w", err)
	}
	return out, nil
}

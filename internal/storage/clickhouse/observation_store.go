package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore over the ClickHouse
// feature_set replica.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface checks.
var (
	_ storage.ObservationStore  = (*ObservationStore)(nil)
	_ storage.ObservationWriter = (*ObservationStore)(nil)
)

// GetFeatureSet returns at most limit rows ordered by load sequence.
func (s *ObservationStore) GetFeatureSet(ctx context.Context, limit int) ([]domain.Observation, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM feature_set
		ORDER BY seq ASC
		LIMIT ?
	`, strings.Join(storage.FeatureSetColumns(), ", "))

	rows, err := s.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query feature_set: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// InsertBulk appends observations after the current highest sequence number.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	var next uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM feature_set`).Scan(&next); err != nil {
		return fmt.Errorf("count feature_set: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO feature_set (seq, %s)", strings.Join(storage.FeatureSetColumns(), ", ")))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, o := range obs {
		args := []any{
			next + uint64(i),
			o.ItemID, o.ItemName, o.Number, o.Grade, o.SetName, toInt32(o.SetYear),
			o.ProductType, nullableDate(o.ReleaseDate), nullableDate(o.Date),
			o.Price, toInt32(o.MonthsSinceRelease),
		}
		for _, v := range storage.MetricsToNullable(o.Metrics) {
			args = append(args, v)
		}
		for _, v := range storage.FlagsToNullable(o.Flags) {
			args = append(args, v)
		}
		if err := batch.Append(args...); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func toInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

func fromInt32(v *int32) *int {
	if v == nil {
		return nil
	}
	return domain.Int(int(*v))
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// scanObservations scans rows selected with storage.FeatureSetColumns.
func scanObservations(rows chRows) ([]domain.Observation, error) {
	var out []domain.Observation

	for rows.Next() {
		var (
			o                 domain.Observation
			setYear, mos      *int32
			releaseDate, date *time.Time
			metrics           = make([]*float64, len(domain.AllMetrics))
			flags             = make([]*bool, len(domain.AllFlags))
		)

		dest := []any{
			&o.ItemID, &o.ItemName, &o.Number, &o.Grade, &o.SetName, &setYear,
			&o.ProductType, &releaseDate, &date, &o.Price, &mos,
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

		o.SetYear = fromInt32(setYear)
		o.MonthsSinceRelease = fromInt32(mos)
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

// Package loader fetches the feature table and card-type frequencies from a
// store, memoizing results in a cache.QueryCache.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"card-market-lab/internal/cache"
	"card-market-lab/internal/config"
	"card-market-lab/internal/domain"
	"card-market-lab/internal/logger"
	"card-market-lab/internal/observability"
	"card-market-lab/internal/storage"
)

// Query names, used as cache key prefixes and metric labels.
const (
	QueryFeatureSet = "feature_set"
	QueryCardTypes  = "card_types"
)

// ErrDataAccess wraps every failure to read from the backing store.
var ErrDataAccess = errors.New("data access failed")

// Dataset is the raw input of one pipeline run. Slices may be shared with
// the cache and must not be modified.
type Dataset struct {
	Observations []domain.Observation
	CardTypes    []domain.CardTypeCount
}

// Loader reads from stores through a query cache.
type Loader struct {
	observations storage.ObservationStore
	cardTypes    storage.CardTypeStore // nil when the source has no psa_data
	cache        *cache.QueryCache
	query        config.QueryConfig
	source       string
	metrics      *observability.Metrics
	log          *logrus.Entry
}

// New creates a Loader. A nil cache gets a fresh one with cache.DefaultTTL.
func New(observations storage.ObservationStore, qc *cache.QueryCache, query config.QueryConfig) *Loader {
	if qc == nil {
		qc = cache.New(cache.DefaultTTL)
	}
	return &Loader{
		observations: observations,
		cache:        qc,
		query:        query,
		source:       "unknown",
		log:          logger.Discard().WithComponent("loader"),
	}
}

// WithCardTypeStore enables card-type frequency loading.
func (l *Loader) WithCardTypeStore(s storage.CardTypeStore) *Loader {
	l.cardTypes = s
	return l
}

// WithSource labels metrics and logs with the data source name.
func (l *Loader) WithSource(source string) *Loader {
	l.source = source
	return l
}

// WithMetrics records query timings and errors.
func (l *Loader) WithMetrics(m *observability.Metrics) *Loader {
	l.metrics = m
	return l
}

// WithLogger sets the log entry used for query logging.
func (l *Loader) WithLogger(log *logrus.Entry) *Loader {
	l.log = log
	return l
}

// Observations returns the feature table, limited to query.FeatureSetLimit rows.
func (l *Loader) Observations(ctx context.Context) ([]domain.Observation, error) {
	limit := l.query.FeatureSetLimit
	return cache.Fetch(ctx, l.cache, QueryFeatureSet, []any{limit}, func(ctx context.Context) ([]domain.Observation, error) {
		start := time.Now()
		obs, err := l.observations.GetFeatureSet(ctx, limit)
		l.record(QueryFeatureSet, start, len(obs), err)
		if err != nil {
			return nil, fmt.Errorf("%w: query %s: %w", ErrDataAccess, QueryFeatureSet, err)
		}
		return obs, nil
	})
}

// CardTypes returns card types with at least query.MinCardTypeCount graded
// cards. Returns nil without error when no card-type store is configured.
func (l *Loader) CardTypes(ctx context.Context) ([]domain.CardTypeCount, error) {
	if l.cardTypes == nil {
		return nil, nil
	}

	minCount, limit := l.query.MinCardTypeCount, l.query.CardTypeLimit
	return cache.Fetch(ctx, l.cache, QueryCardTypes, []any{minCount, limit}, func(ctx context.Context) ([]domain.CardTypeCount, error) {
		start := time.Now()
		types, err := l.cardTypes.GetCardTypeCounts(ctx, minCount, limit)
		l.record(QueryCardTypes, start, len(types), err)
		if err != nil {
			return nil, fmt.Errorf("%w: query %s: %w", ErrDataAccess, QueryCardTypes, err)
		}
		return types, nil
	})
}

// Load fetches both tables concurrently. Either failure fails the load.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	var ds Dataset

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		obs, err := l.Observations(gctx)
		ds.Observations = obs
		return err
	})
	g.Go(func() error {
		types, err := l.CardTypes(gctx)
		ds.CardTypes = types
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Refresh drops cached results so the next load hits the store.
func (l *Loader) Refresh() {
	l.cache.Invalidate(QueryFeatureSet)
	l.cache.Invalidate(QueryCardTypes)
	l.log.Info("query cache invalidated")
}

func (l *Loader) record(query string, start time.Time, rows int, err error) {
	elapsed := time.Since(start)
	l.metrics.RecordQuery(l.source, query, elapsed, rows, err)

	entry := l.log.WithFields(logrus.Fields{
		"query":      query,
		"source":     l.source,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("source query failed")
		return
	}
	entry.Debug("source query completed")
}

package main

import (
	"context"
	"fmt"

	"card-market-lab/internal/cache"
	"card-market-lab/internal/config"
	"card-market-lab/internal/loader"
	"card-market-lab/internal/logger"
	"card-market-lab/internal/observability"
	"card-market-lab/internal/pipeline"
	"card-market-lab/internal/storage"
	chstore "card-market-lab/internal/storage/clickhouse"
	"card-market-lab/internal/storage/memory"
	"card-market-lab/internal/storage/migrations"
	pgstore "card-market-lab/internal/storage/postgres"
)

type stores struct {
	loader *loader.Loader
	close  func()
}

// openStores connects the configured source and wraps it in a cached loader.
func openStores(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, log *logger.Log) (*stores, error) {
	qc := cache.New(cfg.Cache.TTL, cache.WithMetrics(metrics))

	switch cfg.Source {
	case config.SourceFixtures:
		obs := memory.NewObservationStore()
		types := memory.NewCardTypeStore()
		if err := pipeline.LoadFixtures(ctx, obs, types); err != nil {
			return nil, err
		}
		l := newLoader(obs, qc, cfg, metrics, log).WithCardTypeStore(types)
		return &stores{loader: l, close: func() {}}, nil

	case config.SourcePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Database.ConnString())
		if err != nil {
			return nil, err
		}
		l := newLoader(pgstore.NewObservationStore(pool), qc, cfg, metrics, log).
			WithCardTypeStore(pgstore.NewCardTypeStore(pool))
		return &stores{loader: l, close: pool.Close}, nil

	case config.SourceClickhouse:
		conn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return nil, err
		}
		// The replica carries feature_set only.
		l := newLoader(chstore.NewObservationStore(conn), qc, cfg, metrics, log)
		return &stores{loader: l, close: func() { _ = conn.Close() }}, nil

	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func newLoader(obs storage.ObservationStore, qc *cache.QueryCache, cfg *config.Config, metrics *observability.Metrics, log *logger.Log) *loader.Loader {
	return loader.New(obs, qc, cfg.Query).
		WithSource(cfg.Source).
		WithMetrics(metrics).
		WithLogger(log.WithComponent("loader"))
}

func migrate(ctx context.Context, cfg *config.Config) error {
	switch cfg.Source {
	case config.SourcePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Database.ConnString())
		if err != nil {
			return err
		}
		defer pool.Close()
		return migrations.RunPostgresMigrations(ctx, pool)

	case config.SourceClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return err
		}
		return conn.Close()

	default:
		return fmt.Errorf("migrate: source %q has no schema", cfg.Source)
	}
}

func seed(ctx context.Context, cfg *config.Config) error {
	switch cfg.Source {
	case config.SourcePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Database.ConnString())
		if err != nil {
			return err
		}
		defer pool.Close()
		return pipeline.LoadFixtures(ctx, pgstore.NewObservationStore(pool), pgstore.NewCardTypeStore(pool))

	case config.SourceClickhouse:
		conn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		return pipeline.LoadFixtures(ctx, chstore.NewObservationStore(conn), nil)

	default:
		return fmt.Errorf("seed: source %q is not persistent", cfg.Source)
	}
}

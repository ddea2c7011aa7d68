package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/config"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/pipeline"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/resilience"
	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/store"
)

// pipelineEnv holds the initialized dependencies of an analysis command.
type pipelineEnv struct {
	Store    store.Store
	Catalog  *config.Catalog
	Pipeline *pipeline.Pipeline
}

// Close releases the store, if any.
func (e *pipelineEnv) Close() {
	if e.Store != nil {
		e.Store.Close() //nolint:errcheck
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	if cfg.Store.RetryAttempts > 1 {
		p := resilience.DefaultPolicy()
		p.Attempts = cfg.Store.RetryAttempts
		if cfg.Store.RetryBackoff > 0 {
			p.Backoff = cfg.Store.RetryBackoff
		}
		st = store.WithRetry(st, p)
	}
	return st, nil
}

// initPipeline validates the config for mode and builds the pipeline. With
// withStore false, runs are exported but not recorded.
func initPipeline(ctx context.Context, mode string, withStore bool) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	catalog, err := config.LoadCatalog(cfg.CitiesFile)
	if err != nil {
		return nil, err
	}

	env := &pipelineEnv{Catalog: catalog}
	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "init store")
		}
		env.Store = st
	}
	env.Pipeline = pipeline.New(cfg, catalog, env.Store)
	return env, nil
}

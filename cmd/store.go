package main

import (
	"context"

	"github.com/paleobytes/gheval/internal/appdir"
	"github.com/paleobytes/gheval/internal/store"
)

// initDirs resolves the data directory tree, creating it if needed.
func initDirs() (appdir.Dirs, error) {
	return appdir.Resolve(cfg.Data.Dir)
}

// initStore opens the configured backend. The sqlite driver defaults to the
// database file under the data directory.
func initStore(ctx context.Context, dirs appdir.Dirs) (store.Store, error) {
	dsn := cfg.Store.DatabaseURL
	if cfg.Store.Driver != "postgres" && dsn == "" {
		dsn = dirs.DatabasePath()
	}
	return store.New(ctx, cfg.Store.Driver, dsn, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

// initEnv is the common command preamble: directories, store, migrations.
func initEnv(ctx context.Context) (appdir.Dirs, store.Store, error) {
	dirs, err := initDirs()
	if err != nil {
		return appdir.Dirs{}, nil, err
	}
	st, err := initStore(ctx, dirs)
	if err != nil {
		return appdir.Dirs{}, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return appdir.Dirs{}, nil, err
	}
	return dirs, st, nil
}

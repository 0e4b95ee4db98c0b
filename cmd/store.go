package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/store"
	anthropicpkg "github.com/sells-group/variance-cli/pkg/anthropic"
)

// initStore opens the configured run-history backend and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "variance.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initAnthropicClient returns a client for the configured API key, or nil
// when no key is set so the generators stay on their deterministic paths.
func initAnthropicClient() anthropicpkg.Client {
	if cfg.Anthropic.Key == "" {
		return nil
	}
	return anthropicpkg.NewClient(cfg.Anthropic.Key)
}

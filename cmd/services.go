package main

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/benchmark-cli/internal/action"
	"github.com/sells-group/benchmark-cli/internal/config"
	"github.com/sells-group/benchmark-cli/internal/store"
	"github.com/sells-group/benchmark-cli/pkg/analysis"
	"github.com/sells-group/benchmark-cli/pkg/anthropic"
)

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "benchmark.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// initClients builds the backend clients. A client whose endpoint or key is
// not configured is left nil; the actions report it as unavailable.
func initClients(c *config.Config) (analysis.Client, anthropic.Client) {
	var ac analysis.Client
	if c.Analysis.BaseURL != "" {
		opts := []analysis.Option{
			analysis.WithBaseURL(c.Analysis.BaseURL),
			analysis.WithRateLimit(c.Analysis.RateLimit),
		}
		if c.Analysis.Timeout > 0 {
			opts = append(opts, analysis.WithHTTPClient(&http.Client{Timeout: c.Analysis.Timeout}))
		}
		ac = analysis.NewClient(c.Analysis.Key, opts...)
	}
	var cc anthropic.Client
	if c.Anthropic.Key != "" {
		cc = anthropic.NewClient(c.Anthropic.Key)
	}
	return ac, cc
}

// env bundles what a command needs to run actions against the store.
type env struct {
	Store   store.Store
	Service *action.Service
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initEnv(ctx context.Context, mode string) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	st, err := initStore(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	ac, cc := initClients(cfg)
	return &env{
		Store:   st,
		Service: action.NewService(st, ac, cc, action.OptionsFromConfig(cfg)),
	}, nil
}

// resultErr converts a failed action result into a command error.
func resultErr[T any](res action.Result[T]) error {
	if res.OK() {
		return nil
	}
	return eris.New(*res.Error)
}

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/taxon-cli/internal/classify"
	"github.com/sells-group/taxon-cli/internal/config"
	"github.com/sells-group/taxon-cli/internal/handoff"
	"github.com/sells-group/taxon-cli/internal/match"
	"github.com/sells-group/taxon-cli/internal/rank"
	"github.com/sells-group/taxon-cli/internal/resilience"
	"github.com/sells-group/taxon-cli/internal/search"
	"github.com/sells-group/taxon-cli/internal/store"
	"github.com/sells-group/taxon-cli/pkg/inat"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "taxon.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEngine builds the matching engine over the default rank table.
func initEngine(sc config.SearchConfig) *match.Engine {
	return match.NewEngine(classify.New(rank.Default(), sc.Boilerplate))
}

// initProvider wires the configured searcher behind retry and a circuit breaker.
func initProvider(sc config.SearchConfig, tax *rank.Taxonomy) (search.Provider, error) {
	var s search.Searcher
	switch sc.Provider {
	case "inat":
		client := inat.NewClient(
			inat.WithBaseURL(sc.BaseURL),
			inat.WithLocale(sc.Locale),
			inat.WithPerPage(sc.PerPage),
			inat.WithRateLimit(sc.RatePerSec),
			inat.WithHTTPClient(&http.Client{Timeout: time.Duration(sc.TimeoutSecs) * time.Second}),
		)
		s = search.NewINat(client, tax, sc.SiteURL)
	case "fixture":
		f, err := search.LoadFixture(sc.FixturePath)
		if err != nil {
			return nil, err
		}
		s = f
	default:
		return nil, eris.Errorf("unsupported search provider: %s", sc.Provider)
	}

	retry := resilience.FromSettings(sc.Retry.MaxAttempts, sc.Retry.InitialBackoffMs, sc.Retry.MaxBackoffMs)
	breaker := resilience.NewBreaker(sc.Provider, resilience.BreakerConfig{
		FailureThreshold: sc.Circuit.FailureThreshold,
		Cooldown:         time.Duration(sc.Circuit.CooldownSecs) * time.Second,
	})
	return search.NewProvider(sc.Provider, s, retry, breaker), nil
}

// initSink returns the persistent hand-off sink, or a collector for dry runs.
func initSink(st store.Store, hc config.HandoffConfig, dryRun bool) (handoff.Sink, *handoff.Collector, error) {
	if dryRun {
		c := &handoff.Collector{}
		return c, c, nil
	}
	sink, err := handoff.NewStoreSink(st, hc.SiteURL, hc.NoteTemplate)
	if err != nil {
		return nil, nil, err
	}
	return sink, nil, nil
}

// Package search queries the external taxonomy and returns candidates in the
// form its search dropdown renders them.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/resilience"
)

// Provider answers one text query with zero or more candidates. It never
// fails: any error is logged and reported as an empty result.
type Provider interface {
	Query(ctx context.Context, text string) []model.Candidate
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, text string) []model.Candidate

// Query calls f.
func (f ProviderFunc) Query(ctx context.Context, text string) []model.Candidate {
	return f(ctx, text)
}

// Searcher is a backend that may fail.
type Searcher interface {
	Search(ctx context.Context, text string) ([]model.Candidate, error)
}

type resilientProvider struct {
	name     string
	searcher Searcher
	retry    resilience.RetryConfig
	breaker  *resilience.Breaker
}

// NewProvider wraps s with retry on transient errors and an optional circuit
// breaker. name labels log lines.
func NewProvider(name string, s Searcher, retry resilience.RetryConfig, breaker *resilience.Breaker) Provider {
	return &resilientProvider{name: name, searcher: s, retry: retry, breaker: breaker}
}

func (p *resilientProvider) Query(ctx context.Context, text string) []model.Candidate {
	cfg := p.retry
	cfg.OnRetry = resilience.LogRetry(p.name, text)

	out, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.Candidate, error) {
		if p.breaker == nil {
			return p.searcher.Search(ctx, text)
		}
		return resilience.Call(ctx, p.breaker, func(ctx context.Context) ([]model.Candidate, error) {
			return p.searcher.Search(ctx, text)
		})
	})
	if err != nil {
		zap.L().Warn("search: query failed, treating as empty",
			zap.String("service", p.name),
			zap.String("query", text),
			zap.Error(err),
		)
		return nil
	}
	zap.L().Debug("search: query",
		zap.String("service", p.name),
		zap.String("query", text),
		zap.Int("candidates", len(out)),
	)
	return out
}

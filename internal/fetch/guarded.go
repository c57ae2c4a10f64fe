package fetch

import (
	"context"

	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/resilience"
)

// Fetcher matches collect.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, req model.Request) (*model.Page, error)
}

// Guarded runs a Fetcher behind a circuit breaker. While the breaker is
// open, Fetch fails immediately with resilience.ErrCircuitOpen, which is
// not retried.
type Guarded struct {
	next    Fetcher
	breaker *resilience.CircuitBreaker
}

// NewGuarded wraps next with breaker.
func NewGuarded(next Fetcher, breaker *resilience.CircuitBreaker) *Guarded {
	return &Guarded{next: next, breaker: breaker}
}

// Fetch implements collect.Fetcher.
func (g *Guarded) Fetch(ctx context.Context, req model.Request) (*model.Page, error) {
	return resilience.Guard(ctx, g.breaker, func(ctx context.Context) (*model.Page, error) {
		return g.next.Fetch(ctx, req)
	})
}

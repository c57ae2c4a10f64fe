package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rjrizani/zyte-api-training/internal/collect"
	"github.com/rjrizani/zyte-api-training/internal/config"
	"github.com/rjrizani/zyte-api-training/internal/fetch"
	"github.com/rjrizani/zyte-api-training/internal/recipe"
	"github.com/rjrizani/zyte-api-training/internal/resilience"
	"github.com/rjrizani/zyte-api-training/internal/store"
	"github.com/rjrizani/zyte-api-training/pkg/zyte"
)

func initStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch c.Driver {
	case "sqlite":
		dsn := c.DatabaseURL
		if dsn == "" {
			dsn = "zyte-collect.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.DatabaseURL, &store.PoolConfig{
			MaxConns: c.MaxConns,
			MinConns: c.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
}

// openStore opens and migrates the configured run history store.
func openStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newBreaker creates the breaker shared by every fetch of this process.
func newBreaker(c config.BreakerConfig) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.FromCircuitConfig(c.FailureThreshold, c.ResetTimeoutSecs))
}

// breakerNote describes a breaker left open or half-open by a run. It is
// empty while the breaker is closed.
func breakerNote(cb *resilience.CircuitBreaker) string {
	if cb == nil {
		return ""
	}
	if st := cb.State(); st != resilience.CircuitClosed {
		return fmt.Sprintf("circuit breaker %s after %d consecutive failures", st, cb.Failures())
	}
	return ""
}

// newFetcher builds the fetch strategy a plan asks for, guarded by breaker.
func newFetcher(api config.APIConfig, plan *recipe.Plan, breaker *resilience.CircuitBreaker) (collect.Fetcher, error) {
	timeout := time.Duration(api.TimeoutSecs) * time.Second

	var f fetch.Fetcher
	switch plan.Fetch {
	case recipe.FetchDirect:
		proxy, err := proxyURL(api)
		if err != nil {
			return nil, err
		}
		d, err := fetch.NewDirect(fetch.DirectOptions{
			ProxyURL:           proxy,
			InsecureSkipVerify: proxy != "",
			Headers:            plan.Headers,
			Timeout:            timeout,
		})
		if err != nil {
			return nil, err
		}
		f = d
	default:
		opts := []zyte.Option{zyte.WithTimeout(timeout)}
		if api.Endpoint != "" {
			opts = append(opts, zyte.WithEndpoint(api.Endpoint))
		}
		f = fetch.NewZyte(zyte.NewClient(api.Key, opts...), plan.Zyte)
	}

	if breaker == nil {
		return f, nil
	}
	return fetch.NewGuarded(f, breaker), nil
}

// proxyURL returns the proxy-mode URL with the API key as username, e.g.
// http://KEY:@api.zyte.com:8011. An empty ProxyURL disables the proxy.
func proxyURL(api config.APIConfig) (string, error) {
	if api.ProxyURL == "" {
		return "", nil
	}
	u, err := url.Parse(api.ProxyURL)
	if err != nil {
		return "", eris.Wrap(err, "parse api.proxy_url")
	}
	if u.User == nil && api.Key != "" {
		u.User = url.UserPassword(api.Key, "")
	}
	return u.String(), nil
}

// collectConfig derives the collector bounds from configuration, the plan
// and command-line overrides. Non-positive overrides are ignored.
func collectConfig(c config.CollectConfig, plan *recipe.Plan, maxSteps, maxRetries int) collect.Config {
	policy := resilience.FromRetryConfig(c.MaxRetries, c.InitialBackoffMs, c.MaxBackoffMs, c.Multiplier, c.JitterFraction)
	if maxRetries > 0 {
		policy.MaxAttempts = maxRetries
	}

	steps := c.MaxSteps
	if plan != nil && plan.MaxSteps > 0 {
		steps = plan.MaxSteps
	}
	if maxSteps > 0 {
		steps = maxSteps
	}

	var name string
	if plan != nil {
		name = plan.Name
	}
	return collect.Config{
		Name:      name,
		MaxSteps:  steps,
		Retry:     policy,
		StepDelay: time.Duration(c.StepDelayMs) * time.Millisecond,
	}
}

// parseParams merges repeated "k=v" or "k=v,k=v" flag values.
func parseParams(values []string) (map[string]string, error) {
	params := map[string]string{}
	for _, v := range values {
		p, err := recipe.ParseParams(v)
		if err != nil {
			return nil, err
		}
		for k, val := range p {
			params[k] = val
		}
	}
	return params, nil
}

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjrizani/zyte-api-training/internal/config"
	"github.com/rjrizani/zyte-api-training/internal/fetch"
	"github.com/rjrizani/zyte-api-training/internal/recipe"
	"github.com/rjrizani/zyte-api-training/internal/resilience"
)

func TestProxyURL(t *testing.T) {
	tests := []struct {
		name string
		api  config.APIConfig
		want string
	}{
		{"key as username", config.APIConfig{Key: "KEY", ProxyURL: "http://api.zyte.com:8011"}, "http://KEY:@api.zyte.com:8011"},
		{"explicit credentials kept", config.APIConfig{Key: "KEY", ProxyURL: "http://other:@proxy:8011"}, "http://other:@proxy:8011"},
		{"disabled", config.APIConfig{Key: "KEY"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := proxyURL(tt.api)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := proxyURL(config.APIConfig{ProxyURL: "://bad"})
	assert.Error(t, err)
}

func TestCollectConfig(t *testing.T) {
	c := config.CollectConfig{
		MaxSteps:         10,
		MaxRetries:       3,
		InitialBackoffMs: 500,
		MaxBackoffMs:     4000,
		Multiplier:       2,
		StepDelayMs:      2000,
	}

	got := collectConfig(c, &recipe.Plan{Name: "quotes"}, 0, 0)
	assert.Equal(t, "quotes", got.Name)
	assert.Equal(t, 10, got.MaxSteps)
	assert.Equal(t, 3, got.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, got.Retry.BaseDelay)
	assert.Equal(t, 4*time.Second, got.Retry.MaxDelay)
	assert.Equal(t, 2*time.Second, got.StepDelay)

	got = collectConfig(c, &recipe.Plan{MaxSteps: 20}, 0, 0)
	assert.Equal(t, 20, got.MaxSteps, "recipe bound beats the configured default")

	got = collectConfig(c, &recipe.Plan{MaxSteps: 20}, 2, 5)
	assert.Equal(t, 2, got.MaxSteps, "flag beats the recipe")
	assert.Equal(t, 5, got.Retry.MaxAttempts)
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"author=Albert Einstein", "tag=world,page=2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"author": "Albert Einstein", "tag": "world", "page": "2"}, got)

	got, err = parseParams(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseParams([]string{"noequals"})
	assert.Error(t, err)
}

func TestNewFetcher(t *testing.T) {
	api := config.APIConfig{Key: "KEY", TimeoutSecs: 5, ProxyURL: "http://api.zyte.com:8011"}
	breaker := newBreaker(config.BreakerConfig{FailureThreshold: 2, ResetTimeoutSecs: 1})

	f, err := newFetcher(api, &recipe.Plan{Fetch: recipe.FetchBrowser}, breaker)
	require.NoError(t, err)
	assert.IsType(t, &fetch.Guarded{}, f)

	f, err = newFetcher(api, &recipe.Plan{Fetch: recipe.FetchBrowser}, nil)
	require.NoError(t, err)
	assert.IsType(t, &fetch.Zyte{}, f)

	f, err = newFetcher(api, &recipe.Plan{Fetch: recipe.FetchDirect}, nil)
	require.NoError(t, err)
	assert.IsType(t, &fetch.Direct{}, f)

	_, err = newFetcher(config.APIConfig{ProxyURL: "://bad"}, &recipe.Plan{Fetch: recipe.FetchDirect}, nil)
	assert.Error(t, err)
}

func TestBreakerNote(t *testing.T) {
	assert.Empty(t, breakerNote(nil))

	breaker := newBreaker(config.BreakerConfig{FailureThreshold: 2, ResetTimeoutSecs: 60})
	assert.Empty(t, breakerNote(breaker))

	for i := 0; i < 2; i++ {
		_, _ = resilience.Guard(context.Background(), breaker, func(context.Context) (struct{}, error) {
			return struct{}{}, resilience.NewTransientError(errors.New("upstream 503"), 503)
		})
	}
	assert.Equal(t, "circuit breaker open after 2 consecutive failures", breakerNote(breaker))
}

func TestCollectConfig_NoPlan(t *testing.T) {
	got := collectConfig(testCollectConfig(), nil, 0, 0)
	assert.Equal(t, 5, got.MaxSteps)
	assert.Empty(t, got.Name)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	_, err := initStore(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

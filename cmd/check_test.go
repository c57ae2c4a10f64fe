package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjrizani/zyte-api-training/internal/config"
)

func checkConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "recipes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRecipes), 0o644))

	c := &config.Config{}
	c.API.Key = "KEY"
	c.Collect = testCollectConfig()
	c.Collect.Concurrency = 1
	c.Store = config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "runs.db")}
	c.Recipes.Path = path
	return c
}

func failed(results []checkResult) []string {
	var names []string
	for _, r := range results {
		if r.Err != nil {
			names = append(names, r.Name)
		}
	}
	return names
}

func TestRunChecks_AllPass(t *testing.T) {
	results := runChecks(context.Background(), checkConfig(t))
	assert.Empty(t, failed(results))

	var buf bytes.Buffer
	assert.True(t, printChecks(&buf, results))
	assert.Contains(t, buf.String(), "ok    recipes: 2 recipes in")
	assert.Contains(t, buf.String(), "ok    store: sqlite")
	assert.Contains(t, buf.String(), "ok    retry budget: 2 attempts per step, up to 1ms backoff per step, 5ms per 5-step run")
}

func TestRunChecks_MissingKeyAndRecipes(t *testing.T) {
	c := checkConfig(t)
	c.API.Key = ""
	c.Recipes.Path = filepath.Join(t.TempDir(), "missing.yaml")

	results := runChecks(context.Background(), c)
	assert.ElementsMatch(t, []string{"api key", "config", "recipes"}, failed(results))
}

func TestPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	ok := printChecks(&buf, []checkResult{
		{Name: "api key", Info: "configured"},
		{Name: "store", Err: errors.New("connection refused")},
	})
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "ok    api key: configured")
	assert.Contains(t, buf.String(), "FAIL  store: connection refused")
}

package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rjrizani/zyte-api-training/internal/config"
	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/recipe"
	"github.com/rjrizani/zyte-api-training/internal/store"
)

const testRecipes = `
recipes:
  - name: quotes
    start_url: https://quotes.toscrape.com/page/1/
    mode: link
    extract:
      kind: html
      items: .quote
      fields:
        - {name: text, selector: .text, strip_quotes: true, required: true}
        - {name: author, selector: .author}
      next: li.next a
    key: [text, author]
    max_steps: 5

  - name: quotes-search
    start_url: https://quotes.toscrape.com/search?author={author}
    mode: single
    extract:
      kind: html
      items: .quote
      fields:
        - {name: text, selector: .text, required: true}
        - {name: author, selector: .author}
    key: [text]
`

// sitePages maps locators to HTML; unknown locators fail permanently.
type sitePages struct {
	mu    sync.Mutex
	pages map[string]string
	seen  []string
}

func (s *sitePages) Fetch(_ context.Context, req model.Request) (*model.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, req.Locator)
	html, ok := s.pages[req.Locator]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return &model.Page{URL: req.Locator, StatusCode: 200, HTML: html}, nil
}

func quotePage(next string, quotes ...[2]string) string {
	html := "<html><body>"
	for _, q := range quotes {
		html += `<div class="quote"><span class="text">“` + q[0] + `”</span><small class="author">` + q[1] + `</small></div>`
	}
	if next != "" {
		html += `<ul class="pager"><li class="next"><a href="` + next + `">Next</a></li></ul>`
	}
	return html + "</body></html>"
}

func testBook(t *testing.T) *recipe.Book {
	t.Helper()
	book, err := recipe.Parse([]byte(testRecipes))
	require.NoError(t, err)
	return book
}

func testPlan(t *testing.T, name string, params map[string]string) (*recipe.Recipe, *recipe.Plan) {
	t.Helper()
	r, err := testBook(t).Get(name)
	require.NoError(t, err)
	r, err = r.Expand(params)
	require.NoError(t, err)
	plan, err := r.Build()
	require.NoError(t, err)
	return r, plan
}

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := openStore(context.Background(), config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "runs.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testCollectConfig() config.CollectConfig {
	return config.CollectConfig{
		MaxSteps:         5,
		MaxRetries:       2,
		InitialBackoffMs: 1,
		MaxBackoffMs:     2,
		Multiplier:       2,
	}
}

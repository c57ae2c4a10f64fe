package recipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjrizani/zyte-api-training/internal/collect"
	"github.com/rjrizani/zyte-api-training/internal/extract"
	"github.com/rjrizani/zyte-api-training/internal/fetch"
	"github.com/rjrizani/zyte-api-training/internal/model"
)

func loadBook(t *testing.T) *Book {
	t.Helper()
	b, err := Load("testdata/recipes.yaml")
	require.NoError(t, err)
	return b
}

func TestLoad(t *testing.T) {
	b := loadBook(t)

	names := make([]string, 0)
	for _, r := range b.List() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"nike-products", "nike-wall", "quotes", "quotes-api", "quotes-scroll", "quotes-search"}, names)

	r, err := b.Get("quotes-scroll")
	require.NoError(t, err)
	assert.Equal(t, ModeScroll, r.Mode)
	assert.Equal(t, time.Second, r.Scroll.Wait)

	_, err = b.Get("missing")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "invalid yaml", yaml: "recipes: ["},
		{name: "no name", yaml: "recipes:\n  - start_url: https://x.example\n"},
		{name: "duplicate", yaml: "recipes:\n  - name: a\n  - name: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestBuild_Link(t *testing.T) {
	r, err := loadBook(t).Get("quotes")
	require.NoError(t, err)

	p, err := r.Build()
	require.NoError(t, err)

	assert.Equal(t, "quotes", p.Name)
	assert.Equal(t, "https://quotes.toscrape.com/", p.Initial.Locator)
	assert.Equal(t, []model.Action{{Kind: model.ActionWaitForSelector, Selector: ".quote"}}, p.Initial.Actions)
	assert.Equal(t, 10, p.MaxSteps)
	assert.Equal(t, FetchBrowser, p.Fetch)
	assert.Equal(t, fetch.ModeBrowser, p.Zyte.Mode)

	adv, ok := p.Advancer.(collect.LinkAdvancer)
	require.True(t, ok)
	assert.Equal(t, p.Initial.Actions, adv.Actions)

	h, ok := p.Extractor.(*extract.HTML)
	require.True(t, ok)
	assert.Equal(t, ".quote", h.ItemSelector)
	assert.Equal(t, "li.next a", h.NextSelector)
	require.Len(t, h.Fields, 3)
	assert.True(t, h.Fields[0].StripQuotes)
	assert.True(t, h.Fields[2].Multi)

	k, err := p.Key(model.Record{"text": "t", "author": "a"})
	require.NoError(t, err)
	assert.NotEmpty(t, k)
}

func TestBuild_Scroll(t *testing.T) {
	r, err := loadBook(t).Get("quotes-scroll")
	require.NoError(t, err)
	p, err := r.Build()
	require.NoError(t, err)

	adv, ok := p.Advancer.(collect.ScrollAdvancer)
	require.True(t, ok)
	assert.Equal(t, ".quote:last-child", adv.Target)
	assert.Equal(t, time.Second, adv.Wait)
}

func TestBuild_CaptureJSON(t *testing.T) {
	r, err := loadBook(t).Get("quotes-api")
	require.NoError(t, err)
	p, err := r.Build()
	require.NoError(t, err)

	_, ok := p.Advancer.(collect.SingleAdvancer)
	assert.True(t, ok)
	require.NotNil(t, p.Zyte.Capture)
	assert.Equal(t, "/api/quotes", p.Zyte.Capture.Filter)

	j, ok := p.Extractor.(*extract.JSON)
	require.True(t, ok)
	assert.Equal(t, "quotes", j.RecordsPath)
	assert.True(t, j.CaptureMeta)
	assert.Equal(t, 1, j.PageStart)
	assert.Equal(t, []model.Action{{Kind: model.ActionScrollBottom}}, p.Initial.Actions)
}

func TestBuild_Direct(t *testing.T) {
	r, err := loadBook(t).Get("nike-wall")
	require.NoError(t, err)
	r, err = r.Expand(nil)
	require.NoError(t, err)
	p, err := r.Build()
	require.NoError(t, err)

	assert.Equal(t, FetchDirect, p.Fetch)
	assert.Equal(t, "https://www.nike.com/", p.Headers["Referer"])
	assert.Contains(t, p.Initial.Locator, "path=/in/w/mens-shoes-nik1zy7ok")
}

func TestBuild_ProductList(t *testing.T) {
	r, err := loadBook(t).Get("nike-products")
	require.NoError(t, err)
	r, err = r.Expand(nil)
	require.NoError(t, err)
	p, err := r.Build()
	require.NoError(t, err)

	assert.Equal(t, FetchBrowser, p.Fetch)
	require.NotNil(t, p.Zyte.ProductList)
	assert.Equal(t, "browserHtml", p.Zyte.ProductList.ExtractFrom)
	assert.Equal(t, "https://www.nike.com/in/w/mens-shoes-nik1zy7ok", p.Initial.Locator)

	j, ok := p.Extractor.(*extract.JSON)
	require.True(t, ok)
	assert.Equal(t, "products", j.RecordsPath)
}

func TestBuild_ProductListOverHTTP(t *testing.T) {
	r := &Recipe{
		Name:        "shop",
		StartURL:    "https://shop.example/",
		Fetch:       FetchHTTP,
		ProductList: &ProductListConfig{},
		Extract:     ExtractConfig{Kind: "json", Items: "products"},
		Key:         []string{"url"},
	}
	p, err := r.Build()
	require.NoError(t, err)
	require.NotNil(t, p.Zyte.ProductList)
	assert.Equal(t, "httpResponseBody", p.Zyte.ProductList.ExtractFrom)
}

func TestValidate(t *testing.T) {
	valid := func() *Recipe {
		return &Recipe{
			Name:     "r",
			StartURL: "https://quotes.toscrape.com/",
			Extract:  ExtractConfig{Items: ".quote", Fields: []FieldConfig{{Name: "text", Selector: ".text"}}},
			Key:      []string{"text"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(r *Recipe)
	}{
		{name: "no start url", mutate: func(r *Recipe) { r.StartURL = "" }},
		{name: "bad mode", mutate: func(r *Recipe) { r.Mode = "teleport" }},
		{name: "scroll without target", mutate: func(r *Recipe) { r.Mode = ModeScroll }},
		{name: "bad fetch", mutate: func(r *Recipe) { r.Fetch = "carrier-pigeon" }},
		{name: "no key", mutate: func(r *Recipe) { r.Key = nil }},
		{name: "no fields", mutate: func(r *Recipe) { r.Extract.Fields = nil }},
		{name: "no items", mutate: func(r *Recipe) { r.Extract.Items = "" }},
		{name: "bad kind", mutate: func(r *Recipe) { r.Extract.Kind = "xml" }},
		{name: "click without selector", mutate: func(r *Recipe) {
			r.Actions = []model.Action{{Kind: model.ActionClick}}
		}},
		{name: "select without values", mutate: func(r *Recipe) {
			r.Actions = []model.Action{{Kind: model.ActionSelect, Selector: "#author"}}
		}},
		{name: "wait without duration", mutate: func(r *Recipe) {
			r.Actions = []model.Action{{Kind: model.ActionWait}}
		}},
		{name: "product list with html extract", mutate: func(r *Recipe) {
			r.ProductList = &ProductListConfig{}
		}},
		{name: "product list over direct fetch", mutate: func(r *Recipe) {
			r.Fetch = FetchDirect
			r.Extract.Kind = "json"
			r.ProductList = &ProductListConfig{}
		}},
		{name: "product list bad source", mutate: func(r *Recipe) {
			r.Extract.Kind = "json"
			r.ProductList = &ProductListConfig{ExtractFrom: "screenshot"}
		}},
		{name: "unknown action", mutate: func(r *Recipe) {
			r.Actions = []model.Action{{Kind: "hover", Selector: "a"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			assert.Error(t, r.Validate())
			_, err := r.Build()
			assert.Error(t, err)
		})
	}
}

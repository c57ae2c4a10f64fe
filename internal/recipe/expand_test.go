package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholders(t *testing.T) {
	r, err := loadBook(t).Get("quotes-search")
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "tag"}, r.Placeholders())

	r, err = loadBook(t).Get("quotes")
	require.NoError(t, err)
	assert.Empty(t, r.Placeholders())
}

func TestExpand(t *testing.T) {
	r, err := loadBook(t).Get("quotes-search")
	require.NoError(t, err)

	out, err := r.Expand(map[string]string{"author": "Albert Einstein"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Albert Einstein"}, out.Actions[0].Values)
	assert.Equal(t, `[value="world"]`, out.Actions[1].Selector, "recipe default fills tag")
	assert.Equal(t, []string{"world"}, out.Actions[2].Values)
	assert.Equal(t, "world", out.Params["tag"])

	// The source recipe is untouched.
	assert.Equal(t, []string{"{author}"}, r.Actions[0].Values)
	assert.Equal(t, `[value="{tag}"]`, r.Actions[1].Selector)
}

func TestExpand_URLIsEscaped(t *testing.T) {
	r := &Recipe{Name: "jobs", StartURL: "https://jobs.example.com/search?q={query}&loc={location}"}
	out, err := r.Expand(map[string]string{"query": "go developer", "location": "São Paulo"})
	require.NoError(t, err)
	assert.Equal(t, "https://jobs.example.com/search?q=go+developer&loc=S%C3%A3o+Paulo", out.StartURL)
}

func TestExpand_MissingParam(t *testing.T) {
	r, err := loadBook(t).Get("quotes-search")
	require.NoError(t, err)
	_, err = r.Expand(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "author")
}

func TestParseParams(t *testing.T) {
	got, err := ParseParams("author=Albert Einstein, tag=world")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"author": "Albert Einstein", "tag": "world"}, got)

	got, err = ParseParams("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseParams("author")
	assert.Error(t, err)
	_, err = ParseParams("=x")
	assert.Error(t, err)
}

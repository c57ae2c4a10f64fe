// Package recipe loads collection recipes from YAML and turns them into
// runnable plans.
package recipe

import (
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/rjrizani/zyte-api-training/internal/model"
)

// Mode is how a recipe moves from one page to the next.
type Mode string

const (
	ModeLink   Mode = "link"   // follow next-page links
	ModeScroll Mode = "scroll" // scroll the same page
	ModeSingle Mode = "single" // one page only
)

// Fetch strategies.
const (
	FetchBrowser = "browser"
	FetchHTTP    = "http"
	FetchDirect  = "direct"
)

// Recipe describes one collection target.
type Recipe struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	StartURL    string             `yaml:"start_url"`
	Mode        Mode               `yaml:"mode"`
	Fetch       string             `yaml:"fetch"`
	WaitFor     string             `yaml:"wait_for"`
	Headers     map[string]string  `yaml:"headers"`
	Actions     []model.Action     `yaml:"actions"`
	Scroll      ScrollConfig       `yaml:"scroll"`
	Capture     *CaptureConfig     `yaml:"capture,omitempty"`
	ProductList *ProductListConfig `yaml:"product_list,omitempty"`
	Extract     ExtractConfig      `yaml:"extract"`
	Key         []string           `yaml:"key"`
	MaxSteps    int                `yaml:"max_steps"`
	Params      map[string]string  `yaml:"params"`
}

// ScrollConfig configures infinite scroll.
type ScrollConfig struct {
	Target     string        `yaml:"target"`
	Wait       time.Duration `yaml:"wait"`
	MaxActions int           `yaml:"max_actions"`
}

// CaptureConfig selects network responses to record.
type CaptureConfig struct {
	Filter string `yaml:"filter"`
	Match  string `yaml:"match"`
}

// ProductListConfig turns on Zyte's automatic product list extraction. The
// result is handed to a json extractor as the page body.
type ProductListConfig struct {
	// ExtractFrom is "browserHtml" or "httpResponseBody".
	ExtractFrom string `yaml:"extract_from"`
}

// ExtractConfig configures the extractor.
type ExtractConfig struct {
	Kind   string        `yaml:"kind"` // "html" or "json"
	Items  string        `yaml:"items"`
	Fields []FieldConfig `yaml:"fields"`

	// html
	Next     string `yaml:"next"`
	NextAttr string `yaml:"next_attr"`

	// json
	NextPath    string `yaml:"next_path"`
	PageParam   string `yaml:"page_param"`
	PageStep    int    `yaml:"page_step"`
	PageStart   *int   `yaml:"page_start"`
	CaptureMeta bool   `yaml:"capture_meta"`
}

// FieldConfig maps one record field.
type FieldConfig struct {
	Name        string `yaml:"name"`
	Selector    string `yaml:"selector"`
	Path        string `yaml:"path"`
	Attr        string `yaml:"attr"`
	Multi       bool   `yaml:"multi"`
	StripQuotes bool   `yaml:"strip_quotes"`
	Absolute    bool   `yaml:"absolute"`
	Required    bool   `yaml:"required"`
}

// Book is a set of recipes keyed by name.
type Book struct {
	recipes map[string]*Recipe
}

// Load reads a recipe file. The YAML has a top-level "recipes" list.
func Load(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "recipe: read %s", path)
	}
	return Parse(data)
}

// Parse decodes recipe YAML.
func Parse(data []byte) (*Book, error) {
	var wrapper struct {
		Recipes []*Recipe `yaml:"recipes"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "recipe: parse")
	}

	b := &Book{recipes: make(map[string]*Recipe, len(wrapper.Recipes))}
	for i, r := range wrapper.Recipes {
		if r.Name == "" {
			return nil, eris.Errorf("recipe: entry %d has no name", i)
		}
		if _, dup := b.recipes[r.Name]; dup {
			return nil, eris.Errorf("recipe: duplicate name %q", r.Name)
		}
		b.recipes[r.Name] = r
	}
	return b, nil
}

// Get returns the named recipe.
func (b *Book) Get(name string) (*Recipe, error) {
	r, ok := b.recipes[name]
	if !ok {
		return nil, eris.Errorf("recipe: %q not found", name)
	}
	return r, nil
}

// List returns all recipes sorted by name.
func (b *Book) List() []*Recipe {
	out := make([]*Recipe, 0, len(b.recipes))
	for _, r := range b.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

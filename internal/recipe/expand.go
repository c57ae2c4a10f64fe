package recipe

import (
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/rjrizani/zyte-api-training/internal/model"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the sorted parameter names the recipe refers to.
func (r *Recipe) Placeholders() []string {
	seen := make(map[string]bool)
	scan := func(s string) {
		for _, m := range placeholder.FindAllStringSubmatch(s, -1) {
			seen[m[1]] = true
		}
	}
	scan(r.StartURL)
	for _, a := range r.Actions {
		scan(a.Selector)
		scan(a.Text)
		for _, v := range a.Values {
			scan(v)
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Expand returns a copy of r with {param} placeholders replaced. Values in
// the start URL are query-escaped; values in actions are used verbatim.
// Recipe defaults apply to params not given.
func (r *Recipe) Expand(params map[string]string) (*Recipe, error) {
	merged := make(map[string]string, len(r.Params)+len(params))
	for k, v := range r.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	var missing []string
	for _, name := range r.Placeholders() {
		if _, ok := merged[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("recipe %s: missing params %s", r.Name, strings.Join(missing, ", "))
	}

	out := *r
	out.Params = merged
	out.StartURL = substitute(r.StartURL, merged, url.QueryEscape)
	out.Actions = make([]model.Action, len(r.Actions))
	for i, a := range r.Actions {
		a.Selector = substitute(a.Selector, merged, nil)
		a.Text = substitute(a.Text, merged, nil)
		a.Values = slices.Clone(a.Values)
		for j, v := range a.Values {
			a.Values[j] = substitute(v, merged, nil)
		}
		out.Actions[i] = a
	}
	return &out, nil
}

func substitute(s string, params map[string]string, escape func(string) string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		v := params[m[1:len(m)-1]]
		if escape != nil {
			v = escape(v)
		}
		return v
	})
}

// ParseParams parses "k=v,k=v" into a map.
func ParseParams(s string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, eris.Errorf("recipe: bad param %q, want key=value", pair)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

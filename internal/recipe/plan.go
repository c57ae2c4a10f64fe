package recipe

import (
	"net/url"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/rjrizani/zyte-api-training/internal/collect"
	"github.com/rjrizani/zyte-api-training/internal/extract"
	"github.com/rjrizani/zyte-api-training/internal/fetch"
	"github.com/rjrizani/zyte-api-training/internal/model"
)

// Plan is a validated recipe ready to run.
type Plan struct {
	Name      string
	Initial   model.Request
	Extractor collect.Extractor[model.Record]
	Advancer  collect.Advancer
	Key       collect.KeyFunc[model.Record, string]
	// MaxSteps is the recipe's step bound; zero means use the configured default.
	MaxSteps int
	Fetch    string
	Zyte     fetch.ZyteOptions
	Headers  map[string]string
}

// Validate reports the first problem that would stop the recipe from
// building.
func (r *Recipe) Validate() error {
	if r.StartURL == "" {
		return eris.Errorf("recipe %s: start_url is required", r.Name)
	}
	if _, err := url.Parse(r.StartURL); err != nil {
		return eris.Wrapf(err, "recipe %s: start_url", r.Name)
	}
	switch r.Mode {
	case "", ModeLink, ModeScroll, ModeSingle:
	default:
		return eris.Errorf("recipe %s: unknown mode %q", r.Name, r.Mode)
	}
	if r.Mode == ModeScroll && r.Scroll.Target == "" {
		return eris.Errorf("recipe %s: scroll mode needs scroll.target", r.Name)
	}
	switch r.Fetch {
	case "", FetchBrowser, FetchHTTP, FetchDirect:
	default:
		return eris.Errorf("recipe %s: unknown fetch strategy %q", r.Name, r.Fetch)
	}
	if len(r.Key) == 0 {
		return eris.Errorf("recipe %s: key needs at least one field", r.Name)
	}
	if len(r.Extract.Fields) == 0 && r.Extract.Kind != "json" {
		return eris.Errorf("recipe %s: extract.fields is required", r.Name)
	}
	switch r.Extract.Kind {
	case "", "html":
		if r.Extract.Items == "" {
			return eris.Errorf("recipe %s: extract.items is required", r.Name)
		}
	case "json":
	default:
		return eris.Errorf("recipe %s: unknown extract kind %q", r.Name, r.Extract.Kind)
	}
	if pl := r.ProductList; pl != nil {
		if r.Fetch == FetchDirect {
			return eris.Errorf("recipe %s: product_list needs the Zyte API, not direct fetch", r.Name)
		}
		if r.Extract.Kind != "json" {
			return eris.Errorf("recipe %s: product_list needs extract.kind json", r.Name)
		}
		switch pl.ExtractFrom {
		case "", "browserHtml", "httpResponseBody":
		default:
			return eris.Errorf("recipe %s: unknown product_list.extract_from %q", r.Name, pl.ExtractFrom)
		}
	}
	for _, a := range r.Actions {
		if err := validateAction(a); err != nil {
			return eris.Wrapf(err, "recipe %s", r.Name)
		}
	}
	return nil
}

func validateAction(a model.Action) error {
	switch a.Kind {
	case model.ActionWaitForSelector, model.ActionScrollTo, model.ActionClick, model.ActionType:
		if a.Selector == "" {
			return eris.Errorf("action %s needs a selector", a.Kind)
		}
	case model.ActionSelect:
		if a.Selector == "" || len(a.Values) == 0 {
			return eris.Errorf("action select needs a selector and values")
		}
	case model.ActionWait:
		if a.Wait <= 0 {
			return eris.New("action wait needs a positive wait")
		}
	case model.ActionScrollBottom:
	default:
		return eris.Errorf("unknown action %q", a.Kind)
	}
	return nil
}

// Build validates r and assembles its Plan.
func (r *Recipe) Build() (*Plan, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	// Per-page actions: the wait-for selector, then any scripted steps.
	var actions []model.Action
	if r.WaitFor != "" {
		actions = append(actions, model.Action{Kind: model.ActionWaitForSelector, Selector: r.WaitFor})
	}
	actions = append(actions, r.Actions...)

	p := &Plan{
		Name:     r.Name,
		Initial:  model.Request{Locator: r.StartURL, Actions: slices.Clone(actions)},
		Key:      extract.Key(r.Key...),
		MaxSteps: r.MaxSteps,
		Fetch:    r.Fetch,
		Headers:  r.Headers,
	}
	if p.Fetch == "" {
		p.Fetch = FetchBrowser
	}

	switch r.Mode {
	case ModeScroll:
		p.Advancer = collect.ScrollAdvancer{Target: r.Scroll.Target, Wait: r.Scroll.Wait, MaxActions: r.Scroll.MaxActions}
	case ModeSingle:
		p.Advancer = collect.SingleAdvancer{}
	default:
		p.Advancer = collect.LinkAdvancer{Actions: actions}
	}

	p.Zyte = fetch.ZyteOptions{Mode: fetch.ModeBrowser, Headers: r.Headers}
	if p.Fetch == FetchHTTP {
		p.Zyte.Mode = fetch.ModeHTTP
	}
	if r.Capture != nil {
		p.Zyte.Capture = &fetch.Capture{Filter: r.Capture.Filter, Match: r.Capture.Match}
	}
	if r.ProductList != nil {
		from := r.ProductList.ExtractFrom
		if from == "" && p.Fetch == FetchHTTP {
			from = "httpResponseBody"
		}
		p.Zyte.ProductList = &fetch.ProductList{ExtractFrom: from}
	}

	p.Extractor = r.buildExtractor()
	return p, nil
}

func (r *Recipe) buildExtractor() collect.Extractor[model.Record] {
	x := r.Extract
	if x.Kind == "json" {
		j := &extract.JSON{
			RecordsPath: x.Items,
			NextPath:    x.NextPath,
			PageParam:   x.PageParam,
			PageStep:    x.PageStep,
			PageStart:   1,
			CaptureMeta: x.CaptureMeta,
		}
		if x.PageStart != nil {
			j.PageStart = *x.PageStart
		}
		for _, f := range x.Fields {
			path := f.Path
			if path == "" {
				path = f.Name
			}
			j.Fields = append(j.Fields, extract.JSONField{Name: f.Name, Path: path, Required: f.Required})
		}
		return j
	}

	h := &extract.HTML{ItemSelector: x.Items, NextSelector: x.Next, NextAttr: x.NextAttr}
	for _, f := range x.Fields {
		h.Fields = append(h.Fields, extract.Field{
			Name:        f.Name,
			Selector:    f.Selector,
			Attr:        f.Attr,
			Multi:       f.Multi,
			StripQuotes: f.StripQuotes,
			Absolute:    f.Absolute,
			Required:    f.Required,
		})
	}
	return h
}

// Package fetch implements collect.Fetcher on top of the Zyte API and plain
// HTTP.
package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/resilience"
	"github.com/rjrizani/zyte-api-training/pkg/zyte"
)

// Mode selects which Zyte output a fetch requests.
type Mode string

const (
	// ModeBrowser renders the page and returns browserHtml.
	ModeBrowser Mode = "browser"
	// ModeHTTP downloads the raw response body without rendering.
	ModeHTTP Mode = "http"
)

// Capture selects background responses to record while rendering.
type Capture struct {
	// Filter is matched against response URLs.
	Filter string
	// Match is "contains" (default), "startsWith" or "exact".
	Match string
}

// ProductList asks Zyte for automatic product list extraction.
type ProductList struct {
	// ExtractFrom is "browserHtml" or "httpResponseBody". Empty lets Zyte pick.
	ExtractFrom string
}

// ZyteOptions configures a Zyte fetcher.
type ZyteOptions struct {
	Mode        Mode
	Capture     *Capture
	ProductList *ProductList
	JavaScript  *bool
	Headers     map[string]string
}

// Zyte fetches pages through the Zyte API extract endpoint.
type Zyte struct {
	client zyte.Client
	opts   ZyteOptions
}

// NewZyte creates a Zyte fetcher.
func NewZyte(client zyte.Client, opts ZyteOptions) *Zyte {
	if opts.Mode == "" {
		opts.Mode = ModeBrowser
	}
	return &Zyte{client: client, opts: opts}
}

// Fetch implements collect.Fetcher.
func (z *Zyte) Fetch(ctx context.Context, req model.Request) (*model.Page, error) {
	zr := z.buildRequest(req)

	resp, err := z.client.Extract(ctx, zr)
	if err != nil {
		return nil, classify(err)
	}

	page := &model.Page{
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		HTML:       resp.BrowserHTML,
	}
	if page.URL == "" {
		page.URL = req.Locator
	}

	if page.Body, err = resp.Body(); err != nil {
		return nil, err
	}
	// Raw HTML downloads go where the HTML extractor looks for them.
	if page.HTML == "" && len(page.Body) > 0 && !gjson.ValidBytes(page.Body) {
		page.HTML = string(page.Body)
	}
	if len(resp.ProductList) > 0 && len(page.Body) == 0 {
		page.Body = []byte(resp.ProductList)
	}
	for _, nc := range resp.NetworkCapture {
		body, err := nc.Body()
		if err != nil {
			return nil, eris.Wrapf(err, "fetch: capture %s", nc.URL)
		}
		page.Captures = append(page.Captures, model.Capture{
			URL:    nc.URL,
			Method: nc.Method,
			Status: nc.StatusCode,
			Body:   body,
		})
	}
	return page, nil
}

func (z *Zyte) buildRequest(req model.Request) zyte.ExtractRequest {
	zr := zyte.ExtractRequest{
		URL:        req.Locator,
		JavaScript: z.opts.JavaScript,
	}
	switch {
	case z.opts.ProductList != nil:
		zr.ProductList = true
		if from := z.opts.ProductList.ExtractFrom; from != "" {
			zr.ProductListOptions = &zyte.ProductListOptions{ExtractFrom: from}
		}
		if z.opts.ProductList.ExtractFrom != "httpResponseBody" {
			zr.Actions = toZyteActions(req.Actions)
		}
	case z.opts.Mode == ModeHTTP:
		zr.HTTPResponseBody = true
	default:
		zr.BrowserHTML = true
		zr.Actions = toZyteActions(req.Actions)
	}
	if c := z.opts.Capture; c != nil && c.Filter != "" {
		match := c.Match
		if match == "" {
			match = "contains"
		}
		zr.NetworkCapture = []zyte.NetworkCaptureFilter{{
			FilterType:       "url",
			Value:            c.Filter,
			MatchType:        match,
			HTTPResponseBody: true,
		}}
	}
	for name, value := range z.opts.Headers {
		zr.CustomHTTPHeaders = append(zr.CustomHTTPHeaders, zyte.Header{Name: name, Value: value})
	}
	return zr
}

func toZyteActions(actions []model.Action) []zyte.Action {
	if len(actions) == 0 {
		return nil
	}
	out := make([]zyte.Action, 0, len(actions))
	for _, a := range actions {
		za := zyte.Action{
			Action:  string(a.Kind),
			Timeout: a.Timeout.Seconds(),
		}
		switch a.Kind {
		case model.ActionWaitForSelector:
			za.Selector = &zyte.Selector{Type: "css", Value: a.Selector, State: a.State}
		case model.ActionScrollTo:
			za.Target = zyte.CSS(a.Selector)
		case model.ActionWait:
			za.Value = int(a.Wait / time.Millisecond)
		case model.ActionClick:
			za.Selector = zyte.CSS(a.Selector)
		case model.ActionSelect:
			za.Selector = zyte.CSS(a.Selector)
			za.Values = a.Values
		case model.ActionType:
			za.Selector = zyte.CSS(a.Selector)
			za.Text = a.Text
		case model.ActionScrollBottom:
			za.MaxScrollCount = a.MaxScrolls
			za.MaxScrollDelay = a.Wait.Seconds()
			za.MaxPageHeight = a.MaxPageHeight
		}
		out = append(out, za)
	}
	return out
}

// classify marks errors worth retrying as resilience.TransientError.
func classify(err error) error {
	var apiErr *zyte.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Temporary() {
			return resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return err
	}
	if resilience.IsTransient(err) {
		return resilience.NewTransientError(err, 0)
	}
	return err
}

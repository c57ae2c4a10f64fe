package fetch

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/resilience"
)

// DirectOptions configures the Direct fetcher.
type DirectOptions struct {
	// ProxyURL routes requests through a proxy, e.g. the Zyte API proxy
	// mode endpoint http://KEY:@api.zyte.com:8011.
	ProxyURL string
	// InsecureSkipVerify accepts the proxy's re-signed certificates.
	InsecureSkipVerify bool
	Headers            map[string]string
	Timeout            time.Duration
	// RatePerHost is the starting request rate per host. Default: 5/s.
	RatePerHost rate.Limit
}

// Direct fetches locators with a plain GET. Browser actions are ignored.
type Direct struct {
	client   *http.Client
	headers  map[string]string
	limiters *hostLimiters
}

// NewDirect creates a Direct fetcher.
func NewDirect(opts DirectOptions) (*Direct, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerHost == 0 {
		opts.RatePerHost = 5
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, eris.Wrap(err, "fetch: parse proxy url")
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &Direct{
		client:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		headers:  opts.Headers,
		limiters: newHostLimiters(opts.RatePerHost, 1),
	}, nil
}

// Fetch implements collect.Fetcher.
func (d *Direct) Fetch(ctx context.Context, req model.Request) (*model.Page, error) {
	if len(req.Actions) > 0 {
		zap.L().Debug("direct fetch ignores browser actions",
			zap.String("locator", req.Locator),
			zap.Int("actions", len(req.Actions)),
		)
	}

	lim := d.limiters.forURL(req.Locator)
	if err := lim.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter wait")
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Locator, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	for name, value := range d.headers {
		hreq.Header.Set(name, value)
	}

	resp, err := d.client.Do(hreq)
	if err != nil {
		return nil, classify(eris.Wrapf(err, "fetch: get %s", req.Locator))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(eris.Wrap(err, "fetch: read body"))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit()
	}
	if resp.StatusCode >= 400 {
		statusErr := eris.Errorf("fetch: http %d from %s", resp.StatusCode, req.Locator)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	lim.OnSuccess()

	page := &model.Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		page.HTML = string(body)
	}
	return page, nil
}

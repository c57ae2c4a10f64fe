// Package zyte provides a client for the Zyte API extract endpoint.
package zyte

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultEndpoint is the Zyte API extract endpoint.
const DefaultEndpoint = "https://api.zyte.com/v1/extract"

// Client defines the Zyte API operations.
type Client interface {
	// Extract renders or downloads a URL and returns the requested outputs.
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
}

// ExtractRequest is the body for POST /v1/extract.
type ExtractRequest struct {
	URL                string                 `json:"url"`
	BrowserHTML        bool                   `json:"browserHtml,omitempty"`
	HTTPResponseBody   bool                   `json:"httpResponseBody,omitempty"`
	JavaScript         *bool                  `json:"javascript,omitempty"`
	Actions            []Action               `json:"actions,omitempty"`
	NetworkCapture     []NetworkCaptureFilter `json:"networkCapture,omitempty"`
	ProductList        bool                   `json:"productList,omitempty"`
	ProductListOptions *ProductListOptions    `json:"productListOptions,omitempty"`
	CustomHTTPHeaders  []Header               `json:"customHttpRequestHeaders,omitempty"`
}

// Selector targets an element on the rendered page.
type Selector struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	State string `json:"state,omitempty"`
}

// CSS returns a CSS selector.
func CSS(value string) *Selector {
	return &Selector{Type: "css", Value: value}
}

// Action is one browser action executed before the page is captured.
type Action struct {
	Action   string    `json:"action"`
	Selector *Selector `json:"selector,omitempty"`
	Target   *Selector `json:"target,omitempty"`
	Values   []string  `json:"values,omitempty"`
	Text     string    `json:"text,omitempty"`

	// Value is the delay for "wait" actions, in milliseconds.
	Value int `json:"value,omitempty"`

	// Timeout is in seconds.
	Timeout float64 `json:"timeout,omitempty"`

	// scrollBottom knobs.
	MaxScrollCount int     `json:"maxScrollCount,omitempty"`
	MaxScrollDelay float64 `json:"maxScrollDelay,omitempty"`
	MaxPageHeight  int     `json:"maxPageHeight,omitempty"`
}

// NetworkCaptureFilter selects background responses to record while rendering.
type NetworkCaptureFilter struct {
	FilterType       string `json:"filterType"`
	Value            string `json:"value"`
	MatchType        string `json:"matchType,omitempty"`
	HTTPResponseBody bool   `json:"httpResponseBody,omitempty"`
}

// ProductListOptions tunes automatic product list extraction.
type ProductListOptions struct {
	ExtractFrom string `json:"extractFrom,omitempty"`
}

// Header is a custom HTTP request header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExtractResponse is the response from POST /v1/extract.
type ExtractResponse struct {
	URL              string           `json:"url"`
	StatusCode       int              `json:"statusCode"`
	BrowserHTML      string           `json:"browserHtml"`
	HTTPResponseBody string           `json:"httpResponseBody"`
	NetworkCapture   []NetworkCapture `json:"networkCapture"`
	ProductList      json.RawMessage  `json:"productList,omitempty"`
}

// Body decodes the base64 httpResponseBody.
func (r *ExtractResponse) Body() ([]byte, error) {
	return decodeBody(r.HTTPResponseBody)
}

// NetworkCapture is one recorded background response.
type NetworkCapture struct {
	URL              string `json:"url"`
	Method           string `json:"method"`
	StatusCode       int    `json:"statusCode"`
	HTTPResponseBody string `json:"httpResponseBody"`
}

// Body decodes the base64 httpResponseBody.
func (c NetworkCapture) Body() ([]byte, error) {
	return decodeBody(c.HTTPResponseBody)
}

func decodeBody(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, eris.Wrap(err, "zyte: decode httpResponseBody")
	}
	return b, nil
}

// APIError is returned when the Zyte API responds with a non-2xx status.
// Type, Title and Detail come from the problem+json body when present.
type APIError struct {
	StatusCode int
	Type       string
	Title      string
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("zyte: HTTP %d: %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("zyte: HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if sent again.
func (e *APIError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithEndpoint overrides the default extract endpoint.
func WithEndpoint(url string) Option {
	return func(c *httpClient) {
		c.endpoint = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewClient creates a new Zyte API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Extract(ctx context.Context, in ExtractRequest) (*ExtractResponse, error) {
	if in.URL == "" {
		return nil, eris.New("zyte: extract: url is required")
	}

	buf, err := json.Marshal(in)
	if err != nil {
		return nil, eris.Wrap(err, "zyte: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "zyte: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "zyte: extract %s", in.URL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zyte: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, data)
	}

	var out ExtractResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "zyte: decode response")
	}
	return &out, nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var problem struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &problem) == nil {
		apiErr.Type = problem.Type
		apiErr.Title = problem.Title
		apiErr.Detail = problem.Detail
	}
	return apiErr
}

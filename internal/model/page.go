package model

import "strings"

// Capture is a network response recorded while the page was rendered.
type Capture struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Status int    `json:"status"`
	Body   []byte `json:"body,omitempty"`
}

// Page is the raw content blob returned by a Fetcher for one step.
type Page struct {
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	HTML       string    `json:"html,omitempty"`
	Body       []byte    `json:"body,omitempty"`
	Captures   []Capture `json:"captures,omitempty"`
}

// Empty reports whether the page carries nothing an extractor could parse.
func (p *Page) Empty() bool {
	if p == nil {
		return true
	}
	if strings.TrimSpace(p.HTML) != "" || len(p.Body) > 0 {
		return false
	}
	for _, c := range p.Captures {
		if len(c.Body) > 0 {
			return false
		}
	}
	return true
}

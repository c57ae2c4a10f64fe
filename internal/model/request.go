package model

import (
	"slices"
	"time"
)

// ActionKind names a scripted browser action understood by the rendering service.
type ActionKind string

const (
	ActionWaitForSelector ActionKind = "waitForSelector"
	ActionScrollTo        ActionKind = "scrollTo"
	ActionScrollBottom    ActionKind = "scrollBottom"
	ActionWait            ActionKind = "wait"
	ActionClick           ActionKind = "click"
	ActionSelect          ActionKind = "select"
	ActionType            ActionKind = "type"
)

// Action is one step of browser state replayed before the page is captured.
type Action struct {
	Kind     ActionKind    `json:"kind" yaml:"kind"`
	Selector string        `json:"selector,omitempty" yaml:"selector"`
	State    string        `json:"state,omitempty" yaml:"state"` // e.g. "attached", "visible"
	Values   []string      `json:"values,omitempty" yaml:"values"`
	Text     string        `json:"text,omitempty" yaml:"text"`
	Wait     time.Duration `json:"wait,omitempty" yaml:"wait"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout"`

	// scrollBottom bounds.
	MaxScrolls    int `json:"max_scrolls,omitempty" yaml:"max_scrolls"`
	MaxPageHeight int `json:"max_page_height,omitempty" yaml:"max_page_height"`
}

// Request describes what to retrieve for a single step: a locator plus the
// accumulated actions needed to reproduce the browser session.
type Request struct {
	Locator string   `json:"locator"`
	Actions []Action `json:"actions,omitempty"`
}

// WithLocator returns a copy of r pointing at locator, with actions replaced.
func (r Request) WithLocator(locator string, actions []Action) Request {
	return Request{Locator: locator, Actions: slices.Clone(actions)}
}

// Append returns a copy of r with extra actions appended. The receiver's
// action slice is never shared with the result.
func (r Request) Append(actions ...Action) Request {
	next := make([]Action, 0, len(r.Actions)+len(actions))
	next = append(next, r.Actions...)
	next = append(next, actions...)
	return Request{Locator: r.Locator, Actions: next}
}

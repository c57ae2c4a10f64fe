package collect

import (
	"time"

	"github.com/rjrizani/zyte-api-training/internal/model"
)

// LinkAdvancer follows the next-page locator found by the extractor.
// Actions are the per-page browser actions replayed on every page.
type LinkAdvancer struct {
	Actions []model.Action
}

// Advance implements Advancer.
func (a LinkAdvancer) Advance(cur model.Request, next string) (model.Request, bool) {
	if next == "" || next == cur.Locator {
		return model.Request{}, false
	}
	return cur.WithLocator(next, a.Actions), true
}

// ScrollAdvancer stays on the same locator and appends a scroll plus a
// settle wait, so each request replays the whole session so far.
type ScrollAdvancer struct {
	// Target is the CSS selector scrolled into view, usually the last item.
	Target string
	// Wait is how long to let new content load after scrolling.
	Wait time.Duration
	// MaxActions caps the accumulated action list. Zero means no cap.
	MaxActions int
}

// Advance implements Advancer.
func (a ScrollAdvancer) Advance(cur model.Request, _ string) (model.Request, bool) {
	scroll := []model.Action{{Kind: model.ActionScrollTo, Selector: a.Target}}
	if a.Wait > 0 {
		scroll = append(scroll, model.Action{Kind: model.ActionWait, Wait: a.Wait})
	}
	if a.MaxActions > 0 && len(cur.Actions)+len(scroll) > a.MaxActions {
		return model.Request{}, false
	}
	return cur.Append(scroll...), true
}

// SingleAdvancer never advances: the run is one page.
type SingleAdvancer struct{}

// Advance implements Advancer.
func (SingleAdvancer) Advance(model.Request, string) (model.Request, bool) {
	return model.Request{}, false
}

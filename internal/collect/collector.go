// Package collect drives incremental collection runs: fetch a page, extract
// candidate records, keep the ones not seen before, and advance to the next
// page until a bound or a stop condition ends the run.
package collect

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/resilience"
)

// Reason is why a run stopped.
type Reason string

const (
	// StepLimitReached means MaxSteps fetch+extract cycles completed.
	StepLimitReached Reason = "step_limit_reached"
	// NoNextLocator means the advancer had nowhere further to go.
	NoNextLocator Reason = "no_next_locator"
	// NoNewRecords means a step produced no record that was not already seen.
	NoNewRecords Reason = "no_new_records"
	// EmptyContent means the fetcher succeeded but returned nothing to parse.
	EmptyContent Reason = "empty_content"
	// RetriesExhausted means a step's fetch failed on every allowed attempt.
	RetriesExhausted Reason = "retries_exhausted"
)

// Fetcher retrieves the raw content for one request. Implementations apply
// their own timeout and must not retry internally.
type Fetcher interface {
	Fetch(ctx context.Context, req model.Request) (*model.Page, error)
}

// Extraction is the result of parsing one page.
type Extraction[R any] struct {
	Records []R
	// Next is the locator of the following page, empty when there is none.
	Next string
	// Skipped counts candidates dropped because they were malformed.
	Skipped int
}

// Extractor parses a page into candidate records. It performs no I/O.
type Extractor[R any] interface {
	Extract(page *model.Page) Extraction[R]
}

// KeyFunc projects a record onto its identity key. An error means the
// record has no usable identity and is skipped.
type KeyFunc[R any, K comparable] func(R) (K, error)

// Advancer derives the next request from the current one and the locator
// the extractor found. It reports false when the run cannot continue.
type Advancer interface {
	Advance(cur model.Request, next string) (model.Request, bool)
}

// Config bounds a run.
type Config struct {
	// Name labels log lines for this collector.
	Name string
	// MaxSteps is the maximum number of fetch+extract cycles.
	MaxSteps int
	// Retry is applied to every fetch. Retry.MaxAttempts is the total number
	// of attempts per step.
	Retry resilience.Policy
	// StepDelay is the minimum spacing between step starts.
	StepDelay time.Duration
}

// Result is the outcome of a run. Records are in first-seen order.
type Result[R any] struct {
	Records  []R
	Reason   Reason
	Steps    int
	Attempts int
	Skipped  int
	// LastFailure summarises the fetch error that ended a RetriesExhausted run.
	LastFailure string
}

// Collector runs incremental collections. A Collector holds no per-run
// state, so one value may serve concurrent runs if its Fetcher allows it.
type Collector[R any, K comparable] struct {
	fetcher   Fetcher
	extractor Extractor[R]
	key       KeyFunc[R, K]
	advancer  Advancer
	cfg       Config
}

// New creates a Collector.
func New[R any, K comparable](f Fetcher, e Extractor[R], key KeyFunc[R, K], adv Advancer, cfg Config) *Collector[R, K] {
	return &Collector[R, K]{
		fetcher:   f,
		extractor: e,
		key:       key,
		advancer:  adv,
		cfg:       cfg,
	}
}

// WithAdvancer returns a copy of c that advances with adv.
func (c *Collector[R, K]) WithAdvancer(adv Advancer) *Collector[R, K] {
	cp := *c
	cp.advancer = adv
	return &cp
}

func (c *Collector[R, K]) validate() error {
	switch {
	case c.fetcher == nil:
		return eris.New("collect: fetcher is required")
	case c.extractor == nil:
		return eris.New("collect: extractor is required")
	case c.key == nil:
		return eris.New("collect: key func is required")
	case c.advancer == nil:
		return eris.New("collect: advancer is required")
	case c.cfg.MaxSteps < 1:
		return eris.Errorf("collect: max steps must be at least 1, got %d", c.cfg.MaxSteps)
	case c.cfg.Retry.MaxAttempts < 1:
		return eris.Errorf("collect: max retries must be at least 1, got %d", c.cfg.Retry.MaxAttempts)
	}
	return nil
}

// Run collects starting from initial. It always returns the records
// accepted so far together with the reason the run stopped; the error is
// non-nil only when the collector is misconfigured.
func (c *Collector[R, K]) Run(ctx context.Context, initial model.Request) (*Result[R], error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("collector", c.cfg.Name),
		zap.String("start", initial.Locator),
	)

	st := newState[R, K]()
	policy := c.cfg.Retry
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.RetryLogger("collect", "fetch")
	}

	var pacer *rate.Limiter
	if c.cfg.StepDelay > 0 {
		pacer = rate.NewLimiter(rate.Every(c.cfg.StepDelay), 1)
	}

	req := initial
	for st.step < c.cfg.MaxSteps {
		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				st.lastFailure = err.Error()
				return c.finish(log, st, RetriesExhausted), nil
			}
		}
		st.step++

		out := c.step(ctx, st, policy, req)
		switch out.Kind {
		case OutcomeFailure:
			st.lastFailure = out.Err.Error()
			log.Warn("fetch failed",
				zap.Int("step", st.step),
				zap.String("locator", req.Locator),
				zap.String("class", resilience.Classify(out.Err)),
				zap.Error(out.Err),
			)
			return c.finish(log, st, RetriesExhausted), nil
		case OutcomeEmpty:
			return c.finish(log, st, EmptyContent), nil
		}

		st.skipped += out.Skipped
		accepted := st.accept(out.Records, c.key)
		log.Debug("step complete",
			zap.Int("step", st.step),
			zap.String("locator", req.Locator),
			zap.Int("candidates", len(out.Records)),
			zap.Int("accepted", accepted),
			zap.Int("total", len(st.records)),
		)
		if accepted == 0 {
			return c.finish(log, st, NoNewRecords), nil
		}

		next, ok := c.advancer.Advance(req, out.Next)
		if !ok {
			return c.finish(log, st, NoNextLocator), nil
		}
		req = next
	}

	return c.finish(log, st, StepLimitReached), nil
}

// step performs one fetch (with retries) and extraction.
func (c *Collector[R, K]) step(ctx context.Context, st *state[R, K], policy resilience.Policy, req model.Request) Outcome[R] {
	page, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*model.Page, error) {
		st.attempts++
		return c.fetcher.Fetch(ctx, req)
	})
	if err != nil {
		return Outcome[R]{Kind: OutcomeFailure, Err: err}
	}
	if page.Empty() {
		return Outcome[R]{Kind: OutcomeEmpty}
	}

	ext := c.extractor.Extract(page)
	return Outcome[R]{
		Kind:    OutcomeSuccess,
		Records: ext.Records,
		Next:    ext.Next,
		Skipped: ext.Skipped,
	}
}

func (c *Collector[R, K]) finish(log *zap.Logger, st *state[R, K], reason Reason) *Result[R] {
	log.Info("collection finished",
		zap.String("reason", string(reason)),
		zap.Int("steps", st.step),
		zap.Int("attempts", st.attempts),
		zap.Int("records", len(st.records)),
		zap.Int("skipped", st.skipped),
	)
	return &Result[R]{
		Records:     st.records,
		Reason:      reason,
		Steps:       st.step,
		Attempts:    st.attempts,
		Skipped:     st.skipped,
		LastFailure: st.lastFailure,
	}
}

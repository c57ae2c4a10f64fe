package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/store"
)

// scanLimit bounds how many recent runs one snapshot looks at.
const scanLimit = 10000

// MetricsSnapshot holds a point-in-time view of collection health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal    int            `json:"runs_total"`
	RunsFinished int            `json:"runs_finished"`
	RunsRunning  int            `json:"runs_running"`
	ByReason     map[string]int `json:"by_reason"`
	// RunsFailed counts finished runs that exhausted retries or never started.
	RunsFailed int `json:"runs_failed"`
	// FailRate is RunsFailed over RunsFinished.
	FailRate     float64 `json:"fail_rate"`
	RecordsTotal int     `json:"records_total"`
	AvgRecords   float64 `json:"avg_records"`
	AvgSteps     float64 `json:"avg_steps"`
	AvgAttempts  float64 `json:"avg_attempts"`
	SkippedTotal int     `json:"skipped_total"`
	AvgDurSecs   float64 `json:"avg_duration_secs"`
	// StaleRuns are runs still marked running after the stale threshold,
	// usually left behind by an interrupted process.
	StaleRuns int `json:"stale_runs"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from the run history.
type Collector struct {
	runs       RunLister
	staleAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a new metrics collector. Runs still running after
// staleAfter count as stale; zero disables the check.
func NewCollector(runs RunLister, staleAfter time.Duration) *Collector {
	return &Collector{runs: runs, staleAfter: staleAfter, now: time.Now}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		ByReason:      map[string]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	// Runs come back newest first.
	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: scanLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var steps, attempts int
	var totalDur time.Duration
	var timed int

	for _, r := range runs {
		if lookbackHours > 0 && r.CreatedAt.Before(cutoff) {
			break
		}
		snap.RunsTotal++

		if r.Status == model.RunStatusRunning {
			snap.RunsRunning++
			if c.staleAfter > 0 && now.Sub(r.CreatedAt) > c.staleAfter {
				snap.StaleRuns++
			}
			continue
		}

		snap.RunsFinished++
		if r.Reason != "" {
			snap.ByReason[r.Reason]++
		}
		if failureReasons[r.Reason] {
			snap.RunsFailed++
		}
		snap.RecordsTotal += r.RecordCount
		snap.SkippedTotal += r.Skipped
		steps += r.Steps
		attempts += r.Attempts
		if r.FinishedAt != nil {
			totalDur += r.FinishedAt.Sub(r.CreatedAt)
			timed++
		}
	}

	if snap.RunsFinished > 0 {
		n := float64(snap.RunsFinished)
		snap.FailRate = float64(snap.RunsFailed) / n
		snap.AvgRecords = float64(snap.RecordsTotal) / n
		snap.AvgSteps = float64(steps) / n
		snap.AvgAttempts = float64(attempts) / n
	}
	if timed > 0 {
		snap.AvgDurSecs = totalDur.Seconds() / float64(timed)
	}

	return snap, nil
}

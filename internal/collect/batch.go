package collect

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rjrizani/zyte-api-training/internal/model"
)

// Job is one run of a batch.
type Job struct {
	Label   string
	Request model.Request
	// Advancer replaces the collector's advancer for this job, for jobs
	// whose per-page actions depend on job parameters.
	Advancer Advancer
}

// JobResult pairs a job with its outcome. Err is set only when the run could
// not start.
type JobResult[R any] struct {
	Job    Job
	Result *Result[R]
	Err    error
}

// Batch runs many jobs through one Collector.
type Batch[R any, K comparable] struct {
	Collector *Collector[R, K]
	// RunDelay is the minimum spacing between run starts.
	RunDelay time.Duration
	// Concurrency limits simultaneous runs. Values below 1 mean 1.
	Concurrency int
}

// Run executes every job and returns results in job order. A failed job
// never cancels the others.
func (b *Batch[R, K]) Run(ctx context.Context, jobs []Job) []JobResult[R] {
	results := make([]JobResult[R], len(jobs))
	if len(jobs) == 0 {
		return results
	}

	limit := b.Concurrency
	if limit < 1 {
		limit = 1
	}

	var pacer *rate.Limiter
	if b.RunDelay > 0 {
		pacer = rate.NewLimiter(rate.Every(b.RunDelay), 1)
	}

	log := zap.L().With(zap.Int("jobs", len(jobs)), zap.Int("concurrency", limit))
	log.Info("starting batch")
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(limit)
	for i, job := range jobs {
		i, job := i, job
		results[i].Job = job
		g.Go(func() error {
			if pacer != nil {
				if err := pacer.Wait(ctx); err != nil {
					results[i].Err = err
					return nil
				}
			}
			c := b.Collector
			if job.Advancer != nil {
				c = c.WithAdvancer(job.Advancer)
			}
			res, err := c.Run(ctx, job.Request)
			if err != nil {
				zap.L().Error("batch job failed", zap.String("job", job.Label), zap.Error(err))
				results[i].Err = err
				return nil // don't abort other jobs
			}
			results[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	log.Info("batch finished", zap.Duration("elapsed", time.Since(start)))
	return results
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rjrizani/zyte-api-training/internal/collect"
	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/output"
	"github.com/rjrizani/zyte-api-training/internal/recipe"
	"github.com/rjrizani/zyte-api-training/internal/store"
)

var (
	batchParams   []string
	batchMaxSteps int
)

var batchCmd = &cobra.Command{
	Use:   "batch <recipe>",
	Short: "Run a recipe once per parameter set",
	Long:  "Each --params value (k=v,k=v) starts one run of the recipe. Runs are spaced by collect.run_delay_ms and limited to collect.concurrency at a time.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("collect"); err != nil {
			return err
		}
		if len(batchParams) == 0 {
			return eris.New("batch: at least one --params set is required")
		}

		book, err := recipe.Load(cfg.Recipes.Path)
		if err != nil {
			return err
		}
		r, err := book.Get(args[0])
		if err != nil {
			return err
		}

		jobs, err := planJobs(r, batchParams)
		if err != nil {
			return err
		}

		breaker := newBreaker(cfg.Breaker)
		f, err := newFetcher(cfg.API, jobs[0].plan, breaker)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		b := &collect.Batch[model.Record, string]{
			Collector: collect.New(f, jobs[0].plan.Extractor, jobs[0].plan.Key, jobs[0].plan.Advancer,
				collectConfig(cfg.Collect, jobs[0].plan, batchMaxSteps, 0)),
			RunDelay:    time.Duration(cfg.Collect.RunDelayMs) * time.Millisecond,
			Concurrency: cfg.Collect.Concurrency,
		}

		sums, err := runBatch(ctx, st, output.NewWriter(cfg.Output.Dir), b, jobs)
		if err != nil {
			return err
		}
		printBatch(os.Stdout, sums)
		if note := breakerNote(breaker); note != "" {
			zap.L().Warn(note)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringArrayVar(&batchParams, "params", nil, "parameter set k=v,k=v for one run (repeatable)")
	batchCmd.Flags().IntVar(&batchMaxSteps, "max-steps", 0, "override the step limit")
	rootCmd.AddCommand(batchCmd)
}

// batchJob is one parameter set of a batch with its built plan.
type batchJob struct {
	params map[string]string
	plan   *recipe.Plan
}

func planJobs(r *recipe.Recipe, sets []string) ([]batchJob, error) {
	jobs := make([]batchJob, 0, len(sets))
	for _, set := range sets {
		params, err := recipe.ParseParams(set)
		if err != nil {
			return nil, err
		}
		expanded, err := r.Expand(params)
		if err != nil {
			return nil, err
		}
		plan, err := expanded.Build()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, batchJob{params: expanded.Params, plan: plan})
	}
	return jobs, nil
}

// runBatch creates a history entry per job, runs the batch and records
// every outcome. Jobs that could not run are reported with a nil summary.
func runBatch(
	ctx context.Context,
	st store.Store,
	w *output.Writer,
	b *collect.Batch[model.Record, string],
	jobs []batchJob,
) ([]*runSummary, error) {
	runIDs := make([]string, len(jobs))
	cjobs := make([]collect.Job, len(jobs))
	for i, j := range jobs {
		run, err := st.CreateRun(ctx, store.NewRun{Recipe: j.plan.Name, StartURL: j.plan.Initial.Locator, Params: j.params})
		if err != nil {
			return nil, eris.Wrap(err, "create run")
		}
		runIDs[i] = run.ID
		cjobs[i] = collect.Job{
			Label:    output.Prefix(j.plan.Name, j.params),
			Request:  j.plan.Initial,
			Advancer: j.plan.Advancer,
		}
	}

	results := b.Run(ctx, cjobs)

	sums := make([]*runSummary, len(results))
	for i, jr := range results {
		if jr.Err != nil {
			zap.L().Error("batch: job did not run", zap.String("job", jr.Job.Label), zap.Error(jr.Err))
			if err := st.FinishRun(context.WithoutCancel(ctx), runIDs[i], model.RunOutcome{
				Reason:      model.ReasonNotStarted,
				LastFailure: jr.Err.Error(),
			}); err != nil {
				return sums, eris.Wrap(err, "finish run")
			}
			continue
		}
		sum, err := record(context.WithoutCancel(ctx), st, w, runIDs[i], jobs[i].plan.Name, jobs[i].params, jr.Result)
		if err != nil {
			return sums, err
		}
		sums[i] = sum
	}
	return sums, nil
}

func printBatch(out io.Writer, sums []*runSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tRECORDS\tSTEPS\tREASON\tFILE")
	_, _ = fmt.Fprintln(w, "---\t-------\t-----\t------\t----")
	for _, s := range sums {
		if s == nil {
			_, _ = fmt.Fprintln(w, "-\t-\t-\tnot started\t")
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", truncateID(s.RunID), s.Records, s.Steps, s.Reason, s.File)
	}
	_ = w.Flush()
}

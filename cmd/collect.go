package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
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
	collectURL        string
	collectParams     []string
	collectMaxSteps   int
	collectMaxRetries int
	collectOut        string
)

var collectCmd = &cobra.Command{
	Use:   "collect <recipe>",
	Short: "Run one incremental collection",
	Long:  "Fetches pages for a recipe until the step limit, the last page, a page with nothing new, an empty page or a failed fetch; writes the records to a timestamped JSON file and records the run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("collect"); err != nil {
			return err
		}

		params, err := parseParams(collectParams)
		if err != nil {
			return err
		}
		r, plan, err := loadPlan(cfg.Recipes.Path, args[0], params, collectURL)
		if err != nil {
			return err
		}

		breaker := newBreaker(cfg.Breaker)
		f, err := newFetcher(cfg.API, plan, breaker)
		if err != nil {
			return err
		}
		c := collect.New(f, plan.Extractor, plan.Key, plan.Advancer,
			collectConfig(cfg.Collect, plan, collectMaxSteps, collectMaxRetries))

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		dir := cfg.Output.Dir
		if collectOut != "" {
			dir = collectOut
		}

		sum, err := execute(ctx, st, output.NewWriter(dir), c, plan, r.Params)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, sum)
		if note := breakerNote(breaker); note != "" {
			zap.L().Warn(note)
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectURL, "url", "", "override the recipe's start URL")
	collectCmd.Flags().StringArrayVar(&collectParams, "param", nil, "recipe parameter key=value (repeatable)")
	collectCmd.Flags().IntVar(&collectMaxSteps, "max-steps", 0, "override the step limit")
	collectCmd.Flags().IntVar(&collectMaxRetries, "max-retries", 0, "override the attempts per step")
	collectCmd.Flags().StringVar(&collectOut, "out", "", "output directory (default from output.dir)")
	rootCmd.AddCommand(collectCmd)
}

// loadPlan reads the recipe book at path, expands the named recipe with
// params and builds its plan. A non-empty startURL replaces the recipe's
// start_url.
func loadPlan(path, name string, params map[string]string, startURL string) (*recipe.Recipe, *recipe.Plan, error) {
	book, err := recipe.Load(path)
	if err != nil {
		return nil, nil, err
	}
	r, err := book.Get(name)
	if err != nil {
		return nil, nil, err
	}
	if startURL != "" {
		cp := *r
		cp.StartURL = startURL
		r = &cp
	}
	r, err = r.Expand(params)
	if err != nil {
		return nil, nil, err
	}
	plan, err := r.Build()
	if err != nil {
		return nil, nil, err
	}
	return r, plan, nil
}

// runSummary is what a finished run reports on stdout.
type runSummary struct {
	RunID   string `json:"run_id"`
	Recipe  string `json:"recipe"`
	Reason  string `json:"reason"`
	Steps   int    `json:"steps"`
	Records int    `json:"records"`
	Skipped int    `json:"skipped"`
	File    string `json:"file,omitempty"`
	Failure string `json:"last_failure,omitempty"`
}

// execute runs one collection and records it: the run is created in st
// before the first fetch and finished with its outcome afterwards.
func execute(
	ctx context.Context,
	st store.Store,
	w *output.Writer,
	c *collect.Collector[model.Record, string],
	plan *recipe.Plan,
	params map[string]string,
) (*runSummary, error) {
	run, err := st.CreateRun(ctx, store.NewRun{Recipe: plan.Name, StartURL: plan.Initial.Locator, Params: params})
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}

	res, err := c.Run(ctx, plan.Initial)
	if err != nil {
		return nil, eris.Wrap(err, "collect")
	}
	return record(context.WithoutCancel(ctx), st, w, run.ID, plan.Name, params, res)
}

// scrapedAtField is stamped on every collected record.
const scrapedAtField = "scraped_at"

func stampRecords(records []model.Record, at time.Time) {
	ts := at.UTC().Format(time.RFC3339)
	for _, r := range records {
		r[scrapedAtField] = ts
	}
}

// record writes a finished run's file and history entry.
func record(
	ctx context.Context,
	st store.Store,
	w *output.Writer,
	runID, recipeName string,
	params map[string]string,
	res *collect.Result[model.Record],
) (*runSummary, error) {
	stampRecords(res.Records, time.Now())

	path, err := output.Write(w, output.Prefix(recipeName, params), res.Records, output.Metadata{
		Reason: string(res.Reason),
		Steps:  res.Steps,
		Recipe: recipeName,
	})
	if err != nil {
		zap.L().Error("write output failed", zap.String("run_id", runID), zap.Error(err))
	}

	var records json.RawMessage
	if len(res.Records) > 0 {
		records, err = json.Marshal(res.Records)
		if err != nil {
			return nil, eris.Wrap(err, "marshal records")
		}
	}

	if err := st.FinishRun(ctx, runID, model.RunOutcome{
		Reason:      string(res.Reason),
		Steps:       res.Steps,
		Attempts:    res.Attempts,
		RecordCount: len(res.Records),
		Skipped:     res.Skipped,
		LastFailure: res.LastFailure,
		Records:     records,
	}); err != nil {
		return nil, eris.Wrap(err, "finish run")
	}

	return &runSummary{
		RunID:   runID,
		Recipe:  recipeName,
		Reason:  string(res.Reason),
		Steps:   res.Steps,
		Records: len(res.Records),
		Skipped: res.Skipped,
		File:    path,
		Failure: res.LastFailure,
	}, nil
}

func printSummary(out io.Writer, s *runSummary) {
	_, _ = fmt.Fprintf(out, "run %s: %d records in %d steps (%s)\n", truncateID(s.RunID), s.Records, s.Steps, s.Reason)
	if s.Skipped > 0 {
		_, _ = fmt.Fprintf(out, "  skipped: %d\n", s.Skipped)
	}
	if s.Failure != "" {
		_, _ = fmt.Fprintf(out, "  last failure: %s\n", s.Failure)
	}
	if s.File != "" {
		_, _ = fmt.Fprintf(out, "  saved: %s\n", s.File)
	}
}

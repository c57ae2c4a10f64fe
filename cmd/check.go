package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rjrizani/zyte-api-training/internal/config"
	"github.com/rjrizani/zyte-api-training/internal/recipe"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration, recipes and the run history store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		results := runChecks(ctx, cfg)
		if !printChecks(os.Stdout, results) {
			return eris.New("check failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	Name string
	Err  error
	Info string
}

func runChecks(ctx context.Context, c *config.Config) []checkResult {
	var out []checkResult

	if c.API.Key == "" {
		out = append(out, checkResult{Name: "api key", Err: eris.New("ZYTE_API_KEY is not set")})
	} else {
		out = append(out, checkResult{Name: "api key", Info: "configured"})
	}

	out = append(out, checkResult{Name: "config", Err: c.Validate("collect")})

	cc := collectConfig(c.Collect, nil, 0, 0)
	wait := cc.Retry.MaxWait()
	out = append(out, checkResult{Name: "retry budget", Info: fmt.Sprintf(
		"%d attempts per step, up to %s backoff per step, %s per %d-step run",
		cc.Retry.MaxAttempts, wait, wait*time.Duration(max(cc.MaxSteps, 1)), cc.MaxSteps,
	)})

	book, err := recipe.Load(c.Recipes.Path)
	if err != nil {
		out = append(out, checkResult{Name: "recipes", Err: err})
	} else {
		var bad error
		for _, r := range book.List() {
			if err := r.Validate(); err != nil {
				bad = err
				break
			}
		}
		out = append(out, checkResult{Name: "recipes", Err: bad, Info: fmt.Sprintf("%d recipes in %s", len(book.List()), c.Recipes.Path)})
	}

	st, err := openStore(ctx, c.Store)
	if err != nil {
		out = append(out, checkResult{Name: "store", Err: err})
	} else {
		out = append(out, checkResult{Name: "store", Err: st.Ping(ctx), Info: c.Store.Driver})
		st.Close() //nolint:errcheck
	}

	return out
}

// printChecks reports each check and returns true when all passed.
func printChecks(out io.Writer, results []checkResult) bool {
	ok := true
	for _, r := range results {
		if r.Err != nil {
			ok = false
			_, _ = fmt.Fprintf(out, "FAIL  %s: %v\n", r.Name, r.Err)
			continue
		}
		if r.Info != "" {
			_, _ = fmt.Fprintf(out, "ok    %s: %s\n", r.Name, r.Info)
		} else {
			_, _ = fmt.Fprintf(out, "ok    %s\n", r.Name)
		}
	}
	return ok
}

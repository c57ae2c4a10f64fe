package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/monitoring"
	"github.com/rjrizani/zyte-api-training/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect collection run history",
	Long:  "Commands for listing and viewing collection runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collection runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recipeName, _ := cmd.Flags().GetString("recipe")
		reason, _ := cmd.Flags().GetString("reason")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Recipe: recipeName,
			Reason: reason,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run, records included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	Long:  "Summarises recent runs by stop reason. With --alert, threshold breaches are posted to monitoring.webhook_url.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		alert, _ := cmd.Flags().GetBool("alert")

		hours := int(since.Hours())
		if !cmd.Flags().Changed("since") && cfg.Monitoring.LookbackWindowHours > 0 {
			hours = cfg.Monitoring.LookbackWindowHours
		}

		collector := monitoring.NewCollector(st, time.Duration(cfg.Monitoring.StaleAfterMins)*time.Minute)
		snap, err := collector.Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}
		formatRunStats(os.Stdout, snap)

		if alert {
			alerter := monitoring.NewAlerter(cfg.Monitoring)
			alerts := alerter.Evaluate(snap)
			sent := alerter.SendAlerts(ctx, alerts)
			fmt.Fprintf(os.Stderr, "%d alert(s) triggered, %d sent\n", len(alerts), sent)
		}
		return nil
	},
}

func init() {
	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")
	runsStatsCmd.Flags().Bool("alert", false, "send threshold alerts to the monitoring webhook")
	runsCmd.AddCommand(runsStatsCmd)

	runsListCmd.Flags().String("recipe", "", "filter by recipe name")
	runsListCmd.Flags().String("reason", "", "filter by stop reason (step_limit_reached, no_next_locator, no_new_records, empty_content, retries_exhausted)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRECIPE\tSTATUS\tREASON\tRECORDS\tSTEPS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t------\t-------\t-----\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(r.ID),
			r.Recipe,
			r.Status,
			r.Reason,
			r.RecordCount,
			r.Steps,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.RunsTotal)
	_, _ = fmt.Fprintf(w, "Finished:\t%d\n", s.RunsFinished)

	reasons := make([]string, 0, len(s.ByReason))
	for r := range s.ByReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", r, s.ByReason[r])
	}

	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.RunsRunning)
	if s.StaleRuns > 0 {
		_, _ = fmt.Fprintf(w, "  Stale:\t%d\n", s.StaleRuns)
	}
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailRate*100)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", s.RecordsTotal)
	_, _ = fmt.Fprintf(w, "Avg records/run:\t%.1f\n", s.AvgRecords)
	_, _ = fmt.Fprintf(w, "Avg steps/run:\t%.1f\n", s.AvgSteps)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ldcheck/internal/check"
	"github.com/pdiddy/ldcheck/internal/store"
	"github.com/pdiddy/ldcheck/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded expand runs",
	Long: `Every expand run is recorded in the store unless --no-history is given
or store.history is false. Use subcommands to list runs, show one run in
full, export the history or prune old runs. Without a subcommand, history
lists recent runs.`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, most recent first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show the full report of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run summaries as YAML or JSON",
	RunE:  runHistoryExport,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a given age",
	RunE:  runHistoryPrune,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	e, err := openEnv(loadConfig())
	if err != nil {
		return err
	}
	defer e.Close()

	runs, err := e.store.Runs(cmd.Context(), runQueryFromFlags(cmd))
	if err != nil {
		return err
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-4s  %5s  %8s  %6s\n",
		"ID", "Started", "Safe", "Docs", "Warnings", "Failed")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range runs {
		safe := ""
		if r.Safe {
			safe = "yes"
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-4s  %5d  %8d  %6d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), safe, r.Documents, r.Warnings, r.Failed)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	e, err := openEnv(loadConfig())
	if err != nil {
		return err
	}
	defer e.Close()

	run, err := e.store.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "" {
		return check.WriteReport(cmd.OutOrStdout(), check.Report{
			Documents: run.Documents,
			Summary:   check.Summarize(run.Documents),
		}, types.ReportFormat(format))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Safe:     %t\n", run.Safe)
	if len(run.Contexts) > 0 {
		fmt.Fprintf(w, "Contexts: %s\n", strings.Join(run.Contexts, ", "))
	}
	fmt.Fprintln(w)
	check.WriteSummary(w, run.Documents, check.Summarize(run.Documents))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	e, err := openEnv(loadConfig())
	if err != nil {
		return err
	}
	defer e.Close()

	q := runQueryFromFlags(cmd)
	switch format {
	case "yaml", "":
		return e.store.ExportYAML(cmd.Context(), cmd.OutOrStdout(), q)
	case "json":
		return e.store.ExportJSON(cmd.Context(), cmd.OutOrStdout(), q)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	if olderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	e, err := openEnv(loadConfig())
	if err != nil {
		return err
	}
	defer e.Close()

	n, err := e.store.PruneRuns(cmd.Context(), time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d runs\n", n)
	return nil
}

func runQueryFromFlags(cmd *cobra.Command) store.RunQuery {
	path, _ := cmd.Flags().GetString("path")
	limit, _ := cmd.Flags().GetInt("limit")
	return store.RunQuery{Path: path, Limit: limit}
}

func init() {
	// Filters shared by list and export.
	for _, c := range []*cobra.Command{historyCmd, historyListCmd, historyExportCmd} {
		c.Flags().String("path", "", "only runs that checked this document")
		c.Flags().Int("limit", 0, "maximum runs (0 = 20 for list, all for export)")
	}

	historyShowCmd.Flags().String("format", "", "print the run report as json or yaml")
	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete runs started before this age")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyPruneCmd)

	rootCmd.AddCommand(historyCmd)
}

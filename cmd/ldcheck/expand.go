// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ldcheck/internal/check"
	"github.com/pdiddy/ldcheck/internal/watch"
	"github.com/pdiddy/ldcheck/pkg/types"
)

var expandCmd = &cobra.Command{
	Use:   "expand [paths or globs...]",
	Short: "Expand documents and report properties that would be dropped",
	Long: `Expand composes each document's @context, followed by any --context
sources, and walks the document reporting every key and type that does not
expand to an absolute IRI or keyword. Directories are searched for *.jsonld
and *.json files; globs such as examples/**/*.jsonld are expanded.

With --lint each warning is printed as a JSON line as soon as it is found.
With --safe any dropped property fails the run.`,
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().Bool("safe", false, "fail when any property is dropped")
	expandCmd.Flags().Bool("lint", false, "print warning events as JSON lines as they are found")
	expandCmd.Flags().StringArray("context", nil, "extra context source appended to every document (URL, file or inline JSON); repeatable")
	expandCmd.Flags().Bool("report", false, "print the full report instead of a summary")
	expandCmd.Flags().String("format", "", "report format: json or yaml (default json)")
	expandCmd.Flags().Int("workers", 0, "documents checked in parallel (default 4)")
	expandCmd.Flags().Bool("watch", false, "re-check documents when they or local context files change")
	expandCmd.Flags().Bool("offline", false, "never fetch remote contexts")
	expandCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile after each run")
	expandCmd.Flags().Bool("no-history", false, "do not record the run in the history")

	_ = viper.BindPFlag("check.safe", expandCmd.Flags().Lookup("safe"))
	_ = viper.BindPFlag("check.lint", expandCmd.Flags().Lookup("lint"))
	_ = viper.BindPFlag("check.format", expandCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("check.workers", expandCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("loader.offline", expandCmd.Flags().Lookup("offline"))
	_ = viper.BindPFlag("metrics.textfile", expandCmd.Flags().Lookup("metrics-file"))

	rootCmd.AddCommand(expandCmd)
}

func runExpand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more documents, directories or globs")
	}

	cfg := loadConfig()
	// Inline JSON contexts contain commas, so --context is read as an array
	// here rather than bound to viper, which would split it as CSV.
	if cmd.Flags().Changed("context") {
		cfg.Check.Contexts, _ = cmd.Flags().GetStringArray("context")
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.Store.History = false
	}
	report, _ := cmd.Flags().GetBool("report")
	watching, _ := cmd.Flags().GetBool("watch")

	paths, err := check.ResolveInputs(args)
	if err != nil {
		return err
	}
	chain, err := check.ContextSources(cfg.Check.Contexts)
	if err != nil {
		return err
	}

	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	r := &expandRun{
		env:    e,
		chain:  chain,
		report: report,
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}
	r.checker = check.New(e.loader, check.Options{
		Safe:    cfg.Check.Safe,
		Lint:    cfg.Check.Lint,
		OnEvent: r.printEvent,
		Metrics: e.metrics,
		Logger:  e.logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return r.execute(ctx, paths, watching)
}

// expandRun checks one input set, possibly repeatedly in watch mode.
type expandRun struct {
	env     *env
	checker *check.Checker
	chain   []any
	report  bool

	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer

	// latest holds the most recent report of every document checked.
	latest map[string]types.DocumentReport
}

// execute checks paths once and, when watching, keeps re-checking them
// until ctx is cancelled. The returned error reflects the latest outcome of
// every document.
func (r *expandRun) execute(ctx context.Context, paths []string, watching bool) error {
	safe := r.env.cfg.Check.Safe
	summary, err := r.run(ctx, paths)
	if err != nil {
		return err
	}
	if watching {
		r.logFailure(summary)
		if err := r.watch(ctx, paths); err != nil {
			return err
		}
		summary = r.standing()
	}
	if summary.HasFailures(safe) {
		return failure(summary, safe)
	}
	return nil
}

// standing summarizes the latest outcome of every document checked so far.
func (r *expandRun) standing() check.BatchSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	reports := make([]types.DocumentReport, 0, len(r.latest))
	for _, rep := range r.latest {
		reports = append(reports, rep)
	}
	return check.Summarize(reports)
}

func (r *expandRun) logFailure(s check.BatchSummary) {
	safe := r.env.cfg.Check.Safe
	if s.HasFailures(safe) {
		r.env.logger.Error("check failed", "error", failure(s, safe))
	}
}

// printEvent writes a lint event. Events arrive from several workers.
func (r *expandRun) printEvent(doc string, ev types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := check.WriteEvent(r.stdout, ev); err != nil {
		r.env.logger.Error("writing lint event", "doc", doc, "error", err)
	}
}

func (r *expandRun) run(ctx context.Context, paths []string) (check.BatchSummary, error) {
	cfg := r.env.cfg
	started := time.Now()
	reports, summary := r.checker.CheckFiles(ctx, paths, cfg.Check.Workers, r.chain...)
	finished := time.Now()

	// The summary goes to stderr when stdout carries machine-readable output.
	summaryOut := r.stdout
	if r.report || cfg.Check.Lint {
		summaryOut = r.stderr
	}
	r.mu.Lock()
	if ctx.Err() == nil {
		if r.latest == nil {
			r.latest = make(map[string]types.DocumentReport, len(reports))
		}
		for _, rep := range reports {
			r.latest[rep.Path] = rep
		}
	}
	check.WriteSummary(summaryOut, reports, summary)
	var err error
	if r.report {
		err = check.WriteReport(r.stdout, check.Report{Documents: reports, Summary: summary}, cfg.Check.Format)
	}
	r.mu.Unlock()
	if err != nil {
		return summary, err
	}

	if cfg.Store.History {
		id, err := r.env.store.RecordRun(ctx, types.RunRecord{
			StartedAt:  started,
			FinishedAt: finished,
			Safe:       cfg.Check.Safe,
			Contexts:   cfg.Check.Contexts,
			Documents:  reports,
		})
		if err != nil {
			r.env.logger.Warn("recording run history", "error", err)
		} else {
			r.env.logger.Debug("recorded run", "id", id)
		}
	}

	return summary, r.env.writeMetrics()
}

// watch re-checks documents as they change until ctx is cancelled. A change
// to any watched file that is not itself an input re-checks every input.
func (r *expandRun) watch(ctx context.Context, paths []string) error {
	watched := append(append([]string(nil), paths...), localContextFiles(r.env.cfg.Check.Contexts)...)
	w, err := watch.New(watched, r.env.cfg.Watch.Debounce, r.env.logger)
	if err != nil {
		return err
	}
	defer w.Close()
	w.Start(ctx)

	fmt.Fprintf(r.stderr, "Watching %d files; press Ctrl-C to stop.\n", len(watched))
	for batch := range w.Batches() {
		targets := watchTargets(paths, batch)
		r.env.logger.Info("re-checking", "changed", batch, "documents", len(targets))
		summary, err := r.run(ctx, targets)
		if err != nil {
			return err
		}
		r.logFailure(summary)
	}
	return nil
}

// watchTargets returns the inputs to re-check for a batch of changed files.
func watchTargets(paths, changed []string) []string {
	inputs := make(map[string]bool, len(paths))
	for _, p := range paths {
		inputs[p] = true
	}
	var targets []string
	for _, c := range changed {
		if !inputs[c] {
			return paths
		}
		targets = append(targets, c)
	}
	return targets
}

// localContextFiles returns the --context sources that name local files.
func localContextFiles(sources []string) []string {
	var out []string
	for _, s := range sources {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		case strings.HasPrefix(s, "file://"):
			out = append(out, strings.TrimPrefix(s, "file://"))
		case strings.Contains(s, "://"):
		default:
			out = append(out, s)
		}
	}
	return out
}

func failure(s check.BatchSummary, safe bool) error {
	if s.Failed > 0 {
		return fmt.Errorf("%d document(s) failed", s.Failed)
	}
	if safe {
		return fmt.Errorf("%d document(s) dropped properties: %w", s.Warned, check.ErrDroppedProperty)
	}
	return nil
}

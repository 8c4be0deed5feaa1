package doctor

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/svm/pkg/logger"
)

// ErrChecksFailed is returned when at least one check reports an error.
var ErrChecksFailed = errors.New("health checks failed")

// Runner runs checks, reports them and applies fixes
type Runner struct {
	registry *Registry
	reporter Reporter
	out      io.Writer
	logger   logger.Logger
}

// RunOptions configures a doctor run
type RunOptions struct {
	// Verbose prints result details
	Verbose bool

	// Fix applies every available fix, then re-runs the failed checks
	Fix bool

	// Categories limits the run; empty means all
	Categories []Category
}

// NewRunner creates a new Runner. Fix suggestions are written to out.
func NewRunner(registry *Registry, reporter Reporter, out io.Writer, log logger.Logger) *Runner {
	return &Runner{
		registry: registry,
		reporter: reporter,
		out:      out,
		logger:   logger.OrNoOp(log),
	}
}

// Run executes the checks and, with opts.Fix, repairs what it can.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	r.logger.Info("starting doctor run", "verbose", opts.Verbose, "fix", opts.Fix)

	results := r.registry.RunCategories(ctx, opts.Categories...)
	r.reporter.Report(results, opts.Verbose)

	fixable := collectFixable(results)
	if len(fixable) == 0 {
		return r.exitError(results)
	}

	if !opts.Fix {
		r.suggestFixes(fixable)

		return r.exitError(results)
	}

	if err := r.applyFixes(ctx, fixable); err != nil {
		return errors.Wrap(err, "failed to apply fixes")
	}

	rerun := r.rerun(ctx, fixable, opts.Categories)
	r.reporter.Report(rerun, opts.Verbose)

	return r.exitError(merge(results, rerun))
}

// collectFixable returns failed results that have a fix
func collectFixable(results []CheckResult) []CheckResult {
	var fixable []CheckResult

	for _, result := range results {
		if result.Status == StatusFail && result.HasFix() {
			fixable = append(fixable, result)
		}
	}

	return fixable
}

func (r *Runner) applyFixes(ctx context.Context, results []CheckResult) error {
	for _, result := range results {
		fixer, ok := r.registry.GetFixer(result.FixID)
		if !ok {
			r.logger.Error("fixer not found", "fixID", result.FixID)
			continue
		}

		r.logger.Info("applying fix", "check", result.Name, "fixer", fixer.ID())

		if err := fixer.Fix(ctx); err != nil {
			return errors.Wrapf(err, "failed to fix %q", result.Name)
		}
	}

	return nil
}

func (r *Runner) suggestFixes(results []CheckResult) {
	fmt.Fprintln(r.out, "\nSuggested fixes:")

	for _, result := range results {
		if fixer, ok := r.registry.GetFixer(result.FixID); ok {
			fmt.Fprintf(r.out, "  - %s: %s\n", result.Name, fixer.Description())
		}
	}

	fmt.Fprintln(r.out, "\nRun 'svm doctor --fix' to apply them")
}

// rerun re-runs the checks behind results
func (r *Runner) rerun(ctx context.Context, results []CheckResult, categories []Category) []CheckResult {
	names := make(map[string]bool, len(results))
	for _, result := range results {
		names[result.Name] = true
	}

	var rerun []CheckResult

	for _, result := range r.registry.RunCategories(ctx, categories...) {
		if names[result.Name] {
			rerun = append(rerun, result)
		}
	}

	return rerun
}

// merge replaces results with their re-run counterparts
func merge(original, rerun []CheckResult) []CheckResult {
	byName := make(map[string]CheckResult, len(rerun))
	for _, result := range rerun {
		byName[result.Name] = result
	}

	combined := make([]CheckResult, 0, len(original))

	for _, result := range original {
		if updated, ok := byName[result.Name]; ok {
			result = updated
		}

		combined = append(combined, result)
	}

	return combined
}

func (r *Runner) exitError(results []CheckResult) error {
	summary := Summarize(results)

	r.logger.Info("final status",
		"errors", summary.Errors,
		"warnings", summary.Warnings,
		"skipped", summary.Skipped,
		"total", len(results),
	)

	if !summary.Healthy() {
		return errors.Wrapf(ErrChecksFailed, "%d error(s)", summary.Errors)
	}

	return nil
}

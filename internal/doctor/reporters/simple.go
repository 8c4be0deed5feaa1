// Package reporters provides output formatting for doctor check results
package reporters

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/smykla-skalski/svm/internal/color"
	"github.com/smykla-skalski/svm/internal/doctor"
)

// categoryOrder defines the display order for categories
var categoryOrder = []doctor.Category{
	doctor.CategoryConfig,
	doctor.CategoryData,
	doctor.CategoryPlatform,
	doctor.CategoryNetwork,
}

var categoryNames = map[doctor.Category]string{
	doctor.CategoryConfig:   "Configuration",
	doctor.CategoryData:     "Data Directory",
	doctor.CategoryPlatform: "Platform",
	doctor.CategoryNetwork:  "Release Host",
}

// SimpleReporter prints a checklist grouped by category
type SimpleReporter struct {
	out   io.Writer
	theme color.Theme
}

// NewSimpleReporter creates a SimpleReporter writing to out
func NewSimpleReporter(out io.Writer, theme color.Theme) *SimpleReporter {
	return &SimpleReporter{out: out, theme: theme}
}

// Report prints results grouped by category followed by a summary line
func (r *SimpleReporter) Report(results []doctor.CheckResult, verbose bool) {
	grouped := make(map[doctor.Category][]doctor.CheckResult)
	for _, result := range results {
		grouped[result.Category] = append(grouped[result.Category], result)
	}

	categories := slices.Clone(categoryOrder)

	for category := range grouped {
		if !slices.Contains(categories, category) {
			categories = append(categories, category)
		}
	}

	for _, category := range categories {
		if len(grouped[category]) == 0 {
			continue
		}

		fmt.Fprintln(r.out, r.theme.Header.Render(categoryName(category)+":"))

		for _, result := range grouped[category] {
			r.printResult(result, verbose)
		}

		fmt.Fprintln(r.out)
	}

	fmt.Fprintf(r.out, "Summary: %s\n", doctor.Summarize(results))
}

func categoryName(category doctor.Category) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}

	s := string(category)
	if s == "" {
		return "Other"
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func (r *SimpleReporter) printResult(result doctor.CheckResult, verbose bool) {
	line := "  " + r.icon(result) + " " + result.Name
	if result.Message != "" {
		line += " - " + result.Message
	}

	fmt.Fprintln(r.out, line)

	if verbose {
		for _, detail := range result.Details {
			fmt.Fprintln(r.out, r.theme.Muted.Render("      "+detail))
		}
	}
}

func (r *SimpleReporter) icon(result doctor.CheckResult) string {
	switch {
	case result.IsPassed():
		return r.theme.Success.Render("✓")
	case result.IsError():
		return r.theme.Error.Render("✗")
	case result.IsWarning():
		return r.theme.Warning.Render("!")
	default:
		return r.theme.Muted.Render("-")
	}
}

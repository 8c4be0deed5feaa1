// Package doctor runs health checks against an svm installation and
// applies fixes for the problems it can repair.
package doctor

import (
	"context"
	"fmt"
)

// Severity represents the severity level of a check result
type Severity string

const (
	// SeverityError indicates a problem that breaks installs or the wrapper
	SeverityError Severity = "error"
	// SeverityWarning indicates a problem svm can work around
	SeverityWarning Severity = "warning"
	// SeverityInfo indicates informational output
	SeverityInfo Severity = "info"
)

// Status represents the status of a health check
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// Category groups related checks
type Category string

const (
	// CategoryConfig checks the configuration file
	CategoryConfig Category = "config"
	// CategoryData checks the data directory and the global version pointer
	CategoryData Category = "data"
	// CategoryPlatform checks the target platform and NixOS tooling
	CategoryPlatform Category = "platform"
	// CategoryNetwork checks that the release host answers
	CategoryNetwork Category = "network"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name     string
	Category Category
	Severity Severity
	Status   Status
	Message  string

	// Details contains additional context shown in verbose mode
	Details []string

	// FixID links to a Fixer that can repair this result
	FixID string
}

// HealthChecker performs one health check
type HealthChecker interface {
	Name() string
	Category() Category
	Check(ctx context.Context) CheckResult
}

// Fixer repairs problems reported by health checks
type Fixer interface {
	// ID is referenced by CheckResult.FixID
	ID() string

	Description() string

	Fix(ctx context.Context) error
}

// Reporter outputs check results
type Reporter interface {
	Report(results []CheckResult, verbose bool)
}

// NewCheckResult creates a new CheckResult with the given parameters
func NewCheckResult(name string, severity Severity, status Status, message string) CheckResult {
	return CheckResult{
		Name:     name,
		Severity: severity,
		Status:   status,
		Message:  message,
		Details:  []string{},
	}
}

// WithDetails adds details to a CheckResult
func (r CheckResult) WithDetails(details ...string) CheckResult {
	r.Details = append(r.Details, details...)
	return r
}

// WithFixID sets the fix ID for a CheckResult
func (r CheckResult) WithFixID(fixID string) CheckResult {
	r.FixID = fixID
	return r
}

// Pass creates a passing check result
func Pass(name, message string) CheckResult {
	return NewCheckResult(name, SeverityInfo, StatusPass, message)
}

// FailError creates a failing check result with error severity
func FailError(name, message string) CheckResult {
	return NewCheckResult(name, SeverityError, StatusFail, message)
}

// FailWarning creates a failing check result with warning severity
func FailWarning(name, message string) CheckResult {
	return NewCheckResult(name, SeverityWarning, StatusFail, message)
}

// Skip creates a skipped check result
func Skip(name, message string) CheckResult {
	return NewCheckResult(name, SeverityInfo, StatusSkipped, message)
}

// IsError returns true if the result is an error
func (r CheckResult) IsError() bool {
	return r.Status == StatusFail && r.Severity == SeverityError
}

// IsWarning returns true if the result is a warning
func (r CheckResult) IsWarning() bool {
	return r.Status == StatusFail && r.Severity == SeverityWarning
}

// IsPassed returns true if the check passed
func (r CheckResult) IsPassed() bool {
	return r.Status == StatusPass
}

// IsSkipped returns true if the check was skipped
func (r CheckResult) IsSkipped() bool {
	return r.Status == StatusSkipped
}

// HasFix returns true if the result has a fix available
func (r CheckResult) HasFix() bool {
	return r.FixID != ""
}

// Summary counts results by outcome.
type Summary struct {
	Errors   int
	Warnings int
	Passed   int
	Skipped  int
}

// Summarize counts results by outcome.
func Summarize(results []CheckResult) Summary {
	var s Summary

	for _, result := range results {
		switch {
		case result.IsPassed():
			s.Passed++
		case result.IsError():
			s.Errors++
		case result.IsWarning():
			s.Warnings++
		case result.IsSkipped():
			s.Skipped++
		}
	}

	return s
}

// Healthy reports whether no check failed with error severity.
func (s Summary) Healthy() bool {
	return s.Errors == 0
}

func (s Summary) String() string {
	return fmt.Sprintf("%d error(s), %d warning(s), %d passed", s.Errors, s.Warnings, s.Passed)
}

// Fix IDs shared by checkers and fixers.
const (
	FixConfigPermissions = "fix_config_permissions"
	FixGlobalVersion     = "fix_global_version"
	FixLeftovers         = "remove_leftovers"
)

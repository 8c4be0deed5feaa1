package doctor

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds a single check. The release host check is the
// only one expected to come close.
const DefaultCheckTimeout = 30 * time.Second

// Registry holds health checkers and fixers
type Registry struct {
	mu       sync.RWMutex
	checkers []HealthChecker
	fixers   map[string]Fixer
	timeout  time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCheckTimeout overrides DefaultCheckTimeout. Zero or less disables it.
func WithCheckTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

// NewRegistry creates a new Registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{fixers: make(map[string]Fixer), timeout: DefaultCheckTimeout}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RegisterChecker registers a health checker
func (r *Registry) RegisterChecker(checkers ...HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkers = append(r.checkers, checkers...)
}

// RegisterFixer registers a fixer
func (r *Registry) RegisterFixer(fixers ...Fixer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range fixers {
		r.fixers[f.ID()] = f
	}
}

// RunAll runs every checker concurrently. Results keep registration order.
func (r *Registry) RunAll(ctx context.Context) []CheckResult {
	return r.RunCategories(ctx)
}

// RunCategories runs the checkers of the given categories, or all of them
// when none are given.
func (r *Registry) RunCategories(ctx context.Context, categories ...Category) []CheckResult {
	r.mu.RLock()
	selected := make([]HealthChecker, 0, len(r.checkers))

	for _, c := range r.checkers {
		if len(categories) == 0 || slices.Contains(categories, c.Category()) {
			selected = append(selected, c)
		}
	}
	r.mu.RUnlock()

	return r.runCheckers(ctx, selected)
}

func (r *Registry) runCheckers(ctx context.Context, checkers []HealthChecker) []CheckResult {
	results := make([]CheckResult, len(checkers))

	var g errgroup.Group

	for i, checker := range checkers {
		g.Go(func() error {
			result := r.runOne(ctx, checker)
			result.Category = checker.Category()
			results[i] = result

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// runOne reports a panicking checker as an error result.
func (r *Registry) runOne(ctx context.Context, checker HealthChecker) (result CheckResult) {
	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if v := recover(); v != nil {
			result = FailError(checker.Name(), fmt.Sprintf("Check panicked: %v", v))
		}
	}()

	return checker.Check(ctx)
}

// GetFixer retrieves a fixer by ID.
//
//nolint:ireturn // Fixer interface for polymorphism
func (r *Registry) GetFixer(fixID string) (Fixer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fixer, ok := r.fixers[fixID]

	return fixer, ok
}

// CheckerCount returns the number of registered checkers
func (r *Registry) CheckerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.checkers)
}

package doctor_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/doctor"
)

var _ = Describe("Registry", func() {
	var registry *doctor.Registry

	BeforeEach(func() {
		registry = doctor.NewRegistry()
		registry.RegisterChecker(
			&stubChecker{name: "config", category: doctor.CategoryConfig},
			&stubChecker{name: "data", category: doctor.CategoryData},
			&stubChecker{name: "network", category: doctor.CategoryNetwork},
		)
	})

	It("counts checkers", func() {
		Expect(registry.CheckerCount()).To(Equal(3))
	})

	Describe("RunAll", func() {
		It("keeps registration order and stamps categories", func() {
			results := registry.RunAll(context.Background())

			Expect(results).To(HaveLen(3))
			Expect(results[0].Name).To(Equal("config"))
			Expect(results[0].Category).To(Equal(doctor.CategoryConfig))
			Expect(results[1].Name).To(Equal("data"))
			Expect(results[2].Name).To(Equal("network"))
			Expect(results[2].Category).To(Equal(doctor.CategoryNetwork))
		})
	})

	Describe("RunCategories", func() {
		It("runs only the selected categories", func() {
			results := registry.RunCategories(
				context.Background(),
				doctor.CategoryNetwork,
				doctor.CategoryConfig,
			)

			Expect(results).To(HaveLen(2))
			Expect(results[0].Name).To(Equal("config"))
			Expect(results[1].Name).To(Equal("network"))
		})

		It("returns nothing for a category without checkers", func() {
			Expect(registry.RunCategories(context.Background(), doctor.CategoryPlatform)).To(BeEmpty())
		})
	})

	Describe("GetFixer", func() {
		It("finds fixers by ID", func() {
			registry.RegisterFixer(&stubFixer{id: "fix_a"})

			fixer, ok := registry.GetFixer("fix_a")
			Expect(ok).To(BeTrue())
			Expect(fixer.ID()).To(Equal("fix_a"))

			_, ok = registry.GetFixer("fix_b")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("failing checkers", func() {
		It("reports a panic as an error result", func() {
			registry := doctor.NewRegistry()
			registry.RegisterChecker(
				checkerFunc{name: "broken", fn: func(context.Context) doctor.CheckResult { panic("nil store") }},
				&stubChecker{name: "fine", category: doctor.CategoryData},
			)

			results := registry.RunAll(context.Background())
			Expect(results).To(HaveLen(2))
			Expect(results[0].IsError()).To(BeTrue())
			Expect(results[0].Message).To(Equal("Check panicked: nil store"))
			Expect(results[0].Category).To(Equal(doctor.CategoryNetwork))
			Expect(results[1].IsPassed()).To(BeTrue())
		})

		It("bounds each check with the timeout", func() {
			registry := doctor.NewRegistry(doctor.WithCheckTimeout(10 * time.Millisecond))
			registry.RegisterChecker(checkerFunc{name: "slow", fn: func(ctx context.Context) doctor.CheckResult {
				<-ctx.Done()

				return doctor.FailError("slow", ctx.Err().Error())
			}})

			results := registry.RunAll(context.Background())
			Expect(results[0].Message).To(Equal(context.DeadlineExceeded.Error()))
		})
	})
})

var _ = Describe("Summarize", func() {
	It("counts each outcome", func() {
		summary := doctor.Summarize([]doctor.CheckResult{
			doctor.Pass("a", ""),
			doctor.Pass("b", ""),
			doctor.FailWarning("c", ""),
			doctor.FailError("d", ""),
			doctor.Skip("e", ""),
		})

		Expect(summary).To(Equal(doctor.Summary{Errors: 1, Warnings: 1, Passed: 2, Skipped: 1}))
		Expect(summary.Healthy()).To(BeFalse())
		Expect(summary.String()).To(Equal("1 error(s), 1 warning(s), 2 passed"))
	})

	It("is healthy with warnings only", func() {
		Expect(doctor.Summarize([]doctor.CheckResult{doctor.FailWarning("c", "")}).Healthy()).To(BeTrue())
	})
})

type checkerFunc struct {
	name string
	fn   func(context.Context) doctor.CheckResult
}

func (c checkerFunc) Name() string                                 { return c.name }
func (checkerFunc) Category() doctor.Category                      { return doctor.CategoryNetwork }
func (c checkerFunc) Check(ctx context.Context) doctor.CheckResult { return c.fn(ctx) }

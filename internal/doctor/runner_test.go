package doctor_test

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/doctor"
	"github.com/smykla-skalski/svm/pkg/logger"
)

var _ = Describe("Runner", func() {
	var (
		registry *doctor.Registry
		reporter *recordingReporter
		out      *bytes.Buffer
		runner   *doctor.Runner
		fixed    *atomic.Bool
	)

	BeforeEach(func() {
		registry = doctor.NewRegistry()
		reporter = &recordingReporter{}
		out = &bytes.Buffer{}
		runner = doctor.NewRunner(registry, reporter, out, logger.NewNoOpLogger())
		fixed = &atomic.Bool{}
	})

	brokenChecker := func() *stubChecker {
		return &stubChecker{
			name:     "pointer",
			category: doctor.CategoryData,
			result:   doctor.FailError("pointer", "dangling").WithFixID("fix_pointer"),
			fixed:    fixed,
		}
	}

	It("succeeds when every check passes", func() {
		registry.RegisterChecker(&stubChecker{name: "ok", category: doctor.CategoryConfig})

		Expect(runner.Run(context.Background(), doctor.RunOptions{})).To(Succeed())
		Expect(reporter.reports).To(HaveLen(1))
		Expect(out.String()).To(BeEmpty())
	})

	It("does not fail on warnings", func() {
		registry.RegisterChecker(&stubChecker{
			name:     "warn",
			category: doctor.CategoryData,
			result:   doctor.FailWarning("warn", "meh"),
		})

		Expect(runner.Run(context.Background(), doctor.RunOptions{})).To(Succeed())
	})

	It("fails with ErrChecksFailed on errors", func() {
		registry.RegisterChecker(&stubChecker{
			name:     "broken",
			category: doctor.CategoryData,
			result:   doctor.FailError("broken", "bad"),
		})

		err := runner.Run(context.Background(), doctor.RunOptions{})
		Expect(errors.Is(err, doctor.ErrChecksFailed)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("1 error(s)"))
	})

	It("suggests fixes without applying them", func() {
		registry.RegisterChecker(brokenChecker())
		registry.RegisterFixer(&stubFixer{id: "fix_pointer", fixed: fixed})

		err := runner.Run(context.Background(), doctor.RunOptions{})
		Expect(errors.Is(err, doctor.ErrChecksFailed)).To(BeTrue())
		Expect(fixed.Load()).To(BeFalse())
		Expect(out.String()).To(ContainSubstring("pointer: repair fix_pointer"))
		Expect(out.String()).To(ContainSubstring("svm doctor --fix"))
	})

	It("applies fixes and re-runs the failed checks", func() {
		checker := brokenChecker()
		registry.RegisterChecker(checker, &stubChecker{name: "other", category: doctor.CategoryConfig})
		registry.RegisterFixer(&stubFixer{id: "fix_pointer", fixed: fixed})

		Expect(runner.Run(context.Background(), doctor.RunOptions{Fix: true})).To(Succeed())
		Expect(fixed.Load()).To(BeTrue())
		Expect(checker.calls.Load()).To(Equal(int32(2)))
		Expect(reporter.reports).To(HaveLen(2))
		Expect(reporter.reports[1]).To(HaveLen(1))
		Expect(reporter.reports[1][0].IsPassed()).To(BeTrue())
	})

	It("wraps fixer errors", func() {
		registry.RegisterChecker(brokenChecker())
		registry.RegisterFixer(&stubFixer{id: "fix_pointer", fixed: fixed, err: errors.New("boom")})

		err := runner.Run(context.Background(), doctor.RunOptions{Fix: true})
		Expect(err).To(MatchError(ContainSubstring(`failed to fix "pointer": boom`)))
	})
})

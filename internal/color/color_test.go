package color_test

import (
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/color"
)

func TestColor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Color Suite")
}

// clearColorEnv unsets every variable Detect reads for the current test.
func clearColorEnv() {
	for _, key := range []string{"NO_COLOR", "CLICOLOR", "TERM", color.EnvMode} {
		if value, ok := os.LookupEnv(key); ok {
			DeferCleanup(os.Setenv, key, value)
		}

		Expect(os.Unsetenv(key)).To(Succeed())
	}
}

var _ = Describe("Detect", func() {
	BeforeEach(clearColorEnv)

	DescribeTable("modes",
		func(env map[string]string, flag bool, expected color.Mode) {
			for k, v := range env {
				GinkgoT().Setenv(k, v)
			}

			Expect(color.Detect(flag)).To(Equal(expected))
		},
		Entry("nothing set", nil, false, color.ModeAuto),
		Entry("--no-color", nil, true, color.ModeNever),
		Entry("empty NO_COLOR", map[string]string{"NO_COLOR": ""}, false, color.ModeNever),
		Entry("CLICOLOR=0", map[string]string{"CLICOLOR": "0"}, false, color.ModeNever),
		Entry("TERM=dumb", map[string]string{"TERM": "dumb"}, false, color.ModeNever),
		Entry("SVM_COLOR=never", map[string]string{color.EnvMode: "never"}, false, color.ModeNever),
		Entry("SVM_COLOR=always beats NO_COLOR",
			map[string]string{color.EnvMode: "Always", "NO_COLOR": "1"}, false, color.ModeAlways),
		Entry("--no-color beats SVM_COLOR=always",
			map[string]string{color.EnvMode: "always"}, true, color.ModeNever),
		Entry("unknown SVM_COLOR falls through", map[string]string{color.EnvMode: "sometimes"}, false, color.ModeAuto),
	)
})

var _ = Describe("Enabled", func() {
	BeforeEach(clearColorEnv)

	It("is false for a pipe in auto mode", func() {
		r, w, err := os.Pipe()
		Expect(err).NotTo(HaveOccurred())

		defer r.Close()
		defer w.Close()

		Expect(color.IsTerminal(r)).To(BeFalse())
		Expect(color.Enabled(w, false)).To(BeFalse())
	})

	It("is true for a pipe with SVM_COLOR=always", func() {
		GinkgoT().Setenv(color.EnvMode, "always")

		r, w, err := os.Pipe()
		Expect(err).NotTo(HaveOccurred())

		defer r.Close()
		defer w.Close()

		Expect(color.Enabled(w, false)).To(BeTrue())
	})

	It("treats regular files and nil as non-terminals", func() {
		f, err := os.CreateTemp(GinkgoT().TempDir(), "color-test-*")
		Expect(err).NotTo(HaveOccurred())

		defer f.Close()

		Expect(color.IsTerminal(f)).To(BeFalse())
		Expect(color.IsTerminal(nil)).To(BeFalse())
	})
})

var _ = Describe("NewTheme", func() {
	It("styles the selected version and errors in bold", func() {
		theme := color.NewTheme(true)
		Expect(theme.Current.GetBold()).To(BeTrue())
		Expect(theme.Error.GetBold()).To(BeTrue())
		Expect(theme.Warning.GetBold()).To(BeFalse())
	})

	It("renders plain text when color is disabled", func() {
		theme := color.NewTheme(false)
		Expect(theme.Installed.Render("0.8.24")).To(Equal("0.8.24"))
		Expect(theme.Warning.Render("!")).To(Equal("!"))
	})

	It("emits ANSI codes when color is enabled, even off a terminal", func() {
		theme := color.NewTheme(true)
		Expect(theme.Error.Render("✗")).To(ContainSubstring("\x1b["))
	})
})

package config

import (
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/pkg/config"
)

var _ = Describe("Validator", func() {
	var validator *Validator

	BeforeEach(func() {
		validator = NewValidator()
	})

	It("rejects a nil config", func() {
		err := validator.Validate(nil)
		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("config is nil"))
	})

	It("accepts empty and default configs", func() {
		Expect(validator.Validate(&config.Config{})).To(Succeed())
		Expect(validator.Validate(DefaultConfig())).To(Succeed())
	})

	It("rejects negative timeouts and retries", func() {
		retries := -1
		cfg := &config.Config{
			Install: &config.InstallConfig{
				RequestTimeout: config.Duration(-time.Second),
			},
			Releases: &config.ReleasesConfig{Retries: &retries},
		}

		err := validator.Validate(cfg)
		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("2 error(s)"))
	})

	DescribeTable("checks release host URLs",
		func(raw string, valid bool) {
			err := validator.Validate(&config.Config{Releases: &config.ReleasesConfig{BaseURL: raw}})
			if valid {
				Expect(err).NotTo(HaveOccurred())

				return
			}

			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		},
		Entry("https", "https://binaries.soliditylang.org", true),
		Entry("http with port", "http://127.0.0.1:8080/mirror", true),
		Entry("relative", "binaries.soliditylang.org", false),
		Entry("ftp", "ftp://example.com", false),
		Entry("no host", "https://", false),
	)

	It("rejects the unsupported platform marker", func() {
		target := platform.Unsupported
		err := validator.Validate(&config.Config{Platform: &config.PlatformConfig{Target: &target}})
		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
	})

	It("rejects unknown log levels", func() {
		err := validator.Validate(&config.Config{Log: &config.LogConfig{Level: "chatty"}})
		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("validation failed with 1 error(s)"))
	})
})

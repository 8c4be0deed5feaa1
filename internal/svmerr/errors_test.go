package svmerr_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/svmerr"
)

func TestSvmerr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Svmerr Suite")
}

var _ = Describe("typed errors", func() {
	It("matches sentinels through wrapping", func() {
		err := errors.Wrap(&svmerr.ChecksumMismatchError{
			Version:  "0.8.10",
			Expected: "aa",
			Actual:   "bb",
		}, "installing")

		Expect(errors.Is(err, svmerr.ErrChecksumMismatch)).To(BeTrue())
		Expect(errors.Is(err, svmerr.ErrTimeout)).To(BeFalse())

		var mismatch *svmerr.ChecksumMismatchError
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		Expect(mismatch.Expected).To(Equal("aa"))
		Expect(mismatch.Actual).To(Equal("bb"))
	})

	It("formats unsupported versions with the platform", func() {
		err := &svmerr.UnsupportedVersionError{Version: "0.4.9", Platform: "linux-aarch64"}

		Expect(err.Error()).To(Equal("unsupported version 0.4.9 for platform linux-aarch64"))
		Expect(errors.Is(err, svmerr.ErrUnsupportedVersion)).To(BeTrue())
	})

	It("reports the wait in timeout errors", func() {
		err := &svmerr.TimeoutError{Version: "0.8.10", Wait: 30 * time.Second}

		Expect(err.Error()).To(ContainSubstring("30s"))
		Expect(errors.Is(err, svmerr.ErrTimeout)).To(BeTrue())
	})

	It("unwraps patch errors to the command error", func() {
		cause := errors.New("exit status 1")
		err := &svmerr.PatchError{Stdout: "out", Stderr: "err", Err: cause}

		Expect(errors.Is(err, svmerr.ErrPatchFailure)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
	})
})

var _ = DescribeTable("Retryable",
	func(err error, want bool) {
		Expect(svmerr.Retryable(err)).To(Equal(want))
	},
	Entry("nil", nil, false),
	Entry("transport", errors.Wrap(svmerr.ErrTransport, "dial"), true),
	Entry("server error", &svmerr.UnsuccessfulResponseError{URL: "u", StatusCode: 503}, true),
	Entry("rate limited", &svmerr.UnsuccessfulResponseError{URL: "u", StatusCode: 429}, true),
	Entry("not found", &svmerr.UnsuccessfulResponseError{URL: "u", StatusCode: 404}, false),
	Entry("decode", errors.Wrap(svmerr.ErrDecode, "json"), false),
	Entry("checksum", &svmerr.ChecksumMismatchError{}, false),
	Entry("unsupported", &svmerr.UnsupportedVersionError{}, false),
)

package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/platform"
)

func TestPlatform(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Platform Suite")
}

func noInfo(context.Context) (string, string, string, error) {
	return "", "", "", errors.New("unavailable")
}

var _ = Describe("NixOSDetector", func() {
	var (
		ctx  context.Context
		root string
	)

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(root, "etc"), 0o755)).To(Succeed())
	})

	It("honors an explicit override", func() {
		yes, no := true, false

		Expect((&platform.NixOSDetector{Override: &yes, GOOS: "darwin"}).IsNixOS(ctx)).To(BeTrue())
		Expect((&platform.NixOSDetector{Override: &no, Root: root}).IsNixOS(ctx)).To(BeFalse())
	})

	It("is false off Linux", func() {
		Expect(os.WriteFile(filepath.Join(root, "etc", "NIXOS"), nil, 0o644)).To(Succeed())

		d := &platform.NixOSDetector{Root: root, GOOS: "darwin", Info: noInfo}
		Expect(d.IsNixOS(ctx)).To(BeFalse())
	})

	It("detects the marker file", func() {
		Expect(os.WriteFile(filepath.Join(root, "etc", "NIXOS"), nil, 0o644)).To(Succeed())

		d := &platform.NixOSDetector{Root: root, GOOS: "linux", Info: noInfo}
		Expect(d.IsNixOS(ctx)).To(BeTrue())
	})

	It("asks the host information provider", func() {
		d := &platform.NixOSDetector{
			Root: root,
			GOOS: "linux",
			Info: func(context.Context) (string, string, string, error) {
				return "nixos", "", "24.05", nil
			},
		}
		Expect(d.IsNixOS(ctx)).To(BeTrue())
	})

	It("falls back to os-release", func() {
		content := "NAME=NixOS\nID=nixos\n"
		Expect(os.WriteFile(filepath.Join(root, "etc", "os-release"), []byte(content), 0o644)).
			To(Succeed())

		d := &platform.NixOSDetector{Root: root, GOOS: "linux", Info: noInfo}
		Expect(d.IsNixOS(ctx)).To(BeTrue())
	})

	It("is false for other distributions", func() {
		content := "NAME=\"Ubuntu\"\nID=ubuntu\n"
		Expect(os.WriteFile(filepath.Join(root, "etc", "os-release"), []byte(content), 0o644)).
			To(Succeed())

		d := &platform.NixOSDetector{
			Root: root,
			GOOS: "linux",
			Info: func(context.Context) (string, string, string, error) {
				return "ubuntu", "debian", "24.04", nil
			},
		}
		Expect(d.IsNixOS(ctx)).To(BeFalse())
	})
})

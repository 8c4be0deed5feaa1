package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/schema"
	"github.com/smykla-skalski/svm/internal/xdg"
	"github.com/smykla-skalski/svm/pkg/config"
)

var _ = Describe("Writer", func() {
	var (
		paths  xdg.PathResolver
		writer *Writer
	)

	BeforeEach(func() {
		paths = xdg.ResolverFor(GinkgoT().TempDir())
		writer = NewWriterWithResolver(paths)
	})

	It("writes a private TOML file that loads back", func() {
		target := platform.MacOsAarch64
		cfg := DefaultConfigFor(paths)
		cfg.DataDir = "/opt/svm"
		cfg.Platform = &config.PlatformConfig{Target: &target}
		cfg.Install.LockTimeout = config.Duration(45 * time.Second)

		Expect(writer.WriteGlobal(cfg, false)).To(Succeed())
		Expect(writer.IsGlobalConfigExists()).To(BeTrue())

		data, err := os.ReadFile(writer.GlobalConfigPath())
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.HasPrefix(string(data), schema.SchemaDirective()+"\n")).To(BeTrue())
		Expect(string(data)).To(ContainSubstring("macosx-aarch64"))

		info, err := os.Stat(writer.GlobalConfigPath())
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(ConfigFileMode)))

		loaded, err := NewKoanfLoaderWithResolver(paths).Load(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.DataDir).To(Equal("/opt/svm"))
		Expect(loaded.Platform.ResolvePlatform()).To(Equal(platform.MacOsAarch64))
		Expect(loaded.Install.GetLockTimeout()).To(Equal(45 * time.Second))
	})

	It("refuses to overwrite without force", func() {
		Expect(writer.WriteGlobal(DefaultConfigFor(paths), false)).To(Succeed())

		err := writer.WriteGlobal(DefaultConfigFor(paths), false)
		Expect(errors.Is(err, ErrConfigExists)).To(BeTrue())

		Expect(writer.WriteGlobal(DefaultConfigFor(paths), true)).To(Succeed())
	})

	It("rejects a nil config", func() {
		err := writer.WriteFile(writer.GlobalConfigPath(), nil)
		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
	})

	It("refuses to write an invalid config", func() {
		cfg := DefaultConfigFor(paths)
		cfg.Install.LockTimeout = config.Duration(-time.Second)

		err := writer.WriteGlobal(cfg, false)
		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		Expect(writer.IsGlobalConfigExists()).To(BeFalse())
	})

	It("replaces the file without leaving temp files behind", func() {
		Expect(writer.WriteGlobal(DefaultConfigFor(paths), false)).To(Succeed())

		cfg := DefaultConfigFor(paths)
		cfg.DataDir = "/srv/solc"
		Expect(writer.WriteGlobal(cfg, true)).To(Succeed())

		entries, err := os.ReadDir(filepath.Dir(writer.GlobalConfigPath()))
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))

		loaded, err := NewKoanfLoaderWithResolver(paths).Load(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.DataDir).To(Equal("/srv/solc"))
	})
})

var _ = Describe("Render", func() {
	It("writes durations as Go duration strings", func() {
		data, err := Render(DefaultConfigFor(xdg.ResolverFor("/home/dev")))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(MatchRegexp(`lock_timeout = .30s.`))
		Expect(string(data)).To(MatchRegexp(`request_timeout = .10m0s.`))
	})
})

package installer_test

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-skalski/svm/internal/exec"
	"github.com/smykla-skalski/svm/internal/installer"
	"github.com/smykla-skalski/svm/internal/lock"
	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/releases"
	"github.com/smykla-skalski/svm/internal/store"
	"github.com/smykla-skalski/svm/internal/svmerr"
)

func TestInstaller(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Installer Suite")
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

func zipWith(name string, content []byte) []byte {
	var buf bytes.Buffer

	w := zip.NewWriter(&buf)
	f, err := w.Create(name)
	Expect(err).NotTo(HaveOccurred())
	_, err = f.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(w.Close()).To(Succeed())

	return buf.Bytes()
}

// release describes one artifact served by the fake release host. A nil
// body lists the release without serving its artifact.
type release struct {
	version  string
	artifact string
	body     []byte
	checksum string
}

var _ = Describe("Installer", func() {
	var (
		ctx       context.Context
		root      string
		st        *store.Store
		server    *httptest.Server
		published []release
		downloads atomic.Int32
		notNixOS  *platform.NixOSDetector
	)

	startServer := func(p platform.Platform) {
		mux := http.NewServeMux()

		mux.HandleFunc("/"+p.String()+"/list.json", func(w http.ResponseWriter, _ *http.Request) {
			var builds, rels string

			for _, r := range published {
				if r.checksum != "" {
					if builds != "" {
						builds += ","
					}

					builds += fmt.Sprintf(`{"version":%q,"sha256":%q}`, r.version, r.checksum)
				}

				if rels != "" {
					rels += ","
				}

				rels += fmt.Sprintf(`%q:%q`, r.version, r.artifact)
			}

			_, _ = fmt.Fprintf(w, `{"builds":[%s],"releases":{%s}}`, builds, rels)
		})

		for _, r := range published {
			if r.body == nil {
				continue
			}

			mux.HandleFunc("/"+p.String()+"/"+r.artifact, func(w http.ResponseWriter, _ *http.Request) {
				downloads.Add(1)
				_, _ = w.Write(r.body)
			})
		}

		server = httptest.NewServer(mux)
	}

	newInstaller := func(p platform.Platform, opts ...installer.Option) *installer.Installer {
		fetcher := releases.NewFetcher(server.Client(), releases.Endpoints{
			BaseURL:            server.URL,
			LegacyPrefix:       server.URL + "/legacy",
			LinuxAarch64Prefix: server.URL + "/aarch64",
			MacOSAarch64Prefix: server.URL + "/native",
		}, releases.WithRetries(0))

		base := []installer.Option{
			installer.WithPlatform(p),
			installer.WithHTTPClient(server.Client()),
			installer.WithNixOSDetector(notNixOS),
			installer.WithLockTimeout(5 * time.Second),
		}

		return installer.New(st, fetcher, append(base, opts...)...)
	}

	rootEntries := func() []string {
		entries, err := os.ReadDir(root)
		Expect(err).NotTo(HaveOccurred())

		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}

		return names
	}

	BeforeEach(func() {
		ctx = context.Background()
		root = filepath.Join(GinkgoT().TempDir(), ".svm")
		st = store.New(root, "solc")
		downloads.Store(0)

		no := false
		notNixOS = &platform.NixOSDetector{Override: &no}

		body := []byte("solc 0.8.10 binary")
		published = []release{
			{"0.8.10", "solc-macosx-amd64-v0.8.10+commit.fc410830", body, "0x" + digest(body)},
		}
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	It("downloads, verifies and places the binary", func() {
		startServer(platform.MacOsAmd64)

		var progressCalls atomic.Int32

		inst := newInstaller(platform.MacOsAmd64, installer.WithProgress(func(int64, int64) {
			progressCalls.Add(1)
		}))

		result, err := inst.Install(ctx, semver.MustParse("0.8.10"))
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Path).To(Equal(filepath.Join(root, "0.8.10", "solc-0.8.10")))
		Expect(result.Size).To(Equal(int64(len(published[0].body))))
		Expect(result.Patched).To(BeFalse())
		Expect(progressCalls.Load()).To(BeNumerically(">", 0))

		data, err := os.ReadFile(result.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(published[0].body))

		if runtime.GOOS != "windows" {
			info, err := os.Stat(result.Path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o755)))
		}

		Expect(rootEntries()).To(ConsistOf(".global-version", "0.8.10"))
	})

	It("reinstalls over an existing binary", func() {
		startServer(platform.MacOsAmd64)
		inst := newInstaller(platform.MacOsAmd64)

		_, err := inst.Install(ctx, semver.MustParse("0.8.10"))
		Expect(err).NotTo(HaveOccurred())

		result, err := inst.Install(ctx, semver.MustParse("0.8.10"))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Path).To(BeAnExistingFile())
		Expect(downloads.Load()).To(Equal(int32(2)))
	})

	It("fails for versions missing from the catalog", func() {
		startServer(platform.MacOsAmd64)

		_, err := newInstaller(platform.MacOsAmd64).Install(ctx, semver.MustParse("0.8.11"))
		Expect(errors.Is(err, svmerr.ErrUnknownVersion)).To(BeTrue())
		Expect(downloads.Load()).To(BeZero())
	})

	It("refuses releases without a checksum", func() {
		published[0].checksum = ""
		startServer(platform.MacOsAmd64)

		_, err := newInstaller(platform.MacOsAmd64).Install(ctx, semver.MustParse("0.8.10"))
		Expect(errors.Is(err, svmerr.ErrMissingChecksum)).To(BeTrue())
		Expect(downloads.Load()).To(BeZero())
	})

	It("rejects unsupported versions before downloading", func() {
		published = append(published, release{"0.3.6", "solc-macosx-amd64-v0.3.6", []byte("x"), "0x00"})
		startServer(platform.MacOsAmd64)

		_, err := newInstaller(platform.MacOsAmd64).Install(ctx, semver.MustParse("0.3.6"))
		Expect(errors.Is(err, svmerr.ErrUnsupportedVersion)).To(BeTrue())
		Expect(downloads.Load()).To(BeZero())
	})

	It("leaves nothing behind on a checksum mismatch", func() {
		published[0].checksum = "0x" + digest([]byte("something else"))
		startServer(platform.MacOsAmd64)

		_, err := newInstaller(platform.MacOsAmd64).Install(ctx, semver.MustParse("0.8.10"))

		var mismatch *svmerr.ChecksumMismatchError
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		Expect(mismatch.Version).To(Equal("0.8.10"))
		Expect(mismatch.Expected).To(Equal(digest([]byte("something else"))))
		Expect(mismatch.Actual).To(Equal(digest(published[0].body)))

		Expect(st.VersionBinary("0.8.10")).NotTo(BeAnExistingFile())
		Expect(rootEntries()).To(ConsistOf(".global-version"))
	})

	It("reports unsuccessful artifact responses", func() {
		published[0].body = nil
		startServer(platform.MacOsAmd64)

		_, err := newInstaller(platform.MacOsAmd64).Install(ctx, semver.MustParse("0.8.10"))

		var resp *svmerr.UnsuccessfulResponseError
		Expect(errors.As(err, &resp)).To(BeTrue())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(resp.URL).To(HaveSuffix("/macosx-amd64/" + published[0].artifact))
		Expect(st.VersionBinary("0.8.10")).NotTo(BeAnExistingFile())
		Expect(rootEntries()).To(ConsistOf(".global-version"))
	})

	It("stops before placement when cancelled", func() {
		startServer(platform.MacOsAmd64)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newInstaller(platform.MacOsAmd64).Install(cctx, semver.MustParse("0.8.10"))
		Expect(err).To(HaveOccurred())
		Expect(st.VersionBinary("0.8.10")).NotTo(BeAnExistingFile())
		Expect(rootEntries()).To(ConsistOf(".global-version"))
	})

	It("times out when the installation lock stays held", func() {
		startServer(platform.MacOsAmd64)
		Expect(st.Setup()).To(Succeed())

		held, err := lock.Acquire(ctx, root, "solc", "0.8.10", time.Second, nil)
		Expect(err).NotTo(HaveOccurred())

		defer func() { _ = held.Release() }()

		inst := newInstaller(platform.MacOsAmd64, installer.WithLockTimeout(100*time.Millisecond))

		_, err = inst.Install(ctx, semver.MustParse("0.8.10"))
		Expect(errors.Is(err, svmerr.ErrTimeout)).To(BeTrue())
		Expect(st.VersionBinary("0.8.10")).NotTo(BeAnExistingFile())
	})

	It("serializes concurrent installs of the same version", func() {
		startServer(platform.MacOsAmd64)
		inst := newInstaller(platform.MacOsAmd64)

		var wg sync.WaitGroup

		errs := make([]error, 4)

		for n := range errs {
			wg.Add(1)

			go func() {
				defer GinkgoRecover()
				defer wg.Done()

				_, errs[n] = inst.Install(ctx, semver.MustParse("0.8.10"))
			}()
		}

		wg.Wait()

		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		data, err := os.ReadFile(st.VersionBinary("0.8.10"))
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(published[0].body))

		versions, err := st.InstalledVersions()
		Expect(err).NotTo(HaveOccurred())
		Expect(versions).To(HaveLen(1))
	})

	It("unpacks legacy zip archives", func() {
		exe := []byte("MZ solc 0.7.1")
		archive := zipWith("solc.exe", exe)

		published = []release{
			{"0.7.1", "solc-windows-amd64-v0.7.1+commit.f4a555be.zip", archive, "0x" + digest(archive)},
		}
		startServer(platform.WindowsAmd64)

		result, err := newInstaller(platform.WindowsAmd64).Install(ctx, semver.MustParse("0.7.1"))
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(result.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(exe))
		Expect(filepath.Join(root, "0.7.1", "solc.exe")).NotTo(BeAnExistingFile())
		Expect(rootEntries()).To(ConsistOf(".global-version", "0.7.1"))
	})

	It("rejects archives escaping the version directory", func() {
		archive := zipWith("../evil", []byte("x"))

		published = []release{
			{"0.7.1", "solc-windows-amd64-v0.7.1.zip", archive, "0x" + digest(archive)},
		}
		startServer(platform.WindowsAmd64)

		_, err := newInstaller(platform.WindowsAmd64).Install(ctx, semver.MustParse("0.7.1"))
		Expect(err).To(MatchError(ContainSubstring("path traversal")))
		Expect(filepath.Join(root, "evil")).NotTo(BeAnExistingFile())
	})

	Describe("NixOS patching", func() {
		var (
			ctrl   *gomock.Controller
			runner *exec.MockCommandRunner
			tools  *exec.MockToolChecker
			nixos  *platform.NixOSDetector
		)

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
			runner = exec.NewMockCommandRunner(ctrl)
			tools = exec.NewMockToolChecker(ctrl)

			yes := true
			nixos = &platform.NixOSDetector{Override: &yes}
		})

		newNixInstaller := func() *installer.Installer {
			return newInstaller(platform.MacOsAmd64,
				installer.WithNixOSDetector(nixos),
				installer.WithCommandRunner(runner),
				installer.WithToolChecker(tools),
			)
		}

		It("patches the placed binary", func() {
			startServer(platform.MacOsAmd64)

			args, err := installer.PatchCommand(st.VersionBinary("0.8.10"))
			Expect(err).NotTo(HaveOccurred())

			tools.EXPECT().RequireTool("nix-shell").Return(nil)
			runner.EXPECT().
				Run(gomock.Any(), "nix-shell", args[0], args[1], args[2], args[3]).
				Return(&exec.CommandResult{})

			result, err := newNixInstaller().Install(ctx, semver.MustParse("0.8.10"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Patched).To(BeTrue())
		})

		It("skips versions below the patch threshold", func() {
			body := []byte("solc 0.7.5")
			published = []release{{"0.7.5", "solc-macosx-amd64-v0.7.5", body, "0x" + digest(body)}}
			startServer(platform.MacOsAmd64)

			result, err := newNixInstaller().Install(ctx, semver.MustParse("0.7.5"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Patched).To(BeFalse())
		})

		It("reports patch failures and keeps the placed binary", func() {
			startServer(platform.MacOsAmd64)

			tools.EXPECT().RequireTool("nix-shell").Return(nil)
			runner.EXPECT().
				Run(gomock.Any(), "nix-shell", gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(&exec.CommandResult{
					Stdout:   "out",
					Stderr:   "patchelf: not an ELF executable",
					ExitCode: 1,
					Err:      errors.New("exit status 1"),
				})

			result, err := newNixInstaller().Install(ctx, semver.MustParse("0.8.10"))

			var patchErr *svmerr.PatchError
			Expect(errors.As(err, &patchErr)).To(BeTrue())
			Expect(patchErr.Stdout).To(Equal("out"))
			Expect(patchErr.Stderr).To(ContainSubstring("not an ELF"))
			Expect(errors.Is(err, svmerr.ErrPatchFailure)).To(BeTrue())
			Expect(st.VersionBinary("0.8.10")).To(BeAnExistingFile())

			Expect(result).NotTo(BeNil())
			Expect(result.Patched).To(BeFalse())
			Expect(result.Path).To(Equal(st.VersionBinary("0.8.10")))
			Expect(result.Version.String()).To(Equal("0.8.10"))
		})

		It("reports a missing nix-shell as a patch failure", func() {
			startServer(platform.MacOsAmd64)

			tools.EXPECT().RequireTool("nix-shell").Return(&exec.ToolNotFoundError{Tool: "nix-shell"})

			_, err := newNixInstaller().Install(ctx, semver.MustParse("0.8.10"))
			Expect(errors.Is(err, svmerr.ErrPatchFailure)).To(BeTrue())
		})
	})
})

var _ = Describe("PatchCommand", func() {
	It("quotes paths for the shell", func() {
		args, err := installer.PatchCommand("/home/a b/.svm/0.8.10/solc-0.8.10")
		Expect(err).NotTo(HaveOccurred())

		Expect(args[:3]).To(Equal([]string{"-p", "patchelf", "--run"}))
		Expect(args[3]).To(Equal(
			`patchelf --set-interpreter "$(cat $NIX_CC/nix-support/dynamic-linker)" ` +
				`'/home/a b/.svm/0.8.10/solc-0.8.10'`,
		))
	})
})

var _ = Describe("VerifyChecksum", func() {
	It("accepts equal digests and reports both on mismatch", func() {
		sum := sha256.Sum256([]byte("a"))
		Expect(installer.VerifyChecksum("0.8.10", sum[:], sum[:])).To(Succeed())

		other := sha256.Sum256([]byte("b"))
		err := installer.VerifyChecksum("0.8.10", other[:], sum[:])
		Expect(err).To(MatchError(ContainSubstring(hex.EncodeToString(sum[:]))))
		Expect(err).To(MatchError(ContainSubstring(hex.EncodeToString(other[:]))))
	})
})

package releases_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/releases"
	"github.com/smykla-skalski/svm/internal/svmerr"
)

var _ = Describe("Fetcher", func() {
	var (
		ctx    context.Context
		mux    *http.ServeMux
		server *httptest.Server
		hits   map[string]*atomic.Int32
	)

	serve := func(path, body string) {
		counter := &atomic.Int32{}
		hits[path] = counter

		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			counter.Add(1)
			_, _ = w.Write([]byte(body))
		})
	}

	newFetcher := func(opts ...releases.FetcherOption) *releases.Fetcher {
		opts = append([]releases.FetcherOption{releases.WithRetryBackoff(time.Millisecond)}, opts...)

		return releases.NewFetcher(server.Client(), releases.Endpoints{
			BaseURL:            server.URL,
			LegacyPrefix:       server.URL + "/legacy",
			LinuxAarch64Prefix: server.URL + "/aarch64",
			MacOSAarch64Prefix: server.URL + "/native",
		}, opts...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)
		hits = map[string]*atomic.Int32{}
	})

	AfterEach(func() {
		server.Close()
	})

	It("unions the bundled legacy manifest for linux-amd64", func() {
		serve("/linux-amd64/list.json", `{"builds":[
			{"version":"0.4.9","sha256":"0x09"},
			{"version":"0.4.10","sha256":"0x10"}],
			"releases":{"0.4.9":"live-0.4.9","0.4.10":"solc-v0.4.10"}}`)
		serve("/legacy/list.json", `{"builds":[
			{"version":"0.4.0","sha256":"0xa0"},
			{"version":"0.4.9","sha256":"0xa9"}],
			"releases":{"0.4.0":"solc-v0.4.0","0.4.9":"solc-v0.4.9"}}`)

		catalog, err := newFetcher().Fetch(ctx, platform.LinuxAmd64)
		Expect(err).NotTo(HaveOccurred())

		Expect(catalog.Releases).To(HaveLen(11))
		Expect(artifactOf(catalog, "0.4.0")).To(Equal("solc-v0.4.0"))
		Expect(artifactOf(catalog, "0.4.9")).To(Equal("live-0.4.9"))
		Expect(hits["/legacy/list.json"].Load()).To(Equal(int32(1)))

		sum, ok := catalog.Checksum(semver.MustParse("0.4.0"))
		Expect(ok).To(BeTrue())
		Expect(sum.String()).To(Equal("a0"))

		sum, ok = catalog.Checksum(semver.MustParse("0.4.9"))
		Expect(ok).To(BeTrue())
		Expect(sum.String()).To(Equal("09"))
	})

	It("lists legacy versions without digests when the legacy host is down", func() {
		serve("/linux-amd64/list.json", `{"builds":[{"version":"0.4.10","sha256":"0x10"}],
			"releases":{"0.4.10":"solc-v0.4.10"}}`)
		mux.HandleFunc("/legacy/list.json", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		catalog, err := newFetcher().Fetch(ctx, platform.LinuxAmd64)
		Expect(err).NotTo(HaveOccurred())

		Expect(catalog.Releases).To(HaveLen(11))
		Expect(artifactOf(catalog, "0.4.3")).To(Equal("solc-v0.4.3"))

		_, ok := catalog.Checksum(semver.MustParse("0.4.3"))
		Expect(ok).To(BeFalse())
	})

	It("uses the pinned snapshot verbatim for linux-aarch64", func() {
		serve("/aarch64/list.json", `{"builds":[{"version":"0.5.0","sha256":"00"}],
			"releases":{"0.5.0":"solc-v0.5.0"}}`)

		catalog, err := newFetcher().Fetch(ctx, platform.LinuxAarch64)
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.Releases).To(Equal(releases.Releases{"0.5.0": "solc-v0.5.0"}))
	})

	It("merges the native and generic manifests for macosx-aarch64", func() {
		serve("/macosx-amd64/list.json", `{"builds":[
			{"version":"0.8.4","sha256":"04"},{"version":"0.8.5","sha256":"05"}],
			"releases":{"0.8.4":"generic-0.8.4","0.8.5":"generic-0.8.5"}}`)
		serve("/native/list.json", `{"builds":[{"version":"0.8.5","sha256":"55"}],
			"releases":{"0.8.5":"native-0.8.5"}}`)

		catalog, err := newFetcher().Fetch(ctx, platform.MacOsAarch64)
		Expect(err).NotTo(HaveOccurred())

		Expect(artifactOf(catalog, "0.8.4")).To(Equal("generic-0.8.4"))
		Expect(artifactOf(catalog, "0.8.5")).To(Equal("native-0.8.5"))
		Expect(hits["/macosx-amd64/list.json"].Load()).To(Equal(int32(1)))
		Expect(hits["/native/list.json"].Load()).To(Equal(int32(1)))
	})

	It("lists all versions ascending", func() {
		serve("/windows-amd64/list.json", `{"builds":[],
			"releases":{"0.7.1":"a.zip","0.4.26":"b.zip","0.8.0":"c.exe"}}`)

		versions, err := newFetcher().AllVersions(ctx, platform.WindowsAmd64)
		Expect(err).NotTo(HaveOccurred())
		Expect(versions).To(HaveLen(3))
		Expect(versions[0].String()).To(Equal("0.4.26"))
		Expect(versions[2].String()).To(Equal("0.8.0"))
	})

	It("rejects the unsupported platform", func() {
		_, err := newFetcher().Fetch(ctx, platform.Unsupported)
		Expect(err).To(MatchError(releases.ErrUnsupportedPlatform))
	})

	It("does not retry client errors", func() {
		var calls atomic.Int32

		mux.HandleFunc("/macosx-amd64/list.json", func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := newFetcher().Fetch(ctx, platform.MacOsAmd64)

		var resp *svmerr.UnsuccessfulResponseError
		Expect(errors.As(err, &resp)).To(BeTrue())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("retries server errors up to the configured bound", func() {
		var calls atomic.Int32

		mux.HandleFunc("/macosx-amd64/list.json", func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)

				return
			}

			_, _ = w.Write([]byte(`{"builds":[],"releases":{"0.8.0":"x"}}`))
		})

		catalog, err := newFetcher(releases.WithRetries(2)).Fetch(ctx, platform.MacOsAmd64)
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.Releases).To(HaveLen(1))
		Expect(calls.Load()).To(Equal(int32(3)))
	})

	It("gives up after the retry bound", func() {
		var calls atomic.Int32

		mux.HandleFunc("/macosx-amd64/list.json", func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := newFetcher(releases.WithRetries(1)).Fetch(ctx, platform.MacOsAmd64)
		Expect(errors.Is(err, svmerr.ErrUnsuccessfulResponse)).To(BeTrue())
		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("surfaces malformed manifests as decode errors", func() {
		serve("/android-aarch64/list.json", `{"builds":`)

		_, err := newFetcher().Fetch(ctx, platform.AndroidAarch64)
		Expect(errors.Is(err, svmerr.ErrDecode)).To(BeTrue())
		Expect(hits["/android-aarch64/list.json"].Load()).To(Equal(int32(1)))
	})

	It("marks transport failures", func() {
		f := newFetcher(releases.WithRetries(0))
		server.Close()

		_, err := f.Fetch(ctx, platform.MacOsAmd64)
		Expect(errors.Is(err, svmerr.ErrTransport)).To(BeTrue())
	})
})

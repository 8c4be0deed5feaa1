package releases_test

import (
	"github.com/Masterminds/semver/v3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/svm/internal/releases"
)

func catalogOf(entries map[string]string) *releases.Catalog {
	c := &releases.Catalog{Releases: releases.Releases{}}

	for v, artifact := range entries {
		c.Builds = append(c.Builds, releases.BuildInfo{
			Version: semver.MustParse(v),
			SHA256:  releases.Checksum(artifact),
		})
		c.Releases[v] = artifact
	}

	return c
}

func artifactOf(c *releases.Catalog, v string) string {
	artifact, _ := c.Artifact(semver.MustParse(v))

	return artifact
}

func checksumOf(c *releases.Catalog, v string) string {
	sum, _ := c.Checksum(semver.MustParse(v))

	return string(sum)
}

var _ = Describe("LegacyCatalog", func() {
	It("covers exactly the legacy window", func() {
		legacy, err := releases.LegacyCatalog()
		Expect(err).NotTo(HaveOccurred())

		Expect(legacy.Releases).To(HaveLen(10))

		versions := legacy.Versions()
		Expect(versions[0].Equal(releases.LegacyMin)).To(BeTrue())
		Expect(versions[len(versions)-1].Equal(releases.LegacyMax)).To(BeTrue())
	})

	It("ships no zero digests", func() {
		legacy, err := releases.LegacyCatalog()
		Expect(err).NotTo(HaveOccurred())

		for _, b := range legacy.Builds {
			Expect(b.SHA256.IsZero()).To(BeFalse(), b.Version.String())
		}

		for _, v := range legacy.Versions() {
			sum, ok := legacy.Checksum(v)
			if ok {
				Expect(sum.IsZero()).To(BeFalse(), v.String())
			}
		}
	})
})

var _ = Describe("WithLegacyDigests", func() {
	var bundled *releases.Catalog

	BeforeEach(func() {
		var err error

		bundled, err = releases.LegacyCatalog()
		Expect(err).NotTo(HaveOccurred())
	})

	It("takes digests for bundled versions from the legacy host", func() {
		host, err := releases.DecodeBytes([]byte(`{"builds":[
			{"version":"0.4.0","sha256":"0xab"},
			{"version":"0.4.9","sha256":"0xcd"}],
			"releases":{"0.4.0":"solc-v0.4.0","0.4.9":"solc-v0.4.9"}}`))
		Expect(err).NotTo(HaveOccurred())

		out := releases.WithLegacyDigests(bundled, host)

		Expect(out.Releases).To(HaveLen(10))
		Expect(out.Builds).To(HaveLen(2))

		sum, ok := out.Checksum(semver.MustParse("0.4.0"))
		Expect(ok).To(BeTrue())
		Expect(sum.String()).To(Equal("ab"))

		_, ok = out.Checksum(semver.MustParse("0.4.5"))
		Expect(ok).To(BeFalse())
	})

	It("ignores host builds outside the window or with zero digests", func() {
		host, err := releases.DecodeBytes([]byte(`{"builds":[
			{"version":"0.4.10","sha256":"0x10"},
			{"version":"0.3.6","sha256":"0x36"},
			{"version":"0.4.1","sha256":"0x0000"}],
			"releases":{}}`))
		Expect(err).NotTo(HaveOccurred())

		out := releases.WithLegacyDigests(bundled, host)

		Expect(out.Builds).To(BeEmpty())
		Expect(out.Releases).To(Equal(bundled.Releases))
	})

	It("does not modify the bundled catalog", func() {
		host := catalogOf(map[string]string{"0.4.2": "digest"})

		out := releases.WithLegacyDigests(bundled, host)
		out.Releases["0.4.2"] = "changed"

		Expect(artifactOf(bundled, "0.4.2")).To(Equal("solc-v0.4.2"))
		Expect(bundled.Builds).To(BeEmpty())
	})
})

var _ = Describe("MergeLegacy", func() {
	It("unions both catalogs with live winning on collision", func() {
		legacy := catalogOf(map[string]string{"0.4.0": "legacy-0.4.0", "0.4.9": "legacy-0.4.9"})
		live := catalogOf(map[string]string{"0.4.9": "live-0.4.9", "0.4.10": "live-0.4.10"})

		merged := releases.MergeLegacy(legacy, live)

		Expect(merged.Releases).To(HaveLen(3))
		Expect(merged.Builds).To(HaveLen(3))
		Expect(artifactOf(merged, "0.4.0")).To(Equal("legacy-0.4.0"))
		Expect(artifactOf(merged, "0.4.9")).To(Equal("live-0.4.9"))
		Expect(checksumOf(merged, "0.4.9")).To(Equal("live-0.4.9"))
		Expect(artifactOf(merged, "0.4.10")).To(Equal("live-0.4.10"))
	})

	It("does not modify its inputs", func() {
		legacy := catalogOf(map[string]string{"0.4.0": "legacy"})
		live := catalogOf(map[string]string{"0.4.0": "live"})

		releases.MergeLegacy(legacy, live)

		Expect(artifactOf(legacy, "0.4.0")).To(Equal("legacy"))
		Expect(artifactOf(live, "0.4.0")).To(Equal("live"))
	})
})

var _ = Describe("MergeMacOSNative", func() {
	It("drops the generic native window and prefers native entries", func() {
		generic := catalogOf(map[string]string{
			"0.8.4":  "generic-0.8.4",
			"0.8.5":  "generic-0.8.5",
			"0.8.24": "generic-0.8.24",
			"0.8.25": "generic-0.8.25",
		})
		native := catalogOf(map[string]string{
			"0.8.5":  "native-0.8.5",
			"0.8.20": "native-0.8.20",
			"0.8.25": "native-0.8.25",
		})

		merged := releases.MergeMacOSNative(generic, native)

		Expect(artifactOf(merged, "0.8.4")).To(Equal("generic-0.8.4"))
		Expect(artifactOf(merged, "0.8.5")).To(Equal("native-0.8.5"))
		Expect(artifactOf(merged, "0.8.20")).To(Equal("native-0.8.20"))
		Expect(artifactOf(merged, "0.8.25")).To(Equal("native-0.8.25"))
		Expect(checksumOf(merged, "0.8.25")).To(Equal("native-0.8.25"))

		_, ok := merged.Artifact(semver.MustParse("0.8.24"))
		Expect(ok).To(BeFalse(), "generic 0.8.24 is inside the dropped window")

		Expect(merged.Releases).To(HaveLen(4))
		Expect(merged.Builds).To(HaveLen(4))
	})
})

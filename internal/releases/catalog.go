// Package releases models the published compiler release manifests and
// resolves where each artifact is downloaded from.
package releases

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/smykla-skalski/svm/internal/svmerr"
)

// Checksum is a raw SHA-256 digest serialized as a hex string.
// Decoding accepts an optional 0x prefix and either letter case; encoding
// always writes 0x-prefixed lower-case hex.
type Checksum []byte

// String returns the digest as lower-case hex without prefix.
func (c Checksum) String() string {
	return hex.EncodeToString(c)
}

// MarshalJSON implements json.Marshaler.
func (c Checksum) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + c.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Checksum) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "checksum must be a string")
	}

	raw, err := ParseChecksum(s)
	if err != nil {
		return err
	}

	*c = raw

	return nil
}

// IsZero reports whether the digest is empty or every byte is zero.
func (c Checksum) IsZero() bool {
	for _, b := range c {
		if b != 0 {
			return false
		}
	}

	return true
}

// JSONSchema returns the JSON Schema for the Checksum type.
func (Checksum) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     "^(0[xX])?([0-9a-fA-F]{2})*$",
		Description: "SHA-256 digest in hex, optionally 0x-prefixed",
	}
}

// ParseChecksum decodes a hex digest with an optional 0x prefix.
func ParseChecksum(s string) (Checksum, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex checksum %q", s)
	}

	return raw, nil
}

// BuildInfo pairs a version with the checksum of its binary.
type BuildInfo struct {
	Version *semver.Version `json:"version"`
	SHA256  Checksum        `json:"sha256"`
}

// Releases maps canonical version strings to artifact file names.
// Keys are normalized through semver on decode so lookups by
// (*semver.Version).String() always hit.
type Releases map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (r *Releases) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Releases, len(raw))

	for key, artifact := range raw {
		v, err := semver.NewVersion(key)
		if err != nil {
			return errors.Wrapf(err, "invalid release version %q", key)
		}

		out[v.String()] = artifact
	}

	*r = out

	return nil
}

// Catalog is the canonical release manifest for one platform.
type Catalog struct {
	Builds   []BuildInfo `json:"builds"`
	Releases Releases    `json:"releases"`
}

// Decode reads a manifest. Unknown fields such as latestRelease are ignored.
// Any syntax or field error, or anything but whitespace after the manifest
// object, wraps svmerr.ErrDecode.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog

	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding release manifest"), svmerr.ErrDecode)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.Mark(
			errors.Newf("trailing data after release manifest at offset %d", dec.InputOffset()),
			svmerr.ErrDecode,
		)
	}

	if c.Releases == nil {
		c.Releases = Releases{}
	}

	for i, b := range c.Builds {
		if b.Version == nil {
			return nil, errors.Mark(
				errors.Newf("build %d has no version", i),
				svmerr.ErrDecode,
			)
		}
	}

	return &c, nil
}

// DecodeBytes is Decode over an in-memory manifest.
func DecodeBytes(data []byte) (*Catalog, error) {
	return Decode(bytes.NewReader(data))
}

// Checksum returns the digest of the first build matching v.
func (c *Catalog) Checksum(v *semver.Version) (Checksum, bool) {
	for _, b := range c.Builds {
		if b.Version.Equal(v) {
			return b.SHA256, true
		}
	}

	return nil, false
}

// Artifact returns the artifact file name published for v.
func (c *Catalog) Artifact(v *semver.Version) (string, bool) {
	artifact, ok := c.Releases[v.String()]

	return artifact, ok
}

// Versions returns every released version in ascending order.
func (c *Catalog) Versions() []*semver.Version {
	versions := make([]*semver.Version, 0, len(c.Releases))

	for key := range c.Releases {
		// keys were validated on decode or inserted from parsed versions
		versions = append(versions, semver.MustParse(key))
	}

	slices.SortFunc(versions, func(a, b *semver.Version) int { return a.Compare(b) })

	return versions
}

// Latest returns the highest released version, or nil for an empty catalog.
func (c *Catalog) Latest() *semver.Version {
	versions := c.Versions()
	if len(versions) == 0 {
		return nil
	}

	return versions[len(versions)-1]
}

// Equal reports structural equality. Digests compare bytewise, so the hex
// case used in the source manifest does not matter.
func (c *Catalog) Equal(other *Catalog) bool {
	if c == nil || other == nil {
		return c == other
	}

	if len(c.Builds) != len(other.Builds) {
		return false
	}

	for i := range c.Builds {
		if !c.Builds[i].Version.Equal(other.Builds[i].Version) ||
			!bytes.Equal(c.Builds[i].SHA256, other.Builds[i].SHA256) {
			return false
		}
	}

	return maps.Equal(c.Releases, other.Releases)
}

// Package platform identifies the host operating system and CPU pair for
// which compiler binaries are published.
package platform

import (
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

//go:generate enumer -type=Platform -linecomment -text -json

// Platform is a supported OS/architecture pair. The zero value is LinuxAmd64
// to keep the declaration order of the published release directories.
type Platform int

const (
	LinuxAmd64     Platform = iota // linux-amd64
	LinuxAarch64                   // linux-aarch64
	MacOsAmd64                     // macosx-amd64
	MacOsAarch64                   // macosx-aarch64
	WindowsAmd64                   // windows-amd64
	AndroidAarch64                 // android-aarch64
	Unsupported                    // Unsupported-platform
)

// ErrUnknownPlatform is returned by Parse for unrecognized identifiers.
var ErrUnknownPlatform = errors.New("unknown platform")

// IsSupported reports whether binaries are published for p.
func (p Platform) IsSupported() bool {
	return p >= LinuxAmd64 && p < Unsupported
}

// IsWindows reports whether p is a Windows target.
func (p Platform) IsWindows() bool {
	return p == WindowsAmd64
}

// All returns every supported platform in declaration order.
func All() []Platform {
	return []Platform{LinuxAmd64, LinuxAarch64, MacOsAmd64, MacOsAarch64, WindowsAmd64, AndroidAarch64}
}

// Parse converts a release directory identifier back to a Platform.
// The Unsupported marker is not a valid input.
func Parse(s string) (Platform, error) {
	p, err := PlatformString(s)
	if err != nil || !p.IsSupported() {
		return Unsupported, errors.Wrapf(ErrUnknownPlatform, "%q", s)
	}

	return p, nil
}

// JSONSchema returns the JSON Schema for the Platform type.
func (Platform) JSONSchema() *jsonschema.Schema {
	names := make([]any, 0, len(All()))
	for _, p := range All() {
		names = append(names, p.String())
	}

	return &jsonschema.Schema{
		Type:        "string",
		Enum:        names,
		Description: "Release platform identifier",
	}
}

// FromGo maps a GOOS/GOARCH pair to a Platform.
func FromGo(goos, goarch string) Platform {
	switch goos {
	case "linux":
		switch goarch {
		case "amd64":
			return LinuxAmd64
		case "arm64":
			return LinuxAarch64
		}
	case "darwin":
		switch goarch {
		case "amd64":
			return MacOsAmd64
		case "arm64":
			return MacOsAarch64
		}
	case "windows":
		if goarch == "amd64" {
			return WindowsAmd64
		}
	case "android":
		if goarch == "arm64" {
			return AndroidAarch64
		}
	}

	return Unsupported
}

// Current returns the platform of the running process.
func Current() Platform {
	return FromGo(runtime.GOOS, runtime.GOARCH)
}

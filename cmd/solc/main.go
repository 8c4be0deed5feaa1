// Command solc runs the selected solc version, or the one named by a
// leading +<version> argument.
//
//	solc --version
//	solc +0.8.20 --bin contract.sol
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	internalconfig "github.com/smykla-skalski/svm/internal/config"
	"github.com/smykla-skalski/svm/internal/svmerr"
	"github.com/smykla-skalski/svm/pkg/svm"
)

// ErrVersionQualifier is returned for +<version> with pre-release or build metadata.
var ErrVersionQualifier = errors.New("version specifier must not have pre-release or build metadata")

func main() {
	os.Exit(mainWithExitCode(os.Args[1:]))
}

func mainWithExitCode(args []string) int {
	code, err := run(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svm: error: %v\n", err)

		return 1
	}

	return code
}

func run(args []string) (int, error) {
	override, args, err := splitVersion(args)
	if err != nil {
		return 1, err
	}

	cfg, err := internalconfig.NewKoanfLoader().Load(nil)
	if err != nil {
		return 1, errors.Wrap(err, "failed to load configuration")
	}

	manager, err := svm.New(cfg)
	if err != nil {
		return 1, err
	}

	version, path, err := manager.ResolveBinary(override)
	if err != nil {
		if errors.Is(err, svmerr.ErrVersionNotInstalled) {
			return 1, errors.Newf(
				"Solc version %s is not installed or does not exist; looked at %s",
				version, manager.VersionBinary(version),
			)
		}

		return 1, err
	}

	return execBinary(path, args)
}

// splitVersion takes a leading +<version> off args.
func splitVersion(args []string) (*semver.Version, []string, error) {
	if len(args) == 0 || !strings.HasPrefix(args[0], "+") {
		return nil, args, nil
	}

	raw := strings.TrimPrefix(args[0], "+")

	v, err := semver.StrictNewVersion(raw)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid version %q", raw)
	}

	if v.Prerelease() != "" || v.Metadata() != "" {
		return nil, nil, ErrVersionQualifier
	}

	return v, args[1:], nil
}

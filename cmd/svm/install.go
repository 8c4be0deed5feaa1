package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/svm/internal/color"
	"github.com/smykla-skalski/svm/internal/report"
	"github.com/smykla-skalski/svm/pkg/svm"
)

var installCmd = &cobra.Command{
	Use:   "install <version>...",
	Short: "Install solc versions",
	Long: `Download, verify and install one or more solc versions.

Versions are installed concurrently. When no version is selected yet, the
first one installed becomes the selected version.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	versions, err := parseVersions(args)
	if err != nil {
		return err
	}

	var opts []svm.Option
	if len(versions) == 1 && color.IsTerminal(os.Stderr) {
		opts = append(opts, svm.WithProgress(printProgress(versions[0])))
	}

	s, err := openSession(opts...)
	if err != nil {
		return err
	}
	defer s.close()

	return installVersions(cmd.Context(), s, versions)
}

// installVersions installs whatever is not installed yet and selects the
// first requested version when nothing is selected.
func installVersions(ctx context.Context, s *session, versions []*semver.Version) error {
	current, err := s.manager.GlobalVersion()
	if err != nil {
		return err
	}

	pending := make([]*semver.Version, 0, len(versions))

	for _, v := range versions {
		if !s.manager.IsInstalled(v) {
			pending = append(pending, v)

			continue
		}

		fmt.Printf("solc %s is already installed\n", v)

		if current == nil || current.Equal(v) {
			continue
		}

		selectIt, err := newPrompter().Confirm("Select it as the global version?", false)
		if err != nil {
			return err
		}

		if selectIt {
			if err := s.manager.SetGlobalVersion(v); err != nil {
				return err
			}

			current = v
			fmt.Printf("Using solc %s\n", v)
		}
	}

	if len(pending) > 0 {
		results, err := s.manager.InstallAll(ctx, pending...)

		for _, res := range results {
			if res != nil {
				fmt.Println(report.Installed(res.Version.String(), res.Path, res.Size, res.Duration, s.theme))
			}
		}

		if err != nil {
			s.log.Error("install failed", "error", err)

			return err
		}
	}

	if current == nil {
		if err := s.manager.SetGlobalVersion(versions[0]); err != nil {
			return errors.Wrap(err, "selecting installed version")
		}

		fmt.Printf("Selected solc %s\n", versions[0])
	}

	return nil
}

func printProgress(v *semver.Version) svm.ProgressFunc {
	return func(received, total int64) {
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\rDownloading solc %s: %s / %s",
				v, humanize.Bytes(uint64(received)), humanize.Bytes(uint64(total))) //nolint:gosec // sizes are non-negative

			if received >= total {
				fmt.Fprintln(os.Stderr)
			}

			return
		}

		fmt.Fprintf(os.Stderr, "\rDownloading solc %s: %s", v, humanize.Bytes(uint64(received))) //nolint:gosec // sizes are non-negative
	}
}

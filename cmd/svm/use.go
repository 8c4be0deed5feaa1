package main

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/svm/internal/svmerr"
)

var installMissing bool

var useCmd = &cobra.Command{
	Use:   "use <version>",
	Short: "Select the solc version the wrapper runs",
	Long: `Select an installed solc version as the global version.

A version that is published but not installed yet is installed first
with --install, or after confirming on a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runUse,
}

func init() {
	rootCmd.AddCommand(useCmd)

	useCmd.Flags().BoolVar(
		&installMissing,
		"install",
		false,
		"Install the version when it is not installed",
	)
}

func runUse(cmd *cobra.Command, args []string) error {
	version, err := parseVersion(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	if !s.manager.IsInstalled(version) {
		install := installMissing
		if !install {
			install, err = newPrompter().Confirm(
				fmt.Sprintf("solc %s is not installed. Install it?", version), false)
			if err != nil {
				return err
			}
		}

		if !install {
			return errors.WithHintf(
				&svmerr.VersionNotInstalledError{Version: version.String()},
				"run 'svm install %s' or pass --install", version,
			)
		}

		if err := installVersions(cmd.Context(), s, []*semver.Version{version}); err != nil {
			return err
		}
	}

	if err := s.manager.SetGlobalVersion(version); err != nil {
		return err
	}

	s.log.Info("global version set", "version", version.String())
	fmt.Printf("Using solc %s\n", version)

	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/svm/internal/report"
)

var (
	outputFormat  string
	installedOnly bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed and available solc versions",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(
		&outputFormat,
		"output",
		"o",
		string(report.FormatTable),
		"Output format (table, json, yaml)",
	)
	listCmd.Flags().BoolVarP(
		&installedOnly,
		"installed",
		"i",
		false,
		"Only list installed versions, without contacting the release host",
	)
}

func runList(cmd *cobra.Command, _ []string) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	current, err := s.manager.GlobalVersion()
	if err != nil {
		return err
	}

	installed, err := s.manager.InstalledVersions()
	if err != nil {
		return err
	}

	var available []*semver.Version

	if !installedOnly {
		available, err = s.manager.AllVersions(cmd.Context())
		if err != nil {
			s.log.Error("fetching releases failed", "error", err)
			fmt.Fprintf(os.Stderr, "Warning: could not fetch available versions: %v\n", err)
		}
	}

	listing := report.NewListing(
		s.manager.Platform().String(),
		current,
		installed,
		available,
		s.manager.VersionBinary,
	)

	return report.Render(os.Stdout, listing, format, s.theme)
}

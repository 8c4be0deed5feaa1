package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whichCmd = &cobra.Command{
	Use:   "which [version]",
	Short: "Print the path of an installed solc binary",
	Long: `Print the path of an installed solc binary.

Without a version, the selected version is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWhich,
}

func init() {
	rootCmd.AddCommand(whichCmd)
}

func runWhich(_ *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	var path string

	if len(args) == 0 {
		_, path, err = s.manager.ResolveBinary(nil)
	} else {
		version, parseErr := parseVersion(args[0])
		if parseErr != nil {
			return parseErr
		}

		path, err = s.manager.Which(version)
	}

	if err != nil {
		return err
	}

	fmt.Println(path)

	return nil
}

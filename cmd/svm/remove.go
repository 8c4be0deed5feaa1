package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const removeAllArg = "all"

var removeCmd = &cobra.Command{
	Use:     "remove <version>|all",
	Aliases: []string{"rm", "uninstall"},
	Short:   "Remove installed solc versions",
	Long: `Remove an installed solc version, or every version with "all".

Removing the selected version selects the highest remaining one, or clears
the selection when none remain.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(_ *cobra.Command, args []string) error {
	if args[0] == removeAllArg {
		return removeAll()
	}

	version, err := parseVersion(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	previous, err := s.manager.GlobalVersion()
	if err != nil {
		return err
	}

	if s.manager.IsInstalled(version) {
		ok, err := newPrompter().Confirm(fmt.Sprintf("Remove solc %s?", version), true)
		if err != nil {
			return err
		}

		if !ok {
			fmt.Println("Nothing removed")

			return nil
		}
	}

	selected, err := s.manager.Uninstall(version)
	if err != nil {
		return err
	}

	fmt.Printf("Removed solc %s\n", version)

	if previous == nil || !previous.Equal(version) {
		return nil
	}

	if selected == nil {
		fmt.Println("No version selected")
	} else {
		fmt.Printf("Using solc %s\n", selected)
	}

	return nil
}

func removeAll() error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ok, err := newPrompter().Confirm("Remove all installed solc versions?", true)
	if err != nil {
		return err
	}

	if !ok {
		fmt.Println("Nothing removed")

		return nil
	}

	if err := s.manager.RemoveAll(); err != nil {
		return err
	}

	fmt.Println("Removed all solc versions")

	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	internalconfig "github.com/smykla-skalski/svm/internal/config"
)

var forceFlag bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage svm configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Write the default configuration to $XDG_CONFIG_HOME/svm/config.toml.

Use --force to overwrite an existing configuration file.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  "Print the configuration after merging defaults, the config file, SVM_* variables and flags.",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(internalconfig.NewWriter().GlobalConfigPath())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)

	configInitCmd.Flags().BoolVarP(
		&forceFlag,
		"force",
		"f",
		false,
		"Overwrite existing configuration file",
	)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	writer := internalconfig.NewWriter()

	if err := writer.WriteGlobal(internalconfig.DefaultConfig(), forceFlag); err != nil {
		if errors.Is(err, internalconfig.ErrConfigExists) {
			return errors.WithHint(err, "use --force to overwrite")
		}

		return errors.Wrap(err, "failed to write configuration")
	}

	fmt.Printf("Configuration written to %s\n", writer.GlobalConfigPath())

	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	data, err := internalconfig.Render(cfg)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(data)

	return err
}

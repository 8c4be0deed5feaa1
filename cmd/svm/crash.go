package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smykla-skalski/svm/internal/crashdump"
	"github.com/smykla-skalski/svm/internal/report"
	"github.com/smykla-skalski/svm/internal/store"
	"github.com/smykla-skalski/svm/pkg/config"
	"github.com/smykla-skalski/svm/pkg/svm"
)

// maxCrashDumps is how many dumps are kept after a new one is written.
const maxCrashDumps = 10

// crashConfig is the loaded configuration, recorded in crash dumps.
var crashConfig *config.Config

// handlePanic writes a crash dump for a recovered panic.
func handlePanic(recovered any) {
	inv := &crashdump.InvocationInfo{Args: os.Args[1:]}
	if cmd, _, err := rootCmd.Find(os.Args[1:]); err == nil {
		inv.Command = cmd.CommandPath()
	}

	if platformFlag != "" {
		inv.Platform = platformFlag
	}

	collector := crashdump.NewCollector(version)
	if crashConfig != nil {
		collector.WithInventory(store.New(crashConfig.DataDir, svm.BinaryName))
	}

	info := collector.Collect(recovered, inv, crashConfig)

	fmt.Fprintf(os.Stderr, "svm crashed: %s\n", info.PanicValue)

	writer, err := crashdump.NewWriter(crashdump.DefaultDir())
	if err != nil {
		return
	}

	path, err := writer.Write(info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write crash dump: %v\n", err)

		return
	}

	_, _ = crashdump.NewStorage(writer.Dir()).Prune(maxCrashDumps)

	fmt.Fprintf(os.Stderr, "crash dump written to %s\n", path)
}

var crashCmd = &cobra.Command{
	Use:   "crash",
	Short: "Inspect crash dumps",
	Long:  "Inspect crash dumps written when svm panics.",
}

var crashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crash dumps, newest first",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		summaries, err := crashdump.NewStorage(crashdump.DefaultDir()).List()
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("No crash dumps")

			return nil
		}

		for _, s := range summaries {
			fmt.Printf("%s  %s ago  %s  %s\n",
				s.ID,
				report.Duration(time.Since(s.Timestamp)),
				report.Size(s.Size),
				s.PanicValue,
			)
		}

		return nil
	},
}

var crashCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all crash dumps",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		removed, err := crashdump.NewStorage(crashdump.DefaultDir()).Prune(0)
		if err != nil {
			return err
		}

		fmt.Printf("Removed %d crash dump(s)\n", removed)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(crashCmd)
	crashCmd.AddCommand(crashListCmd, crashCleanCmd)
}

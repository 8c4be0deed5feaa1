package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for svm.

  $ source <(svm completion bash)
  $ svm completion zsh > "${fpath[1]}/_svm"
  $ svm completion fish > ~/.config/fish/completions/svm.fish
  PS> svm completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:                  runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)

	useCmd.ValidArgsFunction = completeInstalledVersions
	whichCmd.ValidArgsFunction = completeInstalledVersions
	removeCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		versions, directive := completeInstalledVersions(cmd, args, toComplete)
		if len(args) == 0 {
			versions = append(versions, removeAllArg)
		}

		return versions, directive
	}
}

func runCompletion(_ *cobra.Command, args []string) error {
	var err error

	switch args[0] {
	case "bash":
		err = rootCmd.GenBashCompletionV2(os.Stdout, true)
	case "zsh":
		err = rootCmd.GenZshCompletion(os.Stdout)
	case "fish":
		err = rootCmd.GenFishCompletion(os.Stdout, true)
	case "powershell":
		err = rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
	}

	if err != nil {
		return errors.Wrap(err, "failed to generate completion script")
	}

	return nil
}

// completeInstalledVersions offers installed versions for the first argument.
func completeInstalledVersions(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	s, err := openSession()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer s.close()

	installed, err := s.manager.InstalledVersions()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	names := make([]string, 0, len(installed))
	for _, v := range installed {
		names = append(names, v.String())
	}

	return names, cobra.ShellCompDirectiveNoFileComp
}

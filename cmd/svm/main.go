// Package main provides the CLI entry point for svm.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/svm/internal/color"
	internalconfig "github.com/smykla-skalski/svm/internal/config"
	"github.com/smykla-skalski/svm/internal/prompt"
	"github.com/smykla-skalski/svm/pkg/config"
	"github.com/smykla-skalski/svm/pkg/logger"
	"github.com/smykla-skalski/svm/pkg/svm"
)

// ExitCodeCrash indicates an unexpected panic.
const ExitCodeCrash = 3

var (
	dataDirFlag     string
	platformFlag    string
	lockTimeoutFlag time.Duration
	debugMode       bool
	traceMode       bool
	noColorFlag     bool
	assumeYes       bool
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			handlePanic(r)

			exitCode = ExitCodeCrash
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}

		return 1
	}

	return 0
}

var rootCmd = &cobra.Command{
	Use:   "svm",
	Short: "Solidity compiler version manager",
	Long: `svm installs Solidity compiler (solc) releases side by side and selects
the one the solc wrapper runs.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		checkVersionFlag()
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(
		&dataDirFlag,
		"data-dir",
		"",
		"Directory holding installed versions (default: ~/.svm or $XDG_DATA_HOME/svm)",
	)
	flags.StringVar(
		&platformFlag,
		"platform",
		"",
		"Install artifacts for this platform instead of the host (e.g. linux-amd64)",
	)
	flags.DurationVar(
		&lockTimeoutFlag,
		"lock-timeout",
		0,
		"How long to wait for another install of the same version (default: 30s)",
	)
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	flags.BoolVar(&traceMode, "trace", false, "Enable trace logging")
	flags.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every question")
}

// session is what every command that touches the data directory needs.
type session struct {
	cfg     *config.Config
	manager *svm.Manager
	log     logger.Logger
	theme   color.Theme
	close   func()
}

// openSession loads the configuration, opens the log file and builds a
// Manager whose data directory exists.
func openSession(opts ...svm.Option) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	logCfg := cfg.GetLog()

	level, err := logCfg.ResolveLevel()
	if err != nil {
		level = logger.LevelError
	}

	fileLog, err := logger.NewFileLogger(logCfg.File, level)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}

	fileLog.Info("svm invoked", "args", os.Args[1:], "data_dir", cfg.DataDir)

	manager, err := svm.New(cfg, append([]svm.Option{svm.WithLogger(fileLog)}, opts...)...)
	if err != nil {
		_ = fileLog.Close()

		return nil, err
	}

	if err := manager.Setup(); err != nil {
		_ = fileLog.Close()

		return nil, err
	}

	crashConfig = cfg

	return &session{
		cfg:     cfg,
		manager: manager,
		log:     fileLog,
		theme:   color.NewTheme(color.Enabled(os.Stdout, noColorFlag)),
		close:   func() { _ = fileLog.Close() },
	}, nil
}

// newPrompter asks on the terminal, or takes the default answer when
// stdin is not a terminal.
var newPrompter = func() prompt.Prompter {
	return prompt.ForTerminal(assumeYes)
}

// loadConfig loads configuration from all sources with precedence.
func loadConfig() (*config.Config, error) {
	return internalconfig.NewKoanfLoader().Load(buildFlagsMap())
}

// buildFlagsMap converts CLI flags to a map for the config provider.
func buildFlagsMap() map[string]any {
	flags := make(map[string]any)

	if dataDirFlag != "" {
		flags["data-dir"] = dataDirFlag
	}

	if platformFlag != "" {
		flags["platform"] = platformFlag
	}

	if lockTimeoutFlag > 0 {
		flags["lock-timeout"] = lockTimeoutFlag.String()
	}

	flags["debug"] = debugMode
	flags["trace"] = traceMode

	return flags
}

// ErrVersionQualifier is returned for versions with pre-release or build metadata.
var ErrVersionQualifier = errors.New("pre-release and build metadata are not supported")

// parseVersion accepts only plain x.y.z versions.
func parseVersion(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid version %q", s)
	}

	if v.Prerelease() != "" || v.Metadata() != "" {
		return nil, errors.Wrapf(ErrVersionQualifier, "invalid version %q", s)
	}

	return v, nil
}

func parseVersions(args []string) ([]*semver.Version, error) {
	versions := make([]*semver.Version, 0, len(args))

	for _, arg := range args {
		v, err := parseVersion(arg)
		if err != nil {
			return nil, err
		}

		versions = append(versions, v)
	}

	return versions, nil
}

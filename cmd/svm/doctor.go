package main

import (
	"net/http"
	"os"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/svm/internal/color"
	internalconfig "github.com/smykla-skalski/svm/internal/config"
	"github.com/smykla-skalski/svm/internal/doctor"
	configchecker "github.com/smykla-skalski/svm/internal/doctor/checkers/config"
	datachecker "github.com/smykla-skalski/svm/internal/doctor/checkers/data"
	"github.com/smykla-skalski/svm/internal/doctor/checkers/network"
	platformchecker "github.com/smykla-skalski/svm/internal/doctor/checkers/platform"
	"github.com/smykla-skalski/svm/internal/doctor/fixers"
	"github.com/smykla-skalski/svm/internal/doctor/reporters"
	"github.com/smykla-skalski/svm/internal/exec"
	"github.com/smykla-skalski/svm/internal/platform"
	"github.com/smykla-skalski/svm/internal/releases"
	"github.com/smykla-skalski/svm/internal/store"
	"github.com/smykla-skalski/svm/pkg/config"
	"github.com/smykla-skalski/svm/pkg/logger"
	"github.com/smykla-skalski/svm/pkg/svm"
)

var (
	doctorFix        bool
	doctorVerbose    bool
	doctorOffline    bool
	doctorCategories []string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the svm installation for problems",
	Long: `Check the configuration file, the data directory, the target platform
and the release host.

Problems with a known fix are listed; pass --fix to apply them.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	flags := doctorCmd.Flags()
	flags.BoolVar(&doctorFix, "fix", false, "Apply available fixes")
	flags.BoolVarP(&doctorVerbose, "verbose", "v", false, "Show check details")
	flags.BoolVar(&doctorOffline, "offline", false, "Skip checks that reach the release host")
	flags.StringSliceVarP(
		&doctorCategories,
		"category",
		"c",
		nil,
		"Only run these categories (config, data, platform, network)",
	)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	categories, err := parseCategories(doctorCategories, doctorOffline)
	if err != nil {
		return err
	}

	loader := internalconfig.NewKoanfLoader()

	// a broken config is reported by the config check; the rest runs on defaults
	cfg, err := loader.Load(buildFlagsMap())
	if err != nil {
		cfg = internalconfig.DefaultConfig()
		if dataDirFlag != "" {
			cfg.DataDir = dataDirFlag
		}
	}

	logCfg := cfg.GetLog()

	level, err := logCfg.ResolveLevel()
	if err != nil {
		level = logger.LevelError
	}

	fileLog, err := logger.NewFileLogger(logCfg.File, level)
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer func() { _ = fileLog.Close() }()

	registry := newDoctorRegistry(cfg, loader, fileLog)
	reporter := reporters.NewSimpleReporter(os.Stdout, color.NewTheme(color.Enabled(os.Stdout, noColorFlag)))

	return doctor.NewRunner(registry, reporter, os.Stdout, fileLog).Run(cmd.Context(), doctor.RunOptions{
		Verbose:    doctorVerbose,
		Fix:        doctorFix,
		Categories: categories,
	})
}

func newDoctorRegistry(cfg *config.Config, loader *internalconfig.KoanfLoader, log logger.Logger) *doctor.Registry {
	st := store.New(cfg.DataDir, svm.BinaryName)
	target := cfg.GetPlatform().ResolvePlatform()
	fetcher := releases.NewFetcher(
		http.DefaultClient,
		cfg.GetReleases().Endpoints(),
		releases.WithFetcherLogger(log),
		releases.WithRetries(cfg.GetReleases().GetRetries()),
	)

	registry := doctor.NewRegistry()
	registry.RegisterChecker(
		configchecker.NewFileChecker(loader),
		datachecker.NewDirChecker(st),
		datachecker.NewGlobalVersionChecker(st),
		datachecker.NewLeftoversChecker(st, datachecker.DefaultLeftoverAge),
		platformchecker.NewTargetChecker(target),
		platformchecker.NewNixOSChecker(
			platform.NewNixOSDetector(cfg.GetPlatform().NixOS),
			exec.NewToolChecker(),
		),
		network.NewReleasesChecker(fetcher, target),
	)
	registry.RegisterFixer(
		fixers.NewConfigPermissionsFixer(loader.GlobalConfigPath()),
		fixers.NewGlobalVersionFixer(st),
		fixers.NewLeftoversFixer(st, datachecker.DefaultLeftoverAge),
	)

	return registry
}

var allCategories = []doctor.Category{
	doctor.CategoryConfig,
	doctor.CategoryData,
	doctor.CategoryPlatform,
	doctor.CategoryNetwork,
}

// ErrUnknownCategory is returned for a --category value no checker uses.
var ErrUnknownCategory = errors.New("unknown category")

// parseCategories validates names and drops the network category when offline.
// nil means every category.
func parseCategories(names []string, offline bool) ([]doctor.Category, error) {
	var categories []doctor.Category

	for _, name := range names {
		category := doctor.Category(name)

		if !slices.Contains(allCategories, category) {
			return nil, errors.WithHint(
				errors.Wrapf(ErrUnknownCategory, "%q", name),
				"valid categories: config, data, platform, network",
			)
		}

		categories = append(categories, category)
	}

	if !offline {
		return categories, nil
	}

	if len(categories) == 0 {
		categories = allCategories
	}

	online := make([]doctor.Category, 0, len(categories))

	for _, category := range categories {
		if category != doctor.CategoryNetwork {
			online = append(online, category)
		}
	}

	return online, nil
}

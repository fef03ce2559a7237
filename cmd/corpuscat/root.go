package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bpopineau/corpuscat/internal/cancel"
	"github.com/bpopineau/corpuscat/internal/catalog"
	"github.com/bpopineau/corpuscat/internal/config"
	"github.com/bpopineau/corpuscat/internal/errs"
	"github.com/bpopineau/corpuscat/internal/logging"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	logDir     string
	noProgress bool
	verbose    bool
}

// appContext bundles the collaborators every subcommand wires
// together: the resolved configuration, an opened catalog store, a
// logger, and the process-wide cancellation flag.
type appContext struct {
	cfg      *config.Config
	store    *catalog.Store
	logger   *logging.Logger
	cancel   *cancel.Flag
	progress bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "corpuscat",
		Short:         "Catalog files and find duplicates at scale",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "project configuration file (default ./catalog.yaml)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "catalog database path (overrides db.path)")
	root.PersistentFlags().StringVar(&flags.logDir, "log-dir", "", "directory for JSON log output (default logs)")
	root.PersistentFlags().BoolVar(&flags.noProgress, "no-progress", false, "disable progress bars")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug-level console logging")

	root.AddCommand(newScanCmd(flags))
	root.AddCommand(newHashCmd(flags))
	root.AddCommand(newDedupeCmd(flags))
	root.AddCommand(newExportCmd(flags))

	return root
}

// openApp resolves configuration, builds a logger, and then opens the
// catalog store, in that order. A catalog file that does not exist yet
// is created (with its directory) rather than reported; only a failure
// to create or open it surfaces as a configuration error (exit 1).
func openApp(flags *globalFlags, requireCatalog bool) (*appContext, func(), error) {
	loader := config.NewLoader()
	cfg, err := loader.Load(flags.configPath)
	if err != nil {
		return nil, func() {}, err
	}
	if flags.dbPath != "" {
		cfg.DB.Path = flags.dbPath
	}

	logCfg := logging.DefaultConfig()
	if flags.logDir != "" {
		logCfg.LogDir = flags.logDir
	}
	if flags.verbose {
		logCfg.ConsoleLevel = logCfg.ConsoleLevel - 1
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, func() {}, errs.Config("open log file", err)
	}

	var store *catalog.Store
	if requireCatalog {
		if dir := filepath.Dir(cfg.DB.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				_ = logger.Sync()
				return nil, func() {}, errs.Config("create catalog directory "+dir, err)
			}
		}
		store, err = catalog.Open(cfg.DB.Path, cfg.DB.JournalMode, cfg.DB.Synchronous)
		if err != nil {
			_ = logger.Sync()
			return nil, func() {}, errs.Config(fmt.Sprintf("open catalog %s", cfg.DB.Path), err)
		}
	}

	cancelFlag := cancel.New()
	stopWatch := cancel.WatchInterrupt(cancelFlag)

	app := &appContext{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		cancel:   cancelFlag,
		progress: !flags.noProgress,
	}

	cleanup := func() {
		stopWatch()
		if store != nil {
			_ = store.Close()
		}
		_ = logger.Sync()
	}

	return app, cleanup, nil
}

// exitCodeOf maps a returned error to the process exit status per the
// engine's taxonomy: a CatalogError carries its own code, cancellation
// is 130, everything else is a plain misuse/failure (1).
func exitCodeOf(err error) int {
	if err == nil {
		return errs.ExitSuccess.Int()
	}
	var ce *errs.CatalogError
	if errors.As(err, &ce) {
		fmt.Fprintln(os.Stderr, ce.Error())
		return ce.ExitCode.Int()
	}
	fmt.Fprintln(os.Stderr, err.Error())
	return errs.ExitMisuse.Int()
}

package main

import (
	"fmt"
	"io"
	"os"

	"library-ledger/config"
	"library-ledger/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is the state shared by every command once the root pre-run has loaded
// the configuration and the data file.
type app struct {
	cfg    *config.Config
	lib    *library.Library
	logger *zap.Logger
}

// save writes the data file. Failures are reported and logged, never fatal.
func (a *app) save(out io.Writer) bool {
	if err := a.lib.Save(a.cfg.DataFile); err != nil {
		fmt.Fprintf(out, "Failed to save: %v\n", err)
		a.logger.Error("save failed", zap.String("path", a.cfg.DataFile), zap.Error(err))
		return false
	}
	return true
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		configPath string
		dataFile   string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "library",
		Short: "Track a small library's books, borrowers and loans",
		Long: `library keeps books, users and loan records in a single JSON data file.

Run without a subcommand to start the interactive menu.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configPath != "" {
				loaded, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if dataFile != "" {
				cfg.DataFile = dataFile
			}
			a.cfg = cfg

			logger, err := newLogger(cfg, verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger

			lib, err := library.Load(cfg.DataFile, library.WithLogger(logger))
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to read data file: %v\n", err)
				logger.Warn("starting with an empty library", zap.Error(err))
			}
			a.lib = lib
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), a)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVarP(&dataFile, "data", "d", "", "Data file (overrides data_file from the config)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newBooksCmd(a),
		newUsersCmd(a),
		newLoansCmd(a),
		newOverdueCmd(a),
		newAddBookCmd(a),
		newAddUserCmd(a),
		newIssueCmd(a),
		newReturnCmd(a),
		newExportSQLiteCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

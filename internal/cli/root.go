// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli sets up the IncludeGuard command-line interface with Cobra.
// It defines the root command, the subcommands and their flags, and the
// Execute entry point used by the main packages.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/toeirei/includeguard/buildvars"
	"github.com/toeirei/includeguard/internal/analysis"
	"github.com/toeirei/includeguard/internal/config"
	"github.com/toeirei/includeguard/internal/db"
	"github.com/toeirei/includeguard/internal/i18n"
	"github.com/toeirei/includeguard/internal/logging"
)

// app carries the configuration resolved for one invocation.
type app struct {
	cfg config.Config
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd creates the root command with all subcommands attached. Each
// call returns an independent tree, which keeps tests isolated.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "includeguard",
		Short: i18n.T("app.short"),
		Long: `IncludeGuard parses C and C++ sources without a compiler, builds the
include dependency graph and estimates what every #include costs at build
time. It points out includes that look unused, headers that could be
forward-declared and candidates for a precompiled header.`,
		Version:           buildvars.Describe(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default: includeguard.yaml in the user config dir, /etc/includeguard or .)")
	pf.String("db-type", "sqlite", "run history database type (sqlite, postgres, mysql)")
	pf.String("db-dsn", "./includeguard.db", "run history database connection string")
	pf.String("lang", "en", `output language ("en", "de")`)
	pf.Bool("debug", false, "enable debug logging")

	cmd.AddCommand(
		a.newAnalyzeCmd(),
		a.newInspectCmd(),
		a.newCheckCmd(),
		a.newPCHCmd(),
		a.newFixCmd(),
		a.newCICmd(),
		a.newHistoryCmd(),
		a.newQueryCmd(),
		a.newDBCmd(),
		a.newDemoCmd(),
		a.newConfigCmd(),
		a.newDebugCmd(),
		newVersionCmd(),
	)
	return cmd
}

// setup resolves the configuration and initialises i18n and logging for
// every subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path, err := configPathFromFlag(cmd)
	if err != nil {
		return err
	}
	defaults := config.Defaults()
	cfg, err := config.LoadConfig[config.Config](cmd, defaults, path)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// A config file may hold empty values; fall back to the defaults.
	if cfg.Database.Type == "" {
		cfg.Database.Type = defaults["database.type"].(string)
	}
	if cfg.Database.Dsn == "" {
		cfg.Database.Dsn = defaults["database.dsn"].(string)
	}
	if cfg.Language == "" {
		cfg.Language = defaults["language"].(string)
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = analysis.DefaultWorkers
	}

	a.cfg = cfg
	i18n.Init(cfg.Language)
	logging.SetDebug(cfg.Debug)
	db.SetDebug(cfg.Debug)
	logging.Debugf("cli: database %s, language %s", cfg.Database.Type, cfg.Language)
	return nil
}

// configPathFromFlag returns the --config value when the user set it. A
// named file that does not exist is an error.
func configPathFromFlag(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// analysisOptions builds pipeline options for root from the configuration.
func (a *app) analysisOptions(root string) analysis.Options {
	return analysis.Options{
		Root:         root,
		IncludePaths: a.cfg.Analysis.IncludePaths,
		Extensions:   a.cfg.Analysis.Extensions,
		ExcludeDirs:  a.cfg.Analysis.ExcludeDirs,
		MaxFiles:     a.cfg.Analysis.MaxFiles,
		Workers:      a.cfg.Analysis.Workers,
	}
}

// openDB opens and migrates the configured history database.
func (a *app) openDB(ctx context.Context) (*db.Database, error) {
	d, err := db.Open(ctx, a.cfg.Database.Type, a.cfg.Database.Dsn)
	if err != nil {
		return nil, errors.New(i18n.T("config.error_init_db", err))
	}
	return d, nil
}

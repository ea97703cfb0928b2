// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/toeirei/includeguard/buildvars"
	"github.com/toeirei/includeguard/internal/ci"
	"github.com/toeirei/includeguard/internal/config"
	"github.com/toeirei/includeguard/internal/i18n"
	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/report"
	"github.com/toeirei/includeguard/internal/sample"
	"github.com/toeirei/includeguard/internal/service"
)

func (a *app) newCICmd() *cobra.Command {
	var output string
	var failOnThreshold bool
	cmd := &cobra.Command{
		Use:   "ci <report>",
		Short: "Check a saved report against thresholds and render a PR comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			res, err := report.ReadFile(args[0])
			if err != nil {
				return err
			}
			v := ci.Check(res, ci.Thresholds{
				MaxWastePercentage: a.cfg.Thresholds.MaxWastePercentage,
				MaxHighCostUnused:  a.cfg.Thresholds.MaxHighCostUnused,
			})
			comment := ci.PRComment(res, v)
			if output != "" {
				if err := os.WriteFile(output, []byte(comment), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(out, i18n.T("ci.written", output))
			} else {
				fmt.Fprint(out, comment)
			}

			for _, m := range v.Messages {
				logging.Infof("ci: %s", m)
			}
			if v.Passing {
				logging.Infof("%s", i18n.T("ci.passed"))
			} else {
				logging.Warnf("%s", i18n.T("ci.failed"))
			}
			if failOnThreshold {
				return v.Err()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the Markdown comment to this file instead of stdout")
	cmd.Flags().BoolVar(&failOnThreshold, "fail-on-threshold", false, "exit non-zero when a threshold is exceeded")
	cmd.Flags().Float64("max-waste", 50, "maximum allowed waste percentage")
	cmd.Flags().Int("max-high-cost", 5, "maximum allowed number of high-cost unused headers")
	return cmd
}

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded analysis runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			d, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			runs, err := d.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, i18n.T("history.empty"))
				return nil
			}
			fmt.Fprintln(out, i18n.T("history.header"))
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  files=%d includes=%d cost=%.1f waste=%.1f (%.1f%%)  %s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Files, r.Includes,
					r.TotalCost, r.TotalWaste, r.WastePercentage, r.ProjectPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 = all)")
	return cmd
}

func (a *app) newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SQL statement against the history database and print the rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			rows, err := service.RunQuery(cmd.Context(), d, args[0])
			if err != nil {
				return err
			}
			return service.New(cmd.OutOrStdout()).Process(rows)
		},
	}
}

func (a *app) newDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the run history database",
	}
	var timeoutSec int
	maintain := &cobra.Command{
		Use:   "maintain",
		Short: "Run engine-specific maintenance (VACUUM, OPTIMIZE TABLE, PRAGMA optimize)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeoutSec > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
				defer cancel()
			}
			d, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()
			if err := d.Maintain(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("db.maintained"))
			return nil
		},
	}
	maintain.Flags().IntVar(&timeoutSec, "timeout", 0, "timeout in seconds for maintenance (0 means the built-in limit)")
	dbCmd.AddCommand(maintain)
	return dbCmd
}

func (a *app) newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Open the database, pass the handle to its consumers and sort a few numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sample.Run(cmd.Context(), cmd.OutOrStdout(), a.cfg.Database.Type, a.cfg.Database.Dsn)
		},
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the IncludeGuard configuration file",
	}
	var path string
	var system bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			written := path
			if written == "" {
				p, err := config.WriteConfigFile(&a.cfg, system)
				if err != nil {
					return err
				}
				written = p
			} else if err := config.WriteConfigTo(&a.cfg, path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("config.written", written))
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "file to write (default: the user config path)")
	initCmd.Flags().BoolVar(&system, "system", false, "write the system-wide config file instead of the user one")
	configCmd.AddCommand(initCmd)
	return configCmd
}

// newDebugCmd dumps the resolved configuration, the flags and the
// INCLUDEGUARD_* environment.
func (a *app) newDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Dump the resolved configuration, flags and environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "--- INCLUDEGUARD DEBUG ---")
			b, err := yaml.Marshal(&a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "-- config --")
			fmt.Fprint(out, string(b))

			fmt.Fprintln(out, "-- flags --")
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				fmt.Fprintf(out, "%s = %s\n", f.Name, f.Value.String())
			})

			fmt.Fprintln(out, "-- environment (INCLUDEGUARD_*) --")
			var env []string
			for _, e := range os.Environ() {
				if strings.HasPrefix(e, "INCLUDEGUARD_") {
					env = append(env, e)
				}
			}
			sort.Strings(env)
			for _, e := range env {
				fmt.Fprintln(out, e)
			}
			fmt.Fprintln(out, "--- END DEBUG ---")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("version.line", buildvars.Describe()))
		},
	}
}

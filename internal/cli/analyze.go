// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/toeirei/includeguard/internal/analysis"
	"github.com/toeirei/includeguard/internal/estimator"
	"github.com/toeirei/includeguard/internal/fixer"
	"github.com/toeirei/includeguard/internal/fwddecl"
	"github.com/toeirei/includeguard/internal/graph"
	"github.com/toeirei/includeguard/internal/i18n"
	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/model"
	"github.com/toeirei/includeguard/internal/parser"
	"github.com/toeirei/includeguard/internal/pch"
	"github.com/toeirei/includeguard/internal/report"
)

// ErrViolations is returned by the check command when it finds incomplete
// type uses.
var ErrViolations = errors.New("incomplete type uses found")

// dotMaxNodes bounds the DOT output; larger graphs lose their external nodes.
const dotMaxNodes = 100

// inspectDepth limits how far inspect follows resolved user includes.
const inspectDepth = 8

func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("max-files", "m", 0, "analyze at most this many files (0 = all)")
	f.Int("workers", analysis.DefaultWorkers, "number of parallel parser workers")
	f.StringSliceP("ext", "e", nil, "file extensions to scan (default .cpp,.cc,.cxx,.c,.h,.hpp,.hxx,.hh)")
	f.StringSliceP("include", "I", nil, "additional include search path")
}

func (a *app) newAnalyzeCmd() *cobra.Command {
	var output, dot string
	var save bool
	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Analyze a project and estimate the cost of its includes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			logging.Infof("%s", i18n.T("analyze.scanning", args[0]))
			res, err := analysis.Run(cmd.Context(), a.analysisOptions(args[0]))
			if err != nil {
				return err
			}
			logging.Infof("%s", i18n.T("analyze.files_found", res.ParserStats.TotalFiles))

			if output != "" {
				if err := report.WriteFile(output, res); err != nil {
					return err
				}
				fmt.Fprintln(out, i18n.T("analyze.report_written", output))
			}
			if dot != "" {
				if err := writeDOT(dot, res.Graph); err != nil {
					return err
				}
				fmt.Fprintln(out, i18n.T("analyze.dot_written", dot))
			}
			if save {
				d, err := a.openDB(cmd.Context())
				if err != nil {
					return err
				}
				defer func() { _ = d.Close() }()
				run, err := d.SaveRun(cmd.Context(), res.Run())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, i18n.T("analyze.run_saved", run.ID))
			}
			return report.RenderSummary(out, res, report.IsTerminal(out))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file (.json, .yaml, .yml, .json.zst)")
	cmd.Flags().StringVarP(&dot, "dot", "d", "", "write the include graph in Graphviz DOT format")
	cmd.Flags().BoolVar(&save, "save", false, "record the run in the history database")
	addAnalysisFlags(cmd)
	return cmd
}

func writeDOT(path string, g *graph.Graph) error {
	if g == nil {
		g = graph.New()
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.WriteDOT(f, dotMaxNodes); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *app) newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the include costs of a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			p := parser.New(filepath.Dir(path), a.cfg.Analysis.IncludePaths)
			analyses, err := parseWithIncludes(p, path)
			if err != nil {
				return err
			}
			fa := analyses[0]
			byPath := make(map[string]*model.FileAnalysis, len(analyses))
			for i := range analyses {
				byPath[analyses[i].Path] = &analyses[i]
			}
			rep := estimator.New(graph.Build(analyses)).FileReport(fa, byPath)

			fmt.Fprintln(out, i18n.T("inspect.header", fa.Path))
			fmt.Fprintln(out, i18n.T("inspect.metrics", fa.TotalLines, fa.CodeLines, rep.TotalIncludes, rep.TotalEstimatedCost))
			fmt.Fprintln(out, i18n.T("inspect.includes"))
			for _, c := range rep.AllIncludes {
				status := "used"
				if !c.LikelyUsed {
					status = "unused"
				}
				name := pch.Spelling(model.Include{Header: c.Header, IsSystem: c.IsSystem})
				fmt.Fprintf(out, "  line %-4d %-32s %8.1f  %s (%.2f)\n", c.Line, name, c.EstimatedCost, status, c.UsageConfidence)
			}

			fwds := fwddecl.NewDetector().AnalyzeFile(fa.Path, fa)
			if len(fwds) > 0 {
				fmt.Fprintln(out, i18n.T("inspect.forward_decls"))
				for _, f := range fwds {
					fmt.Fprintf(out, "  line %-4d %q -> %s (%.0f%%)\n", f.Line, f.Header, f.Suggestion, f.Confidence*100)
				}
			}
			return nil
		},
	}
	return cmd
}

// parseWithIncludes parses path and every user header it reaches through
// resolved includes. The file itself comes first.
func parseWithIncludes(p *parser.Parser, path string) ([]model.FileAnalysis, error) {
	first, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}
	out := []model.FileAnalysis{*first}
	seen := map[string]bool{first.Path: true}
	frontier := []model.FileAnalysis{*first}
	for depth := 0; depth < inspectDepth && len(frontier) > 0; depth++ {
		var next []model.FileAnalysis
		for _, fa := range frontier {
			for _, inc := range fa.Includes {
				if inc.IsSystem || !filepath.IsAbs(inc.FullPath) || seen[inc.FullPath] {
					continue
				}
				seen[inc.FullPath] = true
				child, err := p.ParseFile(inc.FullPath)
				if err != nil {
					logging.Warnf("inspect: could not read %s: %v", inc.FullPath, err)
					continue
				}
				out = append(out, *child)
				next = append(next, *child)
			}
		}
		frontier = next
	}
	return out, nil
}

func (a *app) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Report uses of forward-declared types that need a full definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			target, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(target)
			if err != nil {
				return err
			}

			root, files := target, []string{target}
			if info.IsDir() {
				files, err = parser.New(root, nil).ListFiles(cmd.Context(), a.cfg.Analysis.Extensions, a.cfg.Analysis.ExcludeDirs)
				if err != nil {
					return err
				}
			} else {
				root = filepath.Dir(target)
			}

			chk := fwddecl.NewChecker(parser.New(root, a.cfg.Analysis.IncludePaths))
			var found []model.Violation
			for _, f := range files {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				v, err := chk.CheckIncompleteUse(f)
				if err != nil {
					logging.Warnf("check: could not read %s: %v", f, err)
					continue
				}
				found = append(found, v...)
			}

			for _, v := range found {
				fmt.Fprintln(out, v.String())
			}
			if len(found) == 0 {
				fmt.Fprintln(out, i18n.T("check.clean"))
				return nil
			}
			return fmt.Errorf("%s: %w", i18n.T("check.found", len(found)), ErrViolations)
		},
	}
	addAnalysisFlags(cmd)
	return cmd
}

func (a *app) newPCHCmd() *cobra.Command {
	var write string
	cmd := &cobra.Command{
		Use:   "pch <path>",
		Short: "Recommend headers for a precompiled header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			res, err := analysis.Run(cmd.Context(), a.analysisOptions(args[0]))
			if err != nil {
				return err
			}
			b := res.PCHBenefit
			fmt.Fprintln(out, i18n.T("pch.candidates", len(res.PCH), b.TotalSavings, b.EstimatedSpeedup))
			for i, r := range res.PCH {
				fmt.Fprintf(out, "%2d. %-28s used by %d file(s), cost %.0f, score %.1f\n", i+1, r.Header, r.UsageCount, r.Cost, r.Score)
			}
			if write != "" {
				if err := os.WriteFile(write, []byte(pch.FileContent(res.PCH, pch.DefaultFileMax)), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(out, i18n.T("pch.written", write))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&write, "write", "", "write the recommended headers to this file (e.g. pch.h)")
	addAnalysisFlags(cmd)
	return cmd
}

func (a *app) newFixCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fix <path>",
		Short: "Generate a patch that removes unused includes and adds forward declarations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			res, err := analysis.Run(cmd.Context(), a.analysisOptions(args[0]))
			if err != nil {
				return err
			}
			r, err := fixer.New(res.ProjectPath, a.cfg.Fix.MinConfidence).Generate(res.Reports, res.ForwardDecls)
			if err != nil {
				return err
			}
			if r.FixesApplied == 0 {
				fmt.Fprintln(out, i18n.T("fix.nothing"))
				return nil
			}
			if output == "-" {
				_, err := fmt.Fprint(out, r.Patch)
				return err
			}
			if err := os.WriteFile(output, []byte(r.Patch), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(out, i18n.T("fix.written", r.FixesApplied, len(r.FilesModified), output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "fixes.patch", `patch file to write ("-" for stdout)`)
	cmd.Flags().Float64("min-confidence", fixer.DefaultMinConfidence, "minimum forward declaration confidence to apply")
	addAnalysisFlags(cmd)
	return cmd
}

// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package analysis runs the full pipeline over a project: parse, build the
// include graph, price every include, and collect forward declaration,
// incomplete type and precompiled header findings.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/toeirei/includeguard/buildvars"
	"github.com/toeirei/includeguard/internal/estimator"
	"github.com/toeirei/includeguard/internal/fwddecl"
	"github.com/toeirei/includeguard/internal/graph"
	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/model"
	"github.com/toeirei/includeguard/internal/parser"
	"github.com/toeirei/includeguard/internal/pch"
	"github.com/toeirei/includeguard/internal/report"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is used when Options.Workers is not positive.
const DefaultWorkers = 4

// Options configures Run.
type Options struct {
	Root         string
	IncludePaths []string
	Extensions   []string
	ExcludeDirs  []string
	// MaxFiles caps the number of files parsed; 0 means no cap.
	MaxFiles int
	Workers  int
	// Now stamps the result; nil uses time.Now.
	Now func() time.Time
}

// Run analyses the project at opts.Root.
func Run(ctx context.Context, opts Options) (*report.Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	p := parser.New(opts.Root, opts.IncludePaths)
	files, err := p.ListFiles(ctx, opts.Extensions, opts.ExcludeDirs)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if opts.MaxFiles > 0 && len(files) > opts.MaxFiles {
		logging.Infof("analysis: limiting to %d of %d files", opts.MaxFiles, len(files))
		files = files[:opts.MaxFiles]
	}

	analyses, err := parseAll(ctx, p, files, workers)
	if err != nil {
		return nil, err
	}
	logging.Debugf("analysis: parsed %d files", len(analyses))

	g := graph.Build(analyses)
	est := estimator.New(g)
	byPath := make(map[string]*model.FileAnalysis, len(analyses))
	for i := range analyses {
		byPath[analyses[i].Path] = &analyses[i]
	}

	reports := make([]model.FileReport, len(analyses))
	fwdPerFile := make([][]model.ForwardDecl, len(analyses))
	violPerFile := make([][]model.Violation, len(analyses))
	det := fwddecl.NewDetector()
	chk := fwddecl.NewChecker(p)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range analyses {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			a := analyses[i]
			reports[i] = est.FileReport(a, byPath)
			fwdPerFile[i] = det.AnalyzeFile(a.Path, a)
			v, err := chk.CheckIncompleteUse(a.Path)
			if err != nil {
				logging.Warnf("analysis: incomplete type check skipped for %s: %v", a.Path, err)
			}
			violPerFile[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &report.Result{
		Version:      buildvars.VersionOrDefault("dev"),
		ProjectPath:  p.Root(),
		GeneratedAt:  now().UTC(),
		ParserStats:  parser.Statistics(analyses),
		GraphStats:   g.Stats(),
		MostIncluded: g.MostIncluded(10),
		Cycles:       g.Cycles(),
		Reports:      reports,
		Summary:      estimator.ProjectSummary(reports),
		ForwardDecls: []model.ForwardDecl{},
		Violations:   []model.Violation{},
		Graph:        g,
	}
	for i := range analyses {
		res.ForwardDecls = append(res.ForwardDecls, fwdPerFile[i]...)
		res.Violations = append(res.Violations, violPerFile[i]...)
	}
	res.PCH = pch.Recommend(analyses, func(inc model.Include) float64 {
		return est.HeaderCost(inc, nil)
	}, pch.DefaultMinUsage, pch.DefaultMax)
	res.PCHBenefit = pch.Benefit(res.PCH)
	if res.Cycles == nil {
		res.Cycles = [][]string{}
	}
	return res, nil
}

// parseAll parses files with at most workers goroutines. The output keeps
// the order of files; unreadable files are dropped.
func parseAll(ctx context.Context, p *parser.Parser, files []string, workers int) ([]model.FileAnalysis, error) {
	results := make([]*model.FileAnalysis, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, f := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			fa, err := p.ParseFile(f)
			if err != nil {
				logging.Warnf("analysis: could not read %s: %v", f, err)
				return nil
			}
			results[i] = fa
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	out := make([]model.FileAnalysis, 0, len(files))
	for _, fa := range results {
		if fa != nil {
			out = append(out, *fa)
		}
	}
	return out, nil
}

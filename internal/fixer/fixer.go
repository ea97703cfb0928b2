// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package fixer turns analysis findings into a patch that git apply accepts.
// Unused expensive includes are removed and includes that only serve
// pointer or reference uses are replaced by forward declarations.
package fixer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/toeirei/includeguard/internal/estimator"
	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/model"
)

// DefaultMinConfidence is the forward declaration confidence required
// before an include line is rewritten.
const DefaultMinConfidence = 0.7

// Result is the outcome of Generate.
type Result struct {
	Patch         string
	FixesApplied  int
	FilesModified []string
}

// Generator builds patches. Paths in the patch are relative to Root when
// possible.
type Generator struct {
	Root          string
	MinConfidence float64
}

// New returns a Generator. A non-positive minConfidence selects
// DefaultMinConfidence.
func New(root string, minConfidence float64) *Generator {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Generator{Root: root, MinConfidence: minConfidence}
}

type edits struct {
	remove  map[int]bool
	replace map[int]string
}

// Generate reads every reported file, applies the fixes that qualify and
// returns the combined unified diff. Files that cannot be read are skipped.
func (g *Generator) Generate(reports []model.FileReport, fwds []model.ForwardDecl) (Result, error) {
	byFile := map[string][]model.ForwardDecl{}
	for _, f := range fwds {
		if f.Confidence >= g.MinConfidence {
			byFile[f.File] = append(byFile[f.File], f)
		}
	}

	var res Result
	var patches []string
	seen := map[string]bool{}
	for _, r := range reports {
		if seen[r.File] {
			continue
		}
		seen[r.File] = true
		data, err := os.ReadFile(r.File)
		if err != nil {
			logging.Warnf("fixer: skipping %s: %v", r.File, err)
			continue
		}
		original := string(data)
		e, n := g.plan(original, r.Opportunities, byFile[r.File])
		if n == 0 {
			continue
		}
		modified := apply(original, e)
		if modified == original {
			continue
		}
		diff := unifiedDiff(g.relative(r.File), original, modified)
		if diff == "" {
			continue
		}
		patches = append(patches, diff)
		res.FixesApplied += n
		res.FilesModified = append(res.FilesModified, r.File)
	}
	sort.Strings(res.FilesModified)
	res.Patch = strings.Join(patches, "")
	return res, nil
}

// plan decides which lines change. Removal wins over replacement.
func (g *Generator) plan(content string, opps []model.CostEntry, fwds []model.ForwardDecl) (edits, int) {
	lineCount := strings.Count(content, "\n") + 1
	e := edits{remove: map[int]bool{}, replace: map[int]string{}}
	n := 0
	for _, o := range opps {
		idx := o.Line - 1
		if o.LikelyUsed || o.EstimatedCost <= estimator.OpportunityThreshold || idx < 0 || idx >= lineCount {
			continue
		}
		if !e.remove[idx] {
			e.remove[idx] = true
			n++
		}
	}
	for _, f := range fwds {
		idx := f.Line - 1
		if idx < 0 || idx >= lineCount || e.remove[idx] || f.Suggestion == "" {
			continue
		}
		if _, ok := e.replace[idx]; !ok {
			n++
		}
		e.replace[idx] = f.Suggestion
	}
	return e, n
}

func apply(content string, e edits) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if e.remove[i] {
			continue
		}
		if s, ok := e.replace[i]; ok {
			out = append(out, s)
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// diffContext is the number of unchanged lines around each hunk.
const diffContext = 3

// unifiedDiff renders a git-style unified diff of one file. Lines keep their
// terminators, so a last line without one differs from the same text with
// one and is followed by the "\ No newline at end of file" marker.
func unifiedDiff(name, a, b string) string {
	al, bl := splitLines(a), splitLines(b)
	groups := difflib.NewMatcher(al, bl).GetGroupedOpCodes(diffContext)
	if len(groups) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", name, name)
	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		fmt.Fprintf(&sb, "@@ -%s +%s @@\n", hunkRange(first.I1, last.I2), hunkRange(first.J1, last.J2))
		for _, c := range group {
			if c.Tag == 'e' {
				writeLines(&sb, ' ', al[c.I1:c.I2])
				continue
			}
			if c.Tag == 'r' || c.Tag == 'd' {
				writeLines(&sb, '-', al[c.I1:c.I2])
			}
			if c.Tag == 'r' || c.Tag == 'i' {
				writeLines(&sb, '+', bl[c.J1:c.J2])
			}
		}
	}
	return sb.String()
}

// splitLines splits s after every newline. A trailing newline does not
// start an extra empty line.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeLines(sb *strings.Builder, prefix byte, lines []string) {
	for _, l := range lines {
		sb.WriteByte(prefix)
		sb.WriteString(l)
		if !strings.HasSuffix(l, "\n") {
			sb.WriteString("\n\\ No newline at end of file\n")
		}
	}
}

// hunkRange formats a 0-based half-open line range as start,length.
func hunkRange(start, stop int) string {
	n := stop - start
	switch n {
	case 1:
		return fmt.Sprintf("%d", start+1)
	case 0:
		return fmt.Sprintf("%d,0", start)
	}
	return fmt.Sprintf("%d,%d", start+1, n)
}

func (g *Generator) relative(path string) string {
	if g.Root != "" {
		if rel, err := filepath.Rel(g.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(strings.TrimPrefix(path, "/"))
}

// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package parser extracts #include directives and simple size metrics from
// C and C++ sources with regular expressions. It needs no compiler.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/model"
)

// ErrNotSource is returned by ParseFile for a directory or other non-regular file.
var ErrNotSource = errors.New("not a regular source file")

// DefaultExtensions are scanned when the caller passes none.
var DefaultExtensions = []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp", ".hxx", ".hh"}

// DefaultExcludeDirs are skipped when the caller passes none.
var DefaultExcludeDirs = []string{
	"build", "cmake-build", "cmake-build-debug", "cmake-build-release",
	".git", ".svn", "node_modules", "venv", "env", "__pycache__",
}

var headerExts = map[string]bool{".h": true, ".hpp": true, ".hxx": true, ".hh": true}

var (
	includeRe    = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*([<"])([^>"\n]+)([>"])`)
	lineComment  = regexp.MustCompile(`(?m)//.*$`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	templateRe   = regexp.MustCompile(`\btemplate\s*<`)
	macroRe      = regexp.MustCompile(`(?m)^\s*#\s*define\s+`)
	namespaceRe  = regexp.MustCompile(`\bnamespace\s+\w+`)
	classRe      = regexp.MustCompile(`\b(?:class|struct)\s+\w+`)
)

// IsHeader reports whether path has a header extension.
func IsHeader(path string) bool {
	return headerExts[strings.ToLower(filepath.Ext(path))]
}

// StripComments removes /* */ and // comments from src.
func StripComments(src string) string {
	return lineComment.ReplaceAllString(blockComment.ReplaceAllString(src, ""), "")
}

// Parser resolves includes against a project root and extra search paths.
type Parser struct {
	root         string
	includePaths []string
}

// New returns a Parser for root. The root is searched before includePaths.
func New(root string, includePaths []string) *Parser {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	paths := []string{absRoot}
	for _, p := range includePaths {
		if abs, err := filepath.Abs(p); err == nil {
			paths = append(paths, abs)
		}
	}
	return &Parser{root: absRoot, includePaths: paths}
}

// Root returns the absolute project root.
func (p *Parser) Root() string { return p.root }

// ParseFile reads path and returns its includes and metrics.
func (p *Parser) ParseFile(path string) (*model.FileAnalysis, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotSource)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return p.ParseSource(abs, string(data)), nil
}

// ParseSource analyses content as if it were read from path.
func (p *Parser) ParseSource(path, content string) *model.FileAnalysis {
	fa := &model.FileAnalysis{Path: path, Includes: []model.Include{}}

	for _, m := range includeRe.FindAllStringSubmatchIndex(content, -1) {
		open := content[m[2]:m[3]]
		header := strings.TrimSpace(content[m[4]:m[5]])
		closing := content[m[6]:m[7]]
		if (open == "<" && closing != ">") || (open == `"` && closing != `"`) {
			continue
		}
		isSystem := open == "<"
		fa.Includes = append(fa.Includes, model.Include{
			Header:   header,
			Line:     strings.Count(content[:m[0]], "\n") + 1,
			IsSystem: isSystem,
			FullPath: p.resolve(header, path, isSystem),
		})
	}

	lines := strings.Split(content, "\n")
	fa.TotalLines = len(lines)
	for _, l := range strings.Split(StripComments(content), "\n") {
		if strings.TrimSpace(l) != "" {
			fa.CodeLines++
		}
	}
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			fa.BlankLines++
		}
	}
	fa.CommentLines = max(0, fa.TotalLines-fa.CodeLines-fa.BlankLines)

	fa.HasTemplates = templateRe.MatchString(content)
	fa.HasMacros = macroRe.MatchString(content)
	fa.NamespaceCount = len(namespaceRe.FindAllString(content, -1))
	fa.ClassCount = len(classRe.FindAllString(content, -1))
	return fa
}

// resolve finds the file a user include refers to: next to the including
// file first, then along the search paths. System includes and unresolved
// user includes are returned as written, system ones in angle brackets.
func (p *Parser) resolve(header, source string, isSystem bool) string {
	if isSystem {
		return "<" + header + ">"
	}
	candidates := []string{filepath.Join(filepath.Dir(source), header)}
	for _, ip := range p.includePaths {
		candidates = append(candidates, filepath.Join(ip, header))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			if abs, err := filepath.Abs(c); err == nil {
				return filepath.Clean(abs)
			}
		}
	}
	return header
}

// ListFiles returns the source files under the root with one of the given
// extensions, skipping excluded directory names. Nil arguments select the
// defaults. The result is sorted.
func (p *Parser) ListFiles(ctx context.Context, extensions, excludeDirs []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if excludeDirs == nil {
		excludeDirs = DefaultExcludeDirs
	}
	exts := map[string]bool{}
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	skip := map[string]bool{}
	for _, d := range excludeDirs {
		skip[d] = true
	}

	var files []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warnf("parser: cannot read %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != p.root && skip[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ParseProject parses every source file under the root. Unreadable files
// are logged and skipped.
func (p *Parser) ParseProject(ctx context.Context, extensions, excludeDirs []string) ([]model.FileAnalysis, error) {
	files, err := p.ListFiles(ctx, extensions, excludeDirs)
	if err != nil {
		return nil, err
	}
	logging.Debugf("parser: scanning %s, %d candidate files", p.root, len(files))
	out := make([]model.FileAnalysis, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fa, err := p.ParseFile(f)
		if err != nil {
			logging.Warnf("parser: could not read %s: %v", f, err)
			continue
		}
		out = append(out, *fa)
	}
	return out, nil
}

// Statistics aggregates analyses. Empty input yields the zero value.
func Statistics(analyses []model.FileAnalysis) model.ParserStats {
	var s model.ParserStats
	if len(analyses) == 0 {
		return s
	}
	s.TotalFiles = len(analyses)
	for _, a := range analyses {
		s.TotalIncludes += len(a.Includes)
		for _, inc := range a.Includes {
			if inc.IsSystem {
				s.SystemIncludes++
			}
		}
		s.TotalLines += a.TotalLines
		s.TotalCodeLines += a.CodeLines
		if a.HasTemplates {
			s.FilesWithTemplates++
		}
		if a.HasMacros {
			s.FilesWithMacros++
		}
	}
	s.UserIncludes = s.TotalIncludes - s.SystemIncludes
	s.AvgIncludesPerFile = float64(s.TotalIncludes) / float64(s.TotalFiles)
	s.AvgLinesPerFile = float64(s.TotalLines) / float64(s.TotalFiles)
	return s
}

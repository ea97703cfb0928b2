// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package fwddecl works on the boundary between a forward declaration and
// a full type definition. The Detector proposes includes that could become
// forward declarations; the Checker reports code that uses a
// forward-declared type as if its definition were visible.
package fwddecl

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/model"
)

// MinConfidence is the lowest confidence a suggestion is reported with.
const MinConfidence = 0.5

var skipKeywords = []string{"util", "common", "helper", "types"}

var (
	pointerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\w+)\s*\*`),
		regexp.MustCompile(`\b(\w+)\s*&`),
		regexp.MustCompile(`<\s*(\w+)\s*\*\s*>`),
		regexp.MustCompile(`unique_ptr\s*<\s*(\w+)`),
		regexp.MustCompile(`shared_ptr\s*<\s*(\w+)`),
		regexp.MustCompile(`weak_ptr\s*<\s*(\w+)`),
	}
	definitionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\w+)\s+\w+\s*;`),
		regexp.MustCompile(`sizeof\s*\(\s*(\w+)`),
		regexp.MustCompile(`new\s+(\w+)\s*[\(\{]`),
		regexp.MustCompile(`\b(\w+)\s+\w+\s*[\(\{]`),
	}
	stringLit = regexp.MustCompile(`"[^"\n]*"`)
	charLit   = regexp.MustCompile(`'[^'\n]*'`)
)

// ClassName guesses the class a header declares from its file name:
// widget_impl.h -> Widget, http-client.hpp -> HttpClient, parser.h -> Parser.
func ClassName(header string) string {
	base := filepath.Base(header)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "_impl", "")
	name = strings.ReplaceAll(name, "_fwd", "")
	if name == "" {
		return ""
	}
	if strings.ContainsAny(name, "_-") {
		var b strings.Builder
		for _, part := range strings.Split(strings.ReplaceAll(name, "-", "_"), "_") {
			if part == "" {
				continue
			}
			b.WriteString(strings.ToUpper(part[:1]))
			b.WriteString(strings.ToLower(part[1:]))
		}
		return b.String()
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// stripCode blanks comments and string contents while keeping line breaks,
// so line numbers still match the source.
func stripCode(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); i++ {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				b.WriteByte('\n')
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				end = len(src) - i - 2
			}
			b.WriteString(strings.Repeat("\n", strings.Count(src[i:i+2+end], "\n")))
			i += end + 3
		default:
			b.WriteByte(src[i])
		}
	}
	out := stringLit.ReplaceAllString(b.String(), `""`)
	return charLit.ReplaceAllString(out, "''")
}

// Detector finds includes that could be replaced by forward declarations.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector { return &Detector{} }

// AnalyzeFile reads path and proposes forward declarations for the user
// includes of a. Unreadable files yield no suggestions.
func (d *Detector) AnalyzeFile(path string, a model.FileAnalysis) []model.ForwardDecl {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Debugf("fwddecl: cannot read %s: %v", path, err)
		return nil
	}
	return d.AnalyzeSource(path, string(data), a)
}

// AnalyzeSource is AnalyzeFile over already loaded content.
func (d *Detector) AnalyzeSource(path, content string, a model.FileAnalysis) []model.ForwardDecl {
	content = stripCode(content)
	var out []model.ForwardDecl
	for _, inc := range a.Includes {
		if inc.IsSystem || skipHeader(inc.Header) {
			continue
		}
		name := ClassName(inc.Header)
		if name == "" || !strings.Contains(content, name) {
			continue
		}
		if !matchesAny(pointerPatterns, content, name) || matchesAny(definitionPatterns, content, name) {
			continue
		}
		conf := confidence(content, name)
		if conf < MinConfidence {
			continue
		}
		out = append(out, model.ForwardDecl{
			File:       path,
			Header:     inc.Header,
			ClassName:  name,
			Line:       inc.Line,
			Confidence: math.Round(conf*100) / 100,
			Suggestion: fmt.Sprintf("class %s;", name),
		})
	}
	return out
}

func skipHeader(header string) bool {
	lower := strings.ToLower(header)
	for _, k := range skipKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func countMatches(patterns []*regexp.Regexp, content, name string) int {
	n := 0
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if strings.Contains(m[1], name) {
				n++
			}
		}
	}
	return n
}

func matchesAny(patterns []*regexp.Regexp, content, name string) bool {
	return countMatches(patterns, content, name) > 0
}

func confidence(content, name string) float64 {
	c := 0.6
	c += math.Min(float64(countMatches(pointerPatterns, content, name))*0.1, 0.3)
	c -= math.Min(float64(countMatches(definitionPatterns, content, name))*0.15, 0.4)
	sig := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*[\*&]`)
	if sig.MatchString(content) {
		c += 0.1
	}
	return math.Max(0, math.Min(1, c))
}

// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

package fwddecl

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/model"
	"github.com/toeirei/includeguard/internal/parser"
)

var (
	forwardRe    = regexp.MustCompile(`(?m)^[ \t]*(?:class|struct)\s+(\w+)\s*;`)
	definitionRe = regexp.MustCompile(`\b(?:class|struct)\s+(\w+)\s*(?:final\s*)?(?::[^;{]*)?\{`)
	// Declarations that name X by value without needing its size.
	nonObjectDeclRe = regexp.MustCompile(`^\s*(?:typedef|extern|friend)\b`)
	typeBodyRe      = regexp.MustCompile(`\b(?:class|struct|union)\b`)
)

// typeRules holds the patterns compiled for one forward-declared type.
type typeRules struct {
	name     string
	handles  *regexp.Regexp // X* v, X& v, const X* v
	smart    *regexp.Regexp // unique_ptr<X> v and friends
	byValue  *regexp.Regexp
	needDefs []*regexp.Regexp
}

func rulesFor(name string) typeRules {
	q := regexp.QuoteMeta(name)
	return typeRules{
		name:    name,
		handles: regexp.MustCompile(`\b` + q + `\s*(?:const\s*)?[\*&]+\s*(?:const\s+)?(\w+)`),
		smart:   regexp.MustCompile(`(?:unique_ptr|shared_ptr|weak_ptr)\s*<\s*` + q + `\s*>\s*(\w+)`),
		// Function declarations returning X are legal with an incomplete
		// type and are not matched.
		byValue: regexp.MustCompile(`(?:^|[;{}]|\s)` + q + `\s+\w+\s*(?:;|=|\{)`),
		needDefs: []*regexp.Regexp{
			regexp.MustCompile(`\bsizeof\s*\(\s*` + q + `\s*\)`),
			regexp.MustCompile(`\bnew\s+` + q + `\b`),
			regexp.MustCompile(`\b(?:class|struct)\s+\w+\s*:\s*(?:(?:public|protected|private|virtual)\s+)*` + q + `\b`),
		},
	}
}

// Checker reports uses of forward-declared types whose definition is not
// visible in the translation unit.
type Checker struct {
	parser *parser.Parser
	// maxDepth bounds how far user includes are followed when looking for
	// definitions.
	maxDepth int
}

// NewChecker returns a Checker that resolves includes with p.
func NewChecker(p *parser.Parser) *Checker {
	return &Checker{parser: p, maxDepth: 8}
}

// CheckIncompleteUse reads path and checks it.
func (c *Checker) CheckIncompleteUse(path string) ([]model.Violation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.CheckSource(path, string(data)), nil
}

// CheckSource checks src as if it were the file name. Includes are
// resolved relative to name.
func (c *Checker) CheckSource(name, src string) []model.Violation {
	code := stripCode(src)

	declared := map[string]bool{}
	for _, m := range forwardRe.FindAllStringSubmatch(code, -1) {
		declared[m[1]] = true
	}
	if len(declared) == 0 {
		return nil
	}
	defined := definitions(code)
	c.collectIncluded(c.parser.ParseSource(name, src), defined, map[string]bool{}, 0)

	var incomplete []string
	for t := range declared {
		if !defined[t] {
			incomplete = append(incomplete, t)
		}
	}
	sort.Strings(incomplete)

	lines := strings.Split(code, "\n")
	srcLines := strings.Split(src, "\n")
	var out []model.Violation
	for _, t := range incomplete {
		out = append(out, findUses(name, rulesFor(t), code, lines, srcLines)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	if len(out) > 0 {
		logging.Debugf("fwddecl: %s: %d incomplete type use(s)", name, len(out))
	}
	return out
}

func definitions(code string) map[string]bool {
	defs := map[string]bool{}
	for _, m := range definitionRe.FindAllStringSubmatch(code, -1) {
		defs[m[1]] = true
	}
	return defs
}

// collectIncluded adds the definitions found in every resolved user include
// of a, following nested includes.
func (c *Checker) collectIncluded(a *model.FileAnalysis, defined, seen map[string]bool, depth int) {
	if depth >= c.maxDepth {
		return
	}
	for _, inc := range a.Includes {
		if inc.IsSystem || inc.FullPath == inc.Header || seen[inc.FullPath] {
			continue
		}
		seen[inc.FullPath] = true
		data, err := os.ReadFile(inc.FullPath)
		if err != nil {
			logging.Debugf("fwddecl: cannot read %s: %v", inc.FullPath, err)
			continue
		}
		for t := range definitions(stripCode(string(data))) {
			defined[t] = true
		}
		c.collectIncluded(c.parser.ParseSource(inc.FullPath, string(data)), defined, seen, depth+1)
	}
}

// span is a half-open byte range of the stripped code.
type span struct{ from, to int }

func (s span) contains(off int) bool { return off >= s.from && off < s.to }

// pairs returns the ranges between matching left and right delimiters,
// ordered by their opening position. An unclosed range runs to the end.
func pairs(code string, left, right byte) []span {
	var out []span
	var stack []int
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case left:
			stack = append(stack, len(out))
			out = append(out, span{from: i, to: len(code)})
		case right:
			if n := len(stack); n > 0 {
				out[stack[n-1]].to = i + 1
				stack = stack[:n-1]
			}
		}
	}
	return out
}

// innermost returns the range that most closely encloses off.
func innermost(spans []span, off int) (span, bool) {
	var best span
	found := false
	for _, s := range spans {
		if s.from >= off {
			break
		}
		if off < s.to {
			best, found = s, true
		}
	}
	return best, found
}

// bindingScope returns where a handle variable declared at off is visible.
// A parameter lives until the end of the function body that follows its
// list; a local lives until its block closes. Members and globals stay
// visible for the rest of the file.
func bindingScope(code string, braces, parens []span, off int) span {
	block, inBlock := innermost(braces, off)
	if list, ok := innermost(parens, off); ok && (!inBlock || list.from > block.from) {
		rest := code[list.to:]
		if i := strings.IndexAny(rest, "{;"); i >= 0 && rest[i] == '{' {
			for _, b := range braces {
				if b.from == list.to+i {
					return span{off, b.to}
				}
			}
		}
		return span{off, list.to}
	}
	if !inBlock {
		return span{off, len(code)}
	}
	head := code[strings.LastIndexAny(code[:block.from], ";{}")+1 : block.from]
	if typeBodyRe.MatchString(head) {
		return span{off, len(code)}
	}
	return span{off, block.to}
}

func findUses(file string, r typeRules, code string, lines, srcLines []string) []model.Violation {
	braces := pairs(code, '{', '}')
	parens := pairs(code, '(', ')')
	scopes := map[string][]span{}
	bind := func(re *regexp.Regexp) {
		for _, m := range re.FindAllStringSubmatchIndex(code, -1) {
			v := code[m[2]:m[3]]
			scopes[v] = append(scopes[v], bindingScope(code, braces, parens, m[0]))
		}
	}
	bind(r.handles)
	bind(r.smart)

	lineStarts := []int{0}
	for i := 0; i < len(code); i++ {
		if code[i] == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	lineOf := func(off int) int {
		return sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > off }) - 1
	}

	hits := map[int]bool{}
	if len(scopes) > 0 {
		names := make([]string, 0, len(scopes))
		for v := range scopes {
			names = append(names, regexp.QuoteMeta(v))
		}
		sort.Strings(names)
		access := regexp.MustCompile(`\b(` + strings.Join(names, "|") + `)\s*(?:->|\.)\s*\w+`)
		for _, m := range access.FindAllStringSubmatchIndex(code, -1) {
			for _, sc := range scopes[code[m[2]:m[3]]] {
				if sc.contains(m[0]) {
					hits[lineOf(m[0])] = true
					break
				}
			}
		}
	}

	var out []model.Violation
	for i, line := range lines {
		hit := hits[i] || (r.byValue.MatchString(line) && !nonObjectDeclRe.MatchString(line))
		for _, re := range r.needDefs {
			if hit {
				break
			}
			hit = re.MatchString(line)
		}
		if !hit {
			continue
		}
		text := line
		if i < len(srcLines) {
			text = srcLines[i]
		}
		out = append(out, model.Violation{
			File: file,
			Line: i + 1,
			Type: r.name,
			Kind: model.IncompleteTypeUse,
			Text: strings.TrimSpace(text),
		})
	}
	return out
}

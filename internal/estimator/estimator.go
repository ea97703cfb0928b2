// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package estimator scores includes by their likely compile-time cost
// without running a compiler, and guesses whether each include is used.
package estimator

import (
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/toeirei/includeguard/internal/graph"
	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/model"
)

// Cost units are relative; only their ordering matters.
const (
	TemplateMultiplier = 1.5
	MacroMultiplier    = 1.2

	systemDefaultCost = 300
	userDefaultCost   = 150

	// OpportunityThreshold is the cost above which an unused include is
	// worth reporting.
	OpportunityThreshold = 500
)

type knownHeader struct {
	name string
	cost float64
}

// knownHeaders is matched by substring in this order, so a shorter name
// listed first wins (e.g. "map" before "unordered_map").
var knownHeaders = []knownHeader{
	{"iostream", 1500}, {"iomanip", 800}, {"sstream", 700}, {"fstream", 900},
	{"vector", 800}, {"map", 900}, {"unordered_map", 1000}, {"set", 850},
	{"unordered_set", 950}, {"deque", 750}, {"list", 700}, {"array", 500},
	{"algorithm", 1200}, {"iterator", 600}, {"numeric", 650}, {"functional", 950},
	{"string", 700}, {"regex", 2000},
	{"memory", 850}, {"shared_ptr", 800}, {"unique_ptr", 700},
	{"chrono", 1100}, {"ctime", 400},
	{"thread", 1200}, {"mutex", 900}, {"atomic", 800}, {"condition_variable", 950},
	{"cmath", 600}, {"complex", 800}, {"random", 1300},
	{"utility", 500}, {"tuple", 700}, {"variant", 900}, {"optional", 750}, {"any", 800},
	{"boost/", 3000}, {"boost/algorithm", 2500}, {"boost/asio", 4000},
	{"boost/spirit", 5000}, {"boost/fusion", 3500},
	{"eigen/", 2500}, {"opencv", 3500}, {"tensorflow", 4500}, {"qt", 2000},
}

var knownExact = func() map[string]bool {
	m := make(map[string]bool, len(knownHeaders))
	for _, k := range knownHeaders {
		m[k.name] = true
	}
	return m
}()

type symbolSet struct {
	header  string
	symbols []string
}

var headerSymbols = []symbolSet{
	{"iostream", []string{"cout", "cin", "endl", "cerr"}},
	{"vector", []string{"vector", "push_back", "emplace_back"}},
	{"string", []string{"string", "to_string"}},
	{"map", []string{"map", "unordered_map"}},
	{"algorithm", []string{"sort", "find", "transform", "for_each"}},
	{"memory", []string{"make_shared", "make_unique", "shared_ptr", "unique_ptr"}},
	{"thread", []string{"thread", "join", "detach"}},
	{"mutex", []string{"mutex", "lock_guard", "unique_lock"}},
}

var (
	includeLine = regexp.MustCompile(`#include.*`)
	stdUse      = regexp.MustCompile(`\bstd::`)
)

// BaseCost returns the table cost of header, or a default for headers the
// table does not know.
func BaseCost(header string) float64 {
	lower := strings.ToLower(header)
	for _, k := range knownHeaders {
		if strings.Contains(lower, k.name) {
			return k.cost
		}
	}
	if strings.HasPrefix(header, "<") || !strings.Contains(header, "/") {
		return systemDefaultCost
	}
	return userDefaultCost
}

// Estimator prices includes against a dependency graph. It is safe for
// concurrent use.
type Estimator struct {
	graph *graph.Graph

	mu    sync.Mutex
	cache map[string]float64
}

// New returns an Estimator over g.
func New(g *graph.Graph) *Estimator {
	return &Estimator{graph: g, cache: map[string]float64{}}
}

// HeaderCost estimates the cost of inc. analysis is the parsed header when
// it belongs to the project, or nil.
func (e *Estimator) HeaderCost(inc model.Include, analysis *model.FileAnalysis) float64 {
	target := graph.TargetID(inc)
	key := target + "\x00"
	if analysis != nil {
		key += analysis.Path
	}
	e.mu.Lock()
	if c, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return c
	}
	e.mu.Unlock()

	cost := BaseCost(inc.Header)
	if analysis != nil {
		cost += float64(analysis.TotalLines) * 0.5
		if analysis.HasTemplates {
			cost *= TemplateMultiplier
		}
		if analysis.HasMacros {
			cost *= MacroMultiplier
		}
		cost += float64(analysis.ClassCount) * 50
		cost += float64(analysis.NamespaceCount) * 10
	}
	cost += e.transitiveCost(target)

	e.mu.Lock()
	e.cache[key] = cost
	e.mu.Unlock()
	return cost
}

// transitiveCost charges for what a header pulls in behind it. Deep trees
// are penalised beyond five levels.
func (e *Estimator) transitiveCost(node string) float64 {
	if e.graph == nil {
		return 0
	}
	depth := e.graph.Depth(node)
	cost := float64(len(e.graph.Transitive(node)))*50 + float64(depth)*100
	if depth > 5 {
		cost += float64(depth-5) * 200
	}
	return cost
}

// CheckUsage guesses whether sourcePath uses header. A file that cannot be
// read counts as using it, with zero confidence.
func CheckUsage(sourcePath, header string) (bool, float64) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		logging.Debugf("estimator: cannot read %s: %v", sourcePath, err)
		return true, 0
	}
	return UsageInSource(string(data), header)
}

// UsageInSource is CheckUsage over already loaded content. header is
// written as <h> for system headers. Three signals are checked: the
// header's base name appears, a known symbol of the header appears, and
// for system headers without a symbol list, std:: is used at all.
func UsageInSource(content, header string) (bool, float64) {
	content = includeLine.ReplaceAllString(content, "")
	name := strings.Trim(header, "<>")
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	found := 0
	if strings.Contains(strings.ToLower(content), strings.ToLower(base)) {
		found++
	}
	symbols, known := symbolsFor(name)
	if !known && strings.HasPrefix(header, "<") && stdUse.MatchString(content) {
		found++
	}
	for _, sym := range symbols {
		if strings.Contains(content, sym) {
			found++
			break
		}
	}
	confidence := float64(found) / 3
	return confidence > 0.3, confidence
}

func symbolsFor(header string) ([]string, bool) {
	for _, s := range headerSymbols {
		if strings.Contains(header, s.header) {
			return s.symbols, true
		}
	}
	return nil, false
}

func usageName(inc model.Include) string {
	if inc.IsSystem {
		return "<" + inc.Header + ">"
	}
	return inc.Header
}

// EstimateConfidence rates how much a cost figure can be trusted.
func EstimateConfidence(inc model.Include, analysis *model.FileAnalysis) float64 {
	c := 0.5
	lower := strings.ToLower(inc.Header)
	for _, k := range knownHeaders {
		if strings.Contains(lower, k.name) {
			c += 0.3
			break
		}
	}
	if analysis != nil {
		c += 0.2
	}
	if inc.IsSystem && !knownExact[inc.Header] {
		c -= 0.2
	}
	return math.Max(0, math.Min(1, c))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FileCosts prices every include of a, most expensive first. all maps
// resolved paths to their analyses.
func (e *Estimator) FileCosts(a model.FileAnalysis, all map[string]*model.FileAnalysis) []model.CostEntry {
	data, readErr := os.ReadFile(a.Path)
	if readErr != nil {
		logging.Debugf("estimator: cannot read %s: %v", a.Path, readErr)
	}
	out := make([]model.CostEntry, 0, len(a.Includes))
	for _, inc := range a.Includes {
		ha := all[inc.FullPath]
		used, usageConf := true, 0.0
		if readErr == nil {
			used, usageConf = UsageInSource(string(data), usageName(inc))
		}
		out = append(out, model.CostEntry{
			Header:             inc.Header,
			Line:               inc.Line,
			EstimatedCost:      round(e.HeaderCost(inc, ha), 1),
			IsSystem:           inc.IsSystem,
			LikelyUsed:         used,
			UsageConfidence:    round(usageConf, 2),
			EstimateConfidence: round(EstimateConfidence(inc, ha), 2),
			FullPath:           inc.FullPath,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EstimatedCost > out[j].EstimatedCost })
	return out
}

// FileReport breaks down the include cost of a single file.
func (e *Estimator) FileReport(a model.FileAnalysis, all map[string]*model.FileAnalysis) model.FileReport {
	costs := e.FileCosts(a, all)
	var total, unused float64
	opps := []model.CostEntry{}
	for _, c := range costs {
		total += c.EstimatedCost
		if !c.LikelyUsed {
			unused += c.EstimatedCost
			if c.EstimatedCost > OpportunityThreshold {
				opps = append(opps, c)
			}
		}
	}
	savings := 0.0
	if total > 0 {
		savings = unused / total * 100
	}
	return model.FileReport{
		File:                a.Path,
		TotalIncludes:       len(costs),
		TotalEstimatedCost:  round(total, 1),
		WastedCost:          round(unused, 1),
		PotentialSavingsPct: round(savings, 1),
		TopExpensive:        costs[:min(5, len(costs))],
		Opportunities:       opps,
		AllIncludes:         costs,
		Metrics: model.FileMetrics{
			TotalLines:   a.TotalLines,
			CodeLines:    a.CodeLines,
			HasTemplates: a.HasTemplates,
			HasMacros:    a.HasMacros,
		},
	}
}

// ProjectSummary rolls file reports up to project level.
func ProjectSummary(reports []model.FileReport) model.ProjectSummary {
	s := model.ProjectSummary{
		TotalFiles:       len(reports),
		TopWastefulFiles: []model.FileReport{},
		TopOpportunities: []model.Opportunity{},
	}
	var opps []model.Opportunity
	for _, r := range reports {
		s.TotalCost += r.TotalEstimatedCost
		s.TotalWaste += r.WastedCost
		s.TotalIncludes += r.TotalIncludes
		for _, o := range r.Opportunities {
			opps = append(opps, model.Opportunity{
				File:     filepath.Base(r.File),
				FullPath: r.File,
				Header:   o.Header,
				Cost:     o.EstimatedCost,
				Line:     o.Line,
			})
		}
	}
	if s.TotalCost > 0 {
		s.WastePercentage = round(s.TotalWaste/s.TotalCost*100, 1)
	}
	if s.TotalFiles > 0 {
		s.AvgCostPerFile = round(s.TotalCost/float64(s.TotalFiles), 1)
	}
	s.TotalCost = round(s.TotalCost, 1)
	s.TotalWaste = round(s.TotalWaste, 1)

	byWaste := append([]model.FileReport(nil), reports...)
	sort.SliceStable(byWaste, func(i, j int) bool { return byWaste[i].WastedCost > byWaste[j].WastedCost })
	s.TopWastefulFiles = append(s.TopWastefulFiles, byWaste[:min(10, len(byWaste))]...)

	sort.SliceStable(opps, func(i, j int) bool { return opps[i].Cost > opps[j].Cost })
	s.TopOpportunities = append(s.TopOpportunities, opps[:min(20, len(opps))]...)
	return s
}

// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package graph models include relationships as a directed graph. Nodes are
// analysed files (internal) and include targets that were not analysed
// (external). An edge a -> b means a includes b.
package graph

import (
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/toeirei/includeguard/internal/logging"
	"github.com/toeirei/includeguard/internal/model"
	"github.com/toeirei/includeguard/internal/parser"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Node carries the attributes of one vertex.
type Node struct {
	ID             string
	External       bool
	IsSystem       bool
	IsHeader       bool
	Lines          int
	CodeLines      int
	HasTemplates   bool
	HasMacros      bool
	NamespaceCount int
	ClassCount     int
}

// Count pairs a node with a number, used by the ranking helpers.
type Count struct {
	ID    string `json:"id" yaml:"id"`
	Count int    `json:"count" yaml:"count"`
}

// Graph is a directed include graph. The zero value is not usable; call New
// or Build. A graph is read-only once Build returns and may then be queried
// from several goroutines.
type Graph struct {
	order []string
	nodes map[string]*Node
	out   map[string][]string
	in    map[string][]string
	edges int

	// dg mirrors the edges with node ids that index order. Self includes
	// cannot be stored there and are kept in selfLoops.
	dg        *simple.DirectedGraph
	gid       map[string]int64
	selfLoops map[string]bool

	cyclesOnce sync.Once
	cycles     [][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     map[string]*Node{},
		out:       map[string][]string{},
		in:        map[string][]string{},
		dg:        simple.NewDirectedGraph(),
		gid:       map[string]int64{},
		selfLoops: map[string]bool{},
	}
}

// Build creates a graph from parsed files.
func Build(analyses []model.FileAnalysis) *Graph {
	g := New()
	for _, a := range analyses {
		g.addNode(&Node{
			ID:             a.Path,
			IsHeader:       parser.IsHeader(a.Path),
			Lines:          a.TotalLines,
			CodeLines:      a.CodeLines,
			HasTemplates:   a.HasTemplates,
			HasMacros:      a.HasMacros,
			NamespaceCount: a.NamespaceCount,
			ClassCount:     a.ClassCount,
		})
	}
	for _, a := range analyses {
		for _, inc := range a.Includes {
			target := TargetID(inc)
			if _, ok := g.nodes[target]; !ok {
				g.addNode(&Node{ID: target, External: true, IsSystem: inc.IsSystem})
			}
			g.addEdge(a.Path, target)
		}
	}
	logging.Debugf("graph: %d nodes, %d edges", len(g.order), g.edges)
	return g
}

// TargetID names the node an include points at: the resolved path when the
// parser found one, otherwise <h> for system headers or the header as
// written.
func TargetID(inc model.Include) string {
	if inc.FullPath != "" && inc.FullPath != inc.Header {
		return inc.FullPath
	}
	if inc.IsSystem {
		return "<" + inc.Header + ">"
	}
	return inc.Header
}

func (g *Graph) addNode(n *Node) {
	if existing, ok := g.nodes[n.ID]; ok {
		// An analysed file may already exist as an external target.
		if existing.External && !n.External {
			*existing = *n
		}
		return
	}
	id := int64(len(g.order))
	g.nodes[n.ID] = n
	g.gid[n.ID] = id
	g.order = append(g.order, n.ID)
	g.dg.AddNode(simple.Node(id))
}

func (g *Graph) addEdge(from, to string) {
	for _, t := range g.out[from] {
		if t == to {
			return
		}
	}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	g.edges++
	if from == to {
		g.selfLoops[from] = true
		return
	}
	g.dg.SetEdge(simple.Edge{F: simple.Node(g.gid[from]), T: simple.Node(g.gid[to])})
}

// Has reports whether id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the attributes of id, or nil.
func (g *Graph) Node(id string) *Node { return g.nodes[id] }

// Nodes returns node ids in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.order) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return g.edges }

// Direct returns what path includes directly, in include order.
func (g *Graph) Direct(path string) []string {
	return append([]string(nil), g.out[path]...)
}

// Dependents returns the files that include path directly, sorted.
func (g *Graph) Dependents(path string) []string {
	deps := append([]string(nil), g.in[path]...)
	sort.Strings(deps)
	return deps
}

// distances runs a BFS from path and returns the shortest hop count to
// every reachable node. path itself is present with distance 0 only when a
// cycle leads back to it.
func (g *Graph) distances(path string) map[string]int {
	dist := map[string]int{}
	if !g.Has(path) {
		return dist
	}
	type item struct {
		id string
		d  int
	}
	queue := []item{{path, 0}}
	seen := map[string]bool{path: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.out[cur.id] {
			if next == path {
				dist[path] = 0
				continue
			}
			if seen[next] {
				continue
			}
			seen[next] = true
			dist[next] = cur.d + 1
			queue = append(queue, item{next, cur.d + 1})
		}
	}
	return dist
}

// Transitive returns everything path reaches, sorted. path is included only
// when it sits on a cycle.
func (g *Graph) Transitive(path string) []string {
	dist := g.distances(path)
	out := make([]string, 0, len(dist))
	for id := range dist {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Depth is the longest of the shortest paths from path to anything it
// reaches. A file without includes has depth 0.
func (g *Graph) Depth(path string) int {
	depth := 0
	for _, d := range g.distances(path) {
		depth = max(depth, d)
	}
	return depth
}

// Cycles returns the elementary cycles. Each cycle starts at its smallest
// node id and the list is sorted, so the output is stable. The result is
// computed once and shared by later calls.
func (g *Graph) Cycles() [][]string {
	g.cyclesOnce.Do(func() { g.cycles = g.findCycles() })
	return slices.Clone(g.cycles)
}

// findCycles runs Johnson's algorithm, which only searches strongly
// connected components of two or more files. Self includes are added
// separately.
func (g *Graph) findCycles() [][]string {
	cycles := [][]string{}
	for _, id := range g.order {
		if g.selfLoops[id] {
			cycles = append(cycles, []string{id})
		}
	}
	for _, c := range topo.DirectedCyclesIn(g.dg) {
		// The first node is repeated at the end.
		c = c[:len(c)-1]
		ids := make([]string, len(c))
		least := 0
		for i, n := range c {
			ids[i] = g.order[n.ID()]
			if ids[i] < ids[least] {
				least = i
			}
		}
		cycles = append(cycles, append(slices.Clone(ids[least:]), ids[:least]...))
	}
	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], "\x00") < strings.Join(cycles[j], "\x00")
	})
	return cycles
}

func top(counts []Count, n int) []Count {
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ID < counts[j].ID
	})
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// MostIncluded returns up to n nodes with the highest in-degree.
func (g *Graph) MostIncluded(n int) []Count {
	var counts []Count
	for _, id := range g.order {
		if d := len(g.in[id]); d > 0 {
			counts = append(counts, Count{ID: id, Count: d})
		}
	}
	return top(counts, n)
}

// Heaviest returns up to n internal files with the most transitive
// dependencies.
func (g *Graph) Heaviest(n int) []Count {
	var counts []Count
	for _, id := range g.order {
		if g.nodes[id].External {
			continue
		}
		if d := len(g.distances(id)); d > 0 {
			counts = append(counts, Count{ID: id, Count: d})
		}
	}
	return top(counts, n)
}

// Stats summarises the graph.
func (g *Graph) Stats() model.GraphStats {
	s := model.GraphStats{TotalNodes: len(g.order), TotalEdges: g.edges}
	for _, id := range g.order {
		if g.nodes[id].External {
			continue
		}
		s.InternalNodes++
		s.MaxDepth = max(s.MaxDepth, g.Depth(id))
	}
	s.ExternalNodes = s.TotalNodes - s.InternalNodes
	if s.TotalNodes > 0 {
		// Every edge adds one to an out-degree and one to an in-degree.
		s.AvgDegree = float64(2*g.edges) / float64(s.TotalNodes)
	}
	s.Cycles = len(g.Cycles())
	return s
}

// dotNode is one drawn vertex. Its DOT id is the quoted node id so that
// "<vector>" is not read as an HTML label.
type dotNode struct {
	id    int64
	name  string
	attrs encoding.Attributes
}

func (n dotNode) ID() int64                        { return n.id }
func (n dotNode) DOTID() string                    { return strconv.Quote(n.name) }
func (n dotNode) Attributes() []encoding.Attribute { return n.attrs }

// dotView is the part of the graph that gets drawn.
type dotView struct {
	*simple.DirectedGraph
}

func (dotView) DOTID() string { return "includes" }

func (dotView) DOTAttributers() (encoding.Attributer, encoding.Attributer, encoding.Attributer) {
	return &encoding.Attributes{{Key: "rankdir", Value: "LR"}},
		&encoding.Attributes{{Key: "shape", Value: "box"}},
		nil
}

func dotStyle(n *Node) encoding.Attributes {
	switch {
	case n.External && n.IsSystem:
		return encoding.Attributes{{Key: "style", Value: "dashed"}, {Key: "color", Value: "gray"}}
	case n.External:
		return encoding.Attributes{{Key: "style", Value: "dashed"}}
	case n.IsHeader:
		return encoding.Attributes{{Key: "shape", Value: "ellipse"}}
	}
	return nil
}

// WriteDOT writes the graph in Graphviz DOT form. When the graph has more
// than maxNodes nodes only internal files are drawn. Self includes are
// reported as cycles and not drawn.
func (g *Graph) WriteDOT(w io.Writer, maxNodes int) error {
	keep := func(id string) bool { return true }
	if maxNodes > 0 && len(g.order) > maxNodes {
		keep = func(id string) bool { return !g.nodes[id].External }
	}

	view := dotView{simple.NewDirectedGraph()}
	for _, id := range g.order {
		if keep(id) {
			view.AddNode(dotNode{id: g.gid[id], name: id, attrs: dotStyle(g.nodes[id])})
		}
	}
	for _, from := range g.order {
		if !keep(from) {
			continue
		}
		for _, to := range g.out[from] {
			if to != from && keep(to) {
				view.SetEdge(simple.Edge{F: view.Node(g.gid[from]), T: view.Node(g.gid[to])})
			}
		}
	}
	b, err := dot.Marshal(view, "", "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

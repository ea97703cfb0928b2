package graph

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/includeguard/internal/model"
)

func user(h, full string) model.Include { return model.Include{Header: h, FullPath: full} }
func system(h string) model.Include {
	return model.Include{Header: h, IsSystem: true, FullPath: "<" + h + ">"}
}

// chain: main.cpp -> a.h -> b.h -> <vector>, main.cpp -> <iostream>, c.cpp -> a.h
func chain() []model.FileAnalysis {
	return []model.FileAnalysis{
		{Path: "/p/main.cpp", Includes: []model.Include{user("a.h", "/p/a.h"), system("iostream")}},
		{Path: "/p/a.h", Includes: []model.Include{user("b.h", "/p/b.h")}},
		{Path: "/p/b.h", Includes: []model.Include{system("vector")}},
		{Path: "/p/c.cpp", Includes: []model.Include{user("a.h", "/p/a.h"), user("missing.h", "missing.h")}},
	}
}

func TestTargetID(t *testing.T) {
	cases := []struct {
		inc  model.Include
		want string
	}{
		{user("a.h", "/p/a.h"), "/p/a.h"},
		{user("missing.h", "missing.h"), "missing.h"},
		{system("vector"), "<vector>"},
		{model.Include{Header: "x.h", IsSystem: true}, "<x.h>"},
	}
	for _, c := range cases {
		if got := TargetID(c.inc); got != c.want {
			t.Errorf("TargetID(%+v) = %q want %q", c.inc, got, c.want)
		}
	}
}

func TestBuild_NodesAndEdges(t *testing.T) {
	g := Build(chain())
	if g.NumNodes() != 7 {
		t.Fatalf("expected 7 nodes, got %d: %v", g.NumNodes(), g.Nodes())
	}
	if g.NumEdges() != 6 {
		t.Fatalf("expected 6 edges, got %d", g.NumEdges())
	}
	if g.Node("/p/a.h").External {
		t.Fatalf("analysed header must be internal")
	}
	if n := g.Node("<vector>"); n == nil || !n.External || !n.IsSystem {
		t.Fatalf("unexpected <vector> node: %+v", n)
	}
	if n := g.Node("missing.h"); n == nil || !n.External || n.IsSystem {
		t.Fatalf("unexpected missing.h node: %+v", n)
	}
	if !g.Node("/p/a.h").IsHeader || g.Node("/p/main.cpp").IsHeader {
		t.Fatalf("header flag wrong")
	}
}

func TestBuild_DuplicateIncludeIsOneEdge(t *testing.T) {
	g := Build([]model.FileAnalysis{{Path: "x.cpp", Includes: []model.Include{system("map"), system("map")}}})
	if g.NumEdges() != 1 {
		t.Fatalf("expected 1 edge, got %d", g.NumEdges())
	}
}

func TestDirectTransitiveDepth(t *testing.T) {
	g := Build(chain())
	if got := g.Direct("/p/main.cpp"); !reflect.DeepEqual(got, []string{"/p/a.h", "<iostream>"}) {
		t.Fatalf("Direct = %v", got)
	}
	want := []string{"/p/a.h", "/p/b.h", "<iostream>", "<vector>"}
	if got := g.Transitive("/p/main.cpp"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Transitive = %v want %v", got, want)
	}
	if d := g.Depth("/p/main.cpp"); d != 3 {
		t.Fatalf("Depth(main) = %d want 3", d)
	}
	if d := g.Depth("<vector>"); d != 0 {
		t.Fatalf("Depth of a leaf = %d", d)
	}
	if got := g.Transitive("/nope"); len(got) != 0 {
		t.Fatalf("unknown node should have no dependencies, got %v", got)
	}
	if got := g.Direct("/nope"); len(got) != 0 {
		t.Fatalf("unknown node Direct = %v", got)
	}
}

func TestDependents(t *testing.T) {
	g := Build(chain())
	if got := g.Dependents("/p/a.h"); !reflect.DeepEqual(got, []string{"/p/c.cpp", "/p/main.cpp"}) {
		t.Fatalf("Dependents = %v", got)
	}
}

func TestCycles(t *testing.T) {
	g := Build([]model.FileAnalysis{
		{Path: "a.h", Includes: []model.Include{user("b.h", "b.h"), user("c.h", "c.h")}},
		{Path: "b.h", Includes: []model.Include{user("a.h", "a.h")}},
		{Path: "c.h", Includes: []model.Include{user("c.h", "c.h")}},
	})
	want := [][]string{{"a.h", "b.h"}, {"c.h"}}
	if got := g.Cycles(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Cycles = %v want %v", got, want)
	}
	// A node on a cycle reaches itself.
	if got := g.Transitive("b.h"); !reflect.DeepEqual(got, []string{"a.h", "b.h", "c.h"}) {
		t.Fatalf("Transitive(b.h) = %v", got)
	}
	if len(Build(chain()).Cycles()) != 0 {
		t.Fatalf("acyclic graph reported cycles")
	}
}

// layered returns n headers where header i includes headers i+1..i+3,
// optionally closing the chain from the last header back to the first.
func layered(n int, closed bool) []model.FileAnalysis {
	name := func(i int) string { return fmt.Sprintf("/p/h%02d.h", i) }
	files := make([]model.FileAnalysis, n)
	for i := range files {
		files[i].Path = name(i)
		for j := i + 1; j <= i+3 && j < n; j++ {
			files[i].Includes = append(files[i].Includes, user(name(j), name(j)))
		}
	}
	if closed {
		files[n-1].Includes = append(files[n-1].Includes, user(name(0), name(0)))
	}
	return files
}

func TestCycles_LayeredAcyclicGraphIsFast(t *testing.T) {
	g := Build(layered(40, false))
	start := time.Now()
	if got := g.Cycles(); len(got) != 0 {
		t.Fatalf("expected no cycles, got %d", len(got))
	}
	if s := g.Stats(); s.Cycles != 0 || s.MaxDepth != 13 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Fatalf("cycle search took %v", d)
	}
}

func TestCycles_LongCycleStartsAtSmallestID(t *testing.T) {
	// Every cycle uses the single back edge, one per way of stepping from
	// h00 to h09 in hops of one to three headers.
	g := Build(layered(10, true))
	cycles := g.Cycles()
	if len(cycles) != 149 {
		t.Fatalf("expected 149 cycles, got %d", len(cycles))
	}
	for _, c := range cycles {
		if c[0] != "/p/h00.h" {
			t.Fatalf("cycle does not start at its smallest node: %v", c)
		}
	}
	// The longest cycle visits every header in order.
	longest := cycles[0]
	for _, c := range cycles {
		if len(c) > len(longest) {
			longest = c
		}
	}
	if len(longest) != 10 || longest[9] != "/p/h09.h" {
		t.Fatalf("unexpected longest cycle: %v", longest)
	}
	// The result is cached and callers get their own copy.
	cycles[0] = nil
	if again := g.Cycles(); again[0] == nil {
		t.Fatalf("Cycles returned shared storage")
	}
}

func TestMostIncludedAndHeaviest(t *testing.T) {
	g := Build(chain())
	most := g.MostIncluded(1)
	if len(most) != 1 || most[0] != (Count{ID: "/p/a.h", Count: 2}) {
		t.Fatalf("MostIncluded = %v", most)
	}
	heavy := g.Heaviest(10)
	if len(heavy) != 4 {
		t.Fatalf("expected 4 internal files with dependencies, got %v", heavy)
	}
	// Ties are broken by id.
	if heavy[0] != (Count{ID: "/p/c.cpp", Count: 4}) || heavy[1] != (Count{ID: "/p/main.cpp", Count: 4}) {
		t.Fatalf("unexpected ordering: %v", heavy)
	}
}

func TestStats(t *testing.T) {
	s := Build(chain()).Stats()
	if s.TotalNodes != 7 || s.InternalNodes != 4 || s.ExternalNodes != 3 || s.TotalEdges != 6 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.MaxDepth != 3 || s.Cycles != 0 {
		t.Fatalf("unexpected depth/cycles: %+v", s)
	}
	if want := 12.0 / 7.0; s.AvgDegree != want {
		t.Fatalf("AvgDegree = %v want %v", s.AvgDegree, want)
	}
	if empty := New().Stats(); empty != (model.GraphStats{}) {
		t.Fatalf("empty graph stats = %+v", empty)
	}
}

func TestWriteDOT(t *testing.T) {
	g := Build(chain())
	var buf bytes.Buffer
	if err := g.WriteDOT(&buf, 100); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "strict digraph includes {") || !strings.HasSuffix(out, "}\n") {
		t.Fatalf("malformed DOT: %s", out)
	}
	for _, want := range []string{
		`"/p/main.cpp" -> "<iostream>";`,
		`"/p/a.h" [shape=ellipse];`,
		"rankdir=LR",
		"style=dashed",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("DOT output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := g.WriteDOT(&buf, 5); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	out = buf.String()
	if strings.Contains(out, "<iostream>") || strings.Contains(out, "missing.h") {
		t.Fatalf("external nodes should be dropped for large graphs:\n%s", out)
	}
	if !strings.Contains(out, `"/p/a.h" -> "/p/b.h";`) {
		t.Fatalf("internal edge missing:\n%s", out)
	}

	// A self include is a cycle, not an edge to draw.
	buf.Reset()
	self := Build([]model.FileAnalysis{{Path: "loop.h", Includes: []model.Include{user("loop.h", "loop.h")}}})
	if err := self.WriteDOT(&buf, 0); err != nil {
		t.Fatalf("WriteDOT failed: %v", err)
	}
	if strings.Contains(buf.String(), "->") || !strings.Contains(buf.String(), `"loop.h"`) {
		t.Fatalf("unexpected DOT for a self include:\n%s", buf.String())
	}
}

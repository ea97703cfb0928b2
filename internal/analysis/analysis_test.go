package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/toeirei/includeguard/internal/testutil"
)

func TestRun_SampleProject(t *testing.T) {
	root := testutil.SampleProject(t)
	fixed := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	res, err := Run(context.Background(), Options{Root: root, Workers: 2, Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.ProjectPath != root || !res.GeneratedAt.Equal(fixed) {
		t.Fatalf("unexpected header: %s %v", res.ProjectPath, res.GeneratedAt)
	}
	if res.ParserStats.TotalFiles != 4 || res.ParserStats.TotalIncludes != 15 {
		t.Fatalf("unexpected parser stats: %+v", res.ParserStats)
	}
	s := res.Summary
	if s.TotalFiles != 4 || s.TotalIncludes != 15 || s.TotalWaste != 5500 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if len(s.TopOpportunities) != 5 || s.TopOpportunities[0].Header != "iostream" {
		t.Fatalf("unexpected opportunities: %+v", s.TopOpportunities)
	}
	if len(res.Reports) != 4 {
		t.Fatalf("expected a report per file, got %d", len(res.Reports))
	}
	for i := 1; i < len(res.Reports); i++ {
		if res.Reports[i-1].File > res.Reports[i].File {
			t.Fatalf("reports should follow file order")
		}
	}

	if len(res.ForwardDecls) != 1 || res.ForwardDecls[0].ClassName != "Database" {
		t.Fatalf("unexpected forward declarations: %+v", res.ForwardDecls)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("sample project should have no incomplete type uses: %+v", res.Violations)
	}
	if len(res.PCH) != 4 || res.PCH[0].Header != "<iostream>" || res.PCHBenefit.HeadersInPCH != 4 {
		t.Fatalf("unexpected PCH result: %+v", res.PCH)
	}
	if res.GraphStats.InternalNodes != 4 || res.GraphStats.Cycles != 0 || res.Cycles == nil {
		t.Fatalf("unexpected graph stats: %+v", res.GraphStats)
	}
	if res.MostIncluded[0].Count != 3 {
		t.Fatalf("most included header should be used 3 times: %+v", res.MostIncluded)
	}
}

func TestRun_ReportsIncompleteTypeUse(t *testing.T) {
	files := testutil.SampleFiles()
	files["consumer.cpp"] = "class Database;\nvoid poke(Database* db) {\n    db->connect(\"h\");\n}\n"
	root := testutil.WriteProject(t, files)

	res, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected one violation, got %+v", res.Violations)
	}
	v := res.Violations[0]
	if v.File != filepath.Join(root, "consumer.cpp") || v.Line != 3 || v.Type != "Database" {
		t.Fatalf("unexpected violation: %+v", v)
	}
}

func TestRun_MaxFiles(t *testing.T) {
	root := testutil.SampleProject(t)
	res, err := Run(context.Background(), Options{Root: root, MaxFiles: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ParserStats.TotalFiles != 2 {
		t.Fatalf("expected 2 files, got %d", res.ParserStats.TotalFiles)
	}
}

func TestRun_Cancelled(t *testing.T) {
	root := testutil.SampleProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, Options{Root: root}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_EmptyProject(t *testing.T) {
	res, err := Run(context.Background(), Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Summary.TotalFiles != 0 || len(res.PCH) != 0 || res.ForwardDecls == nil || res.Violations == nil {
		t.Fatalf("unexpected empty result: %+v", res)
	}
}

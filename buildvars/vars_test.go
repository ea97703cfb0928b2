package buildvars

import "testing"

func TestVersionOrDefault(t *testing.T) {
	prev := Version
	defer func() { Version = prev }()

	Version = ""
	if got := VersionOrDefault("dev"); got != "dev" {
		t.Fatalf("expected default, got %q", got)
	}
	Version = "1.2.3"
	if got := VersionOrDefault("dev"); got != "1.2.3" {
		t.Fatalf("expected 1.2.3, got %q", got)
	}
}

func TestDescribe(t *testing.T) {
	pv, pc, pd := Version, Commit, Date
	defer func() { Version, Commit, Date = pv, pc, pd }()

	Version, Commit, Date = "", "", ""
	if got := Describe(); got != "dev" {
		t.Fatalf("Describe = %q", got)
	}
	Version, Commit, Date = "1.0.0", "abc123", "2025-01-02"
	if got := Describe(); got != "1.0.0 (abc123, 2025-01-02)" {
		t.Fatalf("Describe = %q", got)
	}
}

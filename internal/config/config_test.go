package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	cfg "github.com/toeirei/includeguard/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "sqlite" || got.Database.Dsn != "./includeguard.db" {
		t.Fatalf("unexpected database defaults: %+v", got.Database)
	}
	if got.Analysis.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", got.Analysis.Workers)
	}
	if len(got.Analysis.Extensions) != 8 {
		t.Fatalf("expected 8 default extensions, got %v", got.Analysis.Extensions)
	}
	if got.Thresholds.MaxWastePercentage != 50 || got.Thresholds.MaxHighCostUnused != 5 {
		t.Fatalf("unexpected thresholds: %+v", got.Thresholds)
	}
	if got.Fix.MinConfidence != 0.7 {
		t.Fatalf("unexpected min confidence %v", got.Fix.MinConfidence)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	tmp := t.TempDir()
	yaml := "database:\n  type: postgres\n  dsn: postgresql://user@/db\nlanguage: de\nanalysis:\n  max_files: 10\n"
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "postgres" {
		t.Fatalf("expected postgres, got %q", got.Database.Type)
	}
	if got.Language != "de" {
		t.Fatalf("expected de, got %q", got.Language)
	}
	if got.Analysis.MaxFiles != 10 {
		t.Fatalf("expected max_files 10, got %d", got.Analysis.MaxFiles)
	}
	// Untouched keys keep their defaults.
	if got.Analysis.Workers != 4 {
		t.Fatalf("expected default workers, got %d", got.Analysis.Workers)
	}
}

func TestLoadConfig_MissingExplicitFileIsError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &missing); err == nil {
		t.Fatalf("expected an error for a missing explicit config file")
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte("language: de\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("INCLUDEGUARD_LANGUAGE", "en")
	t.Setenv("INCLUDEGUARD_DATABASE_TYPE", "mysql")

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Language != "en" {
		t.Fatalf("env should override file, got %q", got.Language)
	}
	if got.Database.Type != "mysql" {
		t.Fatalf("env should override defaults, got %q", got.Database.Type)
	}
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("INCLUDEGUARD_DATABASE_DSN", "from-env.db")

	cmd := &cobra.Command{}
	cmd.Flags().String("db-dsn", "", "")
	cmd.Flags().Int("workers", 0, "")
	if err := cmd.Flags().Set("db-dsn", "from-flag.db"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := cmd.Flags().Set("workers", "9"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Dsn != "from-flag.db" {
		t.Fatalf("flag should win, got %q", got.Database.Dsn)
	}
	if got.Analysis.Workers != 9 {
		t.Fatalf("flag should set workers, got %d", got.Analysis.Workers)
	}
}

func TestWriteConfigFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	c := cfg.Config{}
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./x.db"
	c.Language = "de"
	c.Analysis.Workers = 2

	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got.Language != "de" || got.Database.Dsn != "./x.db" || got.Analysis.Workers != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

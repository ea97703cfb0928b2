// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads IncludeGuard settings from defaults, an optional
// includeguard.yaml, INCLUDEGUARD_* environment variables and CLI flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DatabaseConfig selects the run-history backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// AnalysisConfig controls which files are scanned and how.
type AnalysisConfig struct {
	Extensions   []string `mapstructure:"extensions" yaml:"extensions"`
	ExcludeDirs  []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
	IncludePaths []string `mapstructure:"include_paths" yaml:"include_paths"`
	MaxFiles     int      `mapstructure:"max_files" yaml:"max_files"`
	Workers      int      `mapstructure:"workers" yaml:"workers"`
}

// ThresholdsConfig holds the CI gate limits.
type ThresholdsConfig struct {
	MaxWastePercentage float64 `mapstructure:"max_waste_percentage" yaml:"max_waste_percentage"`
	MaxHighCostUnused  int     `mapstructure:"max_high_cost_unused" yaml:"max_high_cost_unused"`
}

// FixConfig holds patch generation settings.
type FixConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
}

// Config is the full IncludeGuard configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Language   string           `mapstructure:"language" yaml:"language"`
	Debug      bool             `mapstructure:"debug" yaml:"debug"`
	Analysis   AnalysisConfig   `mapstructure:"analysis" yaml:"analysis"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds" yaml:"thresholds"`
	Fix        FixConfig        `mapstructure:"fix" yaml:"fix"`
}

// FlagKeys maps CLI flag names to the config keys they override.
var FlagKeys = map[string]string{
	"db-type":        "database.type",
	"db-dsn":         "database.dsn",
	"lang":           "language",
	"debug":          "debug",
	"workers":        "analysis.workers",
	"max-files":      "analysis.max_files",
	"ext":            "analysis.extensions",
	"include":        "analysis.include_paths",
	"min-confidence": "fix.min_confidence",
	"max-waste":      "thresholds.max_waste_percentage",
	"max-high-cost":  "thresholds.max_high_cost_unused",
}

// Defaults returns the built-in configuration values keyed by viper key.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":                   "sqlite",
		"database.dsn":                    "./includeguard.db",
		"language":                        "en",
		"debug":                           false,
		"analysis.extensions":             []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp", ".hxx", ".hh"},
		"analysis.exclude_dirs":           []string{"build", "cmake-build", "cmake-build-debug", "cmake-build-release", ".git", ".svn", "node_modules", "venv", "env", "__pycache__"},
		"analysis.include_paths":          []string{},
		"analysis.max_files":              0,
		"analysis.workers":                4,
		"thresholds.max_waste_percentage": 50.0,
		"thresholds.max_high_cost_unused": 5,
		"fix.min_confidence":              0.7,
	}
}

// GetConfigPath returns the full path for the user or system configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "IncludeGuard")
		default:
			configDir = "/etc/includeguard"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "includeguard")
	}
	return filepath.Join(configDir, "includeguard.yaml"), nil
}

// LoadConfig resolves a T from defaults, config file, environment and the
// flags of cmd. explicitPath, when non-nil and non-empty, is read instead
// of searching the standard locations; a missing explicit file is an error.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("includeguard")
	v.SetConfigType("yaml")
	if explicitPath != nil && *explicitPath != "" {
		v.SetConfigFile(*explicitPath)
	} else {
		if p, err := GetConfigPath(false); err == nil {
			v.AddConfigPath(filepath.Dir(p))
		}
		if p, err := GetConfigPath(true); err == nil {
			v.AddConfigPath(filepath.Dir(p))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file in the search path is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.SetEnvPrefix("includeguard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for flag, key := range FlagKeys {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// WriteConfigFile writes c as YAML to the user (or system) config path and
// returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	return path, WriteConfigTo(c, path)
}

// WriteConfigTo writes c as YAML to path, creating parent directories.
func WriteConfigTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o600) // may hold a DSN with credentials
}

// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

// Set at link time via
// `-ldflags -X github.com/toeirei/includeguard/buildvars.Version=...`.
// They are empty for local or development builds.
var (
	Version string
	Commit  string
	Date    string
)

// VersionOrDefault returns `Version` if set, otherwise returns the provided default.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}

// Describe returns the version followed by commit and build date when known.
func Describe() string {
	s := VersionOrDefault("dev")
	if Commit != "" {
		s += " (" + Commit
		if Date != "" {
			s += ", " + Date
		}
		s += ")"
	}
	return s
}

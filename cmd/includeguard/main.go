// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Command includeguard analyzes C++ include dependencies. It is the same
// binary as the module root, installable with
// `go install github.com/toeirei/includeguard/cmd/includeguard@latest`.
package main

import (
	"os"

	"github.com/toeirei/includeguard/internal/cli"
	"github.com/toeirei/includeguard/internal/logging"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}

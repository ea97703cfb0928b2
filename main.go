// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for IncludeGuard.
//
// Usage:
//
//	go run . analyze ./src
//	./includeguard [command] [flags]
//
// See --help for the available commands.
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

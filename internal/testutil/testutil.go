// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil builds throwaway C++ projects on disk for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// DatabaseHeader is the toy data-access header used across tests.
const DatabaseHeader = `#ifndef DATABASE_H
#define DATABASE_H

#include <string>
#include <vector>
#include <map>

class Database {
public:
    void connect(const std::string& host);
    std::vector<std::string> query(const std::string& sql);

private:
    std::map<std::string, std::string> config_;
};

#endif
`

// DatabaseClient only ever handles Database through pointers.
const DatabaseClient = `#include "database.h"
#include <iostream>
#include <algorithm>

// Forward declaration example - only uses pointer
class Database;

void processDatabase(Database* db) {
    // Only uses pointer, doesn't need full definition
}

void runQuery(Database* db, const std::string& sql) {
    // Another pointer usage
}
`

// MainSource sorts a few integers.
const MainSource = `#include <iostream>
#include <vector>
#include <string>
#include <map>
#include <algorithm>

int main() {
    std::vector<int> numbers = {5, 2, 8, 1, 9};
    std::sort(numbers.begin(), numbers.end());

    for (const auto& num : numbers) {
        std::cout << num << " ";
    }
    std::cout << std::endl;

    return 0;
}
`

// ServiceSource prints every row it is given.
const ServiceSource = `#include <vector>
#include <string>
#include <algorithm>
#include <iostream>

class Service {
public:
    void process(const std::vector<std::string>& data) {
        // Uses full vector functionality
        for (const auto& item : data) {
            std::cout << item << std::endl;
        }
    }
};
`

// SampleFiles is the four-file sample project keyed by relative path.
func SampleFiles() map[string]string {
	return map[string]string{
		"database.h":          DatabaseHeader,
		"database_client.cpp": DatabaseClient,
		"main.cpp":            MainSource,
		"service.cpp":         ServiceSource,
	}
}

// WriteProject writes files (relative path -> content) under a fresh temp
// directory and returns its path.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return root
}

// SampleProject writes the sample project and returns its root.
func SampleProject(t *testing.T) string {
	t.Helper()
	return WriteProject(t, SampleFiles())
}

// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sample is the owning side of the handle boundary: it creates the
// database, lends it to the consumers in internal/service, and closes it.
package sample

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/toeirei/includeguard/internal/db"
	"github.com/toeirei/includeguard/internal/i18n"
	"github.com/toeirei/includeguard/internal/service"
)

// DemoNumbers are sorted by Run.
var DemoNumbers = []int{5, 2, 8, 1, 9}

// SortNumbers returns nums sorted ascending. The input is not modified.
func SortNumbers(nums []int) []int {
	out := slices.Clone(nums)
	slices.Sort(out)
	return out
}

// Run opens the database, passes it through the consumers and prints the
// query rows and the sorted demo numbers to w.
func Run(ctx context.Context, w io.Writer, dbType, dsn string) error {
	d, err := db.New(dbType)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	rows, err := service.ConnectAndQuery(ctx, d, dsn, "SELECT 1")
	if err != nil {
		return err
	}
	service.ProcessDatabase(d)

	fmt.Fprintln(w, i18n.T("demo.rows"))
	if err := service.New(w).Process(rows); err != nil {
		return err
	}

	fmt.Fprintln(w, i18n.T("demo.sorted"))
	for i, n := range SortNumbers(DemoNumbers) {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, n)
	}
	fmt.Fprintln(w)
	return nil
}

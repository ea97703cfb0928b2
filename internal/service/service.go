// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package service holds code that works with the data-access entity
// without depending on its definition. It names only the capabilities it
// needs (Querier) and never imports the package that implements them, so
// changes inside that package never force this one to change.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/toeirei/includeguard/internal/logging"
)

// Querier is the handle consumers hold. Any value with these two methods
// can be passed in; the concrete type stays out of sight.
type Querier interface {
	Connect(ctx context.Context, host string) error
	Query(ctx context.Context, sql string) ([]string, error)
}

// ErrNilHandle is returned when a consumer is handed no handle at all. A
// handle holding a nil entity pointer is not caught here; the entity
// reports that itself.
var ErrNilHandle = errors.New("nil handle")

// ProcessDatabase accepts a handle and does nothing with it. It exists to
// show that holding a handle needs nothing but the interface.
func ProcessDatabase(q Querier) {
	_ = q
}

// RunQuery forwards the handle and the statement to the entity's Query
// without looking inside either.
func RunQuery(ctx context.Context, q Querier, sql string) ([]string, error) {
	if q == nil {
		return nil, ErrNilHandle
	}
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	logging.Debugf("service: %q returned %d row(s)", sql, len(rows))
	return rows, nil
}

// ConnectAndQuery connects the handle to host and then runs sql.
func ConnectAndQuery(ctx context.Context, q Querier, host, sql string) ([]string, error) {
	if q == nil {
		return nil, ErrNilHandle
	}
	if err := q.Connect(ctx, host); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return RunQuery(ctx, q, sql)
}

// Service prints data rows to its writer.
type Service struct {
	out io.Writer
}

// New returns a Service writing to w.
func New(w io.Writer) *Service {
	return &Service{out: w}
}

// Process writes each item on its own line.
func (s *Service) Process(data []string) error {
	for _, item := range data {
		if _, err := fmt.Fprintln(s.out, item); err != nil {
			return err
		}
	}
	return nil
}

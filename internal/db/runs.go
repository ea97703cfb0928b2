// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/toeirei/includeguard/internal/model"
	"github.com/uptrace/bun"
)

// RunModel is the Bun mapping for analysis_runs.
type RunModel struct {
	bun.BaseModel   `bun:"table:analysis_runs"`
	ID              string    `bun:"id,pk"`
	ProjectPath     string    `bun:"project_path"`
	StartedAt       time.Time `bun:"started_at"`
	Files           int       `bun:"files"`
	Includes        int       `bun:"includes"`
	TotalCost       float64   `bun:"total_cost"`
	TotalWaste      float64   `bun:"total_waste"`
	WastePercentage float64   `bun:"waste_percentage"`
}

func runModelToModel(r RunModel) model.Run {
	return model.Run{
		ID:              r.ID,
		ProjectPath:     r.ProjectPath,
		StartedAt:       r.StartedAt.UTC(),
		Files:           r.Files,
		Includes:        r.Includes,
		TotalCost:       r.TotalCost,
		TotalWaste:      r.TotalWaste,
		WastePercentage: r.WastePercentage,
	}
}

// SaveRun records an analysis run. A run without an ID gets a fresh UUID;
// a run without a start time is stamped with the current time. The stored
// run is returned.
func (d *Database) SaveRun(ctx context.Context, run model.Run) (model.Run, error) {
	if !d.Connected() {
		return model.Run{}, ErrNotConnected
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	// Second precision keeps the value identical across all three backends.
	run.StartedAt = run.StartedAt.UTC().Truncate(time.Second)

	m := RunModel{
		ID:              run.ID,
		ProjectPath:     run.ProjectPath,
		StartedAt:       run.StartedAt,
		Files:           run.Files,
		Includes:        run.Includes,
		TotalCost:       run.TotalCost,
		TotalWaste:      run.TotalWaste,
		WastePercentage: run.WastePercentage,
	}
	if _, err := d.bun.NewInsert().Model(&m).Exec(ctx); err != nil {
		return model.Run{}, fmt.Errorf("save run: %w", MapDBError(err))
	}
	dbLogf("db: saved run %s for %s", run.ID, run.ProjectPath)
	return run, nil
}

// ListRuns returns recorded runs, newest first. A limit <= 0 returns all.
func (d *Database) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if !d.Connected() {
		return nil, ErrNotConnected
	}
	var rows []RunModel
	q := d.bun.NewSelect().Model(&rows).OrderExpr("started_at DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]model.Run, 0, len(rows))
	for _, r := range rows {
		out = append(out, runModelToModel(r))
	}
	return out, nil
}

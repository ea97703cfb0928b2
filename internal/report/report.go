// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package report stores analysis results as JSON, YAML or zstd-compressed
// JSON and renders them for the terminal.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/includeguard/internal/graph"
	"github.com/toeirei/includeguard/internal/model"
)

// ErrUnknownFormat is returned for a report path with an unsupported
// extension.
var ErrUnknownFormat = errors.New("unknown report format")

// Result is everything one analysis run produced.
type Result struct {
	Version      string                    `json:"version" yaml:"version"`
	ProjectPath  string                    `json:"project_path" yaml:"project_path"`
	GeneratedAt  time.Time                 `json:"generated_at" yaml:"generated_at"`
	ParserStats  model.ParserStats         `json:"parser_stats" yaml:"parser_stats"`
	GraphStats   model.GraphStats          `json:"graph_stats" yaml:"graph_stats"`
	MostIncluded []graph.Count             `json:"most_included" yaml:"most_included"`
	Cycles       [][]string                `json:"cycles" yaml:"cycles"`
	Reports      []model.FileReport        `json:"reports" yaml:"reports"`
	Summary      model.ProjectSummary      `json:"summary" yaml:"summary"`
	ForwardDecls []model.ForwardDecl       `json:"forward_declarations" yaml:"forward_declarations"`
	Violations   []model.Violation         `json:"violations" yaml:"violations"`
	PCH          []model.PCHRecommendation `json:"pch_recommendations" yaml:"pch_recommendations"`
	PCHBenefit   model.PCHBenefit          `json:"pch_benefit" yaml:"pch_benefit"`

	// Graph is the include graph of a live run; it is not serialized.
	Graph *graph.Graph `json:"-" yaml:"-"`
}

// Run condenses r into a history record.
func (r *Result) Run() model.Run {
	return model.Run{
		ProjectPath:     r.ProjectPath,
		StartedAt:       r.GeneratedAt,
		Files:           r.Summary.TotalFiles,
		Includes:        r.Summary.TotalIncludes,
		TotalCost:       r.Summary.TotalCost,
		TotalWaste:      r.Summary.TotalWaste,
		WastePercentage: r.Summary.WastePercentage,
	}
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadJSON decodes a JSON report.
func ReadJSON(rd io.Reader) (*Result, error) {
	var r Result
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// WriteYAML writes r as YAML.
func WriteYAML(w io.Writer, r *Result) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReadYAML decodes a YAML report.
func ReadYAML(rd io.Reader) (*Result, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	var r Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &r, nil
}

// WriteCompressed writes r as zstd-compressed JSON.
func WriteCompressed(w io.Writer, r *Result) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(enc).Encode(r); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// ReadCompressed decodes a report written by WriteCompressed.
func ReadCompressed(rd io.Reader) (*Result, error) {
	dec, err := zstd.NewReader(rd)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return ReadJSON(dec)
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatZstd
)

func formatOf(path string) (format, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json.zst"), strings.HasSuffix(lower, ".zst"):
		return formatZstd, nil
	case strings.HasSuffix(lower, ".json"):
		return formatJSON, nil
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return formatYAML, nil
	}
	return 0, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// WriteFile writes r to path in the format its extension names.
func WriteFile(path string, r *Result) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch f {
	case formatJSON:
		err = WriteJSON(&buf, r)
	case formatYAML:
		err = WriteYAML(&buf, r)
	case formatZstd:
		err = WriteCompressed(&buf, r)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadFile loads a report written by WriteFile.
func ReadFile(path string) (*Result, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	switch f {
	case formatYAML:
		return ReadYAML(fh)
	case formatZstd:
		return ReadCompressed(fh)
	default:
		return ReadJSON(fh)
	}
}

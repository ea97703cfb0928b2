// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the plain data types shared by the analyzer, the
// report writers and the data-access layer.
package model

import (
	"fmt"
	"time"
)

// Include is a single #include directive found in a source file.
type Include struct {
	Header   string `json:"header" yaml:"header"`
	Line     int    `json:"line" yaml:"line"`
	IsSystem bool   `json:"is_system" yaml:"is_system"` // <> rather than ""
	FullPath string `json:"full_path,omitempty" yaml:"full_path,omitempty"`
}

// String renders the include the way it was written, with its line.
func (i Include) String() string {
	if i.IsSystem {
		return fmt.Sprintf("<%s>:%d", i.Header, i.Line)
	}
	return fmt.Sprintf("%q:%d", i.Header, i.Line)
}

// FileAnalysis is the parser output for one source file.
type FileAnalysis struct {
	Path           string    `json:"path" yaml:"path"`
	Includes       []Include `json:"includes" yaml:"includes"`
	TotalLines     int       `json:"total_lines" yaml:"total_lines"`
	CodeLines      int       `json:"code_lines" yaml:"code_lines"`
	CommentLines   int       `json:"comment_lines" yaml:"comment_lines"`
	BlankLines     int       `json:"blank_lines" yaml:"blank_lines"`
	HasTemplates   bool      `json:"has_templates" yaml:"has_templates"`
	HasMacros      bool      `json:"has_macros" yaml:"has_macros"`
	NamespaceCount int       `json:"namespace_count" yaml:"namespace_count"`
	ClassCount     int       `json:"class_count" yaml:"class_count"`
}

// ParserStats aggregates FileAnalysis values across a project.
type ParserStats struct {
	TotalFiles         int     `json:"total_files" yaml:"total_files"`
	TotalIncludes      int     `json:"total_includes" yaml:"total_includes"`
	SystemIncludes     int     `json:"system_includes" yaml:"system_includes"`
	UserIncludes       int     `json:"user_includes" yaml:"user_includes"`
	TotalLines         int     `json:"total_lines" yaml:"total_lines"`
	TotalCodeLines     int     `json:"total_code_lines" yaml:"total_code_lines"`
	AvgIncludesPerFile float64 `json:"avg_includes_per_file" yaml:"avg_includes_per_file"`
	AvgLinesPerFile    float64 `json:"avg_lines_per_file" yaml:"avg_lines_per_file"`
	FilesWithTemplates int     `json:"files_with_templates" yaml:"files_with_templates"`
	FilesWithMacros    int     `json:"files_with_macros" yaml:"files_with_macros"`
}

// CostEntry is the estimated cost of one include in one file.
type CostEntry struct {
	Header             string  `json:"header" yaml:"header"`
	Line               int     `json:"line" yaml:"line"`
	EstimatedCost      float64 `json:"estimated_cost" yaml:"estimated_cost"`
	IsSystem           bool    `json:"is_system" yaml:"is_system"`
	LikelyUsed         bool    `json:"likely_used" yaml:"likely_used"`
	UsageConfidence    float64 `json:"usage_confidence" yaml:"usage_confidence"`
	EstimateConfidence float64 `json:"estimate_confidence" yaml:"estimate_confidence"`
	FullPath           string  `json:"full_path,omitempty" yaml:"full_path,omitempty"`
}

// FileMetrics is the subset of FileAnalysis carried in a FileReport.
type FileMetrics struct {
	TotalLines   int  `json:"total_lines" yaml:"total_lines"`
	CodeLines    int  `json:"code_lines" yaml:"code_lines"`
	HasTemplates bool `json:"has_templates" yaml:"has_templates"`
	HasMacros    bool `json:"has_macros" yaml:"has_macros"`
}

// FileReport is the cost breakdown for a single file.
type FileReport struct {
	File                string      `json:"file" yaml:"file"`
	TotalIncludes       int         `json:"total_includes" yaml:"total_includes"`
	TotalEstimatedCost  float64     `json:"total_estimated_cost" yaml:"total_estimated_cost"`
	WastedCost          float64     `json:"wasted_cost" yaml:"wasted_cost"`
	PotentialSavingsPct float64     `json:"potential_savings_pct" yaml:"potential_savings_pct"`
	TopExpensive        []CostEntry `json:"top_expensive" yaml:"top_expensive"`
	Opportunities       []CostEntry `json:"optimization_opportunities" yaml:"optimization_opportunities"`
	AllIncludes         []CostEntry `json:"all_includes" yaml:"all_includes"`
	Metrics             FileMetrics `json:"file_metrics" yaml:"file_metrics"`
}

// Opportunity is an expensive include that looks unused.
type Opportunity struct {
	File     string  `json:"file" yaml:"file"`
	FullPath string  `json:"full_path" yaml:"full_path"`
	Header   string  `json:"header" yaml:"header"`
	Cost     float64 `json:"cost" yaml:"cost"`
	Line     int     `json:"line" yaml:"line"`
}

// ProjectSummary rolls FileReports up to project level.
type ProjectSummary struct {
	TotalFiles       int           `json:"total_files" yaml:"total_files"`
	TotalIncludes    int           `json:"total_includes" yaml:"total_includes"`
	TotalCost        float64       `json:"total_cost" yaml:"total_cost"`
	TotalWaste       float64       `json:"total_waste" yaml:"total_waste"`
	WastePercentage  float64       `json:"waste_percentage" yaml:"waste_percentage"`
	AvgCostPerFile   float64       `json:"avg_cost_per_file" yaml:"avg_cost_per_file"`
	TopWastefulFiles []FileReport  `json:"top_wasteful_files" yaml:"top_wasteful_files"`
	TopOpportunities []Opportunity `json:"top_opportunities" yaml:"top_opportunities"`
}

// ForwardDecl suggests replacing an include with a forward declaration.
type ForwardDecl struct {
	File       string  `json:"file" yaml:"file"`
	Header     string  `json:"header" yaml:"header"`
	ClassName  string  `json:"class_name" yaml:"class_name"`
	Line       int     `json:"line" yaml:"line"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Suggestion string  `json:"suggestion" yaml:"suggestion"`
}

// ViolationKind names the static error a Violation reports.
type ViolationKind string

// IncompleteTypeUse is reported when a translation unit needs the full
// definition of a type it only forward-declares.
const IncompleteTypeUse ViolationKind = "IncompleteTypeUse"

// Violation is a single static finding against a source file.
type Violation struct {
	File string        `json:"file" yaml:"file"`
	Line int           `json:"line" yaml:"line"`
	Type string        `json:"type" yaml:"type"`
	Kind ViolationKind `json:"kind" yaml:"kind"`
	Text string        `json:"text" yaml:"text"`
}

// String renders the violation in compiler style.
func (v Violation) String() string {
	return fmt.Sprintf("%s:%d: %s: %s (%s)", v.File, v.Line, v.Kind, v.Type, v.Text)
}

// PCHRecommendation is a header suggested for a precompiled header.
type PCHRecommendation struct {
	Header           string   `json:"header" yaml:"header"`
	UsageCount       int      `json:"usage_count" yaml:"usage_count"`
	Cost             float64  `json:"cost" yaml:"cost"`
	Score            float64  `json:"pch_score" yaml:"pch_score"`
	EstimatedSavings float64  `json:"estimated_savings" yaml:"estimated_savings"`
	IsSystem         bool     `json:"is_system" yaml:"is_system"`
	IsStable         bool     `json:"is_stable" yaml:"is_stable"`
	UsedByFiles      []string `json:"used_by_files" yaml:"used_by_files"`
	TotalFilesUsing  int      `json:"total_files_using" yaml:"total_files_using"`
}

// PCHBenefit estimates the overall effect of a PCH configuration.
type PCHBenefit struct {
	TotalSavings     float64 `json:"total_savings" yaml:"total_savings"`
	FilesBenefiting  int     `json:"files_benefiting" yaml:"files_benefiting"`
	EstimatedSpeedup float64 `json:"estimated_speedup" yaml:"estimated_speedup"`
	HeadersInPCH     int     `json:"headers_in_pch" yaml:"headers_in_pch"`
}

// GraphStats summarises the include dependency graph.
type GraphStats struct {
	TotalNodes    int     `json:"total_nodes" yaml:"total_nodes"`
	InternalNodes int     `json:"internal_nodes" yaml:"internal_nodes"`
	ExternalNodes int     `json:"external_nodes" yaml:"external_nodes"`
	TotalEdges    int     `json:"total_edges" yaml:"total_edges"`
	AvgDegree     float64 `json:"avg_degree" yaml:"avg_degree"`
	Cycles        int     `json:"cycles" yaml:"cycles"`
	MaxDepth      int     `json:"max_depth" yaml:"max_depth"`
}

// Run is a recorded analysis run.
type Run struct {
	ID              string    `json:"id" yaml:"id"`
	ProjectPath     string    `json:"project_path" yaml:"project_path"`
	StartedAt       time.Time `json:"started_at" yaml:"started_at"`
	Files           int       `json:"files" yaml:"files"`
	Includes        int       `json:"includes" yaml:"includes"`
	TotalCost       float64   `json:"total_cost" yaml:"total_cost"`
	TotalWaste      float64   `json:"total_waste" yaml:"total_waste"`
	WastePercentage float64   `json:"waste_percentage" yaml:"waste_percentage"`
}

// String returns a one-line description of the run.
func (r Run) String() string {
	return fmt.Sprintf("%s %s files=%d cost=%.1f waste=%.1f%%",
		r.StartedAt.Format(time.RFC3339), r.ProjectPath, r.Files, r.TotalCost, r.WastePercentage)
}

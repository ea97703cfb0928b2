// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pch picks headers worth moving into a precompiled header.
package pch

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toeirei/includeguard/internal/model"
)

// Defaults for Recommend.
const (
	DefaultMinUsage = 3
	DefaultMax      = 20
	DefaultFileMax  = 15

	minCost = 100
)

var stableSystemHeaders = map[string]bool{
	"<iostream>": true, "<vector>": true, "<string>": true, "<map>": true, "<algorithm>": true,
	"<memory>": true, "<functional>": true, "<utility>": true, "<array>": true, "<tuple>": true,
	"<unordered_map>": true, "<set>": true, "<queue>": true, "<stack>": true, "<deque>": true,
	"<list>": true, "<cmath>": true, "<cstring>": true, "<cstdio>": true, "<cstdlib>": true,
	"<fstream>": true, "<sstream>": true, "<iomanip>": true, "<stdexcept>": true,
	"<type_traits>": true, "<chrono>": true, "<thread>": true, "<mutex>": true,
}

// CostFunc prices a single include.
type CostFunc func(inc model.Include) float64

// Spelling returns the include as it appears in a directive: <h> or "h".
func Spelling(inc model.Include) string {
	if inc.IsSystem {
		return "<" + inc.Header + ">"
	}
	return `"` + inc.Header + `"`
}

// Recommend ranks headers by usage times cost, weighted for stability.
// Headers used fewer than minUsage times or costing under 100 are skipped.
// Non-positive limits select the defaults.
func Recommend(analyses []model.FileAnalysis, cost CostFunc, minUsage, maxRecs int) []model.PCHRecommendation {
	if minUsage <= 0 {
		minUsage = DefaultMinUsage
	}
	if maxRecs <= 0 {
		maxRecs = DefaultMax
	}

	usage := map[string]int{}
	costs := map[string]float64{}
	files := map[string]map[string]bool{}
	var order []string
	for _, a := range analyses {
		for _, inc := range a.Includes {
			key := Spelling(inc)
			if _, ok := usage[key]; !ok {
				order = append(order, key)
				costs[key] = cost(inc)
				files[key] = map[string]bool{}
			}
			usage[key]++
			files[key][filepath.Base(a.Path)] = true
		}
	}

	recs := []model.PCHRecommendation{}
	for _, h := range order {
		n, c := usage[h], costs[h]
		if n < minUsage || c < minCost {
			continue
		}
		isSystem := strings.HasPrefix(h, "<")
		isStable := stableSystemHeaders[h]
		bonus := 1.0
		switch {
		case isStable:
			bonus = 1.5
		case isSystem:
			bonus = 1.2
		}
		users := make([]string, 0, len(files[h]))
		for f := range files[h] {
			users = append(users, f)
		}
		sort.Strings(users)
		recs = append(recs, model.PCHRecommendation{
			Header:           h,
			UsageCount:       n,
			Cost:             c,
			Score:            float64(n) * c * bonus,
			EstimatedSavings: math.Max(0, c*float64(n)-c*1.2),
			IsSystem:         isSystem,
			IsStable:         isStable,
			UsedByFiles:      users[:min(5, len(users))],
			TotalFilesUsing:  len(users),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > maxRecs {
		recs = recs[:maxRecs]
	}
	return recs
}

// FileContent renders a pch.h holding the first maxHeaders recommendations.
func FileContent(recs []model.PCHRecommendation, maxHeaders int) string {
	if maxHeaders <= 0 {
		maxHeaders = DefaultFileMax
	}
	var b strings.Builder
	b.WriteString(`// Precompiled header generated by includeguard.
//
// Include this file first in every translation unit.
// Build with: g++ -x c++-header pch.h -o pch.h.gch
//

#ifndef PCH_H
#define PCH_H

// Most frequently used and expensive headers

`)
	for _, r := range recs[:min(maxHeaders, len(recs))] {
		fmt.Fprintf(&b, "#include %s  // Used by %d files, cost: %.0f\n", r.Header, r.UsageCount, r.Cost)
	}
	b.WriteString("\n#endif // PCH_H\n")
	return b.String()
}

// Benefit estimates the overall gain of a PCH built from recs.
func Benefit(recs []model.PCHRecommendation) model.PCHBenefit {
	if len(recs) == 0 {
		return model.PCHBenefit{}
	}
	var b model.PCHBenefit
	unique := map[string]bool{}
	for _, r := range recs {
		b.TotalSavings += r.EstimatedSavings
		for _, f := range r.UsedByFiles {
			unique[f] = true
		}
	}
	b.FilesBenefiting = len(unique)
	b.EstimatedSpeedup = math.Min(60, b.TotalSavings/1000)
	b.HeadersInPCH = len(recs)
	return b
}

// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ci gates pull requests on include waste and renders a Markdown
// comment for the review.
package ci

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toeirei/includeguard/internal/report"
)

// ErrThreshold is returned by the CLI when a threshold check fails.
var ErrThreshold = errors.New("include thresholds exceeded")

// HighCost is the cost above which an unused include counts as high
// priority.
const HighCost = 1500

// Thresholds are the CI limits.
type Thresholds struct {
	MaxWastePercentage float64
	MaxHighCostUnused  int
}

// DefaultThresholds returns the limits used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxWastePercentage: 50, MaxHighCostUnused: 5}
}

// Verdict is the outcome of Check.
type Verdict struct {
	Passing  bool
	Messages []string
}

// Check compares the summary of r against th.
func Check(r *report.Result, th Thresholds) Verdict {
	v := Verdict{Passing: true}
	waste := r.Summary.WastePercentage
	if waste > th.MaxWastePercentage {
		v.Passing = false
		v.Messages = append(v.Messages, fmt.Sprintf("FAIL: waste percentage %.1f%% exceeds threshold %.1f%%", waste, th.MaxWastePercentage))
	} else {
		v.Messages = append(v.Messages, fmt.Sprintf("PASS: waste percentage %.1f%% (threshold: %.1f%%)", waste, th.MaxWastePercentage))
	}

	high := 0
	for _, o := range r.Summary.TopOpportunities {
		if o.Cost > HighCost {
			high++
		}
	}
	if high > th.MaxHighCostUnused {
		v.Passing = false
		v.Messages = append(v.Messages, fmt.Sprintf("FAIL: %d high-cost unused headers exceeds threshold %d", high, th.MaxHighCostUnused))
	} else {
		v.Messages = append(v.Messages, fmt.Sprintf("PASS: high-cost unused headers: %d (threshold: %d)", high, th.MaxHighCostUnused))
	}
	return v
}

// Err returns ErrThreshold when v failed, nil otherwise.
func (v Verdict) Err() error {
	if v.Passing {
		return nil
	}
	return ErrThreshold
}

// PRComment renders r and its verdict as a Markdown comment.
func PRComment(r *report.Result, v Verdict) string {
	s := r.Summary
	var b strings.Builder
	b.WriteString("## IncludeGuard Analysis\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Files analyzed | %d |\n", s.TotalFiles)
	fmt.Fprintf(&b, "| Includes | %d |\n", s.TotalIncludes)
	fmt.Fprintf(&b, "| Build impact | %.0f cost units |\n", s.TotalCost)
	fmt.Fprintf(&b, "| Potential waste | %.0f units (%.1f%%) |\n\n", s.TotalWaste, s.WastePercentage)

	opps := s.TopOpportunities[:min(15, len(s.TopOpportunities))]
	if len(opps) == 0 {
		b.WriteString("### No issues found\n\nAll includes appear necessary.\n\n")
	} else {
		b.WriteString("### Issues found\n\n")
		var high, medium []string
		var savings float64
		for _, o := range opps {
			savings += o.Cost
			line := fmt.Sprintf("- `%s` line %d: `%s` (cost: %.0f)", o.File, o.Line, o.Header, o.Cost)
			if o.Cost > HighCost {
				high = append(high, line+" - unused")
			} else {
				medium = append(medium, line)
			}
		}
		writeGroup(&b, "High priority", high, 5)
		writeGroup(&b, "Medium priority", medium, 3)
		fmt.Fprintf(&b, "Removing %d unnecessary includes saves an estimated %.0f cost units.\n\n", len(opps), savings)
	}

	if n := len(r.ForwardDecls); n > 0 {
		fmt.Fprintf(&b, "**Forward declaration opportunities (%d)**\n", n)
		for _, f := range r.ForwardDecls[:min(5, n)] {
			fmt.Fprintf(&b, "- `%s`: replace `#include \"%s\"` with `%s` (confidence: %.0f%%)\n", f.File, f.Header, f.Suggestion, f.Confidence*100)
		}
		b.WriteString("\n")
	}

	if n := len(r.Violations); n > 0 {
		fmt.Fprintf(&b, "**Incomplete type uses (%d)**\n", n)
		for _, viol := range r.Violations[:min(5, n)] {
			fmt.Fprintf(&b, "- `%s` line %d: `%s` needs the definition of `%s`\n", viol.File, viol.Line, viol.Text, viol.Type)
		}
		b.WriteString("\n")
	}

	if n := len(r.PCH); n > 0 {
		fmt.Fprintf(&b, "**Precompiled header candidates (%d)**\n", n)
		for _, p := range r.PCH[:min(3, n)] {
			fmt.Fprintf(&b, "- `%s`: used %d times (cost: %.0f)\n", p.Header, p.UsageCount, p.Cost)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Thresholds\n\n")
	for _, m := range v.Messages {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	if v.Passing {
		b.WriteString("\n**Result: passing**\n")
	} else {
		b.WriteString("\n**Result: failing**\n")
	}

	b.WriteString("\n### Automated fixes\n\n```bash\nincludeguard fix . --output fixes.patch\ngit apply fixes.patch\n```\n")
	return b.String()
}

func writeGroup(b *strings.Builder, title string, lines []string, limit int) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s (%d unused includes)**\n", title, len(lines))
	for _, l := range lines[:min(limit, len(lines))] {
		b.WriteString(l + "\n")
	}
	if extra := len(lines) - limit; extra > 0 {
		fmt.Fprintf(b, "- ... and %d more\n", extra)
	}
	b.WriteString("\n")
}

// Copyright (c) 2025 ToeiRei
// IncludeGuard - C++ include dependency analyzer
// This source code is licensed under the MIT license found in the LICENSE file.

package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/includeguard/internal/i18n"
	"golang.org/x/term"
)

const summaryLimit = 10

// IsTerminal reports whether w is a terminal. Only *os.File can be one.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type styles struct {
	title, label, value, warn, good, dim lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		value: lipgloss.NewStyle().Bold(true),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		good:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		dim:   lipgloss.NewStyle().Faint(true),
	}
}

// RenderSummary prints the headline numbers and the top findings of r.
// color enables ANSI styling; callers usually pass IsTerminal(w).
func RenderSummary(w io.Writer, r *Result, color bool) error {
	st := newStyles(color)
	var b strings.Builder

	row := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", st.label.Render(fmt.Sprintf("%-22s", label+":")), st.value.Render(value))
	}
	section := func(title string, n int) {
		fmt.Fprintf(&b, "\n%s (%d)\n", st.title.Render(title), n)
	}

	s := r.Summary
	b.WriteString(st.title.Render(i18n.T("summary.title")) + "\n")
	row(i18n.T("summary.files"), fmt.Sprintf("%d", s.TotalFiles))
	row(i18n.T("summary.includes"), fmt.Sprintf("%d", s.TotalIncludes))
	row(i18n.T("summary.total_cost"), fmt.Sprintf("%.1f", s.TotalCost))
	row(i18n.T("summary.waste"), fmt.Sprintf("%.1f", s.TotalWaste))
	wasteStyle := st.good
	if s.WastePercentage > 25 {
		wasteStyle = st.warn
	}
	fmt.Fprintf(&b, "  %s %s\n", st.label.Render(fmt.Sprintf("%-22s", i18n.T("summary.waste_pct")+":")),
		wasteStyle.Render(fmt.Sprintf("%.1f%%", s.WastePercentage)))
	g := r.GraphStats
	row(i18n.T("summary.graph"), fmt.Sprintf("%d nodes, %d edges, depth %d, %d cycles",
		g.TotalNodes, g.TotalEdges, g.MaxDepth, g.Cycles))

	section(i18n.T("summary.top_opportunities"), len(s.TopOpportunities))
	if len(s.TopOpportunities) == 0 {
		b.WriteString("  " + st.dim.Render(i18n.T("summary.none")) + "\n")
	}
	for _, o := range s.TopOpportunities[:min(summaryLimit, len(s.TopOpportunities))] {
		fmt.Fprintf(&b, "  %s:%d  %s  %s\n", o.File, o.Line, st.warn.Render(o.Header), st.dim.Render(fmt.Sprintf("cost %.0f", o.Cost)))
	}

	section(i18n.T("summary.forward_decls"), len(r.ForwardDecls))
	if len(r.ForwardDecls) == 0 {
		b.WriteString("  " + st.dim.Render(i18n.T("summary.none")) + "\n")
	}
	for _, f := range r.ForwardDecls[:min(summaryLimit, len(r.ForwardDecls))] {
		fmt.Fprintf(&b, "  %s:%d  %q -> %s  %s\n", f.File, f.Line, f.Header, st.good.Render(f.Suggestion),
			st.dim.Render(fmt.Sprintf("%.0f%%", f.Confidence*100)))
	}

	section(i18n.T("summary.violations"), len(r.Violations))
	if len(r.Violations) == 0 {
		b.WriteString("  " + st.dim.Render(i18n.T("summary.none")) + "\n")
	}
	for _, v := range r.Violations[:min(summaryLimit, len(r.Violations))] {
		b.WriteString("  " + st.warn.Render(v.String()) + "\n")
	}

	section(i18n.T("summary.pch"), len(r.PCH))
	if len(r.PCH) == 0 {
		b.WriteString("  " + st.dim.Render(i18n.T("summary.none")) + "\n")
	}
	for _, p := range r.PCH[:min(summaryLimit, len(r.PCH))] {
		fmt.Fprintf(&b, "  %-28s %s\n", p.Header, st.dim.Render(fmt.Sprintf("used %dx, score %.0f", p.UsageCount, p.Score)))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

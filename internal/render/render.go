// Package render produces Markdown and plain-text reports from a result set.
package render

import (
	"fmt"
	"strings"

	"github.com/pieme/nzpoints/internal/engine"
)

// Title heads every report.
const Title = "New Zealand Skilled Migrant Points Calculator"

// Points formats a score the way the calculator displays it.
func Points(n int) string {
	return fmt.Sprintf("%dpt", n)
}

// ShareMessage is the text offered when a user shares their result.
func ShareMessage(rs engine.ResultSet) string {
	return fmt.Sprintf("My New Zealand immigration points is %d", rs.Total)
}

// Outcome describes the total against the selection threshold.
func Outcome(rs engine.ResultSet) string {
	if rs.MeetsThreshold() {
		return fmt.Sprintf("meets the %s selection threshold", Points(rs.SelectionThreshold))
	}
	return fmt.Sprintf("below the %s selection threshold by %s",
		Points(rs.SelectionThreshold), Points(rs.SelectionThreshold-rs.Total))
}

// Markdown renders a result set as a Markdown report.
func Markdown(rs engine.ResultSet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", Title)
	fmt.Fprintf(&b, "**Total:** %s\n", Points(rs.Total))
	fmt.Fprintf(&b, "**Outcome:** %s\n", Outcome(rs))
	fmt.Fprintf(&b, "**Rule table:** %s v%d\n", rs.RuleTable, rs.RuleVersion)
	fmt.Fprintf(&b, "**Evaluated:** %s\n\n", rs.EvaluatedAt.Format("2006-01-02"))

	b.WriteString("## Points\n\n")
	b.WriteString("| Category | Points |\n|---|---|\n")
	for _, it := range rs.Items {
		fmt.Fprintf(&b, "| %s | %s |\n", it.Label, Points(it.Points))
	}
	fmt.Fprintf(&b, "| **Total** | **%s** |\n\n", Points(rs.Total))

	answered := false
	for _, it := range rs.Items {
		if len(it.Breakdown) > 0 {
			answered = true
		}
	}
	if answered {
		b.WriteString("## Breakdown\n\n")
		for _, it := range rs.Items {
			if len(it.Breakdown) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s (%s)\n\n", it.Label, Points(it.Points))
			for _, c := range it.Breakdown {
				fmt.Fprintf(&b, "- %s: %s\n", componentName(c), Points(c.Points))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No answers yet.\n\n")
	}

	if len(rs.Anomalies) > 0 {
		b.WriteString("## Anomalies\n\n")
		for _, a := range rs.Anomalies {
			fmt.Fprintf(&b, "- `%s.%s` = `%s`: %s\n", a.Category, a.Field, a.Value, a.Reason)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Text renders a result set for a terminal.
func Text(rs engine.ResultSet) string {
	var b strings.Builder

	width := len("Total")
	for _, it := range rs.Items {
		if len(it.Label) > width {
			width = len(it.Label)
		}
	}

	fmt.Fprintf(&b, "%s\n\n", Title)
	for _, it := range rs.Items {
		fmt.Fprintf(&b, "%-*s  %6s\n", width, it.Label, Points(it.Points))
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", width+8))
	fmt.Fprintf(&b, "%-*s  %6s\n\n", width, "Total", Points(rs.Total))
	fmt.Fprintf(&b, "Outcome: %s\n", Outcome(rs))
	fmt.Fprintf(&b, "Rule table: %s v%d\n", rs.RuleTable, rs.RuleVersion)

	for _, a := range rs.Anomalies {
		fmt.Fprintf(&b, "warning: %s\n", a)
	}
	return b.String()
}

func componentName(c engine.Component) string {
	if c.Detail == "" {
		return c.Name
	}
	return c.Name + " (" + c.Detail + ")"
}

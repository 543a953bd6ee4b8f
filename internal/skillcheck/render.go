package skillcheck

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skillcreator/skillgate/internal/util"
)

// MaxWarningsShown caps the warnings listed in a rendered report.
const MaxWarningsShown = 5

const reportWidth = 64

var (
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1).
			Width(reportWidth)
)

// Render formats the aggregate result as a bordered report.
func Render(res *Result) string {
	var sections []string

	header := []string{
		headingStyle.Render("SKILL VALIDATION REPORT"),
		"Directory: " + util.TruncateANSI(res.SkillDir, reportWidth-12),
		"Type: " + string(res.SkillType),
	}
	sections = append(sections, strings.Join(header, "\n"))

	var checks []string
	checks = append(checks, renderSection("Structure Validation", res.Structure)...)
	checks = append(checks, renderSection("Documentation Validation", res.Documentation)...)
	if res.Compliance != nil {
		checks = append(checks, renderSection("COR Compliance", &res.Compliance.Report)...)
	} else if res.ComplianceSkipped != nil {
		checks = append(checks, "COR Compliance: "+mutedStyle.Render("SKIPPED ("+res.ComplianceSkipped.Reason+")"))
	}
	sections = append(sections, strings.Join(checks, "\n"))

	if warnings := res.Warnings(); len(warnings) > 0 {
		lines := []string{warnStyle.Render("WARNINGS:")}
		shown := warnings
		if len(shown) > MaxWarningsShown {
			shown = shown[:MaxWarningsShown]
		}
		for _, w := range shown {
			lines = append(lines, "  ⚠ "+util.TruncateANSI(w, reportWidth-8))
		}
		if extra := len(warnings) - len(shown); extra > 0 {
			lines = append(lines, fmt.Sprintf("  ... and %d more", extra))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	summary := []string{
		headingStyle.Render("SUMMARY"),
		fmt.Sprintf("  Total Checks: %d", res.Summary.Checks),
		fmt.Sprintf("  Failures: %d", res.Summary.Failures),
		fmt.Sprintf("  Warnings: %d", res.Summary.Warnings),
	}
	sections = append(sections, strings.Join(summary, "\n"))
	sections = append(sections, "OVERALL: "+status(res.Passed))

	divider := mutedStyle.Render(strings.Repeat("─", reportWidth-2))
	return boxStyle.Render(strings.Join(sections, "\n"+divider+"\n"))
}

// RenderReport formats a single checker report as plain lines.
func RenderReport(title string, r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", title)
	fmt.Fprintf(&b, "Checks Run: %d\n", r.Checks)
	if len(r.Failures) > 0 {
		b.WriteString("\nFAILURES:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  ✗ %s\n", f)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\nWARNINGS:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  ⚠ %s\n", w)
		}
	}
	if r.Passed {
		b.WriteString("\nRESULT: PASSED\n")
	} else {
		b.WriteString("\nRESULT: FAILED\n")
	}
	return b.String()
}

func renderSection(name string, r *Report) []string {
	lines := []string{name + ": " + status(r.Passed)}
	for _, f := range r.Failures {
		lines = append(lines, "  - "+util.TruncateANSI(f, reportWidth-6))
	}
	return lines
}

func status(passed bool) string {
	if passed {
		return passStyle.Render("✓ PASSED")
	}
	return failStyle.Render("✗ FAILED")
}

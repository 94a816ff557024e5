// Package reporter renders audit reports as terminal text, JSON, Markdown,
// SARIF or PDF.
package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/kluth/npm-code-auditter/internal/aggregate"
	"github.com/kluth/npm-code-auditter/internal/analyzer"
)

// ANSI color codes
const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

const reportWidth = 74

// ToolVersion is reported in SARIF output. Set by the CLI.
var ToolVersion = "dev"

// Formats
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatSARIF    = "sarif"
	FormatPDF      = "pdf"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatTerminal, FormatJSON, FormatMarkdown, FormatSARIF, FormatPDF}
}

// ValidateFormat returns an error for an unknown format name.
func ValidateFormat(format string) error {
	for _, f := range Formats() {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q: must be one of %s", format, strings.Join(Formats(), ", "))
}

// Reporter outputs audit results to a writer.
type Reporter struct {
	writer  io.Writer
	format  string
	verbose bool
}

// New creates a new Reporter. In verbose mode every finding is listed with
// its location and code extract; otherwise findings are counted per category.
func New(w io.Writer, format string, verbose bool) *Reporter {
	if format == "" {
		format = FormatTerminal
	}
	return &Reporter{writer: w, format: format, verbose: verbose}
}

// Render outputs the report.
func (r *Reporter) Render(report Report) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(report)
	case FormatMarkdown:
		return r.renderMarkdown(report)
	case FormatSARIF:
		return r.renderSARIF(report)
	case FormatPDF:
		return r.renderPDF(report)
	case FormatTerminal:
		return r.renderTerminal(report)
	default:
		return ValidateFormat(r.format)
	}
}

func (r *Reporter) renderTerminal(report Report) error {
	w := r.writer

	r.printLogo(w)
	fmt.Fprintln(w)

	findings := report.Findings()
	score := CalculateRiskScore(findings)
	scoreColor := riskColor(score)

	r.printSectionHeader(w, "Summary")
	r.printField(w, "Project", report.Project+"@"+report.Version)
	r.printField(w, "Path", report.Path)
	r.printField(w, "Run", report.RunID)
	r.printField(w, "Packages", fmt.Sprintf("%d", len(report.Entries)))
	r.printField(w, "Findings", fmt.Sprintf("%d", len(findings)))
	if stats := severityStats(report.SeverityCounts(), true); stats != "" {
		r.printField(w, "By severity", stats)
	}
	r.printField(w, "Risk", fmt.Sprintf("%s%s (%d/100)%s", scoreColor, RiskLabel(score), score, colorReset))
	r.printRiskBar(w, score, scoreColor)
	fmt.Fprintln(w)

	if len(findings) == 0 {
		r.printBox(w, " No suspicious patterns found", colorGreen)
		r.printFooter(w, report)
		return nil
	}

	r.printSectionHeader(w, "Packages")
	clean := 0
	for _, e := range report.Entries {
		if e.Transitive == 0 {
			clean++
			continue
		}
		sevColor := colorDim
		if e.Own > 0 {
			sevColor = severityColor(maxSeverity(e.Node.Findings))
		}
		fmt.Fprintf(w, "\n  %s%s%s %s%s  %s(own %d, transitive %d)%s\n",
			colorBold, sevColor, packageIcon(e), e.Node.Key(), colorReset, colorDim, e.Own, e.Transitive, colorReset)
		if e.Own == 0 {
			continue
		}
		if r.verbose {
			r.printFindings(w, e.Node.Findings)
		} else {
			r.printCategoryCounts(w, e.Node.Findings)
		}
	}
	if clean > 0 {
		fmt.Fprintf(w, "\n  %s%s✓ %d %s without findings%s\n", colorGreen, colorDim, clean, pluralize(clean, "package", "packages"), colorReset)
	}
	fmt.Fprintln(w)

	r.printFooter(w, report)
	return nil
}

func (r *Reporter) printFindings(w io.Writer, findings []analyzer.Finding) {
	for _, f := range findings {
		sevColor := severityColor(f.Severity)
		fmt.Fprintf(w, "    %s%s%s %s %s[%s]%s\n", sevColor, severityIcon(f.Severity), colorReset, f.Title(), colorDim, f.Severity, colorReset)
		fmt.Fprintf(w, "      %s%s%s\n", colorDim, findingLocation(f), colorReset)
		if f.Snippet != "" {
			fmt.Fprintf(w, "      %s│%s %s\n", colorMagenta, colorReset, f.Snippet)
		}
	}
}

func (r *Reporter) printCategoryCounts(w io.Writer, findings []analyzer.Finding) {
	for _, row := range aggregate.SortedCounts(findings) {
		sevColor := severityColor(row.Category.Severity())
		fmt.Fprintf(w, "    %s%s%s %3d × %s\n", sevColor, severityIcon(row.Category.Severity()), colorReset, row.Count, row.Category)
	}
}

func (r *Reporter) printFooter(w io.Writer, report Report) {
	fmt.Fprintf(w, "%s%s%s\n", colorDim, strings.Repeat("═", reportWidth), colorReset)
	fmt.Fprintf(w, "%sGenerated at %s%s\n\n", colorDim, report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"), colorReset)
}

func (r *Reporter) printLogo(w io.Writer) {
	logo := `
    ___             _ _ _   _
   / _ \           | (_) | | |
  / /_\ \_   _  __| |_| |_| |_ ___ _ __
  |  _  | | | |/ _` + "`" + ` | | __| __/ _ \ '__|
  | | | | |_| | (_| | | |_| ||  __/ |
  \_| |_/\__,_|\__,_|_|\__|\__\___|_|
`
	fmt.Fprintf(w, "%s%s%s\n", colorBold, colorMagenta, logo)
	fmt.Fprintf(w, " %s%s npm Code Audit %s\n", colorCyan, strings.Repeat("━", 10), colorReset)
}

func (r *Reporter) renderMarkdown(report Report) error {
	w := r.writer
	findings := report.Findings()
	score := CalculateRiskScore(findings)

	fmt.Fprintf(w, "# npm Code Audit: %s@%s\n\n", report.Project, report.Version)
	fmt.Fprintf(w, "- **Path**: `%s`\n", report.Path)
	fmt.Fprintf(w, "- **Run**: %s\n", report.RunID)
	fmt.Fprintf(w, "- **Packages**: %d\n", len(report.Entries))
	fmt.Fprintf(w, "- **Findings**: %d\n", len(findings))
	fmt.Fprintf(w, "- **Risk**: %s (%d/100)\n\n", RiskLabel(score), score)

	if len(findings) == 0 {
		fmt.Fprintf(w, "> No suspicious patterns found.\n\n")
		fmt.Fprintf(w, "*Generated at %s*\n", report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	}

	fmt.Fprintf(w, "## Packages\n\n")
	fmt.Fprintf(w, "| Package | Version | Own | Transitive |\n")
	fmt.Fprintf(w, "|---|---|---:|---:|\n")
	for _, e := range report.Entries {
		if e.Transitive == 0 {
			continue
		}
		fmt.Fprintf(w, "| %s | %s | %d | %d |\n", e.Node.Name, e.Node.Version, e.Own, e.Transitive)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "## Findings\n\n")
	for _, e := range report.Entries {
		if e.Own == 0 {
			continue
		}
		fmt.Fprintf(w, "### %s\n\n", e.Node.Key())
		if !r.verbose {
			for _, row := range aggregate.SortedCounts(e.Node.Findings) {
				fmt.Fprintf(w, "- %s %s: %d\n", severityEmoji(row.Category.Severity()), row.Category, row.Count)
			}
			fmt.Fprintln(w)
			continue
		}
		for _, f := range e.Node.Findings {
			fmt.Fprintf(w, "- %s **[%s] %s** `%s`\n", severityEmoji(f.Severity), f.Severity, f.Title(), findingLocation(f))
			if f.Snippet != "" {
				fmt.Fprintf(w, "\n  ```javascript\n  %s\n  ```\n", f.Snippet)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "---\n\n*Generated at %s*\n", report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

// ── Rendering Helpers ──

func (r *Reporter) printBox(w io.Writer, text string, color string) {
	inner := reportWidth - 4
	padded := text
	if len(padded) < inner {
		padded = padded + strings.Repeat(" ", inner-len(padded))
	}
	fmt.Fprintf(w, "%s%s╔%s╗%s\n", colorBold, color, strings.Repeat("═", inner+2), colorReset)
	fmt.Fprintf(w, "%s%s║ %s ║%s\n", colorBold, color, padded, colorReset)
	fmt.Fprintf(w, "%s%s╚%s╝%s\n", colorBold, color, strings.Repeat("═", inner+2), colorReset)
}

func (r *Reporter) printSectionHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "%s%s┌─ %s %s%s\n", colorBold, colorWhite, title, strings.Repeat("─", reportWidth-5-len(title)), colorReset)
}

func (r *Reporter) printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s%-16s%s %s\n", colorDim, label+":", colorReset, value)
}

func (r *Reporter) printRiskBar(w io.Writer, score int, color string) {
	barWidth := 40
	filled := score * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled
	fmt.Fprintf(w, "  %s%s%s%s%s %d%%\n",
		color,
		strings.Repeat("█", filled),
		colorDim,
		strings.Repeat("░", empty),
		colorReset,
		score)
}

// ── Pure Functions ──

func findingLocation(f analyzer.Finding) string {
	if f.Location == (analyzer.SourceSpan{}) {
		return f.File
	}
	return fmt.Sprintf("%s:%d:%d", f.File, f.Location.LineStart, f.Location.ColStart)
}

func severityStats(counts map[analyzer.Severity]int, color bool) string {
	order := []analyzer.Severity{analyzer.SeverityCritical, analyzer.SeverityHigh, analyzer.SeverityMedium, analyzer.SeverityLow}
	var stats []string
	for _, s := range order {
		c := counts[s]
		if c == 0 {
			continue
		}
		if color {
			stats = append(stats, fmt.Sprintf("%s%d %s%s", severityColor(s), c, s, colorReset))
		} else {
			stats = append(stats, fmt.Sprintf("%d %s", c, s))
		}
	}
	return strings.Join(stats, " · ")
}

func maxSeverity(findings []analyzer.Finding) analyzer.Severity {
	max := analyzer.SeverityLow
	for _, f := range findings {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}

func packageIcon(e aggregate.Entry) string {
	if e.Own == 0 {
		return "↳"
	}
	return severityIcon(maxSeverity(e.Node.Findings))
}

func riskColor(score int) string {
	switch {
	case score >= 40:
		return colorRed
	case score >= 20:
		return colorYellow
	default:
		return colorGreen
	}
}

func severityColor(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityCritical:
		return colorRed
	case analyzer.SeverityHigh:
		return colorRed
	case analyzer.SeverityMedium:
		return colorYellow
	case analyzer.SeverityLow:
		return colorDim
	default:
		return colorWhite
	}
}

func severityIcon(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityCritical:
		return "✖"
	case analyzer.SeverityHigh:
		return "!"
	case analyzer.SeverityMedium:
		return "~"
	case analyzer.SeverityLow:
		return "-"
	default:
		return " "
	}
}

func severityEmoji(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityCritical:
		return "🛑"
	case analyzer.SeverityHigh:
		return "⚠️"
	case analyzer.SeverityMedium:
		return "🔸"
	default:
		return "🔹"
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kluth/npm-code-auditter/internal/aggregate"
	"github.com/kluth/npm-code-auditter/internal/analyzer"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch {
	case m.loading:
		content = lipgloss.NewStyle().Padding(1, 2).Render(m.spinner.View() + " Scanning dependencies...")
	case m.report == nil:
		msg := "No report."
		if m.err != nil {
			msg = "Error: " + m.err.Error()
		}
		content = lipgloss.NewStyle().Padding(1, 2).Render(ErrorStyle.Render(msg))
	default:
		content = m.viewDashboard()
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, m.viewStatusBar())
}

func (m Model) viewStatusBar() string {
	keys := "↑/↓ navigate • enter expand/collapse • tab switch pane • s save • q quit"
	if m.loading {
		keys = "please wait... • q quit"
	}
	if m.status != "" {
		keys = m.status + " • " + keys
	}
	if m.err != nil && m.report != nil {
		keys = "error: " + m.err.Error() + " • " + keys
	}
	return StatusBarStyle.Width(m.width).Render(keys)
}

func (m Model) treeWidth() int {
	return max(m.width*3/5, 20)
}

func (m Model) detailWidth() int {
	return max(m.width-m.treeWidth()-2, 20)
}

func (m Model) viewDashboard() string {
	r := m.report
	title := TitleStyle.Render(fmt.Sprintf("%s@%s", r.Project, r.Version))
	summary := SubtitleStyle.Render(fmt.Sprintf("%d packages • %d findings • run %s",
		len(r.Entries), r.TotalFindings(), r.RunID))
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, " ", summary)

	treeStyle, detailStyle := PaneStyle, PaneStyle
	if m.activePane == PaneTree {
		treeStyle = FocusedPaneStyle
	} else {
		detailStyle = FocusedPaneStyle
	}

	h := m.treeHeight()
	tree := treeStyle.Width(m.treeWidth()).Height(h).Render(m.renderTree())
	detail := detailStyle.Width(m.detailWidth()).Height(h).Render(m.detailView.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, tree, detail))
}

func (m Model) renderTree() string {
	var b strings.Builder
	end := min(m.offset+m.treeHeight(), len(m.rows))
	for i := m.offset; i < end; i++ {
		line := m.renderRow(m.rows[i])
		if i == m.cursor {
			line = SelectedStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderRow(r row) string {
	n := r.node
	marker := "  "
	if len(n.Children) > 0 && !r.dedup {
		marker = "▾ "
		if r.collapsed {
			marker = "▸ "
		}
	}

	name := n.Key()
	if r.depth == 0 {
		return marker + TitleStyle.UnsetMargins().UnsetPadding().Render(name)
	}

	style := CleanStyle
	if len(n.Findings) > 0 {
		style = SeverityStyle(maxSeverity(n.Findings))
	}
	line := TreeConnectorStyle.Render(r.prefix) + marker + style.Render(name)
	if r.dedup {
		return line + MutedStyle.Render(" (deduped)")
	}
	if !n.Scanned() {
		return line
	}
	return line + MutedStyle.Render(fmt.Sprintf(" %d/%d", len(n.Findings), m.transitive[n]))
}

// renderDetail describes the selected package and lists its findings.
func (m Model) renderDetail() string {
	r, ok := m.selected()
	if !ok {
		return ""
	}
	n := r.node

	var b strings.Builder
	b.WriteString(DetailHeaderStyle.Render(n.Key()))
	b.WriteString("\n")
	b.WriteString(DetailLabelStyle.Render("Path: ") + DetailValueStyle.Render(n.InstallPath) + "\n")
	b.WriteString(DetailLabelStyle.Render("Dependencies: ") + DetailValueStyle.Render(fmt.Sprintf("%d", len(n.Children))) + "\n")
	if !n.Scanned() {
		b.WriteString(SubtitleStyle.Render("Not scanned."))
		return b.String()
	}
	b.WriteString(DetailLabelStyle.Render("Findings: ") +
		DetailValueStyle.Render(fmt.Sprintf("%d own, %d with dependencies", len(n.Findings), m.transitive[n])) + "\n\n")

	if len(n.Findings) == 0 {
		b.WriteString(SuccessStyle.Render("No suspicious patterns."))
		return b.String()
	}

	for _, c := range aggregate.SortedCounts(n.Findings) {
		b.WriteString(fmt.Sprintf("%3d × %s\n", c.Count, SeverityStyle(c.Category.Severity()).Render(string(c.Category))))
	}
	b.WriteString("\n")

	for _, f := range n.Findings {
		b.WriteString(SeverityStyle(f.Severity).Render(fmt.Sprintf("[%s]", f.Severity)) + " " + f.Title() + "\n")
		loc := f.File
		if f.Location != (analyzer.SourceSpan{}) {
			loc = fmt.Sprintf("%s:%d:%d", f.File, f.Location.LineStart, f.Location.ColStart)
		}
		b.WriteString("  " + MutedStyle.Render(loc) + "\n")
		if f.Snippet != "" {
			b.WriteString("  " + CodeStyle.Render(f.Snippet) + "\n")
		}
	}
	return b.String()
}

func maxSeverity(findings []analyzer.Finding) analyzer.Severity {
	top := analyzer.SeverityLow
	for _, f := range findings {
		if f.Severity > top {
			top = f.Severity
		}
	}
	return top
}

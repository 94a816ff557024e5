package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/graph"
)

func finding(c analyzer.Category, subject, file string, line, col int) analyzer.Finding {
	return analyzer.Finding{
		Category: c,
		Subject:  subject,
		Severity: c.Severity(),
		File:     file,
		Location: analyzer.SourceSpan{LineStart: line, LineEnd: line, ColStart: col, ColEnd: col + 10},
		Snippet:  "snippet-" + string(c),
	}
}

// fixture: root -> a, b; a -> c; b -> c.
func fixture() Report {
	c := &graph.Node{
		Name: "c", Version: "1.0.0", InstallPath: "/proj/node_modules/c",
		Findings: []analyzer.Finding{finding(analyzer.CategoryProcessEnvAccess, "env", "index.js", 1, 0)},
	}
	a := &graph.Node{
		Name: "a", Version: "1.0.0", InstallPath: "/proj/node_modules/a",
		Findings: []analyzer.Finding{
			finding(analyzer.CategoryEvalCall, "", "lib/index.js", 3, 2),
			finding(analyzer.CategoryRequiredIOModule, "fs", "lib/index.js", 4, 0),
		},
		Children: []*graph.Node{c},
	}
	b := &graph.Node{Name: "b", Version: "1.0.0", InstallPath: "/proj/node_modules/b", Findings: []analyzer.Finding{}, Children: []*graph.Node{c}}
	root := &graph.Node{Name: "proj", Version: "0.1.0", InstallPath: "/proj", Children: []*graph.Node{a, b}}
	return NewReport(root, "/proj")
}

func render(t *testing.T, format string, verbose bool, report Report) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, format, verbose).Render(report))
	return buf.String()
}

func TestNewReport(t *testing.T) {
	report := fixture()

	_, err := uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "proj", report.Project)
	assert.Equal(t, "0.1.0", report.Version)
	require.Len(t, report.Entries, 3)
	assert.Equal(t, 3, report.TotalFindings())
	assert.Len(t, report.Findings(), 3)
	assert.Equal(t, map[analyzer.Severity]int{analyzer.SeverityHigh: 1, analyzer.SeverityMedium: 2}, report.SeverityCounts())
	assert.NotEqual(t, report.RunID, fixture().RunID)
}

func TestCalculateRiskScore(t *testing.T) {
	sev := func(ss ...analyzer.Severity) []analyzer.Finding {
		var out []analyzer.Finding
		for _, s := range ss {
			out = append(out, analyzer.Finding{Severity: s})
		}
		return out
	}
	tests := []struct {
		name     string
		findings []analyzer.Finding
		want     int
	}{
		{"no findings", nil, 0},
		{"single low", sev(analyzer.SeverityLow), 2},
		{"single critical", sev(analyzer.SeverityCritical), 25},
		{"mixed findings", sev(analyzer.SeverityCritical, analyzer.SeverityHigh, analyzer.SeverityMedium, analyzer.SeverityLow), 47},
		{"capped at 100", sev(analyzer.SeverityCritical, analyzer.SeverityCritical, analyzer.SeverityCritical, analyzer.SeverityCritical, analyzer.SeverityCritical), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateRiskScore(tt.findings))
		})
	}
}

func TestRiskLabel(t *testing.T) {
	assert.Equal(t, "NONE", RiskLabel(0))
	assert.Equal(t, "LOW", RiskLabel(5))
	assert.Equal(t, "MEDIUM", RiskLabel(25))
	assert.Equal(t, "HIGH", RiskLabel(40))
	assert.Equal(t, "CRITICAL", RiskLabel(100))
}

func TestValidateFormat(t *testing.T) {
	for _, f := range Formats() {
		assert.NoError(t, ValidateFormat(f))
	}
	assert.Error(t, ValidateFormat("html"))

	var buf bytes.Buffer
	assert.Error(t, New(&buf, "html", false).Render(fixture()))
}

func TestTerminalSummaryCountsCategories(t *testing.T) {
	out := render(t, FormatTerminal, false, fixture())

	assert.Contains(t, out, "proj@0.1.0")
	assert.Contains(t, out, "a@1.0.0")
	assert.Contains(t, out, "(own 2, transitive 3)")
	assert.Contains(t, out, "(own 0, transitive 1)")
	assert.Contains(t, out, "1 × EvalCall")
	assert.Contains(t, out, "1 × RequiredIOModule")
	assert.NotContains(t, out, "snippet-EvalCall")
}

func TestTerminalVerboseListsFindings(t *testing.T) {
	out := render(t, FormatTerminal, true, fixture())

	assert.Contains(t, out, "lib/index.js:3:2")
	assert.Contains(t, out, "RequiredIOModule (fs)")
	assert.Contains(t, out, "snippet-EvalCall")
}

func TestTerminalClean(t *testing.T) {
	root := &graph.Node{Name: "proj", Version: "1.0.0", Children: []*graph.Node{
		{Name: "a", Version: "1.0.0", Findings: []analyzer.Finding{}},
	}}
	out := render(t, FormatTerminal, false, NewReport(root, "/proj"))
	assert.Contains(t, out, "No suspicious patterns found")
}

func TestJSONReportFlattensGraph(t *testing.T) {
	out := render(t, FormatJSON, true, fixture())

	var got JSONReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"a@1.0.0", "b@1.0.0"}, got.Dependencies)
	assert.Equal(t, 3, got.Summary.Packages)
	assert.Equal(t, 3, got.Summary.Findings)
	assert.Equal(t, 2, got.Summary.BySeverity["medium"])
	assert.Equal(t, 1, got.Summary.ByCategory[analyzer.CategoryEvalCall])

	require.Len(t, got.Packages, 3)
	a := got.Packages[0]
	assert.Equal(t, "a@1.0.0", a.ID)
	assert.Equal(t, []string{"c@1.0.0"}, a.Children)
	assert.Equal(t, 2, a.Own)
	assert.Equal(t, 3, a.Transitive)
	assert.Equal(t, analyzer.SeverityHigh, a.Findings[0].Severity)
	assert.Equal(t, "/proj/node_modules/a", a.Path)

	assert.Empty(t, got.Packages[1].Findings)
	assert.Contains(t, out, `"severity": "high"`)
}

func TestJSONCompact(t *testing.T) {
	out := render(t, FormatJSON, false, fixture())

	var got JSONReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Summary.Findings)
	require.Len(t, got.Packages, 3)
	assert.Equal(t, 2, got.Packages[0].Own)
	assert.Nil(t, got.Packages[0].Findings)
	assert.NotContains(t, out, `"findings": [`)
}

func TestJSONHandlesCycles(t *testing.T) {
	a := &graph.Node{Name: "a", Version: "1.0.0", Findings: []analyzer.Finding{}}
	b := &graph.Node{Name: "b", Version: "1.0.0", Findings: []analyzer.Finding{}, Children: []*graph.Node{a}}
	a.Children = []*graph.Node{b}
	root := &graph.Node{Name: "proj", Children: []*graph.Node{a}}

	out := render(t, FormatJSON, false, NewReport(root, "/proj"))
	var got JSONReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Packages, 2)
	assert.Equal(t, []string{"b@1.0.0"}, got.Packages[0].Children)
	assert.Equal(t, []string{"a@1.0.0"}, got.Packages[1].Children)
}

func TestSARIF(t *testing.T) {
	report := fixture()
	out := render(t, FormatSARIF, false, report)

	var log sarifLog
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Equal(t, report.RunID, run.AutomationDetails.GUID)
	assert.Len(t, run.Tool.Driver.Rules, len(analyzer.Categories()))
	require.Len(t, run.Results, 3)

	first := run.Results[0]
	assert.Equal(t, "EvalCall", first.RuleID)
	assert.Equal(t, "EvalCall", run.Tool.Driver.Rules[first.RuleIndex].ID)
	assert.Equal(t, "error", first.Level)
	loc := first.Locations[0].PhysicalLocation
	assert.Equal(t, "node_modules/a/lib/index.js", loc.ArtifactLocation.URI)
	require.NotNil(t, loc.Region)
	assert.Equal(t, 3, loc.Region.StartLine)
	assert.Equal(t, 3, loc.Region.StartColumn)
}

func TestSARIFSyntaxErrorHasNoRegion(t *testing.T) {
	root := &graph.Node{Name: "proj", Children: []*graph.Node{{
		Name: "a", Version: "1.0.0", InstallPath: "/proj/node_modules/a",
		Findings: []analyzer.Finding{analyzer.SyntaxErrorFinding("broken.js")},
	}}}
	out := render(t, FormatSARIF, false, NewReport(root, "/proj"))

	var log sarifLog
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	require.Len(t, log.Runs[0].Results, 1)
	assert.Nil(t, log.Runs[0].Results[0].Locations[0].PhysicalLocation.Region)
	assert.Equal(t, "note", log.Runs[0].Results[0].Level)
}

func TestMarkdown(t *testing.T) {
	out := render(t, FormatMarkdown, false, fixture())
	assert.True(t, strings.HasPrefix(out, "# npm Code Audit: proj@0.1.0"))
	assert.Contains(t, out, "| a | 1.0.0 | 2 | 3 |")
	assert.Contains(t, out, "| b | 1.0.0 | 0 | 1 |")
	assert.Contains(t, out, "### a@1.0.0")
	assert.Contains(t, out, "EvalCall: 1")

	verbose := render(t, FormatMarkdown, true, fixture())
	assert.Contains(t, verbose, "`lib/index.js:3:2`")
	assert.Contains(t, verbose, "```javascript")
}

func TestPDF(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		out := render(t, FormatPDF, verbose, fixture())
		assert.True(t, strings.HasPrefix(out, "%PDF-"))
	}
}

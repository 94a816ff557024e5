package reporter

import (
	"encoding/json"
	"time"

	"github.com/kluth/npm-code-auditter/internal/aggregate"
	"github.com/kluth/npm-code-auditter/internal/analyzer"
)

// JSONReport is the machine-readable report. The dependency graph is written
// as a flat node list with child ids so shared and cyclic dependencies
// serialize once.
type JSONReport struct {
	RunID        string      `json:"run_id"`
	Project      string      `json:"project"`
	Version      string      `json:"version"`
	Path         string      `json:"path"`
	GeneratedAt  time.Time   `json:"generated_at"`
	Dependencies []string    `json:"dependencies"`
	Summary      JSONSummary `json:"summary"`
	Packages     []JSONNode  `json:"packages"`
}

// JSONSummary holds run-wide counts.
type JSONSummary struct {
	Packages   int                       `json:"packages"`
	Findings   int                       `json:"findings"`
	RiskScore  int                       `json:"risk_score"`
	BySeverity map[string]int            `json:"by_severity"`
	ByCategory map[analyzer.Category]int `json:"by_category"`
}

// JSONNode is one package of the flattened graph.
type JSONNode struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Version    string             `json:"version"`
	Path       string             `json:"path"`
	Children   []string           `json:"children"`
	Own        int                `json:"own_findings"`
	Transitive int                `json:"transitive_findings"`
	Findings   []analyzer.Finding `json:"findings,omitempty"`
}

// NewJSONReport converts a report to its JSON shape. Individual findings are
// included only when withFindings is set; counts are always present.
func NewJSONReport(report Report, withFindings bool) JSONReport {
	findings := report.Findings()
	out := JSONReport{
		RunID:        report.RunID,
		Project:      report.Project,
		Version:      report.Version,
		Path:         report.Path,
		GeneratedAt:  report.GeneratedAt,
		Dependencies: []string{},
		Summary: JSONSummary{
			Packages:   len(report.Entries),
			Findings:   len(findings),
			RiskScore:  CalculateRiskScore(findings),
			BySeverity: map[string]int{},
			ByCategory: aggregate.CountByCategory(findings),
		},
		Packages: make([]JSONNode, 0, len(report.Entries)),
	}
	for sev, n := range report.SeverityCounts() {
		text, _ := sev.MarshalText()
		out.Summary.BySeverity[string(text)] = n
	}
	if report.Root != nil {
		for _, c := range report.Root.Children {
			out.Dependencies = append(out.Dependencies, c.Key())
		}
	}

	for _, e := range report.Entries {
		node := JSONNode{
			ID:         e.Node.Key(),
			Name:       e.Node.Name,
			Version:    e.Node.Version,
			Path:       e.Node.InstallPath,
			Children:   make([]string, 0, len(e.Node.Children)),
			Own:        e.Own,
			Transitive: e.Transitive,
		}
		if withFindings {
			node.Findings = e.Node.Findings
		}
		for _, c := range e.Node.Children {
			node.Children = append(node.Children, c.Key())
		}
		out.Packages = append(out.Packages, node)
	}
	return out
}

func (r *Reporter) renderJSON(report Report) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(NewJSONReport(report, r.verbose))
}

package reporter

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
)

// SARIF Schema Structs (simplified for our needs)
// Schema: https://docs.oasis-open.org/sarif/sarif/v2.1.0/os/schemas/sarif-schema-2.1.0.json

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool       `json:"tool"`
	AutomationDetails sarifAutomation `json:"automationDetails"`
	Results           []sarifResult   `json:"results"`
}

type sarifAutomation struct {
	GUID string `json:"guid"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name,omitempty"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	Properties       sarifRuleProperties `json:"properties,omitempty"`
}

type sarifRuleProperties struct {
	Tags     []string `json:"tags,omitempty"`
	Severity string   `json:"security-severity,omitempty"`
}

type sarifResult struct {
	RuleID       string            `json:"ruleId"`
	RuleIndex    int               `json:"ruleIndex"`
	Level        string            `json:"level"` // error, warning, note, none
	Message      sarifMessage      `json:"message"`
	Locations    []sarifLocation   `json:"locations,omitempty"`
	Fingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// renderSARIF outputs one result per finding. Artifact URIs are relative to
// the project directory; SARIF columns are 1-based.
func (r *Reporter) renderSARIF(report Report) error {
	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:           "npm-code-auditter",
				Version:        ToolVersion,
				InformationURI: "https://github.com/kluth/npm-code-auditter",
				Rules:          []sarifRule{},
			},
		},
		AutomationDetails: sarifAutomation{GUID: report.RunID},
		Results:           []sarifResult{},
	}

	ruleIndex := map[analyzer.Category]int{}
	for i, info := range analyzer.Categories() {
		ruleIndex[info.Category] = i
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
			ID:               string(info.Category),
			Name:             string(info.Category),
			ShortDescription: sarifMessage{Text: info.Description},
			Properties: sarifRuleProperties{
				Tags:     []string{"security", "npm", "javascript"},
				Severity: getSarifSeverityScore(info.Severity),
			},
		})
	}

	for _, e := range report.Entries {
		base := e.Node.InstallPath
		if rel, err := filepath.Rel(report.Path, base); err == nil {
			base = rel
		}
		for _, f := range e.Node.Findings {
			uri := path.Join(filepath.ToSlash(base), f.File)
			loc := sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: uri}}
			if f.Location != (analyzer.SourceSpan{}) {
				loc.Region = &sarifRegion{
					StartLine:   f.Location.LineStart,
					StartColumn: f.Location.ColStart + 1,
					EndLine:     f.Location.LineEnd,
					EndColumn:   f.Location.ColEnd + 1,
				}
			}

			run.Results = append(run.Results, sarifResult{
				RuleID:    string(f.Category),
				RuleIndex: ruleIndex[f.Category],
				Level:     sarifLevel(f.Severity),
				Message: sarifMessage{
					Text: fmt.Sprintf("%s in %s: %s", f.Title(), e.Node.Key(), f.Category.Description()),
				},
				Locations: []sarifLocation{{PhysicalLocation: loc}},
				Fingerprints: map[string]string{
					"auditterFinding/v1": fmt.Sprintf("%s|%s|%s|%s", e.Node.Key(), f.File, f.Category, f.Location),
				},
			})
		}
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://docs.oasis-open.org/sarif/sarif/v2.1.0/os/schemas/sarif-schema-2.1.0.json",
		Runs:    []sarifRun{run},
	}

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifLevel(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityCritical, analyzer.SeverityHigh:
		return "error"
	case analyzer.SeverityLow:
		return "note"
	default:
		return "warning"
	}
}

func getSarifSeverityScore(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityCritical:
		return "9.0"
	case analyzer.SeverityHigh:
		return "7.0"
	case analyzer.SeverityMedium:
		return "5.0"
	case analyzer.SeverityLow:
		return "3.0"
	default:
		return "1.0"
	}
}

package reporter

import (
	"time"

	"github.com/google/uuid"

	"github.com/kluth/npm-code-auditter/internal/aggregate"
	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/graph"
)

// Report is the result of one audit run over a scanned graph.
type Report struct {
	RunID       string
	Project     string
	Version     string
	Path        string
	GeneratedAt time.Time
	Root        *graph.Node
	// Entries holds every dependency with its counts, in Flatten order.
	Entries []aggregate.Entry
}

// NewReport summarizes a scanned graph rooted at the project in path.
func NewReport(root *graph.Node, path string) Report {
	return Report{
		RunID:       uuid.NewString(),
		Project:     root.Name,
		Version:     root.Version,
		Path:        path,
		GeneratedAt: time.Now().UTC(),
		Root:        root,
		Entries:     aggregate.Summarize(root),
	}
}

// Findings returns every dependency finding in package order.
func (r Report) Findings() []analyzer.Finding {
	var all []analyzer.Finding
	for _, e := range r.Entries {
		all = append(all, e.Node.Findings...)
	}
	return all
}

// TotalFindings is the number of findings across all dependencies.
func (r Report) TotalFindings() int {
	total := 0
	for _, e := range r.Entries {
		total += e.Own
	}
	return total
}

// SeverityCounts tallies findings by severity.
func (r Report) SeverityCounts() map[analyzer.Severity]int {
	counts := map[analyzer.Severity]int{}
	for _, e := range r.Entries {
		for _, f := range e.Node.Findings {
			counts[f.Severity]++
		}
	}
	return counts
}

// CalculateRiskScore computes a 0-100 risk score from findings.
func CalculateRiskScore(findings []analyzer.Finding) int {
	score := 0
	for _, f := range findings {
		switch f.Severity {
		case analyzer.SeverityCritical:
			score += 25
		case analyzer.SeverityHigh:
			score += 15
		case analyzer.SeverityMedium:
			score += 5
		case analyzer.SeverityLow:
			score += 2
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// RiskLabel names the band a risk score falls into.
func RiskLabel(score int) string {
	switch {
	case score >= 70:
		return "CRITICAL"
	case score >= 40:
		return "HIGH"
	case score >= 20:
		return "MEDIUM"
	case score > 0:
		return "LOW"
	default:
		return "NONE"
	}
}

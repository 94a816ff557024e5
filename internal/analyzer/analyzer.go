// Package analyzer detects suspicious uses of require, eval, Function, process
// and global in JavaScript sources by walking their tree-sitter syntax tree.
package analyzer

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a finding.
type Severity int

const (
	// SeverityLow indicates an informational finding or minor risk.
	SeverityLow Severity = iota
	// SeverityMedium indicates a pattern that should be reviewed.
	SeverityMedium
	// SeverityHigh indicates a pattern commonly used to hide malicious behavior.
	SeverityHigh
	// SeverityCritical is reserved for patterns that are malicious on their own.
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the severity as its lower-case name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity parses low, medium, high or critical.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("invalid severity %q: must be low, medium, high, or critical", s)
	}
}

// SourceSpan locates a finding. Lines are 1-based, columns 0-based byte offsets.
// The zero value means "no location".
type SourceSpan struct {
	LineStart int `json:"lineStart"`
	LineEnd   int `json:"lineEnd"`
	ColStart  int `json:"colStart"`
	ColEnd    int `json:"colEnd"`
}

func (s SourceSpan) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.LineStart, s.ColStart, s.LineEnd, s.ColEnd)
}

// Finding is a single occurrence of a suspicious pattern.
type Finding struct {
	Category Category   `json:"category"`
	Subject  string     `json:"subject,omitempty"`
	Severity Severity   `json:"severity"`
	File     string     `json:"file"`
	Location SourceSpan `json:"location"`
	Snippet  string     `json:"snippet,omitempty"`
}

// Title is a one-line human description, e.g. "RequiredIOModule (net)".
func (f Finding) Title() string {
	if f.Subject == "" {
		return string(f.Category)
	}
	return fmt.Sprintf("%s (%s)", f.Category, f.Subject)
}

// FilterByMinSeverity filters findings to only include those at or above the given severity.
func FilterByMinSeverity(findings []Finding, minSeverity Severity) []Finding {
	filtered := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity >= minSeverity {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

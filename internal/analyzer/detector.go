package analyzer

import (
	"context"
)

// Detector runs the rule catalogue over parsed files.
type Detector struct {
	tables Tables
	rules  []rule
}

// NewDetector returns a detector matching against the given tables.
func NewDetector(tables Tables) *Detector {
	return &Detector{tables: tables, rules: defaultRules()}
}

// Detect returns every finding in the tree, rule by rule in a fixed order and
// in source order within a rule. A tree with syntax errors yields exactly one
// SyntaxError finding.
func (d *Detector) Detect(t *Tree, file string) []Finding {
	if t.HasError() {
		return []Finding{SyntaxErrorFinding(file)}
	}

	findings := []Finding{}
	for _, r := range d.rules {
		findings = append(findings, r.match(t, d.tables, file)...)
	}
	return findings
}

// ScanSource parses source and runs Detect on it. It only fails when ctx is done.
func (d *Detector) ScanSource(ctx context.Context, source []byte, file string) ([]Finding, error) {
	t, err := Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	return d.Detect(t, file), nil
}

// RuleNames lists the rules in evaluation order.
func (d *Detector) RuleNames() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.name
	}
	return names
}

// SyntaxErrorFinding is the single finding recorded for an unparsable file.
func SyntaxErrorFinding(file string) Finding {
	return Finding{
		Category: CategorySyntaxError,
		Severity: CategorySyntaxError.Severity(),
		File:     file,
	}
}

// Package policy checks an audit report against project rules.
package policy

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/reporter"
)

// Policy defines security rules for the audit.
type Policy struct {
	// MaxSeverity fails the policy on any finding at or above this severity.
	MaxSeverity      *analyzer.Severity  `yaml:"max-severity" toml:"max-severity"`
	BannedCategories []analyzer.Category `yaml:"banned-categories" toml:"banned-categories"`
	// MaxTransitive limits the transitive finding count of any one package. Zero disables it.
	MaxTransitive  int      `yaml:"max-transitive" toml:"max-transitive"`
	BannedPackages []string `yaml:"banned-packages" toml:"banned-packages"` // explicit blocklist
	// AllowPackages are trusted: their own findings are ignored.
	AllowPackages []string `yaml:"allow-packages" toml:"allow-packages"`
}

// Violation represents a policy violation.
type Violation struct {
	Rule        string
	Description string
	Package     string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s (%s)", v.Rule, v.Description, v.Package)
}

// Parse reads a policy from YAML and checks its category names.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate rejects unknown category names and negative limits.
func (p *Policy) Validate() error {
	for _, c := range p.BannedCategories {
		if !c.Known() {
			return fmt.Errorf("policy: unknown category %q", c)
		}
	}
	if p.MaxTransitive < 0 {
		return fmt.Errorf("policy: max-transitive must not be negative")
	}
	return nil
}

// Empty reports whether the policy has no rules.
func (p *Policy) Empty() bool {
	return p == nil || (p.MaxSeverity == nil && len(p.BannedCategories) == 0 &&
		p.MaxTransitive == 0 && len(p.BannedPackages) == 0)
}

// Evaluate checks a report against the policy.
func Evaluate(report *reporter.Report, p *Policy) []Violation {
	if p == nil {
		return nil
	}
	var violations []Violation

	for _, e := range report.Entries {
		pkg := e.Node.Key()
		allowed := slices.Contains(p.AllowPackages, e.Node.Name)

		if slices.Contains(p.BannedPackages, e.Node.Name) {
			violations = append(violations, Violation{
				Rule:        "banned-package",
				Description: fmt.Sprintf("Package %q is explicitly banned", e.Node.Name),
				Package:     pkg,
			})
		}

		if !allowed {
			for _, f := range e.Node.Findings {
				if p.MaxSeverity != nil && f.Severity >= *p.MaxSeverity {
					violations = append(violations, Violation{
						Rule:        "max-severity",
						Description: fmt.Sprintf("Finding %q in %s has severity %s (limit: %s)", f.Title(), f.File, f.Severity, *p.MaxSeverity),
						Package:     pkg,
					})
				}
				if slices.Contains(p.BannedCategories, f.Category) {
					violations = append(violations, Violation{
						Rule:        "banned-category",
						Description: fmt.Sprintf("Finding %q in %s is a banned category", f.Title(), f.File),
						Package:     pkg,
					})
				}
			}
		}

		if p.MaxTransitive > 0 && e.Transitive > p.MaxTransitive && !allowed {
			violations = append(violations, Violation{
				Rule:        "max-transitive",
				Description: fmt.Sprintf("%d findings including dependencies (limit: %d)", e.Transitive, p.MaxTransitive),
				Package:     pkg,
			})
		}
	}

	return violations
}

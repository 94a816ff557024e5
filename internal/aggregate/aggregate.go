// Package aggregate derives per-package and transitive finding counts from a
// scanned dependency graph.
package aggregate

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/graph"
)

// TransitiveCount returns the node's own findings plus those of every distinct
// descendant. Packages are identified by name@version and counted once.
func TransitiveCount(n *graph.Node) int {
	seen := make(map[string]bool)
	var count func(n *graph.Node) int
	count = func(n *graph.Node) int {
		if seen[n.Key()] {
			return 0
		}
		seen[n.Key()] = true
		total := len(n.Findings)
		for _, c := range n.Children {
			total += count(c)
		}
		return total
	}
	return count(n)
}

// Flatten lists every distinct package reachable from root, root excluded,
// sorted by name and then by version.
func Flatten(root *graph.Node) []*graph.Node {
	seen := map[string]bool{}
	var out []*graph.Node
	for _, n := range graph.Distinct(root) {
		if n == root || seen[n.Key()] {
			continue
		}
		seen[n.Key()] = true
		out = append(out, n)
	}

	slices.SortStableFunc(out, func(a, b *graph.Node) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return CompareVersions(a.Version, b.Version)
	})
	return out
}

// CompareVersions orders semantic versions numerically. Versions that do not
// parse sort after those that do and compare as strings.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// CountByCategory tallies findings per category.
func CountByCategory(findings []analyzer.Finding) map[analyzer.Category]int {
	counts := make(map[analyzer.Category]int)
	for _, f := range findings {
		counts[f.Category]++
	}
	return counts
}

// CategoryCount is one row of a category summary.
type CategoryCount struct {
	Category analyzer.Category
	Count    int
}

// SortedCounts returns CountByCategory as rows, most frequent first.
func SortedCounts(findings []analyzer.Finding) []CategoryCount {
	counts := CountByCategory(findings)
	rows := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		rows = append(rows, CategoryCount{Category: c, Count: n})
	}
	slices.SortFunc(rows, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(string(a.Category), string(b.Category))
	})
	return rows
}

// Entry is a package together with its counts.
type Entry struct {
	Node       *graph.Node
	Own        int
	Transitive int
}

// Summarize returns an Entry for every package Flatten yields.
func Summarize(root *graph.Node) []Entry {
	nodes := Flatten(root)
	entries := make([]Entry, len(nodes))
	for i, n := range nodes {
		entries[i] = Entry{Node: n, Own: len(n.Findings), Transitive: TransitiveCount(n)}
	}
	return entries
}

// Findings returns every finding of the packages Flatten yields, in that order.
func Findings(root *graph.Node) []analyzer.Finding {
	var all []analyzer.Finding
	for _, n := range Flatten(root) {
		all = append(all, n.Findings...)
	}
	return all
}

// Package lint checks pip requirements manifests for consistency problems.
//
// Two properties are always checked: every non-blank, non-comment line must
// parse as a valid package specifier (or known pip directive), and no two
// lines may constrain the same package in duplicate or conflicting ways.
// Additional policy rules (unpinned packages, missing upper bounds) are off
// by default and enabled through configuration.
package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reqlint/reqlint/pkg/config"
	"github.com/reqlint/reqlint/pkg/requirements"
)

// Rule checks one property of a manifest.
type Rule interface {
	// ID returns the rule identifier used in findings and configuration
	// (e.g., "syntax", "duplicate").
	ID() string
	// DefaultSeverity returns the severity findings carry unless overridden.
	DefaultSeverity() Severity
	// Check inspects the manifest and returns zero or more findings.
	// Findings should carry line numbers but not severities; the linter
	// assigns those.
	Check(m *requirements.Manifest) []Finding
}

// Enabled by default.
var defaultRules = []Rule{
	&syntaxRule{},
	&duplicateRule{},
	&conflictRule{},
	&canonicalNameRule{},
}

// Available through config [rules].enable.
var optionalRules = []Rule{
	&unpinnedRule{},
	&noUpperBoundRule{},
}

// Linter runs an ordered set of rules over a manifest.
type Linter struct {
	rules      []Rule
	severities map[string]Severity
	ignore     map[string]bool
}

// New builds a Linter from configuration: default rules minus [rules].disable,
// plus optional rules named in [rules].enable, with [rules].severity
// overrides and [rules].ignore package exclusions applied.
func New(cfg *config.Config) *Linter {
	disabled := make(map[string]bool)
	enabled := make(map[string]bool)
	if cfg != nil {
		for _, id := range cfg.Rules.Disable {
			disabled[id] = true
		}
		for _, id := range cfg.Rules.Enable {
			enabled[id] = true
		}
	}

	l := &Linter{
		severities: make(map[string]Severity),
		ignore:     make(map[string]bool),
	}
	for _, r := range defaultRules {
		if !disabled[r.ID()] {
			l.rules = append(l.rules, r)
		}
	}
	for _, r := range optionalRules {
		if enabled[r.ID()] && !disabled[r.ID()] {
			l.rules = append(l.rules, r)
		}
	}

	if cfg != nil {
		for id, name := range cfg.Rules.Severity {
			if sev, err := ParseSeverity(name); err == nil {
				l.severities[id] = sev
			}
		}
		for _, pkg := range cfg.Rules.Ignore {
			l.ignore[requirements.NormalizeName(pkg)] = true
		}
	}
	return l
}

// Rules returns the IDs of the rules this linter runs, in order.
func (l *Linter) Rules() []string {
	ids := make([]string, len(l.rules))
	for i, r := range l.rules {
		ids[i] = r.ID()
	}
	return ids
}

// Run checks the manifest against all configured rules and returns a report.
// Findings are ordered by line number, then rule ID.
func (l *Linter) Run(m *requirements.Manifest) *Report {
	report := NewReport(m.Path)
	for _, rule := range l.rules {
		sev, ok := l.severities[rule.ID()]
		if !ok {
			sev = rule.DefaultSeverity()
		}
		for _, f := range rule.Check(m) {
			if f.Package != "" && l.ignore[f.Package] {
				continue
			}
			f.Rule = rule.ID()
			f.Severity = sev
			report.Add(f)
		}
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Rule < b.Rule
	})
	report.tally()
	return report
}

// =============================================================================
// syntax: every non-blank, non-comment line parses
// =============================================================================

type syntaxRule struct{}

func (*syntaxRule) ID() string                { return "syntax" }
func (*syntaxRule) DefaultSeverity() Severity { return SeverityError }

func (*syntaxRule) Check(m *requirements.Manifest) []Finding {
	var out []Finding
	for _, l := range m.Lines {
		if l.Kind != requirements.LineUnparsed {
			continue
		}
		out = append(out, Finding{
			Line:    l.Number,
			Message: fmt.Sprintf("not a valid package specifier: %q", strings.TrimSpace(l.Raw)),
		})
	}
	return out
}

// =============================================================================
// duplicate: no two specifier lines name the same package
// =============================================================================

type duplicateRule struct{}

func (*duplicateRule) ID() string                { return "duplicate" }
func (*duplicateRule) DefaultSeverity() Severity { return SeverityError }

// Check also covers named URL requirements ("name @ https://..."), which
// carry a package name without being specifier lines.
func (*duplicateRule) Check(m *requirements.Manifest) []Finding {
	var out []Finding
	first := make(map[string]int)
	for _, l := range m.Lines {
		if l.Req == nil {
			continue
		}
		name := l.Req.Canonical
		if prev, seen := first[name]; seen {
			out = append(out, Finding{
				Line:    l.Number,
				Package: name,
				Message: fmt.Sprintf("duplicate entry for %s (first seen on line %d)", name, prev),
			})
			continue
		}
		first[name] = l.Number
	}
	return out
}

// =============================================================================
// conflict: the combined constraints on a package must be satisfiable
// =============================================================================

type conflictRule struct{}

func (*conflictRule) ID() string                { return "conflict" }
func (*conflictRule) DefaultSeverity() Severity { return SeverityError }

// entry is one constraint with its source line, used to report which lines a
// conflicting pair came from.
type entry struct {
	c    requirements.Constraint
	line int
}

func (*conflictRule) Check(m *requirements.Manifest) []Finding {
	var out []Finding

	names := make([]string, 0)
	groups := m.ByName()
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var entries []entry
		for _, l := range groups[name] {
			for _, c := range l.Req.Constraints {
				entries = append(entries, entry{c: c, line: l.Number})
			}
		}
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				pair := requirements.ConstraintSet{entries[i].c, entries[j].c}
				if pair.Satisfiable() {
					continue
				}
				msg := fmt.Sprintf("%s: %s conflicts with %s", name, entries[i].c, entries[j].c)
				if entries[i].line != entries[j].line {
					msg += fmt.Sprintf(" (line %d)", entries[i].line)
				}
				out = append(out, Finding{
					Line:    entries[j].line,
					Package: name,
					Message: msg,
				})
			}
		}
	}
	return out
}

// =============================================================================
// canonical-name: name as written differs from PEP 503 form
// =============================================================================

type canonicalNameRule struct{}

func (*canonicalNameRule) ID() string                { return "canonical-name" }
func (*canonicalNameRule) DefaultSeverity() Severity { return SeverityInfo }

func (*canonicalNameRule) Check(m *requirements.Manifest) []Finding {
	var out []Finding
	for _, l := range m.Lines {
		if l.Kind != requirements.LineSpecifier || l.Req.Name == l.Req.Canonical {
			continue
		}
		out = append(out, Finding{
			Line:    l.Number,
			Package: l.Req.Canonical,
			Message: fmt.Sprintf("%q is not the canonical name (use %q)", l.Req.Name, l.Req.Canonical),
		})
	}
	return out
}

// =============================================================================
// unpinned: specifier has no version constraints (optional)
// =============================================================================

type unpinnedRule struct{}

func (*unpinnedRule) ID() string                { return "unpinned" }
func (*unpinnedRule) DefaultSeverity() Severity { return SeverityWarning }

func (*unpinnedRule) Check(m *requirements.Manifest) []Finding {
	var out []Finding
	for _, l := range m.Lines {
		if l.Kind != requirements.LineSpecifier || len(l.Req.Constraints) > 0 {
			continue
		}
		out = append(out, Finding{
			Line:    l.Number,
			Package: l.Req.Canonical,
			Message: fmt.Sprintf("%s has no version constraint", l.Req.Canonical),
		})
	}
	return out
}

// =============================================================================
// no-upper-bound: lower bound with no cap (optional)
// =============================================================================

type noUpperBoundRule struct{}

func (*noUpperBoundRule) ID() string                { return "no-upper-bound" }
func (*noUpperBoundRule) DefaultSeverity() Severity { return SeverityWarning }

func (*noUpperBoundRule) Check(m *requirements.Manifest) []Finding {
	var out []Finding
	for _, l := range m.Lines {
		if l.Kind != requirements.LineSpecifier {
			continue
		}
		if !hasLower(l.Req.Constraints) || hasCap(l.Req.Constraints) {
			continue
		}
		out = append(out, Finding{
			Line:    l.Number,
			Package: l.Req.Canonical,
			Message: fmt.Sprintf("%s has a lower bound but no upper bound", l.Req.Canonical),
		})
	}
	return out
}

func hasLower(cs []requirements.Constraint) bool {
	for _, c := range cs {
		if c.Op == ">=" || c.Op == ">" {
			return true
		}
	}
	return false
}

func hasCap(cs []requirements.Constraint) bool {
	for _, c := range cs {
		switch c.Op {
		case "<", "<=", "==", "~=", "===":
			return true
		}
	}
	return false
}

package requirements

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/reqlint/reqlint/pkg/errors"
)

// Requirement is a single parsed package specifier, e.g.
// "Requests[socks] >=2.28, <3 ; python_version < \"3.12\"  # http client".
type Requirement struct {
	Name        string       // Name as written in the manifest
	Canonical   string       // PEP 503 normalized name
	Extras      []string     // Requested extras, normalized, in written order
	Constraints []Constraint // Version constraints, in written order
	Marker      string       // Environment marker after ";", kept opaque
	Comment     string       // Trailing comment text without the "#"
}

// Constraint is one version clause of a specifier, e.g. ">=2.28.0".
type Constraint struct {
	Op      string  // One of ==, !=, >=, <=, >, <, ~=, ===
	Version Version // Parsed version (zero for === clauses)
	Raw     string  // Version text as written (needed for === and ".*" pins)
	Prefix  bool    // True for wildcard pins like ==1.4.*
}

var (
	nameRE = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)
	opRE   = regexp.MustCompile(`^(===|==|!=|~=|>=|<=|>|<)`)

	normalizeRE = regexp.MustCompile(`[-_.]+`)
)

// NormalizeName converts a package name to its PEP 503 canonical form:
// lowercase, with runs of ".", "-", and "_" collapsed to a single "-".
func NormalizeName(name string) string {
	return normalizeRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// ParseRequirement parses a single package specifier line. The trailing
// comment, if any, must already be split off by the caller; [Parse] does this
// for whole manifests.
func ParseRequirement(s string) (*Requirement, error) {
	rest := strings.TrimSpace(s)
	if rest == "" {
		return nil, errors.New(errors.ErrCodeInvalidSpecifier, "empty specifier")
	}

	// Environment marker: everything after the first ";" is opaque.
	var marker string
	if i := strings.IndexByte(rest, ';'); i >= 0 {
		marker = strings.TrimSpace(rest[i+1:])
		rest = strings.TrimSpace(rest[:i])
	}

	m := nameRE.FindStringSubmatch(rest)
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidSpecifier, "invalid package name in %q", s)
	}
	req := &Requirement{
		Name:      m[1],
		Canonical: NormalizeName(m[1]),
		Marker:    marker,
	}
	if err := errors.ValidatePackageName(req.Name); err != nil {
		return nil, err
	}
	rest = strings.TrimSpace(rest[len(m[1]):])

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, errors.New(errors.ErrCodeInvalidSpecifier, "unterminated extras in %q", s)
		}
		for _, e := range strings.Split(rest[1:end], ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			req.Extras = append(req.Extras, NormalizeName(e))
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	// Constraint lists may be wrapped in parentheses: "requests (>=2.0)".
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}

	if rest != "" {
		cs, err := parseConstraints(rest)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSpecifier, err, "invalid constraints in %q", s)
		}
		req.Constraints = cs
	}

	return req, nil
}

func parseConstraints(s string) ([]Constraint, error) {
	var out []Constraint
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return nil, fmt.Errorf("empty constraint clause")
		}
		m := opRE.FindString(clause)
		if m == "" {
			return nil, fmt.Errorf("missing operator in %q", clause)
		}
		raw := strings.TrimSpace(clause[len(m):])
		if raw == "" {
			return nil, fmt.Errorf("missing version in %q", clause)
		}
		c := Constraint{Op: m, Raw: raw}

		switch {
		case m == "===":
			// Arbitrary string equality: version is never parsed.
		case strings.HasSuffix(raw, ".*"):
			if m != "==" && m != "!=" {
				return nil, fmt.Errorf("wildcard version %q only valid with == or !=", raw)
			}
			v, err := ParseVersion(strings.TrimSuffix(raw, ".*"))
			if err != nil {
				return nil, err
			}
			c.Prefix = true
			c.Version = v
		default:
			v, err := ParseVersion(raw)
			if err != nil {
				return nil, err
			}
			c.Version = v
			if m == "~=" && len(v.Release) < 2 {
				return nil, fmt.Errorf("~= requires at least two release segments, got %q", raw)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// String returns the constraint in canonical form (no interior spaces).
func (c Constraint) String() string {
	return c.Op + c.Raw
}

// Match reports whether version v satisfies the constraint under PEP 440
// operator semantics, including ~= compatible-release clauses, ==X.* prefix
// pins, and === arbitrary equality.
func (c Constraint) Match(v Version) bool {
	switch c.Op {
	case "===":
		return strings.TrimSpace(c.Raw) == v.original
	case "~=":
		// ~=X.Y means >=X.Y with the leading release segments fixed.
		if c.Version.Compare(stripLocal(v)) > 0 {
			return false
		}
		return matchPrefix(v, c.Version.Epoch, c.Version.Release[:len(c.Version.Release)-1])
	case "==":
		if c.Prefix {
			return matchPrefix(v, c.Version.Epoch, c.Version.Release)
		}
		return c.compareTo(v) == 0
	case "!=":
		if c.Prefix {
			return !matchPrefix(v, c.Version.Epoch, c.Version.Release)
		}
		return c.compareTo(v) != 0
	case ">=":
		return c.compareTo(v) <= 0
	case "<=":
		return c.compareTo(v) >= 0
	case ">":
		if c.compareTo(v) >= 0 {
			return false
		}
		// ">V" never admits a post-release of V itself unless V is one.
		if c.Version.Post == nil && v.Post != nil && sameRelease(c.Version, v) {
			return false
		}
		return true
	case "<":
		if c.compareTo(v) <= 0 {
			return false
		}
		// "<V" never admits a pre-release of V itself unless V is one.
		if !c.Version.IsPrerelease() && v.IsPrerelease() && sameRelease(c.Version, v) {
			return false
		}
		return true
	}
	return false
}

// sameRelease reports whether the two versions share an epoch and release
// segment, so "1.7.post1" is a post-release of "1.7" but not of "1.7.1".
func sameRelease(a, b Version) bool {
	return a.Epoch == b.Epoch && cmpRelease(a.Release, b.Release) == 0
}

// compareTo compares the constraint version against candidate v. When the
// constraint carries no local label, the candidate's local label is ignored,
// so "==1.0" matches "1.0+cpu".
func (c Constraint) compareTo(v Version) int {
	if c.Version.Local == "" {
		v = stripLocal(v)
	}
	return c.Version.Compare(v)
}

func stripLocal(v Version) Version {
	v.Local = ""
	return v
}

func matchPrefix(v Version, epoch int, prefix []int) bool {
	if v.Epoch != epoch {
		return false
	}
	for i, seg := range prefix {
		var got int
		if i < len(v.Release) {
			got = v.Release[i]
		}
		if got != seg {
			return false
		}
	}
	return true
}

// ConstraintSet is the combined constraints a manifest places on one package,
// possibly merged from several lines.
type ConstraintSet []Constraint

// Match reports whether v satisfies every constraint in the set.
func (cs ConstraintSet) Match(v Version) bool {
	for _, c := range cs {
		if !c.Match(v) {
			return false
		}
	}
	return true
}

// AllowsPrereleases reports whether any clause in the set names a pre-release
// or dev version. pip only considers pre-release candidates in that case.
func (cs ConstraintSet) AllowsPrereleases() bool {
	for _, c := range cs {
		if c.Op != "===" && c.Version.IsPrerelease() {
			return true
		}
	}
	return false
}

// Conflict is a pair of constraints whose version sets are provably disjoint.
type Conflict struct {
	A, B Constraint
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s conflicts with %s", c.A, c.B)
}

// Conflicts returns all provably disjoint constraint pairs in the set.
// Detection is conservative: only pairs that cannot both be satisfied under
// PEP 440 ordering are reported (e.g. ">=2.0" with "<1.0", or two different
// exact pins). Odd-but-satisfiable combinations are not flagged.
func (cs ConstraintSet) Conflicts() []Conflict {
	var out []Conflict
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			if disjoint(cs[i], cs[j]) {
				out = append(out, Conflict{A: cs[i], B: cs[j]})
			}
		}
	}
	return out
}

// Satisfiable reports whether no conflicting pair exists in the set.
func (cs ConstraintSet) Satisfiable() bool {
	return len(cs.Conflicts()) == 0
}

// disjoint reports whether a and b can never match the same version.
func disjoint(a, b Constraint) bool {
	// Exact pins are the easy cases: check the pinned version against the
	// other clause directly.
	if pin, other, ok := pinned(a, b); ok {
		return !other.Match(pin)
	}
	if a.Op == "===" || b.Op == "===" || a.Prefix || b.Prefix {
		return false // arbitrary equality and wildcards are only checked against pins
	}

	lo, hasLo := lowerBound(a)
	hi, hasHi := upperBound(b)
	if !hasLo || !hasHi {
		lo, hasLo = lowerBound(b)
		hi, hasHi = upperBound(a)
	}
	if !hasLo || !hasHi {
		return false
	}
	if c := lo.version.Compare(hi.version); c > 0 {
		return true
	} else if c == 0 {
		return lo.strict || hi.strict
	}
	return false
}

// pinned extracts an exact pin from the pair, returning the pinned version and
// the other constraint. "===" and wildcard pins never produce a Version, so
// only plain "==" qualifies.
func pinned(a, b Constraint) (Version, Constraint, bool) {
	if a.Op == "==" && !a.Prefix {
		return a.Version, b, true
	}
	if b.Op == "==" && !b.Prefix {
		return b.Version, a, true
	}
	return Version{}, Constraint{}, false
}

type bound struct {
	version Version
	strict  bool
}

func lowerBound(c Constraint) (bound, bool) {
	switch c.Op {
	case ">=", "~=":
		return bound{version: c.Version}, true
	case ">":
		return bound{version: c.Version, strict: true}, true
	}
	return bound{}, false
}

func upperBound(c Constraint) (bound, bool) {
	switch c.Op {
	case "<=":
		return bound{version: c.Version}, true
	case "<":
		return bound{version: c.Version, strict: true}, true
	}
	return bound{}, false
}

// String returns the requirement in canonical form:
// name[extras]op version,... ; marker. Extras are sorted; constraint order is
// preserved. The trailing comment is not included.
func (r *Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Canonical)
	if len(r.Extras) > 0 {
		extras := append([]string(nil), r.Extras...)
		sort.Strings(extras)
		b.WriteByte('[')
		b.WriteString(strings.Join(extras, ","))
		b.WriteByte(']')
	}
	for i, c := range r.Constraints {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.String())
	}
	if r.Marker != "" {
		b.WriteString(" ; ")
		b.WriteString(r.Marker)
	}
	return b.String()
}

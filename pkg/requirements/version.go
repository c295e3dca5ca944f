package requirements

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed PEP 440 version number.
//
// The zero value is not a valid version; use [ParseVersion].
// Versions are immutable after construction and safe for concurrent reads.
type Version struct {
	Epoch   int    // Version epoch (the "1!" in "1!2.0"), 0 if absent
	Release []int  // Numeric release segments (e.g., [1, 4, 2] for "1.4.2")
	Pre     *Tag   // Pre-release tag (a, b, rc), nil if absent
	Post    *int   // Post-release number, nil if absent
	Dev     *int   // Development release number, nil if absent
	Local   string // Local version label (the "+cpu" in "1.0+cpu"), "" if absent

	original string
}

// Tag is a pre-release phase and number (e.g., "rc" 1 for "1.0rc1").
type Tag struct {
	Phase  string // Normalized phase: "a", "b", or "rc"
	Number int
}

var versionRE = regexp.MustCompile(`(?i)^v?` +
	`(?:(\d+)!)?` + // epoch
	`(\d+(?:\.\d+)*)` + // release
	`(?:[-._]?(a|b|c|rc|alpha|beta|pre|preview)[-._]?(\d*))?` + // pre
	`(?:-(\d+)|[-._]?(post|rev|r)[-._]?(\d*))?` + // post
	`(?:[-._]?(dev)[-._]?(\d*))?` + // dev
	`(?:\+([a-z0-9]+(?:[-._][a-z0-9]+)*))?$`) // local

// ParseVersion parses a PEP 440 version string.
// Leading/trailing whitespace and a leading "v" are tolerated, matching pip.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	m := versionRE.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	v := Version{original: trimmed}

	if m[1] != "" {
		v.Epoch, _ = strconv.Atoi(m[1])
	}
	for _, seg := range strings.Split(m[2], ".") {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: release segment %q", s, seg)
		}
		v.Release = append(v.Release, n)
	}
	if m[3] != "" {
		v.Pre = &Tag{Phase: normalizePhase(m[3]), Number: atoiDefault(m[4])}
	}
	switch {
	case m[5] != "": // implicit post: "1.0-1"
		n := atoiDefault(m[5])
		v.Post = &n
	case m[6] != "":
		n := atoiDefault(m[7])
		v.Post = &n
	}
	if m[8] != "" {
		n := atoiDefault(m[9])
		v.Dev = &n
	}
	if m[10] != "" {
		v.Local = strings.ToLower(m[10])
	}

	return v, nil
}

func normalizePhase(p string) string {
	switch strings.ToLower(p) {
	case "a", "alpha":
		return "a"
	case "b", "beta":
		return "b"
	default: // c, rc, pre, preview
		return "rc"
	}
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// String returns the canonical form of the version.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch > 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, seg := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(seg))
	}
	if v.Pre != nil {
		fmt.Fprintf(&b, "%s%d", v.Pre.Phase, v.Pre.Number)
	}
	if v.Post != nil {
		fmt.Fprintf(&b, ".post%d", *v.Post)
	}
	if v.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.Dev)
	}
	if v.Local != "" {
		fmt.Fprintf(&b, "+%s", v.Local)
	}
	return b.String()
}

// IsPrerelease reports whether the version is a pre-release or dev release.
// Such versions are excluded from registry checks unless a constraint
// explicitly mentions one, matching pip's candidate selection.
func (v Version) IsPrerelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// Compare returns -1, 0, or +1 ordering v against o under PEP 440 rules:
// epoch dominates, release segments compare numerically with zero padding,
// and within a release dev < pre < final < post.
func (v Version) Compare(o Version) int {
	if v.Epoch != o.Epoch {
		return cmpInt(v.Epoch, o.Epoch)
	}
	if c := cmpRelease(v.Release, o.Release); c != 0 {
		return c
	}
	if c := cmpPre(v, o); c != 0 {
		return c
	}
	if c := cmpOptional(v.Post, o.Post, -1); c != 0 {
		return c
	}
	if c := cmpOptional(v.Dev, o.Dev, 1); c != 0 {
		return c
	}
	return cmpLocal(v.Local, o.Local)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpRelease(a, b []int) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return cmpInt(x, y)
		}
	}
	return 0
}

var phaseRank = map[string]int{"a": 0, "b": 1, "rc": 2}

// cmpPre orders the pre-release segment. A version with no pre-release sorts
// after any pre-release of the same release, except that a bare dev release
// (1.0.dev1) sorts before pre-releases (1.0a1).
func cmpPre(a, b Version) int {
	ka, na := preKey(a)
	kb, nb := preKey(b)
	if ka != kb {
		return cmpInt(ka, kb)
	}
	return cmpInt(na, nb)
}

func preKey(v Version) (rank, num int) {
	if v.Pre != nil {
		return phaseRank[v.Pre.Phase], v.Pre.Number
	}
	if v.Post == nil && v.Dev != nil {
		return -1, 0 // bare dev release sorts before any pre-release
	}
	return 3, 0 // final release sorts after all pre-releases
}

// cmpOptional compares optional numeric segments where absence sorts as
// absentSign relative to presence (post: absent < present; dev: absent > present).
func cmpOptional(a, b *int, absentSign int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return absentSign
	case b == nil:
		return -absentSign
	default:
		return cmpInt(*a, *b)
	}
}

// cmpLocal compares local version labels segment-wise: numeric segments
// compare numerically and sort after alphanumeric ones, per PEP 440.
func cmpLocal(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	as := strings.FieldsFunc(a, isLocalSep)
	bs := strings.FieldsFunc(b, isLocalSep)
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if an != bn {
				return cmpInt(an, bn)
			}
		case aerr == nil:
			return 1
		case berr == nil:
			return -1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(as), len(bs))
}

func isLocalSep(r rune) bool { return r == '.' || r == '-' || r == '_' }

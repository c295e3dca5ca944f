// Package requirements implements a line-preserving model of pip requirements
// manifests (requirements.txt).
//
// A manifest is a sequence of lines: package specifiers, "#" comments, blank
// lines used for section grouping, and pip directives ("-r", "-e", "--hash",
// URL requirements). Parsing is total: malformed specifier lines do not fail
// the parse, they are recorded as unparsed lines with a position-carrying
// error so that lint rules can report them.
//
// The package also implements PEP 440 version parsing and comparison and
// PEP 503 package name normalization, which together define the two
// manifest-level consistency properties reqlint checks: every non-blank,
// non-comment line parses as a valid specifier, and no two lines constrain
// the same package in duplicate or conflicting ways.
package requirements

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reqlint/reqlint/pkg/errors"
)

// LineKind classifies a manifest line.
type LineKind int

const (
	LineBlank     LineKind = iota // Empty or whitespace-only
	LineComment                   // Starts with "#"
	LineSpecifier                 // A package specifier
	LineDirective                 // pip option ("-r", "-e", "--hash", ...) or URL requirement
	LineUnparsed                  // Looked like a specifier but failed to parse
)

// Line is a single manifest line. Raw always holds the exact input text so a
// manifest round-trips byte-for-byte through Parse and Write.
type Line struct {
	Number    int          // 1-based line number
	Kind      LineKind
	Raw       string       // Original text without the trailing "\n"; a "\r" from CRLF input is kept
	Req       *Requirement // Set for LineSpecifier and named URL requirements
	Directive string       // Set for LineDirective ("r", "e", "hash", "url", ...)
	Err       error        // Set for LineUnparsed
}

// Manifest is a parsed requirements file.
type Manifest struct {
	Path  string // Source path, "" when parsed from a reader
	Lines []Line
}

// ParseFile reads and parses the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest not found: %s", path)
		}
		return nil, err
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse reads a manifest from r. Parsing never fails on malformed specifier
// lines; the only possible errors are I/O errors from r.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanRawLines)

	n := 0
	for scanner.Scan() {
		n++
		m.Lines = append(m.Lines, parseLine(n, scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read manifest")
	}
	return m, nil
}

// scanRawLines is bufio.ScanLines without the carriage-return stripping, so a
// CRLF manifest keeps its "\r" in Line.Raw and survives Write unchanged.
func scanRawLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func parseLine(n int, raw string) Line {
	line := Line{Number: n, Raw: raw}
	text := strings.TrimSpace(raw)

	switch {
	case text == "":
		line.Kind = LineBlank
		return line
	case strings.HasPrefix(text, "#"):
		line.Kind = LineComment
		return line
	case strings.HasPrefix(text, "-"):
		line.Kind = LineDirective
		line.Directive = directiveName(text)
		return line
	}

	// Split the inline comment off before classifying: a URL mentioned in a
	// comment must not turn a specifier line into a URL requirement.
	spec, comment := splitComment(text)

	if isURLRequirement(spec) {
		line.Kind = LineDirective
		line.Directive = "url"
		// "name @ url" references carry a package name; record it so the
		// duplicate rule can see URL requirements too.
		if name, ok := urlRequirementName(spec); ok {
			line.Req = &Requirement{Name: name, Canonical: NormalizeName(name)}
		}
		return line
	}

	req, err := ParseRequirement(spec)
	if err != nil {
		line.Kind = LineUnparsed
		line.Err = fmt.Errorf("line %d: %w", n, err)
		return line
	}
	req.Comment = comment
	line.Kind = LineSpecifier
	line.Req = req
	return line
}

// directiveName extracts the option name: "-r base.txt" -> "r",
// "--index-url ..." -> "index-url".
func directiveName(text string) string {
	opt := strings.TrimLeft(text, "-")
	if i := strings.IndexAny(opt, " \t="); i >= 0 {
		opt = opt[:i]
	}
	return opt
}

// isURLRequirement reports whether the line is a direct URL or VCS
// requirement. These include "name @ url" references (PEP 508) and bare
// "git+https://..." lines.
func isURLRequirement(text string) bool {
	if strings.Contains(text, "://") {
		return true
	}
	for _, prefix := range []string{"git+", "hg+", "svn+", "bzr+"} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// urlRequirementName extracts the package name from a PEP 508 direct
// reference ("name @ https://..."). Bare URL lines have no name.
func urlRequirementName(text string) (string, bool) {
	i := strings.Index(text, "@")
	if i <= 0 {
		return "", false
	}
	name := strings.TrimSpace(text[:i])
	// Extras on a URL requirement ("name[extra] @ url") are part of the name
	// field; strip them for duplicate detection.
	if j := strings.IndexByte(name, '['); j >= 0 {
		name = strings.TrimSpace(name[:j])
	}
	if name == "" || nameRE.FindString(name) != name {
		return "", false
	}
	return name, true
}

// splitComment splits an inline comment off a specifier. Per pip, the "#"
// must be preceded by whitespace (or start the line) to count as a comment.
func splitComment(text string) (spec, comment string) {
	for i := 0; i < len(text); i++ {
		if text[i] != '#' {
			continue
		}
		if i == 0 || text[i-1] == ' ' || text[i-1] == '\t' {
			return strings.TrimSpace(text[:i]), strings.TrimSpace(strings.TrimPrefix(text[i:], "#"))
		}
	}
	return text, ""
}

// Requirements returns the parsed specifier lines in file order.
func (m *Manifest) Requirements() []*Requirement {
	var out []*Requirement
	for _, l := range m.Lines {
		if l.Kind == LineSpecifier {
			out = append(out, l.Req)
		}
	}
	return out
}

// SpecifierLines returns the specifier lines themselves, preserving positions.
func (m *Manifest) SpecifierLines() []Line {
	var out []Line
	for _, l := range m.Lines {
		if l.Kind == LineSpecifier {
			out = append(out, l)
		}
	}
	return out
}

// ByName groups specifier lines by canonical package name, preserving file
// order within each group.
func (m *Manifest) ByName() map[string][]Line {
	groups := make(map[string][]Line)
	for _, l := range m.Lines {
		if l.Kind == LineSpecifier {
			groups[l.Req.Canonical] = append(groups[l.Req.Canonical], l)
		}
	}
	return groups
}

// Write writes the manifest verbatim: every line's original text followed by
// a newline. Parse then Write reproduces the input byte-for-byte, CRLF line
// endings included, modulo a final trailing newline.
func (m *Manifest) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, l := range m.Lines {
		if _, err := bw.WriteString(l.Raw); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Format writes the manifest in canonical form. Comments, blank lines,
// directives, unparsed lines, and line order are kept verbatim; only
// specifier lines are rewritten (normalized name, sorted extras, constraint
// spacing collapsed, inline comment separated by two spaces). Line endings
// are normalized to LF. Format is idempotent.
func (m *Manifest) Format(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, l := range m.Lines {
		text := strings.TrimSuffix(l.Raw, "\r")
		if l.Kind == LineSpecifier {
			text = l.Req.String()
			if l.Req.Comment != "" {
				text += "  # " + l.Req.Comment
			}
		}
		if _, err := bw.WriteString(text); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Formatted returns the canonical form as a string.
func (m *Manifest) Formatted() string {
	var b strings.Builder
	_ = m.Format(&b)
	return b.String()
}

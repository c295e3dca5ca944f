package requirements

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleManifest = `# Core web framework
fastapi>=0.104.0
uvicorn[standard]==0.24.0

# Database
snowflake-connector-python>=3.5.0
pyarrow<19.0.0

# Data handling
pandas >= 2.1.0, < 3
numpy>=1.24.0  # pinned floor for py312 wheels

-r extra.txt
git+https://github.com/user/repo.git
not a valid line !!!
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	counts := map[LineKind]int{}
	for _, l := range m.Lines {
		counts[l.Kind]++
	}

	want := map[LineKind]int{
		LineComment:   3,
		LineBlank:     3,
		LineSpecifier: 6,
		LineDirective: 2,
		LineUnparsed:  1,
	}
	for kind, n := range want {
		if counts[kind] != n {
			t.Errorf("line kind %d count = %d, want %d", kind, counts[kind], n)
		}
	}

	reqs := m.Requirements()
	if len(reqs) != 6 {
		t.Fatalf("Requirements() returned %d, want 6", len(reqs))
	}
	if reqs[0].Canonical != "fastapi" {
		t.Errorf("first requirement = %q, want fastapi", reqs[0].Canonical)
	}
	if reqs[5].Comment != "pinned floor for py312 wheels" {
		t.Errorf("numpy comment = %q", reqs[5].Comment)
	}
}

func TestParse_Directives(t *testing.T) {
	input := `-r base.txt
-e ./local
--index-url https://private.example/simple
--hash=sha256:abc
https://files.example/pkg-1.0.tar.gz
name @ https://files.example/pkg-1.0.tar.gz
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"r", "e", "index-url", "hash", "url", "url"}
	for i, l := range m.Lines {
		if l.Kind != LineDirective {
			t.Errorf("line %d kind = %d, want directive", i+1, l.Kind)
			continue
		}
		if l.Directive != want[i] {
			t.Errorf("line %d directive = %q, want %q", i+1, l.Directive, want[i])
		}
	}
}

func TestParse_URLRequirementNames(t *testing.T) {
	input := `pkg-a @ https://files.example/pkg_a-1.0.tar.gz
pkg_b[extra] @ git+https://github.com/user/pkg-b.git
https://files.example/anon-1.0.tar.gz
git+https://github.com/user/repo.git@main
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"pkg-a", "pkg-b", "", ""}
	for i, l := range m.Lines {
		if l.Kind != LineDirective || l.Directive != "url" {
			t.Errorf("line %d: kind = %d directive = %q, want url directive", i+1, l.Kind, l.Directive)
			continue
		}
		got := ""
		if l.Req != nil {
			got = l.Req.Canonical
		}
		if got != want[i] {
			t.Errorf("line %d name = %q, want %q", i+1, got, want[i])
		}
	}
}

func TestParse_URLInComment(t *testing.T) {
	input := `requests>=2.0  # see https://example.com/advisories/1234
requests<1.0
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	first := m.Lines[0]
	if first.Kind != LineSpecifier {
		t.Fatalf("line 1 kind = %d, want specifier", first.Kind)
	}
	if first.Req == nil || first.Req.Canonical != "requests" {
		t.Fatalf("line 1 Req = %+v, want requests", first.Req)
	}
	if first.Req.Comment != "see https://example.com/advisories/1234" {
		t.Errorf("line 1 comment = %q", first.Req.Comment)
	}
	if got := len(m.ByName()["requests"]); got != 2 {
		t.Errorf("requests group has %d lines, want 2", got)
	}

	// URL fragments attach without whitespace and are not comments.
	m, err = Parse(strings.NewReader("https://files.example/pkg-1.0.tar.gz#egg=pkg\n"))
	if err != nil {
		t.Fatal(err)
	}
	if l := m.Lines[0]; l.Kind != LineDirective || l.Directive != "url" {
		t.Errorf("fragment line: kind = %d directive = %q, want url directive", l.Kind, l.Directive)
	}
}

func TestParse_CRLF(t *testing.T) {
	input := "requests>=2.0\r\n\r\n# tools\r\nblack==24.1.0\r\n"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	want := []LineKind{LineSpecifier, LineBlank, LineComment, LineSpecifier}
	for i, kind := range want {
		if m.Lines[i].Kind != kind {
			t.Errorf("line %d kind = %d, want %d", i+1, m.Lines[i].Kind, kind)
		}
	}

	var b strings.Builder
	if err := m.Write(&b); err != nil {
		t.Fatal(err)
	}
	if b.String() != input {
		t.Errorf("CRLF round trip mismatch:\ngot %q\nwant %q", b.String(), input)
	}

	if got, want := m.Formatted(), "requests>=2.0\n\n# tools\nblack==24.1.0\n"; got != want {
		t.Errorf("Formatted() = %q, want LF output %q", got, want)
	}
}

func TestParse_LineNumbers(t *testing.T) {
	m, err := Parse(strings.NewReader("a==1.0\n\nbad line !\n"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Lines[2].Kind != LineUnparsed {
		t.Fatalf("line 3 kind = %d, want unparsed", m.Lines[2].Kind)
	}
	if m.Lines[2].Err == nil || !strings.Contains(m.Lines[2].Err.Error(), "line 3") {
		t.Errorf("unparsed error = %v, want line number", m.Lines[2].Err)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := m.Write(&b); err != nil {
		t.Fatal(err)
	}
	if b.String() != sampleManifest {
		t.Errorf("round trip mismatch:\ngot:\n%s\nwant:\n%s", b.String(), sampleManifest)
	}
}

func TestFormat(t *testing.T) {
	input := `# Data handling
pandas >= 2.1.0 , < 3
Numpy>=1.24.0  # floor
typing_extensions
`
	want := `# Data handling
pandas>=2.1.0,<3
numpy>=1.24.0  # floor
typing-extensions
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Formatted(); got != want {
		t.Errorf("Formatted() =\n%s\nwant:\n%s", got, want)
	}
}

func TestFormat_Idempotent(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}
	once := m.Formatted()

	m2, err := Parse(strings.NewReader(once))
	if err != nil {
		t.Fatal(err)
	}
	if twice := m2.Formatted(); twice != once {
		t.Errorf("Format not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(path, []byte(sampleManifest), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if m.Path != path {
		t.Errorf("Path = %q, want %q", m.Path, path)
	}
	if len(m.Requirements()) != 6 {
		t.Errorf("Requirements() = %d, want 6", len(m.Requirements()))
	}
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestByName(t *testing.T) {
	input := "requests>=2.0\nRequests<3\nnumpy\n"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	groups := m.ByName()
	if len(groups) != 2 {
		t.Fatalf("ByName() returned %d groups, want 2", len(groups))
	}
	if len(groups["requests"]) != 2 {
		t.Errorf("requests group has %d lines, want 2", len(groups["requests"]))
	}
}

package cli

import (
	"os"
	"testing"
)

func TestRunFmt_Write(t *testing.T) {
	path := writeManifest(t, "Django >= 4.0 , <5.0\nrequests\n")

	if err := runFmt([]string{path}, fmtOpts{write: true}); err != nil {
		t.Fatalf("runFmt: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "django>=4.0,<5.0\nrequests\n"
	if string(data) != want {
		t.Errorf("formatted = %q, want %q", data, want)
	}

	// Idempotent: a second run must not change the file again.
	before, _ := os.Stat(path)
	if err := runFmt([]string{path}, fmtOpts{write: true}); err != nil {
		t.Fatalf("second runFmt: %v", err)
	}
	after, _ := os.Stat(path)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("second fmt run rewrote an already formatted file")
	}
}

func TestRunFmt_Check(t *testing.T) {
	dirty := writeManifest(t, "Django >= 4.0\n")
	clean := writeManifest(t, "django>=4.0\n")

	if err := runFmt([]string{clean}, fmtOpts{check: true}); err != nil {
		t.Errorf("check on formatted file = %v, want nil", err)
	}
	if err := runFmt([]string{dirty}, fmtOpts{check: true}); err == nil {
		t.Error("check on unformatted file must fail")
	}

	// --check never modifies files.
	data, _ := os.ReadFile(dirty)
	if string(data) != "Django >= 4.0\n" {
		t.Errorf("check modified the file: %q", data)
	}
}

func TestRunFmt_PreservesCommentsAndDirectives(t *testing.T) {
	input := "# base deps\n-r common.txt\n\nFastAPI>=0.104.0  # web framework\n"
	path := writeManifest(t, input)

	if err := runFmt([]string{path}, fmtOpts{write: true}); err != nil {
		t.Fatalf("runFmt: %v", err)
	}
	data, _ := os.ReadFile(path)
	want := "# base deps\n-r common.txt\n\nfastapi>=0.104.0  # web framework\n"
	if string(data) != want {
		t.Errorf("formatted = %q, want %q", data, want)
	}
}

func TestRunFmt_MissingFile(t *testing.T) {
	if err := runFmt([]string{"/no/such/requirements.txt"}, fmtOpts{check: true}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package requirements

import (
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.0"},
		{"v1.0", "1.0"},
		{"1.0.0", "1.0.0"},
		{"2024.1", "2024.1"},
		{"1!2.0", "1!2.0"},
		{"1.0a1", "1.0a1"},
		{"1.0.alpha1", "1.0a1"},
		{"1.0b2", "1.0b2"},
		{"1.0rc1", "1.0rc1"},
		{"1.0c1", "1.0rc1"},
		{"1.0.preview2", "1.0rc2"},
		{"1.0.post1", "1.0.post1"},
		{"1.0-1", "1.0.post1"},
		{"1.0.rev2", "1.0.post2"},
		{"1.0.dev3", "1.0.dev3"},
		{"1.0.dev", "1.0.dev0"},
		{"1.0+cpu", "1.0+cpu"},
		{"1.0+ubuntu.1", "1.0+ubuntu.1"},
		{"1.0a1.post2.dev3", "1.0a1.post2.dev3"},
		{" 1.2.3 ", "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVersion(tt.in)
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", tt.in, err)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("ParseVersion(%q).String() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.0.x", "1..0", "==1.0", "1.0 beta"} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseVersion(in); err == nil {
				t.Errorf("ParseVersion(%q) succeeded, want error", in)
			}
		})
	}
}

func TestVersionCompare(t *testing.T) {
	// Each version must sort strictly before the next one.
	ordered := []string{
		"0.9",
		"1.0.dev1",
		"1.0.dev2",
		"1.0a1",
		"1.0a2",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0+cpu",
		"1.0.post1",
		"1.0.1",
		"1.1",
		"1.10",
		"2.0",
		"1!0.5",
	}

	parse := func(s string) Version {
		v, err := ParseVersion(s)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", s, err)
		}
		return v
	}

	for i := 0; i < len(ordered)-1; i++ {
		a, b := parse(ordered[i]), parse(ordered[i+1])
		if got := a.Compare(b); got != -1 {
			t.Errorf("Compare(%q, %q) = %d, want -1", ordered[i], ordered[i+1], got)
		}
		if got := b.Compare(a); got != 1 {
			t.Errorf("Compare(%q, %q) = %d, want 1", ordered[i+1], ordered[i], got)
		}
	}
}

func TestVersionCompare_Equal(t *testing.T) {
	pairs := [][2]string{
		{"1.0", "1.0.0"},   // zero padding
		{"1.0", "v1.0"},
		{"1.0a1", "1.0.alpha1"},
		{"1.0.post1", "1.0-1"},
	}
	for _, p := range pairs {
		a, err := ParseVersion(p[0])
		if err != nil {
			t.Fatal(err)
		}
		b, err := ParseVersion(p[1])
		if err != nil {
			t.Fatal(err)
		}
		if got := a.Compare(b); got != 0 {
			t.Errorf("Compare(%q, %q) = %d, want 0", p[0], p[1], got)
		}
	}
}

func TestVersionCompare_Local(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0+cpu", -1},
		{"1.0+abc", "1.0+abc", 0},
		{"1.0+abc", "1.0+2", -1},   // numeric local segments sort after alpha
		{"1.0+2", "1.0+10", -1},    // numeric local segments compare numerically
		{"1.0+abc", "1.0+abc.1", -1},
	}
	for _, tt := range tests {
		a, _ := ParseVersion(tt.a)
		b, _ := ParseVersion(tt.b)
		if got := a.Compare(b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestVersionIsPrerelease(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1.0", false},
		{"1.0.post1", false},
		{"1.0a1", true},
		{"1.0rc2", true},
		{"1.0.dev1", true},
	}
	for _, tt := range tests {
		v, err := ParseVersion(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := v.IsPrerelease(); got != tt.want {
			t.Errorf("IsPrerelease(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

package lint

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity classifies how serious a finding is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// ParseSeverity converts a severity name to a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", name)
}

// MarshalText implements encoding.TextMarshaler so severities serialize as
// their names in JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	sev, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// Finding is one problem a rule found in a manifest.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
	Package  string   `json:"package,omitempty"`
	Message  string   `json:"message"`
}

// Report is the result of linting one manifest.
type Report struct {
	ID          string         `json:"id"`
	Path        string         `json:"path,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Findings    []Finding      `json:"findings"`
	Counts      map[string]int `json:"counts"`
}

// NewReport creates an empty report for the given manifest path.
func NewReport(path string) *Report {
	return &Report{
		ID:          uuid.NewString(),
		Path:        path,
		GeneratedAt: time.Now().UTC(),
		Counts:      make(map[string]int),
	}
}

// Add appends a finding. Counts are recomputed by tally at the end of a run.
func (r *Report) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Failed reports whether the manifest has any error-severity finding.
func (r *Report) Failed() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r *Report) tally() {
	for k := range r.Counts {
		delete(r.Counts, k)
	}
	for _, f := range r.Findings {
		r.Counts[f.Severity.String()]++
	}
}

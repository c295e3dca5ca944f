// Package check verifies a requirements manifest against a package registry.
//
// For every specifier the checker asks the registry which versions exist and
// classifies the requirement: satisfied and current, satisfiable but behind
// the latest release, unsatisfiable by any published version, unknown package,
// or unknown state after a network failure. Lookups fan out over a worker
// pool; results are reported in manifest order regardless of completion order.
package check

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/reqlint/reqlint/pkg/integrations"
	"github.com/reqlint/reqlint/pkg/pypi"
	"github.com/reqlint/reqlint/pkg/requirements"
)

const defaultWorkers = 20

// Status classifies the outcome of checking one requirement.
type Status string

const (
	StatusOK            Status = "ok"            // Constraints admit the latest release
	StatusOutdated      Status = "outdated"      // Satisfiable, but the latest release is excluded
	StatusUnsatisfiable Status = "unsatisfiable" // No published version matches
	StatusNotFound      Status = "not_found"     // Package does not exist in the registry
	StatusUnknown       Status = "unknown"       // Lookup failed (network error)
)

// VersionFetcher retrieves the published versions of a package.
// *pypi.Client satisfies this through a thin adapter; tests provide stubs.
type VersionFetcher interface {
	Versions(ctx context.Context, name string, refresh bool) ([]pypi.Release, error)
}

// PyPI adapts *pypi.Client to the VersionFetcher interface.
type PyPI struct{ *pypi.Client }

// Versions implements VersionFetcher.
func (p PyPI) Versions(ctx context.Context, name string, refresh bool) ([]pypi.Release, error) {
	return p.FetchVersions(ctx, name, refresh)
}

// Options configures a check run.
type Options struct {
	Workers       int                  // Concurrent registry lookups (default: 20)
	Refresh       bool                 // Bypass the response cache
	IncludeYanked bool                 // Consider yanked releases as candidates
	Logger        func(string, ...any) // Progress/error callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Item is the check outcome for one requirement.
type Item struct {
	Package   string `json:"package"`           // Canonical name
	Line      int    `json:"line"`              // Manifest line number
	Specifier string `json:"specifier"`         // Canonical specifier text
	Status    Status `json:"status"`
	Latest    string `json:"latest,omitempty"`  // Newest candidate release
	Matched   string `json:"matched,omitempty"` // Newest version the constraints admit
	Detail    string `json:"detail,omitempty"`  // Human-readable explanation
}

// Result is the outcome of checking one manifest.
type Result struct {
	Path   string         `json:"path,omitempty"`
	Items  []Item         `json:"items"`
	Counts map[string]int `json:"counts"`
}

// Failed reports whether any requirement is unsatisfiable or missing.
func (r *Result) Failed() bool {
	for _, it := range r.Items {
		if it.Status == StatusUnsatisfiable || it.Status == StatusNotFound {
			return true
		}
	}
	return false
}

// Checker runs registry checks over manifests.
type Checker struct {
	fetcher VersionFetcher
}

// New creates a Checker using the given version source.
func New(fetcher VersionFetcher) *Checker {
	return &Checker{fetcher: fetcher}
}

type job struct {
	index int
	line  int
	req   *requirements.Requirement
}

// Check looks up every specifier line of the manifest and classifies it.
// Lookups run concurrently; the returned items are in manifest order.
// Check only fails on context cancellation: per-package lookup errors are
// recorded as StatusUnknown items so one flaky package does not abort the run.
func (c *Checker) Check(ctx context.Context, m *requirements.Manifest, opts Options) (*Result, error) {
	opts = opts.WithDefaults()

	lines := m.SpecifierLines()
	items := make([]Item, len(lines))

	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := min(opts.Workers, max(len(lines), 1))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				items[j.index] = c.checkOne(ctx, j, opts)
			}
		}()
	}

	for i, l := range lines {
		select {
		case jobs <- job{index: i, line: l.Number, req: l.Req}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Path: m.Path, Items: items, Counts: make(map[string]int)}
	for _, it := range items {
		result.Counts[string(it.Status)]++
	}
	return result, nil
}

func (c *Checker) checkOne(ctx context.Context, j job, opts Options) Item {
	item := Item{
		Package:   j.req.Canonical,
		Line:      j.line,
		Specifier: j.req.String(),
	}

	releases, err := c.fetcher.Versions(ctx, j.req.Canonical, opts.Refresh)
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			item.Status = StatusNotFound
			item.Detail = "package not found in registry"
			return item
		}
		opts.Logger("fetch failed: %s: %v", j.req.Canonical, err)
		item.Status = StatusUnknown
		item.Detail = err.Error()
		return item
	}

	candidates := parseCandidates(releases, opts.IncludeYanked)
	if len(candidates) == 0 {
		item.Status = StatusUnknown
		item.Detail = "registry returned no parseable versions"
		return item
	}

	cs := requirements.ConstraintSet(j.req.Constraints)

	// pip only considers pre-releases when a constraint names one.
	pool := candidates
	if !cs.AllowsPrereleases() {
		if finals := finalsOnly(candidates); len(finals) > 0 {
			pool = finals
		}
	}

	latest := pool[len(pool)-1]
	item.Latest = latest.String()

	var matched *requirements.Version
	for i := len(pool) - 1; i >= 0; i-- {
		if cs.Match(pool[i]) {
			matched = &pool[i]
			break
		}
	}

	switch {
	case matched == nil:
		item.Status = StatusUnsatisfiable
		item.Detail = "no published version satisfies " + item.Specifier
	case matched.Compare(latest) == 0:
		item.Status = StatusOK
		item.Matched = matched.String()
	default:
		item.Status = StatusOutdated
		item.Matched = matched.String()
		item.Detail = "latest release " + item.Latest + " is excluded by " + item.Specifier
	}
	return item
}

// parseCandidates converts registry releases to sorted versions, dropping
// strings that are not valid PEP 440 versions (old uploads sometimes carry
// arbitrary tags) and, unless includeYanked is set, yanked releases.
func parseCandidates(releases []pypi.Release, includeYanked bool) []requirements.Version {
	var out []requirements.Version
	for _, r := range releases {
		if r.Yanked && !includeYanked {
			continue
		}
		v, err := requirements.ParseVersion(r.Version)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func finalsOnly(versions []requirements.Version) []requirements.Version {
	var out []requirements.Version
	for _, v := range versions {
		if !v.IsPrerelease() {
			out = append(out, v)
		}
	}
	return out
}

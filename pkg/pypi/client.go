// Package pypi provides access to the PyPI package registry JSON API.
package pypi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reqlint/reqlint/pkg/cache"
	"github.com/reqlint/reqlint/pkg/integrations"
	"github.com/reqlint/reqlint/pkg/requirements"
)

// DefaultBaseURL is the public PyPI JSON API endpoint.
const DefaultBaseURL = "https://pypi.org/pypi"

// PackageInfo holds metadata for a Python package from PyPI.
//
// Package names are normalized following PEP 503 (lowercase, underscores to
// hyphens). Zero values: all string fields are empty. This struct is safe for
// concurrent reads after construction.
type PackageInfo struct {
	Name        string            `json:"name"`         // Normalized package name
	Version     string            `json:"version"`      // Latest released version
	Summary     string            `json:"summary"`      // Short package description (may be empty)
	License     string            `json:"license"`      // License name or expression (may be empty)
	Author      string            `json:"author"`       // Author name (may be empty)
	HomePage    string            `json:"home_page"`    // Homepage URL (may be empty)
	ProjectURLs map[string]string `json:"project_urls"` // Project URLs from metadata (may be nil)
}

// Release is one published version of a package.
type Release struct {
	Version string `json:"version"`
	Yanked  bool   `json:"yanked"` // True when every file of the release is yanked
}

// Client provides access to the PyPI package registry API.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a PyPI client with the given cache backend.
//
// Parameters:
//   - backend: cache backend for HTTP response caching (use cache.NewNullCache() for no caching)
//   - cacheTTL: how long responses are cached (typical: 1-24 hours)
//
// The returned Client is safe for concurrent use.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(backend, "pypi:", cacheTTL, nil),
		baseURL: DefaultBaseURL,
	}
}

// SetBaseURL points the client at a different PyPI-compatible index
// (private mirrors, test fixtures).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// FetchPackage retrieves metadata for a Python package from PyPI.
//
// The pkg parameter is normalized automatically (case-insensitive,
// underscores to hyphens). If refresh is true, the cache is bypassed and a
// fresh API call is made.
//
// Returns:
//   - PackageInfo populated with metadata on success
//   - [integrations.ErrNotFound] if the package doesn't exist
//   - [integrations.ErrNetwork] for HTTP failures (timeout, 5xx, etc.)
//   - Other errors for JSON decoding failures
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	pkg = requirements.NormalizeName(pkg)

	var info PackageInfo
	err := c.Cached(ctx, "info:"+pkg, refresh, &info, func() error {
		var data apiResponse
		if err := c.fetch(ctx, pkg, &data); err != nil {
			return err
		}
		info = packageInfo(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchVersions retrieves every published version of a package. Response
// ordering is not guaranteed; callers sort as needed. Versions whose files
// are all yanked carry Yanked=true.
func (c *Client) FetchVersions(ctx context.Context, pkg string, refresh bool) ([]Release, error) {
	pkg = requirements.NormalizeName(pkg)

	var releases []Release
	err := c.Cached(ctx, "versions:"+pkg, refresh, &releases, func() error {
		var data apiResponse
		if err := c.fetch(ctx, pkg, &data); err != nil {
			return err
		}
		releases = extractReleases(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return releases, nil
}

func (c *Client) fetch(ctx context.Context, pkg string, data *apiResponse) error {
	if err := c.Get(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, integrations.URLEncode(pkg)), data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: pypi package %s", err, pkg)
		}
		return err
	}
	return nil
}

func packageInfo(data apiResponse) PackageInfo {
	urls := make(map[string]string, len(data.Info.ProjectURLs))
	for k, v := range data.Info.ProjectURLs {
		if s, ok := v.(string); ok {
			urls[k] = s
		}
	}
	return PackageInfo{
		Name:        requirements.NormalizeName(data.Info.Name),
		Version:     data.Info.Version,
		Summary:     data.Info.Summary,
		License:     data.Info.License,
		Author:      data.Info.Author,
		HomePage:    data.Info.HomePage,
		ProjectURLs: urls,
	}
}

func extractReleases(data apiResponse) []Release {
	releases := make([]Release, 0, len(data.Releases))
	for version, files := range data.Releases {
		yanked := len(files) > 0
		for _, f := range files {
			if !f.Yanked {
				yanked = false
				break
			}
		}
		releases = append(releases, Release{Version: version, Yanked: yanked})
	}
	return releases
}

type apiResponse struct {
	Info     apiInfo              `json:"info"`
	Releases map[string][]apiFile `json:"releases"`
}

type apiInfo struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Summary     string         `json:"summary"`
	License     string         `json:"license"`
	Author      string         `json:"author"`
	HomePage    string         `json:"home_page"`
	ProjectURLs map[string]any `json:"project_urls"`
}

type apiFile struct {
	Yanked bool `json:"yanked"`
}

package pypi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reqlint/reqlint/pkg/cache"
	"github.com/reqlint/reqlint/pkg/integrations"
)

const fastapiJSON = `{
  "info": {
    "name": "FastAPI",
    "version": "0.110.0",
    "summary": "FastAPI framework, high performance",
    "license": "MIT",
    "author": "Sebastián Ramírez",
    "home_page": "",
    "project_urls": {"Homepage": "https://github.com/tiangolo/fastapi", "Funding": null}
  },
  "releases": {
    "0.104.0": [{"yanked": false}],
    "0.104.1": [{"yanked": false}, {"yanked": false}],
    "0.105.0": [{"yanked": true}],
    "0.110.0": [{"yanked": false}]
  }
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(cache.NewNullCache(), time.Hour)
	c.SetBaseURL(srv.URL)
	return c
}

func TestFetchPackage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fastapi/json" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(fastapiJSON))
	})

	info, err := c.FetchPackage(context.Background(), "FastAPI", false)
	if err != nil {
		t.Fatalf("FetchPackage: %v", err)
	}
	if info.Name != "fastapi" {
		t.Errorf("Name = %q, want fastapi", info.Name)
	}
	if info.Version != "0.110.0" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.ProjectURLs["Homepage"] != "https://github.com/tiangolo/fastapi" {
		t.Errorf("ProjectURLs = %v", info.ProjectURLs)
	}
	if _, ok := info.ProjectURLs["Funding"]; ok {
		t.Error("null project URL should be dropped")
	}
}

func TestFetchVersions(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fastapiJSON))
	})

	releases, err := c.FetchVersions(context.Background(), "fastapi", false)
	if err != nil {
		t.Fatalf("FetchVersions: %v", err)
	}
	if len(releases) != 4 {
		t.Fatalf("got %d releases, want 4", len(releases))
	}

	yanked := map[string]bool{}
	for _, r := range releases {
		yanked[r.Version] = r.Yanked
	}
	if !yanked["0.105.0"] {
		t.Error("0.105.0 should be yanked")
	}
	if yanked["0.104.1"] {
		t.Error("0.104.1 should not be yanked")
	}
}

func TestFetchPackage_NotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.FetchPackage(context.Background(), "no-such-package", false)
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFetchPackage_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(fastapiJSON))
	}))
	t.Cleanup(srv.Close)

	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(backend, time.Hour)
	c.SetBaseURL(srv.URL)

	ctx := context.Background()
	if _, err := c.FetchPackage(ctx, "fastapi", false); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FetchPackage(ctx, "fastapi", false); err != nil {
		t.Fatal(err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("API hits = %d, want 1 (second call should be cached)", got)
	}

	// refresh bypasses the cache.
	if _, err := c.FetchPackage(ctx, "fastapi", true); err != nil {
		t.Fatal(err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("API hits = %d, want 2 after refresh", got)
	}
}

func TestFetchPackage_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(fastapiJSON))
	})

	// The base client's backoff starts at one second; this test accepts the
	// delay in exchange for exercising the real retry path.
	info, err := c.FetchPackage(context.Background(), "fastapi", false)
	if err != nil {
		t.Fatalf("FetchPackage: %v", err)
	}
	if info.Version != "0.110.0" {
		t.Errorf("Version = %q", info.Version)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("API hits = %d, want 2", got)
	}
}

package asset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPResolveAndFetch(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/assets/42/endpoint":
			if r.Header.Get("Authorization") != "Bearer secret" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"url":"` + srv.URL + `/data/42.geojson","accessToken":"tok","type":"GEOJSON"}`))
		case "/data/42.geojson":
			if r.Header.Get("Authorization") != "Bearer tok" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL+"/v1/assets/%s/endpoint", "secret")
	ctx := context.Background()

	res, err := h.Resolve(ctx, "42")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Type != "GEOJSON" || res.AccessToken != "tok" {
		t.Fatalf("resource = %+v", res)
	}
	data, err := h.Fetch(ctx, res)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty document")
	}

	if _, err := h.Resolve(ctx, "7"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown asset err = %v, want ErrNotFound", err)
	}
	if res, err := h.Resolve(ctx, "https://example.com/tileset.json"); err != nil || res.URL != "https://example.com/tileset.json" {
		t.Errorf("direct URL = %+v, %v", res, err)
	}
}

func TestDirResolveListFetch(t *testing.T) {
	dataDir := t.TempDir()
	d := NewDir(dataDir)
	if files, err := d.List(); err != nil || len(files) != 0 {
		t.Fatalf("List on missing dir = %v, %v", files, err)
	}
	if err := os.MkdirAll(d.Root(), 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(d.Root(), "faults.geojson"), []byte(`{}`), 0644)
	os.WriteFile(filepath.Join(d.Root(), "notes.txt"), []byte(`x`), 0644)

	files, err := d.List()
	if err != nil || len(files) != 1 || files[0].Type != "GEOJSON" || files[0].Size != "2 B" {
		t.Fatalf("List = %+v, %v", files, err)
	}

	ctx := context.Background()
	res, err := d.Resolve(ctx, "faults")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	data, err := d.Fetch(ctx, res)
	if err != nil || string(data) != "{}" {
		t.Fatalf("Fetch = %q, %v", data, err)
	}

	for _, ref := range []string{"../etc/passwd", "a/b", ""} {
		if _, err := d.Resolve(ctx, ref); !errors.Is(err, ErrInvalidRef) {
			t.Errorf("%q: err = %v, want ErrInvalidRef", ref, err)
		}
	}
	if _, err := d.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
}

type countingResolver struct {
	calls atomic.Int32
	fail  bool
	delay time.Duration
}

func (c *countingResolver) Resolve(ctx context.Context, ref string) (Resource, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	if c.fail {
		return Resource{}, ErrNotFound
	}
	return Resource{URL: "https://example.com/" + ref}, nil
}

func (c *countingResolver) Fetch(ctx context.Context, res Resource) ([]byte, error) {
	return []byte(res.URL), nil
}

func TestCachedDeduplicates(t *testing.T) {
	next := &countingResolver{delay: 20 * time.Millisecond}
	c := NewCached(next, 8, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Resolve(context.Background(), "a"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if _, err := c.Resolve(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if n := next.calls.Load(); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("cache len = %d", c.Len())
	}
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	next := &countingResolver{fail: true}
	c := NewCached(next, 8, time.Minute)
	c.Resolve(context.Background(), "a")
	c.Resolve(context.Background(), "a")
	if n := next.calls.Load(); n != 2 {
		t.Fatalf("upstream calls = %d, want 2", n)
	}
}

func TestChain(t *testing.T) {
	dir := NewDir(t.TempDir())
	fallback := &countingResolver{}
	chain := Chain{dir, fallback}
	res, err := chain.Resolve(context.Background(), "remote-id")
	if err != nil || res.URL != "https://example.com/remote-id" {
		t.Fatalf("Resolve = %+v, %v", res, err)
	}
	data, err := chain.Fetch(context.Background(), res)
	if err != nil || string(data) != res.URL {
		t.Fatalf("Fetch = %q, %v", data, err)
	}
}

func TestWMTS(t *testing.T) {
	w := NewWMTS("")
	url, err := w.Imagery(context.Background(), "ch.swisstopo.swissimage")
	if err != nil {
		t.Fatal(err)
	}
	want := "https://wmts.geo.admin.ch/1.0.0/ch.swisstopo.swissimage/default/current/3857/{z}/{x}/{y}.jpeg"
	if url != want {
		t.Errorf("url = %q", url)
	}
	if _, err := w.Imagery(context.Background(), "a/b"); !errors.Is(err, ErrInvalidRef) {
		t.Errorf("err = %v", err)
	}
}

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/joeblew999/plat-viewer/internal/asset"
	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/engine"
	"github.com/joeblew999/plat-viewer/internal/factory"
	"github.com/joeblew999/plat-viewer/internal/permalink"
	"github.com/joeblew999/plat-viewer/internal/quake"
	"github.com/joeblew999/plat-viewer/internal/scene"
)

const testCatalog = `
categories:
  - id: geo
    label: Geology
  - id: base
    label: Base maps
layers:
  - id: swissimage
    layer: ch.swisstopo.swissimage
    type: imageryOverlay
    label: Aerial imagery
    parent: base
  - id: faults
    layer: faults
    type: geoJsonAsset
    label: Faults
    parent: geo
    assetId: faults
  - id: broken
    layer: broken
    type: geoJsonAsset
    label: Broken
    parent: geo
    assetId: missing
  - id: quakes
    layer: earthquakes
    type: pointCloudVisualization
    label: Earthquakes
    parent: geo
`

type fakeQuakes struct{}

func (fakeQuakes) Events(ctx context.Context) ([]quake.Event, error) {
	return []quake.Event{
		{Time: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Lon: 7, Lat: 46, Magnitude: 1.5},
		{Time: time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), Lon: 8, Lat: 47, Magnitude: 3.5},
	}, nil
}

func newTestServices(t *testing.T) *Services {
	t.Helper()
	dir := asset.NewDir(t.TempDir())
	if err := os.MkdirAll(dir.Root(), 0755); err != nil {
		t.Fatal(err)
	}
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[7,46]},"properties":{}}]}`
	if err := os.WriteFile(filepath.Join(dir.Root(), "faults.geojson"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatal(err)
	}
	e := engine.New(engine.Config{
		Registry: reg,
		Activator: &factory.Dispatcher{
			Scene:   scene.NewMemory(),
			Assets:  dir,
			Imagery: asset.NewWMTS(""),
			Quakes:  fakeQuakes{},
		},
		Scene: scene.NewMemory(),
		Store: permalink.NewQuery(),
	})
	return &Services{Engine: e, Assets: dir}
}

func newTestAPI(t *testing.T) (humatest.TestAPI, *Services) {
	cfg := huma.DefaultConfig("Viewer API", "1.0.0")
	cfg.CreateHooks = nil
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	_, api := humatest.New(t, cfg)
	svc := newTestServices(t)
	RegisterRoutes(api, svc)
	NewInfoHandler("/data", "catalog.yaml", true).RegisterRoutes(api)
	NewQuakeHandler(fakeQuakes{}).RegisterRoutes(api)
	return api, svc
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %s: %v", resp.Body.String(), err)
	}
	return v
}

func TestHealthAndLinks(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if got := decode[HealthBody](t, resp); got.Status != "ok" {
		t.Errorf("health = %+v", got)
	}
	if links := resp.Header().Values("Link"); len(links) != 3 {
		t.Errorf("links = %v", links)
	}

	resp = api.Get("/api/v1/layers/faults")
	var self, activate bool
	for _, l := range resp.Header().Values("Link") {
		self = self || l == `</api/v1/layers/faults>; rel="self"`
		activate = activate || l == `</api/v1/layers/faults/activate>; rel="activate"`
	}
	if !self || !activate {
		t.Errorf("item links = %v", resp.Header().Values("Link"))
	}
}

func TestLayerLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)

	tree := decode[[]engine.NodeView](t, api.Get("/api/v1/layers"))
	if len(tree) != 2 || tree[0].ID != "geo" || len(tree[0].Children) != 3 {
		t.Fatalf("tree = %+v", tree)
	}

	resp := api.Post("/api/v1/layers/faults/activate")
	if resp.Code != http.StatusOK {
		t.Fatalf("activate: %d %s", resp.Code, resp.Body)
	}
	if v := decode[engine.LayerView](t, resp); v.Status != engine.Ready || v.Visible {
		t.Errorf("after activate = %+v", v)
	}

	resp = api.Put("/api/v1/layers/faults/visibility", map[string]any{"visible": true})
	if v := decode[engine.LayerView](t, resp); !v.Visible {
		t.Errorf("after show = %+v", v)
	}

	pl := decode[PermalinkBody](t, api.Get("/api/v1/permalink"))
	if pl.Query != "layers=faults&layers_transparency=1" || len(pl.Layers) != 1 {
		t.Errorf("permalink = %+v", pl)
	}

	if resp := api.Put("/api/v1/layers/faults/opacity", map[string]any{"opacity": 0.5}); resp.Code != http.StatusBadRequest {
		t.Errorf("geojson opacity: %d", resp.Code)
	}
	resp = api.Put("/api/v1/layers/quakes/opacity", map[string]any{"opacity": 4})
	if v := decode[engine.LayerView](t, resp); v.Opacity != 1 {
		t.Errorf("opacity not clamped: %+v", v)
	}
}

func TestErrorMapping(t *testing.T) {
	api, _ := newTestAPI(t)
	tests := []struct {
		name string
		resp func() *httptest.ResponseRecorder
		want int
	}{
		{"unknown layer", func() *httptest.ResponseRecorder { return api.Get("/api/v1/layers/nope") }, http.StatusNotFound},
		{"asset failure", func() *httptest.ResponseRecorder { return api.Post("/api/v1/layers/broken/activate") }, http.StatusBadGateway},
		{"not ready", func() *httptest.ResponseRecorder {
			return api.Put("/api/v1/layers/swissimage/position", map[string]any{"index": 1})
		}, http.StatusConflict},
		{"not imagery", func() *httptest.ResponseRecorder {
			api.Post("/api/v1/layers/faults/activate")
			return api.Delete("/api/v1/layers/faults/position")
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := tt.resp(); resp.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", resp.Code, tt.want, resp.Body)
			}
		})
	}
}

func TestImageryPosition(t *testing.T) {
	api, _ := newTestAPI(t)
	api.Post("/api/v1/layers/swissimage/activate")
	if resp := api.Put("/api/v1/layers/swissimage/position", map[string]any{"index": 0}); resp.Code != http.StatusOK {
		t.Fatalf("position: %d %s", resp.Code, resp.Body)
	}
	if resp := api.Delete("/api/v1/layers/swissimage/position"); resp.Code != http.StatusOK {
		t.Fatalf("remove: %d %s", resp.Code, resp.Body)
	}
}

func TestPermalinkAndCamera(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Put("/api/v1/permalink", map[string]any{"query": "layers=faults,broken&layers_transparency=0.4,0.9&lon=7.5&lat=46.9&elevation=3000"})
	if resp.Code != http.StatusOK {
		t.Fatalf("load: %d %s", resp.Code, resp.Body)
	}
	pl := decode[PermalinkBody](t, resp)
	if len(pl.Errors) != 1 || !strings.Contains(pl.Errors[0], "broken") {
		t.Errorf("errors = %v", pl.Errors)
	}
	if pl.Camera.Position == nil || pl.Camera.Position.Elevation != 3000 {
		t.Errorf("camera = %+v", pl.Camera)
	}
	if v := decode[engine.LayerView](t, api.Get("/api/v1/layers/faults")); v.Status != engine.Ready || !v.Visible {
		t.Errorf("faults = %+v", v)
	}

	resp = api.Put("/api/v1/camera", map[string]any{
		"position":    map[string]any{"lon": 8.123456, "lat": 47.1, "elevation": 1200.7},
		"orientation": map[string]any{"heading": 10, "pitch": -30},
	})
	pl = decode[PermalinkBody](t, resp)
	for _, want := range []string{"lon=8.12346", "lat=47.10000", "elevation=1201", "heading=10", "pitch=-30", "layers=faults%2Cbroken"} {
		if !strings.Contains(pl.Query, want) {
			t.Errorf("query %q lacks %q", pl.Query, want)
		}
	}
}

func TestAssetsAndQuakes(t *testing.T) {
	api, _ := newTestAPI(t)
	files := decode[[]asset.File](t, api.Get("/api/v1/assets"))
	if len(files) != 1 || files[0].Name != "faults.geojson" {
		t.Errorf("assets = %+v", files)
	}

	out := decode[struct {
		Events []QuakeEvent `json:"events"`
		Count  int          `json:"count"`
	}](t, api.Get("/api/v1/quakes?min_magnitude=2"))
	if out.Count != 1 || out.Events[0].Magnitude != 3.5 {
		t.Errorf("quakes = %+v", out)
	}

	info := decode[InfoBody](t, api.Get("/api/v1/info"))
	if info.Name != "plat-viewer" || !info.Quakes {
		t.Errorf("info = %+v", info)
	}
}

func TestQuakesUnavailable(t *testing.T) {
	_, api := humatest.New(t)
	NewQuakeHandler(nil).RegisterRoutes(api)
	if resp := api.Get("/api/v1/quakes"); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", resp.Code)
	}
}

func TestEventStream(t *testing.T) {
	svc := newTestServices(t)
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("test", "1.0.0"))
	RegisterRoutes(api, svc)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if l := lines.Text(); strings.HasPrefix(l, "data: signals") {
				return l
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if first := next(); !strings.Contains(first, `"permalink"`) || strings.Contains(first, `"visible":true`) {
		t.Fatalf("initial signals = %q", first)
	}
	for svc.Engine.Bus().Subscribers() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if err := svc.Engine.SetVisible(ctx, "quakes", true); err != nil {
		t.Fatal(err)
	}
	if got := next(); !strings.Contains(got, `"visible":true`) {
		t.Errorf("change signals = %q", got)
	}
}

package scene

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func names(layers []*Imagery) []string {
	var out []string
	for _, l := range layers {
		out = append(out, l.Name)
	}
	return out
}

func TestImageryStack(t *testing.T) {
	m := NewMemory()
	a, b, c := NewImagery("a", ""), NewImagery("b", ""), NewImagery("c", "")
	m.AddImagery(a, -1)
	m.AddImagery(b, -1)
	m.AddImagery(c, 0)
	if got := names(m.ImageryLayers()); len(got) != 3 || got[0] != "c" || got[2] != "b" {
		t.Fatalf("stack = %v", got)
	}

	// moving an existing layer does not duplicate it
	m.AddImagery(c, 99)
	if got := names(m.ImageryLayers()); len(got) != 3 || got[2] != "c" {
		t.Fatalf("stack after move = %v", got)
	}

	if !m.RemoveImagery(a) || m.RemoveImagery(a) {
		t.Error("RemoveImagery should succeed exactly once")
	}
	if m.ImageryLen() != 2 {
		t.Errorf("len = %d", m.ImageryLen())
	}
}

func TestDataSources(t *testing.T) {
	m := NewMemory()
	ds := NewDataSource("billboards_x")
	m.AddDataSource(ds)
	ds.Append(geojson.NewFeature(orb.Point{7, 46}))
	if got := m.DataSourcesByName("billboards_x"); len(got) != 1 || got[0].Len() != 1 {
		t.Fatalf("DataSourcesByName = %v", got)
	}
	if !m.RemoveDataSource(ds) || len(m.DataSources()) != 0 {
		t.Fatal("RemoveDataSource failed")
	}
}

func TestTileListeners(t *testing.T) {
	ts := NewTileset("http://example/tileset.json", false)
	var got []int
	ts.OnTileLoad(func(f []geojson.Properties) { got = append(got, len(f)) })
	ts.LoadTile([]geojson.Properties{{"a": 1}, {"a": 2}})
	ts.LoadTile(nil)
	if len(got) != 2 || got[0] != 2 || got[1] != 0 {
		t.Fatalf("listener calls = %v", got)
	}
}

func TestRenderRequests(t *testing.T) {
	m := NewMemory()
	m.RequestRender()
	m.RequestRender()
	if m.RenderRequests() != 2 {
		t.Fatalf("requests = %d", m.RenderRequests())
	}
}

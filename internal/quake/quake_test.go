package quake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeblew999/plat-viewer/internal/db"
	"github.com/joeblew999/plat-viewer/internal/scene"
)

type fakeSource struct {
	calls  atomic.Int32
	err    error
	events []Event
}

func (f *fakeSource) Events(ctx context.Context) ([]Event, error) {
	f.calls.Add(1)
	return f.events, f.err
}

func TestVisualizerLoadsOnFirstShow(t *testing.T) {
	sc := scene.NewMemory()
	src := &fakeSource{events: []Event{
		{Lon: 7.4, Lat: 46.9, Depth: 5, Magnitude: 2.1},
		{Lon: 8.5, Lat: 47.3, Depth: 12, Magnitude: 0.4},
	}}
	v := NewVisualizer(sc, "earthquakes", src, nil)

	if got := sc.DataSourcesByName("earthquakes"); len(got) != 1 {
		t.Fatalf("data sources = %d, want 1", len(got))
	}
	if v.Loaded() != nil {
		t.Fatal("loaded before first show")
	}

	v.SetVisible(false)
	if src.calls.Load() != 0 {
		t.Fatal("hiding must not load")
	}

	v.SetVisible(true)
	n, err := v.Loaded().Wait(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("load = %d, %v", n, err)
	}
	v.SetVisible(false)
	v.SetVisible(true)
	if src.calls.Load() != 1 {
		t.Errorf("source calls = %d, want 1", src.calls.Load())
	}
	if !v.DataSource().Show() || v.DataSource().Len() != 2 {
		t.Errorf("show=%v len=%d", v.DataSource().Show(), v.DataSource().Len())
	}
}

func TestVisualizerRetriesFailedLoad(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	v := NewVisualizer(scene.NewMemory(), "earthquakes", src, nil)

	v.SetVisible(true)
	if _, err := v.Loaded().Wait(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	src.err = nil
	src.events = []Event{{Magnitude: 3}}
	v.SetVisible(true)
	if n, err := v.Loaded().Wait(context.Background()); err != nil || n != 1 {
		t.Fatalf("retry = %d, %v", n, err)
	}
}

func TestVisualizerOpacity(t *testing.T) {
	v := NewVisualizer(scene.NewMemory(), "earthquakes", &fakeSource{}, nil)
	v.SetOpacity(0.4)
	if v.DataSource().Alpha() != 0.4 {
		t.Errorf("alpha = %v", v.DataSource().Alpha())
	}
	v.SetOpacity(3)
	if v.DataSource().Alpha() != 1 {
		t.Errorf("alpha = %v, want clamped 1", v.DataSource().Alpha())
	}
}

func TestFeatures(t *testing.T) {
	ts := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	fs := Features([]Event{{Time: ts, Lon: 7.5, Lat: 46.5, Depth: 3, Magnitude: 2}})
	if len(fs) != 1 {
		t.Fatalf("features = %d", len(fs))
	}
	f := fs[0]
	if f.Properties["time"] != "2020-05-01T12:00:00Z" || f.Properties["radius"] != 400.0 {
		t.Errorf("properties = %v", f.Properties)
	}
}

func TestDuckDBSource(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "quakes.csv")
	data := "Time,Longitude,Latitude,Depth,Magnitude\n" +
		"2021-03-02 10:00:00,8.1,46.2,4.5,1.9\n" +
		"2021-01-15 08:30:00,7.2,46.8,10.0,3.2\n"
	if err := os.WriteFile(csv, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	conn, err := db.Open(db.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	events, err := (&DuckDBSource{DB: conn, Path: csv}).Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Magnitude != 3.2 || events[1].Lon != 8.1 {
		t.Errorf("events not ordered by time: %+v", events)
	}
}

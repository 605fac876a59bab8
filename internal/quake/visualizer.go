package quake

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/future"
	"github.com/joeblew999/plat-viewer/internal/scene"
	"github.com/joeblew999/plat-viewer/internal/style"
)

// ErrNoSource is returned when a visualizer has no event source.
var ErrNoSource = errors.New("no event source configured")

// Visualizer shows seismic events in a data source. Events are loaded the
// first time the layer is shown.
type Visualizer struct {
	source EventSource
	logger *slog.Logger
	ds     *scene.DataSource

	mu      sync.Mutex
	loading *future.Future[int]
}

// NewVisualizer adds an empty data source named name to sc.
func NewVisualizer(sc scene.Scene, name string, source EventSource, logger *slog.Logger) *Visualizer {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Visualizer{
		source: source,
		logger: logger.With("visualizer", name),
		ds:     scene.NewDataSource(name),
	}
	sc.AddDataSource(v.ds)
	return v
}

// DataSource returns the data source holding the events.
func (v *Visualizer) DataSource() *scene.DataSource {
	return v.ds
}

// SetVisible shows or hides the events, starting the load on first show.
func (v *Visualizer) SetVisible(visible bool) {
	v.ds.SetShow(visible)
	if visible {
		v.load()
	}
}

// SetOpacity sets the alpha of all event points.
func (v *Visualizer) SetOpacity(opacity float64) {
	v.ds.SetAlpha(style.ClampOpacity(opacity))
}

// Loaded returns the pending load, or nil if the layer was never shown.
// It resolves to the number of events added.
func (v *Visualizer) Loaded() *future.Future[int] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// load starts loading once. A failed load is retried on the next show.
func (v *Visualizer) load() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loading != nil {
		if _, done, err := v.loading.Result(); !done || err == nil {
			return
		}
	}
	v.loading = future.Go(func() (int, error) {
		if v.source == nil {
			return 0, ErrNoSource
		}
		events, err := v.source.Events(context.Background())
		if err != nil {
			v.logger.Error("loading events failed", "error", err)
			return 0, err
		}
		v.ds.Append(Features(events)...)
		v.logger.Info("events loaded", "count", len(events))
		return len(events), nil
	})
}

// Features converts events to point features.
func Features(events []Event) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(events))
	for _, e := range events {
		f := geojson.NewFeature(orb.Point{e.Lon, e.Lat})
		f.Properties["magnitude"] = e.Magnitude
		f.Properties["depth"] = e.Depth
		f.Properties["time"] = e.Time.UTC().Format("2006-01-02T15:04:05Z")
		f.Properties["radius"] = Radius(e.Magnitude)
		out = append(out, f)
	}
	return out
}

// Radius is the display radius in meters for a magnitude.
func Radius(magnitude float64) float64 {
	if magnitude < 1 {
		return 100
	}
	return magnitude * magnitude * 100
}

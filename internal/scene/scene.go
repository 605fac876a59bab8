// Package scene describes the rendering context the layer engine drives and
// provides an in-memory implementation of it.
//
// The engine never renders. It only adds, removes, shows and hides the
// objects below and asks the renderer for a redraw; the browser client
// mirrors the resulting scene.
package scene

import (
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/style"
)

// Scene is the rendering-context capability passed to layer factories.
type Scene interface {
	AddDataSource(ds *DataSource)
	RemoveDataSource(ds *DataSource) bool
	DataSourcesByName(name string) []*DataSource

	// AddImagery inserts layer at index of the overlay stack, 0 being the
	// bottom. A negative or out of range index appends on top. A layer
	// already in the stack is moved.
	AddImagery(layer *Imagery, index int)
	RemoveImagery(layer *Imagery) bool
	ImageryLen() int

	AddPrimitive(ts *Tileset)

	// RequestRender signals that the scene changed and needs a redraw.
	RequestRender()
}

// DataSource is a named vector dataset.
type DataSource struct {
	name string

	mu       sync.RWMutex
	show     bool
	alpha    float64
	features []*geojson.Feature
}

// NewDataSource returns a hidden, opaque, empty data source.
func NewDataSource(name string) *DataSource {
	return &DataSource{name: name, alpha: 1}
}

func (d *DataSource) Name() string { return d.name }

func (d *DataSource) SetShow(show bool) {
	d.mu.Lock()
	d.show = show
	d.mu.Unlock()
}

func (d *DataSource) Show() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.show
}

func (d *DataSource) SetAlpha(alpha float64) {
	d.mu.Lock()
	d.alpha = alpha
	d.mu.Unlock()
}

func (d *DataSource) Alpha() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.alpha
}

// Append adds features; existing entities are never replaced.
func (d *DataSource) Append(features ...*geojson.Feature) {
	d.mu.Lock()
	d.features = append(d.features, features...)
	d.mu.Unlock()
}

// Features returns a snapshot of the entities.
func (d *DataSource) Features() []*geojson.Feature {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*geojson.Feature, len(d.features))
	copy(out, d.features)
	return out
}

func (d *DataSource) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.features)
}

// Imagery is a raster overlay resolved from a named base-map layer.
type Imagery struct {
	Name        string
	URLTemplate string

	mu    sync.RWMutex
	show  bool
	alpha float64
}

// NewImagery returns a hidden, opaque overlay.
func NewImagery(name, urlTemplate string) *Imagery {
	return &Imagery{Name: name, URLTemplate: urlTemplate, alpha: 1}
}

func (i *Imagery) SetShow(show bool) {
	i.mu.Lock()
	i.show = show
	i.mu.Unlock()
}

func (i *Imagery) Show() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.show
}

func (i *Imagery) SetAlpha(alpha float64) {
	i.mu.Lock()
	i.alpha = alpha
	i.mu.Unlock()
}

func (i *Imagery) Alpha() float64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.alpha
}

// TileListener receives the feature properties of each loaded tile.
type TileListener func(features []geojson.Properties)

// Tileset is a streamed 3D tiled mesh.
type Tileset struct {
	URL      string
	Pickable bool

	mu        sync.RWMutex
	show      bool
	style     style.Style
	listeners []TileListener
}

// NewTileset returns a hidden tileset for url.
func NewTileset(url string, pickable bool) *Tileset {
	return &Tileset{URL: url, Pickable: pickable}
}

func (t *Tileset) SetShow(show bool) {
	t.mu.Lock()
	t.show = show
	t.mu.Unlock()
}

func (t *Tileset) Show() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.show
}

func (t *Tileset) SetStyle(s style.Style) {
	t.mu.Lock()
	t.style = s
	t.mu.Unlock()
}

func (t *Tileset) Style() style.Style {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.style
}

// OnTileLoad registers fn for every tile loaded from now on.
func (t *Tileset) OnTileLoad(fn TileListener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// LoadTile reports a loaded tile and notifies listeners in registration order.
func (t *Tileset) LoadTile(features []geojson.Properties) {
	t.mu.RLock()
	listeners := make([]TileListener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.RUnlock()
	for _, fn := range listeners {
		fn(features)
	}
}

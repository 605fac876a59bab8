// Package factory creates the live scene objects for layer descriptors.
package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeblew999/plat-viewer/internal/asset"
	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/future"
	"github.com/joeblew999/plat-viewer/internal/quake"
	"github.com/joeblew999/plat-viewer/internal/scene"
)

// ErrAssetResolution wraps failures of the asset-resolution capability.
var ErrAssetResolution = errors.New("asset resolution failed")

// Capabilities are the operations bound to an activated layer. SetOpacity,
// Remove and Add are nil when the layer type does not support them.
type Capabilities struct {
	SetVisible func(visible bool)
	SetOpacity func(opacity float64) error
	Remove     func()
	Add        func(toIndex int)
}

// Result is the outcome of an activation.
type Result struct {
	Object any // *scene.DataSource, *scene.Tileset, *scene.Imagery or *quake.Visualizer
	Caps   Capabilities
}

// State is the runtime state a new object starts with.
type State struct {
	Visible bool
	Opacity float64
}

// Dispatcher maps each layer type to its factory.
type Dispatcher struct {
	Scene   scene.Scene
	Assets  asset.Resolver
	Imagery asset.ImageryProvider
	Quakes  quake.EventSource
	Logger  *slog.Logger
}

// Activate creates the object for layer. Point-cloud layers are created
// eagerly and come back already resolved; every other type resolves once
// its asset has been loaded.
func (d *Dispatcher) Activate(ctx context.Context, layer *catalog.Layer, st State) *future.Future[*Result] {
	switch layer.Type {
	case catalog.GeoJSONAsset:
		return future.Go(func() (*Result, error) { return d.geoJSON(ctx, layer, st) })
	case catalog.Tileset3D:
		return future.Go(func() (*Result, error) { return d.tileset(ctx, layer, st) })
	case catalog.ImageryOverlay:
		return future.Go(func() (*Result, error) { return d.imagery(ctx, layer, st) })
	case catalog.PointCloudVisualization:
		return future.Resolved(d.pointCloud(layer, st))
	default:
		return future.Rejected[*Result](fmt.Errorf("%w: %q", catalog.ErrUnknownLayerType, layer.Type))
	}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// resolve returns the URL for ref, wrapping failures in ErrAssetResolution.
func (d *Dispatcher) resolve(ctx context.Context, ref string) (asset.Resource, error) {
	if d.Assets == nil {
		return asset.Resource{}, fmt.Errorf("%w: no asset resolver for %q", ErrAssetResolution, ref)
	}
	res, err := d.Assets.Resolve(ctx, ref)
	if err != nil {
		return asset.Resource{}, fmt.Errorf("%w: %w", ErrAssetResolution, err)
	}
	return res, nil
}

func (d *Dispatcher) pointCloud(layer *catalog.Layer, st State) *Result {
	v := quake.NewVisualizer(d.Scene, layer.Key, d.Quakes, d.logger())
	v.SetOpacity(st.Opacity)
	if st.Visible {
		v.SetVisible(true)
	}
	return &Result{
		Object: v,
		Caps: Capabilities{
			SetVisible: v.SetVisible,
			SetOpacity: func(opacity float64) error {
				v.SetOpacity(opacity)
				return nil
			},
		},
	}
}

// SupportsOpacity reports whether an activated layer will expose SetOpacity.
func SupportsOpacity(layer *catalog.Layer) bool {
	switch layer.Type {
	case catalog.GeoJSONAsset:
		return false
	case catalog.Tileset3D:
		return !layer.OpacityDisabled
	}
	return true
}

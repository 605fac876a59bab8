package factory

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/scene"
)

func (d *Dispatcher) geoJSON(ctx context.Context, layer *catalog.Layer, st State) (*Result, error) {
	ref := layer.AssetRef
	if ref == "" {
		ref = layer.URL
	}
	res, err := d.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	data, err := d.Assets.Fetch(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetResolution, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("layer %s: decoding geojson: %w", layer.ID, err)
	}

	ds := scene.NewDataSource(layer.Key)
	ds.Append(fc.Features...)
	d.Scene.AddDataSource(ds)
	ds.SetShow(st.Visible)

	d.logger().Debug("geojson layer loaded", "layer", layer.ID, "features", len(fc.Features))
	return &Result{
		Object: ds,
		Caps:   Capabilities{SetVisible: ds.SetShow},
	}, nil
}

package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/scene"
	"github.com/joeblew999/plat-viewer/internal/style"
)

const (
	// BillboardsPrefix prefixes the name of a tileset's billboard data source.
	BillboardsPrefix = "billboards_"

	// BillboardHeight is the height of billboard points above ground, in meters.
	BillboardHeight = 20.0
)

// BillboardsName returns the billboard data source name for a layer key.
func BillboardsName(layerKey string) string {
	return BillboardsPrefix + layerKey
}

func (d *Dispatcher) tileset(ctx context.Context, layer *catalog.Layer, st State) (*Result, error) {
	url := layer.URL
	if url == "" {
		res, err := d.resolve(ctx, layer.AssetRef)
		if err != nil {
			return nil, err
		}
		url = res.URL
	}

	base := style.Style(layer.Style)
	ts := scene.NewTileset(url, layer.Pickable)
	if base != nil {
		ts.SetStyle(base.Clone())
	}
	ts.SetShow(st.Visible)

	var show *style.Condition
	if layer.Billboards.Enabled() {
		var err error
		if show, err = style.CompileCondition(base[style.ChannelShow]); err != nil {
			return nil, fmt.Errorf("layer %s: %w", layer.ID, err)
		}
	}
	d.Scene.AddPrimitive(ts)

	logger := d.logger().With("layer", layer.ID)
	caps := Capabilities{
		SetVisible: func(visible bool) {
			ts.SetShow(visible)
			for _, ds := range d.Scene.DataSourcesByName(BillboardsName(layer.Key)) {
				ds.SetShow(visible)
			}
		},
	}
	if !layer.OpacityDisabled {
		caps.SetOpacity = func(opacity float64) error {
			s, err := style.WithOpacity(base, opacity)
			if err != nil {
				logger.Error("style opacity rewrite failed", "error", err)
				return fmt.Errorf("layer %s: %w", layer.ID, err)
			}
			ts.SetStyle(s)
			return nil
		}
		if st.Opacity < 1 {
			if err := caps.SetOpacity(st.Opacity); err != nil {
				return nil, err
			}
		}
	}

	if show != nil {
		ds := scene.NewDataSource(BillboardsName(layer.Key))
		ds.SetShow(st.Visible)
		d.Scene.AddDataSource(ds)
		ts.OnTileLoad(billboards(ds, layer.Billboards, show, logger))
	}

	return &Result{Object: ts, Caps: caps}, nil
}

// billboards derives one point per loaded tile feature from its longitude
// and latitude properties. Features rejected by the style's show condition
// or lacking coordinates are skipped.
func billboards(ds *scene.DataSource, spec *catalog.Billboards, show *style.Condition, logger *slog.Logger) scene.TileListener {
	return func(features []geojson.Properties) {
		points := make([]*geojson.Feature, 0, len(features))
		for _, props := range features {
			ok, err := show.Eval(props)
			if err != nil {
				logger.Warn("billboard show condition failed", "error", err)
				continue
			}
			if !ok {
				continue
			}
			lon, okLon := number(props[spec.LonPropName])
			lat, okLat := number(props[spec.LatPropName])
			if !okLon || !okLat {
				continue
			}
			f := geojson.NewFeature(orb.Point{lon, lat})
			f.Properties["height"] = BillboardHeight
			points = append(points, f)
		}
		if len(points) > 0 {
			ds.Append(points...)
		}
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

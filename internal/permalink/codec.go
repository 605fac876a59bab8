package permalink

import (
	"math"
	"strconv"
	"strings"
)

// Recognized keys.
const (
	KeyLon       = "lon"
	KeyLat       = "lat"
	KeyElevation = "elevation"
	KeyHeading   = "heading"
	KeyPitch     = "pitch"
	KeyLayers    = "layers"
	KeyOpacities = "layers_transparency"
)

const listSeparator = ","

// Position is the camera position in degrees and meters.
type Position struct {
	Lon       float64 `json:"lon" doc:"Longitude in degrees"`
	Lat       float64 `json:"lat" doc:"Latitude in degrees"`
	Elevation float64 `json:"elevation" doc:"Height above ellipsoid in meters"`
}

// Orientation is the camera orientation in degrees.
type Orientation struct {
	Heading float64 `json:"heading" doc:"Heading in degrees"`
	Pitch   float64 `json:"pitch" doc:"Pitch in degrees"`
}

// Camera is a camera pose; either part may be absent.
type Camera struct {
	Position    *Position    `json:"position,omitempty"`
	Orientation *Orientation `json:"orientation,omitempty"`
}

// LayerParam is one entry of the visible-layer list. A nil Opacity means
// the permalink carried none; callers treat it as 1.
type LayerParam struct {
	Key     string   `json:"layer" doc:"Layer key"`
	Opacity *float64 `json:"opacity,omitempty" doc:"Layer opacity (0-1)"`
}

// OpacityOr returns the opacity, or def when absent.
func (p LayerParam) OpacityOr(def float64) float64 {
	if p.Opacity == nil {
		return def
	}
	return *p.Opacity
}

// State is the decoded permalink. Layers is nil when the permalink makes no
// explicit layer selection.
type State struct {
	Camera Camera       `json:"camera"`
	Layers []LayerParam `json:"layers,omitempty"`
}

// LayerState is the runtime view of one layer used to rewrite the layer
// portion of a permalink.
type LayerState struct {
	Key     string
	Visible bool
	Opacity float64
}

// Decode reads the permalink state from s. Partially specified or
// unparsable fields are reported as absent.
func Decode(s Store) State {
	return State{
		Camera: DecodeCamera(s),
		Layers: DecodeLayers(s),
	}
}

// DecodeCamera reads the camera pose. The position needs lon, lat and
// elevation; the orientation needs heading and pitch.
func DecodeCamera(s Store) Camera {
	var c Camera
	lon, okLon := number(s, KeyLon)
	lat, okLat := number(s, KeyLat)
	elev, okElev := number(s, KeyElevation)
	if okLon && okLat && okElev {
		c.Position = &Position{Lon: lon, Lat: lat, Elevation: elev}
	}
	heading, okHeading := number(s, KeyHeading)
	pitch, okPitch := number(s, KeyPitch)
	if okHeading && okPitch {
		c.Orientation = &Orientation{Heading: heading, Pitch: pitch}
	}
	return c
}

// DecodeLayers zips the layer-name list with the opacity list. Missing or
// non-numeric opacities decode as nil; surplus opacities are ignored.
func DecodeLayers(s Store) []LayerParam {
	raw, ok := s.Get(KeyLayers)
	if !ok || raw == "" {
		return nil
	}
	var opacities []string
	if o, ok := s.Get(KeyOpacities); ok && o != "" {
		opacities = strings.Split(o, listSeparator)
	}

	names := strings.Split(raw, listSeparator)
	out := make([]LayerParam, 0, len(names))
	for i, name := range names {
		p := LayerParam{Key: name}
		if i < len(opacities) {
			if v, err := strconv.ParseFloat(opacities[i], 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				v = math.Min(1, math.Max(0, v))
				p.Opacity = &v
			}
		}
		out = append(out, p)
	}
	return out
}

// Encode writes st into s. Absent camera parts remove their keys, and an
// empty layer list removes both layer keys.
func Encode(s Store, st State) {
	EncodeCamera(s, st.Camera)
	encodeLayerList(s, st.Layers)
}

// EncodeCamera writes the camera pose with fixed precision: 5 decimals for
// lon/lat, integers for elevation, heading and pitch.
func EncodeCamera(s Store, c Camera) {
	if p := c.Position; p != nil {
		s.Set(KeyLon, strconv.FormatFloat(p.Lon, 'f', 5, 64))
		s.Set(KeyLat, strconv.FormatFloat(p.Lat, 'f', 5, 64))
		s.Set(KeyElevation, strconv.FormatFloat(p.Elevation, 'f', 0, 64))
	} else {
		s.Delete(KeyLon)
		s.Delete(KeyLat)
		s.Delete(KeyElevation)
	}
	if o := c.Orientation; o != nil {
		s.Set(KeyHeading, strconv.FormatFloat(o.Heading, 'f', 0, 64))
		s.Set(KeyPitch, strconv.FormatFloat(o.Pitch, 'f', 0, 64))
	} else {
		s.Delete(KeyHeading)
		s.Delete(KeyPitch)
	}
}

// SyncLayers replaces the layer portion of s with the visible layers, in the
// given order. Non-numeric opacities are written as 1.
func SyncLayers(s Store, layers []LayerState) {
	var visible []LayerParam
	for _, l := range layers {
		if !l.Visible {
			continue
		}
		o := l.Opacity
		visible = append(visible, LayerParam{Key: l.Key, Opacity: &o})
	}
	encodeLayerList(s, visible)
}

func encodeLayerList(s Store, layers []LayerParam) {
	if len(layers) == 0 {
		s.Delete(KeyLayers)
		s.Delete(KeyOpacities)
		return
	}
	names := make([]string, len(layers))
	opacities := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Key
		o := l.OpacityOr(1)
		if math.IsNaN(o) || math.IsInf(o, 0) {
			o = 1
		}
		opacities[i] = strconv.FormatFloat(o, 'f', -1, 64)
	}
	s.Set(KeyLayers, strings.Join(names, listSeparator))
	s.Set(KeyOpacities, strings.Join(opacities, listSeparator))
}

func number(s Store, key string) (float64, bool) {
	raw, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

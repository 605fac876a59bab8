// Package catalog holds the static layer registry of the viewer: layer and
// category descriptors, their YAML loading and validation, and the forest
// built from their parent links.
package catalog

import "errors"

// LayerType is the closed set of layer kinds the factories know how to build.
type LayerType string

const (
	GeoJSONAsset            LayerType = "geoJsonAsset"
	Tileset3D               LayerType = "tileset3D"
	ImageryOverlay          LayerType = "imageryOverlay"
	PointCloudVisualization LayerType = "pointCloudVisualization"
)

// Valid reports whether t is one of the known layer types.
func (t LayerType) Valid() bool {
	switch t {
	case GeoJSONAsset, Tileset3D, ImageryOverlay, PointCloudVisualization:
		return true
	}
	return false
}

var (
	ErrUnknownLayerType = errors.New("unknown layer type")
	ErrInvalidCatalog   = errors.New("invalid catalog")
)

// Descriptor is implemented by *Layer and *Category.
type Descriptor interface {
	DescriptorID() string
	Parent() string
	Title() string
}

// Billboards describes how point markers are derived from tileset features.
type Billboards struct {
	LonPropName string `yaml:"lonPropName" json:"lonPropName"`
	LatPropName string `yaml:"latPropName" json:"latPropName"`
}

// Enabled reports whether both property names are set.
func (b *Billboards) Enabled() bool {
	return b != nil && b.LonPropName != "" && b.LatPropName != ""
}

// Layer is an immutable layer descriptor.
type Layer struct {
	ID              string            `yaml:"id" json:"id"`
	Key             string            `yaml:"layer" json:"layer"`
	Type            LayerType         `yaml:"type" json:"type"`
	Label           string            `yaml:"label" json:"label"`
	ParentID        string            `yaml:"parent,omitempty" json:"parent,omitempty"`
	Visible         bool              `yaml:"visible" json:"visible"`
	Opacity         float64           `yaml:"opacity" json:"opacity"`
	AssetRef        string            `yaml:"assetId,omitempty" json:"assetId,omitempty"`
	URL             string            `yaml:"url,omitempty" json:"url,omitempty"`
	Style           map[string]string `yaml:"style,omitempty" json:"style,omitempty"`
	Pickable        bool              `yaml:"pickable" json:"pickable"`
	OpacityDisabled bool              `yaml:"opacityDisabled,omitempty" json:"opacityDisabled,omitempty"`
	Billboards      *Billboards       `yaml:"billboards,omitempty" json:"billboards,omitempty"`
}

func (l *Layer) DescriptorID() string { return l.ID }
func (l *Layer) Parent() string       { return l.ParentID }
func (l *Layer) Title() string        { return l.Label }

// Category groups layers and sub-categories.
type Category struct {
	ID       string `yaml:"id" json:"id"`
	Label    string `yaml:"label" json:"label"`
	ParentID string `yaml:"parent,omitempty" json:"parent,omitempty"`
}

func (c *Category) DescriptorID() string { return c.ID }
func (c *Category) Parent() string       { return c.ParentID }
func (c *Category) Title() string        { return c.Label }

package catalog

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ListSeparator joins layer keys in the permalink; keys must not contain it.
const ListSeparator = ","

// Registry is the validated, read-only catalog of descriptors.
type Registry struct {
	categories []*Category
	layers     []*Layer
	byID       map[string]Descriptor
	byKey      map[string]*Layer
}

type catalogFile struct {
	Categories []*Category `yaml:"categories"`
	Layers     []*Layer    `yaml:"layers"`
}

// UnmarshalYAML defaults an absent opacity to 1.
func (l *Layer) UnmarshalYAML(node *yaml.Node) error {
	type plain Layer
	p := plain{Opacity: 1}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*l = Layer(p)
	return nil
}

// Load reads and validates a YAML catalog file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Registry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(f.Categories, f.Layers)
}

// New validates descriptors and builds a registry. Definition order is kept.
func New(categories []*Category, layers []*Layer) (*Registry, error) {
	r := &Registry{
		categories: categories,
		layers:     layers,
		byID:       make(map[string]Descriptor, len(categories)+len(layers)),
		byKey:      make(map[string]*Layer, len(layers)),
	}

	for _, c := range categories {
		if c == nil || c.ID == "" {
			return nil, fmt.Errorf("%w: category without id", ErrInvalidCatalog)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, c.ID)
		}
		r.byID[c.ID] = c
	}

	for _, l := range layers {
		if l == nil || l.ID == "" {
			return nil, fmt.Errorf("%w: layer without id", ErrInvalidCatalog)
		}
		if !l.Type.Valid() {
			return nil, fmt.Errorf("layer %q: %w %q", l.ID, ErrUnknownLayerType, l.Type)
		}
		if _, dup := r.byID[l.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, l.ID)
		}
		if l.Key == "" {
			return nil, fmt.Errorf("%w: layer %q has no layer key", ErrInvalidCatalog, l.ID)
		}
		if strings.Contains(l.Key, ListSeparator) {
			return nil, fmt.Errorf("%w: layer key %q contains %q", ErrInvalidCatalog, l.Key, ListSeparator)
		}
		if _, dup := r.byKey[l.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate layer key %q", ErrInvalidCatalog, l.Key)
		}
		if math.IsNaN(l.Opacity) || l.Opacity < 0 || l.Opacity > 1 {
			return nil, fmt.Errorf("%w: layer %q opacity %v outside [0,1]", ErrInvalidCatalog, l.ID, l.Opacity)
		}
		r.byID[l.ID] = l
		r.byKey[l.Key] = l
	}

	for _, d := range r.all() {
		if err := r.checkParent(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// checkParent verifies that the parent chain of d ends at a root without
// revisiting a category.
func (r *Registry) checkParent(d Descriptor) error {
	seen := map[string]bool{d.DescriptorID(): true}
	for p := d.Parent(); p != ""; {
		parent, ok := r.byID[p]
		if !ok {
			return fmt.Errorf("%w: %q references unknown parent %q", ErrInvalidCatalog, d.DescriptorID(), p)
		}
		cat, ok := parent.(*Category)
		if !ok {
			return fmt.Errorf("%w: %q has layer %q as parent", ErrInvalidCatalog, d.DescriptorID(), p)
		}
		if seen[cat.ID] {
			return fmt.Errorf("%w: parent cycle through %q", ErrInvalidCatalog, cat.ID)
		}
		seen[cat.ID] = true
		p = cat.ParentID
	}
	return nil
}

func (r *Registry) all() []Descriptor {
	out := make([]Descriptor, 0, len(r.categories)+len(r.layers))
	for _, c := range r.categories {
		out = append(out, c)
	}
	for _, l := range r.layers {
		out = append(out, l)
	}
	return out
}

// Descriptors returns categories followed by layers, in definition order.
func (r *Registry) Descriptors() []Descriptor {
	return r.all()
}

// Layers returns the layer descriptors in definition order.
func (r *Registry) Layers() []*Layer {
	out := make([]*Layer, len(r.layers))
	copy(out, r.layers)
	return out
}

// Layer returns the layer with the given id.
func (r *Registry) Layer(id string) (*Layer, bool) {
	l, ok := r.byID[id].(*Layer)
	return l, ok
}

// LayerByKey returns the layer with the given permalink key.
func (r *Registry) LayerByKey(key string) (*Layer, bool) {
	l, ok := r.byKey[key]
	return l, ok
}

// Forest builds the descriptor forest of the registry.
func (r *Registry) Forest() []*Node {
	return BuildForest(r.all())
}

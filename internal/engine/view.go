package engine

import (
	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/factory"
)

// LayerView is a snapshot of one layer's runtime state.
type LayerView struct {
	ID              string            `json:"id" doc:"Layer ID" example:"faults"`
	Key             string            `json:"layer" doc:"Layer key used in permalinks" example:"faults"`
	Type            catalog.LayerType `json:"type" doc:"Layer type" enum:"geoJsonAsset,tileset3D,imageryOverlay,pointCloudVisualization"`
	Label           string            `json:"label" doc:"Display label"`
	Visible         bool              `json:"visible" doc:"Whether the layer is shown"`
	Opacity         float64           `json:"opacity" doc:"Opacity between 0 and 1" minimum:"0" maximum:"1"`
	OpacityDisabled bool              `json:"opacityDisabled,omitempty" doc:"Layer opacity cannot be changed"`
	Status          Status            `json:"status" doc:"Activation status" enum:"uninitialized,pending,ready"`
	Error           string            `json:"error,omitempty" doc:"Last activation error"`
}

// NodeView is a snapshot of one node of the layer tree.
type NodeView struct {
	ID       string     `json:"id" doc:"Descriptor ID"`
	Label    string     `json:"label" doc:"Display label"`
	Layer    *LayerView `json:"layerState,omitempty" doc:"Runtime state, for layer nodes"`
	Children []NodeView `json:"children,omitempty" doc:"Layers, then sub-categories"`
}

// Layer returns a snapshot of layer id.
func (e *Engine) Layer(id string) (LayerView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.state(id)
	if err != nil {
		return LayerView{}, err
	}
	return st.view(), nil
}

// Layers returns snapshots of all layers in tree order.
func (e *Engine) Layers() []LayerView {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LayerView, 0, len(e.order))
	for _, l := range e.order {
		out = append(out, e.layers[l.ID].view())
	}
	return out
}

// Tree returns the layer tree with runtime state attached to layer nodes.
func (e *Engine) Tree() []NodeView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nodeViews(e.forest)
}

func (e *Engine) nodeViews(nodes []*catalog.Node) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		v := NodeView{ID: n.ID()}
		if n.Layer != nil {
			v.Label = n.Layer.Label
			lv := e.layers[n.Layer.ID].view()
			v.Layer = &lv
		} else {
			v.Label = n.Category.Label
		}
		if len(n.Children) > 0 {
			v.Children = e.nodeViews(n.Children)
		}
		out = append(out, v)
	}
	return out
}

func (st *layerState) view() LayerView {
	v := LayerView{
		ID:              st.layer.ID,
		Key:             st.layer.Key,
		Type:            st.layer.Type,
		Label:           st.layer.Label,
		Visible:         st.visible,
		Opacity:         st.opacity,
		OpacityDisabled: !factory.SupportsOpacity(st.layer),
		Status:          st.status,
	}
	if st.lastErr != nil {
		v.Error = st.lastErr.Error()
	}
	return v
}

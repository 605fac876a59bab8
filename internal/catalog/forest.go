package catalog

// Node is one entry of the descriptor forest. Exactly one of Layer and
// Category is set.
type Node struct {
	Layer    *Layer
	Category *Category
	Children []*Node
}

// ID returns the id of the wrapped descriptor.
func (n *Node) ID() string {
	if n.Layer != nil {
		return n.Layer.ID
	}
	return n.Category.ID
}

// BuildForest arranges a flat descriptor list into an ordered forest.
//
// Children of a category are all descriptors whose parent is that category:
// layers first, then sub-categories, each in the order they appear in
// descriptors. Roots follow the same rule among descriptors without parent.
// The result depends only on the input, so repeated calls yield equal trees.
func BuildForest(descriptors []Descriptor) []*Node {
	layers := make(map[string][]*Layer)
	categories := make(map[string][]*Category)
	for _, d := range descriptors {
		switch v := d.(type) {
		case *Layer:
			layers[v.ParentID] = append(layers[v.ParentID], v)
		case *Category:
			categories[v.ParentID] = append(categories[v.ParentID], v)
		}
	}

	// Descriptors on a parent cycle are never reachable from a root.
	var build func(parent string) []*Node
	build = func(parent string) []*Node {
		var nodes []*Node
		for _, l := range layers[parent] {
			nodes = append(nodes, &Node{Layer: l})
		}
		for _, c := range categories[parent] {
			nodes = append(nodes, &Node{Category: c, Children: build(c.ID)})
		}
		return nodes
	}
	return build("")
}

// Walk visits the forest in preorder. Returning false from fn skips the
// children of that node.
func Walk(forest []*Node, fn func(n *Node) bool) {
	for _, n := range forest {
		if fn(n) {
			Walk(n.Children, fn)
		}
	}
}

// LayersInOrder flattens the forest into its layers in preorder.
func LayersInOrder(forest []*Node) []*Layer {
	var out []*Layer
	Walk(forest, func(n *Node) bool {
		if n.Layer != nil {
			out = append(out, n.Layer)
		}
		return true
	})
	return out
}

// Reduce folds fn over the forest in preorder.
func Reduce[T any](forest []*Node, init T, fn func(acc T, n *Node) T) T {
	acc := init
	Walk(forest, func(n *Node) bool {
		acc = fn(acc, n)
		return true
	})
	return acc
}

// TilesetAssets lists the asset references of all tileset layers in forest
// order, without duplicates.
func TilesetAssets(forest []*Node) []string {
	seen := make(map[string]bool)
	return Reduce(forest, []string(nil), func(acc []string, n *Node) []string {
		if n.Layer == nil || n.Layer.Type != Tileset3D || n.Layer.AssetRef == "" || seen[n.Layer.AssetRef] {
			return acc
		}
		seen[n.Layer.AssetRef] = true
		return append(acc, n.Layer.AssetRef)
	})
}

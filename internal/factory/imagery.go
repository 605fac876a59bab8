package factory

import (
	"context"
	"fmt"

	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/scene"
	"github.com/joeblew999/plat-viewer/internal/style"
)

func (d *Dispatcher) imagery(ctx context.Context, layer *catalog.Layer, st State) (*Result, error) {
	if d.Imagery == nil {
		return nil, fmt.Errorf("%w: no imagery provider for %q", ErrAssetResolution, layer.Key)
	}
	tmpl, err := d.Imagery.Imagery(ctx, layer.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetResolution, err)
	}

	img := scene.NewImagery(layer.Key, tmpl)
	d.Scene.AddImagery(img, -1)
	img.SetAlpha(style.ClampOpacity(st.Opacity))
	img.SetShow(st.Visible)

	return &Result{
		Object: img,
		Caps: Capabilities{
			SetVisible: img.SetShow,
			SetOpacity: func(opacity float64) error {
				img.SetAlpha(opacity)
				return nil
			},
			Remove: func() { d.Scene.RemoveImagery(img) },
			Add:    func(toIndex int) { AddAt(d.Scene, img, toIndex) },
		},
	}, nil
}

// AddAt places img in the overlay stack counting toIndex from the top:
// 0 < toIndex < len inserts at internal index len-toIndex, anything else
// appends on top. len is the stack without img, read at call time.
func AddAt(sc scene.Scene, img *scene.Imagery, toIndex int) {
	sc.RemoveImagery(img)
	n := sc.ImageryLen()
	if toIndex > 0 && toIndex < n {
		sc.AddImagery(img, n-toIndex)
		return
	}
	sc.AddImagery(img, -1)
}

// Package engine keeps the runtime state of every layer: its visibility and
// opacity, its one activation and the capabilities bound when activation
// completes. Every change is written back to the permalink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/factory"
	"github.com/joeblew999/plat-viewer/internal/future"
	"github.com/joeblew999/plat-viewer/internal/permalink"
	"github.com/joeblew999/plat-viewer/internal/scene"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/style"
)

var (
	ErrUnknownLayer = errors.New("unknown layer")
	ErrNotReady     = errors.New("layer not activated")
	ErrNotSupported = errors.New("operation not supported by layer")
)

// Activator creates the scene object of a layer.
type Activator interface {
	Activate(ctx context.Context, layer *catalog.Layer, st factory.State) *future.Future[*factory.Result]
}

// Status is the state of a layer's lazy cell.
type Status string

const (
	Uninitialized Status = "uninitialized"
	Pending       Status = "pending"
	Ready         Status = "ready"
)

// op is a mutation issued while activation is pending.
type op struct {
	opacity bool // false: visibility
	visible bool
	value   float64
}

type layerState struct {
	layer   *catalog.Layer
	visible bool
	opacity float64

	status  Status
	handle  *future.Future[*factory.Result]
	result  *factory.Result
	queue   []op
	lastErr error
}

// Engine is the layer runtime. It is safe for concurrent use; mutations
// are applied one at a time in the order they acquire the engine.
type Engine struct {
	registry  *catalog.Registry
	forest    []*catalog.Node
	order     []*catalog.Layer
	activator Activator
	scene     scene.Scene
	store     permalink.Store
	bus       *service.EventBus
	logger    *slog.Logger

	mu     sync.Mutex
	layers map[string]*layerState
	caps   map[string]factory.Capabilities
}

// Config wires an Engine to its collaborators.
type Config struct {
	Registry  *catalog.Registry
	Activator Activator
	Scene     scene.Scene
	Store     permalink.Store
	Bus       *service.EventBus // optional
	Logger    *slog.Logger      // optional
}

// New returns an engine with every layer uninitialized and in its
// registry default state.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = service.NewEventBus()
	}
	e := &Engine{
		registry:  cfg.Registry,
		forest:    cfg.Registry.Forest(),
		activator: cfg.Activator,
		scene:     cfg.Scene,
		store:     cfg.Store,
		bus:       bus,
		logger:    logger,
		layers:    make(map[string]*layerState),
		caps:      make(map[string]factory.Capabilities),
	}
	e.order = catalog.LayersInOrder(e.forest)
	for _, l := range cfg.Registry.Layers() {
		e.layers[l.ID] = &layerState{
			layer:   l,
			visible: l.Visible,
			opacity: style.ClampOpacity(l.Opacity),
			status:  Uninitialized,
		}
	}
	return e
}

// Bus returns the event bus changes are published on.
func (e *Engine) Bus() *service.EventBus {
	return e.bus
}

// Forest returns the layer tree.
func (e *Engine) Forest() []*catalog.Node {
	return e.forest
}

func (e *Engine) state(id string) (*layerState, error) {
	st, ok := e.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	return st, nil
}

// Activate returns the activation of layer id, starting it on first call.
// Every call for the same layer returns the same future until an activation
// fails, after which the next call starts a new one. The future resolves
// once the layer's capabilities are bound and pending mutations replayed.
func (e *Engine) Activate(ctx context.Context, id string) (*future.Future[*factory.Result], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.state(id)
	if err != nil {
		return nil, err
	}
	return e.activate(ctx, st), nil
}

// activate is Activate with e.mu held.
func (e *Engine) activate(ctx context.Context, st *layerState) *future.Future[*factory.Result] {
	if st.status != Uninitialized {
		return st.handle
	}

	handle := future.New[*factory.Result]()
	st.status = Pending
	st.handle = handle
	st.queue = nil

	// Activation is never cancelled once started.
	inner := e.activator.Activate(context.WithoutCancel(ctx), st.layer, factory.State{
		Visible: st.visible,
		Opacity: st.opacity,
	})
	e.logger.Debug("activating layer", "layer", st.layer.ID, "type", st.layer.Type)

	go func() {
		res, err := inner.Wait(context.Background())
		e.complete(st, handle, res, err)
	}()
	return handle
}

// complete binds the capabilities of a finished activation and replays the
// mutations queued meanwhile, or returns the cell to Uninitialized.
func (e *Engine) complete(st *layerState, handle *future.Future[*factory.Result], res *factory.Result, err error) {
	id := st.layer.ID

	e.mu.Lock()
	if err != nil {
		st.status = Uninitialized
		st.handle = nil
		st.queue = nil
		st.lastErr = err
		e.mu.Unlock()

		e.logger.Error("layer activation failed", "layer", id, "error", err)
		e.bus.Publish(service.Event{Resource: service.ResourceLayers, Action: service.ActionFailed, ID: id, Error: err.Error()})
		handle.Complete(nil, err)
		return
	}

	st.status = Ready
	st.result = res
	st.lastErr = nil
	e.caps[id] = res.Caps
	for _, o := range st.queue {
		if o.opacity {
			e.callOpacity(id, res.Caps, o.value)
		} else if res.Caps.SetVisible != nil {
			res.Caps.SetVisible(o.visible)
		}
	}
	replayed := len(st.queue)
	st.queue = nil
	e.scene.RequestRender()
	e.mu.Unlock()

	e.logger.Info("layer activated", "layer", id, "replayed", replayed)
	e.bus.Publish(service.Event{Resource: service.ResourceLayers, Action: service.ActionActivated, ID: id})
	handle.Complete(res, nil)
}

func (e *Engine) callOpacity(id string, caps factory.Capabilities, v float64) error {
	if caps.SetOpacity == nil {
		return fmt.Errorf("%w: %s has no opacity", ErrNotSupported, id)
	}
	if err := caps.SetOpacity(v); err != nil {
		e.logger.Error("set opacity failed", "layer", id, "error", err)
		return err
	}
	return nil
}

// SetVisible shows or hides layer id. Showing an uninitialized layer
// activates it; on a pending layer the change is replayed once it is ready.
func (e *Engine) SetVisible(ctx context.Context, id string, visible bool) error {
	e.mu.Lock()
	st, err := e.state(id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.setVisible(ctx, st, visible)
	e.changed()
	e.mu.Unlock()

	e.bus.Publish(service.Event{Resource: service.ResourceLayers, Action: service.ActionUpdated, ID: id})
	return nil
}

// setVisible is SetVisible with e.mu held.
func (e *Engine) setVisible(ctx context.Context, st *layerState, visible bool) {
	st.visible = visible
	switch st.status {
	case Ready:
		if st.result.Caps.SetVisible != nil {
			st.result.Caps.SetVisible(visible)
		}
	case Pending:
		st.queue = append(st.queue, op{visible: visible})
	case Uninitialized:
		if visible {
			e.activate(ctx, st)
		}
	}
}

// SetOpacity sets the opacity of layer id, clamped to [0,1]. A style that
// cannot carry the new opacity is reported and leaves the state unchanged.
func (e *Engine) SetOpacity(id string, opacity float64) error {
	e.mu.Lock()
	st, err := e.state(id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.setOpacity(st, opacity); err != nil {
		e.mu.Unlock()
		return err
	}
	e.changed()
	e.mu.Unlock()

	e.bus.Publish(service.Event{Resource: service.ResourceLayers, Action: service.ActionUpdated, ID: id})
	return nil
}

// setOpacity is SetOpacity with e.mu held.
func (e *Engine) setOpacity(st *layerState, opacity float64) error {
	if !factory.SupportsOpacity(st.layer) {
		return fmt.Errorf("%w: %s has no opacity", ErrNotSupported, st.layer.ID)
	}
	opacity = style.ClampOpacity(opacity)
	switch st.status {
	case Ready:
		if err := e.callOpacity(st.layer.ID, st.result.Caps, opacity); err != nil {
			return err
		}
	case Pending:
		st.queue = append(st.queue, op{opacity: true, value: opacity})
	}
	st.opacity = opacity
	return nil
}

// changed requests a redraw and rewrites the layer portion of the
// permalink. e.mu must be held.
func (e *Engine) changed() {
	e.scene.RequestRender()
	e.syncPermalink()
}

func (e *Engine) syncPermalink() {
	states := make([]permalink.LayerState, 0, len(e.order))
	for _, l := range e.order {
		st := e.layers[l.ID]
		states = append(states, permalink.LayerState{Key: l.Key, Visible: st.visible, Opacity: st.opacity})
	}
	permalink.SyncLayers(e.store, states)
}

// Init applies the permalink's layer selection: listed layers become
// visible with their listed opacity (1 when absent), all others hidden.
// Without a selection the registry defaults apply and are written back
// to the permalink.
func (e *Engine) Init(ctx context.Context) {
	e.mu.Lock()
	selection := permalink.DecodeLayers(e.store)
	listed := make(map[string]permalink.LayerParam, len(selection))
	for _, p := range selection {
		if _, ok := e.registry.LayerByKey(p.Key); !ok {
			e.logger.Warn("permalink lists unknown layer", "layer", p.Key)
			continue
		}
		listed[p.Key] = p
	}

	for _, l := range e.order {
		st := e.layers[l.ID]
		visible, opacity := l.Visible, l.Opacity
		if selection != nil {
			p, ok := listed[l.Key]
			visible = ok
			if ok {
				opacity = p.OpacityOr(1)
			}
		}
		if st.visible != visible {
			// Visibility is applied without activating; ActivateVisible does that.
			st.visible = visible
			switch st.status {
			case Ready:
				if st.result.Caps.SetVisible != nil {
					st.result.Caps.SetVisible(visible)
				}
			case Pending:
				st.queue = append(st.queue, op{visible: visible})
			}
		}
		opacity = style.ClampOpacity(opacity)
		switch {
		case st.opacity == opacity:
		case factory.SupportsOpacity(l):
			if err := e.setOpacity(st, opacity); err != nil {
				e.logger.Warn("permalink opacity not applied", "layer", l.ID, "error", err)
			}
		default:
			st.opacity = opacity
		}
	}
	if selection == nil {
		e.syncPermalink()
	}
	e.scene.RequestRender()
	e.mu.Unlock()

	e.bus.Publish(service.Event{Resource: service.ResourcePermalink, Action: service.ActionUpdated})
}

// ActivateVisible activates every visible layer concurrently and waits for
// all of them. Failures of individual layers are joined; they do not stop
// the others.
func (e *Engine) ActivateVisible(ctx context.Context) error {
	e.mu.Lock()
	var handles []*future.Future[*factory.Result]
	var ids []string
	for _, l := range e.order {
		st := e.layers[l.ID]
		if st.visible {
			handles = append(handles, e.activate(ctx, st))
			ids = append(ids, l.ID)
		}
	}
	e.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, h := range handles {
		wg.Go(func() {
			if _, err := h.Wait(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("layer %s: %w", ids[i], err))
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

// LoadPermalink replaces the permalink with raw and re-runs the initial
// synchronization, then activates the layers it shows.
func (e *Engine) LoadPermalink(ctx context.Context, raw string) error {
	e.mu.Lock()
	permalink.Copy(e.store, permalink.ParseQuery(raw))
	e.mu.Unlock()
	e.Init(ctx)
	return e.ActivateVisible(ctx)
}

// Permalink returns the current permalink query.
func (e *Engine) Permalink() string {
	return permalink.Format(e.store)
}

// SetCamera writes the camera portion of the permalink.
func (e *Engine) SetCamera(c permalink.Camera) {
	e.mu.Lock()
	permalink.EncodeCamera(e.store, c)
	e.mu.Unlock()
	e.bus.Publish(service.Event{Resource: service.ResourceCamera, Action: service.ActionUpdated})
}

// Camera returns the camera pose stored in the permalink.
func (e *Engine) Camera() permalink.Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return permalink.DecodeCamera(e.store)
}

// Capabilities returns the capabilities bound to an activated layer.
func (e *Engine) Capabilities(id string) (factory.Capabilities, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.caps[id]
	return c, ok
}

// ready returns the activated state of id. e.mu must be held.
func (e *Engine) ready(id string) (*layerState, error) {
	st, err := e.state(id)
	if err != nil {
		return nil, err
	}
	if st.status != Ready {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotReady, id, st.status)
	}
	return st, nil
}

// MoveImagery places an imagery overlay toIndex positions from the top of
// the overlay stack.
func (e *Engine) MoveImagery(id string, toIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.ready(id)
	if err != nil {
		return err
	}
	if st.result.Caps.Add == nil {
		return fmt.Errorf("%w: %s cannot be positioned", ErrNotSupported, id)
	}
	st.result.Caps.Add(toIndex)
	e.scene.RequestRender()
	return nil
}

// RemoveImagery takes an imagery overlay off the overlay stack.
func (e *Engine) RemoveImagery(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.ready(id)
	if err != nil {
		return err
	}
	if st.result.Caps.Remove == nil {
		return fmt.Errorf("%w: %s cannot be removed", ErrNotSupported, id)
	}
	st.result.Caps.Remove()
	e.scene.RequestRender()
	return nil
}

// ReportTile passes the feature properties of a loaded tile to a tileset
// layer, feeding its billboards.
func (e *Engine) ReportTile(id string, features []geojson.Properties) error {
	e.mu.Lock()
	st, err := e.ready(id)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	ts, ok := st.result.Object.(*scene.Tileset)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s is not a tileset", ErrNotSupported, id)
	}
	ts.LoadTile(features)
	e.scene.RequestRender()
	return nil
}

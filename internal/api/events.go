package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-viewer/internal/engine"
	"github.com/joeblew999/plat-viewer/internal/service"
)

// EmptyInput is a shared empty input struct for handlers with no parameters.
type EmptyInput struct{}

// SSE wraps a Datastar SSE generator.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// EventHandler streams viewer state changes to the browser client as
// Datastar signals.
type EventHandler struct {
	engine *engine.Engine
}

// NewEventHandler creates a new event handler.
func NewEventHandler(e *engine.Engine) *EventHandler {
	return &EventHandler{engine: e}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events,
		huma.OperationTags("events"),
	)
}

// state is the full client state sent on connect and after every change.
func (h *EventHandler) state() map[string]any {
	return map[string]any{
		"permalink": h.engine.Permalink(),
		"layers":    h.engine.Layers(),
	}
}

func (h *EventHandler) Events(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			bus := h.engine.Bus()
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)

			sse.Signals(h.state())
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					signals := h.state()
					if ev.Action == service.ActionFailed {
						signals["error"] = ev.Error
					}
					sse.Signals(signals)
					sse.DispatchCustomEvent("viewer-changed", map[string]any{
						"resource": ev.Resource,
						"action":   ev.Action,
						"id":       ev.ID,
					})
				}
			}
		},
	}, nil
}

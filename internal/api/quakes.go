package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/quake"
)

// QuakeHandler serves the seismic events behind point-cloud layers.
type QuakeHandler struct {
	source quake.EventSource
}

// NewQuakeHandler creates a new quake handler. source may be nil.
func NewQuakeHandler(source quake.EventSource) *QuakeHandler {
	return &QuakeHandler{source: source}
}

// RegisterRoutes registers quake routes with Huma.
func (h *QuakeHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/quakes", h.ListQuakes, huma.OperationTags("quakes"))
}

// QuakeEvent is one seismic event.
type QuakeEvent struct {
	Time      time.Time `json:"time" doc:"Event time (UTC)"`
	Lon       float64   `json:"lon" doc:"Longitude in degrees"`
	Lat       float64   `json:"lat" doc:"Latitude in degrees"`
	Depth     float64   `json:"depth" doc:"Depth in km"`
	Magnitude float64   `json:"magnitude" doc:"Magnitude"`
}

// QuakesInput filters the event list.
type QuakesInput struct {
	MinMagnitude float64 `query:"min_magnitude" doc:"Only events of at least this magnitude"`
}

// QuakesOutput is the response for listing events.
type QuakesOutput struct {
	Body struct {
		Events []QuakeEvent `json:"events" doc:"Events ordered by time"`
		Count  int          `json:"count" doc:"Number of events returned"`
	}
}

// ListQuakes returns the configured seismic events.
func (h *QuakeHandler) ListQuakes(ctx context.Context, input *QuakesInput) (*QuakesOutput, error) {
	if h.source == nil {
		return nil, huma.Error503ServiceUnavailable("Quake source not available")
	}
	events, err := h.source.Events(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load events", err)
	}

	out := &QuakesOutput{}
	out.Body.Events = []QuakeEvent{}
	for _, e := range events {
		if e.Magnitude < input.MinMagnitude {
			continue
		}
		out.Body.Events = append(out.Body.Events, QuakeEvent{
			Time: e.Time.UTC(), Lon: e.Lon, Lat: e.Lat, Depth: e.Depth, Magnitude: e.Magnitude,
		})
	}
	out.Body.Count = len(out.Body.Events)
	return out, nil
}

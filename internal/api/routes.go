// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/asset"
	"github.com/joeblew999/plat-viewer/internal/catalog"
	"github.com/joeblew999/plat-viewer/internal/engine"
	"github.com/joeblew999/plat-viewer/internal/factory"
	"github.com/joeblew999/plat-viewer/internal/permalink"
	"github.com/joeblew999/plat-viewer/internal/style"
)

// Services holds the dependencies of the API handlers.
type Services struct {
	Engine *engine.Engine
	Assets *asset.Dir // optional local asset directory
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"faults"`
}

type LayerOutput struct {
	Body engine.LayerView
}

type LayersOutput struct {
	Body []engine.NodeView
}

type VisibilityInput struct {
	IDInput
	Body struct {
		Visible bool `json:"visible" doc:"Show or hide the layer"`
	}
}

type OpacityInput struct {
	IDInput
	Body struct {
		Opacity float64 `json:"opacity" doc:"Opacity, clamped to [0,1]" example:"0.5"`
	}
}

type PositionInput struct {
	IDInput
	Body struct {
		Index int `json:"index" doc:"Position counted from the top of the overlay stack; 0 or out of range puts the layer on top" example:"1"`
	}
}

type TilesInput struct {
	IDInput
	Body struct {
		Features []map[string]any `json:"features" doc:"Feature properties of the loaded tile"`
	}
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type PermalinkBody struct {
	Query  string                 `json:"query" doc:"Permalink query string" example:"layers=faults&layers_transparency=0.4"`
	Camera permalink.Camera       `json:"camera" doc:"Camera pose carried by the permalink"`
	Layers []permalink.LayerParam `json:"layers,omitempty" doc:"Layer selection, absent when the permalink has none"`
	Errors []string               `json:"errors,omitempty" doc:"Layers that failed to activate"`
}

type PermalinkInput struct {
	Body struct {
		Query string `json:"query" doc:"Permalink query string to load" example:"lon=7.5&lat=46.9&elevation=3000&layers=faults"`
	}
}

type CameraInput struct {
	Body permalink.Camera
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every API route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
	if svc.Engine != nil {
		NewEventHandler(svc.Engine).RegisterRoutes(api)
	}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers layer state routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers/{id}/activate", h.ActivateLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/visibility", h.PutVisibility, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/opacity", h.PutOpacity, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/position", h.PutPosition, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}/position", h.DeletePosition, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers/{id}/tiles", h.PostTiles, huma.OperationTags("layers"))
}

// RegisterPermalink registers permalink and camera routes.
func (h *APIHandler) RegisterPermalink(api huma.API) {
	huma.Get(api, "/api/v1/permalink", h.GetPermalink, huma.OperationTags("permalink"))
	huma.Put(api, "/api/v1/permalink", h.PutPermalink, huma.OperationTags("permalink"))
	huma.Put(api, "/api/v1/camera", h.PutCamera, huma.OperationTags("permalink"))
}

// RegisterAssets registers the local asset listing.
func (h *APIHandler) RegisterAssets(api huma.API) {
	huma.Get(api, "/api/v1/assets", h.GetAssets, huma.OperationTags("assets"))
}

// toHTTP maps engine and factory errors to HTTP errors.
func toHTTP(err error) error {
	switch {
	case errors.Is(err, engine.ErrUnknownLayer):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, engine.ErrNotReady):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, engine.ErrNotSupported):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, style.ErrMalformedStyle):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, factory.ErrAssetResolution):
		return huma.Error502BadGateway(err.Error())
	case errors.Is(err, catalog.ErrUnknownLayerType):
		return huma.Error500InternalServerError(err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}

func (h *APIHandler) engine() (*engine.Engine, error) {
	if h.svc == nil || h.svc.Engine == nil {
		return nil, huma.Error503ServiceUnavailable("engine not available")
	}
	return h.svc.Engine, nil
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	return &LayersOutput{Body: e.Tree()}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	v, err := e.Layer(input.ID)
	if err != nil {
		return nil, toHTTP(err)
	}
	return &LayerOutput{Body: v}, nil
}

// ActivateLayer starts or joins the activation of a layer and waits for it.
func (h *APIHandler) ActivateLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	f, err := e.Activate(ctx, input.ID)
	if err != nil {
		return nil, toHTTP(err)
	}
	if _, err := f.Wait(ctx); err != nil {
		return nil, toHTTP(err)
	}
	return h.GetLayer(ctx, input)
}

func (h *APIHandler) PutVisibility(ctx context.Context, input *VisibilityInput) (*LayerOutput, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	if err := e.SetVisible(ctx, input.ID, input.Body.Visible); err != nil {
		return nil, toHTTP(err)
	}
	return h.GetLayer(ctx, &input.IDInput)
}

func (h *APIHandler) PutOpacity(ctx context.Context, input *OpacityInput) (*LayerOutput, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	if err := e.SetOpacity(input.ID, input.Body.Opacity); err != nil {
		return nil, toHTTP(err)
	}
	return h.GetLayer(ctx, &input.IDInput)
}

func (h *APIHandler) PutPosition(ctx context.Context, input *PositionInput) (*struct{ Body MessageBody }, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	if err := e.MoveImagery(input.ID, input.Body.Index); err != nil {
		return nil, toHTTP(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer positioned"}}, nil
}

func (h *APIHandler) DeletePosition(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	if err := e.RemoveImagery(input.ID); err != nil {
		return nil, toHTTP(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer removed from overlay stack"}}, nil
}

func (h *APIHandler) PostTiles(ctx context.Context, input *TilesInput) (*struct{ Body MessageBody }, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	features := make([]geojson.Properties, len(input.Body.Features))
	for i, f := range input.Body.Features {
		features[i] = geojson.Properties(f)
	}
	if err := e.ReportTile(input.ID, features); err != nil {
		return nil, toHTTP(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Tile reported"}}, nil
}

func (h *APIHandler) permalinkBody(e *engine.Engine) PermalinkBody {
	query := e.Permalink()
	st := permalink.Decode(permalink.ParseQuery(query))
	return PermalinkBody{Query: query, Camera: st.Camera, Layers: st.Layers}
}

func (h *APIHandler) GetPermalink(ctx context.Context, input *struct{}) (*struct{ Body PermalinkBody }, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	return &struct{ Body PermalinkBody }{Body: h.permalinkBody(e)}, nil
}

// PutPermalink loads a shared permalink. Layers that fail to activate are
// listed in the response; the rest of the state is applied regardless.
func (h *APIHandler) PutPermalink(ctx context.Context, input *PermalinkInput) (*struct{ Body PermalinkBody }, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	loadErr := e.LoadPermalink(ctx, input.Body.Query)
	body := h.permalinkBody(e)
	if loadErr != nil {
		if joined, ok := loadErr.(interface{ Unwrap() []error }); ok {
			for _, err := range joined.Unwrap() {
				body.Errors = append(body.Errors, err.Error())
			}
		} else {
			body.Errors = []string{loadErr.Error()}
		}
	}
	return &struct{ Body PermalinkBody }{Body: body}, nil
}

func (h *APIHandler) PutCamera(ctx context.Context, input *CameraInput) (*struct{ Body PermalinkBody }, error) {
	e, err := h.engine()
	if err != nil {
		return nil, err
	}
	e.SetCamera(input.Body)
	return &struct{ Body PermalinkBody }{Body: h.permalinkBody(e)}, nil
}

func (h *APIHandler) GetAssets(ctx context.Context, input *struct{}) (*struct{ Body []asset.File }, error) {
	if h.svc == nil || h.svc.Assets == nil {
		return &struct{ Body []asset.File }{Body: []asset.File{}}, nil
	}
	files, err := h.svc.Assets.List()
	if err != nil {
		return &struct{ Body []asset.File }{Body: []asset.File{}}, nil
	}
	return &struct{ Body []asset.File }{Body: files}, nil
}

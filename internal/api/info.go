package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir  string
	catalog  string
	quakesOK bool
}

func NewInfoHandler(dataDir, catalog string, quakesOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, catalog: catalog, quakesOK: quakesOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Catalog  string   `json:"catalog" doc:"Layer catalog file"`
	Quakes   bool     `json:"quakes" doc:"Whether a seismic event source is configured"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-viewer",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		Catalog:  h.catalog,
		Quakes:   h.quakesOK,
		Features: []string{"geojson", "3dtiles", "wmts", "earthquakes", "permalink"},
	}}, nil
}

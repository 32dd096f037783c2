package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geojson/internal/mapview"
)

type InfoHandler struct {
	view *mapview.MapView
	dbOK bool
}

func NewInfoHandler(view *mapview.MapView, dbOK bool) *InfoHandler {
	return &InfoHandler{view: view, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name        string   `json:"name" doc:"Service name"`
	Version     string   `json:"version" doc:"Service version"`
	DB          bool     `json:"db" doc:"Whether the DuckDB mirror is available"`
	DataSources []string `json:"dataSources" doc:"Data sources attached to the map view"`
	Channels    []string `json:"channels" doc:"Ingestion channels"`
	Accepts     []string `json:"accepts" doc:"Accepted file content types"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	sources := []string{}
	if h.view != nil {
		sources = h.view.DataSources()
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:        "plat-geojson",
		Version:     Version,
		DB:          h.dbOK,
		DataSources: sources,
		Channels:    []string{"file-picker", "drop", "manual"},
		Accepts:     []string{"application/geo+json", "application/json"},
	}}, nil
}

// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geojson/internal/geometry"
	"github.com/joeblew999/plat-geojson/internal/humastar"
	"github.com/joeblew999/plat-geojson/internal/mapview"
	"github.com/joeblew999/plat-geojson/internal/service"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the dependencies for API handlers.
type Services struct {
	Session  *service.Session
	View     *mapview.MapView
	Features *mapview.FeaturesDataSource
}

// Types

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterSession registers the session and ingestion routes.
func (h *APIHandler) RegisterSession(api huma.API) {
	huma.Get(api, "/api/v1/session", h.GetSession, huma.OperationTags("session"))
	huma.Get(api, "/api/v1/session/geojson", h.GetGeoJSON, huma.OperationTags("session"))
	huma.Put(api, "/api/v1/session/geojson", h.PutGeoJSON, huma.OperationTags("session"),
		humastar.BodyLimit(service.MaxDocumentBytes))
	huma.Post(api, "/api/v1/session/files", h.PostFile, huma.OperationTags("session"),
		humastar.BodyLimit(service.MaxDocumentBytes))
	huma.Get(api, "/api/v1/session/features", h.GetFeatures, huma.OperationTags("session"))
}

// RegisterStyles registers style catalog routes.
func (h *APIHandler) RegisterStyles(api huma.API) {
	huma.Get(api, "/api/v1/styles", h.GetStyles, huma.OperationTags("styles"))
	huma.Get(api, "/api/v1/styles/{kind}", h.GetStyle, huma.OperationTags("styles"))
}

// RegisterRender registers map view routes.
func (h *APIHandler) RegisterRender(api huma.API) {
	huma.Get(api, "/api/v1/render", h.GetRender, huma.OperationTags("render"))
	huma.Post(api, "/api/v1/view/resize", h.Resize, huma.OperationTags("render"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) session() (*service.Session, error) {
	if h.svc == nil || h.svc.Session == nil {
		return nil, huma.Error503ServiceUnavailable("session not available")
	}
	return h.svc.Session, nil
}

// ingestError maps a rejected ingestion to an HTTP status.
func ingestError(err error) error {
	var perr *geometry.ParseError
	var rerr *service.ReadError
	switch {
	case errors.Is(err, service.ErrUnsupportedFileType):
		return huma.Error415UnsupportedMediaType(err.Error())
	case errors.Is(err, service.ErrNoFile):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &perr):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.As(err, &rerr):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("ingestion did not complete", err)
	}
	return huma.Error500InternalServerError("ingestion failed", err)
}

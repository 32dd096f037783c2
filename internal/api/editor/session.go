// Package editor contains Datastar SSE handlers for the editor UI.
package editor

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geojson/internal/geometry"
	"github.com/joeblew999/plat-geojson/internal/humastar"
	"github.com/joeblew999/plat-geojson/internal/mapview"
	"github.com/joeblew999/plat-geojson/internal/service"
)

// Viewport is the map view the page resizes.
type Viewport interface {
	Resize(width, height int)
	Frame() mapview.Frame
}

// SessionHandler drives the three ingestion channels from the editor page.
type SessionHandler struct {
	humastar.Handler
	session *service.Session
	view    Viewport
}

// NewSessionHandler creates the editor handler. view may be nil.
func NewSessionHandler(session *service.Session, view Viewport, renderer *humastar.Renderer) *SessionHandler {
	return &SessionHandler{
		Handler: humastar.Handler{Renderer: renderer},
		session: session,
		view:    view,
	}
}

// RegisterRoutes registers the editor routes. Every POST carries the page's
// signals, geojson text included, so all of them take the document limit.
func (h *SessionHandler) RegisterRoutes(api huma.API) {
	limit := humastar.BodyLimit(service.MaxDocumentBytes)
	huma.Get(api, "/api/v1/editor/state", h.State, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/submit", h.Submit, huma.OperationTags("editor"), limit)
	huma.Post(api, "/api/v1/editor/upload", h.Upload, huma.OperationTags("editor"), limit)
	huma.Post(api, "/api/v1/editor/drop", h.Drop, huma.OperationTags("editor"), limit)
	huma.Post(api, "/api/v1/editor/drag", h.Drag, huma.OperationTags("editor"), limit)
	huma.Post(api, "/api/v1/editor/resize", h.Resize, huma.OperationTags("editor"), limit)
}

type FilesInput struct {
	RawBody multipart.Form
}

// State sends the full editor state: pane text, overlay, feature list.
func (h *SessionHandler) State(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		snap := h.session.Snapshot()
		sse.Signals(map[string]any{
			"geojson":     h.session.Editor().CurrentText(),
			"placeholder": service.Placeholder,
			"dropActive":  h.session.DropActive(),
			"revision":    snap.Revision,
		})
		h.patchCollection(sse, snap.Revision, snap.Collection)
	}), nil
}

// Submit ingests the "geojson" signal as manually typed text. On failure the
// pane is left as typed and only an error is shown.
func (h *SessionHandler) Submit(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	res := h.session.SubmitText(signals.String("geojson"))

	return h.Stream(func(sse humastar.SSE) {
		h.sendResult(sse, res)
	}), nil
}

// Upload reads the "file" part through the file-picker path.
func (h *SessionHandler) Upload(ctx context.Context, input *FilesInput) (*huma.StreamResponse, error) {
	files := input.RawBody.File["file"]
	if len(files) == 0 {
		return h.Stream(func(sse humastar.SSE) {
			sse.Error(service.ErrNoFile.Error())
		}), nil
	}
	done, err := h.session.FileSelected(service.MultipartFile(files[0]))
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			sse.Error(describe(err))
			return
		}
		h.await(ctx, sse, done)
	}), nil
}

// Drop reads the first of the "files" parts through the drop path. The
// overlay is hidden whether or not the drop carried a usable file.
func (h *SessionHandler) Drop(ctx context.Context, input *FilesInput) (*huma.StreamResponse, error) {
	headers := input.RawBody.File["files"]
	files := make([]service.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, service.MultipartFile(fh))
	}
	done, err := h.session.FilesDropped(files)
	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{"dropActive": false})
		if err != nil {
			sse.Error(describe(err))
			return
		}
		h.await(ctx, sse, done)
	}), nil
}

// Drag feeds the "event" signal to the drop indicator.
func (h *SessionHandler) Drag(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	ev, err := service.ParseDragEvent(signals.String("event"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	visible := h.session.Drag(ev)
	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{"dropActive": visible})
	}), nil
}

// Resize applies the map element size sent as "mapWidth" and "mapHeight".
func (h *SessionHandler) Resize(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	if h.view == nil {
		return nil, huma.Error503ServiceUnavailable("map view not available")
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("mapWidth") || !signals.Has("mapHeight") {
		return nil, huma.Error400BadRequest("mapWidth and mapHeight are required")
	}
	h.view.Resize(signals.Int("mapWidth"), signals.Int("mapHeight"))
	frame := h.view.Frame()
	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{"frame": frame.Revision})
	}), nil
}

func (h *SessionHandler) await(ctx context.Context, sse humastar.SSE, done <-chan service.Result) {
	select {
	case res := <-done:
		h.sendResult(sse, res)
	case <-ctx.Done():
	}
}

func (h *SessionHandler) sendResult(sse humastar.SSE, res service.Result) {
	if !res.OK() {
		sse.Error(describe(res.Err))
		return
	}
	sse.Signals(map[string]any{"geojson": res.Text, "revision": res.Revision})
	h.patchCollection(sse, res.Revision, res.Collection)
	sse.Success("Loaded " + plural(len(res.Collection.Features), "feature"))
}

func (h *SessionHandler) patchCollection(sse humastar.SSE, revision uint64, fc *geojson.FeatureCollection) {
	sse.Patch(renderStatus(h.Renderer, revision, fc), "#session-status")
	sse.Patch(renderFeatures(h.Renderer, fc), "#feature-list")
}

func renderStatus(r *humastar.Renderer, revision uint64, fc *geojson.FeatureCollection) string {
	html, err := r.Render("session-status", map[string]any{
		"Revision": revision,
		"Features": len(fc.Features),
		"Kinds":    geometry.Summary(fc),
	})
	if err != nil {
		return ""
	}
	return html
}

func renderFeatures(r *humastar.Renderer, fc *geojson.FeatureCollection) string {
	summaries := service.Summaries(fc)
	items := make([]any, len(summaries))
	for i, s := range summaries {
		items[i] = s
	}
	return humastar.RenderList(r, "feature-row", items, "No features", "Pick, drop or type a GeoJSON document")
}

// describe turns an ingestion error into a message for the notice area.
func describe(err error) string {
	var perr *geometry.ParseError
	switch {
	case errors.Is(err, service.ErrUnsupportedFileType):
		return "Only GeoJSON or JSON files can be loaded"
	case errors.As(err, &perr):
		return "Invalid GeoJSON: " + perr.Err.Error()
	}
	return err.Error()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geojson/internal/humastar"
	"github.com/joeblew999/plat-geojson/internal/service"
)

// EventHandler streams session events to the Datastar UI via SSE, so every
// open page reflects ingestions made through any channel.
type EventHandler struct {
	humastar.Handler
	session *service.Session
	bus     *service.EventBus
}

// NewEventHandler creates a new event handler.
func NewEventHandler(session *service.Session, bus *service.EventBus, renderer *humastar.Renderer) *EventHandler {
	return &EventHandler{
		Handler: humastar.Handler{Renderer: renderer},
		session: session,
		bus:     bus,
	}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/events", h.Events,
		huma.OperationTags("editor"),
	)
}

func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)

			// Initial sync; anything after this arrives through ch.
			snap := h.session.Snapshot()
			sse.Signals(map[string]any{"revision": snap.Revision, "dropActive": h.session.DropActive()})

			done := humaCtx.Context().Done()
			for {
				select {
				case <-done:
					return
				case ev := <-ch:
					h.forward(sse, ev)
				}
			}
		},
	}, nil
}

func (h *EventHandler) forward(sse humastar.SSE, ev service.Event) {
	switch {
	case ev.Resource == "session" && ev.Action == "ingested":
		snap := h.session.Snapshot()
		// An older event may arrive after a newer ingestion; always send the latest.
		sse.Signals(map[string]any{"geojson": snap.Text, "revision": snap.Revision})
		sse.Patch(renderStatus(h.Renderer, snap.Revision, snap.Collection), "#session-status")
		sse.Patch(renderFeatures(h.Renderer, snap.Collection), "#feature-list")
	case ev.Resource == "session" && ev.Action == "rejected":
		sse.Error(ev.Message)
	case ev.Resource == "indicator":
		sse.Signals(map[string]any{"dropActive": ev.Action == "shown"})
	case ev.Resource == "view":
		sse.Signals(map[string]any{"frame": ev.Revision})
	}
	sse.DispatchCustomEvent("session-changed", map[string]any{
		"resource": ev.Resource,
		"action":   ev.Action,
		"channel":  ev.Channel,
		"revision": ev.Revision,
	})
}

// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming → Datastar SSE protocol via [SSE] and [NewSSE]
//   - Signals: Datastar signal parsing via [Signals] and [SignalsInput]
//   - Rendering: embedded HTML fragments via [Renderer] and [RenderList]
//   - Hypermedia: RFC 8288 Link headers via [Links], [Actor] and [Pager]
//
// Usage:
//
//	type EditorHandler struct {
//	    humastar.Handler
//	    session *service.Session
//	}
//
//	func (h *EditorHandler) State(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Signals(map[string]any{"geojson": h.session.Editor().CurrentText()})
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// ---------------------------------------------------------------------------
// Handler: embeddable base for Datastar SSE handlers
// ---------------------------------------------------------------------------

// Handler is an embeddable base for Huma handlers that produce Datastar SSE
// responses.
type Handler struct {
	Renderer *Renderer
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// ---------------------------------------------------------------------------
// SSE: Huma to Datastar bridge
// ---------------------------------------------------------------------------

// SSE wraps a Datastar SSE generator with convenience methods for
// error/success signals and inner element patching.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Error sends an error signal to the UI and clears any success message.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg, "success": ""})
}

// Success sends a success signal to the UI and clears any error message.
func (s SSE) Success(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"success": msg, "error": ""})
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// ---------------------------------------------------------------------------
// Signals: Datastar signal parsing
// ---------------------------------------------------------------------------

// Signals provides typed access to Datastar signal values.
// Datastar sends all signals as a flat JSON object in the request body.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal value, or empty string if not found.
func (s Signals) String(key string) string {
	if v, ok := s[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// Int returns an int signal value, or 0 if not found.
func (s Signals) Int(key string) int {
	if v, ok := s[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

// Has returns true if the signal key exists (even if zero-valued).
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// ---------------------------------------------------------------------------
// Input types
// ---------------------------------------------------------------------------

// EmptyInput is a shared input struct for handlers with no parameters.
type EmptyInput struct{}

// SignalsInput is an input struct for handlers that receive Datastar signals.
type SignalsInput struct {
	RawBody []byte
}

// BodyLimit overrides Huma's default 1 MiB request body limit for an
// operation. Use it with huma.Get/Post/Put like huma.OperationTags.
func BodyLimit(n int64) func(*huma.Operation) {
	return func(o *huma.Operation) {
		o.MaxBodyBytes = n
	}
}

// MustParse parses signals or returns a Huma 400 error.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}

// ---------------------------------------------------------------------------
// Rendering helpers
// ---------------------------------------------------------------------------

// RenderList renders items with a named template, or an empty state if none.
func RenderList(r *Renderer, tmpl string, items []any, emptyTitle, emptyMsg string) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		r.RenderToBuffer(&buf, "empty-state", map[string]string{
			"Title": emptyTitle, "Message": emptyMsg,
		})
	} else {
		for _, item := range items {
			r.RenderToBuffer(&buf, tmpl, item)
		}
	}
	return buf.String()
}

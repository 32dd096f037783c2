package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geojson/internal/geometry"
	"github.com/joeblew999/plat-geojson/internal/humastar"
	"github.com/joeblew999/plat-geojson/internal/mapview"
	"github.com/joeblew999/plat-geojson/internal/style"
)

type KindInput struct {
	Kind string `path:"kind" enum:"point,line,polygon" doc:"Geometry kind" example:"polygon"`
}

type RulesOutput struct {
	Body []style.Rule
}

type RenderInput struct {
	humastar.PageInput
}

type ResizeInput struct {
	Body struct {
		Width  int `json:"width" minimum:"1" doc:"Viewport width in pixels" example:"1024"`
		Height int `json:"height" minimum:"1" doc:"Viewport height in pixels" example:"768"`
	}
}

func (h *APIHandler) GetStyles(ctx context.Context, input *struct{}) (*RulesOutput, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	return &RulesOutput{Body: s.Catalog().Rules()}, nil
}

// GetStyle returns the rules for one kind in render order.
func (h *APIHandler) GetStyle(ctx context.Context, input *KindInput) (*RulesOutput, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	rules := s.Catalog().Match(geometry.Kind(input.Kind))
	if len(rules) == 0 {
		return nil, huma.Error404NotFound("no style rules for " + input.Kind)
	}
	return &RulesOutput{Body: rules}, nil
}

func (h *APIHandler) GetRender(ctx context.Context, input *RenderInput) (*struct {
	Body humastar.PageBody[mapview.Instruction]
}, error) {
	if h.svc == nil || h.svc.Features == nil {
		return nil, huma.Error503ServiceUnavailable("map view not available")
	}
	page := humastar.Paginate(h.svc.Features.Instructions(), input.PageInput)
	return &struct {
		Body humastar.PageBody[mapview.Instruction]
	}{Body: page}, nil
}

// Resize sets the viewport and requests a redraw.
func (h *APIHandler) Resize(ctx context.Context, input *ResizeInput) (*struct{ Body mapview.Frame }, error) {
	if h.svc == nil || h.svc.View == nil {
		return nil, huma.Error503ServiceUnavailable("map view not available")
	}
	h.svc.View.Resize(input.Body.Width, input.Body.Height)
	return &struct{ Body mapview.Frame }{Body: h.svc.View.Frame()}, nil
}

package humastar

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderListEmptyState(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	html := RenderList(r, "feature-row", nil, "No features", "Load a file to begin")
	assert.Contains(t, html, "No features")
	assert.Contains(t, html, "Load a file to begin")
}

func TestRenderFeatureRow(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	row := map[string]any{
		"Index": 3, "ID": "a", "GeometryType": "Point",
		"Kinds": []string{"point"}, "Properties": 2,
	}
	html, err := r.Render("feature-row", row)
	require.NoError(t, err)
	assert.Contains(t, html, `id="feature-3"`)
	assert.Contains(t, html, "badge-point")
	assert.Contains(t, html, "2 properties")
}

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"geojson":"{}","dragging":true,"width":640}`))
	require.NoError(t, err)
	assert.Equal(t, "{}", s.String("geojson"))
	assert.Equal(t, 640, s.Int("width"))
	assert.False(t, s.Has("missing"))
	assert.Equal(t, "", s.String("width"))

	in := SignalsInput{RawBody: []byte("not json")}
	_, err = in.MustParse()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.GetStatus())
}

func TestPaginate(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	p := Paginate(items, PageInput{Offset: 2, Limit: 3})
	assert.Equal(t, []int{2, 3, 4}, p.Data)
	assert.Equal(t, 7, p.Total)
	assert.Equal(t, []string{
		`</x?offset=0&limit=3>; rel="first"`,
		`</x?offset=0&limit=3>; rel="prev"`,
		`</x?offset=5&limit=3>; rel="next"`,
		`</x?offset=6&limit=3>; rel="last"`,
	}, p.PaginationLinks("/x"))

	past := Paginate(items, PageInput{Offset: 20, Limit: 3})
	assert.Empty(t, past.Data)
	assert.NotNil(t, past.Data)

	empty := Paginate([]int(nil), PageInput{})
	assert.Equal(t, DefaultLimit, empty.Limit)
	assert.Contains(t, empty.PaginationLinks("/x"), `</x?offset=0&limit=50>; rel="last"`)
}

func TestActionLinkHeader(t *testing.T) {
	a := Action{Rel: "submit", Href: "/api/v1/session/geojson", Method: "PUT", Title: "Replace"}
	assert.Equal(t, `</api/v1/session/geojson>; rel="submit"; method="PUT"; title="Replace"`, a.LinkHeader())
}

type thingOutput struct {
	Body struct {
		Name string `json:"name"`
	}
}

type listOutput struct {
	Body PageBody[string]
}

func TestLinksDiscover(t *testing.T) {
	_, api := humatest.New(t)

	huma.Get(api, "/health", func(ctx context.Context, _ *EmptyInput) (*thingOutput, error) {
		return &thingOutput{}, nil
	})
	huma.Get(api, "/api/v1/things", func(ctx context.Context, in *struct{ PageInput }) (*listOutput, error) {
		return &listOutput{Body: Paginate([]string{"a", "b", "c"}, in.PageInput)}, nil
	})
	huma.Get(api, "/api/v1/things/{name}", func(ctx context.Context, in *struct {
		Name string `path:"name"`
	}) (*thingOutput, error) {
		out := &thingOutput{}
		out.Body.Name = in.Name
		return out, nil
	})
	huma.Register(api, huma.Operation{
		OperationID: "editor-state", Method: http.MethodGet, Path: "/api/v1/editor/state", Tags: []string{"editor"},
	}, func(ctx context.Context, _ *EmptyInput) (*thingOutput, error) {
		return &thingOutput{}, nil
	})

	links := &Links{}
	links.Discover(api)
	assert.Contains(t, links.For("/health"), `</api/v1/things>; rel="things"`)
	assert.Contains(t, links.For("/health"), `</openapi.json>; rel="service-desc"`)
	assert.Contains(t, links.For("/api/v1/things/{name}"), `</api/v1/things>; rel="collection"`)
	assert.Contains(t, links.For("/api/v1/things"), `</api/v1/things/{name}>; rel="item"`)
	assert.Empty(t, links.For("/api/v1/editor/state"))
	assert.NotContains(t, strings.Join(links.For("/health"), ","), "editor")

	var nilLinks *Links
	assert.Nil(t, nilLinks.For("/health"))
}

func TestLinkTransformer(t *testing.T) {
	links := &Links{}
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, links.Transformer())
	_, api := humatest.New(t, cfg)

	huma.Get(api, "/health", func(ctx context.Context, _ *EmptyInput) (*thingOutput, error) {
		return &thingOutput{}, nil
	})
	huma.Get(api, "/api/v1/things", func(ctx context.Context, in *struct{ PageInput }) (*listOutput, error) {
		return &listOutput{Body: Paginate([]string{"a", "b", "c"}, in.PageInput)}, nil
	})
	links.Discover(api)

	resp := api.Get("/api/v1/things?limit=1")
	require.Equal(t, http.StatusOK, resp.Code)
	header := strings.Join(resp.Result().Header.Values("Link"), ",")
	assert.Contains(t, header, `</health>; rel="up"`)
	assert.Contains(t, header, `</api/v1/things?offset=1&limit=1>; rel="next"`)
}

func TestBodyLimit(t *testing.T) {
	_, api := humatest.New(t)

	type rawInput struct {
		RawBody []byte
	}
	handler := func(ctx context.Context, in *rawInput) (*thingOutput, error) {
		return &thingOutput{}, nil
	}
	huma.Post(api, "/default", handler)
	huma.Post(api, "/large", handler, BodyLimit(4<<20))

	big := strings.Repeat("x", 3<<19)
	assert.Equal(t, http.StatusRequestEntityTooLarge, api.Post("/default", strings.NewReader(big)).Code)
	assert.Equal(t, http.StatusOK, api.Post("/large", strings.NewReader(big)).Code)
}

package api

import (
	"context"
	"mime/multipart"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geojson/internal/geometry"
	"github.com/joeblew999/plat-geojson/internal/humastar"
	"github.com/joeblew999/plat-geojson/internal/service"
)

// SessionBody describes the session state.
type SessionBody struct {
	ID         string                `json:"id" doc:"Session ID"`
	Revision   uint64                `json:"revision" doc:"Number of applied ingestions"`
	Features   int                   `json:"features" doc:"Features in the displayed collection"`
	Kinds      map[geometry.Kind]int `json:"kinds" doc:"Feature count per geometry kind"`
	DropActive bool                  `json:"dropActive" doc:"Whether the drop overlay is shown"`
	EditorText string                `json:"editorText" doc:"Current editor pane content"`
}

// Actions implements humastar.Actor.
func (b SessionBody) Actions() []humastar.Action {
	actions := []humastar.Action{
		{Rel: "submit", Href: "/api/v1/session/geojson", Method: "PUT", Title: "Replace the displayed collection"},
		{Rel: "upload", Href: "/api/v1/session/files", Method: "POST", Title: "Load a GeoJSON file"},
	}
	if b.Features > 0 {
		actions = append(actions, humastar.Action{
			Rel: "features", Href: "/api/v1/session/features", Method: "GET", Title: "List displayed features",
		})
	}
	return actions
}

// IngestBody is returned after a successful ingestion.
type IngestBody struct {
	Channel  service.Channel       `json:"channel" enum:"file-picker,drop,manual" doc:"Input channel"`
	Revision uint64                `json:"revision" doc:"Session revision after the ingestion"`
	Features int                   `json:"features" doc:"Features now displayed"`
	Kinds    map[geometry.Kind]int `json:"kinds" doc:"Feature count per geometry kind"`
}

func newIngestBody(r service.Result) IngestBody {
	return IngestBody{
		Channel:  r.Channel,
		Revision: r.Revision,
		Features: len(r.Collection.Features),
		Kinds:    geometry.Summary(r.Collection),
	}
}

type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Revision    string `header:"X-Session-Revision" doc:"Revision of the returned collection"`
	Body        []byte
}

type GeoJSONInput struct {
	RawBody []byte `contentType:"application/geo+json" doc:"GeoJSON document"`
}

type FileInput struct {
	RawBody multipart.Form
}

type FeaturesInput struct {
	humastar.PageInput
}

func (h *APIHandler) GetSession(ctx context.Context, input *struct{}) (*struct{ Body SessionBody }, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	snap := s.Snapshot()
	return &struct{ Body SessionBody }{Body: SessionBody{
		ID:         snap.ID,
		Revision:   snap.Revision,
		Features:   len(snap.Collection.Features),
		Kinds:      geometry.Summary(snap.Collection),
		DropActive: s.DropActive(),
		EditorText: s.Editor().CurrentText(),
	}}, nil
}

func (h *APIHandler) GetGeoJSON(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	snap := s.Snapshot()
	data, err := snap.Collection.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding collection", err)
	}
	return &GeoJSONOutput{
		ContentType: "application/geo+json",
		Revision:    strconv.FormatUint(snap.Revision, 10),
		Body:        data,
	}, nil
}

// PutGeoJSON treats the body as text typed into the editor and submits it.
func (h *APIHandler) PutGeoJSON(ctx context.Context, input *GeoJSONInput) (*struct{ Body IngestBody }, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	res := s.SubmitText(string(input.RawBody))
	if !res.OK() {
		return nil, ingestError(res.Err)
	}
	return &struct{ Body IngestBody }{Body: newIngestBody(res)}, nil
}

// PostFile reads the multipart "file" part through the file-picker path.
func (h *APIHandler) PostFile(ctx context.Context, input *FileInput) (*struct{ Body IngestBody }, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	files := input.RawBody.File["file"]
	if len(files) == 0 {
		return nil, ingestError(service.ErrNoFile)
	}

	done, err := s.FileSelected(service.MultipartFile(files[0]))
	if err != nil {
		return nil, ingestError(err)
	}
	select {
	case res := <-done:
		if !res.OK() {
			return nil, ingestError(res.Err)
		}
		return &struct{ Body IngestBody }{Body: newIngestBody(res)}, nil
	case <-ctx.Done():
		return nil, ingestError(ctx.Err())
	}
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *FeaturesInput) (*struct {
	Body humastar.PageBody[service.FeatureSummary]
}, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	page := humastar.Paginate(service.Summaries(s.Current()), input.PageInput)
	return &struct {
		Body humastar.PageBody[service.FeatureSummary]
	}{Body: page}, nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-geojson/internal/db"
	"github.com/joeblew999/plat-geojson/internal/geometry"
	"github.com/joeblew999/plat-geojson/internal/mapview"
	"github.com/joeblew999/plat-geojson/internal/service"
	"github.com/joeblew999/plat-geojson/internal/style"
)

const pointDoc = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[13.4,52.5]},"properties":{"name":"Berlin"}}]}`

const mixedDoc = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}},
 {"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}},
 {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{}}
]}`

func newTestAPI(t *testing.T) (humatest.TestAPI, *Services) {
	t.Helper()
	view := mapview.New(800, 600, nil)
	features := mapview.NewFeaturesDataSource("geojson")
	require.NoError(t, view.AddDataSource(context.Background(), features))
	svc := &Services{
		Session:  service.NewSession(style.Default(), features, view),
		View:     view,
		Features: features,
	}
	_, api := humatest.New(t)
	huma.AutoRegister(api, NewAPIHandler(svc))
	NewInfoHandler(view, false).RegisterRoutes(api)
	return api, svc
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", decode[HealthBody](t, resp.Body.Bytes()).Status)
}

func TestInfo(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)
	info := decode[InfoBody](t, resp.Body.Bytes())
	assert.Equal(t, []string{"geojson"}, info.DataSources)
	assert.Contains(t, info.Accepts, "application/geo+json")
}

func TestPutGeoJSON(t *testing.T) {
	api, svc := newTestAPI(t)

	resp := api.Put("/api/v1/session/geojson", "Content-Type: application/geo+json", strings.NewReader(pointDoc))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[IngestBody](t, resp.Body.Bytes())
	assert.Equal(t, service.ChannelManual, body.Channel)
	assert.Equal(t, uint64(1), body.Revision)
	assert.Equal(t, map[geometry.Kind]int{geometry.KindPoint: 1}, body.Kinds)

	assert.Equal(t, pointDoc, svc.Session.Editor().CurrentText())
	assert.Len(t, svc.Features.Geometry().Features, 1)

	resp = api.Get("/api/v1/session/geojson")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/geo+json", resp.Header().Get("Content-Type"))
	assert.Equal(t, "1", resp.Header().Get("X-Session-Revision"))
	assert.Contains(t, resp.Body.String(), `"Berlin"`)
}

func TestPutGeoJSONInvalid(t *testing.T) {
	api, svc := newTestAPI(t)

	resp := api.Put("/api/v1/session/geojson", "Content-Type: application/geo+json", strings.NewReader(pointDoc))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Put("/api/v1/session/geojson", "Content-Type: application/geo+json", strings.NewReader(`{"type":`))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	// The display keeps the previous document; the editor keeps what was typed.
	snap := svc.Session.Snapshot()
	assert.Equal(t, uint64(1), snap.Revision)
	assert.Equal(t, pointDoc, snap.Text)
	assert.Equal(t, `{"type":`, svc.Session.Editor().CurrentText())
}

// largeDoc builds a point collection of at least size bytes.
func largeDoc(size int) (string, int) {
	var b strings.Builder
	b.WriteString(`{"type":"FeatureCollection","features":[`)
	n := 0
	for b.Len() < size {
		if n > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"type":"Feature","geometry":{"type":"Point","coordinates":[%d.5,%d.25]},"properties":{"i":%d}}`, n%180, n%90, n)
		n++
	}
	b.WriteString(`]}`)
	return b.String(), n
}

func TestPutGeoJSONLargeDocument(t *testing.T) {
	api, svc := newTestAPI(t)

	doc, n := largeDoc(3 << 20)
	resp := api.Put("/api/v1/session/geojson", "Content-Type: application/geo+json", strings.NewReader(doc))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, n, decode[IngestBody](t, resp.Body.Bytes()).Features)
	assert.Len(t, svc.Features.Geometry().Features, n)
}

func multipartBody(t *testing.T, filename, contentType, data string) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return "Content-Type: " + w.FormDataContentType(), &buf
}

func TestPostFile(t *testing.T) {
	api, svc := newTestAPI(t)

	header, body := multipartBody(t, "mixed.geojson", "application/geo+json", mixedDoc)
	resp := api.Post("/api/v1/session/files", header, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	out := decode[IngestBody](t, resp.Body.Bytes())
	assert.Equal(t, service.ChannelFilePicker, out.Channel)
	assert.Equal(t, 3, out.Features)
	assert.Equal(t, mixedDoc, svc.Session.Editor().CurrentText())
}

func TestPostFileUnsupportedType(t *testing.T) {
	api, svc := newTestAPI(t)

	header, body := multipartBody(t, "notes.txt", "text/plain", pointDoc)
	resp := api.Post("/api/v1/session/files", header, body)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Code)
	assert.Equal(t, uint64(0), svc.Session.Snapshot().Revision)
}

func TestPostFileInvalidContent(t *testing.T) {
	api, _ := newTestAPI(t)

	header, body := multipartBody(t, "broken.json", "application/json", "not json")
	resp := api.Post("/api/v1/session/files", header, body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestGetSession(t *testing.T) {
	api, svc := newTestAPI(t)
	require.True(t, svc.Session.Ingest(service.ChannelManual, []byte(mixedDoc)).OK())

	resp := api.Get("/api/v1/session")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[SessionBody](t, resp.Body.Bytes())
	assert.Equal(t, svc.Session.ID(), body.ID)
	assert.Equal(t, 3, body.Features)
	assert.False(t, body.DropActive)
	assert.Equal(t, mixedDoc, body.EditorText)
}

func TestGetFeaturesPaginated(t *testing.T) {
	api, svc := newTestAPI(t)
	require.True(t, svc.Session.Ingest(service.ChannelManual, []byte(mixedDoc)).OK())

	resp := api.Get("/api/v1/session/features?offset=1&limit=1")
	require.Equal(t, http.StatusOK, resp.Code)

	var page struct {
		Total int                      `json:"total"`
		Data  []service.FeatureSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "LineString", page.Data[0].GeometryType)
	assert.Equal(t, []geometry.Kind{geometry.KindLine}, page.Data[0].Kinds)
}

func TestStyles(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/styles")
	require.Equal(t, http.StatusOK, resp.Code)
	var rules []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rules))
	assert.Len(t, rules, 4)

	resp = api.Get("/api/v1/styles/polygon")
	require.Equal(t, http.StatusOK, resp.Code)
	polygon := decode[[]map[string]any](t, resp.Body.Bytes())
	require.Len(t, polygon, 2)
	assert.Equal(t, "fill", polygon[0]["technique"])
	assert.Equal(t, "solid-line", polygon[1]["technique"])
	assert.Equal(t, "$geometryType == 'polygon'", polygon[0]["when"])

	resp = api.Get("/api/v1/styles/circle")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestRenderInstructions(t *testing.T) {
	api, svc := newTestAPI(t)
	require.True(t, svc.Session.Ingest(service.ChannelManual, []byte(mixedDoc)).OK())

	resp := api.Get("/api/v1/render")
	require.Equal(t, http.StatusOK, resp.Code)

	var page struct {
		Total int                   `json:"total"`
		Data  []mapview.Instruction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	// point: circles; line: solid-line; polygon: fill + solid-line.
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, style.TechniqueCircles, page.Data[0].Technique)
}

func TestResize(t *testing.T) {
	api, svc := newTestAPI(t)
	before := svc.View.Frame().Revision

	resp := api.Post("/api/v1/view/resize", map[string]any{"width": 1024, "height": 768})
	require.Equal(t, http.StatusOK, resp.Code)
	frame := decode[mapview.Frame](t, resp.Body.Bytes())
	assert.Equal(t, 1024, frame.Width)
	assert.Equal(t, 768, frame.Height)
	assert.Greater(t, frame.Revision, before)

	resp = api.Post("/api/v1/view/resize", map[string]any{"width": 0, "height": 768})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestQueryMirror(t *testing.T) {
	conn, err := db.Open(db.Config{})
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	index, err := db.NewFeatureIndex(ctx, conn)
	require.NoError(t, err)
	fc, err := geometry.Decode([]byte(mixedDoc))
	require.NoError(t, err)
	require.NoError(t, index.Replace(ctx, 1, fc))

	_, api := humatest.New(t)
	NewDBHandler(conn).RegisterRoutes(api)

	resp := api.Get("/api/v1/tables")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, decode[TablesBody](t, resp.Body.Bytes()).Tables, "features")

	resp = api.Post("/api/v1/query", map[string]any{"query": "SELECT kinds FROM features ORDER BY idx"})
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[QueryBody](t, resp.Body.Bytes())
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "point", body.Rows[0]["kinds"])

	resp = api.Post("/api/v1/query", map[string]any{"query": "SELECT * FROM missing"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestQueryCannotChangeMirror(t *testing.T) {
	conn, err := db.Open(db.Config{})
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	index, err := db.NewFeatureIndex(ctx, conn)
	require.NoError(t, err)
	fc, err := geometry.Decode([]byte(mixedDoc))
	require.NoError(t, err)
	require.NoError(t, index.Replace(ctx, 1, fc))

	_, api := humatest.New(t)
	NewDBHandler(conn).RegisterRoutes(api)

	for _, q := range []string{
		"DROP TABLE features",
		"DELETE FROM features",
		"SELECT 1; DROP TABLE features",
		"SET enable_external_access = true",
		"COPY features TO 'out.csv'",
	} {
		resp := api.Post("/api/v1/query", map[string]any{"query": q})
		assert.Equal(t, http.StatusForbidden, resp.Code, q)
	}

	// The server's disk is not readable through DuckDB file functions.
	resp := api.Post("/api/v1/query", map[string]any{"query": "SELECT * FROM read_text('/etc/hostname')"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	n, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	single, err := geometry.Decode([]byte(pointDoc))
	require.NoError(t, err)
	require.NoError(t, index.Replace(ctx, 2, single))
	resp = api.Post("/api/v1/query", map[string]any{"query": "SELECT count(*) AS n FROM features"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, decode[QueryBody](t, resp.Body.Bytes()).Rows[0]["n"])
}

func TestDBUnavailable(t *testing.T) {
	_, api := humatest.New(t)
	NewDBHandler(nil).RegisterRoutes(api)

	assert.Equal(t, http.StatusServiceUnavailable, api.Get("/api/v1/tables").Code)
}

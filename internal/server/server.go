// Package server wires the session, the map view, the DuckDB mirror and the
// HTTP routes into one handler.
package server

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-geojson/internal/api"
	"github.com/joeblew999/plat-geojson/internal/api/editor"
	"github.com/joeblew999/plat-geojson/internal/db"
	"github.com/joeblew999/plat-geojson/internal/humastar"
	"github.com/joeblew999/plat-geojson/internal/mapview"
	"github.com/joeblew999/plat-geojson/internal/metrics"
	"github.com/joeblew999/plat-geojson/internal/service"
	"github.com/joeblew999/plat-geojson/internal/style"
)

//go:embed web/editor.html
var editorPage []byte

// EditorWidth is the width taken by the editor pane; the map gets the rest.
const EditorWidth = 550

// Config holds the server configuration.
type Config struct {
	Host string
	Port string

	// Width and Height are the initial map viewport.
	Width  int
	Height int

	// Styles is the rule set handed to the map; nil means style.Default().
	Styles *style.Catalog

	// DisableDB skips the DuckDB mirror.
	DisableDB    bool
	DBExtensions []string
}

// Server is the GeoJSON editor HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	index    *db.FeatureIndex
	bus      *service.EventBus
	metrics  *metrics.Metrics
	services *api.Services
	renderer *humastar.Renderer
}

// New wires the session, the map view and every route.
func New(cfg Config) (*Server, error) {
	if cfg.Width <= 0 {
		cfg.Width = 1280 - EditorWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = 800
	}

	s := &Server{
		config:  cfg,
		mux:     http.NewServeMux(),
		links:   &humastar.Links{},
		bus:     service.NewEventBus(),
		metrics: metrics.New(),
	}

	renderer, err := humastar.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("parsing fragments: %w", err)
	}
	s.renderer = renderer

	if !cfg.DisableDB {
		s.openDB(cfg.DBExtensions)
	}

	view := mapview.New(cfg.Width, cfg.Height, func(f mapview.Frame) {
		s.bus.Publish(service.Event{Resource: "view", Action: "redraw", Revision: f.Revision})
	})
	features := mapview.NewFeaturesDataSource("geojson")
	// The style set is only handed over once the source is attached.
	if err := view.AddDataSource(context.Background(), features); err != nil {
		return nil, err
	}

	session := service.NewSession(cfg.Styles, features, view,
		service.WithBus(s.bus),
		service.WithMetrics(s.metrics),
		service.WithObserver(s.mirror),
	)
	s.services = &api.Services{Session: session, View: view, Features: features}

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-geojson API", api.Version)
	humaConfig.Info.Description = "GeoJSON ingestion pipeline: load documents by file, drop or text and display them styled."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, s.links.Transformer())
	s.humaAPI = humago.New(s.mux, humaConfig)

	s.routes()
	s.handler = RequestLogger(s.mux)

	log.Info().
		Str("session", session.ID()).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Bool("db", s.db != nil).
		Msg("Server initialized")
	return s, nil
}

func (s *Server) openDB(extensions []string) {
	conn, err := db.Open(db.Config{Extensions: extensions})
	if err != nil {
		log.Warn().Err(err).Msg("DuckDB unavailable, SQL endpoints disabled")
		return
	}
	index, err := db.NewFeatureIndex(context.Background(), conn)
	if err != nil {
		log.Warn().Err(err).Msg("DuckDB unavailable, SQL endpoints disabled")
		conn.Close()
		return
	}
	s.db, s.index = conn, index
}

// mirror runs inside the session's apply step.
func (s *Server) mirror(snap service.Snapshot) {
	if s.index == nil {
		return
	}
	if err := s.index.Replace(context.Background(), snap.Revision, snap.Collection); err != nil {
		log.Error().Err(err).Uint64("revision", snap.Revision).Msg("Failed to mirror collection")
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Session returns the editing session.
func (s *Server) Session() *service.Session {
	return s.services.Session
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close waits for pending file reads and closes the database.
func (s *Server) Close() error {
	err := s.services.Session.Wait()
	if s.db != nil {
		if cerr := s.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Server) routes() {
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.services.View, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	editor.NewSessionHandler(s.services.Session, s.services.View, s.renderer).RegisterRoutes(s.humaAPI)
	editor.NewEventHandler(s.services.Session, s.bus, s.renderer).RegisterRoutes(s.humaAPI)

	// Links are derived from the finished OpenAPI document.
	s.links.Discover(s.humaAPI)

	s.mux.Handle("/metrics", s.metrics.Handler())
	s.mux.HandleFunc("/editor", s.handleEditor)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.For(humastar.EntryPoint) {
		w.Header().Add("Link", link)
	}
	w.Header().Add("Link", `</editor>; rel="alternate"; type="text/html"`)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-geojson",
		"status":  "running",
		"session": s.services.Session.ID(),
	})
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(editorPage)
}

package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-geojson/internal/geometry"
	"github.com/joeblew999/plat-geojson/internal/mapview"
	"github.com/joeblew999/plat-geojson/internal/metrics"
	"github.com/joeblew999/plat-geojson/internal/style"
)

// Display is the geometry-display collaborator. It receives the style set
// once, at session start, and every successfully ingested collection.
type Display interface {
	geometry.Sink
	SetStyleSet(c *style.Catalog)
}

// RenderSync requests a redraw of the map surface after the source changed.
type RenderSync struct {
	renderer mapview.Renderer
	metrics  *metrics.Metrics
}

// Trigger asks the renderer to redraw. It does not wait for the redraw.
func (r *RenderSync) Trigger() {
	if r.renderer == nil {
		return
	}
	r.renderer.Update()
	if r.metrics != nil {
		r.metrics.Redraws.Inc()
	}
}

// Option configures a Session.
type Option func(*Session)

// WithEditor replaces the default in-memory editor pane.
func WithEditor(e EditorSurface) Option {
	return func(s *Session) { s.editor = e }
}

// WithBus publishes session events on b.
func WithBus(b *EventBus) Option {
	return func(s *Session) { s.bus = b }
}

// WithMetrics records ingestion metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger sets the base logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithObserver registers fn to run inside every apply step, after the
// source, editor and redraw have been updated.
func WithObserver(fn func(Snapshot)) Option {
	return func(s *Session) { s.observers = append(s.observers, fn) }
}

// Session owns the state of one editing session: the displayed collection,
// the editor pane, the style catalog and the drop indicator. All input
// channels funnel into Ingest.
type Session struct {
	id        string
	catalog   *style.Catalog
	source    *geometry.Source
	editor    EditorSurface
	indicator DropIndicator
	render    RenderSync
	bus       *EventBus
	metrics   *metrics.Metrics
	log       zerolog.Logger
	observers []func(Snapshot)

	// mu serializes the apply step and guards revision/text.
	mu       sync.Mutex
	revision uint64
	text     string

	// submitMu keeps each manual edit paired with its own ingest.
	submitMu sync.Mutex

	reads errgroup.Group
}

// NewSession creates an empty session and hands the catalog to display.
// display and renderer may be nil for headless use.
func NewSession(catalog *style.Catalog, display Display, renderer mapview.Renderer, opts ...Option) *Session {
	if catalog == nil {
		catalog = style.Default()
	}
	s := &Session{
		id:      uuid.NewString(),
		catalog: catalog,
		editor:  NewTextPane(),
		log:     log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.id).Logger()
	s.render = RenderSync{renderer: renderer, metrics: s.metrics}

	var sink geometry.Sink
	if display != nil {
		display.SetStyleSet(catalog)
		sink = display
	}
	s.source = geometry.NewSource(sink)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Catalog returns the session's style catalog.
func (s *Session) Catalog() *style.Catalog { return s.catalog }

// Editor returns the editor pane.
func (s *Session) Editor() EditorSurface { return s.editor }

// Current returns the displayed collection.
func (s *Session) Current() *geojson.FeatureCollection { return s.source.Current() }

// Snapshot returns the displayed collection and editor text of the same revision.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{ID: s.id, Revision: s.revision, Collection: s.source.Current(), Text: s.text}
}

// DropActive reports whether the drop overlay is shown.
func (s *Session) DropActive() bool { return s.indicator.Visible() }

// Ingest decodes text and, on success, replaces the displayed collection,
// reflects text into the editor and requests a redraw, all in one step.
// On failure nothing is changed.
func (s *Session) Ingest(ch Channel, text []byte) Result {
	fc, err := geometry.Decode(text)
	if err != nil {
		return s.fail(ch, err)
	}

	s.mu.Lock()
	s.source.Replace(fc)
	s.editor.Reflect(string(text))
	s.text = string(text)
	s.revision++
	snap := Snapshot{ID: s.id, Revision: s.revision, Collection: fc, Text: s.text}
	s.render.Trigger()
	for _, fn := range s.observers {
		fn(snap)
	}
	if s.metrics != nil {
		s.metrics.Features.Set(float64(len(fc.Features)))
	}
	s.mu.Unlock()

	s.log.Info().
		Str("channel", string(ch)).
		Uint64("revision", snap.Revision).
		Int("features", len(fc.Features)).
		Int("bytes", len(text)).
		Msg("Document ingested")
	if s.metrics != nil {
		s.metrics.Ingest.WithLabelValues(string(ch), "ok").Inc()
		s.metrics.Bytes.Observe(float64(len(text)))
	}
	s.publish(Event{Resource: "session", Action: "ingested", Channel: ch, Revision: snap.Revision})

	return Result{Channel: ch, Collection: fc, Text: snap.Text, Revision: snap.Revision}
}

// Submit ingests the editor's current text.
func (s *Session) Submit() Result {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	return s.Ingest(ChannelManual, []byte(s.editor.CurrentText()))
}

// SubmitText records text as typed into the editor and ingests exactly that
// text. Concurrent callers each get the result of their own document.
func (s *Session) SubmitText(text string) Result {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.editor.Edit(text)
	return s.Ingest(ChannelManual, []byte(text))
}

// Edit records text typed into the editor without ingesting it.
func (s *Session) Edit(text string) {
	s.editor.Edit(text)
}

// FileSelected starts reading a picked file. Unsupported content types are
// rejected with ErrUnsupportedFileType before the file is opened. The
// returned channel delivers the Result once the read has been applied.
func (s *Session) FileSelected(f File) (<-chan Result, error) {
	return s.readAsync(ChannelFilePicker, f)
}

// FilesDropped hides the drop indicator and reads the first dropped file
// like FileSelected.
func (s *Session) FilesDropped(files []File) (<-chan Result, error) {
	s.Drag(DragDrop)
	if len(files) == 0 {
		return nil, ErrNoFile
	}
	return s.readAsync(ChannelDrop, files[0])
}

// Drag feeds a drag-and-drop event to the drop indicator.
func (s *Session) Drag(ev DragEvent) bool {
	visible, changed := s.indicator.Handle(ev)
	if changed {
		action := "hidden"
		if visible {
			action = "shown"
		}
		s.publish(Event{Resource: "indicator", Action: action})
	}
	return visible
}

// Wait blocks until every file read started so far has been applied.
func (s *Session) Wait() error {
	return s.reads.Wait()
}

func (s *Session) readAsync(ch Channel, f File) (<-chan Result, error) {
	if !Supported(f.ContentType()) {
		err := fmt.Errorf("%w: %q (%s)", ErrUnsupportedFileType, f.ContentType(), f.Name())
		s.fail(ch, err)
		return nil, err
	}

	done := make(chan Result, 1)
	s.reads.Go(func() error {
		defer close(done)
		text, err := readFile(f)
		if err != nil {
			done <- s.fail(ch, &ReadError{Name: f.Name(), Err: err})
			return nil
		}
		done <- s.Ingest(ch, text)
		return nil
	})
	return done, nil
}

func (s *Session) fail(ch Channel, err error) Result {
	result := "parse_error"
	var rerr *ReadError
	switch {
	case errors.Is(err, ErrUnsupportedFileType):
		result = "unsupported"
	case errors.As(err, &rerr):
		result = "read_error"
	}

	s.log.Warn().Err(err).Str("channel", string(ch)).Str("result", result).Msg("Ingestion rejected")
	if s.metrics != nil {
		s.metrics.Ingest.WithLabelValues(string(ch), result).Inc()
	}
	s.publish(Event{Resource: "session", Action: "rejected", Channel: ch, Message: err.Error()})
	return Result{Channel: ch, Err: err}
}

func (s *Session) publish(e Event) {
	if s.bus == nil {
		return
	}
	e.ID = s.id
	s.bus.Publish(e)
}

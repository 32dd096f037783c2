// Package mapview is the server-side stand-in for the map rendering surface.
// It keeps the viewport, the attached data sources and a redraw revision,
// and announces each redraw to subscribers; drawing itself happens in the
// browser.
package mapview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Renderer is the redraw surface the ingestion pipeline talks to.
type Renderer interface {
	Update()
	Resize(width, height int)
}

// DataSource is anything that can be attached to a MapView.
type DataSource interface {
	Name() string
	attach(v *MapView)
}

// Frame describes one redraw request.
type Frame struct {
	Revision uint64 `json:"revision" doc:"Monotonic redraw counter"`
	Width    int    `json:"width" doc:"Viewport width in pixels"`
	Height   int    `json:"height" doc:"Viewport height in pixels"`
}

// ErrDuplicateSource is returned when a data source name is attached twice.
var ErrDuplicateSource = errors.New("mapview: data source already attached")

// MapView tracks viewport size and redraw requests.
type MapView struct {
	mu       sync.Mutex
	width    int
	height   int
	sources  []DataSource
	revision atomic.Uint64
	onFrame  func(Frame)
}

// New creates a view with the given viewport. onFrame, if non-nil, is
// called after every Update and must not block.
func New(width, height int, onFrame func(Frame)) *MapView {
	return &MapView{width: width, height: height, onFrame: onFrame}
}

// AddDataSource attaches ds to the view. The call returns once the source
// is ready to receive styles and geometry.
func (v *MapView) AddDataSource(ctx context.Context, ds DataSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	for _, existing := range v.sources {
		if existing.Name() == ds.Name() {
			v.mu.Unlock()
			return ErrDuplicateSource
		}
	}
	v.sources = append(v.sources, ds)
	v.mu.Unlock()

	ds.attach(v)
	return nil
}

// DataSources returns the names of the attached sources.
func (v *MapView) DataSources() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	names := make([]string, len(v.sources))
	for i, ds := range v.sources {
		names[i] = ds.Name()
	}
	return names
}

// Update requests a redraw.
func (v *MapView) Update() {
	rev := v.revision.Add(1)
	if v.onFrame == nil {
		return
	}
	v.mu.Lock()
	f := Frame{Revision: rev, Width: v.width, Height: v.height}
	v.mu.Unlock()
	v.onFrame(f)
}

// Resize changes the viewport and requests a redraw. Non-positive sizes
// are ignored.
func (v *MapView) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.mu.Lock()
	v.width, v.height = width, height
	v.mu.Unlock()
	v.Update()
}

// Frame returns the state of the latest redraw.
func (v *MapView) Frame() Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Frame{Revision: v.revision.Load(), Width: v.width, Height: v.height}
}

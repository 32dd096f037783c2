package service

import "sync"

// Placeholder is shown by an empty editor.
const Placeholder = `{
    type: "FeatureCollection",
    features:[

    ]
}`

// EditorSurface is the text pane next to the map.
type EditorSurface interface {
	// Reflect displays text without triggering ingestion.
	Reflect(text string)
	// Edit records text typed by the user.
	Edit(text string)
	// CurrentText is what the user sees, including unsubmitted edits.
	CurrentText() string
}

// TextPane is an in-memory EditorSurface.
type TextPane struct {
	mu        sync.RWMutex
	text      string
	reflected string
}

// NewTextPane creates an empty pane.
func NewTextPane() *TextPane {
	return &TextPane{}
}

func (p *TextPane) Reflect(text string) {
	p.mu.Lock()
	p.text = text
	p.reflected = text
	p.mu.Unlock()
}

func (p *TextPane) Edit(text string) {
	p.mu.Lock()
	p.text = text
	p.mu.Unlock()
}

func (p *TextPane) CurrentText() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

// Reflected returns the last text set by Reflect.
func (p *TextPane) Reflected() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reflected
}

// Dirty reports whether the pane holds edits that were not ingested.
func (p *TextPane) Dirty() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text != p.reflected
}

package humastar

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"sync"
)

//go:embed fragments/*.html
var fragments embed.FS

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// NewRenderer parses the built-in fragments.
func NewRenderer() (*Renderer, error) {
	return NewRendererFS(fragments, "fragments/*.html")
}

// NewRendererFS parses fragments matching pattern in fsys.
func NewRendererFS(fsys fs.FS, pattern string) (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(fsys, pattern)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

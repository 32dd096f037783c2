package service

import (
	"fmt"
	"sync"
)

// DragEvent is a browser drag-and-drop event name.
type DragEvent string

const (
	DragEnter DragEvent = "dragenter"
	DragOver  DragEvent = "dragover"
	DragLeave DragEvent = "dragleave"
	DragExit  DragEvent = "dragexit"
	DragEnd   DragEvent = "dragend"
	DragDrop  DragEvent = "drop"
)

// ParseDragEvent validates an event name.
func ParseDragEvent(s string) (DragEvent, error) {
	switch ev := DragEvent(s); ev {
	case DragEnter, DragOver, DragLeave, DragExit, DragEnd, DragDrop:
		return ev, nil
	}
	return "", fmt.Errorf("unknown drag event %q", s)
}

// DropIndicator is the "drop target active" overlay state:
// hidden -> (dragenter|dragover) -> visible -> (dragleave|dragexit|dragend|drop) -> hidden.
// It is purely presentational.
type DropIndicator struct {
	mu      sync.Mutex
	visible bool
}

// Handle applies ev and returns the resulting visibility and whether it changed.
// Repeated events are idempotent; unknown events change nothing.
func (d *DropIndicator) Handle(ev DragEvent) (visible, changed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.visible
	switch ev {
	case DragEnter, DragOver:
		d.visible = true
	case DragLeave, DragExit, DragEnd, DragDrop:
		d.visible = false
	}
	return d.visible, d.visible != prev
}

// Visible reports the current state.
func (d *DropIndicator) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

package geometry

import (
	"sync"

	"github.com/paulmach/orb/geojson"
)

// Sink receives every collection stored in a Source.
type Sink interface {
	SetFromGeometry(fc *geojson.FeatureCollection)
}

// Source holds the FeatureCollection currently displayed. Replace is its
// only mutator.
type Source struct {
	mu   sync.RWMutex
	fc   *geojson.FeatureCollection
	sink Sink
}

// NewSource creates an empty source. sink may be nil.
func NewSource(sink Sink) *Source {
	return &Source{
		fc:   geojson.NewFeatureCollection(),
		sink: sink,
	}
}

// Replace swaps the held collection and hands it to the sink. Concurrent
// callers are serialized, so the sink sees the same order as Current.
func (s *Source) Replace(fc *geojson.FeatureCollection) {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fc = fc
	if s.sink != nil {
		s.sink.SetFromGeometry(fc)
	}
}

// Current returns the held collection. Callers must not modify it.
func (s *Source) Current() *geojson.FeatureCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fc
}

package mapview

import (
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geojson/internal/geometry"
	"github.com/joeblew999/plat-geojson/internal/style"
)

// Instruction is one styled draw call for a feature.
type Instruction struct {
	Feature     int             `json:"feature" doc:"Index of the feature in the collection"`
	Kind        geometry.Kind   `json:"kind" enum:"point,line,polygon" doc:"Geometry kind"`
	Technique   style.Technique `json:"technique" doc:"Rendering technique"`
	RenderOrder int             `json:"renderOrder" doc:"Compositing order, lower draws first"`
	Attr        map[string]any  `json:"attr,omitempty" doc:"Technique attributes"`
}

// FeaturesDataSource displays a FeatureCollection styled by a rule set.
type FeaturesDataSource struct {
	name string

	mu    sync.RWMutex
	view  *MapView
	rules *style.Catalog
	fc    *geojson.FeatureCollection
}

// NewFeaturesDataSource creates an empty, unstyled data source.
func NewFeaturesDataSource(name string) *FeaturesDataSource {
	return &FeaturesDataSource{name: name, fc: geojson.NewFeatureCollection()}
}

func (d *FeaturesDataSource) Name() string { return d.name }

func (d *FeaturesDataSource) attach(v *MapView) {
	d.mu.Lock()
	d.view = v
	d.mu.Unlock()
}

// Attached reports whether the source has been added to a view.
func (d *FeaturesDataSource) Attached() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view != nil
}

// SetStyleSet assigns the rules used to style every feature.
func (d *FeaturesDataSource) SetStyleSet(c *style.Catalog) {
	d.mu.Lock()
	d.rules = c
	d.mu.Unlock()
}

// SetFromGeometry replaces the displayed collection.
func (d *FeaturesDataSource) SetFromGeometry(fc *geojson.FeatureCollection) {
	d.mu.Lock()
	d.fc = fc
	d.mu.Unlock()
}

// Geometry returns the displayed collection.
func (d *FeaturesDataSource) Geometry() *geojson.FeatureCollection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fc
}

// Instructions computes the draw calls for the displayed collection:
// for each feature in order, every matching rule lowest render order first.
// Without a style set nothing is drawn.
func (d *FeaturesDataSource) Instructions() []Instruction {
	d.mu.RLock()
	rules, fc := d.rules, d.fc
	d.mu.RUnlock()

	if rules == nil || fc == nil {
		return []Instruction{}
	}

	out := []Instruction{}
	for i, f := range fc.Features {
		for _, k := range geometry.KindsOf(f.Geometry) {
			for _, r := range rules.Match(k) {
				out = append(out, Instruction{
					Feature:     i,
					Kind:        k,
					Technique:   r.Technique,
					RenderOrder: r.RenderOrder,
					Attr:        r.Attr,
				})
			}
		}
	}
	return out
}

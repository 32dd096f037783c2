// Package style holds the static catalog of rendering rules keyed by
// geometry kind.
package style

import (
	"cmp"
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/joeblew999/plat-geojson/internal/geometry"
)

// Technique names a rendering technique understood by the map surface.
type Technique string

const (
	TechniqueFill      Technique = "fill"
	TechniqueSolidLine Technique = "solid-line"
	TechniqueCircles   Technique = "circles"
)

func (t Technique) valid() bool {
	switch t {
	case TechniqueFill, TechniqueSolidLine, TechniqueCircles:
		return true
	}
	return false
}

// Predicate selects features by geometry kind. Its text form is the
// expression used by the map surface, e.g. $geometryType == 'polygon'.
type Predicate struct {
	GeometryType geometry.Kind
}

// When returns a predicate matching kind k.
func When(k geometry.Kind) Predicate {
	return Predicate{GeometryType: k}
}

// Matches reports whether the predicate selects kind k.
func (p Predicate) Matches(k geometry.Kind) bool {
	return p.GeometryType == k
}

func (p Predicate) String() string {
	return fmt.Sprintf("$geometryType == '%s'", p.GeometryType)
}

var predicateRe = regexp.MustCompile(`^\s*\$geometryType\s*==\s*['"]([a-z]+)['"]\s*$`)

// MarshalText implements encoding.TextMarshaler.
func (p Predicate) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts either the full expression or a bare kind name.
func (p *Predicate) UnmarshalText(text []byte) error {
	s := string(text)
	if m := predicateRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	k := geometry.Kind(s)
	if !k.Valid() {
		return fmt.Errorf("style: unsupported predicate %q", string(text))
	}
	p.GeometryType = k
	return nil
}

// Rule maps a geometry kind to a technique, a render order and attributes.
type Rule struct {
	When        Predicate      `json:"when" yaml:"when" doc:"Geometry kind predicate" example:"$geometryType == 'polygon'"`
	Technique   Technique      `json:"technique" yaml:"technique" enum:"fill,solid-line,circles" doc:"Rendering technique"`
	RenderOrder int            `json:"renderOrder" yaml:"renderOrder" doc:"Compositing order, lower draws first" example:"10000"`
	Attr        map[string]any `json:"attr,omitempty" yaml:"attr,omitempty" doc:"Technique attributes"`
}

func (r Rule) clone() Rule {
	r.Attr = maps.Clone(r.Attr)
	return r
}

// Catalog is an immutable, ordered rule set.
type Catalog struct {
	rules []Rule
}

// New validates rules and freezes them into a catalog. Rules for the same
// kind must have distinct render orders so stacking is deterministic.
func New(rules ...Rule) (*Catalog, error) {
	type slot struct {
		kind  geometry.Kind
		order int
	}
	seen := map[slot]int{}

	c := &Catalog{rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		if !r.When.GeometryType.Valid() {
			return nil, fmt.Errorf("style: rule %d: unsupported geometry type %q", i, r.When.GeometryType)
		}
		if !r.Technique.valid() {
			return nil, fmt.Errorf("style: rule %d: unsupported technique %q", i, r.Technique)
		}
		key := slot{r.When.GeometryType, r.RenderOrder}
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("style: rules %d and %d share renderOrder %d for %s",
				prev, i, r.RenderOrder, r.When.GeometryType)
		}
		seen[key] = i
		c.rules = append(c.rules, r.clone())
	}
	return c, nil
}

// Rules returns a copy of every rule in declaration order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.clone()
	}
	return out
}

// Match returns all rules that apply to kind k, lowest render order first.
// Rules with equal render order keep declaration order.
func (c *Catalog) Match(k geometry.Kind) []Rule {
	var out []Rule
	for _, r := range c.rules {
		if r.When.Matches(k) {
			out = append(out, r.clone())
		}
	}
	slices.SortStableFunc(out, func(a, b Rule) int {
		return cmp.Compare(a.RenderOrder, b.RenderOrder)
	})
	return out
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(
		Rule{
			When:        When(geometry.KindPolygon),
			Technique:   TechniqueFill,
			RenderOrder: 10000,
			Attr: map[string]any{
				"color":       "#7cf",
				"transparent": true,
				"opacity":     0.8,
				"lineWidth":   1,
				"lineColor":   "#003344",
			},
		},
		Rule{
			When:        When(geometry.KindPolygon),
			Technique:   TechniqueSolidLine,
			RenderOrder: 10001,
			Attr: map[string]any{
				"color":      "#8df",
				"metricUnit": "Pixel",
				"lineWidth":  5,
			},
		},
		Rule{
			When:        When(geometry.KindPoint),
			Technique:   TechniqueCircles,
			RenderOrder: 10002,
			Attr: map[string]any{
				"size":  10,
				"color": "#5ad",
			},
		},
		Rule{
			When:        When(geometry.KindLine),
			Technique:   TechniqueSolidLine,
			RenderOrder: 10000,
			Attr: map[string]any{
				"color":      "#8df",
				"metricUnit": "Pixel",
				"lineWidth":  5,
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

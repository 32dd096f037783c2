// Package geometry decodes GeoJSON documents and holds the collection
// currently shown on the map.
package geometry

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Kind is the coarse geometry classification used for styling.
type Kind string

const (
	KindPoint   Kind = "point"
	KindLine    Kind = "line"
	KindPolygon Kind = "polygon"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{KindPoint, KindLine, KindPolygon}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPoint, KindLine, KindPolygon:
		return true
	}
	return false
}

// KindsOf returns the distinct kinds found in g, in first-seen order.
// Collections contribute the kinds of their members. A nil geometry has no kind.
func KindsOf(g orb.Geometry) []Kind {
	var out []Kind
	seen := map[Kind]bool{}
	var walk func(orb.Geometry)
	walk = func(g orb.Geometry) {
		var k Kind
		switch g := g.(type) {
		case nil:
			return
		case orb.Point, orb.MultiPoint:
			k = KindPoint
		case orb.LineString, orb.MultiLineString:
			k = KindLine
		case orb.Ring, orb.Polygon, orb.MultiPolygon, orb.Bound:
			k = KindPolygon
		case orb.Collection:
			for _, member := range g {
				walk(member)
			}
			return
		default:
			return
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	walk(g)
	return out
}

// ParseError is returned when text is not a usable GeoJSON document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parsing geojson: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Decode parses text as a GeoJSON document. FeatureCollections are returned
// as-is; a single Feature or a bare geometry is wrapped into a collection.
func Decode(text []byte) (*geojson.FeatureCollection, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(text, &head); err != nil {
		return nil, &ParseError{Err: err}
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(text)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		return fc, nil

	case "Feature":
		f, err := geojson.UnmarshalFeature(text)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil

	case "Point", "MultiPoint", "LineString", "MultiLineString",
		"Polygon", "MultiPolygon", "GeometryCollection":
		g, err := geojson.UnmarshalGeometry(text)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(g.Geometry()))
		return fc, nil

	case "":
		return nil, &ParseError{Err: fmt.Errorf("missing \"type\" member")}
	}
	return nil, &ParseError{Err: fmt.Errorf("unsupported type %q", head.Type)}
}

// Summary counts the features of fc per kind.
func Summary(fc *geojson.FeatureCollection) map[Kind]int {
	out := map[Kind]int{}
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		for _, k := range KindsOf(f.Geometry) {
			out[k]++
		}
	}
	return out
}

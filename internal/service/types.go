// Package service contains the ingestion pipeline behind the GeoJSON editor:
// the session, its three input channels, the editor pane and the drop
// indicator.
package service

import (
	"errors"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geojson/internal/geometry"
)

// Channel identifies how a document entered the session.
type Channel string

const (
	ChannelFilePicker Channel = "file-picker"
	ChannelDrop       Channel = "drop"
	ChannelManual     Channel = "manual"
)

// MaxDocumentBytes is the largest document accepted over HTTP.
const MaxDocumentBytes int64 = 64 << 20

// ErrUnsupportedFileType is returned when a picked or dropped file does not
// declare a GeoJSON or JSON content type. No read is attempted.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// ErrNoFile is returned when a drop carries no files.
var ErrNoFile = errors.New("no file provided")

// ReadError wraps a failure to read a picked or dropped file.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return "reading " + e.Name + ": " + e.Err.Error()
}

func (e *ReadError) Unwrap() error { return e.Err }

// Result is the outcome of one ingestion. Either Err is set, or Collection,
// Text and Revision describe the document now on display.
type Result struct {
	Channel    Channel
	Collection *geojson.FeatureCollection
	Text       string
	Revision   uint64
	Err        error
}

// OK reports whether the ingestion was applied.
func (r Result) OK() bool { return r.Err == nil }

// Snapshot is a consistent view of the session: the displayed collection
// and the text reflected into the editor belong to the same revision.
type Snapshot struct {
	ID         string
	Revision   uint64
	Collection *geojson.FeatureCollection
	Text       string
}

// FeatureSummary describes one feature of the current collection.
type FeatureSummary struct {
	Index        int             `json:"index" doc:"Position in the collection"`
	ID           any             `json:"id,omitempty" doc:"Feature id, if any"`
	GeometryType string          `json:"geometryType" doc:"GeoJSON geometry type" example:"Point"`
	Kinds        []geometry.Kind `json:"kinds" doc:"Styling kinds of the geometry"`
	Properties   int             `json:"properties" doc:"Number of properties"`
}

// Summaries lists fc's features.
func Summaries(fc *geojson.FeatureCollection) []FeatureSummary {
	out := []FeatureSummary{}
	if fc == nil {
		return out
	}
	for i, f := range fc.Features {
		s := FeatureSummary{Index: i, ID: f.ID, Properties: len(f.Properties), Kinds: geometry.KindsOf(f.Geometry)}
		if f.Geometry != nil {
			s.GeometryType = f.Geometry.GeoJSONType()
		}
		if s.Kinds == nil {
			s.Kinds = []geometry.Kind{}
		}
		out = append(out, s)
	}
	return out
}

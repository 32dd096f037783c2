package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-geojson/internal/geometry"
)

const createFeatures = `CREATE TABLE IF NOT EXISTS features (
	idx           INTEGER NOT NULL,
	revision      UBIGINT NOT NULL,
	kinds         VARCHAR,
	geometry_type VARCHAR,
	wkt           VARCHAR,
	properties    VARCHAR
)`

// FeatureIndex keeps the features table equal to the displayed collection.
type FeatureIndex struct {
	db *sql.DB
}

// NewFeatureIndex creates the features table.
func NewFeatureIndex(ctx context.Context, db *sql.DB) (*FeatureIndex, error) {
	if _, err := db.ExecContext(ctx, createFeatures); err != nil {
		return nil, fmt.Errorf("creating features table: %w", err)
	}
	return &FeatureIndex{db: db}, nil
}

// Replace swaps the table contents for fc in one transaction.
func (x *FeatureIndex) Replace(ctx context.Context, revision uint64, fc *geojson.FeatureCollection) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM features"); err != nil {
		return fmt.Errorf("clearing features: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO features (idx, revision, kinds, geometry_type, wkt, properties) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range fc.Features {
		var geomType, text sql.NullString
		if f.Geometry != nil {
			geomType = sql.NullString{String: f.Geometry.GeoJSONType(), Valid: true}
			text = sql.NullString{String: wkt.MarshalString(f.Geometry), Valid: true}
		}

		kinds := make([]string, 0, 1)
		for _, k := range geometry.KindsOf(f.Geometry) {
			kinds = append(kinds, string(k))
		}

		props, err := json.Marshal(f.Properties)
		if err != nil {
			return fmt.Errorf("feature %d properties: %w", i, err)
		}

		if _, err := stmt.ExecContext(ctx, i, revision, strings.Join(kinds, ","), geomType, text, string(props)); err != nil {
			return fmt.Errorf("inserting feature %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of mirrored features.
func (x *FeatureIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, "SELECT count(*) FROM features").Scan(&n)
	return n, err
}

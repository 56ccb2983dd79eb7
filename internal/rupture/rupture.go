// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// Package rupture models earthquake rupture geometry and the source
// to site distance measures derived from it. A rupture is either a
// point source, a set of coplanar quadrilaterals with horizontal top
// and bottom edges, or an arbitrary top/bottom edge pair meshed at a
// configurable resolution.
package rupture

import (
	"encoding/json"
	"fmt"
	"time"
)

// Rupture is the geometry of an earthquake source.
type Rupture interface {
	// Origin returns the event origin the rupture was built with.
	Origin() *Origin

	// Reference is the citation for the rupture geometry.
	Reference() string

	// Rjb computes the Joyner-Boore distance (km) to each site.
	// All three slices must have the same length.
	Rjb(lons, lats, depths []float64) ([]float64, error)

	// Rrup computes the closest distance (km) to the rupture surface
	// for each site.
	Rrup(lons, lats, depths []float64) ([]float64, error)

	// Length is the rupture length along the top edge in km.
	Length() float64

	// Width is the mean down-dip width in km.
	Width() float64

	// Area is the rupture area in square km.
	Area() float64

	// Strike is the overall strike in degrees clockwise from north.
	Strike() float64

	// Dip is the representative dip in degrees.
	Dip() float64

	// DepthToTop is the minimum depth of the rupture in km.
	DepthToTop() float64

	// Lons, Lats and Depths return the outline vertices of the
	// rupture, one closed ring per segment with NaN separators
	// between rings. A point source yields a single vertex.
	Lons() []float64
	Lats() []float64
	Depths() []float64

	// GeoJSON serializes the rupture to its GeoJSON representation.
	GeoJSON() ([]byte, error)
}

// featureCollection is the on-disk GeoJSON form of a rupture. The
// geometry is a MultiPolygon whose single outer element holds one
// closed ring per rupture segment.
type featureCollection struct {
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
	Features []feature      `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   geometry       `json:"geometry"`
}

type geometry struct {
	Type        string           `json:"type"`
	Coordinates [][][][3]float64 `json:"coordinates"`
}

func (fc *featureCollection) reference() string {
	if len(fc.Features) == 0 {
		return ""
	}
	if ref, ok := fc.Features[0].Properties["reference"].(string); ok {
		return ref
	}
	return ""
}

func (fc *featureCollection) polygons() [][][3]float64 {
	if len(fc.Features) == 0 || len(fc.Features[0].Geometry.Coordinates) == 0 {
		return nil
	}
	return fc.Features[0].Geometry.Coordinates[0]
}

// newFeatureCollection builds the GeoJSON wrapper around a set of
// closed polygon rings, stamping the origin into the metadata block.
func newFeatureCollection(polys [][][3]float64, origin *Origin, reference string) *featureCollection {
	meta := map[string]any{}
	if origin != nil {
		meta["id"] = origin.EventID
		meta["netid"] = origin.NetID
		meta["network"] = origin.Network
		meta["lat"] = origin.Lat
		meta["lon"] = origin.Lon
		meta["depth"] = origin.Depth
		meta["mag"] = origin.Mag
		meta["locstring"] = origin.LocString
		meta["mech"] = origin.Mech
		meta["rake"] = origin.Rake
		if !origin.Time.IsZero() {
			meta["time"] = origin.Time.UTC().Format(time.RFC3339)
		}
	}
	return &featureCollection{
		Type:     "FeatureCollection",
		Metadata: meta,
		Features: []feature{{
			Type: "Feature",
			Properties: map[string]any{
				"rupture type": "rupture extent",
				"reference":    reference,
			},
			Geometry: geometry{
				Type:        "MultiPolygon",
				Coordinates: [][][][3]float64{polys},
			},
		}},
	}
}

// validateFeatureCollection checks the structural rules common to all
// rupture representations.
func validateFeatureCollection(fc *featureCollection) error {
	if fc.Type != "FeatureCollection" {
		return fmt.Errorf("rupture document must be a FeatureCollection, got %q", fc.Type)
	}
	if len(fc.Features) != 1 {
		return fmt.Errorf("rupture document must contain exactly one feature, got %d", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Type != "Feature" {
		return fmt.Errorf("feature type must be Feature, got %q", f.Type)
	}
	if _, ok := f.Properties["reference"]; !ok {
		return fmt.Errorf("feature properties must contain a reference key")
	}
	if f.Geometry.Type != "MultiPolygon" {
		return fmt.Errorf("geometry type must be MultiPolygon, got %q", f.Geometry.Type)
	}
	if len(f.Geometry.Coordinates) == 0 {
		return fmt.Errorf("geometry has no coordinates")
	}
	for i, poly := range fc.polygons() {
		n := len(poly)
		if n%2 == 0 {
			return fmt.Errorf("polygon %d must have an odd number of points, got %d", i, n)
		}
		if poly[0] != poly[n-1] {
			return fmt.Errorf("polygon %d must be closed", i)
		}
		// Points are paired top first: P0-P(n-2), P1-P(n-3), ...
		pairs := (n - 1) / 2
		for j := 0; j < pairs; j++ {
			top := poly[j][2]
			bot := poly[n-2-j][2]
			if top > bot {
				return fmt.Errorf("polygon %d pair %d has top depth %g below bottom depth %g",
					i, j, top, bot)
			}
		}
	}
	return nil
}

func marshalGeoJSON(fc *featureCollection) ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}

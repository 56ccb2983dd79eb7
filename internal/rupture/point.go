// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package rupture

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// PointRupture represents an event with no finite fault geometry. All
// distances are measured from the hypocenter and the finite-source
// measures are undefined.
type PointRupture struct {
	origin    *Origin
	reference string
}

// NewPointRupture builds a point-source rupture at the origin
// hypocenter.
func NewPointRupture(origin *Origin) (*PointRupture, error) {
	if origin == nil {
		return nil, fmt.Errorf("a point rupture requires an origin")
	}
	return &PointRupture{
		origin:    origin,
		reference: "Origin",
	}, nil
}

func (p *PointRupture) Origin() *Origin   { return p.origin }
func (p *PointRupture) Reference() string { return p.reference }

// Rjb returns the epicentral distance for each site.
func (p *PointRupture) Rjb(lons, lats, depths []float64) ([]float64, error) {
	if err := checkSites(lons, lats, depths); err != nil {
		return nil, err
	}
	out := make([]float64, len(lons))
	for i := range lons {
		out[i] = Haversine(p.origin.Lat, p.origin.Lon, lats[i], lons[i])
	}
	return out, nil
}

// Rrup returns the hypocentral distance for each site.
func (p *PointRupture) Rrup(lons, lats, depths []float64) ([]float64, error) {
	if err := checkSites(lons, lats, depths); err != nil {
		return nil, err
	}
	out := make([]float64, len(lons))
	for i := range lons {
		repi := Haversine(p.origin.Lat, p.origin.Lon, lats[i], lons[i])
		dz := p.origin.Depth - depths[i]
		out[i] = math.Sqrt(repi*repi + dz*dz)
	}
	return out, nil
}

func (p *PointRupture) Length() float64 { return math.NaN() }
func (p *PointRupture) Width() float64  { return math.NaN() }
func (p *PointRupture) Area() float64   { return math.NaN() }
func (p *PointRupture) Strike() float64 { return math.NaN() }
func (p *PointRupture) Dip() float64    { return math.NaN() }

// DepthToTop falls back to the hypocentral depth.
func (p *PointRupture) DepthToTop() float64 { return p.origin.Depth }

func (p *PointRupture) Lons() []float64   { return []float64{p.origin.Lon} }
func (p *PointRupture) Lats() []float64   { return []float64{p.origin.Lat} }
func (p *PointRupture) Depths() []float64 { return []float64{p.origin.Depth} }

type pointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [3]float64 `json:"coordinates"`
}

type pointFeature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   pointGeometry  `json:"geometry"`
}

type pointFeatureCollection struct {
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
	Features []pointFeature `json:"features"`
}

// GeoJSON renders the hypocenter as a Point feature.
func (p *PointRupture) GeoJSON() ([]byte, error) {
	fc := newFeatureCollection(nil, p.origin, p.reference)
	doc := pointFeatureCollection{
		Type:     fc.Type,
		Metadata: fc.Metadata,
		Features: []pointFeature{{
			Type:       "Feature",
			Properties: fc.Features[0].Properties,
			Geometry: pointGeometry{
				Type:        "Point",
				Coordinates: [3]float64{p.origin.Lon, p.origin.Lat, p.origin.Depth},
			},
		}},
	}
	return json.MarshalIndent(doc, "", "  ")
}

var errSiteLength = errors.New("site lon, lat and depth slices must have equal length")

func checkSites(lons, lats, depths []float64) error {
	if len(lons) != len(lats) || len(lons) != len(depths) {
		return errSiteLength
	}
	return nil
}

// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package rupture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// EdgeRupture is a rupture defined only by its top and bottom edges.
// The edges need not be horizontal and the surface between them need
// not be planar, so distances are computed against a mesh discretized
// at a target spacing.
type EdgeRupture struct {
	fc     *featureCollection
	origin *Origin
	meshDx float64

	// Per segment group, the top and bottom edge vertices in strike
	// order.
	topEdges [][]Point
	botEdges [][]Point

	// Mesh point cache, built lazily.
	mesh     []r3.Vec
	meshFlat []r3.Vec
}

// NewEdgeRupture builds an EdgeRupture from a validated rupture
// GeoJSON document. meshDx is the target mesh spacing in km.
func NewEdgeRupture(fc *featureCollection, origin *Origin, meshDx float64) (*EdgeRupture, error) {
	if meshDx <= 0 {
		return nil, fmt.Errorf("mesh spacing must be positive, got %g", meshDx)
	}
	e := &EdgeRupture{fc: fc, origin: origin, meshDx: meshDx}
	for gi, poly := range fc.polygons() {
		seg := poly[:len(poly)-1]
		npts := len(seg)
		if npts < 4 || npts%2 != 0 {
			return nil, fmt.Errorf("polygon %d does not pair top and bottom edges", gi)
		}
		half := npts / 2
		top := make([]Point, half)
		bot := make([]Point, half)
		for i := 0; i < half; i++ {
			top[i] = Point{Lon: seg[i][0], Lat: seg[i][1], Depth: seg[i][2]}
			// Bottom edge runs backwards along the ring.
			b := seg[npts-1-i]
			bot[i] = Point{Lon: b[0], Lat: b[1], Depth: b[2]}
		}
		e.topEdges = append(e.topEdges, top)
		e.botEdges = append(e.botEdges, bot)
	}
	if len(e.topEdges) == 0 {
		return nil, fmt.Errorf("rupture document contains no segments")
	}
	return e, nil
}

func (e *EdgeRupture) Origin() *Origin   { return e.origin }
func (e *EdgeRupture) Reference() string { return e.fc.reference() }

// buildMesh fills the mesh point caches. Each column pair between
// adjacent top/bottom vertices is interpolated bilinearly in ECEF at
// the target spacing.
func (e *EdgeRupture) buildMesh() {
	if e.mesh != nil {
		return
	}
	for g := range e.topEdges {
		top, bot := e.topEdges[g], e.botEdges[g]
		for i := 0; i+1 < len(top); i++ {
			t0, t1 := top[i].ECEF(), top[i+1].ECEF()
			b0, b1 := bot[i].ECEF(), bot[i+1].ECEF()
			f0 := Point{Lon: top[i].Lon, Lat: top[i].Lat}.ECEF()
			f1 := Point{Lon: top[i+1].Lon, Lat: top[i+1].Lat}.ECEF()
			g0 := Point{Lon: bot[i].Lon, Lat: bot[i].Lat}.ECEF()
			g1 := Point{Lon: bot[i+1].Lon, Lat: bot[i+1].Lat}.ECEF()

			nx := meshSteps(r3.Norm(r3.Sub(t1, t0))/1000.0, e.meshDx)
			ny := meshSteps(r3.Norm(r3.Sub(b0, t0))/1000.0, e.meshDx)
			for ix := 0; ix < nx; ix++ {
				fx := float64(ix) / float64(nx-1)
				tp := lerp(t0, t1, fx)
				bp := lerp(b0, b1, fx)
				fp := lerp(f0, f1, fx)
				gp := lerp(g0, g1, fx)
				for iy := 0; iy < ny; iy++ {
					fy := float64(iy) / float64(ny-1)
					e.mesh = append(e.mesh, lerp(tp, bp, fy))
					e.meshFlat = append(e.meshFlat, lerp(fp, gp, fy))
				}
			}
		}
	}
}

func meshSteps(lengthKM, dx float64) int {
	n := int(math.Round(lengthKM/dx)) + 1
	if n < 2 {
		return 2
	}
	return n
}

func lerp(a, b r3.Vec, f float64) r3.Vec {
	return r3.Add(a, r3.Scale(f, r3.Sub(b, a)))
}

// Rjb computes the Joyner-Boore distance in km for each site, using
// the mesh flattened to the surface.
func (e *EdgeRupture) Rjb(lons, lats, depths []float64) ([]float64, error) {
	if err := checkSites(lons, lats, depths); err != nil {
		return nil, err
	}
	e.buildMesh()
	return minMeshDistance(e.meshFlat, lons, lats, make([]float64, len(lons))), nil
}

// Rrup computes the closest distance to the rupture mesh in km for
// each site.
func (e *EdgeRupture) Rrup(lons, lats, depths []float64) ([]float64, error) {
	if err := checkSites(lons, lats, depths); err != nil {
		return nil, err
	}
	e.buildMesh()
	return minMeshDistance(e.mesh, lons, lats, depths), nil
}

func minMeshDistance(mesh []r3.Vec, lons, lats, depths []float64) []float64 {
	out := make([]float64, len(lons))
	for i := range lons {
		s := LatLonToECEF(lats[i], lons[i], depths[i])
		min := math.Inf(1)
		for _, m := range mesh {
			d := r3.Norm2(r3.Sub(s, m))
			if d < min {
				min = d
			}
		}
		out[i] = math.Sqrt(min) / 1000.0
	}
	return out
}

// Length is the total top-edge length in km.
func (e *EdgeRupture) Length() float64 {
	var sum float64
	for _, top := range e.topEdges {
		for i := 0; i+1 < len(top); i++ {
			sum += r3.Norm(r3.Sub(top[i+1].ECEF(), top[i].ECEF())) / 1000.0
		}
	}
	return sum
}

// Width is the mean distance between paired top and bottom vertices
// in km.
func (e *EdgeRupture) Width() float64 {
	var sum float64
	var n int
	for g := range e.topEdges {
		top, bot := e.topEdges[g], e.botEdges[g]
		for i := range top {
			sum += r3.Norm(r3.Sub(bot[i].ECEF(), top[i].ECEF())) / 1000.0
			n++
		}
	}
	return sum / float64(n)
}

// Area approximates the rupture area as length times mean width.
func (e *EdgeRupture) Area() float64 {
	return e.Length() * e.Width()
}

// Strike is the length-weighted mean azimuth of the top edges in
// degrees clockwise from north.
func (e *EdgeRupture) Strike() float64 {
	var xbar, ybar, wsum float64
	for _, top := range e.topEdges {
		for i := 0; i+1 < len(top); i++ {
			az := azimuth(top[i], top[i+1]) * math.Pi / 180.0
			l := r3.Norm(r3.Sub(top[i+1].ECEF(), top[i].ECEF())) / 1000.0
			xbar += math.Sin(az) * l
			ybar += math.Cos(az) * l
			wsum += l
		}
	}
	return math.Atan2(xbar/wsum, ybar/wsum) * 180.0 / math.Pi
}

// Dip is the mean angle from horizontal of the top-to-bottom vertex
// connections, in degrees.
func (e *EdgeRupture) Dip() float64 {
	var sum float64
	var n int
	for g := range e.topEdges {
		top, bot := e.topEdges[g], e.botEdges[g]
		for i := range top {
			dz := bot[i].Depth - top[i].Depth
			horiz := Haversine(top[i].Lat, top[i].Lon, bot[i].Lat, bot[i].Lon)
			sum += math.Atan2(dz, horiz) * 180.0 / math.Pi
			n++
		}
	}
	return sum / float64(n)
}

// DepthToTop is the depth in km of the shallowest top-edge vertex.
func (e *EdgeRupture) DepthToTop() float64 {
	min := math.Inf(1)
	for _, top := range e.topEdges {
		for _, p := range top {
			if p.Depth < min {
				min = p.Depth
			}
		}
	}
	return min
}

// coordSlices returns one closed ring per segment (top edge, then the
// bottom edge walked back) with NaN separators between rings.
func (e *EdgeRupture) coordSlices() (lons, lats, depths []float64) {
	push := func(p Point) {
		lons = append(lons, p.Lon)
		lats = append(lats, p.Lat)
		depths = append(depths, p.Depth)
	}
	for i := range e.topEdges {
		if i > 0 {
			lons = append(lons, math.NaN())
			lats = append(lats, math.NaN())
			depths = append(depths, math.NaN())
		}
		top, bot := e.topEdges[i], e.botEdges[i]
		for _, p := range top {
			push(p)
		}
		for j := len(bot) - 1; j >= 0; j-- {
			push(bot[j])
		}
		push(top[0])
	}
	return lons, lats, depths
}

func (e *EdgeRupture) Lons() []float64 {
	lons, _, _ := e.coordSlices()
	return lons
}

func (e *EdgeRupture) Lats() []float64 {
	_, lats, _ := e.coordSlices()
	return lats
}

func (e *EdgeRupture) Depths() []float64 {
	_, _, depths := e.coordSlices()
	return depths
}

// GeoJSON serializes the rupture document.
func (e *EdgeRupture) GeoJSON() ([]byte, error) {
	return marshalGeoJSON(e.fc)
}

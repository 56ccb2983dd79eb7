// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package rupture

import (
	"math"
)

// GC2 holds the generalized coordinate system distances of Spudich
// and Chiou (OFR 2015-1028) for a set of sites. All values are km.
// T is the strike-normal coordinate (positive on the hanging wall),
// U the strike-parallel coordinate measured from the first vertex.
type GC2 struct {
	T   []float64
	U   []float64
	Rx  []float64
	Ry  []float64
	Ry0 []float64
}

// ComputeGC2 computes the GC2 coordinates for each site. Quads are
// weighted by the inverse-distance scheme of the reference, with
// segments taken in file order.
func (q *QuadRupture) ComputeGC2(lons, lats []float64) (*GC2, error) {
	if len(lons) != len(lats) {
		return nil, errSiteLength
	}
	n := len(lons)

	// Projection spanning the sites and the rupture.
	west, east := math.Inf(1), math.Inf(-1)
	south, north := math.Inf(1), math.Inf(-1)
	extend := func(lon, lat float64) {
		west = math.Min(west, lon)
		east = math.Max(east, lon)
		south = math.Min(south, lat)
		north = math.Max(north, lat)
	}
	for i := range lons {
		extend(lons[i], lats[i])
	}
	for _, quad := range q.quads {
		for _, p := range quad {
			extend(p.Lon, p.Lat)
		}
	}
	proj := NewProjection(west, east, north, south)

	sx := make([]float64, n)
	sy := make([]float64, n)
	for i := range lons {
		sx[i], sy[i] = proj.Forward(lons[i], lats[i])
	}

	totW := make([]float64, n)
	gc2T := make([]float64, n)
	gc2U := make([]float64, n)

	var sOffset float64
	for _, quad := range q.quads {
		p0x, p0y := proj.Forward(quad[0].Lon, quad[0].Lat)
		p1x, p1y := proj.Forward(quad[1].Lon, quad[1].Lat)
		segLen := math.Hypot(p1x-p0x, p1y-p0y)
		if segLen == 0 {
			continue
		}
		ux := (p1x - p0x) / segLen
		uy := (p1y - p0y) / segLen
		// Strike-normal unit vector, hanging wall positive.
		tx, ty := uy, -ux
		l := quadLength(quad)

		for i := 0; i < n; i++ {
			rx := sx[i] - p0x
			ry := sy[i] - p0y
			ti := tx*rx + ty*ry
			ui := ux*rx + uy*ry

			var wi float64
			switch {
			case ti != 0:
				wi = (math.Atan((l-ui)/ti) - math.Atan(-ui/ti)) / ti
			case ui < 0 || ui > l:
				wi = 1.0/(ui-l) - 1.0/ui
			default:
				// On the trace itself the weight diverges; the
				// coordinates there are the trace coordinates.
				wi = 0
			}
			totW[i] += wi
			gc2T[i] += wi * ti
			gc2U[i] += wi * (ui + sOffset)
		}
		sOffset += l
	}

	out := &GC2{
		T:   make([]float64, n),
		U:   make([]float64, n),
		Rx:  make([]float64, n),
		Ry:  make([]float64, n),
		Ry0: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t := gc2T[i] / totW[i]
		u := gc2U[i] / totW[i]
		out.T[i] = t
		out.U[i] = u
		out.Rx[i] = t
		out.Ry[i] = u - sOffset/2.0
		switch {
		case u < 0:
			out.Ry0[i] = -u
		case u > sOffset:
			out.Ry0[i] = u - sOffset
		}
	}
	return out, nil
}

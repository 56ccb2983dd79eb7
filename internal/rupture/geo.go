// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package rupture

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// WGS-84 ellipsoid parameters.
const (
	semiMajorAxis = 6378137.0
	semiMinorAxis = 6356752.3142
	earthRadiusKM = 6371.0
)

var firstEccSq = 1.0 - (semiMinorAxis*semiMinorAxis)/(semiMajorAxis*semiMajorAxis)

// Point is a geographic location with depth in km (positive down).
type Point struct {
	Lon   float64
	Lat   float64
	Depth float64
}

// ECEF converts the point to earth-centered earth-fixed coordinates
// in meters.
func (p Point) ECEF() r3.Vec {
	return LatLonToECEF(p.Lat, p.Lon, p.Depth)
}

// LatLonToECEF converts geographic coordinates and depth (km, positive
// down) to ECEF meters on the WGS-84 ellipsoid.
func LatLonToECEF(lat, lon, depth float64) r3.Vec {
	phi := lat * math.Pi / 180.0
	lam := lon * math.Pi / 180.0
	alt := -depth * 1000.0

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	n := semiMajorAxis / math.Sqrt(1.0-firstEccSq*sinPhi*sinPhi)

	return r3.Vec{
		X: (n + alt) * cosPhi * math.Cos(lam),
		Y: (n + alt) * cosPhi * math.Sin(lam),
		Z: (n*(1.0-firstEccSq) + alt) * sinPhi,
	}
}

// ECEFToLatLon converts ECEF meters back to lat, lon (degrees) and
// depth (km, positive down). Uses the closed-form Bowring method.
func ECEFToLatLon(v r3.Vec) (lat, lon, depth float64) {
	lon = math.Atan2(v.Y, v.X) * 180.0 / math.Pi

	p := math.Hypot(v.X, v.Y)
	secondEccSq := firstEccSq / (1.0 - firstEccSq)
	theta := math.Atan2(v.Z*semiMajorAxis, p*semiMinorAxis)
	sinT := math.Sin(theta)
	cosT := math.Cos(theta)
	phi := math.Atan2(
		v.Z+secondEccSq*semiMinorAxis*sinT*sinT*sinT,
		p-firstEccSq*semiMajorAxis*cosT*cosT*cosT,
	)
	sinPhi := math.Sin(phi)
	n := semiMajorAxis / math.Sqrt(1.0-firstEccSq*sinPhi*sinPhi)
	alt := p/math.Cos(phi) - n

	lat = phi * 180.0 / math.Pi
	depth = -alt / 1000.0
	return lat, lon, depth
}

// Haversine returns the great-circle distance in km between two
// geographic points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180.0
	p2 := lat2 * math.Pi / 180.0
	dp := p2 - p1
	dl := (lon2 - lon1) * math.Pi / 180.0
	a := math.Sin(dp/2)*math.Sin(dp/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2.0 * earthRadiusKM * math.Asin(math.Min(1.0, math.Sqrt(a)))
}

// Projection is an orthographic map projection centered on a bounding
// box. Forward coordinates are in km.
type Projection struct {
	lat0 float64 // radians
	lon0 float64 // radians
}

// NewProjection builds an orthographic projection centered on the
// given bounding box.
func NewProjection(west, east, north, south float64) *Projection {
	return &Projection{
		lat0: (north + south) / 2.0 * math.Pi / 180.0,
		lon0: (west + east) / 2.0 * math.Pi / 180.0,
	}
}

// Forward projects lon/lat degrees to x/y km.
func (pr *Projection) Forward(lon, lat float64) (x, y float64) {
	phi := lat * math.Pi / 180.0
	lam := lon*math.Pi/180.0 - pr.lon0
	x = earthRadiusKM * math.Cos(phi) * math.Sin(lam)
	y = earthRadiusKM * (math.Cos(pr.lat0)*math.Sin(phi) -
		math.Sin(pr.lat0)*math.Cos(phi)*math.Cos(lam))
	return x, y
}

// Inverse converts x/y km back to lon/lat degrees.
func (pr *Projection) Inverse(x, y float64) (lon, lat float64) {
	rho := math.Hypot(x, y)
	if rho == 0 {
		return pr.lon0 * 180.0 / math.Pi, pr.lat0 * 180.0 / math.Pi
	}
	c := math.Asin(rho / earthRadiusKM)
	sinC := math.Sin(c)
	cosC := math.Cos(c)
	phi := math.Asin(cosC*math.Sin(pr.lat0) + y*sinC*math.Cos(pr.lat0)/rho)
	lam := pr.lon0 + math.Atan2(x*sinC,
		rho*math.Cos(pr.lat0)*cosC-y*math.Sin(pr.lat0)*sinC)
	return lam * 180.0 / math.Pi, phi * 180.0 / math.Pi
}

// distSqToSegment returns, for each point in pts, the squared distance
// in meters to the line segment p0-p1. All coordinates are ECEF meters.
func distSqToSegment(p0, p1 r3.Vec, pts []r3.Vec) []float64 {
	out := make([]float64, len(pts))
	seg := r3.Sub(p1, p0)
	segLenSq := r3.Norm2(seg)
	for i, p := range pts {
		if segLenSq == 0 {
			out[i] = r3.Norm2(r3.Sub(p, p0))
			continue
		}
		t := r3.Dot(r3.Sub(p, p0), seg) / segLenSq
		switch {
		case t <= 0:
			out[i] = r3.Norm2(r3.Sub(p, p0))
		case t >= 1:
			out[i] = r3.Norm2(r3.Sub(p, p1))
		default:
			proj := r3.Add(p0, r3.Scale(t, seg))
			out[i] = r3.Norm2(r3.Sub(p, proj))
		}
	}
	return out
}

// distanceToPlane returns the perpendicular distance in meters from
// point p to the plane through the three plane points.
func distanceToPlane(planePts [3]r3.Vec, p r3.Vec) float64 {
	n := r3.Cross(r3.Sub(planePts[1], planePts[0]), r3.Sub(planePts[2], planePts[0]))
	nn := r3.Norm(n)
	if nn == 0 {
		return 0
	}
	n = r3.Scale(1.0/nn, n)
	d := -r3.Dot(n, planePts[0])
	return math.Abs(r3.Dot(n, p) + d)
}

// quadDistance returns, for each site (ECEF meters), the distance in
// km from the site to the quadrilateral q. With horizontal set, the
// quad is flattened to zero depth and sites over the quad footprint
// get zero distance, which is the Joyner-Boore convention.
func quadDistance(q [4]Point, sites []r3.Vec, horizontal bool) []float64 {
	if horizontal {
		for i := range q {
			q[i].Depth = 0
		}
	}
	p0 := q[0].ECEF()
	p1 := q[1].ECEF()
	p2 := q[2].ECEF()
	p3 := q[3].ECEF()

	// A vertical quad flattened to the surface collapses to its top
	// edge; the plane normal is undefined, so measure against the
	// trace segment alone.
	cn := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
	degenerate := r3.Norm(cn) < 1.0 // square meters
	if degenerate {
		return traceDistance(p0, p1, sites, horizontal)
	}
	normal := r3.Unit(cn)

	// Edge plane normals.
	en := [4]r3.Vec{
		r3.Cross(r3.Sub(p1, p0), normal),
		r3.Cross(r3.Sub(p2, p1), normal),
		r3.Cross(r3.Sub(p3, p2), normal),
		r3.Cross(r3.Sub(p0, p3), normal),
	}
	ev := [4]r3.Vec{p0, p1, p2, p3}
	edges := [4][2]r3.Vec{{p0, p1}, {p1, p2}, {p2, p3}, {p3, p0}}

	dist := make([]float64, len(sites))
	for i, s := range sites {
		// The site is over the quad when the signed distances to all
		// four edge planes share a sign.
		inside := true
		sgn0 := math.Signbit(r3.Dot(en[0], r3.Sub(ev[0], s)))
		for e := 1; e < 4; e++ {
			if math.Signbit(r3.Dot(en[e], r3.Sub(ev[e], s))) != sgn0 {
				inside = false
				break
			}
		}
		if inside {
			if horizontal {
				dist[i] = 0
			} else {
				dist[i] = math.Abs(r3.Dot(r3.Sub(p0, s), normal)) / 1000.0
			}
			continue
		}
		one := []r3.Vec{s}
		dsq := math.MaxFloat64
		for _, eg := range edges {
			d := distSqToSegment(eg[0], eg[1], one)[0]
			if d < dsq {
				dsq = d
			}
		}
		dist[i] = math.Sqrt(dsq) / 1000.0
	}
	return dist
}

// traceDistance returns, for each site, the distance in km to the
// segment p0-p1 (ECEF meters). In the horizontal case the segment is
// the surface trace of a collapsed quad: the straight chord between
// the endpoints sags below the ellipsoid, so the sag at the nearest
// chord point is removed to keep a site on the trace at zero.
func traceDistance(p0, p1 r3.Vec, sites []r3.Vec, horizontal bool) []float64 {
	seg := r3.Sub(p1, p0)
	segLenSq := r3.Norm2(seg)
	r0 := r3.Norm(p0)
	r1 := r3.Norm(p1)

	dist := make([]float64, len(sites))
	for i, s := range sites {
		t := 0.0
		if segLenSq > 0 {
			t = r3.Dot(r3.Sub(s, p0), seg) / segLenSq
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
		}
		c := r3.Add(p0, r3.Scale(t, seg))
		dsq := r3.Norm2(r3.Sub(s, c))
		if horizontal {
			sag := (1-t)*r0 + t*r1 - r3.Norm(c)
			dsq -= sag * sag
			if dsq < 0 {
				dsq = 0
			}
		}
		dist[i] = math.Sqrt(dsq) / 1000.0
	}
	return dist
}

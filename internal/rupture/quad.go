// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package rupture

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Maximum allowed depth difference (km) between the vertices of a
	// nominally horizontal quad edge.
	depthTolerance = 0.01

	// Maximum off-plane distance of a quad vertex relative to the
	// length of its bottom edge.
	offPlaneTolerance = 0.05
)

// QuadRupture is a rupture surface composed of quadrilaterals whose
// top and bottom edges are horizontal. Each polygon ring in the
// source GeoJSON is a segment group that may hold several contiguous
// quads.
type QuadRupture struct {
	fc         *featureCollection
	origin     *Origin
	quads      [][4]Point
	groupIndex []int
}

// NewQuadRupture builds a QuadRupture from a validated rupture
// GeoJSON document. Vertices within each ring start along the top
// edge in the strike direction and come back along the bottom edge.
func NewQuadRupture(fc *featureCollection, origin *Origin) (*QuadRupture, error) {
	q := &QuadRupture{fc: fc, origin: origin}
	if err := q.setQuadrilaterals(); err != nil {
		return nil, err
	}
	return q, nil
}

// FromVertices builds a QuadRupture from parallel vertex slices, one
// entry per quad, labeled like:
//
//	p0--------p1
//	|          |
//	p3--------p2
//
// groupIndex assigns quads to contiguous segments; nil means every
// quad is its own segment.
func FromVertices(p0, p1, p2, p3 []Point, groupIndex []int, origin *Origin, reference string) (*QuadRupture, error) {
	n := len(p0)
	if len(p1) != n || len(p2) != n || len(p3) != n {
		return nil, fmt.Errorf("all vertex slices must have the same length")
	}
	if groupIndex == nil {
		groupIndex = make([]int, n)
		for i := range groupIndex {
			groupIndex[i] = i
		}
	}
	if len(groupIndex) != n {
		return nil, fmt.Errorf("group index must have one entry per quad")
	}

	polys := buildRings(p0, p1, p2, p3, groupIndex)
	fc := newFeatureCollection(polys, origin, reference)
	if err := validateFeatureCollection(fc); err != nil {
		return nil, err
	}
	return NewQuadRupture(fc, origin)
}

// FromTrace builds a QuadRupture from top-edge traces plus widths and
// dips, one entry per quad. The bottom edge is constructed by
// projecting the top edge down dip. Depths are km, widths km, dips
// degrees.
func FromTrace(top0, top1 []Point, widths, dips []float64, groupIndex []int, origin *Origin, reference string) (*QuadRupture, error) {
	n := len(top0)
	if len(top1) != n || len(widths) != n || len(dips) != n {
		return nil, fmt.Errorf("trace, width and dip slices must have the same length")
	}

	west, east := math.Inf(1), math.Inf(-1)
	south, north := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		west = math.Min(west, math.Min(top0[i].Lon, top1[i].Lon))
		east = math.Max(east, math.Max(top0[i].Lon, top1[i].Lon))
		south = math.Min(south, math.Min(top0[i].Lat, top1[i].Lat))
		north = math.Max(north, math.Max(top0[i].Lat, top1[i].Lat))
	}
	proj := NewProjection(west, east, north, south)

	bot0 := make([]Point, n)
	bot1 := make([]Point, n)
	for i := 0; i < n; i++ {
		p0x, p0y := proj.Forward(top0[i].Lon, top0[i].Lat)
		p1x, p1y := proj.Forward(top1[i].Lon, top1[i].Lat)

		// Rotate the top edge to a vertical line, offset down dip,
		// then rotate back.
		theta := math.Atan2(p1x-p0x, p1y-p0y)
		cosT, sinT := math.Cos(theta), math.Sin(theta)
		dipRad := dips[i] * math.Pi / 180.0
		dx := math.Cos(dipRad) * widths[i]
		dz := math.Sin(dipRad) * widths[i]

		// Rotated coordinates of the top edge.
		r0x := cosT*p0x - sinT*p0y
		r0y := sinT*p0x + cosT*p0y
		r1x := cosT*p1x - sinT*p1y
		r1y := sinT*p1x + cosT*p1y

		// Down-dip corners in the rotated frame, rotated back.
		b3x := cosT*(r0x+dx) + sinT*r0y
		b3y := -sinT*(r0x+dx) + cosT*r0y
		b2x := cosT*(r1x+dx) + sinT*r1y
		b2y := -sinT*(r1x+dx) + cosT*r1y

		lon3, lat3 := proj.Inverse(b3x, b3y)
		lon2, lat2 := proj.Inverse(b2x, b2y)
		bot0[i] = Point{Lon: lon3, Lat: lat3, Depth: top0[i].Depth + dz}
		bot1[i] = Point{Lon: lon2, Lat: lat2, Depth: top1[i].Depth + dz}
	}
	return FromVertices(top0, top1, bot1, bot0, groupIndex, origin, reference)
}

// buildRings assembles closed polygon rings from quad vertices, one
// ring per contiguous group.
func buildRings(p0, p1, p2, p3 []Point, groupIndex []int) [][][3]float64 {
	var polys [][][3]float64
	n := len(p0)
	for i := 0; i < n; {
		j := i
		for j < n && groupIndex[j] == groupIndex[i] {
			j++
		}
		// Top edge in strike order, then the bottom edge back.
		ring := [][3]float64{{p0[i].Lon, p0[i].Lat, p0[i].Depth}}
		for k := i; k < j; k++ {
			ring = append(ring, [3]float64{p1[k].Lon, p1[k].Lat, p1[k].Depth})
		}
		for k := j - 1; k >= i; k-- {
			ring = append(ring, [3]float64{p2[k].Lon, p2[k].Lat, p2[k].Depth})
		}
		ring = append(ring, [3]float64{p3[i].Lon, p3[i].Lat, p3[i].Depth})
		ring = append(ring, ring[0])
		polys = append(polys, ring)
		i = j
	}
	return polys
}

// setQuadrilaterals extracts the quads from the GeoJSON rings. Quads
// are forced onto a plane by moving the P2 vertex and reversed when
// the dip direction is wrong.
func (q *QuadRupture) setQuadrilaterals() error {
	q.quads = nil
	q.groupIndex = nil
	for gi, poly := range q.fc.polygons() {
		seg := poly[:len(poly)-1] // drop the closing point
		npts := len(seg)
		if npts < 4 {
			return fmt.Errorf("polygon %d has too few points for a quad", gi)
		}
		nquads := (npts-4)/2 + 1
		start, end := 0, npts-1
		for j := 0; j < nquads; j++ {
			quad := [4]Point{
				{Lon: seg[start][0], Lat: seg[start][1], Depth: seg[start][2]},
				{Lon: seg[start+1][0], Lat: seg[start+1][1], Depth: seg[start+1][2]},
				{Lon: seg[end-1][0], Lat: seg[end-1][1], Depth: seg[end-1][2]},
				{Lon: seg[end][0], Lat: seg[end][1], Depth: seg[end][2]},
			}
			_, fixed := enforcePlane(quad)
			fixed = fixStrikeDirection(fixed)
			q.quads = append(q.quads, fixed)
			q.groupIndex = append(q.groupIndex, gi)
			start++
			end--
		}
	}
	if len(q.quads) == 0 {
		return fmt.Errorf("rupture document contains no quadrilaterals")
	}
	return nil
}

// enforcePlane reports whether the quad vertices are coplanar within
// tolerance and returns a quad with P2 moved onto the plane of the
// other three vertices.
func enforcePlane(q [4]Point) (bool, [4]Point) {
	p0 := q[0].ECEF()
	p1 := q[1].ECEF()
	p2 := q[2].ECEF()
	p3 := q[3].ECEF()

	topDir := r3.Unit(r3.Sub(p1, p0))
	botLen := r3.Norm(r3.Sub(p2, p3))

	// Rebuild P2 by extending from P3 in the top-edge direction.
	newP2 := r3.Add(p3, r3.Scale(botLen, topDir))
	off := distanceToPlane([3]r3.Vec{p0, p1, newP2}, p2)

	lat, lon, dep := ECEFToLatLon(newP2)
	fixed := q
	fixed[2] = Point{Lon: lon, Lat: lat, Depth: dep}

	onPlane := botLen == 0 || off/botLen <= offPlaneTolerance
	return onPlane, fixed
}

// fixStrikeDirection reverses the quad when its normal points into
// the earth, which happens when the vertices run against strike.
func fixStrikeDirection(q [4]Point) [4]Point {
	const eps = 1e-6
	p0 := q[0].ECEF()
	p1 := q[1].ECEF()
	p2 := q[2].ECEF()
	n := r3.Unit(r3.Cross(r3.Sub(p2, p0), r3.Sub(p1, p0)))
	_, _, tmpz := ECEFToLatLon(r3.Add(p0, n))
	if tmpz-q[0].Depth < eps {
		return q
	}
	return [4]Point{q[1], q[0], q[3], q[2]}
}

func (q *QuadRupture) Origin() *Origin   { return q.origin }
func (q *QuadRupture) Reference() string { return q.fc.reference() }

// Quadrilaterals returns the rupture quads.
func (q *QuadRupture) Quadrilaterals() [][4]Point {
	out := make([][4]Point, len(q.quads))
	copy(out, q.quads)
	return out
}

// GroupIndex returns the segment group of each quad.
func (q *QuadRupture) GroupIndex() []int {
	out := make([]int, len(q.groupIndex))
	copy(out, q.groupIndex)
	return out
}

// Rjb computes the Joyner-Boore distance in km for each site.
func (q *QuadRupture) Rjb(lons, lats, depths []float64) ([]float64, error) {
	if err := checkSites(lons, lats, depths); err != nil {
		return nil, err
	}
	return q.minQuadDistance(lons, lats, depths, true), nil
}

// Rrup computes the closest distance to the rupture surface in km
// for each site.
func (q *QuadRupture) Rrup(lons, lats, depths []float64) ([]float64, error) {
	if err := checkSites(lons, lats, depths); err != nil {
		return nil, err
	}
	return q.minQuadDistance(lons, lats, depths, false), nil
}

func (q *QuadRupture) minQuadDistance(lons, lats, depths []float64, horizontal bool) []float64 {
	sites := make([]r3.Vec, len(lons))
	for i := range lons {
		sites[i] = LatLonToECEF(lats[i], lons[i], depths[i])
	}
	min := make([]float64, len(sites))
	for i := range min {
		min[i] = math.Inf(1)
	}
	for _, quad := range q.quads {
		d := quadDistance(quad, sites, horizontal)
		for i := range min {
			if d[i] < min[i] {
				min[i] = d[i]
			}
		}
	}
	return min
}

// Length is the total length of the top edges in km.
func (q *QuadRupture) Length() float64 {
	var sum float64
	for _, quad := range q.quads {
		sum += quadLength(quad)
	}
	return sum
}

// Width is the mean down-dip width in km.
func (q *QuadRupture) Width() float64 {
	var sum float64
	for _, quad := range q.quads {
		sum += quadWidth(quad)
	}
	return sum / float64(len(q.quads)) / 1000.0
}

// Area is the total rupture area in square km.
func (q *QuadRupture) Area() float64 {
	var sum float64
	for _, quad := range q.quads {
		sum += quadWidth(quad) / 1000.0 * quadLength(quad)
	}
	return sum
}

// Strike is the length-weighted mean strike of the top edges in
// degrees clockwise from north.
func (q *QuadRupture) Strike() float64 {
	var xbar, ybar, wsum float64
	for _, quad := range q.quads {
		az := azimuth(quad[0], quad[1]) * math.Pi / 180.0
		l := quadLength(quad)
		xbar += math.Sin(az) * l
		ybar += math.Cos(az) * l
		wsum += l
	}
	return math.Atan2(xbar/wsum, ybar/wsum) * 180.0 / math.Pi
}

// Dip is the mean dip of the quads in degrees.
func (q *QuadRupture) Dip() float64 {
	var sum float64
	for _, quad := range q.quads {
		sum += quadDip(quad)
	}
	return sum / float64(len(q.quads))
}

// DepthToTop is the depth in km of the shallowest rupture vertex.
func (q *QuadRupture) DepthToTop() float64 {
	min := math.Inf(1)
	for _, quad := range q.quads {
		for _, p := range quad {
			if p.Depth < min {
				min = p.Depth
			}
		}
	}
	return min
}

// coordSlices returns one closed ring per quad with NaN separators
// between rings.
func (q *QuadRupture) coordSlices() (lons, lats, depths []float64) {
	for i, quad := range q.quads {
		if i > 0 {
			lons = append(lons, math.NaN())
			lats = append(lats, math.NaN())
			depths = append(depths, math.NaN())
		}
		for _, p := range []Point{quad[0], quad[1], quad[2], quad[3], quad[0]} {
			lons = append(lons, p.Lon)
			lats = append(lats, p.Lat)
			depths = append(depths, p.Depth)
		}
	}
	return lons, lats, depths
}

func (q *QuadRupture) Lons() []float64 {
	lons, _, _ := q.coordSlices()
	return lons
}

func (q *QuadRupture) Lats() []float64 {
	_, lats, _ := q.coordSlices()
	return lats
}

func (q *QuadRupture) Depths() []float64 {
	_, _, depths := q.coordSlices()
	return depths
}

// GeoJSON serializes the rupture document.
func (q *QuadRupture) GeoJSON() ([]byte, error) {
	return marshalGeoJSON(q.fc)
}

// Text renders the rupture in the legacy psxy text format, one closed
// polygon per quad.
func (q *QuadRupture) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%s\n", q.Reference())
	for _, quad := range q.quads {
		for _, p := range []Point{quad[0], quad[1], quad[2], quad[3], quad[0]} {
			fmt.Fprintf(&b, "%.4f %.4f %.4f\n", p.Lat, p.Lon, p.Depth)
		}
		b.WriteString(">\n")
	}
	return b.String()
}

// quadLength is the length of the quad top edge in km.
func quadLength(q [4]Point) float64 {
	return r3.Norm(r3.Sub(q[1].ECEF(), q[0].ECEF())) / 1000.0
}

// quadWidth is the down-dip width of the quad in meters, measured
// perpendicular to the top edge within the quad plane.
func quadWidth(q [4]Point) float64 {
	p0 := q[0].ECEF()
	p1 := q[1].ECEF()
	p3 := q[3].ECEF()
	ab := r3.Sub(p0, p1)
	ac := r3.Sub(p0, p3)
	t1 := r3.Unit(r3.Cross(r3.Cross(ab, ac), ab))
	return r3.Dot(t1, ac)
}

// quadNormal is the unit normal of the quad plane in ECEF.
func quadNormal(q [4]Point) r3.Vec {
	p0 := q[0].ECEF()
	v1 := r3.Sub(q[1].ECEF(), p0)
	v2 := r3.Sub(q[3].ECEF(), p0)
	return r3.Unit(r3.Cross(v2, v1))
}

// verticalVector is the local up direction at the quad's P0 vertex.
func verticalVector(q [4]Point) r3.Vec {
	up := q[0]
	up.Depth -= 1.0
	return r3.Unit(r3.Sub(up.ECEF(), q[0].ECEF()))
}

// quadDip is the dip of the quad plane in degrees.
func quadDip(q [4]Point) float64 {
	cosDip := r3.Dot(quadNormal(q), verticalVector(q))
	return math.Acos(math.Max(-1, math.Min(1, cosDip))) * 180.0 / math.Pi
}

// azimuth is the initial great-circle bearing from a to b in degrees
// clockwise from north.
func azimuth(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dlon := (b.Lon - a.Lon) * math.Pi / 180.0
	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	az := math.Atan2(y, x) * 180.0 / math.Pi
	if az < 0 {
		az += 360
	}
	return az
}

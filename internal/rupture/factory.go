// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package rupture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// DefaultMeshDx is the default discretization (km) for edge ruptures.
const DefaultMeshDx = 0.5

// Get reads a rupture file for the given origin. The file may be a
// GeoJSON document or a legacy ShakeMap 3 psxy text file. An empty
// path returns a PointRupture. The result is a QuadRupture when the
// geometry fits horizontal coplanar quads, otherwise an EdgeRupture
// meshed at meshDx km.
func Get(origin *Origin, path string, meshDx float64) (Rupture, error) {
	if path == "" {
		return NewPointRupture(origin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(origin, raw, meshDx)
}

// FromBytes builds a rupture from raw file contents, trying GeoJSON
// first and falling back to the text format.
func FromBytes(origin *Origin, raw []byte, meshDx float64) (Rupture, error) {
	if meshDx <= 0 {
		meshDx = DefaultMeshDx
	}
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err == nil {
		return fromGeoJSON(&fc, origin, meshDx)
	}
	fc2, err := textToGeoJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("unknown rupture file format: %w", err)
	}
	return fromGeoJSON(fc2, origin, meshDx)
}

// fromGeoJSON validates a rupture document and returns the rupture
// class matching its geometry.
func fromGeoJSON(fc *featureCollection, origin *Origin, meshDx float64) (Rupture, error) {
	if err := validateFeatureCollection(fc); err != nil {
		return nil, err
	}
	if isQuadClass(fc) {
		return NewQuadRupture(fc, origin)
	}
	return NewEdgeRupture(fc, origin, meshDx)
}

// isQuadClass reports whether every polygon in the document has
// horizontal top and bottom edges and coplanar quads, so it can be
// represented by a QuadRupture.
func isQuadClass(fc *featureCollection) bool {
	for _, poly := range fc.polygons() {
		n := len(poly)
		pairs := (n - 1) / 2

		// Top and bottom edges must be horizontal.
		for j := 1; j < pairs; j++ {
			if math.Abs(poly[j][2]-poly[0][2]) > depthTolerance {
				return false
			}
		}
		for j := pairs + 1; j < n-1; j++ {
			if math.Abs(poly[j][2]-poly[pairs][2]) > depthTolerance {
				return false
			}
		}

		// Each quad must be coplanar within tolerance.
		for j := 0; j < pairs-1; j++ {
			quad := [4]Point{
				{Lon: poly[j][0], Lat: poly[j][1], Depth: poly[j][2]},
				{Lon: poly[j+1][0], Lat: poly[j+1][1], Depth: poly[j+1][2]},
				{Lon: poly[n-3-j][0], Lat: poly[n-3-j][1], Depth: poly[n-3-j][2]},
				{Lon: poly[n-2-j][0], Lat: poly[n-2-j][1], Depth: poly[n-2-j][2]},
			}
			if ok, _ := enforcePlane(quad); !ok {
				return false
			}
		}
	}
	return true
}

// textToGeoJSON converts the legacy ShakeMap 3 psxy rupture format to
// a GeoJSON document. Vertices are "lat lon depth" triplets, segments
// are separated by ">" lines, and comment lines start with "#" and
// accumulate into the reference.
func textToGeoJSON(raw []byte) (*featureCollection, error) {
	var polys [][][3]float64
	var poly [][3]float64
	var reference strings.Builder

	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			reference.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "#")))
		case strings.HasPrefix(line, ">"):
			if len(poly) > 0 {
				polys = append(polys, poly)
				poly = nil
			}
		default:
			fields := strings.Fields(line)
			if len(fields) < 3 {
				return nil, fmt.Errorf("rupture vertex %q has no depth value", line)
			}
			lat, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fmt.Errorf("parsing latitude %q: %w", fields[0], err)
			}
			lon, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("parsing longitude %q: %w", fields[1], err)
			}
			dep, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("parsing depth %q: %w", fields[2], err)
			}
			poly = append(poly, [3]float64{lon, lat, dep})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(poly) > 0 {
		polys = append(polys, poly)
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("rupture text contains no vertices")
	}
	return newFeatureCollection(polys, nil, reference.String()), nil
}

// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// Package grid provides the regular geographic grids that ground
// motion fields are computed on. A grid pairs a row-major data matrix
// with a GeoDict describing its geographic extent; the first row is
// the northern edge.
package grid

import (
	"encoding/binary"
	"fmt"
	"math"
)

// GeoDict describes the extent and resolution of a regular grid.
// Cell registration is node-based: xmin/ymax is the center of the
// upper-left cell.
type GeoDict struct {
	Xmin float64 `yaml:"xmin" json:"xmin"`
	Xmax float64 `yaml:"xmax" json:"xmax"`
	Ymin float64 `yaml:"ymin" json:"ymin"`
	Ymax float64 `yaml:"ymax" json:"ymax"`
	Dx   float64 `yaml:"dx" json:"dx"`
	Dy   float64 `yaml:"dy" json:"dy"`
	Nx   int     `yaml:"nx" json:"nx"`
	Ny   int     `yaml:"ny" json:"ny"`
}

// Validate checks that the extent, resolution and dimensions agree.
func (g GeoDict) Validate() error {
	if g.Nx < 2 || g.Ny < 2 {
		return fmt.Errorf("grid must be at least 2x2, got %dx%d", g.Nx, g.Ny)
	}
	if g.Dx <= 0 || g.Dy <= 0 {
		return fmt.Errorf("grid resolution must be positive, got dx=%g dy=%g", g.Dx, g.Dy)
	}
	if nx := int(math.Round((g.Xmax-g.Xmin)/g.Dx)) + 1; nx != g.Nx {
		return fmt.Errorf("extent %g to %g at dx %g implies nx %d, got %d",
			g.Xmin, g.Xmax, g.Dx, nx, g.Nx)
	}
	if ny := int(math.Round((g.Ymax-g.Ymin)/g.Dy)) + 1; ny != g.Ny {
		return fmt.Errorf("extent %g to %g at dy %g implies ny %d, got %d",
			g.Ymin, g.Ymax, g.Dy, ny, g.Ny)
	}
	return nil
}

// Contains reports whether a geographic point falls inside the grid
// extent.
func (g GeoDict) Contains(lat, lon float64) bool {
	return lon >= g.Xmin && lon <= g.Xmax && lat >= g.Ymin && lat <= g.Ymax
}

// Grid2D is a regular grid of float64 samples. Data is row-major with
// row zero at Ymax.
type Grid2D struct {
	GeoDict GeoDict
	Data    []float64
}

// New allocates a grid for the given GeoDict, filled with NaN.
func New(gd GeoDict) (*Grid2D, error) {
	if err := gd.Validate(); err != nil {
		return nil, err
	}
	data := make([]float64, gd.Nx*gd.Ny)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Grid2D{GeoDict: gd, Data: data}, nil
}

// FromData wraps an existing row-major data slice.
func FromData(gd GeoDict, data []float64) (*Grid2D, error) {
	if err := gd.Validate(); err != nil {
		return nil, err
	}
	if len(data) != gd.Nx*gd.Ny {
		return nil, fmt.Errorf("grid %dx%d needs %d samples, got %d",
			gd.Nx, gd.Ny, gd.Nx*gd.Ny, len(data))
	}
	return &Grid2D{GeoDict: gd, Data: data}, nil
}

// At returns the sample at row i (from the north), column j.
func (g *Grid2D) At(i, j int) float64 {
	return g.Data[i*g.GeoDict.Nx+j]
}

// Set stores a sample at row i, column j.
func (g *Grid2D) Set(i, j int, v float64) {
	g.Data[i*g.GeoDict.Nx+j] = v
}

// LatLon returns the geographic coordinates of the node at row i,
// column j.
func (g *Grid2D) LatLon(i, j int) (lat, lon float64) {
	return g.GeoDict.Ymax - float64(i)*g.GeoDict.Dy,
		g.GeoDict.Xmin + float64(j)*g.GeoDict.Dx
}

// Value interpolates the grid bilinearly at a geographic point.
// Points outside the extent return an error.
func (g *Grid2D) Value(lat, lon float64) (float64, error) {
	gd := g.GeoDict
	if !gd.Contains(lat, lon) {
		return math.NaN(), fmt.Errorf("point %g, %g is outside the grid extent", lat, lon)
	}
	fx := (lon - gd.Xmin) / gd.Dx
	fy := (gd.Ymax - lat) / gd.Dy
	j0 := int(math.Floor(fx))
	i0 := int(math.Floor(fy))
	if j0 >= gd.Nx-1 {
		j0 = gd.Nx - 2
	}
	if i0 >= gd.Ny-1 {
		i0 = gd.Ny - 2
	}
	tx := fx - float64(j0)
	ty := fy - float64(i0)

	v00 := g.At(i0, j0)
	v01 := g.At(i0, j0+1)
	v10 := g.At(i0+1, j0)
	v11 := g.At(i0+1, j0+1)
	top := v00 + tx*(v01-v00)
	bot := v10 + tx*(v11-v10)
	return top + ty*(bot-top), nil
}

// Marshal encodes the samples as little-endian float64 bytes.
func (g *Grid2D) Marshal() []byte {
	buf := make([]byte, 8*len(g.Data))
	for i, v := range g.Data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Unmarshal decodes samples produced by Marshal into a grid matching
// the GeoDict.
func Unmarshal(gd GeoDict, buf []byte) (*Grid2D, error) {
	if err := gd.Validate(); err != nil {
		return nil, err
	}
	want := gd.Nx * gd.Ny * 8
	if len(buf) != want {
		return nil, fmt.Errorf("grid %dx%d needs %d bytes, got %d",
			gd.Nx, gd.Ny, want, len(buf))
	}
	data := make([]float64, gd.Nx*gd.Ny)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return &Grid2D{GeoDict: gd, Data: data}, nil
}

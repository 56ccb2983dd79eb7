package grid

import (
	"math"
	"testing"
)

func testGeoDict() GeoDict {
	return GeoDict{
		Xmin: -119.0, Xmax: -117.0,
		Ymin: 33.0, Ymax: 35.0,
		Dx: 0.5, Dy: 0.5,
		Nx: 5, Ny: 5,
	}
}

func TestGeoDictValidate(t *testing.T) {
	gd := testGeoDict()
	if err := gd.Validate(); err != nil {
		t.Fatalf("valid GeoDict rejected: %v", err)
	}

	bad := gd
	bad.Nx = 7
	if err := bad.Validate(); err == nil {
		t.Error("expected error for inconsistent nx")
	}
	bad = gd
	bad.Dy = -0.5
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative dy")
	}
}

func TestGridValueBilinear(t *testing.T) {
	g, err := New(testGeoDict())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	// Fill with a plane so bilinear interpolation is exact:
	// v = 2*lon + 3*lat.
	for i := 0; i < g.GeoDict.Ny; i++ {
		for j := 0; j < g.GeoDict.Nx; j++ {
			lat, lon := g.LatLon(i, j)
			g.Set(i, j, 2*lon+3*lat)
		}
	}

	cases := []struct{ lat, lon float64 }{
		{33.0, -119.0}, // corner
		{35.0, -117.0}, // opposite corner
		{34.13, -118.27},
		{33.75, -117.5}, // on a node
	}
	for _, c := range cases {
		got, err := g.Value(c.lat, c.lon)
		if err != nil {
			t.Fatalf("Value(%g, %g) failed: %v", c.lat, c.lon, err)
		}
		want := 2*c.lon + 3*c.lat
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("Value(%g, %g) = %g, want %g", c.lat, c.lon, got, want)
		}
	}

	if _, err := g.Value(36.0, -118.0); err == nil {
		t.Error("expected error for point outside the grid")
	}
}

func TestGridMarshalRoundTrip(t *testing.T) {
	g, err := New(testGeoDict())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := range g.Data {
		g.Data[i] = float64(i) * 0.25
	}
	g.Set(2, 2, math.NaN())

	g2, err := Unmarshal(g.GeoDict, g.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for i := range g.Data {
		a, b := g.Data[i], g2.Data[i]
		if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
			t.Fatalf("sample %d changed across round trip: %g vs %g", i, a, b)
		}
	}

	if _, err := Unmarshal(g.GeoDict, g.Marshal()[:8]); err == nil {
		t.Error("expected error for truncated payload")
	}
}

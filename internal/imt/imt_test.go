package imt_test

import (
	"testing"

	"github.com/seisio/shakelib/internal/imt"
)

func TestToFileName(t *testing.T) {
	cases := map[string]string{
		"SA(1.0)":  "PSA1p0",
		"SA(0.3)":  "PSA0p3",
		"SA(15.0)": "PSA15p0",
		"SA(3)":    "PSA3p0",
		"SA(.5)":   "PSA0p5",
		"PGA":      "PGA",
		"PGV":      "PGV",
		"MMI":      "MMI",
	}
	for in, want := range cases {
		got, err := imt.ToFileName(in)
		if err != nil {
			t.Fatalf("ToFileName(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ToFileName(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := imt.ToFileName("SA()"); err == nil {
		t.Errorf("expected error for IMT with no period")
	}
}

func TestFromFileName(t *testing.T) {
	cases := map[string]string{
		"PSA1p0":  "SA(1.0)",
		"PSA0p3":  "SA(0.3)",
		"PSA15p0": "SA(15.0)",
		"PGA":     "PGA",
		"MMI":     "MMI",
	}
	for in, want := range cases {
		got, err := imt.FromFileName(in)
		if err != nil {
			t.Fatalf("FromFileName(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("FromFileName(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := imt.FromFileName("SA1p0"); err == nil {
		t.Errorf("expected error for unknown prefix")
	}
	if _, err := imt.FromFileName("PSA10"); err == nil {
		t.Errorf("expected error for missing p separator")
	}
}

func TestChannelPeriod(t *testing.T) {
	cases := map[string]float64{
		"psa03": 0.3,
		"psa10": 1.0,
		"psa30": 3.0,
	}
	for in, want := range cases {
		got, err := imt.ChannelPeriod(in)
		if err != nil {
			t.Fatalf("ChannelPeriod(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ChannelPeriod(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := imt.ChannelPeriod("pga"); err == nil {
		t.Errorf("expected error for non-spectral tag")
	}
}

func TestSort(t *testing.T) {
	names := []string{"SA(3.0)", "PGV", "SA(0.3)", "MMI", "PGA", "SA(1.0)"}
	imt.Sort(names)
	want := []string{"MMI", "PGA", "PGV", "SA(0.3)", "SA(1.0)", "SA(3.0)"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("sort order %v, want %v", names, want)
		}
	}
}

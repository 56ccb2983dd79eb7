package gmpe

import (
	"testing"
)

func TestRegistryLoadsBuiltinSets(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	s, err := r.Get("nshmp14_acr")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	wantModels := []string{
		"AbrahamsonEtAl2014",
		"BooreEtAl2014",
		"CampbellBozorgnia2014",
		"ChiouYoungs2014",
	}
	if len(s.GMPEs) != len(wantModels) {
		t.Fatalf("expected %d models, got %d", len(wantModels), len(s.GMPEs))
	}
	for i, name := range wantModels {
		if s.GMPEs[i] != name {
			t.Errorf("model %d: got %s, want %s", i, s.GMPEs[i], name)
		}
		if s.Weights[i] != 0.25 {
			t.Errorf("model %d: got weight %g, want 0.25", i, s.Weights[i])
		}
	}
	if len(s.WeightsLargeDist) != 0 || s.DistCutoff != 0 || len(s.SiteGMPEs) != 0 {
		t.Error("nshmp14_acr should not carry large-distance weights or site models")
	}

	if _, err := r.Get("nope"); err == nil {
		t.Error("expected error for unknown set")
	}
}

func TestStableContinentalSet(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	s, err := r.Get("nshmp14_scr_grd")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	wantModels := []string{
		"FrankelEtAl1996MwNSHMP2008",
		"ToroEtAl1997MwNSHMP2008",
		"SilvaEtAl2002MwNSHMP2008",
		"Campbell2003MwNSHMP2008",
		"TavakoliPezeshk2005MwNSHMP2008",
		"AtkinsonBoore2006Modified2011",
		"PezeshkEtAl2011",
		"Atkinson2008prime",
		"SomervilleEtAl2001NSHMP2008",
	}
	wantWeights := []float64{0.06, 0.13, 0.06, 0.13, 0.13, 0.25, 0.16, 0.08, 0.0}
	wantLargeDist := []float64{0.16, 0.0, 0.0, 0.17, 0.17, 0.3, 0.2, 0.0, 0.0}

	if len(s.GMPEs) != len(wantModels) {
		t.Fatalf("expected %d models, got %d", len(wantModels), len(s.GMPEs))
	}
	for i := range wantModels {
		if s.GMPEs[i] != wantModels[i] {
			t.Errorf("model %d: got %s, want %s", i, s.GMPEs[i], wantModels[i])
		}
		if s.Weights[i] != wantWeights[i] {
			t.Errorf("weight %d: got %g, want %g", i, s.Weights[i], wantWeights[i])
		}
		if s.WeightsLargeDist[i] != wantLargeDist[i] {
			t.Errorf("large-distance weight %d: got %g, want %g",
				i, s.WeightsLargeDist[i], wantLargeDist[i])
		}
	}
	if s.DistCutoff != 500 {
		t.Errorf("dist_cutoff = %g, want 500", s.DistCutoff)
	}
	if len(s.SiteGMPEs) != 1 || s.SiteGMPEs[0] != "AtkinsonBoore2006Modified2011" {
		t.Errorf("site_gmpes = %v", s.SiteGMPEs)
	}

	// The second weighting takes over beyond the cutoff.
	if w := s.WeightsAt(501); w[0] != 0.16 {
		t.Errorf("expected large-distance weights beyond 500 km, got %v", w)
	}
	if w := s.WeightsAt(499); w[0] != 0.06 {
		t.Errorf("expected primary weights inside 500 km, got %v", w)
	}
}

func TestIntraslabSet(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	s, err := r.Get("nshmp14_sub_s")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	wantModels := []string{
		"AtkinsonBoore2003SSlab",
		"AtkinsonBoore2003SSlabCascadia",
		"ZhaoEtAl2006SSlab",
		"AbrahamsonEtAl2015SSlab",
	}
	if len(s.GMPEs) != len(wantModels) {
		t.Fatalf("expected %d models, got %d", len(wantModels), len(s.GMPEs))
	}
	for i := range wantModels {
		if s.GMPEs[i] != wantModels[i] {
			t.Errorf("model %d: got %s, want %s", i, s.GMPEs[i], wantModels[i])
		}
	}
	// The Cascadia variants share the slab weight evenly.
	if s.Weights[0] != 0.1667 || s.Weights[2] != 0.3333 {
		t.Errorf("unexpected weights: %v", s.Weights)
	}
}

func TestRegistryNames(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	names := r.Names()
	if len(names) < 4 {
		t.Fatalf("expected at least 4 sets, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %s before %s", names[i-1], names[i])
		}
	}
	found := false
	for _, n := range names {
		if n == DefaultSet {
			found = true
		}
	}
	if !found {
		t.Errorf("default set %s missing from registry", DefaultSet)
	}
}

func TestSetValidation(t *testing.T) {
	bad := []byte(`
gmpe_sets:
  broken:
    gmpes: [A, B]
    weights: [0.5, 0.6]
`)
	if _, err := newRegistryFromYAML(bad); err == nil {
		t.Error("expected error for weights not summing to one")
	}

	bad = []byte(`
gmpe_sets:
  broken:
    gmpes: [A, B]
    weights: [1.0]
`)
	if _, err := newRegistryFromYAML(bad); err == nil {
		t.Error("expected error for weight count mismatch")
	}
}

func TestWeightsAt(t *testing.T) {
	s := &Set{
		Name:             "test",
		GMPEs:            []string{"A", "B"},
		Weights:          []float64{0.6, 0.4},
		WeightsLargeDist: []float64{0.2, 0.8},
		DistCutoff:       100,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if w := s.WeightsAt(50); w[0] != 0.6 {
		t.Errorf("expected primary weights below the cutoff, got %v", w)
	}
	if w := s.WeightsAt(150); w[0] != 0.2 {
		t.Errorf("expected large-distance weights beyond the cutoff, got %v", w)
	}
}

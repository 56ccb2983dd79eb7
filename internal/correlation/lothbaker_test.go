package correlation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCorrelationAtZeroDistance(t *testing.T) {
	m := NewLothBaker2013()

	// At zero separation and equal periods the three tables sum to
	// roughly unit variance.
	for _, period := range []float64{0.01, 0.1, 0.5, 1, 5, 10} {
		rho, err := m.Correlation(period, period, 0)
		if err != nil {
			t.Fatalf("Correlation(%g, %g, 0) failed: %v", period, period, err)
		}
		if rho < 0.95 || rho > 1.05 {
			t.Errorf("expected near-unit correlation at h=0 for T=%g, got %g", period, rho)
		}
	}
}

func TestCorrelationTableValues(t *testing.T) {
	m := NewLothBaker2013()

	// On a table node with h > 0 the nugget term drops out:
	// rho = b1*exp(-3h/20) + b2*exp(-3h/70).
	h := 10.0
	want := 0.32*math.Exp(-3.0*h/20.0) + 0.38*math.Exp(-3.0*h/70.0)
	rho, err := m.Correlation(1.0, 1.0, h)
	if err != nil {
		t.Fatalf("Correlation failed: %v", err)
	}
	if math.Abs(rho-want) > 1e-12 {
		t.Errorf("Correlation(1, 1, 10) = %g, want %g", rho, want)
	}

	// Cross-period entry: T1=0.1, T2=2 has b1=0 and b2=0.
	rho, err = m.Correlation(0.1, 2.0, h)
	if err != nil {
		t.Fatalf("Correlation failed: %v", err)
	}
	if math.Abs(rho) > 1e-12 {
		t.Errorf("Correlation(0.1, 2, 10) = %g, want 0", rho)
	}
}

func TestCorrelationSymmetry(t *testing.T) {
	m := NewLothBaker2013()
	a, err := m.Correlation(0.3, 4.2, 15)
	if err != nil {
		t.Fatalf("Correlation failed: %v", err)
	}
	b, err := m.Correlation(4.2, 0.3, 15)
	if err != nil {
		t.Fatalf("Correlation failed: %v", err)
	}
	if math.Abs(a-b) > 1e-12 {
		t.Errorf("correlation is not symmetric in period order: %g vs %g", a, b)
	}
}

func TestCorrelationDecreasesWithDistance(t *testing.T) {
	m := NewLothBaker2013()
	last := math.Inf(1)
	for _, h := range []float64{0, 1, 5, 20, 100} {
		rho, err := m.Correlation(1.0, 1.0, h)
		if err != nil {
			t.Fatalf("Correlation failed: %v", err)
		}
		if rho >= last {
			t.Errorf("correlation should decrease with distance, got %g at h=%g", rho, h)
		}
		last = rho
	}
}

func TestCorrelationRejectsBadInput(t *testing.T) {
	m := NewLothBaker2013()
	if _, err := m.Correlation(0.005, 1, 10); err == nil {
		t.Error("expected error for period below 0.01 s")
	}
	if _, err := m.Correlation(1, 11, 10); err == nil {
		t.Error("expected error for period above 10 s")
	}
	if _, err := m.Correlation(1, 1, -1); err == nil {
		t.Error("expected error for negative distance")
	}
}

func TestCorrelationMatrix(t *testing.T) {
	m := NewLothBaker2013()
	dist := mat.NewSymDense(3, []float64{
		0, 10, 20,
		10, 0, 10,
		20, 10, 0,
	})
	cm, err := m.CorrelationMatrix(1.0, dist)
	if err != nil {
		t.Fatalf("CorrelationMatrix failed: %v", err)
	}
	if d := cm.At(0, 0); d < 0.95 || d > 1.05 {
		t.Errorf("expected near-unit diagonal, got %g", d)
	}
	if cm.At(0, 1) != cm.At(1, 0) {
		t.Error("correlation matrix should be symmetric")
	}
	if cm.At(0, 2) >= cm.At(0, 1) {
		t.Error("more distant sites should be less correlated")
	}
}

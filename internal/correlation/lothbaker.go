// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// Package correlation implements spatial cross-correlation models for
// ground motion residuals.
package correlation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Periods (s) at which the Loth-Baker coregionalization matrices are
// tabulated. The last entry is nudged past 10 so a request at exactly
// 10 s stays inside the table.
var lbPeriods = []float64{0.01, 0.1, 0.2, 0.5, 1, 2, 5, 7.5, 10.0001}

// Loth & Baker (2013), table II. Short range coregionalization.
var lbB1 = mat.NewDense(9, 9, []float64{
	0.30, 0.24, 0.23, 0.22, 0.16, 0.07, 0.03, 0, 0,
	0.24, 0.27, 0.19, 0.13, 0.08, 0, 0, 0, 0,
	0.23, 0.19, 0.26, 0.19, 0.12, 0.04, 0, 0, 0,
	0.22, 0.13, 0.19, 0.32, 0.23, 0.14, 0.09, 0.06, 0.04,
	0.16, 0.08, 0.12, 0.23, 0.32, 0.22, 0.13, 0.09, 0.07,
	0.07, 0, 0.04, 0.14, 0.22, 0.33, 0.23, 0.19, 0.16,
	0.03, 0, 0, 0.09, 0.13, 0.23, 0.34, 0.29, 0.24,
	0, 0, 0, 0.06, 0.09, 0.19, 0.29, 0.30, 0.25,
	0, 0, 0, 0.04, 0.07, 0.16, 0.24, 0.25, 0.24,
})

// Table III. Long range coregionalization.
var lbB2 = mat.NewDense(9, 9, []float64{
	0.31, 0.26, 0.27, 0.24, 0.17, 0.11, 0.08, 0.06, 0.05,
	0.26, 0.29, 0.22, 0.15, 0.07, 0, 0, 0, -0.03,
	0.27, 0.22, 0.29, 0.24, 0.15, 0.09, 0.03, 0.02, 0,
	0.24, 0.15, 0.24, 0.33, 0.27, 0.23, 0.17, 0.14, 0.14,
	0.17, 0.07, 0.15, 0.27, 0.38, 0.34, 0.23, 0.19, 0.21,
	0.11, 0, 0.09, 0.23, 0.34, 0.44, 0.33, 0.29, 0.32,
	0.08, 0, 0.03, 0.17, 0.23, 0.33, 0.45, 0.42, 0.42,
	0.06, 0, 0.02, 0.14, 0.19, 0.29, 0.42, 0.47, 0.47,
	0.05, -0.03, 0, 0.14, 0.21, 0.32, 0.42, 0.47, 0.54,
})

// Table IV. Nugget effect coregionalization.
var lbB3 = mat.NewDense(9, 9, []float64{
	0.38, 0.36, 0.35, 0.17, 0.04, 0.04, 0, 0.03, 0.08,
	0.36, 0.43, 0.35, 0.13, 0, 0.02, 0, 0.02, 0.08,
	0.35, 0.35, 0.45, 0.11, -0.04, -0.02, -0.04, -0.02, 0.03,
	0.17, 0.13, 0.11, 0.35, 0.2, 0.06, 0.02, 0.04, 0.02,
	0.04, 0, -0.04, 0.20, 0.30, 0.14, 0.09, 0.12, 0.04,
	0.04, 0.02, -0.02, 0.06, 0.14, 0.22, 0.12, 0.13, 0.09,
	0, 0, -0.04, 0.02, 0.09, 0.12, 0.21, 0.17, 0.13,
	0.03, 0.02, -0.02, 0.04, 0.12, 0.13, 0.17, 0.23, 0.10,
	0.08, 0.08, 0.03, 0.02, 0.04, 0.09, 0.13, 0.10, 0.22,
})

// LothBaker2013 is the spatial cross-correlation model of Loth and
// Baker (2013) for spectral accelerations between 0.01 s and 10 s,
// fitted to the NGA ground motion models.
//
// Loth, C., and Baker, J. W. (2013). A spatial cross-correlation model
// of ground motion spectral accelerations at multiple periods.
// Earthquake Engineering & Structural Dynamics, 42, 397-417.
type LothBaker2013 struct {
	b1, b2, b3 *mat.Dense
}

// NewLothBaker2013 returns the model backed by the published tables.
func NewLothBaker2013() *LothBaker2013 {
	return &LothBaker2013{b1: lbB1, b2: lbB2, b3: lbB3}
}

// Correlation returns the predicted correlation coefficient between
// spectral periods t1 and t2 (s) at sites separated by h km. The
// periods may be equal and their order does not matter.
func (m *LothBaker2013) Correlation(t1, t2, h float64) (float64, error) {
	if t1 < 0.01 || t2 < 0.01 {
		return 0, fmt.Errorf("periods must be at least 0.01 s, got %g and %g", t1, t2)
	}
	if t1 > 10 || t2 > 10 {
		return 0, fmt.Errorf("periods must be at most 10 s, got %g and %g", t1, t2)
	}
	if h < 0 {
		return 0, fmt.Errorf("separation distance must not be negative, got %g", h)
	}

	b1 := interpTable(m.b1, t1, t2)
	b2 := interpTable(m.b2, t1, t2)

	// Equation 42.
	rho := b1*math.Exp(-3.0*h/20.0) + b2*math.Exp(-3.0*h/70.0)
	if h == 0 {
		rho += interpTable(m.b3, t1, t2)
	}
	return rho, nil
}

// CorrelationMatrix fills dst with the correlations between every
// pair of sites for a single period, given the full symmetric
// distance matrix in km.
func (m *LothBaker2013) CorrelationMatrix(period float64, dist *mat.SymDense) (*mat.SymDense, error) {
	n := dist.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			rho, err := m.Correlation(period, period, dist.At(i, j))
			if err != nil {
				return nil, err
			}
			out.SetSym(i, j, rho)
		}
	}
	return out, nil
}

// interpTable bilinearly interpolates a coregionalization table at
// the period pair (t1, t2).
func interpTable(b *mat.Dense, t1, t2 float64) float64 {
	i0, fi := bracket(t1)
	j0, fj := bracket(t2)
	v00 := b.At(i0, j0)
	v01 := b.At(i0, j0+1)
	v10 := b.At(i0+1, j0)
	v11 := b.At(i0+1, j0+1)
	top := v00 + fj*(v01-v00)
	bot := v10 + fj*(v11-v10)
	return top + fi*(bot-top)
}

// bracket locates the table interval containing t and the fractional
// position within it.
func bracket(t float64) (int, float64) {
	n := len(lbPeriods)
	i := sort.SearchFloat64s(lbPeriods, t)
	switch {
	case i <= 0:
		return 0, 0
	case i >= n:
		return n - 2, 1
	default:
		i--
		return i, (t - lbPeriods[i]) / (lbPeriods[i+1] - lbPeriods[i])
	}
}

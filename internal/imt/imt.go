// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// package imt handles intensity measure type (IMT) names. ShakeMap uses
// the OpenQuake nomenclature internally ("PGA", "PGV", "MMI", "SA(1.0)")
// and a filename-friendly form ("PSA1p0") for products on disk.
package imt

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	periodPattern  = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)
	channelPattern = regexp.MustCompile(`psa(\d+)`)
)

// ToFileName converts an OpenQuake IMT name to its filename-friendly form.
//
//	SA(1.0)  -> PSA1p0
//	SA(0.3)  -> PSA0p3
//	SA(15.0) -> PSA15p0
//	SA(3)    -> PSA3p0
//	SA(.5)   -> PSA0p5
//
// PGA, PGV and MMI pass through unchanged.
func ToFileName(oqimt string) (string, error) {
	switch oqimt {
	case "PGA", "PGV", "MMI":
		return oqimt, nil
	}
	period := periodPattern.FindString(oqimt)
	if period == "" {
		return "", fmt.Errorf("IMT %q has no filename-friendly representation", oqimt)
	}
	integer, fraction, found := strings.Cut(period, ".")
	if !found {
		fraction = "0"
	}
	if integer == "" {
		integer = "0"
	}
	return fmt.Sprintf("PSA%sp%s", integer, fraction), nil
}

// FromFileName converts a filename-friendly IMT back to OpenQuake form.
//
//	PSA1p0  -> SA(1.0)
//	PSA0p3  -> SA(0.3)
//	PSA15p0 -> SA(15.0)
func FromFileName(fileimt string) (string, error) {
	switch fileimt {
	case "PGA", "PGV", "MMI":
		return fileimt, nil
	}
	if !strings.HasPrefix(fileimt, "PSA") {
		return "", fmt.Errorf("unknown file IMT %q", fileimt)
	}
	integer, fraction, found := strings.Cut(strings.TrimPrefix(fileimt, "PSA"), "p")
	if !found || integer == "" || fraction == "" {
		return "", fmt.Errorf("malformed file IMT %q", fileimt)
	}
	return fmt.Sprintf("SA(%s.%s)", integer, fraction), nil
}

// ChannelPeriod extracts the spectral period from a legacy input channel
// tag such as "psa03" (0.3 s) or "psa10" (1.0 s). The last digit is the
// first decimal place.
func ChannelPeriod(tag string) (float64, error) {
	m := channelPattern.FindStringSubmatch(tag)
	if m == nil {
		return 0, fmt.Errorf("channel tag %q carries no spectral period", tag)
	}
	digits := m[1]
	return strconv.ParseFloat(digits[:len(digits)-1]+"."+digits[len(digits)-1:], 64)
}

// Period returns the spectral period of an SA(...) IMT, or 0 for the
// non-spectral types.
func Period(oqimt string) (float64, error) {
	switch oqimt {
	case "PGA", "PGV", "MMI":
		return 0, nil
	}
	if strings.HasPrefix(oqimt, "SA(") && strings.HasSuffix(oqimt, ")") {
		return strconv.ParseFloat(oqimt[3:len(oqimt)-1], 64)
	}
	return 0, fmt.Errorf("unknown IMT %q", oqimt)
}

// sortKey orders IMTs canonically: MMI, PGA, PGV, then SA by period.
func sortKey(name string) (float64, error) {
	switch name {
	case "MMI":
		return 0, nil
	case "PGA":
		return 1, nil
	case "PGV":
		return 2, nil
	}
	p, err := Period(name)
	if err != nil {
		return 0, err
	}
	return 2 + p, nil
}

// Sort orders a slice of IMT names in place into the canonical order.
// Unknown names sort last, alphabetically.
func Sort(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ki, erri := sortKey(names[i])
		kj, errj := sortKey(names[j])
		if erri != nil || errj != nil {
			if erri == nil {
				return true
			}
			if errj == nil {
				return false
			}
			return names[i] < names[j]
		}
		return ki < kj
	})
}

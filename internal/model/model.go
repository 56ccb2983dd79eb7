// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core domain entities shared across the
// application: seismic stations, recorded amplitudes, and audit entries.
package model

import "fmt"

// Station represents a single observation site, either an instrumented
// seismic station or an aggregated macroseismic ("Did You Feel It?") cell.
type Station struct {
	ID           string // network.code
	Network      string
	Code         string
	Name         string
	Lat          float64
	Lon          float64
	Elev         float64
	Vs30         float64
	Instrumented bool
}

// String returns the network.code representation.
func (s Station) String() string {
	return fmt.Sprintf("%s.%s", s.Network, s.Code)
}

// Amplitude is one peak ground-motion observation for a station channel.
// Values for PGA and spectral accelerations are natural-log g, PGV is
// natural-log cm/s, MMI is in intensity units.
type Amplitude struct {
	ID          int
	StationID   string
	IMT         string
	Channel     string
	Orientation string // N, E, Z, H (horizontal) or U (unknown)
	Value       float64
	Uncertainty float64
	Flag        string // "0" means unflagged/usable
	Null        bool   // true when the raw value was missing or non-positive
}

// AuditLogEntry records a mutating operation against a station store.
type AuditLogEntry struct {
	ID        int
	Timestamp string
	Action    string
	Details   string
}

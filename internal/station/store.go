// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package station

import (
	"errors"

	"github.com/seisio/shakelib/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("station: not found")

// Store defines the interface for all station database operations.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Station methods
	Stations(instrumented bool) ([]model.Station, error)
	StationCount(instrumented bool) (int, error)
	GetStation(id string) (*model.Station, error)

	// IMT methods
	IMTTypes() (map[string]int, error)
	AddIMTTypes(names []string) error

	// Amplitude methods
	Amplitudes(stationID string) ([]model.Amplitude, error)
	AmplitudeKeys() (map[string]bool, error)

	// Ingest methods
	Merge(records map[string]*Record, imts map[string]bool) error

	// Observation table extraction
	Table(instrumented bool) (*Table, error)

	// Audit log methods
	LogAction(action, details string) error
	AuditLog() ([]model.AuditLogEntry, error)

	Close() error
}

// Table is the flattened per-station view of the database: one row per
// station, one column per IMT holding the peak unflagged horizontal
// amplitude. Missing observations are NaN.
type Table struct {
	Stations []model.Station
	IMTs     []string
	// Values maps an IMT name to a column of per-station peaks, indexed
	// parallel to Stations.
	Values map[string][]float64
}

// Record is the parsed, not-yet-converted content of one station element
// from a ShakeMap XML input file.
type Record struct {
	Station model.Station
	HasElev bool
	HasVs30 bool
	// Comps maps a channel name to its observations keyed by IMT.
	Comps map[string]map[string]Observation
}

// Observation is a single raw amplitude with its quality flag. Units are
// the ShakeMap input units (%g for accelerations, cm/s for PGV, intensity
// for MMI); conversion to natural-log storage units happens on merge.
type Observation struct {
	Value float64
	Flag  string
}

// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package container

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/seisio/shakelib/internal/rupture"
	"github.com/seisio/shakelib/internal/station"
)

const (
	dictConfig  = "config"
	dictEvent   = "event"
	dictHistory = "version_history"
	blobRupture = "rupture"
	blobStation = "station_data"
)

// InputContainer gathers the inputs of a ShakeMap run: model
// configuration, event parameters, the rupture file and the observed
// ground motion data.
type InputContainer struct {
	*Container
}

// CreateInput builds a new input container from the run inputs.
// rupturePath and dataFiles may be empty; history may be nil.
func CreateInput(path string, config map[string]any, eventPath, rupturePath string,
	dataFiles []string, history *VersionHistory) (*InputContainer, error) {

	base, err := Create(path)
	if err != nil {
		return nil, err
	}
	ic := &InputContainer{Container: base}

	fail := func(err error) (*InputContainer, error) {
		ic.Close()
		os.Remove(path)
		return nil, err
	}

	if err := ic.SetConfig(config); err != nil {
		return fail(err)
	}
	if err := ic.SetEventFile(eventPath); err != nil {
		return fail(err)
	}
	if rupturePath != "" {
		if err := ic.SetRuptureFile(rupturePath); err != nil {
			return fail(err)
		}
	}
	if len(dataFiles) > 0 {
		if err := ic.SetStationData(dataFiles...); err != nil {
			return fail(err)
		}
	}
	if history != nil {
		if err := ic.SetVersionHistory(history); err != nil {
			return fail(err)
		}
	}
	return ic, nil
}

// OpenInput opens an existing input container.
func OpenInput(path string) (*InputContainer, error) {
	base, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &InputContainer{Container: base}, nil
}

// SetConfig stores the run configuration.
func (c *InputContainer) SetConfig(config map[string]any) error {
	return c.SetDictionary(dictConfig, config)
}

// Config returns the stored run configuration.
func (c *InputContainer) Config() (map[string]any, error) {
	var config map[string]any
	if err := c.Dictionary(dictConfig, &config); err != nil {
		return nil, err
	}
	return config, nil
}

// eventDict mirrors the fields of an event.xml file.
type eventDict struct {
	ID        string  `yaml:"id"`
	NetID     string  `yaml:"netid"`
	Network   string  `yaml:"network"`
	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
	Depth     float64 `yaml:"depth"`
	Mag       float64 `yaml:"mag"`
	Time      string  `yaml:"time"`
	LocString string  `yaml:"locstring"`
	Mech      string  `yaml:"mech"`
	Rake      float64 `yaml:"rake"`
}

// SetEventFile parses an event.xml file and stores its contents.
func (c *InputContainer) SetEventFile(path string) error {
	origin, err := rupture.ReadEventFile(path)
	if err != nil {
		return err
	}
	return c.SetOrigin(origin)
}

// SetOrigin stores the event parameters.
func (c *InputContainer) SetOrigin(o *rupture.Origin) error {
	d := eventDict{
		ID:        o.EventID,
		NetID:     o.NetID,
		Network:   o.Network,
		Lat:       o.Lat,
		Lon:       o.Lon,
		Depth:     o.Depth,
		Mag:       o.Mag,
		LocString: o.LocString,
		Mech:      o.Mech,
		Rake:      o.Rake,
	}
	if !o.Time.IsZero() {
		d.Time = o.Time.UTC().Format(time.RFC3339)
	}
	return c.SetDictionary(dictEvent, d)
}

// Origin reconstructs the event parameters stored in the container.
func (c *InputContainer) Origin() (*rupture.Origin, error) {
	var d eventDict
	if err := c.Dictionary(dictEvent, &d); err != nil {
		return nil, err
	}
	o := &rupture.Origin{
		EventID:   d.ID,
		NetID:     d.NetID,
		Network:   d.Network,
		Lat:       d.Lat,
		Lon:       d.Lon,
		Depth:     d.Depth,
		Mag:       d.Mag,
		LocString: d.LocString,
		Mech:      d.Mech,
		Rake:      d.Rake,
	}
	if d.Time != "" {
		t, err := time.Parse(time.RFC3339, d.Time)
		if err != nil {
			return nil, fmt.Errorf("container holds a bad event time %q: %w", d.Time, err)
		}
		o.Time = t
	}
	if o.Mech == "" {
		if err := o.SetMechanism(""); err != nil {
			return nil, err
		}
	}
	return o, o.Validate()
}

// SetRuptureFile normalizes a rupture file (GeoJSON or legacy text)
// to GeoJSON and stores it.
func (c *InputContainer) SetRuptureFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Normalize: anything that is not JSON gets converted.
	if !json.Valid(raw) {
		r, err := rupture.FromBytes(nil, raw, rupture.DefaultMeshDx)
		if err != nil {
			return fmt.Errorf("unknown rupture file format: %w", err)
		}
		raw, err = r.GeoJSON()
		if err != nil {
			return err
		}
	}
	return c.SetBlob(blobRupture, raw)
}

// Rupture builds the rupture object for the event. Containers without
// a rupture file yield a point source at the origin.
func (c *InputContainer) Rupture(meshDx float64) (rupture.Rupture, error) {
	origin, err := c.Origin()
	if err != nil {
		return nil, err
	}
	if !c.HasBlob(blobRupture) {
		return rupture.NewPointRupture(origin)
	}
	raw, err := c.Blob(blobRupture)
	if err != nil {
		return nil, err
	}
	return rupture.FromBytes(origin, raw, meshDx)
}

// SetStationData replaces the stored observations with the contents
// of the given ShakeMap XML data files.
func (c *InputContainer) SetStationData(files ...string) error {
	list, err := station.NewListFromXML("sqlite", ":memory:", files...)
	if err != nil {
		return err
	}
	defer list.Close()
	dump, err := list.Dump()
	if err != nil {
		return err
	}
	return c.SetBlob(blobStation, dump)
}

// AddStationData merges additional data files into the stored
// observations.
func (c *InputContainer) AddStationData(files ...string) error {
	if !c.HasBlob(blobStation) {
		return c.SetStationData(files...)
	}
	list, err := c.StationList()
	if err != nil {
		return err
	}
	defer list.Close()
	if err := list.AddData(files...); err != nil {
		return err
	}
	dump, err := list.Dump()
	if err != nil {
		return err
	}
	return c.SetBlob(blobStation, dump)
}

// StationList restores the observation database stored in the
// container. The caller owns the returned list and must close it.
func (c *InputContainer) StationList() (*station.List, error) {
	dump, err := c.Blob(blobStation)
	if err != nil {
		return nil, err
	}
	return station.Restore(dump)
}

// HasStationData reports whether observations are stored.
func (c *InputContainer) HasStationData() bool {
	return c.HasBlob(blobStation)
}

// VersionHistory records the run lineage of a container.
type VersionHistory struct {
	Versions []Version `yaml:"versions"`
}

// Version is one run of the processing chain.
type Version struct {
	Version    int    `yaml:"version"`
	Time       string `yaml:"time"`
	Originator string `yaml:"originator"`
	Comment    string `yaml:"comment"`
}

// SetVersionHistory stores the run lineage.
func (c *InputContainer) SetVersionHistory(h *VersionHistory) error {
	return c.SetDictionary(dictHistory, h)
}

// VersionHistory returns the stored run lineage, or an empty history
// when none was stored.
func (c *InputContainer) VersionHistory() (*VersionHistory, error) {
	if !c.HasDictionary(dictHistory) {
		return &VersionHistory{}, nil
	}
	var h VersionHistory
	if err := c.Dictionary(dictHistory, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

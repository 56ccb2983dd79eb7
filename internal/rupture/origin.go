// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package rupture

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"
)

// Mechanisms accepted for an event, with their default rake angles.
var mechRakes = map[string]float64{
	"ALL": 45,
	"RS":  90,
	"NM":  -90,
	"SS":  0,
}

// Origin holds the source parameters of an event, as read from an
// event.xml file.
type Origin struct {
	EventID   string
	NetID     string
	Network   string
	Lat       float64
	Lon       float64
	Depth     float64
	Mag       float64
	Time      time.Time
	LocString string
	Mech      string
	Rake      float64
}

type eventXML struct {
	XMLName   xml.Name `xml:"earthquake"`
	ID        string   `xml:"id,attr"`
	NetID     string   `xml:"netid,attr"`
	Network   string   `xml:"network,attr"`
	Lat       float64  `xml:"lat,attr"`
	Lon       float64  `xml:"lon,attr"`
	Depth     float64  `xml:"depth,attr"`
	Mag       float64  `xml:"mag,attr"`
	Time      string   `xml:"time,attr"`
	LocString string   `xml:"locstring,attr"`
	Mech      string   `xml:"mech,attr"`
	Rake      string   `xml:"rake,attr"`
}

// ParseEventXML reads a ShakeMap event.xml document and returns a
// validated Origin.
func ParseEventXML(r io.Reader) (*Origin, error) {
	var ev eventXML
	if err := xml.NewDecoder(r).Decode(&ev); err != nil {
		return nil, fmt.Errorf("parsing event xml: %w", err)
	}

	o := &Origin{
		EventID:   ev.ID,
		NetID:     ev.NetID,
		Network:   ev.Network,
		Lat:       ev.Lat,
		Lon:       ev.Lon,
		Depth:     ev.Depth,
		Mag:       ev.Mag,
		LocString: ev.LocString,
	}
	if ev.Time != "" {
		t, err := time.Parse(time.RFC3339, ev.Time)
		if err != nil {
			// Older event files carry the time without a zone suffix.
			t, err = time.Parse("2006-01-02T15:04:05", ev.Time)
			if err != nil {
				return nil, fmt.Errorf("parsing event time %q: %w", ev.Time, err)
			}
		}
		o.Time = t.UTC()
	}
	if err := o.SetMechanism(ev.Mech); err != nil {
		return nil, err
	}
	if ev.Rake != "" {
		var rake float64
		if _, err := fmt.Sscanf(ev.Rake, "%f", &rake); err != nil {
			return nil, fmt.Errorf("parsing rake %q: %w", ev.Rake, err)
		}
		o.Rake = rake
		o.Mech = RakeToMech(rake)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// ReadEventFile parses the event.xml at path.
func ReadEventFile(path string) (*Origin, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseEventXML(f)
}

// Validate checks the origin fields against their physical bounds.
func (o *Origin) Validate() error {
	if o.EventID == "" {
		return fmt.Errorf("origin is missing an event id")
	}
	if o.Lat < -90 || o.Lat > 90 {
		return fmt.Errorf("origin latitude %g out of range", o.Lat)
	}
	if o.Lon < -180 || o.Lon > 180 {
		return fmt.Errorf("origin longitude %g out of range", o.Lon)
	}
	if o.Depth < 0 {
		return fmt.Errorf("origin depth %g must be positive down", o.Depth)
	}
	if o.Mag < 0 || o.Mag > 10 {
		return fmt.Errorf("origin magnitude %g out of range", o.Mag)
	}
	return nil
}

// SetMechanism sets the focal mechanism and the corresponding default
// rake. An empty mechanism maps to ALL.
func (o *Origin) SetMechanism(mech string) error {
	if mech == "" {
		mech = "ALL"
	}
	mech = strings.ToUpper(mech)
	rake, ok := mechRakes[mech]
	if !ok {
		return fmt.Errorf("unknown focal mechanism %q", mech)
	}
	o.Mech = mech
	o.Rake = rake
	return nil
}

// RakeToMech classifies a rake angle (degrees) into a focal mechanism.
func RakeToMech(rake float64) string {
	rake = math.Mod(rake, 360)
	if rake > 180 {
		rake -= 360
	}
	if rake < -180 {
		rake += 360
	}
	switch {
	case (rake >= -180 && rake <= -150) || (rake >= -30 && rake <= 30) ||
		(rake >= 150 && rake <= 180):
		return "SS"
	case rake >= -120 && rake <= -60:
		return "NM"
	case rake >= 60 && rake <= 120:
		return "RS"
	default:
		return "ALL"
	}
}

// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package station

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/seisio/shakelib/internal/imt"
	"github.com/seisio/shakelib/internal/logging"
	"github.com/seisio/shakelib/internal/model"
)

// ciimNetworks are the netids that indicate macroseismic (MMI) data
// rather than instrumented recordings.
var ciimNetworks = map[string]bool{
	"dyfi": true, "mmi": true, "intensity": true, "ciim": true,
}

// xmlStation mirrors a <station> element of a ShakeMap input file.
type xmlStation struct {
	Code      string    `xml:"code,attr"`
	Name      string    `xml:"name,attr"`
	Netid     string    `xml:"netid,attr"`
	Lat       float64   `xml:"lat,attr"`
	Lon       float64   `xml:"lon,attr"`
	Elev      string    `xml:"elev,attr"`
	Vs30      string    `xml:"vs30,attr"`
	Intensity string    `xml:"intensity,attr"`
	Comps     []xmlComp `xml:"comp"`
}

// xmlComp mirrors a <comp> element: one recording channel.
type xmlComp struct {
	Name string   `xml:"name,attr"`
	Amps []xmlAmp `xml:",any"`
}

// xmlAmp mirrors one amplitude element inside a <comp>. The element name
// carries the measure type (pga, pgv, psa03, mmi, acc, vel, ...).
type xmlAmp struct {
	XMLName xml.Name
	Value   string `xml:"value,attr"`
	Flag    string `xml:"flag,attr"`
}

// ParseXMLFile reads a ShakeMap XML input file from disk and folds its
// stations into the given record set, returning the set of IMT names seen.
// Records for stations already in the set are extended, matching the
// merge behavior of repeated data submissions for one event.
func ParseXMLFile(path string, records map[string]*Record) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open data file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseXML(f, records)
}

// ParseXML reads ShakeMap station XML from r and folds its stations into
// records. The decoder scans for <stationlist> elements anywhere in the
// document, so both bare station lists and full shakemap-data documents
// are accepted.
func ParseXML(r io.Reader, records map[string]*Record) (map[string]bool, error) {
	imtset := map[string]bool{}
	translate := map[string]string{}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed station XML: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "station" {
			continue
		}
		var sta xmlStation
		if err := dec.DecodeElement(&sta, &start); err != nil {
			return nil, fmt.Errorf("malformed station element: %w", err)
		}
		if err := foldStation(sta, records, imtset, translate); err != nil {
			return nil, err
		}
	}
	return imtset, nil
}

// foldStation merges one parsed station element into the record set.
func foldStation(sta xmlStation, records map[string]*Record, imtset map[string]bool, translate map[string]string) error {
	if sta.Netid == "" || sta.Code == "" {
		return fmt.Errorf("station element missing netid or code")
	}
	instrumented := !ciimNetworks[strings.ToLower(sta.Netid)]

	// Some sources ship the code already prefixed with the network.
	code := sta.Code
	var staID string
	if strings.HasPrefix(code, sta.Netid+".") {
		staID = code
		code = strings.TrimPrefix(code, sta.Netid+".")
	} else {
		staID = sta.Netid + "." + code
	}

	rec, ok := records[staID]
	if !ok {
		rec = &Record{
			Station: model.Station{
				ID:           staID,
				Network:      sta.Netid,
				Code:         code,
				Name:         sta.Name,
				Lat:          sta.Lat,
				Lon:          sta.Lon,
				Instrumented: instrumented,
			},
			Comps: map[string]map[string]Observation{},
		}
		if v, err := strconv.ParseFloat(sta.Elev, 64); err == nil {
			rec.Station.Elev = v
			rec.HasElev = true
		}
		if v, err := strconv.ParseFloat(sta.Vs30, 64); err == nil {
			rec.Station.Vs30 = v
			rec.HasVs30 = true
		}
		records[staID] = rec
	}

	for _, comp := range sta.Comps {
		if strings.Contains(comp.Name, "Intensity Questionnaire") {
			if _, ok := rec.Comps["mmi"]; !ok {
				rec.Comps["mmi"] = map[string]Observation{}
			}
			continue
		}
		pgms, err := groundMotions(comp, translate)
		if err != nil {
			return err
		}
		existing, ok := rec.Comps[comp.Name]
		if !ok {
			existing = map[string]Observation{}
			rec.Comps[comp.Name] = existing
		}
		for name, obs := range pgms {
			existing[name] = obs
			imtset[name] = true
		}
	}

	// A bare intensity attribute on a macroseismic station is an MMI amp.
	if sta.Intensity != "" && !instrumented {
		value, err := strconv.ParseFloat(sta.Intensity, 64)
		if err == nil {
			if _, ok := rec.Comps["mmi"]; !ok {
				rec.Comps["mmi"] = map[string]Observation{}
			}
			rec.Comps["mmi"]["MMI"] = Observation{Value: value, Flag: "0"}
			imtset["MMI"] = true
		}
	}
	return nil
}

// groundMotions extracts the peak ground motions of one channel, keyed by
// canonical IMT name. Flags default to "0" (unflagged) when absent.
func groundMotions(comp xmlComp, translate map[string]string) (map[string]Observation, error) {
	pgms := map[string]Observation{}
	for _, amp := range comp.Amps {
		tag := amp.XMLName.Local
		name, ok := translate[tag]
		if !ok {
			var err error
			name, err = canonicalIMT(tag)
			if err != nil {
				return nil, err
			}
			translate[tag] = name
		}

		if amp.Value == "" {
			logging.Warnf("station: no value for amp %s on channel %s", tag, comp.Name)
			continue
		}
		value, err := strconv.ParseFloat(amp.Value, 64)
		if err != nil {
			logging.Warnf("station: unknown value %q for amp %s", amp.Value, tag)
			continue
		}
		flag := amp.Flag
		if flag == "" {
			flag = "0"
		}
		pgms[name] = Observation{Value: value, Flag: flag}
	}
	return pgms, nil
}

// canonicalIMT maps a legacy input tag to the OpenQuake IMT name.
func canonicalIMT(tag string) (string, error) {
	switch {
	case tag == "acc" || tag == "pga":
		return "PGA", nil
	case tag == "vel" || tag == "pgv":
		return "PGV", nil
	case strings.Contains(tag, "mmi"):
		return "MMI", nil
	case strings.Contains(tag, "psa"):
		period, err := imt.ChannelPeriod(tag)
		if err != nil {
			return "", err
		}
		// Channel tags encode one decimal place (psa03 -> 0.3 s).
		return fmt.Sprintf("SA(%s)", strconv.FormatFloat(period, 'f', 1, 64)), nil
	default:
		return "", fmt.Errorf("unknown amp type in input: %s", tag)
	}
}

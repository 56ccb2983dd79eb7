package station

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const instrumentedXML = `<?xml version="1.0" encoding="UTF-8"?>
<shakemap-data code_version="4.0">
  <stationlist created="1470000000">
    <station code="MIK" name="Mikolin" netid="CI" lat="34.1" lon="-118.1" elev="120.0" vs30="425.0">
      <comp name="HNE">
        <pga value="2.34" flag="0"/>
        <pgv value="1.80"/>
        <psa03 value="4.10"/>
        <psa10 value="1.95"/>
        <psa30 value="0.40"/>
      </comp>
      <comp name="HNN">
        <pga value="2.10"/>
      </comp>
      <comp name="HNZ">
        <pga value="9.99"/>
      </comp>
    </station>
    <station code="CI.BAD" name="Flagged" netid="CI" lat="34.2" lon="-118.2">
      <comp name="HNE">
        <pga value="5.0" flag="T"/>
        <pgv value="-1.0"/>
      </comp>
    </station>
  </stationlist>
</shakemap-data>`

const macroseismicXML = `<?xml version="1.0" encoding="UTF-8"?>
<shakemap-data>
  <stationlist created="1470000001">
    <station code="90210" netid="DYFI" lat="34.3" lon="-118.3" intensity="4.4">
      <comp name="Intensity Questionnaire"/>
    </station>
  </stationlist>
</shakemap-data>`

func newMemList(t *testing.T) *List {
	t.Helper()
	store, err := NewStoreFromDSN("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewStoreFromDSN: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewList(store)
}

func ingest(t *testing.T, l *List, xmls ...string) {
	t.Helper()
	dir := t.TempDir()
	var files []string
	for i, body := range xmls {
		path := filepath.Join(dir, "dat"+string(rune('a'+i))+".xml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		files = append(files, path)
	}
	if err := l.AddData(files...); err != nil {
		t.Fatalf("AddData: %v", err)
	}
}

func TestIngestInstrumented(t *testing.T) {
	l := newMemList(t)
	ingest(t, l, instrumentedXML)

	n, err := l.Store().StationCount(true)
	if err != nil {
		t.Fatalf("StationCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("instrumented station count = %d, want 2", n)
	}

	sta, err := l.Store().GetStation("CI.MIK")
	if err != nil {
		t.Fatalf("GetStation: %v", err)
	}
	if sta.Lat != 34.1 || sta.Lon != -118.1 {
		t.Errorf("station coords = (%v, %v)", sta.Lat, sta.Lon)
	}
	if sta.Vs30 != 425.0 {
		t.Errorf("vs30 = %v, want 425", sta.Vs30)
	}
	if !sta.Instrumented {
		t.Errorf("CI network should be instrumented")
	}

	// Code already carrying the netid prefix must not be double-prefixed.
	if _, err := l.Store().GetStation("CI.BAD"); err != nil {
		t.Errorf("prefixed code: %v", err)
	}

	types, err := l.Store().IMTTypes()
	if err != nil {
		t.Fatalf("IMTTypes: %v", err)
	}
	for _, want := range []string{"PGA", "PGV", "SA(0.3)", "SA(1.0)", "SA(3.0)"} {
		if _, ok := types[want]; !ok {
			t.Errorf("IMT %s missing; have %v", want, types)
		}
	}
}

func TestAmplitudeConversion(t *testing.T) {
	l := newMemList(t)
	ingest(t, l, instrumentedXML)

	amps, err := l.Store().Amplitudes("CI.MIK")
	if err != nil {
		t.Fatalf("Amplitudes: %v", err)
	}
	byKey := map[string]float64{}
	for _, a := range amps {
		if !a.Null {
			byKey[a.IMT+"/"+a.Channel] = a.Value
		}
	}

	// PGA is stored as ln(%g / 100).
	if got, want := byKey["PGA/HNE"], math.Log(2.34/100.0); math.Abs(got-want) > 1e-12 {
		t.Errorf("PGA/HNE = %v, want %v", got, want)
	}
	// PGV is stored as ln(cm/s).
	if got, want := byKey["PGV/HNE"], math.Log(1.80); math.Abs(got-want) > 1e-12 {
		t.Errorf("PGV/HNE = %v, want %v", got, want)
	}
	// Non-positive values become NULL with flag G.
	found := false
	badAmps, err := l.Store().Amplitudes("CI.BAD")
	if err != nil {
		t.Fatalf("Amplitudes: %v", err)
	}
	for _, a := range badAmps {
		if a.IMT == "PGV" {
			found = true
			if !a.Null || a.Flag != "G" {
				t.Errorf("non-positive PGV should be NULL/G, got null=%v flag=%q", a.Null, a.Flag)
			}
		}
	}
	if !found {
		t.Errorf("expected a PGV amplitude row for CI.BAD")
	}
}

func TestTableExtraction(t *testing.T) {
	l := newMemList(t)
	ingest(t, l, instrumentedXML, macroseismicXML)

	tab, err := l.Table(true)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if len(tab.Stations) != 2 {
		t.Fatalf("instrumented rows = %d, want 2", len(tab.Stations))
	}
	for _, name := range tab.IMTs {
		if name == "MMI" {
			t.Errorf("MMI must not appear in the instrumented table")
		}
	}

	idx := -1
	for i, sta := range tab.Stations {
		if sta.ID == "CI.MIK" {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("CI.MIK missing from table")
	}
	// Peak over the two horizontal channels; the vertical HNZ pga=9.99
	// must be excluded.
	if got, want := tab.Values["PGA"][idx], math.Log(2.34/100.0); math.Abs(got-want) > 1e-12 {
		t.Errorf("peak PGA = %v, want %v", got, want)
	}
	// Flagged amps never reach the table.
	for i, sta := range tab.Stations {
		if sta.ID == "CI.BAD" {
			if !math.IsNaN(tab.Values["PGA"][i]) {
				t.Errorf("flagged PGA leaked into table: %v", tab.Values["PGA"][i])
			}
		}
	}

	mmiTab, err := l.Table(false)
	if err != nil {
		t.Fatalf("Table(false): %v", err)
	}
	if len(mmiTab.Stations) != 1 {
		t.Fatalf("macroseismic rows = %d, want 1", len(mmiTab.Stations))
	}
	if got := mmiTab.Values["MMI"][0]; math.Abs(got-4.4) > 1e-12 {
		t.Errorf("MMI = %v, want 4.4", got)
	}
}

func TestIngestIdempotent(t *testing.T) {
	l := newMemList(t)
	ingest(t, l, instrumentedXML)
	ingest(t, l, instrumentedXML)

	n, err := l.Store().StationCount(true)
	if err != nil {
		t.Fatalf("StationCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("re-ingest duplicated stations: count = %d", n)
	}
	amps, err := l.Store().Amplitudes("CI.MIK")
	if err != nil {
		t.Fatalf("Amplitudes: %v", err)
	}
	// 5 HNE + 1 HNN + 1 HNZ amps, once each.
	if len(amps) != 7 {
		t.Fatalf("amp count = %d, want 7", len(amps))
	}
}

func TestDumpRestore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStoreFromDSN("sqlite", filepath.Join(dir, "stations.db"))
	if err != nil {
		t.Fatalf("NewStoreFromDSN: %v", err)
	}
	l := NewList(store)
	ingest(t, l, instrumentedXML, macroseismicXML)

	dump, err := l.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(dump) == 0 {
		t.Fatalf("empty dump")
	}

	restored, err := Restore(dump)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	defer func() { _ = restored.Close() }()

	n, err := restored.Store().StationCount(true)
	if err != nil {
		t.Fatalf("StationCount: %v", err)
	}
	if n != 2 {
		t.Errorf("restored instrumented count = %d, want 2", n)
	}
	m, err := restored.Store().StationCount(false)
	if err != nil {
		t.Fatalf("StationCount: %v", err)
	}
	if m != 1 {
		t.Errorf("restored macroseismic count = %d, want 1", m)
	}
}

func TestAuditLog(t *testing.T) {
	l := newMemList(t)
	ingest(t, l, instrumentedXML)

	entries, err := l.Store().AuditLog()
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected an ingest audit entry")
	}
	if entries[0].Action != "INGEST_DATA" {
		t.Errorf("action = %q, want INGEST_DATA", entries[0].Action)
	}
}

func TestParseXMLRejectsUnknownAmp(t *testing.T) {
	bad := strings.Replace(instrumentedXML, "<pga value=\"2.34\" flag=\"0\"/>",
		"<wobble value=\"2.34\"/>", 1)
	records := map[string]*Record{}
	if _, err := ParseXML(strings.NewReader(bad), records); err == nil {
		t.Fatalf("expected error for unknown amp tag")
	}
}

func TestOrientation(t *testing.T) {
	cases := map[string]string{
		"HNE": "E",
		"HNN": "N",
		"HNZ": "Z",
		"UNK": "H",
		"mmi": "H",
		"HL1": "U",
	}
	for channel, want := range cases {
		if got := orientation(channel); got != want {
			t.Errorf("orientation(%q) = %q, want %q", channel, got, want)
		}
	}
}

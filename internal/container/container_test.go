package container

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/seisio/shakelib/internal/grid"
	"github.com/seisio/shakelib/internal/rupture"
)

const testEventXML = `<earthquake id="us2020abcd" netid="us"
	network="USGS National Earthquake Information Center"
	lat="34.21" lon="-118.54" depth="18.2" mag="6.7"
	time="2020-01-17T12:30:55Z" locstring="Northridge" mech="RS"/>`

const testRuptureText = `# Test fault reference
0.0000 0.0000 0.0000
0.2000 0.0000 0.0000
0.2000 0.0449 8.6600
0.0000 0.0449 8.6600
0.0000 0.0000 0.0000
>
`

const testStationXML = `<?xml version="1.0" encoding="UTF-8"?>
<shakemap-data code_version="4.0">
  <stationlist created="1470000000">
    <station code="MIK" name="Mikolin" netid="CI" lat="34.1" lon="-118.1" elev="120.0" vs30="425.0">
      <comp name="HNE">
        <pga value="2.34" flag="0"/>
        <pgv value="1.80"/>
      </comp>
    </station>
  </stationlist>
</shakemap-data>`

const extraStationXML = `<?xml version="1.0" encoding="UTF-8"?>
<shakemap-data>
  <stationlist created="1470000001">
    <station code="90210" netid="DYFI" lat="34.3" lon="-118.3" intensity="4.4">
      <comp name="Intensity Questionnaire"/>
    </station>
  </stationlist>
</shakemap-data>`

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDictionaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer c.Close()

	doc := map[string]any{"gmpe": "nshmp14_acr", "bias": map[string]any{"max_mag": 7.7}}
	if err := c.SetDictionary("config", doc); err != nil {
		t.Fatalf("SetDictionary failed: %v", err)
	}
	if !c.HasDictionary("config") {
		t.Error("HasDictionary is false after SetDictionary")
	}

	var got map[string]any
	if err := c.Dictionary("config", &got); err != nil {
		t.Fatalf("Dictionary failed: %v", err)
	}
	if got["gmpe"] != "nshmp14_acr" {
		t.Errorf("gmpe = %v, want nshmp14_acr", got["gmpe"])
	}
	bias, ok := got["bias"].(map[string]any)
	if !ok || bias["max_mag"] != 7.7 {
		t.Errorf("bias round trip mangled: %v", got["bias"])
	}

	// Overwrite replaces, not appends.
	if err := c.SetDictionary("config", map[string]any{"gmpe": "nshmp14_sub_i"}); err != nil {
		t.Fatalf("SetDictionary overwrite failed: %v", err)
	}
	got = nil
	if err := c.Dictionary("config", &got); err != nil {
		t.Fatalf("Dictionary after overwrite failed: %v", err)
	}
	if got["gmpe"] != "nshmp14_sub_i" || len(got) != 1 {
		t.Errorf("overwrite did not replace dictionary: %v", got)
	}

	if err := c.DropDictionary("config"); err != nil {
		t.Fatalf("DropDictionary failed: %v", err)
	}
	if c.HasDictionary("config") {
		t.Error("dictionary still present after drop")
	}
	if err := c.Dictionary("config", &got); err == nil {
		t.Error("expected error reading a dropped dictionary")
	}
}

func TestBlobRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer c.Close()

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	if err := c.SetBlob("rupture", payload); err != nil {
		t.Fatalf("SetBlob failed: %v", err)
	}
	got, err := c.Blob("rupture")
	if err != nil {
		t.Fatalf("Blob failed: %v", err)
	}
	if !reflect.DeepEqual(got, payload) {
		t.Error("blob round trip corrupted the payload")
	}
	if !c.HasBlob("rupture") {
		t.Error("HasBlob is false after SetBlob")
	}
	if c.HasBlob("nothing") {
		t.Error("HasBlob is true for a blob that was never stored")
	}
	if err := c.DropBlob("rupture"); err != nil {
		t.Fatalf("DropBlob failed: %v", err)
	}
	if _, err := c.Blob("rupture"); err == nil {
		t.Error("expected error reading a dropped blob")
	}
}

func TestCreateRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	c.Close()
	if _, err := Create(path); err == nil {
		t.Fatal("Create on an existing container must fail")
	}
	// Open still works.
	c, err = Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	c.Close()
}

func TestOpenRefusesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	if _, err := Open(path); err == nil {
		t.Fatal("Open on a nonexistent path must fail")
	}
	// Open must not leave an empty database behind.
	if _, err := os.Stat(path); err == nil {
		t.Error("Open created a file for a nonexistent container")
	}
	if _, err := OpenInput(path); err == nil {
		t.Error("OpenInput on a nonexistent path must fail")
	}
	if _, err := OpenOutput(path); err == nil {
		t.Error("OpenOutput on a nonexistent path must fail")
	}
}

func TestInputContainer(t *testing.T) {
	dir := t.TempDir()
	eventPath := writeFixture(t, dir, "event.xml", testEventXML)
	rupturePath := writeFixture(t, dir, "fault.txt", testRuptureText)
	dataPath := writeFixture(t, dir, "ci_dat.xml", testStationXML)
	path := filepath.Join(dir, "shake_data.db")

	config := map[string]any{"gmpe_set": "nshmp14_acr"}
	history := &VersionHistory{Versions: []Version{
		{Version: 1, Time: "2020-01-17T13:00:00Z", Originator: "us", Comment: "initial run"},
	}}
	ic, err := CreateInput(path, config, eventPath, rupturePath, []string{dataPath}, history)
	if err != nil {
		t.Fatalf("CreateInput failed: %v", err)
	}
	ic.Close()

	ic, err = OpenInput(path)
	if err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	defer ic.Close()

	cfg, err := ic.Config()
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if cfg["gmpe_set"] != "nshmp14_acr" {
		t.Errorf("config round trip lost gmpe_set: %v", cfg)
	}

	o, err := ic.Origin()
	if err != nil {
		t.Fatalf("Origin failed: %v", err)
	}
	if o.EventID != "us2020abcd" || o.Mag != 6.7 || o.Mech != "RS" {
		t.Errorf("origin round trip mangled: %+v", o)
	}
	if o.Time.IsZero() || o.Time.UTC().Hour() != 12 {
		t.Errorf("origin time round trip mangled: %v", o.Time)
	}

	r, err := ic.Rupture(rupture.DefaultMeshDx)
	if err != nil {
		t.Fatalf("Rupture failed: %v", err)
	}
	if _, ok := r.(*rupture.QuadRupture); !ok {
		t.Fatalf("expected a quad rupture, got %T", r)
	}
	if length := r.Length(); length < 20 || length > 25 {
		t.Errorf("rupture length = %.1f, want about 22 km", length)
	}

	hist, err := ic.VersionHistory()
	if err != nil {
		t.Fatalf("VersionHistory failed: %v", err)
	}
	if len(hist.Versions) != 1 || hist.Versions[0].Originator != "us" {
		t.Errorf("version history round trip mangled: %+v", hist)
	}

	if !ic.HasStationData() {
		t.Fatal("HasStationData is false after CreateInput with data files")
	}
	list, err := ic.StationList()
	if err != nil {
		t.Fatalf("StationList failed: %v", err)
	}
	defer list.Close()
	table, err := list.Table(true)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if len(table.Stations) != 1 || table.Stations[0].Code != "MIK" {
		t.Errorf("unexpected instrumented stations: %+v", table.Stations)
	}
}

func TestInputContainerWithoutRupture(t *testing.T) {
	dir := t.TempDir()
	eventPath := writeFixture(t, dir, "event.xml", testEventXML)
	path := filepath.Join(dir, "shake_data.db")

	ic, err := CreateInput(path, map[string]any{}, eventPath, "", nil, nil)
	if err != nil {
		t.Fatalf("CreateInput failed: %v", err)
	}
	defer ic.Close()

	r, err := ic.Rupture(rupture.DefaultMeshDx)
	if err != nil {
		t.Fatalf("Rupture failed: %v", err)
	}
	if _, ok := r.(*rupture.PointRupture); !ok {
		t.Errorf("expected a point rupture, got %T", r)
	}
	if ic.HasStationData() {
		t.Error("HasStationData is true with no data files")
	}
	hist, err := ic.VersionHistory()
	if err != nil {
		t.Fatalf("VersionHistory failed: %v", err)
	}
	if len(hist.Versions) != 0 {
		t.Errorf("expected empty history, got %+v", hist)
	}
}

func TestAddStationData(t *testing.T) {
	dir := t.TempDir()
	eventPath := writeFixture(t, dir, "event.xml", testEventXML)
	dataPath := writeFixture(t, dir, "ci_dat.xml", testStationXML)
	extraPath := writeFixture(t, dir, "dyfi_dat.xml", extraStationXML)
	path := filepath.Join(dir, "shake_data.db")

	ic, err := CreateInput(path, map[string]any{}, eventPath, "", []string{dataPath}, nil)
	if err != nil {
		t.Fatalf("CreateInput failed: %v", err)
	}
	defer ic.Close()

	if err := ic.AddStationData(extraPath); err != nil {
		t.Fatalf("AddStationData failed: %v", err)
	}
	list, err := ic.StationList()
	if err != nil {
		t.Fatalf("StationList failed: %v", err)
	}
	defer list.Close()

	inst, err := list.Table(true)
	if err != nil {
		t.Fatalf("Table(true) failed: %v", err)
	}
	macro, err := list.Table(false)
	if err != nil {
		t.Fatalf("Table(false) failed: %v", err)
	}
	if len(inst.Stations) != 1 || len(macro.Stations) != 1 {
		t.Errorf("expected 1 instrumented and 1 macroseismic station, got %d and %d",
			len(inst.Stations), len(macro.Stations))
	}
}

func testGrid(t *testing.T, fill func(i, j int) float64) *grid.Grid2D {
	t.Helper()
	gd := grid.GeoDict{
		Xmin: -119.0, Xmax: -118.0,
		Ymin: 34.0, Ymax: 34.5,
		Dx: 0.25, Dy: 0.25,
		Nx: 5, Ny: 3,
	}
	g, err := grid.New(gd)
	if err != nil {
		t.Fatalf("grid.New failed: %v", err)
	}
	for i := 0; i < gd.Ny; i++ {
		for j := 0; j < gd.Nx; j++ {
			g.Set(i, j, fill(i, j))
		}
	}
	return g
}

func TestOutputContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shake_result.db")
	oc, err := CreateOutput(path)
	if err != nil {
		t.Fatalf("CreateOutput failed: %v", err)
	}
	defer oc.Close()

	mean := testGrid(t, func(i, j int) float64 { return float64(i*10 + j) })
	std := testGrid(t, func(i, j int) float64 { return 0.6 })
	data := &IMTData{
		Mean:         mean,
		MeanMetadata: map[string]any{"units": "ln(g)"},
		Std:          std,
		StdMetadata:  map[string]any{"units": "ln(g)"},
	}
	if err := oc.SetIMT("PGA", DefaultComponent, data); err != nil {
		t.Fatalf("SetIMT failed: %v", err)
	}
	if err := oc.SetIMT("SA(1.0)", DefaultComponent, data); err != nil {
		t.Fatalf("SetIMT SA failed: %v", err)
	}

	got, err := oc.IMT("PGA", DefaultComponent)
	if err != nil {
		t.Fatalf("IMT failed: %v", err)
	}
	if got.Mean.GeoDict != mean.GeoDict {
		t.Errorf("geodict round trip mangled: %+v", got.Mean.GeoDict)
	}
	if v := got.Mean.At(1, 2); v != 12 {
		t.Errorf("mean(1,2) = %v, want 12", v)
	}
	if v := got.Std.At(2, 4); math.Abs(v-0.6) > 1e-12 {
		t.Errorf("std(2,4) = %v, want 0.6", v)
	}
	if got.MeanMetadata["units"] != "ln(g)" {
		t.Errorf("mean metadata round trip mangled: %v", got.MeanMetadata)
	}

	imts, err := oc.IMTs(DefaultComponent)
	if err != nil {
		t.Fatalf("IMTs failed: %v", err)
	}
	if !reflect.DeepEqual(imts, []string{"PGA", "SA(1.0)"}) {
		t.Errorf("IMTs = %v, want [PGA SA(1.0)]", imts)
	}
	comps, err := oc.Components("PGA")
	if err != nil {
		t.Fatalf("Components failed: %v", err)
	}
	if !reflect.DeepEqual(comps, []string{DefaultComponent}) {
		t.Errorf("Components = %v, want [%s]", comps, DefaultComponent)
	}

	// Replacing an IMT overwrites, not duplicates.
	if err := oc.SetIMT("PGA", DefaultComponent, data); err != nil {
		t.Fatalf("SetIMT replace failed: %v", err)
	}
	imts, err = oc.IMTs(DefaultComponent)
	if err != nil {
		t.Fatalf("IMTs after replace failed: %v", err)
	}
	if len(imts) != 2 {
		t.Errorf("replace duplicated the IMT rows: %v", imts)
	}

	if err := oc.DropIMT("PGA", DefaultComponent); err != nil {
		t.Fatalf("DropIMT failed: %v", err)
	}
	imts, err = oc.IMTs(DefaultComponent)
	if err != nil {
		t.Fatalf("IMTs after drop failed: %v", err)
	}
	if !reflect.DeepEqual(imts, []string{"SA(1.0)"}) {
		t.Errorf("IMTs after drop = %v, want [SA(1.0)]", imts)
	}
	if _, err := oc.IMT("PGA", DefaultComponent); err == nil {
		t.Error("expected error reading a dropped IMT")
	}

	meta := map[string]any{"code_version": "4.0", "processing_time": "2020-01-17T13:05:00Z"}
	if err := oc.SetMetadata(meta); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	gotMeta, err := oc.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if gotMeta["code_version"] != "4.0" {
		t.Errorf("metadata round trip mangled: %v", gotMeta)
	}
}

func TestSetIMTRejectsMismatchedGrids(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shake_result.db")
	oc, err := CreateOutput(path)
	if err != nil {
		t.Fatalf("CreateOutput failed: %v", err)
	}
	defer oc.Close()

	mean := testGrid(t, func(i, j int) float64 { return 1 })
	other := mean.GeoDict
	other.Nx = 9
	other.Dx = 0.125
	std, err := grid.New(other)
	if err != nil {
		t.Fatalf("grid.New failed: %v", err)
	}
	err = oc.SetIMT("PGA", DefaultComponent, &IMTData{Mean: mean, Std: std})
	if err == nil {
		t.Error("expected error for mean/std grids with different geometry")
	}
	err = oc.SetIMT("PGA", DefaultComponent, &IMTData{Mean: mean})
	if err == nil {
		t.Error("expected error when the std grid is missing")
	}
}

// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.
package cli

import (
	"math"
	"os"
	"path/filepath"
	"runtime/debug"
	"testing"

	"github.com/spf13/cobra"
)

func TestResolveBuildVersion_WithBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/seisio/shakelib", Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeefcafe"},
			{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"},
		},
	}

	v, c, d := resolveBuildVersion(info)
	if v != "v1.2.3" {
		t.Fatalf("expected version v1.2.3, got %s", v)
	}
	if c != "deadbee" {
		t.Fatalf("expected short commit deadbee, got %s", c)
	}
	if d != "2026-01-01T00:00:00Z" {
		t.Fatalf("expected date set, got %s", d)
	}
}

func TestApplyDefaultFlags_AddsFlags(t *testing.T) {
	cmd := &cobra.Command{}
	applyDefaultFlags(cmd)

	if cmd.Flags().Lookup("database.type") == nil {
		t.Fatalf("database.type flag not present")
	}
	if cmd.Flags().Lookup("database.dsn") == nil {
		t.Fatalf("database.dsn flag not present")
	}
	// Second application must not panic on duplicate definitions.
	applyDefaultFlags(cmd)
}

func TestGetConfigPathFromCli_FlagNotSet(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file")

	path, err := getConfigPathFromCli(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != nil {
		t.Fatalf("expected nil path when flag is unset, got %v", *path)
	}
}

func TestGetConfigPathFromCli_MissingFile(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file")
	if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	if _, err := getConfigPathFromCli(cmd); err == nil {
		t.Fatal("expected error for a config path that does not exist")
	}
}

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	want := []string{"assemble", "augment", "contents", "stations", "maintenance", "version"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}

func TestFindEventInputs(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
		return p
	}
	eventPath := write("event.xml")
	rupturePath := write("rupture.json")
	data1 := write("ci_dat.xml")
	data2 := write("dyfi_dat.xml")
	write("README.txt")

	ev, rup, data, err := findEventInputs(dir)
	if err != nil {
		t.Fatalf("findEventInputs failed: %v", err)
	}
	if ev != eventPath {
		t.Errorf("event path = %s, want %s", ev, eventPath)
	}
	if rup != rupturePath {
		t.Errorf("rupture path = %s, want %s", rup, rupturePath)
	}
	if len(data) != 2 || data[0] != data1 || data[1] != data2 {
		t.Errorf("data files = %v", data)
	}
}

func TestFindEventInputsRequiresEventXML(t *testing.T) {
	if _, _, _, err := findEventInputs(t.TempDir()); err == nil {
		t.Fatal("expected error for a directory without event.xml")
	}
}

func TestFormatAmp(t *testing.T) {
	if got := formatAmp(1.23456); got != "1.2346" {
		t.Errorf("formatAmp(1.23456) = %q", got)
	}
	if got := formatAmp(math.NaN()); got != "" {
		t.Errorf("formatAmp(NaN) = %q, want empty", got)
	}
}

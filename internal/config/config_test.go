package config_test

import (
	"os"
	"path/filepath"
	"testing"

	cfg "github.com/seisio/shakelib/internal/config"
	"github.com/spf13/cobra"
)

func TestLoadConfig_Defaults(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	c, err := cfg.LoadConfig(&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Database.Type != "sqlite" {
		t.Errorf("database.type = %q, want sqlite", c.Database.Type)
	}
	if c.Rupture.MeshDx != 0.5 {
		t.Errorf("rupture.mesh_dx = %v, want 0.5", c.Rupture.MeshDx)
	}
	if c.GmpeSet != "nshmp14_acr" {
		t.Errorf("gmpe_set = %q, want nshmp14_acr", c.GmpeSet)
	}
}

func TestLoadConfig_FileOverride(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	path := filepath.Join(tmp, "custom.yaml")
	body := "database:\n  type: postgres\n  dsn: postgres://localhost/shake\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := cfg.LoadConfig(&cobra.Command{}, cfg.Defaults(), &path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Database.Type != "postgres" {
		t.Errorf("database.type = %q, want postgres", c.Database.Type)
	}
	if c.Database.Dsn != "postgres://localhost/shake" {
		t.Errorf("database.dsn = %q", c.Database.Dsn)
	}
	// Unset keys keep their defaults.
	if c.Language != "en" {
		t.Errorf("language = %q, want en", c.Language)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	os.Setenv("SHAKELIB_GMPE_SET", "nshmp14_sub_i")
	defer func() {
		os.Unsetenv("XDG_CONFIG_HOME")
		os.Unsetenv("SHAKELIB_GMPE_SET")
	}()

	c, err := cfg.LoadConfig(&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.GmpeSet != "nshmp14_sub_i" {
		t.Errorf("gmpe_set = %q, want nshmp14_sub_i", c.GmpeSet)
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	tmp := t.TempDir()
	os.Setenv("XDG_CONFIG_HOME", tmp)
	defer os.Unsetenv("XDG_CONFIG_HOME")

	var c cfg.Config
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./shakelib.db"
	if err := cfg.WriteConfigFile(&c, false); err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}
	written := filepath.Join(tmp, "shakelib", "shakelib.yaml")
	if _, err := os.Stat(written); err != nil {
		t.Fatalf("expected config file at %s: %v", written, err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Segmentation != def.Segmentation || cfg.Auth != def.Auth {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if Exists() {
		t.Error("Exists = true before Save")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Segmentation.Seed = 7
	cfg.Segmentation.RankBySavings = true
	cfg.Auth.Backend = BackendJSON
	cfg.Daemon.Watch = false
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Errorf("Load = %+v, want %+v", got, cfg)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "breathsave", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[segmentation]\nseed = 99\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Segmentation.Seed != 99 {
		t.Errorf("seed = %d, want 99", cfg.Segmentation.Seed)
	}
	if cfg.Segmentation.Restarts != 10 || cfg.Predictions.RangePoints != 100 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "breathsave", "config.toml")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte("[segmentation\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("BREATHSAVE_DATA_DIR", "")
	if got := GetDataDir(cfg); got != "data" {
		t.Errorf("GetDataDir = %q, want data", got)
	}
	t.Setenv("BREATHSAVE_DATA_DIR", "/srv/breathsave")
	if got := GetDataDir(cfg); got != "/srv/breathsave" {
		t.Errorf("GetDataDir = %q, want env override", got)
	}
}

func TestCredentialsPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	cfg := DefaultConfig()
	if got := CredentialsPath(cfg); got != filepath.Join("/cfg", "breathsave", "credentials.db") {
		t.Errorf("sqlite CredentialsPath = %q", got)
	}
	cfg.Auth.Backend = BackendJSON
	if got := CredentialsPath(cfg); got != filepath.Join("/cfg", "breathsave", "users.json") {
		t.Errorf("json CredentialsPath = %q", got)
	}
	cfg.Auth.CredentialsPath = "/tmp/u.json"
	if got := CredentialsPath(cfg); got != "/tmp/u.json" {
		t.Errorf("CredentialsPath = %q", got)
	}
}

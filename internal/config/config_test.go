package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_PartialFileKeepsDefaultsForAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /tmp/test-flows.db
  synchronous: "OFF"
query:
  max_limit: 250
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/tmp/test-flows.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
	if cfg.Database.Synchronous != "OFF" {
		t.Errorf("Synchronous = %q", cfg.Database.Synchronous)
	}
	if cfg.Database.JournalMode != "WAL" {
		t.Errorf("JournalMode = %q, want default WAL", cfg.Database.JournalMode)
	}
	if cfg.Database.BusyTimeoutMS != 5000 {
		t.Errorf("BusyTimeoutMS = %d, want default 5000", cfg.Database.BusyTimeoutMS)
	}
	if cfg.Query.MaxLimit != 250 {
		t.Errorf("MaxLimit = %d", cfg.Query.MaxLimit)
	}
	if cfg.Query.DefaultLimit != 50 {
		t.Errorf("DefaultLimit = %d, want default 50", cfg.Query.DefaultLimit)
	}
}

func TestLoad_MalformedYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database: [not a map"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestDefault_HasSaneValues(t *testing.T) {
	cfg := Default()
	if cfg.Database.Path == "" {
		t.Error("default database path is empty")
	}
	if cfg.Query.DefaultLimit <= 0 || cfg.Query.MaxLimit < cfg.Query.DefaultLimit {
		t.Errorf("default query limits = %+v", cfg.Query)
	}
}

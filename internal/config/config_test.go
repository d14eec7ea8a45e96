package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if path == "" {
		t.Fatal("expected resolved path for missing file")
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Fatalf("expected default driver, got %q", cfg.Store.Driver)
	}
	if cfg.Scheduling.DailyCap != defaultDailyCap {
		t.Fatalf("expected default daily cap, got %d", cfg.Scheduling.DailyCap)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[store]",
		`driver = "JSON"`,
		"[scheduling]",
		`timezone = "America/New_York"`,
		`windows = [" 08:15 ", "20:00"]`,
		"daily_cap = 2",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Store.Driver != DriverJSON {
		t.Fatalf("expected json driver, got %q", cfg.Store.Driver)
	}
	if len(cfg.Scheduling.Windows) != 2 || cfg.Scheduling.Windows[0] != "08:15" {
		t.Fatalf("expected trimmed windows, got %v", cfg.Scheduling.Windows)
	}
	if cfg.StorePath() == "" || filepath.Ext(cfg.StorePath()) != ".json" {
		t.Fatalf("expected json store path, got %q", cfg.StorePath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"bad timezone", func(c *Config) { c.Scheduling.Timezone = "Not/AZone" }},
		{"zero cap", func(c *Config) { c.Scheduling.DailyCap = 0 }},
		{"bad window", func(c *Config) { c.Scheduling.Windows = []string{"25:00"} }},
		{"bad window minute", func(c *Config) { c.Scheduling.Windows = []string{"09:75"} }},
		{"empty schedule", func(c *Config) { c.Workflow.RunSchedule = " " }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist after CreateSample")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	expanded, err := ExpandPath("~/spool-test")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if expanded != filepath.Join(home, "spool-test") {
		t.Fatalf("unexpected expansion: %q", expanded)
	}
}

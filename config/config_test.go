package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Lattice.Width != 80 || cfg.Lattice.Height != 80 {
		t.Errorf("expected 80x80 lattice, got %dx%d", cfg.Lattice.Width, cfg.Lattice.Height)
	}
	if cfg.Productivity.Mean != 1.70 || cfg.Productivity.Variance != 1.35 {
		t.Errorf("unexpected productivity %+v", cfg.Productivity)
	}
	if cfg.Dispersal.Host != 0.01 || cfg.Dispersal.Enemy != 0.01 || cfg.Dispersal.Symbiont != 0.01 {
		t.Errorf("unexpected dispersal %+v", cfg.Dispersal)
	}
	if cfg.Integration.SimSteps != 5000 || cfg.Integration.Scalar != 0.005 || cfg.Integration.OutSteps != 5 {
		t.Errorf("unexpected integration %+v", cfg.Integration)
	}
	want := DynamicsConfig{Q: 0.005, B: 0.1, U: 1.9, A: 0.5, G: 0.1, De: 0.018, Dm: 0.1}
	if cfg.Dynamics != want {
		t.Errorf("expected dynamics %+v, got %+v", want, cfg.Dynamics)
	}
	if cfg.Init.HostMean != 10 || cfg.Init.EnemySD != 0.8 {
		t.Errorf("unexpected init %+v", cfg.Init)
	}
	if cfg.Migration.LegacyHostInflow {
		t.Error("legacy host inflow should be off by default")
	}
	if !cfg.Telemetry.Plot {
		t.Error("trajectory plot should be on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	data := "lattice:\n  width: 12\ndispersal:\n  host: 0.2\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Lattice.Width != 12 {
		t.Errorf("expected width 12, got %d", cfg.Lattice.Width)
	}
	// Fields absent from the file keep their defaults
	if cfg.Lattice.Height != 80 {
		t.Errorf("expected default height 80, got %d", cfg.Lattice.Height)
	}
	if cfg.Dispersal.Host != 0.2 || cfg.Dispersal.Enemy != 0.01 {
		t.Errorf("unexpected dispersal %+v", cfg.Dispersal)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"zero width", func(c *Config) { c.Lattice.Width = 0 }, "lattice.width"},
		{"negative height", func(c *Config) { c.Lattice.Height = -3 }, "lattice.height"},
		{"negative dispersal", func(c *Config) { c.Dispersal.Enemy = -0.1 }, "dispersal.enemy"},
		{"negative death rate", func(c *Config) { c.Dynamics.Dm = -1 }, "dynamics.dm"},
		{"zero saturation", func(c *Config) { c.Dynamics.U = 0 }, "dynamics.u"},
		{"zero out steps", func(c *Config) { c.Integration.OutSteps = 0 }, "integration.out_steps"},
		{"zero scalar", func(c *Config) { c.Integration.Scalar = 0 }, "integration.scalar"},
		{"negative sim steps", func(c *Config) { c.Integration.SimSteps = -1 }, "integration.sim_steps"},
		{"negative workers", func(c *Config) { c.Parallel.Workers = -2 }, "parallel.workers"},
		{"legacy inflow on wide lattice", func(c *Config) {
			c.Migration.LegacyHostInflow = true
			c.Lattice.Width = 10
			c.Lattice.Height = 5
		}, "legacy_host_inflow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("expected error mentioning %q, got %v", tt.errSub, err)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Lattice.Width = 0
	cfg.Dispersal.Host = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "lattice.width") || !strings.Contains(err.Error(), "dispersal.host") {
		t.Errorf("expected both violations, got %v", err)
	}
}

func TestLegacyInflowSquareLattice(t *testing.T) {
	cfg := Default()
	cfg.Migration.LegacyHostInflow = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("legacy inflow on a square lattice should validate: %v", err)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Dynamics.A = 0.75
	cfg.Lattice.Width = 20

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	cp := cfg.Clone()
	cp.Dispersal.Host = 0.5
	if cfg.Dispersal.Host == 0.5 {
		t.Error("Clone shares state with the original")
	}
}

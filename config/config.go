// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Lattice      LatticeConfig      `yaml:"lattice"`
	Productivity ProductivityConfig `yaml:"productivity"`
	Dispersal    DispersalConfig    `yaml:"dispersal"`
	Integration  IntegrationConfig  `yaml:"integration"`
	Dynamics     DynamicsConfig     `yaml:"dynamics"`
	Init         InitConfig         `yaml:"init"`
	Migration    MigrationConfig    `yaml:"migration"`
	Parallel     ParallelConfig     `yaml:"parallel"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// LatticeConfig holds the patch grid dimensions.
type LatticeConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ProductivityConfig holds the per-patch primary productivity distribution.
type ProductivityConfig struct {
	Mean     float64 `yaml:"mean"`
	Variance float64 `yaml:"variance"` // Used as the standard deviation of the draw
}

// DispersalConfig holds per-species dispersal rates.
type DispersalConfig struct {
	Host     float64 `yaml:"host"`
	Enemy    float64 `yaml:"enemy"`
	Symbiont float64 `yaml:"symbiont"`
}

// IntegrationConfig holds the time loop parameters.
type IntegrationConfig struct {
	SimSteps int     `yaml:"sim_steps"` // Last tick processed (inclusive)
	Scalar   float64 `yaml:"scalar"`    // Euler step size
	OutSteps int     `yaml:"out_steps"` // Snapshot every N ticks
}

// DynamicsConfig holds the local interaction constants.
type DynamicsConfig struct {
	Q  float64 `yaml:"q"`  // Host self-limitation
	B  float64 `yaml:"b"`  // Interaction strength
	U  float64 `yaml:"u"`  // Symbiont protection saturation
	A  float64 `yaml:"a"`  // Enemy-to-symbiont conversion asymmetry
	G  float64 `yaml:"g"`  // Conversion efficiency
	De float64 `yaml:"de"` // Enemy death rate
	Dm float64 `yaml:"dm"` // Symbiont death rate
}

// InitConfig holds the Gaussian distributions of the initial populations.
type InitConfig struct {
	HostMean     float64 `yaml:"host_mean"`
	HostSD       float64 `yaml:"host_sd"`
	EnemyMean    float64 `yaml:"enemy_mean"`
	EnemySD      float64 `yaml:"enemy_sd"`
	SymbiontMean float64 `yaml:"symbiont_mean"`
	SymbiontSD   float64 `yaml:"symbiont_sd"`
}

// MigrationConfig holds migration variants.
type MigrationConfig struct {
	// LegacyHostInflow reads host inflow from patch (X,X) instead of the
	// neighbour (X,Y). Only valid when width <= height.
	LegacyHostInflow bool `yaml:"legacy_host_inflow"`
}

// ParallelConfig holds lattice sweep scheduling.
type ParallelConfig struct {
	Workers int `yaml:"workers"` // 0 = GOMAXPROCS, 1 = single-threaded
}

// TelemetryConfig holds summary and perf parameters.
type TelemetryConfig struct {
	OccupancyThreshold float64 `yaml:"occupancy_threshold"` // Density above which a species counts as present
	PerfWindow         int     `yaml:"perf_window"`         // Ticks averaged by the perf collector
	Plot               bool    `yaml:"plot"`                // Render trajectories.png at the end of a run
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// Default returns the embedded defaults. Panics if they cannot be parsed.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: invalid embedded defaults: %v", err))
	}
	return cfg
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Validate reports every invalid setting. The lattice must not be built
// from a config that fails validation.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Lattice.Width <= 0 {
		bad("lattice.width must be positive, got %d", c.Lattice.Width)
	}
	if c.Lattice.Height <= 0 {
		bad("lattice.height must be positive, got %d", c.Lattice.Height)
	}
	if c.Productivity.Variance < 0 {
		bad("productivity.variance must be non-negative, got %g", c.Productivity.Variance)
	}

	for name, v := range map[string]float64{
		"dispersal.host":     c.Dispersal.Host,
		"dispersal.enemy":    c.Dispersal.Enemy,
		"dispersal.symbiont": c.Dispersal.Symbiont,
		"dynamics.q":         c.Dynamics.Q,
		"dynamics.b":         c.Dynamics.B,
		"dynamics.a":         c.Dynamics.A,
		"dynamics.g":         c.Dynamics.G,
		"dynamics.de":        c.Dynamics.De,
		"dynamics.dm":        c.Dynamics.Dm,
		"init.host_sd":       c.Init.HostSD,
		"init.enemy_sd":      c.Init.EnemySD,
		"init.symbiont_sd":   c.Init.SymbiontSD,
	} {
		if v < 0 {
			bad("%s must be non-negative, got %g", name, v)
		}
	}
	if c.Dynamics.U <= 0 {
		bad("dynamics.u must be positive, got %g", c.Dynamics.U)
	}

	if c.Integration.SimSteps < 0 {
		bad("integration.sim_steps must be non-negative, got %d", c.Integration.SimSteps)
	}
	if c.Integration.Scalar <= 0 {
		bad("integration.scalar must be positive, got %g", c.Integration.Scalar)
	}
	if c.Integration.OutSteps <= 0 {
		bad("integration.out_steps must be positive, got %d", c.Integration.OutSteps)
	}

	if c.Migration.LegacyHostInflow && c.Lattice.Width > c.Lattice.Height {
		bad("migration.legacy_host_inflow requires width <= height, got %dx%d",
			c.Lattice.Width, c.Lattice.Height)
	}
	if c.Parallel.Workers < 0 {
		bad("parallel.workers must be non-negative, got %d", c.Parallel.Workers)
	}

	return errors.Join(errs...)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

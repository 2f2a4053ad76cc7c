package main

import (
	"github.com/pthm-cable/mutualism/config"
)

// ParamSpec is one searchable model parameter and how to write it into a config.
type ParamSpec struct {
	Name     string  // CSV column and log name
	Path     string  // YAML path in the config
	Min, Max float64 // search bounds
	Default  float64

	set func(cfg *config.Config, v float64)
}

// ParamVector is the ordered search space. CMA-ES works in the unit cube;
// values are mapped to [Min, Max] per parameter.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector returns the search space: the three dispersal rates and
// the enemy-to-symbiont conversion asymmetry.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{
				Name: "host_dispersal", Path: "dispersal.host", Min: 0, Max: 0.5, Default: 0.01,
				set: func(c *config.Config, v float64) { c.Dispersal.Host = v },
			},
			{
				Name: "enemy_dispersal", Path: "dispersal.enemy", Min: 0, Max: 0.5, Default: 0.01,
				set: func(c *config.Config, v float64) { c.Dispersal.Enemy = v },
			},
			{
				Name: "symbiont_dispersal", Path: "dispersal.symbiont", Min: 0, Max: 0.5, Default: 0.01,
				set: func(c *config.Config, v float64) { c.Dispersal.Symbiont = v },
			},
			{
				Name: "alpha", Path: "dynamics.a", Min: 0.05, Max: 1.0, Default: 0.5,
				set: func(c *config.Config, v float64) { c.Dynamics.A = v },
			},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the defaults in Specs order.
func (pv *ParamVector) DefaultVector() []float64 {
	return pv.mapEach(nil, func(s ParamSpec, _ float64) float64 { return s.Default })
}

// Normalize maps raw values into the unit cube.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	return pv.mapEach(raw, func(s ParamSpec, v float64) float64 { return (v - s.Min) / (s.Max - s.Min) })
}

// Denormalize maps unit-cube values back to raw values. Results may lie
// outside the bounds; see Clamp.
func (pv *ParamVector) Denormalize(unit []float64) []float64 {
	return pv.mapEach(unit, func(s ParamSpec, v float64) float64 { return s.Min + v*(s.Max-s.Min) })
}

// Clamp limits every value to its bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	return pv.mapEach(v, func(s ParamSpec, x float64) float64 { return min(max(x, s.Min), s.Max) })
}

// ApplyToConfig writes clamped values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
}

func (pv *ParamVector) mapEach(in []float64, f func(ParamSpec, float64) float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		var v float64
		if in != nil {
			v = in[i]
		}
		out[i] = f(s, v)
	}
	return out
}

// Package systems implements the per-tick lattice updates: local growth and
// toroidal migration.
package systems

import (
	"github.com/pthm-cable/mutualism/config"
	"github.com/pthm-cable/mutualism/lattice"
)

// GrowthParams holds the local dynamics constants.
type GrowthParams struct {
	Q, B, U, A, G float64
	De, Dm        float64
	Scalar        float64 // Euler step size
}

// GrowthParamsFrom extracts growth constants from the config.
func GrowthParamsFrom(cfg *config.Config) GrowthParams {
	d := cfg.Dynamics
	return GrowthParams{
		Q: d.Q, B: d.B, U: d.U, A: d.A, G: d.G,
		De: d.De, Dm: d.Dm,
		Scalar: cfg.Integration.Scalar,
	}
}

// Growth applies one explicit Euler step of host-enemy-symbiont dynamics
// to each patch independently.
type Growth struct {
	p GrowthParams
}

// NewGrowth creates a growth step with fixed parameters.
func NewGrowth(p GrowthParams) *Growth {
	return &Growth{p: p}
}

// Params returns the step's parameters.
func (g *Growth) Params() GrowthParams { return g.p }

// Apply advances one patch. Populations are not clamped and may go negative.
//
//	protection = u / (u + M)
//	dH = H (r - qH - B(P protection + aM))
//	dP = P (B g H protection - de)
//	dM = M (B g a H - dm)
func (g *Growth) Apply(c *lattice.Patch) {
	p := &g.p
	protection := p.U / (p.U + c.M)

	dH := c.R - p.Q*c.H - p.B*(c.P*protection+p.A*c.M)
	dP := p.B*p.G*c.H*protection - p.De
	dM := p.B*p.G*p.A*c.H - p.Dm

	dH *= c.H
	dP *= c.P
	dM *= c.M

	c.H += dH * p.Scalar
	c.P += dP * p.Scalar
	c.M += dM * p.Scalar
}

// ApplyRange advances patches [i0, i1).
func (g *Growth) ApplyRange(l *lattice.Lattice, i0, i1 int) {
	cells := l.Cells()
	for i := i0; i < i1; i++ {
		g.Apply(&cells[i])
	}
}

// Step advances every patch of the lattice.
func (g *Growth) Step(l *lattice.Lattice, pool *Pool) {
	pool.Run(l.Len(), func(i0, i1 int) {
		g.ApplyRange(l, i0, i1)
	})
}

package systems

import (
	"github.com/pthm-cable/mutualism/config"
	"github.com/pthm-cable/mutualism/lattice"
)

// neighborShare is the fraction of a dispersing population sent to each neighbour.
const neighborShare = 1 / 8.0

// MigrationParams holds per-species dispersal rates.
type MigrationParams struct {
	Host, Enemy, Symbiont float64
	Scalar                float64 // Euler step size

	// LegacyHostInflow takes host inflow from patch (X,X) rather than the
	// neighbour (X,Y). Requires Width <= Height.
	LegacyHostInflow bool
}

// MigrationParamsFrom extracts dispersal settings from the config.
func MigrationParamsFrom(cfg *config.Config) MigrationParams {
	return MigrationParams{
		Host:             cfg.Dispersal.Host,
		Enemy:            cfg.Dispersal.Enemy,
		Symbiont:         cfg.Dispersal.Symbiont,
		Scalar:           cfg.Integration.Scalar,
		LegacyHostInflow: cfg.Migration.LegacyHostInflow,
	}
}

// Migration exchanges populations between each patch and its Moore
// neighbours in two phases. Gather accumulates flux from the frozen
// post-growth populations; Scatter applies it. No patch may be scattered
// before every patch has been gathered.
type Migration struct {
	p MigrationParams
}

// NewMigration creates a migration step with fixed parameters.
func NewMigration(p MigrationParams) *Migration {
	return &Migration{p: p}
}

// Params returns the step's parameters.
func (m *Migration) Params() MigrationParams { return m.p }

// Gather computes the flux of patch i against each of its neighbours.
// It reads neighbour populations and writes only patch i's accumulators.
func (m *Migration) Gather(l *lattice.Lattice, i int) {
	cells := l.Cells()
	c := &cells[i]
	s := m.p.Scalar

	for _, n := range l.Neighbors(i) {
		src := &cells[n]
		hostSrc := src
		if m.p.LegacyHostInflow {
			x, _ := l.Coords(int(n))
			hostSrc = &cells[x*l.W+x]
		}

		c.HOut += c.H * s * m.p.Host * neighborShare
		c.POut += c.P * s * m.p.Enemy * neighborShare
		c.MOut += c.M * s * m.p.Symbiont * neighborShare

		c.HIn += hostSrc.H * s * m.p.Host * neighborShare
		c.PIn += src.P * s * m.p.Enemy * neighborShare
		c.MIn += src.M * s * m.p.Symbiont * neighborShare
	}
}

// Scatter applies patch i's net flux and clears its accumulators.
func (m *Migration) Scatter(l *lattice.Lattice, i int) {
	c := &l.Cells()[i]
	c.H += c.HIn - c.HOut
	c.P += c.PIn - c.POut
	c.M += c.MIn - c.MOut
	c.ClearFlux()
}

// GatherAll runs the flux phase over the whole lattice.
func (m *Migration) GatherAll(l *lattice.Lattice, pool *Pool) {
	pool.Run(l.Len(), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			m.Gather(l, i)
		}
	})
}

// ScatterAll runs the apply phase over the whole lattice.
func (m *Migration) ScatterAll(l *lattice.Lattice, pool *Pool) {
	pool.Run(l.Len(), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			m.Scatter(l, i)
		}
	})
}

// Step runs both phases with a barrier between them.
func (m *Migration) Step(l *lattice.Lattice, pool *Pool) {
	m.GatherAll(l, pool)
	m.ScatterAll(l, pool)
}

// FluxTotals holds lattice-wide migration accumulator sums.
type FluxTotals struct {
	HIn, HOut float64
	PIn, POut float64
	MIn, MOut float64
}

// SumFlux sums the accumulators over the lattice. Meaningful between
// GatherAll and ScatterAll.
func SumFlux(l *lattice.Lattice) FluxTotals {
	var t FluxTotals
	for _, c := range l.Cells() {
		t.HIn += c.HIn
		t.HOut += c.HOut
		t.PIn += c.PIn
		t.POut += c.POut
		t.MIn += c.MIn
		t.MOut += c.MOut
	}
	return t
}

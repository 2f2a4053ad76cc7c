package lattice

// Patch is the state of one lattice cell.
type Patch struct {
	// Population densities. No floor is enforced after seeding.
	H, P, M float64

	// Primary productivity, fixed at creation and never negative.
	R float64

	// Migration scratch. Zero outside the migration phase.
	HIn, PIn, MIn    float64
	HOut, POut, MOut float64
}

// ClearFlux resets the migration accumulators.
func (p *Patch) ClearFlux() {
	p.HIn, p.PIn, p.MIn = 0, 0, 0
	p.HOut, p.POut, p.MOut = 0, 0, 0
}

// FluxClear reports whether all migration accumulators are zero.
func (p *Patch) FluxClear() bool {
	return p.HIn == 0 && p.PIn == 0 && p.MIn == 0 &&
		p.HOut == 0 && p.POut == 0 && p.MOut == 0
}

// Record is one row of a lattice snapshot.
type Record struct {
	T int     `csv:"t"`
	X int     `csv:"x"`
	Y int     `csv:"y"`
	R float64 `csv:"r"`
	H float64 `csv:"h"`
	P float64 `csv:"p"`
	M float64 `csv:"m"`
}

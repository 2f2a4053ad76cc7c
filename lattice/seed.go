package lattice

import "github.com/pthm-cable/mutualism/config"

// Sampler draws from a Gaussian distribution.
type Sampler interface {
	Normal(mean, sd float64) float64
}

// Distribution is a Gaussian with mean and standard deviation.
type Distribution struct {
	Mean, SD float64
}

// SeedParams describes the initial state distributions.
type SeedParams struct {
	R, H, P, M Distribution
}

// SeedParamsFrom extracts seeding distributions from the config.
func SeedParamsFrom(cfg *config.Config) SeedParams {
	return SeedParams{
		R: Distribution{cfg.Productivity.Mean, cfg.Productivity.Variance},
		H: Distribution{cfg.Init.HostMean, cfg.Init.HostSD},
		P: Distribution{cfg.Init.EnemyMean, cfg.Init.EnemySD},
		M: Distribution{cfg.Init.SymbiontMean, cfg.Init.SymbiontSD},
	}
}

// Seed draws every patch's productivity and populations from src.
// Draw order is x-major, then y, then r, H, P, M within a patch, so a
// given source sequence always produces the same lattice.
// r, P and M are clamped at zero; H is not.
func (l *Lattice) Seed(src Sampler, sp SeedParams) {
	for x := 0; x < l.W; x++ {
		for y := 0; y < l.H; y++ {
			c := &l.cells[y*l.W+x]
			c.R = max(src.Normal(sp.R.Mean, sp.R.SD), 0)
			c.H = src.Normal(sp.H.Mean, sp.H.SD)
			c.P = max(src.Normal(sp.P.Mean, sp.P.SD), 0)
			c.M = max(src.Normal(sp.M.Mean, sp.M.SD), 0)
			c.ClearFlux()
		}
	}
}

// Fill sets every patch to p. Productivity is clamped at zero.
func (l *Lattice) Fill(p Patch) {
	p.R = max(p.R, 0)
	for i := range l.cells {
		l.cells[i] = p
	}
}

// Package rng provides the seeded random source used to initialise a run.
package rng

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Source draws Gaussian and uniform variates from a seeded PCG stream.
type Source struct {
	src rand.Source
	rnd *rand.Rand
}

// New creates a source seeded with seed. Equal seeds give equal sequences.
func New(seed uint64) *Source {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Source{src: src, rnd: rand.New(src)}
}

// Normal draws from N(mean, sd). A zero sd returns mean.
func (s *Source) Normal(mean, sd float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: sd, Src: s.src}.Rand()
}

// UniformPos draws from the open interval (0, 1).
func (s *Source) UniformPos() float64 {
	for {
		if v := s.rnd.Float64(); v > 0 {
			return v
		}
	}
}

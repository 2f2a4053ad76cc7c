// Package sim drives the discrete-time simulation loop over a lattice.
package sim

import (
	"context"
	"fmt"

	"github.com/pthm-cable/mutualism/config"
	"github.com/pthm-cable/mutualism/lattice"
	"github.com/pthm-cable/mutualism/systems"
	"github.com/pthm-cable/mutualism/telemetry"
)

// Sink receives lattice snapshots. recs is only valid for the duration
// of the call.
type Sink interface {
	Snapshot(t int, recs []lattice.Record) error
}

// Params holds everything the integrator needs besides the lattice.
type Params struct {
	Growth    systems.GrowthParams
	Migration systems.MigrationParams
	SimSteps  int // Last tick processed (inclusive)
	OutSteps  int // Snapshot when t % OutSteps == 0
	Workers   int // 0 = GOMAXPROCS, 1 = single-threaded
}

// ParamsFrom extracts integrator parameters from the config.
func ParamsFrom(cfg *config.Config) Params {
	return Params{
		Growth:    systems.GrowthParamsFrom(cfg),
		Migration: systems.MigrationParamsFrom(cfg),
		SimSteps:  cfg.Integration.SimSteps,
		OutSteps:  cfg.Integration.OutSteps,
		Workers:   cfg.Parallel.Workers,
	}
}

// Integrator advances a lattice tick by tick: growth over every patch,
// migration gather over every patch, migration scatter over every patch,
// then a snapshot when the tick is on the output cadence.
type Integrator struct {
	lat       *lattice.Lattice
	growth    *systems.Growth
	migration *systems.Migration
	pool      *systems.Pool

	simSteps int
	outSteps int
	tick     int

	sink Sink
	perf *telemetry.PerfCollector
	recs []lattice.Record
}

// New creates an integrator over l. The integrator borrows l until Close.
// sink may be nil.
func New(l *lattice.Lattice, p Params, sink Sink) (*Integrator, error) {
	if p.OutSteps <= 0 {
		return nil, fmt.Errorf("out steps must be positive, got %d", p.OutSteps)
	}
	if p.SimSteps < 0 {
		return nil, fmt.Errorf("sim steps must be non-negative, got %d", p.SimSteps)
	}
	if p.Migration.LegacyHostInflow && l.W > l.H {
		return nil, fmt.Errorf("legacy host inflow needs width <= height, got %dx%d", l.W, l.H)
	}

	return &Integrator{
		lat:       l,
		growth:    systems.NewGrowth(p.Growth),
		migration: systems.NewMigration(p.Migration),
		pool:      systems.NewPool(p.Workers),
		simSteps:  p.SimSteps,
		outSteps:  p.OutSteps,
		sink:      sink,
		recs:      make([]lattice.Record, 0, l.Len()),
	}, nil
}

// SetPerf attaches a perf collector.
func (in *Integrator) SetPerf(pc *telemetry.PerfCollector) {
	pc.SetCells(in.lat.Len())
	in.perf = pc
}

// Tick returns the next tick to be processed.
func (in *Integrator) Tick() int { return in.tick }

// Done reports whether the last tick has been processed.
func (in *Integrator) Done() bool { return in.tick > in.simSteps }

// Workers returns the number of sweep workers.
func (in *Integrator) Workers() int { return in.pool.Workers() }

// Step processes the current tick and advances the counter.
func (in *Integrator) Step() error {
	t := in.tick

	in.perf.StartTick()

	in.perf.StartPhase(telemetry.PhaseGrowth)
	in.growth.Step(in.lat, in.pool)

	// Gather must finish for the whole lattice before any patch scatters;
	// Pool.Run returns only after all of its chunks are done.
	in.perf.StartPhase(telemetry.PhaseGather)
	in.migration.GatherAll(in.lat, in.pool)

	in.perf.StartPhase(telemetry.PhaseScatter)
	in.migration.ScatterAll(in.lat, in.pool)

	var err error
	if t%in.outSteps == 0 {
		in.perf.StartPhase(telemetry.PhaseOutput)
		err = in.emit(t)
	}

	in.perf.EndTick()
	in.tick++
	return err
}

func (in *Integrator) emit(t int) error {
	if in.sink == nil {
		return nil
	}
	in.recs = in.lat.Records(in.recs[:0], t)
	if err := in.sink.Snapshot(t, in.recs); err != nil {
		return fmt.Errorf("snapshot at tick %d: %w", t, err)
	}
	return nil
}

// Run processes ticks until the last one, a sink error, or ctx is done.
// Cancellation is checked between ticks only.
func (in *Integrator) Run(ctx context.Context) error {
	for !in.Done() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped before tick %d: %w", in.tick, err)
		}
		if err := in.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the sweep workers.
func (in *Integrator) Close() {
	in.pool.Close()
}

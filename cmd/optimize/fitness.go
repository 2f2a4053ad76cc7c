package main

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/mutualism/config"
	"github.com/pthm-cable/mutualism/lattice"
	"github.com/pthm-cable/mutualism/rng"
	"github.com/pthm-cable/mutualism/sim"
	"github.com/pthm-cable/mutualism/telemetry"
)

// tailSnapshots is the number of trailing snapshots averaged into fitness,
// so transient coexistence early in a run does not count.
const tailSnapshots = 10

// FitnessEvaluator runs simulations across seeds and scores coexistence.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []uint64
	baseConfig *config.Config
	parallel   int

	mu          sync.Mutex
	lastSummary telemetry.Summary // final summary of the first seed, most recent Evaluate
}

// NewFitnessEvaluator creates a new evaluator. Seeds are simulated
// concurrently, at most parallel at a time (0 = GOMAXPROCS).
func NewFitnessEvaluator(params *ParamVector, seeds []uint64, baseCfg *config.Config, parallel int) *FitnessEvaluator {
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}
	return &FitnessEvaluator{
		params:     params,
		seeds:      seeds,
		baseConfig: baseCfg,
		parallel:   parallel,
	}
}

// LastSummary returns the final snapshot summary from the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() telemetry.Summary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSummary
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Fitness is the negative mean coexistence fraction over the trailing
// snapshots, averaged across seeds. Runs that fail score +Inf.
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, x []float64) (float64, error) {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Validate(); err != nil {
		return math.Inf(1), err
	}

	scores := make([]float64, len(fe.seeds))
	finals := make([]telemetry.Summary, len(fe.seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fe.parallel)
	for i, seed := range fe.seeds {
		g.Go(func() error {
			rec, err := runSeed(ctx, cfg, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			scores[i] = coexistenceScore(rec.Tail(tailSnapshots))
			if n := len(rec.Summaries); n > 0 {
				finals[i] = rec.Summaries[n-1]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return math.Inf(1), err
	}

	var total float64
	for _, s := range scores {
		total += s
	}

	fe.mu.Lock()
	fe.lastSummary = finals[0]
	fe.mu.Unlock()

	return -total / float64(len(scores)), nil
}

// runSeed simulates one replicate single-threaded and returns its summaries.
func runSeed(ctx context.Context, cfg *config.Config, seed uint64) (*telemetry.SummaryRecorder, error) {
	l, err := lattice.New(cfg.Lattice.Width, cfg.Lattice.Height)
	if err != nil {
		return nil, err
	}
	l.Seed(rng.New(seed), lattice.SeedParamsFrom(cfg))

	rec := telemetry.NewSummaryRecorder(cfg.Telemetry.OccupancyThreshold)
	p := sim.ParamsFrom(cfg)
	p.Workers = 1 // seeds already run in parallel

	in, err := sim.New(l, p, rec)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	if err := in.Run(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// coexistenceScore averages the coexistence fraction over summaries.
// Non-finite summaries (diverged runs) score zero.
func coexistenceScore(tail []telemetry.Summary) float64 {
	if len(tail) == 0 {
		return 0
	}
	var sum float64
	for _, s := range tail {
		if math.IsNaN(s.HostMean) || math.IsInf(s.HostMean, 0) {
			return 0
		}
		sum += s.Coexistence
	}
	return sum / float64(len(tail))
}

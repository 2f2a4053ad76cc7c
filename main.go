package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/mutualism/config"
	"github.com/pthm-cable/mutualism/lattice"
	"github.com/pthm-cable/mutualism/rng"
	"github.com/pthm-cable/mutualism/sim"
	"github.com/pthm-cable/mutualism/telemetry"
)

// options holds CLI settings that are not part of the model config.
type options struct {
	seed      uint64
	outputDir string
	logPerf   bool
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	outputDir := flag.String("output-dir", ".", "Directory for the snapshot file, summary.csv, config.yaml and run.yaml")
	workers := flag.Int("workers", 0, "Lattice sweep workers (0 = GOMAXPROCS, 1 = single-threaded); overrides parallel.workers")
	logPerf := flag.Bool("log-perf", false, "Log per-phase timing at the end of the run")
	verbose := flag.Bool("verbose", false, "Log every snapshot summary")

	// Model overrides, applied only when given
	rmean := flag.Float64("rmean", 0, "Average productivity (productivity.mean)")
	rvar := flag.Float64("rvar", 0, "Productivity spread (productivity.variance)")
	hdisp := flag.Float64("hdisp", 0, "Host dispersal (dispersal.host)")
	pdisp := flag.Float64("pdisp", 0, "Enemy dispersal (dispersal.enemy)")
	mdisp := flag.Float64("mdisp", 0, "Symbiont dispersal (dispersal.symbiont)")
	alpha := flag.Float64("alpha", 0, "Enemy-to-symbiont conversion asymmetry (dynamics.a)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Only flags given on the command line override the config
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rmean":
			cfg.Productivity.Mean = *rmean
		case "rvar":
			cfg.Productivity.Variance = *rvar
		case "hdisp":
			cfg.Dispersal.Host = *hdisp
		case "pdisp":
			cfg.Dispersal.Enemy = *pdisp
		case "mdisp":
			cfg.Dispersal.Symbiont = *mdisp
		case "alpha":
			cfg.Dynamics.A = *alpha
		case "workers":
			cfg.Parallel.Workers = *workers
		}
	})

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := options{seed: rngSeed, outputDir: *outputDir, logPerf: *logPerf}
	if err := run(ctx, cfg, opts); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	begin := time.Now()
	src := rng.New(opts.seed)

	l, err := lattice.New(cfg.Lattice.Width, cfg.Lattice.Height)
	if err != nil {
		return err
	}

	// The run tag is the first draw, so seeding starts from the second.
	name := telemetry.RunName(cfg, src.UniformPos())
	l.Seed(src, lattice.SeedParamsFrom(cfg))

	om, err := telemetry.NewOutputManager(opts.outputDir, name, cfg.Telemetry.OccupancyThreshold)
	if err != nil {
		return err
	}
	defer func() {
		if err := om.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	in, err := sim.New(l, sim.ParamsFrom(cfg), om)
	if err != nil {
		return err
	}
	defer in.Close()

	var perf *telemetry.PerfCollector
	if opts.logPerf {
		perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
		in.SetPerf(perf)
	}

	if err := om.WriteConfig(cfg); err != nil {
		return err
	}
	info := telemetry.RunInfo{
		Seed:     opts.seed,
		Started:  begin,
		Workers:  in.Workers(),
		Snapshot: name,
		Host:     telemetry.CollectHostInfo(),
	}
	if err := om.WriteRunInfo(info); err != nil {
		return err
	}

	slog.Info("starting simulation",
		"seed", opts.seed,
		"width", l.W,
		"height", l.H,
		"sim_steps", cfg.Integration.SimSteps,
		"out_steps", cfg.Integration.OutSteps,
		"workers", in.Workers(),
		"path", om.SnapshotPath(),
	)

	if err := in.Run(ctx); err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	if perf != nil {
		perf.Stats().LogStats()
	}

	if cfg.Telemetry.Plot {
		if err := om.WritePlot(); err != nil {
			slog.Warn("failed to write trajectory plot", "error", err)
		}
	}

	slog.Info("execution complete",
		"seconds", int(time.Since(begin).Seconds()),
		"final", om.LastSummary(),
	)
	return nil
}

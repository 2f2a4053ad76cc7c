package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase identifies one part of a simulation tick.
type Phase uint8

const (
	PhaseGrowth Phase = iota
	PhaseGather
	PhaseScatter
	PhaseOutput
	numPhases
)

var phaseNames = [numPhases]string{"growth", "gather", "scatter", "output"}

func (p Phase) String() string {
	if p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// tickSample is the timing of one tick. mask marks the phases that ran.
type tickSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
	mask   uint8
}

// PerfCollector keeps per-phase tick timings over a rolling window.
// A nil collector ignores every call, so the integrator can hold one
// unconditionally.
type PerfCollector struct {
	ring  []tickSample
	next  int
	count int
	cells int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	active     Phase
	inPhase    bool
}

// NewPerfCollector creates a collector averaging over the last windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 100
	}
	return &PerfCollector{ring: make([]tickSample, windowSize)}
}

// SetCells records the lattice size used for throughput.
func (p *PerfCollector) SetCells(n int) {
	if p == nil {
		return
	}
	p.cells = n
}

// StartTick begins timing a tick.
func (p *PerfCollector) StartTick() {
	if p == nil {
		return
	}
	p.tickStart = time.Now()
	p.cur = tickSample{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	if p == nil || phase >= numPhases {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.active, p.phaseStart, p.inPhase = phase, now, true
	p.cur.mask |= 1 << phase
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.cur.phases[p.active] += now.Sub(p.phaseStart)
		p.inPhase = false
	}
}

// EndTick closes the running phase and stores the tick in the window.
func (p *PerfCollector) EndTick() {
	if p == nil {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// PerfStats summarizes the window. Phase maps are keyed by phase name and
// only hold phases that ran at least once.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	P95TickDuration time.Duration

	PhaseAvg map[string]time.Duration // averaged over every tick in the window
	PhasePct map[string]float64       // share of the average tick

	TicksPerSecond float64
	CellsPerSecond float64 // patch updates per second; zero unless SetCells was called
}

// Stats computes statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	if p == nil || p.count == 0 {
		return out
	}

	ticks := make([]float64, p.count)
	var sums [numPhases]time.Duration
	var seen uint8
	for i, s := range p.ring[:p.count] {
		ticks[i] = float64(s.total)
		for ph := range numPhases {
			sums[ph] += s.phases[ph]
		}
		seen |= s.mask
	}
	slices.Sort(ticks)

	n := time.Duration(p.count)
	out.AvgTickDuration = time.Duration(stat.Mean(ticks, nil))
	out.MinTickDuration = time.Duration(ticks[0])
	out.MaxTickDuration = time.Duration(ticks[len(ticks)-1])
	out.P95TickDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, ticks, nil))

	for ph := range numPhases {
		if seen&(1<<ph) == 0 {
			continue
		}
		avg := sums[ph] / n
		out.PhaseAvg[ph.String()] = avg
		if out.AvgTickDuration > 0 {
			out.PhasePct[ph.String()] = float64(avg) / float64(out.AvgTickDuration) * 100
		}
	}

	if out.AvgTickDuration > 0 {
		out.TicksPerSecond = float64(time.Second) / float64(out.AvgTickDuration)
		out.CellsPerSecond = out.TicksPerSecond * float64(p.cells)
	}
	return out
}

// LogStats logs the statistics as a single "perf" record.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	if s.CellsPerSecond > 0 {
		attrs = append(attrs, slog.Float64("cells_per_sec", s.CellsPerSecond))
	}

	for _, name := range phaseNames {
		if pct, ok := s.PhasePct[name]; ok {
			attrs = append(attrs, slog.Float64(name+"_pct", float64(int(pct*10))/10))
		}
	}

	return slog.GroupValue(attrs...)
}

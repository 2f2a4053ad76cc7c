package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/mutualism/lattice"
)

// Summary holds lattice-wide statistics for one snapshot.
type Summary struct {
	Tick int `csv:"t"`

	HostMean float64 `csv:"h_mean"`
	HostSD   float64 `csv:"h_sd"`
	HostMin  float64 `csv:"h_min"`
	HostSum  float64 `csv:"h_total"`

	EnemyMean float64 `csv:"p_mean"`
	EnemySD   float64 `csv:"p_sd"`
	EnemyMin  float64 `csv:"p_min"`
	EnemySum  float64 `csv:"p_total"`

	SymbiontMean float64 `csv:"m_mean"`
	SymbiontSD   float64 `csv:"m_sd"`
	SymbiontMin  float64 `csv:"m_min"`
	SymbiontSum  float64 `csv:"m_total"`

	// Fraction of patches where the species exceeds the occupancy threshold
	HostOccupancy     float64 `csv:"h_occupancy"`
	EnemyOccupancy    float64 `csv:"p_occupancy"`
	SymbiontOccupancy float64 `csv:"m_occupancy"`

	// Fraction of patches where all three species are present
	Coexistence float64 `csv:"coexistence"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("t", s.Tick),
		slog.Float64("h_mean", s.HostMean),
		slog.Float64("p_mean", s.EnemyMean),
		slog.Float64("m_mean", s.SymbiontMean),
		slog.Float64("coexistence", s.Coexistence),
	)
}

// Summarizer computes snapshot summaries, reusing its buffers between calls.
type Summarizer struct {
	threshold float64
	h, p, m   []float64
}

// NewSummarizer creates a summarizer. A species counts as present in a
// patch when its density exceeds threshold.
func NewSummarizer(threshold float64) *Summarizer {
	return &Summarizer{threshold: threshold}
}

// Summarize computes statistics over one snapshot's records.
func (s *Summarizer) Summarize(t int, recs []lattice.Record) Summary {
	out := Summary{Tick: t}
	n := len(recs)
	if n == 0 {
		return out
	}

	s.h, s.p, s.m = s.h[:0], s.p[:0], s.m[:0]
	var hOcc, pOcc, mOcc, all int
	for _, r := range recs {
		s.h = append(s.h, r.H)
		s.p = append(s.p, r.P)
		s.m = append(s.m, r.M)

		hp, pp, mp := r.H > s.threshold, r.P > s.threshold, r.M > s.threshold
		if hp {
			hOcc++
		}
		if pp {
			pOcc++
		}
		if mp {
			mOcc++
		}
		if hp && pp && mp {
			all++
		}
	}

	out.HostMean, out.HostSD = meanSD(s.h)
	out.EnemyMean, out.EnemySD = meanSD(s.p)
	out.SymbiontMean, out.SymbiontSD = meanSD(s.m)

	out.HostMin, out.EnemyMin, out.SymbiontMin = floats.Min(s.h), floats.Min(s.p), floats.Min(s.m)
	out.HostSum, out.EnemySum, out.SymbiontSum = floats.Sum(s.h), floats.Sum(s.p), floats.Sum(s.m)

	fn := float64(n)
	out.HostOccupancy = float64(hOcc) / fn
	out.EnemyOccupancy = float64(pOcc) / fn
	out.SymbiontOccupancy = float64(mOcc) / fn
	out.Coexistence = float64(all) / fn

	return out
}

// meanSD returns the mean and sample standard deviation; SD is 0 for a
// single value.
func meanSD(x []float64) (float64, float64) {
	if len(x) < 2 {
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// SummaryRecorder is an in-memory snapshot sink that keeps only summaries.
type SummaryRecorder struct {
	summarizer *Summarizer
	Summaries  []Summary
}

// NewSummaryRecorder creates an in-memory recorder.
func NewSummaryRecorder(threshold float64) *SummaryRecorder {
	return &SummaryRecorder{summarizer: NewSummarizer(threshold)}
}

// Snapshot records the summary of one snapshot.
func (r *SummaryRecorder) Snapshot(t int, recs []lattice.Record) error {
	r.Summaries = append(r.Summaries, r.summarizer.Summarize(t, recs))
	return nil
}

// Tail returns the last n summaries (fewer if not enough were recorded).
func (r *SummaryRecorder) Tail(n int) []Summary {
	if n >= len(r.Summaries) {
		return r.Summaries
	}
	return r.Summaries[len(r.Summaries)-n:]
}

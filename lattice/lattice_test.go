package lattice

import (
	"sort"
	"testing"

	"github.com/pthm-cable/mutualism/config"
)

func neighborCoords(l *Lattice, x, y int) [][2]int {
	var out [][2]int
	for _, n := range l.Neighbors(l.Index(x, y)) {
		nx, ny := l.Coords(int(n))
		out = append(out, [2]int{nx, ny})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func TestNewRejectsBadDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 4}, {4, 0}, {-1, 3}} {
		if _, err := New(dims[0], dims[1]); err == nil {
			t.Errorf("expected error for %dx%d", dims[0], dims[1])
		}
	}
}

func TestIndexCoords(t *testing.T) {
	l, _ := New(5, 3)

	for i := 0; i < l.Len(); i++ {
		x, y := l.Coords(i)
		if got := l.Index(x, y); got != i {
			t.Errorf("Index(Coords(%d)) = %d", i, got)
		}
	}

	// Wraparound
	if l.Index(-1, 0) != l.Index(4, 0) {
		t.Error("x=-1 should wrap to x=4")
	}
	if l.Index(0, 3) != l.Index(0, 0) {
		t.Error("y=3 should wrap to y=0")
	}
}

func TestNeighborsFullTorus3x3(t *testing.T) {
	l, _ := New(3, 3)

	for i := 0; i < l.Len(); i++ {
		x, y := l.Coords(i)
		got := neighborCoords(l, x, y)
		if len(got) != 8 {
			t.Fatalf("(%d,%d): expected 8 neighbours, got %d", x, y, len(got))
		}
		seen := make(map[[2]int]bool)
		for _, c := range got {
			if c == [2]int{x, y} {
				t.Errorf("(%d,%d) lists itself as a neighbour", x, y)
			}
			seen[c] = true
		}
		if len(seen) != 8 {
			t.Errorf("(%d,%d): expected all 8 other cells, got %v", x, y, got)
		}
	}
}

func TestNeighborsCornerWrap(t *testing.T) {
	l, _ := New(6, 5)

	got := neighborCoords(l, 0, 0)
	want := [][2]int{{0, 1}, {0, 4}, {1, 0}, {1, 1}, {1, 4}, {5, 0}, {5, 1}, {5, 4}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	// Opposite corner sees the mirror image
	got = neighborCoords(l, 5, 4)
	want = [][2]int{{0, 0}, {0, 3}, {0, 4}, {4, 0}, {4, 3}, {4, 4}, {5, 0}, {5, 3}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNeighborsSymmetric(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {1, 4}, {2, 2}, {2, 3}, {4, 7}} {
		l, _ := New(dims[0], dims[1])

		// Count (i -> j) entries and compare with (j -> i)
		count := make(map[[2]int]int)
		for i := 0; i < l.Len(); i++ {
			for _, n := range l.Neighbors(i) {
				count[[2]int{i, int(n)}]++
			}
		}
		for k, c := range count {
			if back := count[[2]int{k[1], k[0]}]; back != c {
				t.Errorf("%dx%d: %d->%d appears %d times, reverse %d", dims[0], dims[1], k[0], k[1], c, back)
			}
		}
	}
}

func TestNeighborsDegenerate(t *testing.T) {
	tests := []struct {
		w, h, deg int
	}{
		{1, 1, 0},
		{1, 3, 6},
		{3, 1, 6},
		{2, 2, 8},
	}
	for _, tt := range tests {
		l, _ := New(tt.w, tt.h)
		if got := len(l.Neighbors(0)); got != tt.deg {
			t.Errorf("%dx%d: expected %d neighbour entries, got %d", tt.w, tt.h, tt.deg, got)
		}
	}
}

func TestSetClampsProductivity(t *testing.T) {
	l, _ := New(2, 2)
	l.Set(1, 0, Patch{H: 1, R: -3})
	if p := l.At(1, 0); p.R != 0 || p.H != 1 {
		t.Errorf("unexpected patch %+v", p)
	}
}

func TestRecordsOrder(t *testing.T) {
	l, _ := New(2, 3)
	for i := range l.Cells() {
		l.Cells()[i].H = float64(i)
	}

	recs := l.Records(nil, 7)
	if len(recs) != 6 {
		t.Fatalf("expected 6 records, got %d", len(recs))
	}
	want := [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	for i, r := range recs {
		if r.T != 7 || r.X != want[i][0] || r.Y != want[i][1] {
			t.Errorf("record %d: got t=%d (%d,%d), want (%d,%d)", i, r.T, r.X, r.Y, want[i][0], want[i][1])
		}
		if r.H != float64(l.Index(r.X, r.Y)) {
			t.Errorf("record %d carries H=%g from the wrong cell", i, r.H)
		}
	}
}

// scriptedSampler returns a fixed sequence of values, ignoring parameters.
type scriptedSampler struct {
	vals  []float64
	calls [][2]float64
}

func (s *scriptedSampler) Normal(mean, sd float64) float64 {
	s.calls = append(s.calls, [2]float64{mean, sd})
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v
}

func TestSeedClampsAndOrder(t *testing.T) {
	l, _ := New(2, 1)
	src := &scriptedSampler{vals: []float64{
		-0.5, -2, -1, 3, // patch (0,0): r, H, P, M
		1.5, 9, 0.4, -0.1, // patch (1,0)
	}}
	sp := SeedParamsFrom(config.Default())
	l.Seed(src, sp)

	p := l.At(0, 0)
	if p.R != 0 || p.H != -2 || p.P != 0 || p.M != 3 {
		t.Errorf("patch (0,0): got %+v", p)
	}
	p = l.At(1, 0)
	if p.R != 1.5 || p.H != 9 || p.P != 0.4 || p.M != 0 {
		t.Errorf("patch (1,0): got %+v", p)
	}

	wantCalls := [][2]float64{
		{1.70, 1.35}, {10, 1}, {1, 0.8}, {1, 0.8},
	}
	for i, c := range wantCalls {
		if src.calls[i] != c {
			t.Errorf("draw %d: got N%v, want N%v", i, src.calls[i], c)
		}
	}
	if !l.FluxClear() {
		t.Error("seeded lattice should have clear flux")
	}
}

func TestFluxClear(t *testing.T) {
	l, _ := New(3, 3)
	if !l.FluxClear() {
		t.Fatal("new lattice should have clear flux")
	}
	l.Cells()[4].POut = 1e-12
	if l.FluxClear() {
		t.Error("expected dirty flux to be detected")
	}
	l.Cells()[4].ClearFlux()
	if !l.FluxClear() {
		t.Error("ClearFlux should reset the accumulators")
	}
}

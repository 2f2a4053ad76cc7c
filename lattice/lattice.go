// Package lattice holds the toroidal grid of habitat patches.
package lattice

import "fmt"

// MaxNeighbors is the size of the Moore neighbourhood.
const MaxNeighbors = 8

// Lattice is a fixed-size toroidal grid of patches stored in one flat buffer.
// Cell (x, y) lives at index y*W + x.
type Lattice struct {
	W, H int

	cells []Patch

	// Neighbour table: cell i owns nbr[i*MaxNeighbors : i*MaxNeighbors+deg[i]].
	nbr []int32
	deg []uint8
}

// New creates a lattice of zero-valued patches.
func New(w, h int) (*Lattice, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("lattice dimensions must be positive, got %dx%d", w, h)
	}

	n := w * h
	l := &Lattice{
		W:     w,
		H:     h,
		cells: make([]Patch, n),
		nbr:   make([]int32, n*MaxNeighbors),
		deg:   make([]uint8, n),
	}
	l.buildNeighbors()
	return l, nil
}

// buildNeighbors enumerates the 3x3 block around every cell with wraparound
// on both axes. Offsets that wrap back onto the cell itself (1-wide or
// 1-tall lattices) are skipped, so such cells have fewer than 8 entries.
// On 2-wide lattices the same cell can appear twice; each entry carries its
// own 1/8 share.
func (l *Lattice) buildNeighbors() {
	for y := 0; y < l.H; y++ {
		for x := 0; x < l.W; x++ {
			i := l.Index(x, y)
			base := i * MaxNeighbors
			k := 0
			for dx := -1; dx <= 1; dx++ {
				nx := wrap(x+dx, l.W)
				for dy := -1; dy <= 1; dy++ {
					ny := wrap(y+dy, l.H)
					if nx == x && ny == y {
						continue
					}
					l.nbr[base+k] = int32(l.Index(nx, ny))
					k++
				}
			}
			l.deg[i] = uint8(k)
		}
	}
}

// wrap maps v into [0, n).
func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// Len returns the number of patches.
func (l *Lattice) Len() int { return len(l.cells) }

// Index returns the flat index of (x, y), wrapping coordinates onto the torus.
func (l *Lattice) Index(x, y int) int {
	return wrap(y, l.H)*l.W + wrap(x, l.W)
}

// Coords returns the (x, y) coordinates of flat index i.
func (l *Lattice) Coords(i int) (x, y int) {
	return i % l.W, i / l.W
}

// Neighbors returns the flat indices of the neighbours of cell i.
// The slice aliases the lattice's table and must not be modified.
func (l *Lattice) Neighbors(i int) []int32 {
	base := i * MaxNeighbors
	return l.nbr[base : base+int(l.deg[i])]
}

// Cells returns the patch buffer. The slice aliases lattice storage: callers
// may mutate patches in place during a sweep but must not retain it.
func (l *Lattice) Cells() []Patch { return l.cells }

// At returns a copy of the patch at (x, y).
func (l *Lattice) At(x, y int) Patch {
	return l.cells[l.Index(x, y)]
}

// Set overwrites the patch at (x, y). Productivity is clamped at zero.
func (l *Lattice) Set(x, y int, p Patch) {
	p.R = max(p.R, 0)
	l.cells[l.Index(x, y)] = p
}

// FluxClear reports whether every patch has zero migration accumulators.
func (l *Lattice) FluxClear() bool {
	for i := range l.cells {
		if !l.cells[i].FluxClear() {
			return false
		}
	}
	return true
}

// Records appends one snapshot row per patch to dst, x-major then y,
// and returns the extended slice.
func (l *Lattice) Records(dst []Record, t int) []Record {
	for x := 0; x < l.W; x++ {
		for y := 0; y < l.H; y++ {
			c := &l.cells[y*l.W+x]
			dst = append(dst, Record{T: t, X: x, Y: y, R: c.R, H: c.H, P: c.P, M: c.M})
		}
	}
	return dst
}

package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction        BookmarkType = "extinction"
	BookmarkRecolonization    BookmarkType = "recolonization"
	BookmarkHostCrash         BookmarkType = "host_crash"
	BookmarkStableCoexistence BookmarkType = "stable_coexistence"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Tick        int
	Species     string
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	attrs := []any{
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	}
	if b.Species != "" {
		attrs = append(attrs, "species", b.Species)
	}
	slog.Info("bookmark", attrs...)
}

// BookmarkDetector detects notable moments in the snapshot summaries.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []Summary
	historySize int
	historyIdx  int
	historyFull bool

	seen           bool
	occupied       [3]bool // host, enemy, symbiont present at previous snapshot
	recentHostPeak float64
	stableCount    int
}

var speciesNames = [3]string{"host", "enemy", "symbiont"}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable coexistence detection
	}
	return &BookmarkDetector{
		history:     make([]Summary, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest summary and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(s Summary) []Bookmark {
	var bookmarks []Bookmark

	occ := [3]bool{s.HostOccupancy > 0, s.EnemyOccupancy > 0, s.SymbiontOccupancy > 0}
	if bd.seen {
		for i := range occ {
			switch {
			case bd.occupied[i] && !occ[i]:
				bookmarks = append(bookmarks, Bookmark{
					Type:        BookmarkExtinction,
					Tick:        s.Tick,
					Species:     speciesNames[i],
					Description: fmt.Sprintf("%s absent from every patch", speciesNames[i]),
				})
			case !bd.occupied[i] && occ[i]:
				bookmarks = append(bookmarks, Bookmark{
					Type:        BookmarkRecolonization,
					Tick:        s.Tick,
					Species:     speciesNames[i],
					Description: fmt.Sprintf("%s back in %.1f%% of patches", speciesNames[i], occupancy(s, i)*100),
				})
			}
		}

		if b := bd.checkHostCrash(s); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStableCoexistence(s); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.seen = true
	bd.occupied = occ
	bd.addToHistory(s)
	if s.HostSum > bd.recentHostPeak {
		bd.recentHostPeak = s.HostSum
	}

	return bookmarks
}

func occupancy(s Summary, species int) float64 {
	switch species {
	case 0:
		return s.HostOccupancy
	case 1:
		return s.EnemyOccupancy
	default:
		return s.SymbiontOccupancy
	}
}

func (bd *BookmarkDetector) addToHistory(s Summary) {
	bd.history[bd.historyIdx] = s
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// recent returns up to n of the most recent summaries, oldest first.
func (bd *BookmarkDetector) recent(n int) []Summary {
	count := bd.historyIdx
	if bd.historyFull {
		count = bd.historySize
	}
	n = min(n, count)
	out := make([]Summary, 0, n)
	for i := n; i > 0; i-- {
		idx := (bd.historyIdx - i + bd.historySize) % bd.historySize
		out = append(out, bd.history[idx])
	}
	return out
}

func (bd *BookmarkDetector) checkHostCrash(s Summary) *Bookmark {
	if bd.recentHostPeak <= 0 {
		return nil
	}

	drop := 1 - s.HostSum/bd.recentHostPeak
	if drop > 0.30 {
		// Reset peak after crash
		oldPeak := bd.recentHostPeak
		bd.recentHostPeak = s.HostSum

		return &Bookmark{
			Type:        BookmarkHostCrash,
			Tick:        s.Tick,
			Species:     speciesNames[0],
			Description: fmt.Sprintf("Host total fell %.0f%% from peak %.4g to %.4g", drop*100, oldPeak, s.HostSum),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStableCoexistence(s Summary) *Bookmark {
	if s.Coexistence == 0 {
		bd.stableCount = 0
		return nil
	}

	window := append(bd.recent(3), s)
	if len(window) < 4 {
		return nil
	}

	if lowSpread(window, func(x Summary) float64 { return x.HostSum }) &&
		lowSpread(window, func(x Summary) float64 { return x.EnemySum }) &&
		lowSpread(window, func(x Summary) float64 { return x.SymbiontSum }) {
		bd.stableCount++
	} else {
		bd.stableCount = 0
	}

	if bd.stableCount == 5 { // trigger exactly once per stable stretch
		return &Bookmark{
			Type:        BookmarkStableCoexistence,
			Tick:        s.Tick,
			Description: fmt.Sprintf("All three species coexist in %.1f%% of patches with steady totals", s.Coexistence*100),
		}
	}
	return nil
}

// lowSpread reports whether the squared coefficient of variation is below
// 0.04 (CV < 20%).
func lowSpread(window []Summary, field func(Summary) float64) bool {
	var sum float64
	for _, w := range window {
		sum += field(w)
	}
	mean := sum / float64(len(window))
	if mean <= 0 {
		return false
	}
	var v float64
	for _, w := range window {
		d := field(w) - mean
		v += d * d
	}
	v /= float64(len(window))
	return v/(mean*mean) < 0.04
}

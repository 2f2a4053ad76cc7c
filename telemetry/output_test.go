package telemetry

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/mutualism/config"
	"github.com/pthm-cable/mutualism/lattice"
)

func TestRunName(t *testing.T) {
	cfg := config.Default()
	got := RunName(cfg, 0.25)
	want := "out-v1.35-r1.7-H0.01-M0.01-P0.01-a0.5-i0.25.dat"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	cfg.Dispersal.Symbiont = 0.125
	cfg.Dispersal.Enemy = 1e-5
	got = RunName(cfg, 0.123456789)
	want = "out-v1.35-r1.7-H0.01-M0.125-P1e-05-a0.5-i0.123457.dat"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNewOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", "x.dat", 0.001)
	if err != nil || om != nil {
		t.Fatalf("expected nil manager for empty dir, got %v, %v", om, err)
	}
	// Nil manager is safe to use
	if err := om.Snapshot(0, nil); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func sampleLattice(t *testing.T) *lattice.Lattice {
	t.Helper()
	l, err := lattice.New(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	l.Set(0, 0, lattice.Patch{R: 1.5, H: 10, P: 1, M: 0.5})
	l.Set(1, 0, lattice.Patch{R: 0, H: -0.25, P: 0, M: 2})
	l.Set(0, 1, lattice.Patch{R: 2.25, H: 9.5, P: 0.75, M: 0})
	l.Set(1, 1, lattice.Patch{R: 1, H: 3, P: 2, M: 1})
	return l
}

func TestOutputManagerSnapshots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	om, err := NewOutputManager(dir, "run.dat", 0.001)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	l := sampleLattice(t)
	for _, tick := range []int{0, 5} {
		if err := om.Snapshot(tick, l.Records(nil, tick)); err != nil {
			t.Fatalf("Snapshot(%d): %v", tick, err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Header is written exactly once, space-delimited
	f, err := os.Open(om.SnapshotPath())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 9 {
		t.Fatalf("expected header + 8 rows, got %d lines", len(lines))
	}
	if lines[0] != "t x y r h p m" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "0 0 0 1.5 10 1 0.5" {
		t.Errorf("unexpected first row %q", lines[1])
	}

	// Values survive a round trip
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	r := csv.NewReader(f)
	r.Comma = ' '
	var recs []lattice.Record
	if err := gocsv.UnmarshalCSV(r, &recs); err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	want := append(l.Records(nil, 0), l.Records(nil, 5)...)
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(recs))
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d: got %+v, want %+v", i, recs[i], want[i])
		}
	}

	// One summary row per snapshot
	sf, err := os.Open(filepath.Join(dir, "summary.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer sf.Close()
	var sums []Summary
	if err := gocsv.UnmarshalFile(sf, &sums); err != nil {
		t.Fatalf("reading summary: %v", err)
	}
	if len(sums) != 2 || sums[0].Tick != 0 || sums[1].Tick != 5 {
		t.Fatalf("unexpected summaries %+v", sums)
	}
	if sums[1] != om.LastSummary() {
		t.Errorf("LastSummary mismatch: %+v vs %+v", om.LastSummary(), sums[1])
	}
}

func TestOutputManagerMetadata(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, "run.dat", 0.001)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	cfg := config.Default()
	cfg.Dynamics.A = 0.3
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	loaded, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Dynamics.A != 0.3 {
		t.Errorf("expected a=0.3 in written config, got %g", loaded.Dynamics.A)
	}

	info := RunInfo{Seed: 99, Workers: 4, Snapshot: "run.dat", Host: HostInfo{GOMAXPROCS: 4}}
	if err := om.WriteRunInfo(info); err != nil {
		t.Fatalf("WriteRunInfo: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "run.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var back RunInfo
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Seed != 99 || back.Workers != 4 || back.Snapshot != "run.dat" || back.Host.GOMAXPROCS != 4 {
		t.Errorf("unexpected run info %+v", back)
	}
}

func TestCollectHostInfo(t *testing.T) {
	info := CollectHostInfo()
	if info.GOMAXPROCS < 1 || info.GoVersion == "" {
		t.Errorf("runtime fields missing: %+v", info)
	}
}

package telemetry

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/mutualism/config"
	"github.com/pthm-cable/mutualism/lattice"
)

// RunInfo records how a run was started, written to run.yaml.
type RunInfo struct {
	Seed     uint64    `yaml:"seed"`
	Started  time.Time `yaml:"started"`
	Workers  int       `yaml:"workers"`
	Snapshot string    `yaml:"snapshot"`
	Host     HostInfo  `yaml:"host"`
}

// RunName builds the snapshot file name from the run's key parameters and
// a uniform tag u in (0,1) that keeps replicate runs apart.
func RunName(cfg *config.Config, u float64) string {
	return "out" +
		"-v" + formatParam(cfg.Productivity.Variance) +
		"-r" + formatParam(cfg.Productivity.Mean) +
		"-H" + formatParam(cfg.Dispersal.Host) +
		"-M" + formatParam(cfg.Dispersal.Symbiont) +
		"-P" + formatParam(cfg.Dispersal.Enemy) +
		"-a" + formatParam(cfg.Dynamics.A) +
		"-i" + formatParam(u) +
		".dat"
}

// formatParam prints x with six significant digits.
func formatParam(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

// bookmarkHistory is the number of snapshots the bookmark detector keeps.
const bookmarkHistory = 10

// OutputManager writes lattice snapshots and per-snapshot summaries.
type OutputManager struct {
	dir          string
	snapshotPath string

	snapshotFile   *os.File
	snapshotWriter *csv.Writer
	summaryFile    *os.File

	summarizer *Summarizer
	bookmarks  *BookmarkDetector

	// Track if headers have been written
	snapshotHeaderWritten bool
	summaryHeaderWritten  bool

	last    Summary
	history []Summary
}

// NewOutputManager creates the output directory and opens the snapshot file
// (space-delimited, header "t x y r h p m") and summary.csv.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir, snapshotName string, occupancyThreshold float64) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{
		dir:          dir,
		snapshotPath: filepath.Join(dir, snapshotName),
		summarizer:   NewSummarizer(occupancyThreshold),
		bookmarks:    NewBookmarkDetector(bookmarkHistory),
	}

	f, err := os.Create(om.snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", snapshotName, err)
	}
	om.snapshotFile = f
	om.snapshotWriter = csv.NewWriter(f)
	om.snapshotWriter.Comma = ' '

	summaryPath := filepath.Join(dir, "summary.csv")
	f, err = os.Create(summaryPath)
	if err != nil {
		om.snapshotFile.Close()
		return nil, fmt.Errorf("creating summary.csv: %w", err)
	}
	om.summaryFile = f

	return om, nil
}

// Snapshot writes one row per patch and a summary row for tick t.
func (om *OutputManager) Snapshot(t int, recs []lattice.Record) error {
	if om == nil {
		return nil
	}

	if !om.snapshotHeaderWritten {
		if err := gocsv.MarshalCSV(recs, om.snapshotWriter); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		om.snapshotHeaderWritten = true
	} else {
		if err := gocsv.MarshalCSVWithoutHeaders(recs, om.snapshotWriter); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}

	summary := om.summarizer.Summarize(t, recs)
	om.last = summary
	om.history = append(om.history, summary)
	slog.Debug("snapshot", "summary", summary)
	for _, b := range om.bookmarks.Check(summary) {
		b.LogBookmark()
	}

	return om.writeSummary(summary)
}

func (om *OutputManager) writeSummary(s Summary) error {
	records := []Summary{s}

	if !om.summaryHeaderWritten {
		if err := gocsv.Marshal(records, om.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		om.summaryHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	return nil
}

// LastSummary returns the summary of the most recent snapshot.
func (om *OutputManager) LastSummary() Summary {
	if om == nil {
		return Summary{}
	}
	return om.last
}

// WritePlot renders the run's snapshot summaries to trajectories.png.
// Runs with fewer than two snapshots are skipped.
func (om *OutputManager) WritePlot() error {
	if om == nil || len(om.history) < 2 {
		return nil
	}
	return PlotTrajectories(filepath.Join(om.dir, "trajectories.png"), om.history)
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteRunInfo saves run metadata as run.yaml.
func (om *OutputManager) WriteRunInfo(info RunInfo) error {
	if om == nil {
		return nil
	}

	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshaling run info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "run.yaml"), data, 0644); err != nil {
		return fmt.Errorf("writing run.yaml: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// SnapshotPath returns the path of the snapshot file.
func (om *OutputManager) SnapshotPath() string {
	if om == nil {
		return ""
	}
	return om.snapshotPath
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.snapshotWriter != nil {
		om.snapshotWriter.Flush()
		if err := om.snapshotWriter.Error(); err != nil {
			firstErr = err
		}
	}

	if om.snapshotFile != nil {
		if err := om.snapshotFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.summaryFile != nil {
		if err := om.summaryFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Mirror_Rank_Go/pkg/model"
)

// Well-known sink filenames inside the output directory.
const (
	LogFileName    = "benchmark.log"
	RecordFileName = "speeds.csv"
	FailedFileName = "failed.log"
)

// Journal owns the append-only sinks of a run: the full human-readable log,
// the machine-parseable record store of successful probes and the
// failed-probe log. Every outcome is flushed as soon as it is recorded so an
// interrupted run keeps its partial data.
type Journal struct {
	mu      sync.Mutex
	logFile *os.File
	failed  *os.File
	records *os.File
	csvW    *csv.Writer
	history *History
	runID   string
}

// Open creates or appends to the sink files inside dir and opens the
// best-effort probe history store. The directory is created if missing.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory '%s': %w", dir, err)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	failed, err := os.OpenFile(filepath.Join(dir, FailedFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	records, err := os.OpenFile(filepath.Join(dir, RecordFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logFile.Close()
		failed.Close()
		return nil, err
	}

	j := &Journal{
		logFile: logFile,
		failed:  failed,
		records: records,
		csvW:    csv.NewWriter(records),
		history: OpenHistory(filepath.Join(dir, "history.db")),
		runID:   time.Now().UTC().Format("20060102T150405Z"),
	}
	if err := j.ensureCSVHeader(); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureCSVHeader() error {
	info, err := j.records.Stat()
	if err != nil {
		return err
	}
	if info.Size() > 0 {
		return nil
	}
	if err := j.csvW.Write([]string{"Speed(Mbps)", "Time(s)", "Mirror_URL"}); err != nil {
		return err
	}
	j.csvW.Flush()
	return j.csvW.Error()
}

// Banner writes a run-start/run-end marker into the log file.
func (j *Journal) Banner(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintf(j.logFile, "%s ===== %s =====\n", timestamp(), msg)
}

// Logf mirrors a console message into the persistent log file.
func (j *Journal) Logf(format string, args ...interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintf(j.logFile, "%s %s\n", timestamp(), fmt.Sprintf(format, args...))
}

// Record appends one outcome to the log sink and, depending on status, to
// the success record store or the failed-probe log. It implements the
// engine's Recorder contract.
func (j *Journal) Record(o model.ProbeOutcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := fmt.Fprintf(j.logFile, "%s [%s] %s %s\n", timestamp(), o.Status, o.Endpoint.URL, o.Describe()); err != nil {
		return err
	}

	if !o.Success() {
		_, err := fmt.Fprintf(j.failed, "%s %s %s\n", timestamp(), o.Endpoint.URL, o.Describe())
		return err
	}

	row := []string{
		fmt.Sprintf("%.2f", o.SpeedMbps()),
		fmt.Sprintf("%.2f", o.ElapsedSeconds),
		o.Endpoint.URL,
	}
	if err := j.csvW.Write(row); err != nil {
		return err
	}
	j.csvW.Flush()
	if err := j.csvW.Error(); err != nil {
		return err
	}

	j.history.Record(j.runID, o)
	return nil
}

// Close flushes and closes all sinks.
func (j *Journal) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.csvW.Flush()
	j.records.Close()
	j.failed.Close()
	j.logFile.Close()
	j.history.Close()
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

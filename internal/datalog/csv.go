// Package datalog persists validated telemetry records: a per-session CSV
// file and an optional SQLite database.
package datalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hablink/internal/downlink"
)

const timestampLayout = "2006-01-02 15:04:05"

var columns = []string{
	"timestamp", "roll", "pitch", "yaw", "latitude", "longitude",
	"altitude", "velocity", "temperature", "pressure",
}

// CSVLog appends one row per record to a session file. Rows are flushed as
// they are written so a power loss at the ground station costs at most the
// in-flight record.
type CSVLog struct {
	path string
	f    *os.File
	w    *csv.Writer
	now  func() time.Time
}

// NewCSVLog creates `<dir>/<yyyymmdd_hhmmss>.csv` with a header row.
func NewCSVLog(dir string) (*CSVLog, error) {
	name := time.Now().Format("20060102_150405") + ".csv"
	return newCSVLog(filepath.Join(dir, name), time.Now)
}

func newCSVLog(path string, now func() time.Time) (*CSVLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("datalog: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("datalog: open csv: %w", err)
	}

	l := &CSVLog{path: path, f: f, w: csv.NewWriter(f), now: now}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("datalog: stat csv: %w", err)
	}
	if info.Size() == 0 {
		if err := l.w.Write(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("datalog: write header: %w", err)
		}
		l.w.Flush()
		if err := l.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("datalog: write header: %w", err)
		}
	}
	return l, nil
}

// Path returns the session file location.
func (l *CSVLog) Path() string {
	return l.path
}

func (l *CSVLog) Write(rec downlink.Record) error {
	row := []string{
		l.now().Format(timestampLayout),
		num(rec.Roll),
		num(rec.Pitch),
		num(rec.Yaw),
		num(rec.Latitude),
		num(rec.Longitude),
		num(rec.Altitude),
		num(rec.Velocity),
		num(rec.Temperature),
		num(rec.Pressure),
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("datalog: write row: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("datalog: flush row: %w", err)
	}
	return nil
}

func (l *CSVLog) Close() error {
	l.w.Flush()
	return l.f.Close()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

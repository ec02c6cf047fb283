package datalog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hablink/internal/downlink"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
}

func TestCSVLogHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.csv")
	l, err := newCSVLog(path, fixedNow)
	require.NoError(t, err)

	require.NoError(t, l.Write(downlink.Record{
		Latitude:  34.05189,
		Longitude: 118.243683,
		Altitude:  545.4,
		Velocity:  11.52,
	}))
	require.NoError(t, l.Write(downlink.Record{Altitude: -12.5}))
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, columns, rows[0])
	assert.Equal(t, []string{
		"2024-06-01 12:30:45",
		"0", "0", "0",
		"34.05189", "118.243683", "545.4", "11.52",
		"0", "0",
	}, rows[1])
	assert.Equal(t, "-12.5", rows[2][6])
}

func TestCSVLogAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.csv")

	l, err := newCSVLog(path, fixedNow)
	require.NoError(t, err)
	require.NoError(t, l.Write(downlink.Record{Altitude: 1}))
	require.NoError(t, l.Close())

	l, err = newCSVLog(path, fixedNow)
	require.NoError(t, err)
	require.NoError(t, l.Write(downlink.Record{Altitude: 2}))
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	// One header despite two sessions on the same file.
	require.Len(t, rows, 3)
	assert.Equal(t, columns, rows[0])
}

func TestNewCSVLogCreatesSessionFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewCSVLog(dir)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, dir, filepath.Dir(l.Path()))
	assert.Equal(t, ".csv", filepath.Ext(l.Path()))
}

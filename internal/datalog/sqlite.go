package datalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hablink/internal/downlink"
)

const createTelemetryTable = `CREATE TABLE IF NOT EXISTS telemetry (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	roll REAL, pitch REAL, yaw REAL,
	latitude REAL, longitude REAL, altitude REAL,
	velocity REAL, temperature REAL, pressure REAL
)`

const insertTelemetryRow = `INSERT INTO telemetry
	(timestamp, roll, pitch, yaw, latitude, longitude, altitude, velocity, temperature, pressure)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteLog inserts one telemetry row per record.
type SQLiteLog struct {
	db  *sql.DB
	ins *sql.Stmt
	now func() time.Time
}

func NewSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("datalog: open sqlite: %w", err)
	}
	if _, err := db.Exec(createTelemetryTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("datalog: create table: %w", err)
	}
	ins, err := db.Prepare(insertTelemetryRow)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("datalog: prepare insert: %w", err)
	}
	return &SQLiteLog{db: db, ins: ins, now: time.Now}, nil
}

func (l *SQLiteLog) Write(rec downlink.Record) error {
	_, err := l.ins.Exec(
		l.now().Format(timestampLayout),
		rec.Roll, rec.Pitch, rec.Yaw,
		rec.Latitude, rec.Longitude, rec.Altitude,
		rec.Velocity, rec.Temperature, rec.Pressure,
	)
	if err != nil {
		return fmt.Errorf("datalog: insert row: %w", err)
	}
	return nil
}

func (l *SQLiteLog) Close() error {
	l.ins.Close()
	return l.db.Close()
}

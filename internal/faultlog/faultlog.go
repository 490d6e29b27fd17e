// Package faultlog journals error-stream events to SQLite so faults seen
// during live capture or replay can be inspected afterwards.
package faultlog

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/cepton-sdk-go/internal/monitoring"
	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
)

//go:embed schema.sql
var schemaSQL string

// Journal is a SQLite-backed fault log.
type Journal struct {
	*sql.DB
	now func() time.Time
}

// Event is one journaled error or fault.
type Event struct {
	ID       int64
	Handle   sdk.SensorHandle
	Code     sdk.ErrorCode
	Name     string
	Category string
	Message  string
	// Source names what produced the event, e.g. a capture file or "live".
	Source   string
	Recorded time.Time
}

// CodeCount is the number of events journaled for one code.
type CodeCount struct {
	Code  sdk.ErrorCode
	Name  string
	Count int64
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" journals coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise fault journal schema: %w", err)
	}
	monitoring.Debugf("fault journal opened at %s", path)
	return &Journal{DB: db, now: time.Now}, nil
}

// Record stores ev. Name and Category are derived from Code when empty and
// Recorded defaults to now.
func (j *Journal) Record(ev Event) (int64, error) {
	if ev.Name == "" {
		ev.Name = ev.Code.String()
	}
	if ev.Category == "" {
		ev.Category = ev.Code.Category()
	}
	if ev.Recorded.IsZero() {
		ev.Recorded = j.now()
	}
	res, err := j.Exec(`
		INSERT INTO fault_events (sensor_handle, code, name, category, message, source, recorded_us)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, int64(ev.Handle), int32(ev.Code), ev.Name, ev.Category, ev.Message, ev.Source, ev.Recorded.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("failed to insert fault event: %w", err)
	}
	return res.LastInsertId()
}

// Listener returns an error callback that journals every event tagged with
// source. Write failures are logged and otherwise ignored.
func (j *Journal) Listener(source string) sdk.ErrorCallback {
	return func(handle sdk.SensorHandle, code sdk.ErrorCode, msg string, _ []byte, _ any) {
		if _, err := j.Record(Event{Handle: handle, Code: code, Message: msg, Source: source}); err != nil {
			monitoring.Errorf("fault journal: %v", err)
		}
	}
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := j.Query(`
		SELECT id, sensor_handle, code, name, category, message, source, recorded_us
		FROM fault_events
		ORDER BY recorded_us DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fault events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev         Event
			handle     int64
			code       int32
			recordedUS int64
		)
		if err := rows.Scan(&ev.ID, &handle, &code, &ev.Name, &ev.Category, &ev.Message, &ev.Source, &recordedUS); err != nil {
			return nil, fmt.Errorf("failed to scan fault event: %w", err)
		}
		ev.Handle = sdk.SensorHandle(handle)
		ev.Code = sdk.ErrorCode(code)
		ev.Recorded = time.UnixMicro(recordedUS)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Counts returns the number of events per code, most frequent first.
func (j *Journal) Counts() ([]CodeCount, error) {
	rows, err := j.Query(`
		SELECT code, name, COUNT(*) AS n
		FROM fault_events
		GROUP BY code, name
		ORDER BY n DESC, code DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count fault events: %w", err)
	}
	defer rows.Close()

	var counts []CodeCount
	for rows.Next() {
		var (
			c    CodeCount
			code int32
		)
		if err := rows.Scan(&code, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan fault count: %w", err)
		}
		c.Code = sdk.ErrorCode(code)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

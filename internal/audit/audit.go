// Package audit records tool dispatches to a CSV audit trail.
package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp time.Time
	RequestID string
	UserID    string
	Tool      string
	Outcome   string // "allowed", "denied", or "error"
	Detail    string
}

// Header is the CSV header for the audit log file.
const Header = "timestamp,request_id,user_id,tool,outcome,detail"

const (
	numFields    = 6
	colTimestamp = 0
	colRequestID = 1
	colUserID    = 2
	colTool      = 3
	colOutcome   = 4
	colDetail    = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRequestID] = e.RequestID
	row[colUserID] = e.UserID
	row[colTool] = e.Tool
	row[colOutcome] = e.Outcome
	row[colDetail] = e.Detail
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp: ts,
		RequestID: record[colRequestID],
		UserID:    record[colUserID],
		Tool:      record[colTool],
		Outcome:   record[colOutcome],
		Detail:    record[colDetail],
	}, nil
}

// Log appends entries to a CSV file, creating it with a header when needed.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates an audit log writing to path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Record appends one entry to the log file.
func (l *Log) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating audit log dir: %w", err)
		}
	}

	needsHeader := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing audit log header: %w", err)
		}
	}
	if err := w.Write(MarshalEntry(e)); err != nil {
		return fmt.Errorf("writing audit log entry: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Read loads all entries from a CSV audit log.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Skip header.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading audit log header: %w", err)
	}

	var entries []Entry
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading audit log: %w", err)
		}
		e, err := UnmarshalEntry(record)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

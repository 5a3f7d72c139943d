// Package importlog keeps the append-only record of workbook import runs.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shamba-dev/shamba/internal/reconcile"
	"github.com/shamba-dev/shamba/internal/week"
)

// Status values recorded for a run.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Entry is one import run.
type Entry struct {
	Timestamp   time.Time
	File        string
	WeekEnding  time.Time
	Updated     int
	ZeroEntries int
	Unmatched   []string
	Status      string
	CommitHash  string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,file,week_ending,updated,zero_entries,unmatched,status,commit_hash"

// File is the log location relative to the workspace root.
const File = "logs/import-log.csv"

const (
	numFields      = 8
	colTimestamp   = 0
	colFile        = 1
	colWeekEnding  = 2
	colUpdated     = 3
	colZeroEntries = 4
	colUnmatched   = 5
	colStatus      = 6
	colCommitHash  = 7

	unmatchedSep = "|"
)

// FromResult builds a log entry for a finished run. err is the commit error, if any.
func FromResult(file string, weekEnding time.Time, res reconcile.Result, err error) Entry {
	e := Entry{
		Timestamp:   time.Now().UTC(),
		File:        file,
		WeekEnding:  weekEnding,
		Updated:     res.UpdatedCount,
		ZeroEntries: res.ZeroEntryCount,
		Unmatched:   res.UnmatchedLabels,
		Status:      StatusOK,
	}
	if err != nil {
		e.Status = StatusFailed
		if res.Writes() > 0 {
			e.Status = StatusPartial
		}
	}
	return e
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colFile] = e.File
	if !e.WeekEnding.IsZero() {
		row[colWeekEnding] = week.Format(e.WeekEnding)
	}
	row[colUpdated] = strconv.Itoa(e.Updated)
	row[colZeroEntries] = strconv.Itoa(e.ZeroEntries)
	row[colUnmatched] = strings.Join(e.Unmatched, unmatchedSep)
	row[colStatus] = e.Status
	row[colCommitHash] = e.CommitHash
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

	var weekEnding time.Time
	if record[colWeekEnding] != "" {
		weekEnding, err = week.Parse(record[colWeekEnding])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing week ending: %w", err)
		}
	}

	updated, err := strconv.Atoi(record[colUpdated])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing updated %q: %w", record[colUpdated], err)
	}
	zero, err := strconv.Atoi(record[colZeroEntries])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing zero entries %q: %w", record[colZeroEntries], err)
	}

	var unmatched []string
	if record[colUnmatched] != "" {
		unmatched = strings.Split(record[colUnmatched], unmatchedSep)
	}

	return Entry{
		Timestamp:   ts,
		File:        record[colFile],
		WeekEnding:  weekEnding,
		Updated:     updated,
		ZeroEntries: zero,
		Unmatched:   unmatched,
		Status:      record[colStatus],
		CommitHash:  record[colCommitHash],
	}, nil
}

// Append writes entries to <root>/logs/import-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	path := filepath.Join(root, File)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv.
// A missing file yields no entries.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, File))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

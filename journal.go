package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/oklog/ulid/v2"
)

// JournalEntry is one dispatched line. IDs are ULIDs, so key order is
// time order.
type JournalEntry struct {
	ID     string    `storm:"id" json:"id"`
	Time   time.Time `storm:"index" json:"time"`
	Source string    `storm:"index" json:"source"`
	Line   string    `json:"line"`
	Error  string    `json:"error,omitempty"`
}

// Journal persists every command the dispatcher runs.
type Journal struct {
	db  *storm.DB
	log *slog.Logger
}

func openJournal(dbFile string, log *slog.Logger) (j *Journal, err error) {
	if dir := filepath.Dir(dbFile); dir != "" {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := storm.Open(dbFile)
	if err != nil {
		return nil, err
	}
	if err = db.Init(&JournalEntry{}); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, log: log}, nil
}

// Record stores a line. A failed save is logged; it never interrupts the
// session.
func (j *Journal) Record(source, line string, err error) {
	id := ulid.Make()
	entry := &JournalEntry{
		ID:     id.String(),
		Time:   ulid.Time(id.Time()),
		Source: source,
		Line:   line,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if saveErr := j.db.Save(entry); saveErr != nil {
		j.log.Error("unable to journal command", "tag", "Error", "line", line, "err", saveErr)
	}
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) ([]JournalEntry, error) {
	if n <= 0 {
		return []JournalEntry{}, nil
	}
	var entries []JournalEntry
	err := j.db.All(&entries, storm.Limit(n), storm.Reverse())
	if errors.Is(err, storm.ErrNotFound) {
		return []JournalEntry{}, nil
	}
	if entries == nil {
		entries = []JournalEntry{}
	}
	return entries, err
}

func (j *Journal) Close() error {
	return j.db.Close()
}

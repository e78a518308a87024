// Package store accumulates validated records in scan order.
package store

import (
	"sync"

	"artiscan/internal/artifact"
)

// Store is an append-only, insertion-ordered record collection. The
// scanner is the only writer; snapshots may be taken concurrently.
type Store struct {
	mu      sync.Mutex
	records []artifact.Record
}

func New() *Store { return &Store{} }

// Append adds a record. Records are never removed or mutated afterwards.
func (s *Store) Append(r artifact.Record) {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
}

// Len returns the number of records appended so far.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Last returns the most recently appended record, if any.
func (s *Store) Last() (artifact.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return artifact.Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// Snapshot returns a copy of the records in insertion order. The copy is
// stable: the caller never observes later scan progress through it.
func (s *Store) Snapshot() []artifact.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]artifact.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Exporter receives the final ordered snapshot plus the skipped-slot
// count. The output format belongs to the exporter, not to the scan core.
type Exporter interface {
	Export(records []artifact.Record, skipped int) error
}

// Package store implements the persisted result store for batch fetch runs.
// The store maps work item identifiers to their fetch outcome and is the
// single source of truth for resuming an interrupted run.
package store

import (
	"errors"
	"time"
)

var (
	// ErrCorruptStore indicates the persisted store file could not be decoded.
	ErrCorruptStore = errors.New("corrupt store file")

	// ErrMinRecords indicates a persist was refused because it would shrink
	// the store below the configured minimum record count.
	ErrMinRecords = errors.New("refusing to overwrite store: below minimum record count")
)

// Status is the outcome tag of a record.
type Status string

const (
	// StatusSuccess marks a record holding a parsed payload.
	StatusSuccess Status = "success"

	// StatusFailure marks a record holding a classified failure.
	StatusFailure Status = "failure"
)

// FailureKind classifies a failed fetch.
type FailureKind string

const (
	// KindTimeout covers connect/read timeouts and transport errors.
	KindTimeout FailureKind = "timeout"

	// KindHTTPError covers non-200 responses that are not rate limits.
	KindHTTPError FailureKind = "http_error"

	// KindRateLimited covers quota responses (429, and 403 for sources
	// that signal quota exhaustion with it).
	KindRateLimited FailureKind = "rate_limited"

	// KindMalformed covers 200 responses whose body failed schema validation.
	KindMalformed FailureKind = "malformed_response"
)

// Failure describes why a fetch failed.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	StatusCode int         `json:"status_code,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// Record is one persisted fetch outcome.
type Record struct {
	ID        string         `json:"id"`
	Status    Status         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Error     *Failure       `json:"error,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Store holds fetch outcomes keyed by work item identifier.
// Insertion order is preserved so the persisted file is stable across runs.
type Store struct {
	order   []string
	records map[string]Record
}

// New returns an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]Record),
	}
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	return len(s.records)
}

// Get returns the record for id, if present.
func (s *Store) Get(id string) (Record, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Records returns all records in insertion order.
func (s *Store) Records() []Record {
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Remaining filters ids down to those still needing a fetch, preserving
// the given order. An id is done only when its stored record is a Success;
// failures are retried on the next run.
func (s *Store) Remaining(ids []string) []string {
	var out []string
	for _, id := range ids {
		if rec, ok := s.records[id]; ok && rec.Status == StatusSuccess {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Commit merges one record into the store and reports whether the store
// changed. The overwrite rule: an existing Success is never replaced; a
// Success replaces a prior Failure; a fresh Failure replaces a prior one.
func (s *Store) Commit(rec Record) bool {
	existing, ok := s.records[rec.ID]
	if !ok {
		s.order = append(s.order, rec.ID)
		s.records[rec.ID] = rec
		return true
	}
	if existing.Status == StatusSuccess {
		return false
	}
	s.records[rec.ID] = rec
	return true
}

// CommitAll merges records in order and returns the number applied.
func (s *Store) CommitAll(recs []Record) int {
	applied := 0
	for _, rec := range recs {
		if s.Commit(rec) {
			applied++
		}
	}
	return applied
}

// SuccessCount returns the number of Success records.
func (s *Store) SuccessCount() int {
	n := 0
	for _, rec := range s.records {
		if rec.Status == StatusSuccess {
			n++
		}
	}
	return n
}

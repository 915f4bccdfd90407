// Package store holds pending reviews between a NeedsReview response and
// the correction submission that resolves it. It has no eviction or TTL:
// an entry lives until the Reconciler deletes it, and callers must
// tolerate a correction that never arrives.
package store

import (
	"sync"

	"menuclassify/internal/review"
	"menuclassify/pkg/logging"
)

// Store is a concurrency-safe request_id -> PendingReview map.
type Store struct {
	mu      sync.Mutex
	entries map[string]review.PendingReview
	log     *logging.Logger
}

// New constructs an empty Store. log may be nil.
func New(log *logging.Logger) *Store {
	return &Store{entries: make(map[string]review.PendingReview), log: log}
}

// Put stores a pending review under request_id, overwriting any prior
// entry for the same id.
func (s *Store) Put(requestID string, pending review.PendingReview) {
	s.mu.Lock()
	s.entries[requestID] = pending
	s.mu.Unlock()
	if s.log != nil {
		s.log.Debug("review_store_put", logging.String("request_id", requestID))
	}
}

// Get returns the pending review stored under request_id, if any.
func (s *Store) Get(requestID string) (review.PendingReview, bool) {
	s.mu.Lock()
	v, ok := s.entries[requestID]
	s.mu.Unlock()
	if s.log != nil {
		s.log.Debug("review_store_get", logging.String("request_id", requestID), logging.Bool("found", ok))
	}
	return v, ok
}

// Delete removes the pending review stored under request_id, reporting
// whether it was present.
func (s *Store) Delete(requestID string) bool {
	s.mu.Lock()
	_, ok := s.entries[requestID]
	if ok {
		delete(s.entries, requestID)
	}
	s.mu.Unlock()
	if s.log != nil {
		s.log.Debug("review_store_delete", logging.String("request_id", requestID), logging.Bool("found", ok))
	}
	return ok
}

// Has reports whether a pending review is currently stored under
// request_id.
func (s *Store) Has(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[requestID]
	return ok
}

// Size returns the number of pending reviews currently held.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}


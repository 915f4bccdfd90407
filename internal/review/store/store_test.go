package store

import (
	"testing"

	"menuclassify/internal/review"
)

func TestStore_PutGet(t *testing.T) {
	s := New(nil)
	pending := review.PendingReview{RequestID: "req-1", UncertainItems: []review.UncertainItem{{Name: "Mushroom Risotto"}}}

	s.Put("req-1", pending)

	got, ok := s.Get("req-1")
	if !ok {
		t.Fatal("expected to find stored review")
	}
	if len(got.UncertainItems) != 1 || got.UncertainItems[0].Name != "Mushroom Risotto" {
		t.Errorf("unexpected stored value: %+v", got)
	}
}

func TestStore_GetMiss(t *testing.T) {
	s := New(nil)
	if _, ok := s.Get("missing"); ok {
		t.Error("expected miss for unknown request_id")
	}
}

func TestStore_Delete(t *testing.T) {
	s := New(nil)
	s.Put("req-1", review.PendingReview{RequestID: "req-1"})

	if !s.Delete("req-1") {
		t.Error("expected delete to report true for existing entry")
	}
	if s.Delete("req-1") {
		t.Error("expected second delete to report false")
	}
	if s.Has("req-1") {
		t.Error("expected entry to be gone after delete")
	}
}

func TestStore_Size(t *testing.T) {
	s := New(nil)
	if s.Size() != 0 {
		t.Errorf("expected empty store, got size %d", s.Size())
	}
	s.Put("req-1", review.PendingReview{})
	s.Put("req-2", review.PendingReview{})
	if s.Size() != 2 {
		t.Errorf("expected size 2, got %d", s.Size())
	}
}

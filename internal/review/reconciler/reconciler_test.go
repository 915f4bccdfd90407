package reconciler

import (
	"testing"

	"menuclassify/internal/review"
	"menuclassify/internal/review/store"
	errs "menuclassify/pkg/errors"
)

func TestSubmit_NotFound(t *testing.T) {
	r := New(store.New(nil), nil)

	_, err := r.Submit("missing", nil)
	if err == nil {
		t.Fatal("expected ReviewNotFound error")
	}
	if errs.KindOf(err) != errs.KindReviewNotFound {
		t.Errorf("expected KindReviewNotFound, got %v", errs.KindOf(err))
	}
}

func TestSubmit_ConfirmsUncertainItem(t *testing.T) {
	s := store.New(nil)
	s.Put("req-5", review.PendingReview{
		RequestID:      "req-5",
		UncertainItems: []review.UncertainItem{{Name: "Mushroom Risotto", Price: 1400, Confidence: 0.55}},
	})
	r := New(s, nil)

	final, err := r.Submit("req-5", []Correction{{Name: "Mushroom Risotto", IsVegetarian: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(final.VegetarianItems) != 1 || final.TotalSum != 1400 {
		t.Fatalf("unexpected final: %+v", final)
	}
	if final.VegetarianItems[0].Confidence != 1.0 || final.VegetarianItems[0].Reasoning != "Confirmed vegetarian by human review" {
		t.Errorf("unexpected confirmed item: %+v", final.VegetarianItems[0])
	}
	if s.Has("req-5") {
		t.Error("expected pending review to be deleted after submit")
	}
}

func TestSubmit_RejectsUncertainItem(t *testing.T) {
	s := store.New(nil)
	s.Put("req-6", review.PendingReview{
		RequestID:      "req-6",
		UncertainItems: []review.UncertainItem{{Name: "Caesar Dressing", Price: 300, Confidence: 0.4}},
	})
	r := New(s, nil)

	final, err := r.Submit("req-6", []Correction{{Name: "Caesar Dressing", IsVegetarian: false}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(final.VegetarianItems) != 0 || final.TotalSum != 0 {
		t.Errorf("expected item to be omitted, got %+v", final)
	}
}

func TestSubmit_AbsentCorrectionOmitsItem(t *testing.T) {
	s := store.New(nil)
	s.Put("req-7", review.PendingReview{
		RequestID:      "req-7",
		UncertainItems: []review.UncertainItem{{Name: "Mystery Soup", Price: 500, Confidence: 0.5}},
	})
	r := New(s, nil)

	final, err := r.Submit("req-7", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(final.VegetarianItems) != 0 {
		t.Errorf("expected absent correction to be omitted, got %+v", final)
	}
}

func TestSubmit_KeepsConfidentItemsWithDefaultReasoning(t *testing.T) {
	s := store.New(nil)
	s.Put("req-8", review.PendingReview{
		RequestID:      "req-8",
		ConfidentItems: []review.ConfidentItem{{Name: "Greek Salad", Price: 950, Confidence: 0.95}},
		UncertainItems: []review.UncertainItem{{Name: "Mushroom Risotto", Price: 1400, Confidence: 0.55}},
	})
	r := New(s, nil)

	final, err := r.Submit("req-8", []Correction{{Name: "mushroom risotto", IsVegetarian: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(final.VegetarianItems) != 2 || final.TotalSum != 2350 {
		t.Fatalf("unexpected final: %+v", final)
	}
	if final.VegetarianItems[0].Reasoning != "Previously classified with high confidence" {
		t.Errorf("expected default reasoning, got %q", final.VegetarianItems[0].Reasoning)
	}
}

// Package reconciler merges human corrections into a pending review and
// produces the terminal Final envelope, per the submission algorithm.
package reconciler

import (
	"strings"

	"menuclassify/internal/menu"
	"menuclassify/internal/review"
	"menuclassify/internal/review/store"
	errs "menuclassify/pkg/errors"
	"menuclassify/pkg/logging"
)

// Correction is a human-submitted verdict for one previously uncertain
// item, matched by normalized dish name.
type Correction struct {
	Name         string
	IsVegetarian bool
}

// Reconciler resolves a pending review against submitted corrections.
type Reconciler struct {
	store *store.Store
	log   *logging.Logger
}

// New constructs a Reconciler bound to the shared pending-review store.
// log may be nil.
func New(s *store.Store, log *logging.Logger) *Reconciler {
	return &Reconciler{store: s, log: log}
}

// Submit looks up the pending review for requestID, merges corrections,
// and deletes the pending entry on success. Returns ReviewNotFound if no
// pending review exists for requestID.
func (r *Reconciler) Submit(requestID string, corrections []Correction) (review.Final, error) {
	pending, ok := r.store.Get(requestID)
	if !ok {
		return review.Final{}, errs.NewReviewNotFound("reconciler.Submit", requestID)
	}

	correctionsMap := make(map[string]bool, len(corrections))
	for _, c := range corrections {
		correctionsMap[menu.Normalized(c.Name)] = c.IsVegetarian
	}

	items := make([]review.ConfidentItem, 0, len(pending.ConfidentItems)+len(pending.UncertainItems))
	for _, item := range pending.ConfidentItems {
		reasoning := item.Reasoning
		if strings.TrimSpace(reasoning) == "" {
			reasoning = "Previously classified with high confidence"
		}
		items = append(items, review.ConfidentItem{
			Name:       item.Name,
			Price:      item.Price,
			Confidence: item.Confidence,
			Reasoning:  reasoning,
		})
	}

	for _, item := range pending.UncertainItems {
		isVeg, present := correctionsMap[menu.Normalized(item.Name)]
		if !present || !isVeg {
			continue
		}
		items = append(items, review.ConfidentItem{
			Name:       item.Name,
			Price:      item.Price,
			Confidence: 1.0,
			Reasoning:  "Confirmed vegetarian by human review",
		})
	}

	var totalSum menu.Cents
	for _, item := range items {
		totalSum += item.Price
	}

	r.store.Delete(requestID)

	if r.log != nil {
		r.log.Info("reconciliation_done", logging.String("request_id", requestID),
			logging.Int("items", len(items)), logging.Int64("total_sum_cents", int64(totalSum)))
	}

	return review.Final{
		RequestID:       requestID,
		VegetarianItems: items,
		TotalSum:        totalSum,
	}, nil
}

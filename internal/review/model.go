// Package review holds the shared envelope types produced by the
// Coordinator and consumed by the Review Store and Reconciler.
package review

import "menuclassify/internal/menu"

// ConfidentItem is a menu item classified as vegetarian with confidence at
// or above the configured threshold.
type ConfidentItem struct {
	Name       string
	Price      menu.Cents
	Confidence float64
	Reasoning  string
}

// UncertainItem is a menu item whose classification confidence fell below
// the threshold, regardless of the verdict's direction.
type UncertainItem struct {
	Name       string
	Price      menu.Cents
	Confidence float64
	Evidence   []string
}

// Final is the terminal response when nothing requires human review.
type Final struct {
	RequestID       string
	VegetarianItems []ConfidentItem
	TotalSum        menu.Cents
}

// NeedsReview is returned when at least one item is uncertain; its request
// id and items are what the Review Store keeps, as a PendingReview, until a
// correction submission arrives.
type NeedsReview struct {
	RequestID      string
	ConfidentItems []ConfidentItem
	UncertainItems []UncertainItem
	PartialSum     menu.Cents
}

// PendingReview is the record kept by the Review Store between the
// NeedsReview response and the correction submission that resolves it.
type PendingReview struct {
	RequestID      string
	ConfidentItems []ConfidentItem
	UncertainItems []UncertainItem
}

// Package menu defines the value types shared by the parser and
// classification pipeline: a menu item, its money representation, and the
// verdict/evidence shapes produced downstream.
package menu

import "strings"

// Cents is a monetary amount in integer cents. Internal arithmetic is done
// entirely in cents so that summation never accumulates floating-point
// rounding error; conversion to a 2-digit decimal happens only at the JSON
// boundary.
type Cents int64

// CentsFromFloat rounds a decimal amount to the nearest cent.
func CentsFromFloat(v float64) Cents {
	if v < 0 {
		v = 0
	}
	return Cents(v*100 + 0.5)
}

// Float returns the decimal dollars-and-cents value.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// Item is an immutable record produced by the parser: a dish name, its
// price, and an optional menu section label.
type Item struct {
	Name        string
	Price       Cents
	Description string
	Category    string
}

// Normalized returns the lowercase, trimmed, whitespace-collapsed form of
// the name used for dedup and correction lookups.
func Normalized(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}

// Normalized returns the dedup/lookup key for this item's name.
func (i Item) Normalized() string {
	return Normalized(i.Name)
}

// Verdict is the Coordinator's per-item classification decision.
type Verdict struct {
	IsVegetarian bool
	Confidence   float64
	Reasoning    string
	Method       Method
}

// Method tags how a Verdict was produced.
type Method string

const (
	MethodLLMRag   Method = "llm+rag"
	MethodCombined Method = "combined"
	MethodKeyword  Method = "keyword"
	MethodRAG      Method = "rag"
	MethodDefault  Method = "default"
)

// Evidence is a labeled neighbour returned by the Vector Index.
type Evidence struct {
	DishName        string
	IsVegetarian    bool
	SimilarityScore float64
	Description     string
}

// KeywordVerdictLabel is the tri-valued outcome of the Keyword Engine.
type KeywordVerdictLabel string

const (
	KeywordVegetarian    KeywordVerdictLabel = "vegetarian"
	KeywordNonVegetarian KeywordVerdictLabel = "non_vegetarian"
	KeywordUnknown       KeywordVerdictLabel = "unknown"
)

// KeywordVerdict is the Keyword Engine's tri-valued classification.
type KeywordVerdict struct {
	Label           KeywordVerdictLabel
	Confidence      float64
	MatchedKeywords []string
}

// IsVegetarian reports whether the keyword verdict is definitively
// vegetarian. Callers needing a bool-typed agreement check (e.g. the
// Coordinator's conflict test) should guard on Label != KeywordUnknown first.
func (k KeywordVerdict) IsVegetarian() bool {
	return k.Label == KeywordVegetarian
}

// Definite reports whether the keyword engine reached a non-unknown verdict.
func (k KeywordVerdict) Definite() bool {
	return k.Label != KeywordUnknown
}

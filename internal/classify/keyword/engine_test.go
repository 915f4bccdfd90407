package keyword

import (
	"testing"

	"menuclassify/internal/menu"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func TestClassify_VegetarianOnly(t *testing.T) {
	e := newTestEngine(t)
	v := e.Classify("Tofu Stir Fry", "")
	if v.Label != menu.KeywordVegetarian || v.Confidence != 0.8 {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestClassify_NonVegetarianOnly(t *testing.T) {
	e := newTestEngine(t)
	v := e.Classify("Grilled Chicken Breast", "")
	if v.Label != menu.KeywordNonVegetarian || v.Confidence != 0.9 {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestClassify_Conflict(t *testing.T) {
	e := newTestEngine(t)
	v := e.Classify("Vegetable Chicken Stir-Fry", "")
	if v.Label != menu.KeywordNonVegetarian || v.Confidence != 0.5 {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestClassify_Unknown(t *testing.T) {
	e := newTestEngine(t)
	v := e.Classify("Mystery Plate", "")
	if v.Label != menu.KeywordUnknown || v.Confidence != 0 {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	e := newTestEngine(t)
	a := e.Classify("TOFU", "")
	b := e.Classify("tofu", "")
	if a.Label != b.Label || a.Confidence != b.Confidence {
		t.Fatalf("expected case-insensitive match, got %+v vs %+v", a, b)
	}
}

package parser

import (
	"testing"

	"menuclassify/internal/menu"
)

func TestParse_SectionHeaderSkipped(t *testing.T) {
	items := Parse([]string{"APPETIZERS\nGreek Salad $9.99\nGarden Salad $7.50\n"})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].Name != "Greek Salad" || items[0].Price != 999 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Name != "Garden Salad" || items[1].Price != 750 {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
	if items[0].Category != "Appetizers" {
		t.Fatalf("expected category Appetizers, got %q", items[0].Category)
	}
}

func TestParse_SectionHeaderPunctuationStripped(t *testing.T) {
	items := Parse([]string{"=== Appetizers ===\nGreek Salad $9.99\n"})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d: %+v", len(items), items)
	}
	if items[0].Category != "Appetizers" {
		t.Fatalf("expected category Appetizers, got %q", items[0].Category)
	}
}

func TestParse_DedupKeepsMaxPrice(t *testing.T) {
	items := Parse([]string{"Greek Salad $9.99\nGREEK SALAD $10.00\n"})
	if len(items) != 1 {
		t.Fatalf("expected 1 item after dedup, got %d: %+v", len(items), items)
	}
	if items[0].Price != 1000 {
		t.Fatalf("expected dedup to keep max price 10.00, got %v", items[0].Price.Float())
	}
}

func TestParse_CommaThousands(t *testing.T) {
	items := Parse([]string{"Expensive Dish $1,299.99\n"})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Price != 129999 {
		t.Fatalf("expected 1299.99, got %v", items[0].Price.Float())
	}
}

func TestParse_PlainDecimalAtEndOfLine(t *testing.T) {
	items := Parse([]string{"Burger 12.99\n"})
	if len(items) != 1 || items[0].Name != "Burger" || items[0].Price != 1299 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestParse_InvalidDishNamesRejected(t *testing.T) {
	items := Parse([]string{"123 $4.00\n** $5.00\n"})
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
}

func TestParse_Deterministic(t *testing.T) {
	text := "Veggie Burger $12.00\nGrilled Chicken $15.00\n"
	a := Parse([]string{text})
	b := Parse([]string{text})
	if len(a) != len(b) {
		t.Fatalf("non-deterministic output: %+v vs %+v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic output at index %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestParse_OrderPreserved(t *testing.T) {
	items := Parse([]string{"Soup $4.00\nSalad $5.00\nEntree $20.00\n"})
	want := []string{"Soup", "Salad", "Entree"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, name := range want {
		if items[i].Name != name {
			t.Fatalf("expected order %v, got %+v", want, items)
		}
	}
}

func TestNormalized(t *testing.T) {
	if menu.Normalized("  Greek   Salad ") != "greek salad" {
		t.Fatalf("unexpected normalized form: %q", menu.Normalized("  Greek   Salad "))
	}
}

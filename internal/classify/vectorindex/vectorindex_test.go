package vectorindex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"menuclassify/pkg/database"
)

// fakeStore is an in-memory Store used so the index can be tested without a
// MySQL instance.
type fakeStore struct {
	rows []database.DishEmbeddingRow
}

func (f *fakeStore) CountDishesCtx(ctx context.Context) (int, error) {
	return len(f.rows), nil
}

func (f *fakeStore) InsertDishCtx(ctx context.Context, dishName, description string, isVegetarian bool, embedding []float32, hash string) error {
	f.rows = append(f.rows, database.DishEmbeddingRow{
		ID: int64(len(f.rows) + 1), DishName: dishName, Description: description,
		IsVegetarian: isVegetarian, Embedding: embedding, EmbeddingHash: hash,
	})
	return nil
}

func (f *fakeStore) LoadAllDishesCtx(ctx context.Context) ([]database.DishEmbeddingRow, error) {
	return f.rows, nil
}

// fakeEmbedder maps known dish names to fixed vectors so similarity
// ordering is deterministic, and falls back to the zero vector for
// anything else.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func writeSeedFile(t *testing.T, dishes []seedDish) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	b, err := json.Marshal(seedFile{Dishes: dishes})
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestIndex_SeedsOnceWhenEmpty(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Tofu Stir Fry":  {1, 0, 0},
		"Grilled Salmon": {0, 1, 0},
	}}
	seedPath := writeSeedFile(t, []seedDish{
		{Name: "Tofu Stir Fry", IsVegetarian: true},
		{Name: "Grilled Salmon", IsVegetarian: false},
	})

	idx := New(store, embedder, seedPath, nil)
	if err := idx.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("expected seed to insert 2 rows, got %d", len(store.rows))
	}

	// A second Initialize call must not re-seed.
	if err := idx.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("expected no re-seed, got %d rows", len(store.rows))
	}
}

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	store := &fakeStore{rows: []database.DishEmbeddingRow{
		{ID: 1, DishName: "Tofu Stir Fry", IsVegetarian: true, Embedding: []float32{1, 0, 0}},
		{ID: 2, DishName: "Grilled Salmon", IsVegetarian: false, Embedding: []float32{0, 1, 0}},
		{ID: 3, DishName: "Veggie Burger", IsVegetarian: true, Embedding: []float32{0.9, 0.1, 0}},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Tofu Burger": {1, 0, 0},
	}}
	idx := New(store, embedder, writeSeedFile(t, nil), nil)

	evidence := idx.Search(context.Background(), "Tofu Burger", 2)
	if len(evidence) != 2 {
		t.Fatalf("expected top 2 results, got %d", len(evidence))
	}
	if evidence[0].DishName != "Tofu Stir Fry" {
		t.Fatalf("expected exact match first, got %+v", evidence[0])
	}
	if evidence[0].SimilarityScore != 1.0 {
		t.Fatalf("expected similarity 1.0 for exact match, got %v", evidence[0].SimilarityScore)
	}
	if evidence[1].DishName != "Veggie Burger" {
		t.Fatalf("expected second-closest next, got %+v", evidence[1])
	}
}

func TestIndex_SearchEmptyOnEmbedFailure(t *testing.T) {
	store := &fakeStore{rows: []database.DishEmbeddingRow{
		{ID: 1, DishName: "Tofu Stir Fry", IsVegetarian: true, Embedding: []float32{1, 0, 0}},
	}}
	idx := New(store, &failingEmbedder{}, writeSeedFile(t, nil), nil)

	evidence := idx.Search(context.Background(), "anything", 5)
	if evidence != nil {
		t.Fatalf("expected nil evidence on embed failure, got %+v", evidence)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, context.DeadlineExceeded
}

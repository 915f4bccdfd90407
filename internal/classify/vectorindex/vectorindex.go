// Package vectorindex implements the persistent store of labeled dishes
// used as semantic-similarity evidence for classification. Dish embeddings
// are persisted in MySQL (table menu_dish_embeddings) and loaded into an
// in-process flat index on first use, after the seed pass when one runs; nearest
// neighbour search itself is a linear scan over that in-memory slice, which
// is fast enough for a catalogue in the low thousands of rows and avoids
// depending on a vector-capable database engine.
package vectorindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"menuclassify/internal/menu"
	"menuclassify/pkg/circuit"
	"menuclassify/pkg/database"
	errs "menuclassify/pkg/errors"
	"menuclassify/pkg/logging"

	"github.com/sashabaranov/go-openai"
)

// Embedder embeds text into a dense vector. Satisfied by an OpenAI client
// wrapper so the index can be tested against a fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// openAIEmbedder adapts go-openai's embeddings endpoint to Embedder.
type openAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder wraps a go-openai client for the configured embedding
// model (default "text-embedding-3-small", per §4.3's configurable model
// name).
func NewOpenAIEmbedder(client *openai.Client, model string) Embedder {
	return &openAIEmbedder{client: client, model: openai.EmbeddingModel(model)}
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("vectorindex: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// seedFile is the shape of the bundled JSON seed document (§6).
type seedFile struct {
	Dishes []seedDish `json:"dishes"`
}

type seedDish struct {
	Name         string `json:"name"`
	IsVegetarian bool   `json:"is_vegetarian"`
	Description  string `json:"description,omitempty"`
}

// entry is one in-memory row of the flat index.
type entry struct {
	dishName     string
	isVegetarian bool
	description  string
	embedding    []float32
}

// Store is the persistence surface the index needs. database.DB satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	CountDishesCtx(ctx context.Context) (int, error)
	InsertDishCtx(ctx context.Context, dishName, description string, isVegetarian bool, embedding []float32, hash string) error
	LoadAllDishesCtx(ctx context.Context) ([]database.DishEmbeddingRow, error)
}

// Index is the process-wide singleton vector index. It is read-mostly: a
// "first-use" guard drives seeding, and queries afterward only read the
// in-memory slice under a read lock.
type Index struct {
	db       Store
	embedder Embedder
	seedPath string
	cb       *circuit.Breaker

	mu      sync.RWMutex
	entries []entry

	initMu   sync.Mutex
	initDone bool
}

// New constructs an Index bound to a persistence layer, an embedder, and
// the path to the bundled seed JSON. Both the embedding call and the
// backing store are external dependencies, so they are guarded by the
// same kind of circuit breaker the LLM Client uses.
func New(db Store, embedder Embedder, seedPath string, log *logging.Logger) *Index {
	cb := circuit.New(circuit.Config{
		Name:              "vector-index",
		OperationTimeout:  5 * time.Second,
		OpenFor:           30 * time.Second,
		MaxConsecFailures: 3,
		WindowSize:        10,
		FailureRate:       0.5,
		SlowCallThreshold: 2 * time.Second,
		SlowCallRate:      0.5,
	}, log)
	return &Index{db: db, embedder: embedder, seedPath: seedPath, cb: cb}
}

// Initialize seeds the catalogue from the bundled JSON if and only if it is
// currently empty, then loads all rows into memory. It is idempotent and
// safe to call concurrently; callers are serialised, once an attempt has
// succeeded later calls return at once, and a failed attempt leaves the
// collection untouched so the next query retries.
func (idx *Index) Initialize(ctx context.Context) error {
	idx.initMu.Lock()
	defer idx.initMu.Unlock()
	if idx.initDone {
		return nil
	}
	if err := idx.doInitialize(ctx); err != nil {
		return err
	}
	idx.initDone = true
	return nil
}

func (idx *Index) doInitialize(ctx context.Context) error {
	err := idx.cb.Do(ctx, func(ctx context.Context) error {
		count, err := idx.db.CountDishesCtx(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			if err := idx.seed(ctx); err != nil {
				return err
			}
		}
		return idx.reload(ctx)
	}, func(ctx context.Context, cause error) error {
		return cause
	})
	if err != nil {
		return errs.NewVectorIndexUnavailable("vectorindex.Initialize", "catalogue unavailable", err)
	}
	return nil
}

// seed reads the bundled JSON document and embeds+persists every dish. A
// missing seed file is returned as an error; Search treats it like any
// other initialisation failure and returns no evidence, so the service
// keeps running without a knowledge base instead of failing. The error is
// not logged.
func (idx *Index) seed(ctx context.Context) error {
	b, err := os.ReadFile(idx.seedPath)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", idx.seedPath, err)
	}

	var sf seedFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return fmt.Errorf("parse seed file %s: %w", idx.seedPath, err)
	}

	for _, d := range sf.Dishes {
		docText := d.Name
		if d.Description != "" {
			docText = d.Name + " - " + d.Description
		}

		emb, err := idx.embedder.Embed(ctx, docText)
		if err != nil {
			return fmt.Errorf("embed seed dish %q: %w", d.Name, err)
		}

		hash := hashDish(d.Name, d.Description)
		if err := idx.db.InsertDishCtx(ctx, d.Name, d.Description, d.IsVegetarian, emb, hash); err != nil {
			return fmt.Errorf("insert seed dish %q: %w", d.Name, err)
		}
	}

	return nil
}

func hashDish(name, description string) string {
	sum := sha256.Sum256([]byte(name + "\x00" + description))
	return hex.EncodeToString(sum[:])
}

// reload refreshes the in-memory catalogue from persistent storage.
func (idx *Index) reload(ctx context.Context) error {
	rows, err := idx.db.LoadAllDishesCtx(ctx)
	if err != nil {
		return fmt.Errorf("load catalogue: %w", err)
	}

	entries := make([]entry, len(rows))
	for i, r := range rows {
		entries[i] = entry{
			dishName:     r.DishName,
			isVegetarian: r.IsVegetarian,
			description:  r.Description,
			embedding:    r.Embedding,
		}
	}

	idx.mu.Lock()
	idx.entries = entries
	idx.mu.Unlock()
	return nil
}

// Search embeds the query dish name and returns the top-k nearest
// neighbours by L2 distance, converted to a similarity score via
// 1/(1+distance) rounded to 3 decimal places, ordered by descending
// similarity. A query-time failure (embedding error, uninitialized index,
// deadline exceeded) yields empty evidence rather than an error — the
// caller runs the LLM with an empty evidence block.
func (idx *Index) Search(ctx context.Context, query string, topK int) []menu.Evidence {
	if err := idx.Initialize(ctx); err != nil {
		return nil
	}

	var queryVec []float32
	err := idx.cb.Do(ctx, func(ctx context.Context) error {
		v, err := idx.embedder.Embed(ctx, query)
		if err != nil {
			return err
		}
		queryVec = v
		return nil
	}, func(ctx context.Context, cause error) error {
		return cause
	})
	if err != nil {
		return nil
	}

	idx.mu.RLock()
	entries := idx.entries
	idx.mu.RUnlock()

	type scored struct {
		entry      entry
		similarity float64
	}

	results := make([]scored, 0, len(entries))
	for _, e := range entries {
		dist := l2Distance(queryVec, e.embedding)
		sim := round3(1 / (1 + dist))
		results = append(results, scored{entry: e, similarity: sim})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].similarity > results[j].similarity
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	evidence := make([]menu.Evidence, len(results))
	for i, r := range results {
		evidence[i] = menu.Evidence{
			DishName:        r.entry.dishName,
			IsVegetarian:    r.entry.isVegetarian,
			SimilarityScore: r.similarity,
			Description:     r.entry.description,
		}
	}
	return evidence
}

func l2Distance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

package coordinator

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"menuclassify/internal/menu"
	"menuclassify/internal/review"
)

type fakeVectorSearcher struct {
	evidence []menu.Evidence
}

func (f fakeVectorSearcher) Search(ctx context.Context, query string, topK int) []menu.Evidence {
	return f.evidence
}

type fakeLLM struct {
	verdict *menu.Verdict
}

func (f fakeLLM) Classify(ctx context.Context, name, description string, evidence []menu.Evidence) *menu.Verdict {
	return f.verdict
}

type fakeKeyword struct {
	verdict menu.KeywordVerdict
}

func (f fakeKeyword) Classify(name, description string) menu.KeywordVerdict {
	return f.verdict
}

func newCoordinator(llmVerdict *menu.Verdict, keywordVerdict menu.KeywordVerdict, evidence []menu.Evidence) *Coordinator {
	return New(fakeVectorSearcher{evidence: evidence}, fakeLLM{verdict: llmVerdict}, fakeKeyword{verdict: keywordVerdict}, Config{}, nil)
}

func TestClassifyBatch_ConfidentVegetarianYieldsFinal(t *testing.T) {
	c := newCoordinator(
		&menu.Verdict{IsVegetarian: true, Confidence: 0.95, Reasoning: "no meat"},
		menu.KeywordVerdict{Label: menu.KeywordUnknown},
		nil,
	)

	items := []menu.Item{{Name: "Greek Salad", Price: 950}}
	result := c.ClassifyBatch(context.Background(), "req-1", items)

	final, ok := result.(review.Final)
	if !ok {
		t.Fatalf("expected Final, got %T: %+v", result, result)
	}
	if len(final.VegetarianItems) != 1 || final.TotalSum != 950 {
		t.Errorf("unexpected final: %+v", final)
	}
	if final.VegetarianItems[0].Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %v", final.VegetarianItems[0].Confidence)
	}
}

func TestClassifyBatch_LowConfidenceYieldsNeedsReview(t *testing.T) {
	c := newCoordinator(
		&menu.Verdict{IsVegetarian: true, Confidence: 0.55, Reasoning: "uncertain"},
		menu.KeywordVerdict{Label: menu.KeywordUnknown},
		nil,
	)

	items := []menu.Item{{Name: "Mushroom Risotto", Price: 1400}}
	result := c.ClassifyBatch(context.Background(), "req-2", items)

	nr, ok := result.(review.NeedsReview)
	if !ok {
		t.Fatalf("expected NeedsReview, got %T: %+v", result, result)
	}
	if len(nr.UncertainItems) != 1 || nr.PartialSum != 0 {
		t.Errorf("unexpected needs-review: %+v", nr)
	}
}

func TestClassifyBatch_ConfidentNonVegetarianDiscarded(t *testing.T) {
	c := newCoordinator(
		&menu.Verdict{IsVegetarian: false, Confidence: 0.92, Reasoning: "contains chicken"},
		menu.KeywordVerdict{Label: menu.KeywordUnknown},
		nil,
	)

	items := []menu.Item{{Name: "Grilled Chicken", Price: 1500}}
	result := c.ClassifyBatch(context.Background(), "req-3", items)

	final, ok := result.(review.Final)
	if !ok {
		t.Fatalf("expected Final, got %T: %+v", result, result)
	}
	if len(final.VegetarianItems) != 0 || final.TotalSum != 0 {
		t.Errorf("expected discarded item, got %+v", final)
	}
}

func TestClassifyBatch_MixedBatchProducesFinal(t *testing.T) {
	// LLM forced per-item via a fake keyed by dish name, since items are
	// now classified concurrently and may not reach the fake in order.
	byName := map[string]*menu.Verdict{
		"Greek Salad":     {IsVegetarian: true, Confidence: 0.95, Reasoning: "ok"},
		"Grilled Chicken": {IsVegetarian: false, Confidence: 0.92, Reasoning: "meat"},
		"Veggie Burger":   {IsVegetarian: true, Confidence: 0.88, Reasoning: "ok"},
	}
	c := New(
		fakeVectorSearcher{},
		&namedLLM{verdicts: byName},
		fakeKeyword{verdict: menu.KeywordVerdict{Label: menu.KeywordUnknown}},
		Config{},
		nil,
	)

	items := []menu.Item{
		{Name: "Greek Salad", Price: 950},
		{Name: "Grilled Chicken", Price: 1500},
		{Name: "Veggie Burger", Price: 1200},
	}
	result := c.ClassifyBatch(context.Background(), "req-4", items)

	final, ok := result.(review.Final)
	if !ok {
		t.Fatalf("expected Final, got %T: %+v", result, result)
	}
	if len(final.VegetarianItems) != 2 || final.TotalSum != 2150 {
		t.Errorf("unexpected final: %+v", final)
	}
}

type trackingLLM struct {
	inFlight    int32
	maxInFlight int32
}

func (t *trackingLLM) Classify(ctx context.Context, name, description string, evidence []menu.Evidence) *menu.Verdict {
	cur := atomic.AddInt32(&t.inFlight, 1)
	for {
		max := atomic.LoadInt32(&t.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&t.maxInFlight, max, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&t.inFlight, -1)
	return &menu.Verdict{IsVegetarian: true, Confidence: 0.95, Reasoning: "ok"}
}

func TestClassifyBatch_BoundsConcurrencyToWorkerBudget(t *testing.T) {
	llm := &trackingLLM{}
	c := New(fakeVectorSearcher{}, llm, fakeKeyword{verdict: menu.KeywordVerdict{Label: menu.KeywordUnknown}}, Config{WorkerBudget: 2}, nil)

	items := make([]menu.Item, 8)
	for i := range items {
		items[i] = menu.Item{Name: "Dish", Price: 100}
	}

	c.ClassifyBatch(context.Background(), "req-budget", items)

	if llm.maxInFlight > 2 {
		t.Errorf("expected at most 2 concurrent LLM calls, observed %d", llm.maxInFlight)
	}
}

type namedLLM struct {
	verdicts map[string]*menu.Verdict
}

func (s *namedLLM) Classify(ctx context.Context, name, description string, evidence []menu.Evidence) *menu.Verdict {
	return s.verdicts[name]
}

func TestCombine_KeywordConflictCapsConfidence(t *testing.T) {
	llmVerdict := &menu.Verdict{IsVegetarian: true, Confidence: 0.9, Reasoning: "looks vegetarian"}
	keywordVerdict := menu.KeywordVerdict{Label: menu.KeywordNonVegetarian, Confidence: 0.9, MatchedKeywords: []string{"bacon"}}

	v := combine(llmVerdict, keywordVerdict, nil)

	if v.Method != menu.MethodCombined || v.Confidence != 0.6 {
		t.Errorf("expected capped combined verdict, got %+v", v)
	}
}

func TestCombine_EvidenceBoostsAgreeingLLM(t *testing.T) {
	llmVerdict := &menu.Verdict{IsVegetarian: true, Confidence: 0.85, Reasoning: "ok"}
	evidence := []menu.Evidence{{DishName: "Tofu Stir Fry", IsVegetarian: true, SimilarityScore: 0.9}}

	v := combine(llmVerdict, menu.KeywordVerdict{Label: menu.KeywordUnknown}, evidence)

	if v.Method != menu.MethodLLMRag || v.Confidence != 0.95 {
		t.Errorf("expected boosted confidence, got %+v", v)
	}
}

func TestCombine_LLMFailsKeywordDefinite(t *testing.T) {
	keywordVerdict := menu.KeywordVerdict{Label: menu.KeywordNonVegetarian, Confidence: 0.9, MatchedKeywords: []string{"bacon"}}

	v := combine(nil, keywordVerdict, nil)

	if v.Method != menu.MethodKeyword || v.IsVegetarian || v.Reasoning != "Keyword match: bacon" {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestCombine_LLMFailsKeywordUnknownStrongEvidence(t *testing.T) {
	evidence := []menu.Evidence{{DishName: "Falafel Wrap", IsVegetarian: true, SimilarityScore: 0.9}}

	v := combine(nil, menu.KeywordVerdict{Label: menu.KeywordUnknown}, evidence)

	if v.Method != menu.MethodRAG || !v.IsVegetarian || math.Abs(v.Confidence-0.72) > 1e-9 {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestCombine_NoSignalDefaultsToNonVegetarian(t *testing.T) {
	v := combine(nil, menu.KeywordVerdict{Label: menu.KeywordUnknown}, nil)

	if v.Method != menu.MethodDefault || v.IsVegetarian || v.Confidence != 0.3 {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

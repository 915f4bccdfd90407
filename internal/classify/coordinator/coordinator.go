// Package coordinator combines Vector Index, LLM, and Keyword signals into
// a single per-item Verdict, then routes a batch of items into either a
// Final or NeedsReview envelope.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"menuclassify/internal/menu"
	"menuclassify/internal/review"
	"menuclassify/pkg/logging"
)

// VectorSearcher returns similarity evidence for a dish name.
type VectorSearcher interface {
	Search(ctx context.Context, query string, topK int) []menu.Evidence
}

// LLMClassifier returns a verdict for a dish, or nil on any degraded path.
type LLMClassifier interface {
	Classify(ctx context.Context, name, description string, evidence []menu.Evidence) *menu.Verdict
}

// KeywordEngine returns the tri-valued dictionary verdict for a dish.
type KeywordEngine interface {
	Classify(name, description string) menu.KeywordVerdict
}

// Coordinator wires the three classification signals together and applies
// the combination and batch-routing rules.
type Coordinator struct {
	vectorIndex VectorSearcher
	llm         LLMClassifier
	keyword     KeywordEngine
	topK        int
	threshold   float64
	workers     int
	log         *logging.Logger
}

// Config tunes the Coordinator's thresholds.
type Config struct {
	EvidenceTopK        int
	ConfidenceThreshold float64
	WorkerBudget        int
}

// New constructs a Coordinator from its three collaborators.
func New(vectorIndex VectorSearcher, llm LLMClassifier, keyword KeywordEngine, cfg Config, log *logging.Logger) *Coordinator {
	topK := cfg.EvidenceTopK
	if topK <= 0 {
		topK = 5
	}
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	workers := cfg.WorkerBudget
	if workers <= 0 {
		workers = 4
	}
	return &Coordinator{vectorIndex: vectorIndex, llm: llm, keyword: keyword, topK: topK, threshold: threshold, workers: workers, log: log}
}

// ClassifyBatch classifies every item and routes the batch into a Final
// envelope when nothing is uncertain, or a NeedsReview envelope otherwise.
// Items are fanned out across at most c.workers goroutines, mirroring the
// semaphore+WaitGroup bound used for outbound LLM calls elsewhere in the
// corpus; ordering between items carries no meaning, so results are
// collected by index rather than by completion order.
func (c *Coordinator) ClassifyBatch(ctx context.Context, requestID string, items []menu.Item) any {
	if c.log != nil {
		c.log.Info("classify_batch_start", logging.String("request_id", requestID), logging.Int("items", len(items)))
	}

	verdicts := make([]menu.Verdict, len(items))

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item menu.Item) {
			defer wg.Done()
			defer func() { <-sem }()
			verdicts[i] = c.classifyItem(ctx, item)
		}(i, item)
	}
	wg.Wait()

	var confident []review.ConfidentItem
	var uncertain []review.UncertainItem

	for i, item := range items {
		verdict := verdicts[i]

		if verdict.IsVegetarian && verdict.Confidence >= c.threshold {
			confident = append(confident, review.ConfidentItem{
				Name:       item.Name,
				Price:      item.Price,
				Confidence: verdict.Confidence,
				Reasoning:  verdict.Reasoning,
			})
			continue
		}

		if verdict.Confidence < c.threshold {
			uncertain = append(uncertain, review.UncertainItem{
				Name:       item.Name,
				Price:      item.Price,
				Confidence: verdict.Confidence,
				Evidence:   []string{verdict.Reasoning},
			})
		}
		// Confident non-vegetarian: discarded, not surfaced.
	}

	partialSum := sumPrices(confident)

	if c.log != nil {
		c.log.Info("classify_batch_done", logging.String("request_id", requestID),
			logging.Int("confident", len(confident)), logging.Int("uncertain", len(uncertain)))
	}

	if len(uncertain) > 0 {
		return review.NeedsReview{
			RequestID:      requestID,
			ConfidentItems: confident,
			UncertainItems: uncertain,
			PartialSum:     partialSum,
		}
	}

	return review.Final{
		RequestID:       requestID,
		VegetarianItems: confident,
		TotalSum:        partialSum,
	}
}

// classifyItem queries the vector index, LLM, and keyword engine for one
// item and combines them into a single Verdict. The keyword lookup has no
// dependency on the other two and runs concurrently with them; the LLM
// call depends on the vector search's evidence, so those two stay
// sequential relative to each other.
func (c *Coordinator) classifyItem(ctx context.Context, item menu.Item) menu.Verdict {
	var keywordVerdict menu.KeywordVerdict
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		keywordVerdict = c.keyword.Classify(item.Name, item.Description)
	}()

	evidence := c.vectorIndex.Search(ctx, item.Name, c.topK)
	llmVerdict := c.llm.Classify(ctx, item.Name, item.Description, evidence)

	wg.Wait()

	verdict := combine(llmVerdict, keywordVerdict, evidence)
	if c.log != nil {
		c.log.Debug("item_classified", logging.String("dish", item.Name), logging.String("method", string(verdict.Method)))
		if llmVerdict != nil && keywordVerdict.Definite() && keywordVerdict.IsVegetarian() != llmVerdict.IsVegetarian {
			c.log.Debug("classification_conflict", logging.String("dish", item.Name), logging.String("method", string(verdict.Method)))
		}
	}
	return verdict
}

// combine applies the fixed priority cascade: LLM success (checked against
// a strong disagreeing keyword signal, then boosted by agreeing evidence),
// LLM failure with a definite keyword verdict, LLM failure with RAG-only
// evidence above 0.8 similarity, and finally the conservative default.
func combine(llmVerdict *menu.Verdict, keywordVerdict menu.KeywordVerdict, evidence []menu.Evidence) menu.Verdict {
	if llmVerdict != nil {
		if keywordVerdict.Definite() && keywordVerdict.Confidence >= 0.8 && keywordVerdict.IsVegetarian() != llmVerdict.IsVegetarian {
			confidence := llmVerdict.Confidence
			if confidence > 0.6 {
				confidence = 0.6
			}
			return menu.Verdict{
				IsVegetarian: llmVerdict.IsVegetarian,
				Confidence:   confidence,
				Reasoning:    llmVerdict.Reasoning + " (Note: keyword analysis suggests otherwise)",
				Method:       menu.MethodCombined,
			}
		}

		confidence := llmVerdict.Confidence
		if len(evidence) > 0 {
			top := evidence[0]
			if top.SimilarityScore > 0.7 && top.IsVegetarian == llmVerdict.IsVegetarian {
				confidence = confidence + 0.1
				if confidence > 1.0 {
					confidence = 1.0
				}
			}
		}
		return menu.Verdict{
			IsVegetarian: llmVerdict.IsVegetarian,
			Confidence:   round2(confidence),
			Reasoning:    llmVerdict.Reasoning,
			Method:       menu.MethodLLMRag,
		}
	}

	if keywordVerdict.Definite() {
		return menu.Verdict{
			IsVegetarian: keywordVerdict.IsVegetarian(),
			Confidence:   keywordVerdict.Confidence,
			Reasoning:    "Keyword match: " + strings.Join(keywordVerdict.MatchedKeywords, ", "),
			Method:       menu.MethodKeyword,
		}
	}

	if len(evidence) > 0 && evidence[0].SimilarityScore > 0.8 {
		top := evidence[0]
		return menu.Verdict{
			IsVegetarian: top.IsVegetarian,
			Confidence:   top.SimilarityScore * 0.8,
			Reasoning:    fmt.Sprintf("Similar to known dish: %s", top.DishName),
			Method:       menu.MethodRAG,
		}
	}

	return menu.Verdict{
		IsVegetarian: false,
		Confidence:   0.3,
		Reasoning:    "Unable to determine with confidence, defaulting to non-vegetarian",
		Method:       menu.MethodDefault,
	}
}

func sumPrices(items []review.ConfidentItem) menu.Cents {
	var sum menu.Cents
	for _, item := range items {
		sum += item.Price
	}
	return sum
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

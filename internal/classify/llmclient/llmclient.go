// Package llmclient wraps the chat-completion call that renders a dish
// classification verdict. Every call is fronted by a circuit breaker; a
// parse failure, timeout, or open breaker degrades to a nil verdict rather
// than an error, so the caller always has a keyword/RAG fallback path.
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"menuclassify/internal/menu"
	"menuclassify/internal/prompts"
	"menuclassify/pkg/circuit"
	"menuclassify/pkg/logging"

	"github.com/sashabaranov/go-openai"
)

// Client classifies a dish via chat completion, with evidence from the
// Vector Index folded into the prompt.
type Client struct {
	api     *openai.Client
	cb      *circuit.Breaker
	pm      *prompts.Manager
	model   string
	timeout time.Duration
}

// New constructs a Client. model is the chat-completion model name (e.g.
// "gpt-4o-mini"); timeout bounds a single classification request.
func New(api *openai.Client, pm *prompts.Manager, model string, timeout time.Duration, log *logging.Logger) *Client {
	cb := circuit.New(circuit.Config{
		Name:              "openai-chat",
		OperationTimeout:  timeout,
		OpenFor:           45 * time.Second,
		MaxConsecFailures: 3,
		WindowSize:        10,
		FailureRate:       0.5,
		SlowCallThreshold: timeout / 2,
		SlowCallRate:      0.5,
	}, log)
	return &Client{api: api, cb: cb, pm: pm, model: model, timeout: timeout}
}

// promptData is the template data for the "classify_user" prompt.
type promptData struct {
	DishName           string
	DescriptionSection string
	EvidenceSection    string
}

type llmResponse struct {
	IsVegetarian bool    `json:"is_vegetarian"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// Classify renders the prompt for name/description with up to the top-3
// evidence items, and returns a parsed Verdict. Returns nil, not an error,
// on any transport failure, open breaker, or response that fails to parse
// as the fixed JSON contract.
func (c *Client) Classify(ctx context.Context, name, description string, evidence []menu.Evidence) *menu.Verdict {
	systemPrompt, err := c.pm.Render("system", nil)
	if err != nil {
		return nil
	}
	userPrompt, err := c.pm.Render("classify_user", buildPromptData(name, description, evidence))
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature:    0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	var resp openai.ChatCompletionResponse
	err = c.cb.Do(ctx, func(ctx context.Context) error {
		r, e := c.api.CreateChatCompletion(ctx, req)
		if e != nil {
			return e
		}
		resp = r
		return nil
	}, func(ctx context.Context, cause error) error {
		return cause
	})
	if err != nil || len(resp.Choices) == 0 {
		return nil
	}

	parsed, ok := parseResponse(resp.Choices[0].Message.Content)
	if !ok {
		return nil
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return &menu.Verdict{
		IsVegetarian: parsed.IsVegetarian,
		Confidence:   confidence,
		Reasoning:    parsed.Reasoning,
		Method:       menu.MethodLLMRag,
	}
}

func buildPromptData(name, description string, evidence []menu.Evidence) promptData {
	d := promptData{DishName: name}
	if strings.TrimSpace(description) != "" {
		d.DescriptionSection = "Description: " + description
	}

	top := evidence
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) > 0 {
		var b strings.Builder
		b.WriteString("Similar known dishes:\n")
		for _, e := range top {
			label := "non-vegetarian"
			if e.IsVegetarian {
				label = "vegetarian"
			}
			fmt.Fprintf(&b, "- %s (%s, similarity: %.2f)\n", e.DishName, label, e.SimilarityScore)
		}
		d.EvidenceSection = strings.TrimRight(b.String(), "\n")
	}
	return d
}

// parseResponse accepts a raw JSON object optionally wrapped in a
// triple-backtick fence, stripping the first and last lines before
// parsing.
func parseResponse(content string) (llmResponse, bool) {
	content = unfence(content)

	var parsed llmResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return llmResponse{}, false
	}
	return parsed, true
}

func unfence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 3 {
		return trimmed
	}
	lines = lines[1 : len(lines)-1]
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

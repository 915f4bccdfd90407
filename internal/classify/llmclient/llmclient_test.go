package llmclient

import (
	"testing"

	"menuclassify/internal/menu"
)

func TestParseResponse_PlainJSON(t *testing.T) {
	resp, ok := parseResponse(`{"is_vegetarian": true, "confidence": 0.95, "reasoning": "no meat"}`)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if !resp.IsVegetarian || resp.Confidence != 0.95 || resp.Reasoning != "no meat" {
		t.Errorf("unexpected parse result: %+v", resp)
	}
}

func TestParseResponse_FencedJSON(t *testing.T) {
	raw := "```json\n{\"is_vegetarian\": false, \"confidence\": 0.8, \"reasoning\": \"contains chicken\"}\n```"
	resp, ok := parseResponse(raw)
	if !ok {
		t.Fatal("expected fenced parse to succeed")
	}
	if resp.IsVegetarian || resp.Confidence != 0.8 {
		t.Errorf("unexpected parse result: %+v", resp)
	}
}

func TestParseResponse_InvalidJSON(t *testing.T) {
	if _, ok := parseResponse("not json at all"); ok {
		t.Error("expected parse to fail on non-JSON content")
	}
}

func TestBuildPromptData_IncludesDescriptionAndEvidence(t *testing.T) {
	evidence := []menu.Evidence{
		{DishName: "Tofu Stir Fry", IsVegetarian: true, SimilarityScore: 0.912},
		{DishName: "Grilled Salmon", IsVegetarian: false, SimilarityScore: 0.5},
	}
	data := buildPromptData("Veggie Burger", "Black bean patty with lettuce", evidence)

	if data.DishName != "Veggie Burger" {
		t.Errorf("unexpected dish name: %q", data.DishName)
	}
	if data.DescriptionSection == "" {
		t.Error("expected description section to be populated")
	}
	if data.EvidenceSection == "" {
		t.Error("expected evidence section to be populated")
	}
}

func TestBuildPromptData_NoDescriptionNoEvidence(t *testing.T) {
	data := buildPromptData("Mystery Plate", "", nil)
	if data.DescriptionSection != "" {
		t.Errorf("expected empty description section, got %q", data.DescriptionSection)
	}
	if data.EvidenceSection != "" {
		t.Errorf("expected empty evidence section, got %q", data.EvidenceSection)
	}
}

func TestBuildPromptData_LimitsEvidenceToTopThree(t *testing.T) {
	evidence := make([]menu.Evidence, 5)
	for i := range evidence {
		evidence[i] = menu.Evidence{DishName: "Dish", IsVegetarian: true, SimilarityScore: 0.5}
	}
	data := buildPromptData("Dish", "", evidence)

	lines := 0
	for _, r := range data.EvidenceSection {
		if r == '\n' {
			lines++
		}
	}
	// header line + 3 evidence lines => 3 newlines between 4 lines
	if lines != 3 {
		t.Errorf("expected evidence capped at top 3, got %d newlines in %q", lines, data.EvidenceSection)
	}
}

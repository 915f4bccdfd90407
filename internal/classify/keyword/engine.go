// Package keyword implements the fixed-dictionary fallback classifier: two
// word-boundary alternation patterns compiled once at startup, producing a
// tri-valued verdict with confidence. It performs no I/O at query time and
// must never block.
package keyword

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"menuclassify/internal/menu"

	"gopkg.in/yaml.v3"
)

type dictionaries struct {
	Vegetarian    []string `yaml:"vegetarian"`
	NonVegetarian []string `yaml:"non_vegetarian"`
}

// Engine holds the compiled vegetarian/non-vegetarian alternation patterns.
type Engine struct {
	vegPattern    *regexp.Regexp
	nonVegPattern *regexp.Regexp
}

// NewEngine loads the dictionaries from an optional external override
// directory first, falling back to the embedded defaults (see §6's
// normative dictionary contents), then compiles them into alternation
// patterns with `\b` word boundaries.
func NewEngine(overrideDir string) (*Engine, error) {
	dicts, err := loadDictionaries(overrideDir)
	if err != nil {
		return nil, err
	}

	return &Engine{
		vegPattern:    compilePattern(dicts.Vegetarian),
		nonVegPattern: compilePattern(dicts.NonVegetarian),
	}, nil
}

func loadDictionaries(overrideDir string) (dictionaries, error) {
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		path := filepath.Join(dir, "dictionaries.yaml")
		if b, err := os.ReadFile(path); err == nil {
			var d dictionaries
			if err := yaml.Unmarshal(b, &d); err != nil {
				return dictionaries{}, fmt.Errorf("keyword: parse override dictionaries %s: %w", path, err)
			}
			return d, nil
		}
	}

	b, err := dictionariesFS.ReadFile(embeddedDictPath)
	if err != nil {
		return dictionaries{}, fmt.Errorf("keyword: read embedded dictionaries: %w", err)
	}
	var d dictionaries
	if err := yaml.Unmarshal(b, &d); err != nil {
		return dictionaries{}, fmt.Errorf("keyword: parse embedded dictionaries: %w", err)
	}
	return d, nil
}

func compilePattern(keywords []string) *regexp.Regexp {
	escaped := make([]string, len(keywords))
	for i, kw := range keywords {
		escaped[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// Classify returns the tri-valued keyword verdict for a dish name with an
// optional description appended, per the decision table in §4.2.
func (e *Engine) Classify(name, description string) menu.KeywordVerdict {
	text := name
	if description != "" {
		text += " " + description
	}

	vegMatches := uniqueLower(e.vegPattern.FindAllString(text, -1))
	nonVegMatches := uniqueLower(e.nonVegPattern.FindAllString(text, -1))

	switch {
	case len(nonVegMatches) > 0 && len(vegMatches) == 0:
		return menu.KeywordVerdict{Label: menu.KeywordNonVegetarian, Confidence: 0.9, MatchedKeywords: nonVegMatches}
	case len(vegMatches) > 0 && len(nonVegMatches) == 0:
		return menu.KeywordVerdict{Label: menu.KeywordVegetarian, Confidence: 0.8, MatchedKeywords: vegMatches}
	case len(vegMatches) > 0 && len(nonVegMatches) > 0:
		return menu.KeywordVerdict{
			Label:           menu.KeywordNonVegetarian,
			Confidence:      0.5,
			MatchedKeywords: append(append([]string{}, nonVegMatches...), vegMatches...),
		}
	default:
		return menu.KeywordVerdict{Label: menu.KeywordUnknown, Confidence: 0.0}
	}
}

func uniqueLower(matches []string) []string {
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		lm := strings.ToLower(m)
		if !seen[lm] {
			seen[lm] = true
			out = append(out, lm)
		}
	}
	sort.Strings(out)
	return out
}

// Package parser turns noisy, multi-image OCR text into a deduplicated,
// order-preserving list of menu.Item records. It is a pure, deterministic
// function: identical input always yields identical output, and it never
// fails — lines it cannot interpret are silently skipped.
package parser

import (
	"regexp"
	"strings"

	"menuclassify/internal/menu"
)

// pricePatterns are tried in order of specificity; the first match wins.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d{1,2})?)\s*\$`),
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d{1,2})?)\s*(?:USD|EUR|GBP)`),
	regexp.MustCompile(`(\d+\.\d{2})\s*$`),
}

var sectionHeaders = map[string]bool{
	"appetizers": true, "starters": true, "main courses": true, "mains": true,
	"entrees": true, "desserts": true, "beverages": true, "drinks": true,
	"sides": true, "salads": true, "soups": true, "breakfast": true,
	"lunch": true, "dinner": true, "specials": true, "today's specials": true,
}

var (
	headerPunct   = regexp.MustCompile(`[:\-_=*#]`)
	trailingFill  = regexp.MustCompile(`[.\-_]+$`)
	leadingFill   = regexp.MustCompile(`^[.\-_]+`)
	innerSpaces   = regexp.MustCompile(`\s+`)
	starRun       = regexp.MustCompile(`\*+`)
	anyAlpha      = regexp.MustCompile(`[a-zA-Z]`)
)

// priceMatch records a matched price and where it starts in the line, so
// the name can be taken as everything before it.
type priceMatch struct {
	cents menu.Cents
	start int
}

// Parse converts each OCR text into menu items and deduplicates across all
// of them by normalized name, keeping the highest price per name and
// preserving first-occurrence order.
func Parse(texts []string) []menu.Item {
	var all []menu.Item
	for _, text := range texts {
		all = append(all, parseSingle(text)...)
	}
	return deduplicate(all)
}

func parseSingle(text string) []menu.Item {
	var items []menu.Item
	var currentCategory string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if isSectionHeader(line) {
			stripped := strings.Trim(line, ":-_=*# ")
			currentCategory = strings.Title(strings.ToLower(stripped))
			continue
		}

		if item, ok := extractItem(line, currentCategory); ok {
			items = append(items, item)
		}
	}

	return items
}

func isSectionHeader(line string) bool {
	normalized := strings.TrimSpace(headerPunct.ReplaceAllString(strings.ToLower(line), ""))
	if sectionHeaders[normalized] {
		return true
	}

	// An all-caps line that carries a price is a dish, not a header.
	if _, hasPrice := findPrice(line); hasPrice {
		return false
	}
	return isAllUpper(line) && len(strings.Fields(line)) <= 3
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

func extractItem(line, category string) (menu.Item, bool) {
	pm, ok := findPrice(line)
	if !ok {
		return menu.Item{}, false
	}

	name := cleanName(strings.TrimSpace(line[:pm.start]))
	if len(name) < 2 {
		return menu.Item{}, false
	}
	if !isValidDishName(name) {
		return menu.Item{}, false
	}

	return menu.Item{Name: name, Price: pm.cents, Category: category}, true
}

func findPrice(line string) (priceMatch, bool) {
	for _, pat := range pricePatterns {
		loc := pat.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		numStr := line[loc[2]:loc[3]]
		numStr = strings.ReplaceAll(numStr, ",", "")
		return priceMatch{cents: parseCents(numStr), start: loc[0]}, true
	}
	return priceMatch{}, false
}

// parseCents parses a decimal string like "12.99" or "1299" into cents.
// Digits past the second decimal place are dropped, not rounded; the price
// patterns never capture more than two. Malformed input parses as zero
// rather than erroring — the parser never fails.
func parseCents(s string) menu.Cents {
	whole, frac, hasFrac := strings.Cut(s, ".")
	var cents int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0
		}
		cents = cents*10 + int64(r-'0')
	}
	cents *= 100
	if hasFrac {
		frac = (frac + "00")[:2]
		for _, r := range frac {
			if r < '0' || r > '9' {
				return menu.Cents(cents)
			}
		}
		var fracVal int64
		for _, r := range frac {
			fracVal = fracVal*10 + int64(r-'0')
		}
		cents += fracVal
	}
	return menu.Cents(cents)
}

func cleanName(name string) string {
	name = trailingFill.ReplaceAllString(name, "")
	name = leadingFill.ReplaceAllString(name, "")
	name = innerSpaces.ReplaceAllString(name, " ")
	name = starRun.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

func isValidDishName(name string) bool {
	if len(name) < 3 {
		return false
	}
	if isDigitsOnly(strings.ReplaceAll(name, " ", "")) {
		return false
	}
	if !anyAlpha.MatchString(name) {
		return false
	}

	for _, w := range strings.Fields(name) {
		if len(w) >= 2 && isAlphaOnly(w) {
			return true
		}
	}
	return false
}

func isDigitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlphaOnly(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

// deduplicate groups items by normalized name, keeping the highest price
// per group and preserving the order of first occurrence.
func deduplicate(items []menu.Item) []menu.Item {
	seen := make(map[string]int) // normalized name -> index in order
	var order []menu.Item

	for _, item := range items {
		key := item.Normalized()
		if idx, ok := seen[key]; ok {
			if item.Price > order[idx].Price {
				order[idx] = item
			}
			continue
		}
		seen[key] = len(order)
		order = append(order, item)
	}

	return order
}

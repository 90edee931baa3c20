package menu

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// Confidence values are fixed heuristic constants. They are not derived
// from the recognizer's per-word confidence.
const (
	ItemConfidence     = 0.8
	CategoryConfidence = 0.85
	UserConfidence     = 1.0

	// DefaultConfidence is reported for a menu without any category.
	DefaultConfidence = 0.82

	DefaultCurrency = "EUR"
	DefaultLanguage = "de"

	maxHeaderRunes = 30
)

// priceToken matches "12,50€", "€ 12.50", "15,00", "$9.90", "7.50 EUR" and
// "1.234,50€". Group 1 is the integer part, possibly with thousands
// separators, group 2 the two fractional digits.
var priceToken = regexp.MustCompile(`(?:(?:€|\$|£)\s*)?\b(\d{1,3}(?:[.,]\d{3})+|\d+)[.,](\d{2})\b(?:\s*(?:€|\$|£|EUR\b))?`)

var thousandsSep = strings.NewReplacer(".", "", ",", "")

// categoryKeywords are common section nouns per language, lowercased.
var categoryKeywords = map[string][]string{
	"de": {
		"vorspeisen", "hauptgerichte", "hauptspeisen", "nachspeisen", "getränke",
		"desserts", "suppen", "salate", "fleisch", "fisch", "vegetarisch",
		"pizza", "pasta", "beilagen",
	},
	"en": {
		"appetizers", "starters", "mains", "main courses", "desserts", "drinks",
		"beverages", "soups", "salads", "meat", "fish", "vegetarian",
		"pizza", "pasta", "sides",
	},
}

// Structurer turns raw OCR text into a ProcessedMenu. The zero value is
// not usable; use NewStructurer.
type Structurer struct {
	currency string
	language string
	tag      language.Tag
	keywords []string
}

// NewStructurer returns a structurer for the given ISO currency and UI
// locale. Invalid values fall back to EUR and "de".
func NewStructurer(currencyCode, locale string) *Structurer {
	s := &Structurer{
		currency: DefaultCurrency,
		language: DefaultLanguage,
		tag:      language.German,
	}

	if unit, err := currency.ParseISO(strings.TrimSpace(currencyCode)); err == nil {
		s.currency = unit.String()
	}

	if tag, err := language.Parse(strings.TrimSpace(locale)); err == nil {
		base, _ := tag.Base()
		s.language = base.String()
		s.tag = tag
	}

	kw, ok := categoryKeywords[s.language]
	if !ok {
		kw = categoryKeywords[DefaultLanguage]
	}
	s.keywords = kw
	return s
}

var defaultStructurer = NewStructurer(DefaultCurrency, DefaultLanguage)

// Structure runs the default (EUR, de) structurer.
func Structure(raw string) ProcessedMenu {
	return defaultStructurer.Structure(raw)
}

func (s *Structurer) Currency() string { return s.currency }
func (s *Structurer) Language() string { return s.language }

// Structure never fails. Lines that are neither a header nor a priced
// item under an open category are dropped as page noise.
func (s *Structurer) Structure(raw string) ProcessedMenu {
	categories := []ProcessedCategory{}
	var current *ProcessedCategory

	lower := cases.Lower(s.tag)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lowered := lower.String(line)
		priced := priceToken.MatchString(line)

		switch {
		case !priced && s.isCategory(line, lowered):
			if current != nil {
				categories = append(categories, *current)
			}
			current = &ProcessedCategory{
				Name:       line,
				Items:      []ProcessedMenuItem{},
				Confidence: CategoryConfidence,
			}

		case priced && current != nil:
			if item, ok := extractItem(line, lowered); ok {
				current.Items = append(current.Items, item)
			}
		}
	}

	if current != nil {
		categories = append(categories, *current)
	}

	return ProcessedMenu{
		Categories: categories,
		Currency:   s.currency,
		Language:   s.language,
		Confidence: aggregateConfidence(categories),
	}
}

func (s *Structurer) isCategory(line, lowered string) bool {
	for _, kw := range s.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return isShoutedHeader(line)
}

// isShoutedHeader reports an all-uppercase short line with at least one
// letter. Digits and punctuation alone never make a header.
func isShoutedHeader(line string) bool {
	if utf8.RuneCountInString(line) >= maxHeaderRunes {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if !unicode.IsLetter(r) {
			continue
		}
		hasLetter = true
		if unicode.IsLower(r) {
			return false
		}
	}
	return hasLetter
}

func extractItem(line, lowered string) (ProcessedMenuItem, bool) {
	m := priceToken.FindStringSubmatch(line)
	if m == nil {
		return ProcessedMenuItem{}, false
	}
	price, err := NewMoney(thousandsSep.Replace(m[1]), m[2])
	if err != nil {
		// malformed token, treat the line as noise
		return ProcessedMenuItem{}, false
	}

	name := priceToken.ReplaceAllString(line, " ")
	name = strings.Join(strings.Fields(name), " ")
	name = strings.TrimRight(name, " .·-–—|:")
	name = strings.TrimSpace(name)

	return ProcessedMenuItem{
		Name:       name,
		Price:      &price,
		Allergens:  DetectAllergens(lowered),
		Confidence: ItemConfidence,
	}, true
}

func aggregateConfidence(categories []ProcessedCategory) float64 {
	var sum float64
	n := 0
	for _, c := range categories {
		sum += c.Confidence
		n++
		for _, it := range c.Items {
			sum += it.Confidence
			n++
		}
	}
	if n == 0 {
		return DefaultConfidence
	}
	return sum / float64(n)
}

package menu

import (
	"strings"
	"unicode"
)

const (
	AllergenGluten  = "gluten"
	AllergenLactose = "lactose"
	AllergenEgg     = "egg"
	AllergenNuts    = "nuts"
)

type allergenRule struct {
	tag      string
	triggers []string
	// words must appear as a whole word; plain substrings like "ei" are
	// too common in German to use unbounded.
	words []string
}

// allergenRules is ordered; detected tags follow this order.
var allergenRules = []allergenRule{
	{
		tag:      AllergenGluten,
		triggers: []string{"weizen", "roggen", "gerste", "hafer", "dinkel", "wheat", "rye", "barley", "oat", "spelt"},
	},
	{
		tag:      AllergenLactose,
		triggers: []string{"milch", "käse", "butter", "sahne", "joghurt", "milk", "cheese", "cream", "yogurt", "yoghurt"},
	},
	{
		tag:      AllergenEgg,
		triggers: []string{"egg", "eier"},
		words:    []string{"ei"},
	},
	{
		tag:      AllergenNuts,
		triggers: []string{"nuss", "nüsse", "mandel", "haselnuss", "walnuss", "nut", "almond", "hazelnut", "walnut"},
	},
}

// DetectAllergens scans an already lowercased line. A tag is reported
// when any of its triggers occurs as a substring or one of its whole-word
// triggers appears as a word.
func DetectAllergens(lowered string) []string {
	found := []string{}
	var words []string

	for _, rule := range allergenRules {
		hit := false
		for _, t := range rule.triggers {
			if strings.Contains(lowered, t) {
				hit = true
				break
			}
		}
		if !hit && len(rule.words) > 0 {
			if words == nil {
				words = strings.FieldsFunc(lowered, func(r rune) bool {
					return !unicode.IsLetter(r)
				})
			}
			hit = containsWord(words, rule.words)
		}
		if hit {
			found = append(found, rule.tag)
		}
	}
	return found
}

func containsWord(words, wanted []string) bool {
	for _, w := range words {
		for _, x := range wanted {
			if w == x {
				return true
			}
		}
	}
	return false
}

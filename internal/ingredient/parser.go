// Package ingredient turns free-text recipe ingredient lines into
// structured quantities and scales them. All functions are pure; callers
// can use them independently of the repository layers.
package ingredient

import (
	"strconv"
	"strings"

	"pantrybook/internal/models"
)

// Units recognized after a leading number. Matching is case-insensitive.
var knownUnits = map[string]bool{
	"g":           true,
	"gram":        true,
	"grams":       true,
	"kg":          true,
	"kilogram":    true,
	"kilograms":   true,
	"mg":          true,
	"ml":          true,
	"cl":          true,
	"dl":          true,
	"l":           true,
	"liter":       true,
	"liters":      true,
	"litre":       true,
	"litres":      true,
	"tsp":         true,
	"teaspoon":    true,
	"teaspoons":   true,
	"tbsp":        true,
	"tablespoon":  true,
	"tablespoons": true,
	"cup":         true,
	"cups":        true,
	"oz":          true,
	"ounce":       true,
	"ounces":      true,
	"lb":          true,
	"lbs":         true,
	"pound":       true,
	"pounds":      true,
	"piece":       true,
	"pieces":      true,
	"slice":       true,
	"slices":      true,
	"clove":       true,
	"cloves":      true,
	"can":         true,
	"cans":        true,
	"stick":       true,
	"sticks":      true,
	"bunch":       true,
	"bunches":     true,
}

// Words that denote one unit of their own kind ("pinch of salt" = 1 pinch,
// "cup of sugar" = 1 cup). A leading number still takes the known-unit rule.
var descriptiveAmounts = map[string]bool{
	"pinch":    true,
	"dash":     true,
	"handful":  true,
	"splash":   true,
	"sprinkle": true,
	"knob":     true,
	"drizzle":  true,
	"cup":      true,
}

// GenericUnit is assigned when a line starts with a number but no
// recognized unit follows it.
const GenericUnit = "piece"

// Parse converts a free-text ingredient line into its structured form.
// It never fails: input that matches no rule comes back with a nil amount,
// no unit, and the whole line as the ingredient name.
//
// Rules are tried in order, first match wins:
//  1. "<number> <known-unit> <rest>"
//  2. "<descriptive-word> [of] <rest>"
//  3. "<number> <rest>" with the generic unit
//  4. no match
func Parse(text string) models.ParsedIngredient {
	trimmed := strings.TrimSpace(text)
	fallback := models.ParsedIngredient{Text: text, IngredientName: trimmed}
	if trimmed == "" {
		return models.ParsedIngredient{Text: text}
	}

	first, rest := splitFirstWord(trimmed)

	if amount, err := strconv.ParseFloat(first, 64); err == nil && amount >= 0 {
		unit, name := splitFirstWord(rest)
		if knownUnits[strings.ToLower(unit)] && name != "" {
			return models.ParsedIngredient{
				Text:           text,
				Amount:         models.Float64(amount),
				Unit:           unit,
				IngredientName: name,
			}
		}
		if rest != "" {
			return models.ParsedIngredient{
				Text:           text,
				Amount:         models.Float64(amount),
				Unit:           GenericUnit,
				IngredientName: rest,
			}
		}
		// A bare number names nothing; treat as unparsable.
		return fallback
	}

	if descriptiveAmounts[strings.ToLower(first)] && rest != "" {
		name := rest
		if lower := strings.ToLower(rest); strings.HasPrefix(lower, "of ") {
			name = strings.TrimSpace(rest[3:])
		}
		if name != "" {
			return models.ParsedIngredient{
				Text:           text,
				Amount:         models.Float64(1),
				Unit:           strings.ToLower(first),
				IngredientName: name,
			}
		}
	}

	return fallback
}

// splitFirstWord returns the first whitespace-delimited word and the
// trimmed remainder.
func splitFirstWord(s string) (string, string) {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

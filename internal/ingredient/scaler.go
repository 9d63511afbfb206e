package ingredient

import (
	"math"
	"strconv"
	"strings"

	"pantrybook/internal/models"
)

// Scale returns a copy of ing with its amount multiplied by factor and the
// display text rewritten accordingly. Ingredients without an amount come
// back unchanged.
//
// Only the first textual occurrence of the original amount is replaced, so
// "2 cups water, 2 tbsp sugar" scaled by 2 reads "4 cups water, 2 tbsp
// sugar". When the original amount's string form does not appear verbatim
// in the text (an upstream caller built the value from "½ cup sugar" with
// an amount of 0.5), the text is left as-is while the structured amount
// still scales; see TestScaleTextMismatch for the exact behavior.
func Scale(ing models.NormalizedIngredient, factor float64) models.NormalizedIngredient {
	out := ing
	if ing.Amount == nil {
		return out
	}

	scaled := *ing.Amount * factor
	out.Amount = models.Float64(scaled)
	out.Text = strings.Replace(ing.Text, FormatAmount(*ing.Amount), FormatAmount(scaled), 1)
	return out
}

// FormatAmount renders an amount the way it is shown in ingredient text:
// whole numbers without a decimal point, everything else to one decimal.
func FormatAmount(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

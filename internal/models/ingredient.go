package models

// ParsedIngredient is the structured form of a free-text ingredient line.
// Amount is nil when no quantity could be recognized. Unit is empty in the
// same case, except for descriptive amounts ("a pinch") where Amount is 1
// and Unit carries the word itself.
type ParsedIngredient struct {
	Text           string   `json:"text"`
	Amount         *float64 `json:"amount"`
	Unit           string   `json:"unit,omitempty"`
	IngredientName string   `json:"ingredientName"`
}

// NormalizedIngredient is a ParsedIngredient plus the export flag carried
// through from the raw record. Values are never mutated in place; scaling
// produces a new one.
type NormalizedIngredient struct {
	ParsedIngredient
	ExportDefault bool `json:"exportDefault"`
}

// Float64 returns a pointer to v, for building amounts in literals.
func Float64(v float64) *float64 {
	return &v
}

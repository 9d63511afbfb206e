package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringSlice represents a slice of strings that can be stored in the database
type StringSlice []string

// Value converts the slice to a JSON string for storage
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan converts the database value back to a slice
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for StringSlice")
	}
}

// RecipeDocument is a recipe as stored and served. The caching and loading
// layers treat it as opaque; only the ingredient helpers look inside.
type RecipeDocument struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Servings    int             `json:"servings,omitempty"`
	Ingredients []RawIngredient `json:"ingredients"`
	Steps       []string        `json:"steps,omitempty"`
	Tags        StringSlice     `json:"tags,omitempty"`
}

// RawIngredient is an ingredient line as it appears in a recipe document.
// ExportDefault is tri-state on the wire; absent means true.
type RawIngredient struct {
	Text          string `json:"text"`
	ExportDefault *bool  `json:"exportDefault,omitempty"`
}

// Clone returns a deep copy so documents can be handed to observers
// without sharing mutable slices.
func (d *RecipeDocument) Clone() *RecipeDocument {
	if d == nil {
		return nil
	}
	dup := *d
	dup.Ingredients = append([]RawIngredient(nil), d.Ingredients...)
	dup.Steps = append([]string(nil), d.Steps...)
	dup.Tags = append(StringSlice(nil), d.Tags...)
	return &dup
}

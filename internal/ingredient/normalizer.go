package ingredient

import (
	"fmt"
	"reflect"

	"github.com/apex/log"

	"pantrybook/internal/models"
)

// Normalize maps a heterogeneous ingredient list into a uniform structured
// one. Anything that is not a slice (including nil) yields an empty list.
// Elements carrying a text field are parsed; anything else is coerced to
// its string form with a warning and treated as plain text. Output order
// matches input order and no de-duplication happens here.
func Normalize(list interface{}) []models.NormalizedIngredient {
	out := []models.NormalizedIngredient{}

	switch v := list.(type) {
	case nil:
		return out
	case []models.RawIngredient:
		for _, raw := range v {
			out = append(out, fromRaw(raw))
		}
	case []interface{}:
		for _, el := range v {
			out = append(out, normalizeElement(el))
		}
	default:
		// Slices of any other element type go element by element through
		// the same coercion path as []interface{}.
		rv := reflect.ValueOf(list)
		if rv.Kind() != reflect.Slice {
			return out
		}
		for i := 0; i < rv.Len(); i++ {
			out = append(out, normalizeElement(rv.Index(i).Interface()))
		}
	}

	return out
}

func normalizeElement(el interface{}) models.NormalizedIngredient {
	switch v := el.(type) {
	case models.RawIngredient:
		return fromRaw(v)
	case *models.RawIngredient:
		if v != nil {
			return fromRaw(*v)
		}
	case map[string]interface{}:
		if text, ok := v["text"].(string); ok {
			raw := models.RawIngredient{Text: text}
			if exp, ok := v["exportDefault"].(bool); ok {
				raw.ExportDefault = &exp
			}
			return fromRaw(raw)
		}
	}

	coerced := fmt.Sprintf("%v", el)
	log.WithField("value", coerced).Warn("unsupported ingredient record, coercing to text")
	return fromRaw(models.RawIngredient{Text: coerced})
}

func fromRaw(raw models.RawIngredient) models.NormalizedIngredient {
	exportDefault := true
	if raw.ExportDefault != nil {
		exportDefault = *raw.ExportDefault
	}
	return models.NormalizedIngredient{
		ParsedIngredient: Parse(raw.Text),
		ExportDefault:    exportDefault,
	}
}

package sheets

import (
	"docupush-backend/internal/mapping"
	"docupush-backend/internal/models"
)

// BuildRow produces the header row and value row for a set of extracted
// fields. Headers come from an explicit mapping when present, otherwise from
// a human-formatted version of the field key; values stay raw strings since
// sheets cells are untyped.
func BuildRow(fields []models.ExtractedField, explicit map[string]string) (headers []interface{}, values []interface{}) {
	headers = make([]interface{}, 0, len(fields))
	values = make([]interface{}, 0, len(fields))

	for _, field := range fields {
		header, ok := explicit[field.FieldKey]
		if !ok || header == "" {
			header = mapping.HumanizeKey(field.FieldKey)
		}
		headers = append(headers, header)
		values = append(values, field.FieldValue)
	}
	return headers, values
}

// PlanAppend decides which rows a push appends. The header row is written
// only on the first write to an otherwise empty sheet, and only when the
// integration asked for headers; every later push appends the value row
// alone.
func PlanAppend(headers, values []interface{}, includeHeaders, sheetEmpty bool) [][]interface{} {
	if includeHeaders && sheetEmpty {
		return [][]interface{}{headers, values}
	}
	return [][]interface{}{values}
}

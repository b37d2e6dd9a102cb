package mapping

import (
	"strings"

	"docupush-backend/internal/models"
)

// keywordClasses groups semantically equivalent field vocabulary. A field key
// and a destination name match when both contain a keyword from the same
// class ("total_amount" -> "Amount", "receipt_date" -> "Date").
var keywordClasses = [][]string{
	{"amount", "total", "price", "cost", "sum", "value"},
	{"date"},
	{"name", "title"},
	{"description", "notes", "details"},
	{"status", "state"},
	{"category", "type"},
	{"tags", "labels"},
}

// SuggestMappings matches extracted field keys to destination property or
// header names. Per field, first match wins: exact (case-insensitive), then
// bidirectional substring containment, then keyword class. A destination name
// is claimed at most once; later fields that would collide are left unmapped
// rather than overwriting. Fields with no match are simply absent from the
// result.
func SuggestMappings(fields []models.ExtractedField, targetNames []string) map[string]string {
	mappings := make(map[string]string)
	claimed := make(map[string]bool)

	for _, field := range fields {
		if _, done := mappings[field.FieldKey]; done {
			continue
		}
		if target, ok := matchTarget(field.FieldKey, targetNames, claimed); ok {
			mappings[field.FieldKey] = target
			claimed[target] = true
		}
	}
	return mappings
}

func matchTarget(fieldKey string, targetNames []string, claimed map[string]bool) (string, bool) {
	key := Normalize(fieldKey)
	if key == "" {
		return "", false
	}

	// 1. Exact case-insensitive equality.
	for _, target := range targetNames {
		if claimed[target] {
			continue
		}
		if key == Normalize(target) {
			return target, true
		}
	}

	// 2. Substring containment in either direction.
	for _, target := range targetNames {
		if claimed[target] {
			continue
		}
		name := Normalize(target)
		if name == "" {
			continue
		}
		if strings.Contains(key, name) || strings.Contains(name, key) {
			return target, true
		}
	}

	// 3. Keyword class match.
	for _, target := range targetNames {
		if claimed[target] {
			continue
		}
		name := Normalize(target)
		for _, class := range keywordClasses {
			if containsAny(key, class) && containsAny(name, class) {
				return target, true
			}
		}
	}

	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Normalize lowers a field key or destination name and collapses snake_case,
// kebab-case and extra whitespace into single-space-separated words.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// HumanizeKey turns a snake_case field key into a Title Case header
// ("total_amount" -> "Total Amount") for destinations without a declared
// schema.
func HumanizeKey(key string) string {
	words := strings.Fields(Normalize(key))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

package notion

import (
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"docupush-backend/internal/mapping"
	"docupush-backend/internal/models"

	"github.com/jomei/notionapi"
)

// Property types Notion computes itself; writing them is always rejected.
var readOnlyTypes = map[string]bool{
	"formula":          true,
	"rollup":           true,
	"created_time":     true,
	"created_by":       true,
	"last_edited_time": true,
	"last_edited_by":   true,
	"people":           true,
	"files":            true,
	"relation":         true,
}

// optionCategories are groups of semantically equivalent option values.
// AI-extracted values ("Paid in Full") rarely match curated option names
// ("Paid") exactly, and Notion rejects unknown option names outright, so a
// category hit keeps the value instead of losing the field.
var optionCategories = [][]string{
	{"paid", "complete", "completed", "done", "finished", "success", "successful", "approved"},
	{"pending", "in progress", "processing", "waiting", "open", "draft", "unpaid"},
	{"failed", "failure", "error", "rejected", "declined", "cancelled", "canceled", "overdue"},
	{"high", "urgent", "critical"},
	{"low", "minor", "trivial"},
}

// BuildProperties resolves a mapping for the fields and coerces each value
// into its target property's encoding. Explicit mapping entries win; the
// field mapper fills the rest against properties not yet claimed. The second
// return value lists field keys that were omitted (no target, unwritable
// type, or unparseable value). A non-empty title is always guaranteed.
func BuildProperties(db *Database, fields []models.ExtractedField, explicit map[string]string) (notionapi.Properties, []string) {
	resolved := make(map[string]string)
	claimed := make(map[string]bool)

	for _, field := range fields {
		target, ok := explicit[field.FieldKey]
		if !ok {
			continue
		}
		if _, exists := db.Properties[target]; !exists || claimed[target] {
			continue
		}
		resolved[field.FieldKey] = target
		claimed[target] = true
	}

	var unresolved []models.ExtractedField
	var openTargets []string
	for _, field := range fields {
		if _, ok := resolved[field.FieldKey]; !ok {
			unresolved = append(unresolved, field)
		}
	}
	for name := range db.Properties {
		if !claimed[name] && !readOnlyTypes[db.Properties[name].Type] {
			openTargets = append(openTargets, name)
		}
	}
	for key, target := range mapping.SuggestMappings(unresolved, sorted(openTargets)) {
		resolved[key] = target
	}

	properties := notionapi.Properties{}
	var skipped []string
	for _, field := range fields {
		target, ok := resolved[field.FieldKey]
		if !ok {
			skipped = append(skipped, field.FieldKey)
			continue
		}
		value, ok := formatValue(db.Properties[target], field.FieldValue)
		if !ok {
			skipped = append(skipped, field.FieldKey)
			continue
		}
		properties[target] = value
	}

	ensureTitle(db, properties)
	return properties, skipped
}

// formatValue coerces a raw extracted string into the JSON shape the property
// type demands. ok=false means the field should be omitted (never fails the
// push as a whole).
func formatValue(prop Property, value string) (notionapi.Property, bool) {
	if readOnlyTypes[prop.Type] {
		return nil, false
	}

	switch prop.Type {
	case "title":
		return &notionapi.TitleProperty{Title: richText(value)}, true

	case "rich_text":
		return &notionapi.RichTextProperty{RichText: richText(value)}, true

	case "number":
		f, ok := parseNumber(value)
		if !ok {
			return nil, false
		}
		return &notionapi.NumberProperty{Number: f}, true

	case "select":
		opt, ok := matchOption(value, prop.Options)
		if !ok {
			return nil, false
		}
		return &notionapi.SelectProperty{Select: notionapi.Option{Name: opt}}, true

	case "status":
		opt, ok := matchOption(value, prop.Options)
		if !ok {
			return nil, false
		}
		return &notionapi.StatusProperty{Status: notionapi.Option{Name: opt}}, true

	case "multi_select":
		opt, ok := matchOption(value, prop.Options)
		if !ok {
			return nil, false
		}
		return &notionapi.MultiSelectProperty{MultiSelect: []notionapi.Option{{Name: opt}}}, true

	case "date":
		d, ok := parseDate(value)
		if !ok {
			return nil, false
		}
		start := notionapi.Date(d)
		return &notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}}, true

	case "checkbox":
		v := strings.ToLower(strings.TrimSpace(value))
		return &notionapi.CheckboxProperty{Checkbox: v == "true" || v == "yes"}, true

	case "url":
		return &notionapi.URLProperty{URL: value}, true

	case "email":
		return &notionapi.EmailProperty{Email: value}, true

	case "phone_number":
		return &notionapi.PhoneNumberProperty{PhoneNumber: value}, true

	default:
		// Forward-compatible degradation for property types added after this
		// code was written.
		log.Printf("WARN [NotionAdapter] Unknown property type '%s' for '%s', writing as rich_text", prop.Type, prop.Name)
		return &notionapi.RichTextProperty{RichText: richText(value)}, true
	}
}

// matchOption picks a valid option name for an extracted value. Order: exact
// case-insensitive, substring in either direction, semantic category, and as
// a last resort the first available option (an imperfect value beats a lost
// one).
func matchOption(value string, options []Option) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	v := strings.ToLower(strings.TrimSpace(value))

	for _, opt := range options {
		if strings.ToLower(opt.Name) == v {
			return opt.Name, true
		}
	}

	for _, opt := range options {
		name := strings.ToLower(opt.Name)
		if name == "" {
			continue
		}
		if strings.Contains(v, name) || strings.Contains(name, v) {
			return opt.Name, true
		}
	}

	for _, class := range optionCategories {
		if !containsAny(v, class) {
			continue
		}
		for _, opt := range options {
			if containsAny(strings.ToLower(opt.Name), class) {
				return opt.Name, true
			}
		}
	}

	return options[0].Name, true
}

// ensureTitle guarantees the create request carries a non-empty title; Notion
// rejects pages without one.
func ensureTitle(db *Database, properties notionapi.Properties) {
	for name, prop := range db.Properties {
		if prop.Type != "title" {
			continue
		}
		if existing, ok := properties[name]; ok {
			if tp, ok := existing.(*notionapi.TitleProperty); ok && titleText(tp) != "" {
				return
			}
		}
		fallback := "Document " + time.Now().UTC().Format("2006-01-02")
		properties[name] = &notionapi.TitleProperty{Title: richText(fallback)}
		return
	}
}

// titleText concatenates the plain-text content of a title property. A
// mapped field can carry an empty extracted value, which still produces a
// rich text entry, so slice length alone does not prove the title is set.
func titleText(tp *notionapi.TitleProperty) string {
	var b strings.Builder
	for _, rt := range tp.Title {
		if rt.Text != nil {
			b.WriteString(rt.Text.Content)
			continue
		}
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}

func richText(value string) []notionapi.RichText {
	return []notionapi.RichText{
		{Text: &notionapi.Text{Content: value}},
	}
}

var currencyReplacer = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "₹", "", ",", "", " ", "")

// parseNumber strips currency symbols and thousands separators before
// parsing. "$1,250.00" -> 1250.
func parseNumber(value string) (float64, bool) {
	cleaned := currencyReplacer.Replace(strings.TrimSpace(value))
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02-01-2006",
	time.RFC3339,
}

// parseDate parses common extracted date shapes into a calendar date.
func parseDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func sorted(names []string) []string {
	// Map iteration order is random; mapping suggestions must be
	// deterministic across pushes.
	sort.Strings(names)
	return names
}

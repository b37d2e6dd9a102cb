package notion

import (
	"testing"
	"time"

	"docupush-backend/internal/models"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatabase(props map[string]Property) *Database {
	return &Database{ID: "db-1", Title: "Receipts", Properties: props}
}

func field(key, value string) models.ExtractedField {
	return models.ExtractedField{FieldKey: key, FieldValue: value}
}

func TestMatchOptionSubstringBeatsFallback(t *testing.T) {
	options := []Option{{Name: "Paid"}, {Name: "Pending"}, {Name: "Failed"}}

	got, ok := matchOption("Paid in Full", options)
	require.True(t, ok)
	assert.Equal(t, "Paid", got, "substring match must win over first-available fallback")
}

func TestMatchOptionExactCaseInsensitive(t *testing.T) {
	options := []Option{{Name: "Pending"}, {Name: "Paid"}}

	got, ok := matchOption("paid", options)
	require.True(t, ok)
	assert.Equal(t, "Paid", got)
}

func TestMatchOptionSemanticCategory(t *testing.T) {
	options := []Option{{Name: "Paid"}, {Name: "Pending"}}

	// "complete" shares a category with "paid" but has no substring overlap.
	got, ok := matchOption("Complete", options)
	require.True(t, ok)
	assert.Equal(t, "Paid", got)
}

func TestMatchOptionLastResortFallback(t *testing.T) {
	options := []Option{{Name: "Option A"}, {Name: "Option B"}}

	got, ok := matchOption("Xyz Unknown", options)
	require.True(t, ok)
	assert.Equal(t, "Option A", got)
}

func TestMatchOptionNoOptions(t *testing.T) {
	_, ok := matchOption("anything", nil)
	assert.False(t, ok)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,250.00", 1250, true},
		{"99.5", 99.5, true},
		{"£250", 250, true},
		{"-42", -42, true},
		{"N/A", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, ok := parseDate("2024-02-15")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), got)

	got, ok = parseDate("Feb 15, 2024")
	require.True(t, ok)
	assert.Equal(t, 2024, got.Year())

	_, ok = parseDate("sometime soon")
	assert.False(t, ok)
}

func TestFormatValueCheckbox(t *testing.T) {
	prop := Property{Name: "Reviewed", Type: "checkbox"}

	for in, want := range map[string]bool{"true": true, "Yes": true, "no": false, "1": false} {
		v, ok := formatValue(prop, in)
		require.True(t, ok)
		assert.Equal(t, want, v.(*notionapi.CheckboxProperty).Checkbox, "input %q", in)
	}
}

func TestFormatValueReadOnlyTypesOmitted(t *testing.T) {
	for _, typ := range []string{"formula", "rollup", "created_time", "people", "files", "relation"} {
		_, ok := formatValue(Property{Name: "x", Type: typ}, "value")
		assert.False(t, ok, "type %s must never be written", typ)
	}
}

func TestFormatValueUnknownTypeDegradesToRichText(t *testing.T) {
	v, ok := formatValue(Property{Name: "x", Type: "some_future_type"}, "value")
	require.True(t, ok)
	_, isRichText := v.(*notionapi.RichTextProperty)
	assert.True(t, isRichText)
}

func TestBuildPropertiesEndToEnd(t *testing.T) {
	db := testDatabase(map[string]Property{
		"Title":  {Name: "Title", Type: "title"},
		"Amount": {Name: "Amount", Type: "number"},
		"Date":   {Name: "Date", Type: "date"},
	})
	fields := []models.ExtractedField{
		field("vendor_name", "Acme Corp"),
		field("total_amount", "$99.50"),
		field("receipt_date", "2024-02-15"),
	}

	props, skipped := BuildProperties(db, fields, nil)
	assert.Empty(t, skipped)

	title, ok := props["Title"].(*notionapi.TitleProperty)
	require.True(t, ok, "vendor_name maps to Title via the name/title keyword class")
	require.Len(t, title.Title, 1)
	assert.Equal(t, "Acme Corp", title.Title[0].Text.Content)

	amount, ok := props["Amount"].(*notionapi.NumberProperty)
	require.True(t, ok)
	assert.Equal(t, 99.5, amount.Number)

	date, ok := props["Date"].(*notionapi.DateProperty)
	require.True(t, ok)
	assert.Equal(t, 2024, time.Time(*date.Date.Start).Year())
}

func TestBuildPropertiesSynthesizesTitle(t *testing.T) {
	db := testDatabase(map[string]Property{
		"Name":   {Name: "Name", Type: "title"},
		"Amount": {Name: "Amount", Type: "number"},
	})

	props, _ := BuildProperties(db, []models.ExtractedField{field("total", "12")}, nil)

	title, ok := props["Name"].(*notionapi.TitleProperty)
	require.True(t, ok, "a title is always present even when no field maps to it")
	require.Len(t, title.Title, 1)
	assert.Contains(t, title.Title[0].Text.Content, "Document ")
}

func TestBuildPropertiesReplacesEmptyMappedTitle(t *testing.T) {
	db := testDatabase(map[string]Property{
		"Name": {Name: "Name", Type: "title"},
	})

	// An explicit mapping can point a blank extracted value at the title
	// column. The page still needs a real title.
	props, _ := BuildProperties(db,
		[]models.ExtractedField{field("vendor_name", "")},
		map[string]string{"vendor_name": "Name"})

	title, ok := props["Name"].(*notionapi.TitleProperty)
	require.True(t, ok)
	require.Len(t, title.Title, 1)
	assert.Contains(t, title.Title[0].Text.Content, "Document ")
}

func TestBuildPropertiesUnparseableNumberOmitted(t *testing.T) {
	db := testDatabase(map[string]Property{
		"Title":  {Name: "Title", Type: "title"},
		"Amount": {Name: "Amount", Type: "number"},
	})
	fields := []models.ExtractedField{
		field("vendor_name", "Acme Corp"),
		field("total_amount", "N/A"),
	}

	props, skipped := BuildProperties(db, fields, nil)

	_, hasAmount := props["Amount"]
	assert.False(t, hasAmount, "unparseable number omits the property, not the push")
	assert.Contains(t, skipped, "total_amount")
	assert.Contains(t, props, "Title", "the rest of the push proceeds")
}

func TestBuildPropertiesExplicitMappingWins(t *testing.T) {
	db := testDatabase(map[string]Property{
		"Title": {Name: "Title", Type: "title"},
		"Notes": {Name: "Notes", Type: "rich_text"},
	})
	fields := []models.ExtractedField{field("vendor_name", "Acme Corp")}

	props, _ := BuildProperties(db, fields, map[string]string{"vendor_name": "Notes"})

	notes, ok := props["Notes"].(*notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", notes.RichText[0].Text.Content)
}

func TestBuildPropertiesConflictSkipsLaterField(t *testing.T) {
	db := testDatabase(map[string]Property{
		"Title":  {Name: "Title", Type: "title"},
		"Amount": {Name: "Amount", Type: "number"},
	})
	fields := []models.ExtractedField{
		field("total_amount", "10"),
		field("amount_due", "20"),
	}

	props, skipped := BuildProperties(db, fields, nil)

	amount, ok := props["Amount"].(*notionapi.NumberProperty)
	require.True(t, ok)
	assert.Equal(t, float64(10), amount.Number, "first field claims the property")
	assert.Contains(t, skipped, "amount_due")
}

func TestBuildPropertiesSelectUsesLiveOptions(t *testing.T) {
	db := testDatabase(map[string]Property{
		"Title":  {Name: "Title", Type: "title"},
		"Status": {Name: "Status", Type: "select", Options: []Option{{Name: "Paid"}, {Name: "Pending"}}},
	})
	fields := []models.ExtractedField{field("payment_status", "Paid in Full")}

	props, _ := BuildProperties(db, fields, nil)

	sel, ok := props["Status"].(*notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "Paid", sel.Select.Name)
}

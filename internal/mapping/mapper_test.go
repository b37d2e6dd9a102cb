package mapping

import (
	"testing"

	"docupush-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func fields(keys ...string) []models.ExtractedField {
	out := make([]models.ExtractedField, len(keys))
	for i, k := range keys {
		out[i] = models.ExtractedField{FieldKey: k}
	}
	return out
}

func TestSuggestMappingsExactMatch(t *testing.T) {
	got := SuggestMappings(fields("vendor_name"), []string{"Vendor Name", "Date"})
	assert.Equal(t, map[string]string{"vendor_name": "Vendor Name"}, got)
}

func TestSuggestMappingsSubstringMatch(t *testing.T) {
	got := SuggestMappings(fields("invoice_number"), []string{"Invoice", "Amount"})
	assert.Equal(t, "Invoice", got["invoice_number"])

	// Containment works in both directions.
	got = SuggestMappings(fields("total"), []string{"Total Amount Due"})
	assert.Equal(t, "Total Amount Due", got["total"])
}

func TestSuggestMappingsKeywordClass(t *testing.T) {
	got := SuggestMappings(
		fields("amount_due", "receipt_date", "vendor_name"),
		[]string{"Total", "Date", "Title"},
	)
	assert.Equal(t, "Total", got["amount_due"])
	assert.Equal(t, "Date", got["receipt_date"])
	assert.Equal(t, "Title", got["vendor_name"])
}

func TestSuggestMappingsConflictAvoidance(t *testing.T) {
	// Both fields match "Amount" by keyword class; only the first may claim
	// it, the other stays unmapped.
	got := SuggestMappings(fields("total_amount", "amount_due"), []string{"Amount", "Date"})

	assert.Equal(t, "Amount", got["total_amount"])
	_, mapped := got["amount_due"]
	assert.False(t, mapped, "a claimed target must not be reused")
}

func TestSuggestMappingsBlankKeyClaimsNothing(t *testing.T) {
	// A key that normalizes to nothing would substring-match every target.
	got := SuggestMappings(fields("", "_", "total"), []string{"Amount", "Date"})
	assert.Equal(t, map[string]string{"total": "Amount"}, got)
}

func TestSuggestMappingsNoMatchLeftUnmapped(t *testing.T) {
	got := SuggestMappings(fields("po_box"), []string{"Amount", "Date"})
	assert.Empty(t, got)
}

func TestSuggestMappingsDeterministic(t *testing.T) {
	in := fields("total_amount", "amount_due", "receipt_date")
	targets := []string{"Amount", "Date"}

	first := SuggestMappings(in, targets)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SuggestMappings(in, targets))
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "total amount", Normalize("Total_Amount"))
	assert.Equal(t, "total amount", Normalize("  total-amount  "))
	assert.Equal(t, "a b c", Normalize("a   b\tc"))
}

func TestHumanizeKey(t *testing.T) {
	assert.Equal(t, "Total Amount", HumanizeKey("total_amount"))
	assert.Equal(t, "Vendor", HumanizeKey("vendor"))
	assert.Equal(t, "Receipt Date", HumanizeKey("receipt-date"))
}

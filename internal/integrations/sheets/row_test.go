package sheets

import (
	"testing"

	"docupush-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRowHumanizesKeys(t *testing.T) {
	fields := []models.ExtractedField{
		{FieldKey: "vendor_name", FieldValue: "Acme Corp"},
		{FieldKey: "total_amount", FieldValue: "$99.50"},
	}

	headers, values := BuildRow(fields, nil)

	assert.Equal(t, []interface{}{"Vendor Name", "Total Amount"}, headers)
	assert.Equal(t, []interface{}{"Acme Corp", "$99.50"}, values)
}

func TestBuildRowExplicitMappingWins(t *testing.T) {
	fields := []models.ExtractedField{
		{FieldKey: "vendor_name", FieldValue: "Acme Corp"},
		{FieldKey: "total_amount", FieldValue: "$99.50"},
	}
	explicit := map[string]string{"vendor_name": "Supplier"}

	headers, _ := BuildRow(fields, explicit)

	assert.Equal(t, []interface{}{"Supplier", "Total Amount"}, headers)
}

func TestBuildRowValuesStayRaw(t *testing.T) {
	// No coercion in the tabular path: "$99.50" is written verbatim.
	fields := []models.ExtractedField{{FieldKey: "total_amount", FieldValue: "$99.50"}}

	_, values := BuildRow(fields, nil)

	require.Len(t, values, 1)
	assert.Equal(t, "$99.50", values[0])
}

func TestPlanAppendHeaderOnFirstWriteOnly(t *testing.T) {
	headers := []interface{}{"Vendor Name", "Total Amount"}
	values := []interface{}{"Acme Corp", "$99.50"}

	got := PlanAppend(headers, values, true, true)
	assert.Equal(t, [][]interface{}{headers, values}, got, "first write to an empty sheet leads with headers")

	got = PlanAppend(headers, values, true, false)
	assert.Equal(t, [][]interface{}{values}, got, "a sheet with data never gets a second header row")
}

func TestPlanAppendHeadersDisabled(t *testing.T) {
	headers := []interface{}{"Vendor Name"}
	values := []interface{}{"Acme Corp"}

	got := PlanAppend(headers, values, false, true)
	assert.Equal(t, [][]interface{}{values}, got)

	got = PlanAppend(headers, values, false, false)
	assert.Equal(t, [][]interface{}{values}, got)
}

func TestResolveSheet(t *testing.T) {
	ss := &Spreadsheet{
		ID: "ss-1",
		Sheets: []Sheet{
			{ID: 0, Title: "Sheet1"},
			{ID: 1, Title: "Receipts"},
		},
	}

	sheet, err := resolveSheet(ss, "")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", sheet.Title, "defaults to the first sheet")

	sheet, err = resolveSheet(ss, "Receipts")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sheet.ID)

	_, err = resolveSheet(ss, "Missing")
	assert.Error(t, err)

	_, err = resolveSheet(&Spreadsheet{ID: "empty"}, "")
	assert.Error(t, err)
}

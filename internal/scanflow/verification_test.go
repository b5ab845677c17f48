package scanflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"paragoniusz-backend/internal/receipt"
)

func twoItemResult() *receipt.ScanResult {
	return &receipt.ScanResult{
		Expenses: []receipt.ExtractedExpense{
			{CategoryID: 1, CategoryName: "Groceries", Amount: "30.00", Items: []string{"milk", "bread"}},
			{CategoryID: 2, CategoryName: "Household", Amount: "20.70", Items: []string{"detergent"}},
		},
		TotalAmount: "50.70",
		Currency:    "PLN",
		ReceiptDate: "2024-01-15",
	}
}

func TestNewVerification(t *testing.T) {
	v, err := NewVerification(twoItemResult())
	require.NoError(t, err)

	assert.Equal(t, 2, v.Count())
	assert.Equal(t, "PLN", v.Currency())
	assert.Equal(t, "2024-01-15", v.ReceiptDate().Format("2006-01-02"))
	assert.False(t, v.Candidates()[0].Edited)
}

func TestNewVerification_Rejections(t *testing.T) {
	empty := &receipt.ScanResult{TotalAmount: "0.00", ReceiptDate: "2024-01-15"}
	_, err := NewVerification(empty)
	assert.Error(t, err)

	bad := twoItemResult()
	bad.Expenses[0].Amount = "-5.00"
	_, err = NewVerification(bad)
	assert.Error(t, err)

	badDate := twoItemResult()
	badDate.ReceiptDate = "15.01.2024"
	_, err = NewVerification(badDate)
	assert.Error(t, err)
}

func TestNewVerification_DefaultsCurrency(t *testing.T) {
	result := twoItemResult()
	result.Currency = ""
	v, err := NewVerification(result)
	require.NoError(t, err)
	assert.Equal(t, "PLN", v.Currency())
}

func TestVerification_RemoveKeepsListNonEmpty(t *testing.T) {
	v, err := NewVerification(twoItemResult())
	require.NoError(t, err)

	// Removing from a 2-item list always succeeds.
	require.NoError(t, v.Remove(0))
	assert.Equal(t, 1, v.Count())

	// Removing the last remaining item always fails.
	assert.ErrorIs(t, v.Remove(0), ErrLastItem)
	assert.Equal(t, 1, v.Count())

	assert.ErrorIs(t, v.Remove(5), ErrIndexOutOfRange)
}

func TestVerification_MarkEditedLeavesFieldsAlone(t *testing.T) {
	v, err := NewVerification(twoItemResult())
	require.NoError(t, err)

	before := v.Candidates()[1]
	require.NoError(t, v.MarkEdited(1))

	after := v.Candidates()[1]
	assert.True(t, after.Edited)
	assert.True(t, before.Amount.Equal(after.Amount))
	assert.Equal(t, before.CategoryID, after.CategoryID)
}

func TestVerification_CalculatedTotalTracksEdits(t *testing.T) {
	v, err := NewVerification(twoItemResult())
	require.NoError(t, err)

	assert.Equal(t, "50.70", v.CalculatedTotal().StringFixed(2))
	assert.False(t, v.HasDiscrepancy())

	require.NoError(t, v.UpdateAmount(0, decimal.RequireFromString("45.00")))
	assert.Equal(t, "65.70", v.CalculatedTotal().StringFixed(2))
	assert.True(t, v.HasDiscrepancy())
	assert.True(t, v.Candidates()[0].Edited)

	require.NoError(t, v.UpdateAmount(0, decimal.RequireFromString("30.00")))
	assert.False(t, v.HasDiscrepancy())
}

func TestVerification_UpdateAmountRejectsInvalid(t *testing.T) {
	v, err := NewVerification(twoItemResult())
	require.NoError(t, err)

	assert.Error(t, v.UpdateAmount(0, decimal.Zero))
	assert.Error(t, v.UpdateAmount(0, decimal.RequireFromString("10.123")))
}

func TestVerification_UpdateReceiptDate(t *testing.T) {
	v, err := NewVerification(twoItemResult())
	require.NoError(t, err)

	past := time.Now().AddDate(0, 0, -7)
	require.NoError(t, v.UpdateReceiptDate(past))
	assert.Equal(t, past.Format("2006-01-02"), v.ReceiptDate().Format("2006-01-02"))

	future := time.Now().AddDate(0, 0, 2)
	assert.ErrorIs(t, v.UpdateReceiptDate(future), ErrFutureDate)
}

func TestVerification_ValidateGate(t *testing.T) {
	v, err := NewVerification(twoItemResult())
	require.NoError(t, err)
	assert.NoError(t, v.Validate())

	require.NoError(t, v.UpdateCategory(0, 0, ""))
	assert.Error(t, v.Validate())
}

func TestVerification_BatchItems(t *testing.T) {
	v, err := NewVerification(twoItemResult())
	require.NoError(t, err)
	require.NoError(t, v.MarkEdited(1))

	items := v.BatchItems()
	require.Len(t, items, 2)
	for _, item := range items {
		assert.True(t, item.CreatedByAI)
		assert.Equal(t, "PLN", item.Currency)
		assert.Equal(t, "2024-01-15", item.ExpenseDate)
	}
	assert.False(t, items[0].WasAISuggestionEdited)
	assert.True(t, items[1].WasAISuggestionEdited)
	assert.Equal(t, "30.00", items[0].Amount)
	assert.Equal(t, "20.70", items[1].Amount)
}

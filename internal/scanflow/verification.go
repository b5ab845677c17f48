package scanflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"paragoniusz-backend/internal/receipt"
)

// discrepancyTolerance is how far the recalculated total may drift from the
// AI-reported total before the non-blocking warning shows.
var discrepancyTolerance = decimal.RequireFromString("0.01")

var (
	ErrLastItem        = errors.New("cannot remove the last remaining item")
	ErrFutureDate      = errors.New("receipt date cannot be in the future")
	ErrIndexOutOfRange = errors.New("item index out of range")
)

// Candidate is one AI-suggested expense line item pending user confirmation.
type Candidate struct {
	CategoryID   int64
	CategoryName string
	Amount       decimal.Decimal
	Items        []string
	Edited       bool
}

// Verification holds the editable expense list between extraction and the
// batch save. It enforces the at-least-one-item invariant and tracks which
// rows the user corrected.
type Verification struct {
	candidates    []Candidate
	receiptDate   time.Time
	currency      string
	originalTotal decimal.Decimal

	now func() time.Time
}

// NewVerification builds verification state from an extraction result.
func NewVerification(result *receipt.ScanResult) (*Verification, error) {
	if len(result.Expenses) == 0 {
		return nil, errors.New("extraction result contains no expenses")
	}

	candidates := make([]Candidate, 0, len(result.Expenses))
	for i, exp := range result.Expenses {
		amount, err := receipt.ParseAmount(exp.Amount)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", i, err)
		}
		candidates = append(candidates, Candidate{
			CategoryID:   exp.CategoryID,
			CategoryName: exp.CategoryName,
			Amount:       amount,
			Items:        exp.Items,
		})
	}

	receiptDate, err := time.Parse("2006-01-02", result.ReceiptDate)
	if err != nil {
		return nil, fmt.Errorf("invalid receipt date %q: %w", result.ReceiptDate, err)
	}

	originalTotal, err := decimal.NewFromString(result.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid total amount %q: %w", result.TotalAmount, err)
	}

	currency := result.Currency
	if currency == "" {
		currency = receipt.DefaultCurrency
	}

	return &Verification{
		candidates:    candidates,
		receiptDate:   receiptDate,
		currency:      currency,
		originalTotal: originalTotal,
		now:           time.Now,
	}, nil
}

func (v *Verification) Candidates() []Candidate { return v.candidates }
func (v *Verification) Count() int              { return len(v.candidates) }
func (v *Verification) Currency() string        { return v.currency }
func (v *Verification) ReceiptDate() time.Time  { return v.receiptDate }

// MarkEdited flags a row as user-corrected without altering its fields, so
// the UI can badge AI-suggested-but-edited rows.
func (v *Verification) MarkEdited(index int) error {
	if index < 0 || index >= len(v.candidates) {
		return ErrIndexOutOfRange
	}
	v.candidates[index].Edited = true
	return nil
}

// UpdateAmount replaces a row's amount and marks it edited.
func (v *Verification) UpdateAmount(index int, amount decimal.Decimal) error {
	if index < 0 || index >= len(v.candidates) {
		return ErrIndexOutOfRange
	}
	if err := receipt.ValidateAmount(amount); err != nil {
		return err
	}
	v.candidates[index].Amount = amount
	v.candidates[index].Edited = true
	return nil
}

// UpdateCategory replaces a row's category and marks it edited.
func (v *Verification) UpdateCategory(index int, categoryID int64, categoryName string) error {
	if index < 0 || index >= len(v.candidates) {
		return ErrIndexOutOfRange
	}
	v.candidates[index].CategoryID = categoryID
	v.candidates[index].CategoryName = categoryName
	v.candidates[index].Edited = true
	return nil
}

// Remove deletes a row. The list never goes empty: removing the last
// remaining item is rejected.
func (v *Verification) Remove(index int) error {
	if index < 0 || index >= len(v.candidates) {
		return ErrIndexOutOfRange
	}
	if len(v.candidates) <= 1 {
		return ErrLastItem
	}
	v.candidates = append(v.candidates[:index], v.candidates[index+1:]...)
	return nil
}

// UpdateReceiptDate sets the receipt-level date, rejecting future dates.
func (v *Verification) UpdateReceiptDate(date time.Time) error {
	if date.After(v.now()) {
		return ErrFutureDate
	}
	v.receiptDate = date
	return nil
}

// CalculatedTotal is the arithmetic sum of the current item amounts, not
// the original AI-reported total.
func (v *Verification) CalculatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range v.candidates {
		total = total.Add(c.Amount)
	}
	return total
}

// HasDiscrepancy reports whether the recalculated total drifted from the
// AI-reported total by more than 0.01 currency units. A discrepancy warns
// but never blocks saving.
func (v *Verification) HasDiscrepancy() bool {
	diff := v.CalculatedTotal().Sub(v.originalTotal).Abs()
	return diff.GreaterThan(discrepancyTolerance)
}

// Validate is the gate before save: every candidate must satisfy the same
// constraints as manual expense entry.
func (v *Verification) Validate() error {
	for i, c := range v.candidates {
		if c.CategoryID <= 0 {
			return fmt.Errorf("item %d: missing category", i)
		}
		if err := receipt.ValidateAmount(c.Amount); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// BatchItems builds the atomic batch-save request body from the current
// state.
func (v *Verification) BatchItems() []receipt.BatchItem {
	items := make([]receipt.BatchItem, len(v.candidates))
	for i, c := range v.candidates {
		items[i] = receipt.BatchItem{
			CategoryID:            c.CategoryID,
			Amount:                c.Amount.StringFixed(2),
			ExpenseDate:           v.receiptDate.Format("2006-01-02"),
			Currency:              v.currency,
			Description:           strings.Join(c.Items, ", "),
			CreatedByAI:           true,
			WasAISuggestionEdited: c.Edited,
		}
	}
	return items
}

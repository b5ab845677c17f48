package receipt

// DefaultCurrency is used when the extraction service reports none.
const DefaultCurrency = "PLN"

// ExtractedExpense is one AI-suggested line item as it crosses the wire.
type ExtractedExpense struct {
	CategoryID   int64    `json:"category_id"`
	CategoryName string   `json:"category_name,omitempty"`
	Amount       string   `json:"amount"`
	Items        []string `json:"items"`
}

// ScanResult is the successful response of the processing endpoint.
type ScanResult struct {
	Expenses         []ExtractedExpense `json:"expenses"`
	TotalAmount      string             `json:"total_amount"`
	Currency         string             `json:"currency"`
	ReceiptDate      string             `json:"receipt_date"`
	ProcessingTimeMS int64              `json:"processing_time_ms"`
}

// BatchItem is one expense in an atomic batch-save request.
type BatchItem struct {
	CategoryID            int64  `json:"category_id"`
	Amount                string `json:"amount"`
	ExpenseDate           string `json:"expense_date"`
	Currency              string `json:"currency"`
	Description           string `json:"description,omitempty"`
	CreatedByAI           bool   `json:"created_by_ai"`
	WasAISuggestionEdited bool   `json:"was_ai_suggestion_edited"`
}

// BatchRequest is the body of the batch-save endpoint. Either all items are
// created or none are; the server owns atomicity.
type BatchRequest struct {
	Expenses []BatchItem `json:"expenses"`
}

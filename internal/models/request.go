package models

type ProcessRequest struct {
	// FilePath is the storage path returned by the upload endpoint.
	FilePath string `json:"file_path" binding:"required"`
}

type CreateExpenseRequest struct {
	CategoryID            int64  `json:"category_id" binding:"required,min=1"`
	Amount                string `json:"amount" binding:"required,decimal_amount"`
	Currency              string `json:"currency,omitempty" binding:"omitempty,len=3"`
	ExpenseDate           string `json:"expense_date" binding:"required,datetime=2006-01-02"`
	Description           string `json:"description,omitempty" binding:"omitempty,max=500"`
	CreatedByAI           bool   `json:"created_by_ai"`
	WasAISuggestionEdited bool   `json:"was_ai_suggestion_edited"`
}

type BatchExpenseRequest struct {
	Expenses []CreateExpenseRequest `json:"expenses" binding:"required,min=1,dive"`
}

type ConsentRequest struct {
	AIConsent *bool `json:"ai_consent" binding:"required"`
}

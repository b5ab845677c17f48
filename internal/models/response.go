package models

import "time"

type UploadResponse struct {
	FilePath string `json:"file_path"`
	Size     int64  `json:"size"`
}

type ExpenseResponse struct {
	ID                    string    `json:"id"`
	CategoryID            int64     `json:"category_id"`
	Amount                string    `json:"amount"`
	Currency              string    `json:"currency"`
	ExpenseDate           string    `json:"expense_date"`
	Description           string    `json:"description,omitempty"`
	CreatedByAI           bool      `json:"created_by_ai"`
	WasAISuggestionEdited bool      `json:"was_ai_suggestion_edited"`
	CreatedAt             time.Time `json:"created_at"`
}

type BatchExpenseResponse struct {
	Data  []ExpenseResponse `json:"data"`
	Count int               `json:"count"`
}

type ExpenseListResponse struct {
	Expenses []ExpenseResponse `json:"expenses"`
}

type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CategoryListResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

type ProfileResponse struct {
	ID          string     `json:"id"`
	AIConsent   bool       `json:"ai_consent"`
	ConsentedAt *time.Time `json:"consented_at,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

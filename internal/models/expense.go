package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	CategoryID            int64
	Amount                decimal.Decimal
	Currency              string
	ExpenseDate           time.Time
	Description           string
	CreatedByAI           bool
	WasAISuggestionEdited bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Category struct {
	ID       int64
	Name     string
	IsActive bool
}

type Profile struct {
	ID          uuid.UUID
	AIConsent   bool
	ConsentedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

package supabase

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"paragoniusz-backend/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (d *DatabaseClient) GetProfile(userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := d.db.QueryRow(`
		SELECT id, ai_consent, consented_at, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, userID).Scan(
		&profile.ID, &profile.AIConsent, &profile.ConsentedAt,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// A row is created lazily on first access, with consent unset.
		return d.createProfile(userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

func (d *DatabaseClient) createProfile(userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := d.db.QueryRow(`
		INSERT INTO profiles (id, ai_consent)
		VALUES ($1, FALSE)
		ON CONFLICT (id) DO UPDATE SET updated_at = now()
		RETURNING id, ai_consent, consented_at, created_at, updated_at
	`, userID).Scan(
		&profile.ID, &profile.AIConsent, &profile.ConsentedAt,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return &profile, nil
}

func (d *DatabaseClient) UpdateConsent(userID uuid.UUID, consent bool) (*models.Profile, error) {
	var consentedAt interface{}
	if consent {
		consentedAt = time.Now().UTC()
	}

	var profile models.Profile
	err := d.db.QueryRow(`
		INSERT INTO profiles (id, ai_consent, consented_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET ai_consent = EXCLUDED.ai_consent,
		    consented_at = EXCLUDED.consented_at,
		    updated_at = now()
		RETURNING id, ai_consent, consented_at, created_at, updated_at
	`, userID, consent, consentedAt).Scan(
		&profile.ID, &profile.AIConsent, &profile.ConsentedAt,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update consent: %w", err)
	}

	return &profile, nil
}

func (d *DatabaseClient) ListCategories() ([]models.Category, error) {
	rows, err := d.db.Query(`
		SELECT id, name, is_active
		FROM categories
		WHERE is_active
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

func (d *DatabaseClient) CreateExpense(expense *models.Expense) (*models.Expense, error) {
	var created models.Expense
	err := d.db.QueryRow(`
		INSERT INTO expenses (user_id, category_id, amount, currency, expense_date, description, created_by_ai, was_ai_suggestion_edited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, user_id, category_id, amount, currency, expense_date, description, created_by_ai, was_ai_suggestion_edited, created_at, updated_at
	`, expense.UserID, expense.CategoryID, expense.Amount, expense.Currency,
		expense.ExpenseDate, expense.Description, expense.CreatedByAI, expense.WasAISuggestionEdited,
	).Scan(
		&created.ID, &created.UserID, &created.CategoryID, &created.Amount,
		&created.Currency, &created.ExpenseDate, &created.Description, &created.CreatedByAI,
		&created.WasAISuggestionEdited, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	return &created, nil
}

// CreateExpensesBatch inserts all expenses in a single transaction. Either
// every row is committed or none are.
func (d *DatabaseClient) CreateExpensesBatch(expenses []models.Expense) ([]models.Expense, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := make([]models.Expense, 0, len(expenses))
	for _, expense := range expenses {
		var row models.Expense
		err := tx.QueryRow(`
			INSERT INTO expenses (user_id, category_id, amount, currency, expense_date, description, created_by_ai, was_ai_suggestion_edited)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, user_id, category_id, amount, currency, expense_date, description, created_by_ai, was_ai_suggestion_edited, created_at, updated_at
		`, expense.UserID, expense.CategoryID, expense.Amount, expense.Currency,
			expense.ExpenseDate, expense.Description, expense.CreatedByAI, expense.WasAISuggestionEdited,
		).Scan(
			&row.ID, &row.UserID, &row.CategoryID, &row.Amount,
			&row.Currency, &row.ExpenseDate, &row.Description, &row.CreatedByAI,
			&row.WasAISuggestionEdited, &row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert expense: %w", err)
		}
		created = append(created, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

func (d *DatabaseClient) ListExpenses(userID uuid.UUID) ([]models.Expense, error) {
	rows, err := d.db.Query(`
		SELECT id, user_id, category_id, amount, currency, expense_date, description, created_by_ai, was_ai_suggestion_edited, created_at, updated_at
		FROM expenses
		WHERE user_id = $1
		ORDER BY expense_date DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var expense models.Expense
		err := rows.Scan(
			&expense.ID, &expense.UserID, &expense.CategoryID, &expense.Amount,
			&expense.Currency, &expense.ExpenseDate, &expense.Description, &expense.CreatedByAI,
			&expense.WasAISuggestionEdited, &expense.CreatedAt, &expense.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

func (d *DatabaseClient) DeleteExpense(expenseID, userID uuid.UUID) error {
	result, err := d.db.Exec(`
		DELETE FROM expenses
		WHERE id = $1 AND user_id = $2
	`, expenseID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paragoniusz-backend/internal/models"
	"paragoniusz-backend/internal/receipt"
)

// ExpenseStore is the persistence surface the expense endpoints use.
type ExpenseStore interface {
	CreateExpense(expense *models.Expense) (*models.Expense, error)
	CreateExpensesBatch(expenses []models.Expense) ([]models.Expense, error)
	ListExpenses(userID uuid.UUID) ([]models.Expense, error)
	DeleteExpense(expenseID, userID uuid.UUID) error
	ListCategories() ([]models.Category, error)
}

type ExpenseHandler struct {
	store ExpenseStore
}

func NewExpenseHandler(store ExpenseStore) *ExpenseHandler {
	return &ExpenseHandler{store: store}
}

// CreateBatch godoc
// @Summary     Save multiple expenses atomically
// @Description Creates every expense in the request within one transaction.
// @Description Either all records are created or none are.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.BatchExpenseRequest true "Expenses to create"
// @Success     201 {object} models.BatchExpenseResponse
// @Failure     400 {object} receipt.ErrorBody
// @Router      /expenses/batch [post]
func (h *ExpenseHandler) CreateBatch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.BatchExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid batch request: "+err.Error())
		return
	}

	expenses := make([]models.Expense, 0, len(req.Expenses))
	for i, item := range req.Expenses {
		expense, err := expenseFromRequest(userID, item)
		if err != nil {
			badRequest(c, fmt.Sprintf("expense %d: %s", i, err.Error()))
			return
		}
		expenses = append(expenses, *expense)
	}

	created, err := h.store.CreateExpensesBatch(expenses)
	if err != nil {
		respondError(c, err)
		return
	}

	response := models.BatchExpenseResponse{
		Data:  make([]models.ExpenseResponse, 0, len(created)),
		Count: len(created),
	}
	for _, expense := range created {
		response.Data = append(response.Data, expenseResponse(expense))
	}

	c.JSON(http.StatusCreated, response)
}

// Create godoc
// @Summary     Create a single expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateExpenseRequest true "Expense to create"
// @Success     201 {object} models.ExpenseResponse
// @Failure     400 {object} receipt.ErrorBody
// @Router      /expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid expense: "+err.Error())
		return
	}

	expense, err := expenseFromRequest(userID, req)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := h.store.CreateExpense(expense)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, expenseResponse(*created))
}

// List godoc
// @Summary     List the user's expenses
// @Tags        expenses
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ExpenseListResponse
// @Router      /expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	expenses, err := h.store.ListExpenses(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := models.ExpenseListResponse{Expenses: make([]models.ExpenseResponse, 0, len(expenses))}
	for _, expense := range expenses {
		response.Expenses = append(response.Expenses, expenseResponse(expense))
	}

	c.JSON(http.StatusOK, response)
}

// Delete godoc
// @Summary     Delete an expense
// @Tags        expenses
// @Produce     json
// @Security    Bearer
// @Param       expense_id path string true "Expense ID (UUID)"
// @Success     204
// @Failure     404 {object} receipt.ErrorBody
// @Router      /expenses/{expense_id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	expenseID, err := uuid.Parse(c.Param("expense_id"))
	if err != nil {
		badRequest(c, "invalid expense id")
		return
	}

	if err := h.store.DeleteExpense(expenseID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, receipt.ErrorBody{
				Err: receipt.APIError{Code: receipt.CodeValidationError, Message: "expense not found"},
			})
			return
		}
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListCategories godoc
// @Summary     List expense categories
// @Tags        categories
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.CategoryListResponse
// @Router      /categories [get]
func (h *ExpenseHandler) ListCategories(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	categories, err := h.store.ListCategories()
	if err != nil {
		respondError(c, err)
		return
	}

	response := models.CategoryListResponse{Categories: make([]models.CategoryResponse, 0, len(categories))}
	for _, category := range categories {
		response.Categories = append(response.Categories, models.CategoryResponse{
			ID:   category.ID,
			Name: category.Name,
		})
	}

	c.JSON(http.StatusOK, response)
}

func expenseFromRequest(userID uuid.UUID, req models.CreateExpenseRequest) (*models.Expense, error) {
	amount, err := receipt.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if err := receipt.ValidateAmount(amount); err != nil {
		return nil, err
	}

	expenseDate, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		return nil, fmt.Errorf("expense_date must be YYYY-MM-DD")
	}
	if expenseDate.After(time.Now()) {
		return nil, fmt.Errorf("expense_date cannot be in the future")
	}

	currency := req.Currency
	if currency == "" {
		currency = receipt.DefaultCurrency
	}

	return &models.Expense{
		UserID:                userID,
		CategoryID:            req.CategoryID,
		Amount:                amount,
		Currency:              currency,
		ExpenseDate:           expenseDate,
		Description:           req.Description,
		CreatedByAI:           req.CreatedByAI,
		WasAISuggestionEdited: req.WasAISuggestionEdited,
	}, nil
}

func expenseResponse(expense models.Expense) models.ExpenseResponse {
	return models.ExpenseResponse{
		ID:                    expense.ID.String(),
		CategoryID:            expense.CategoryID,
		Amount:                expense.Amount.StringFixed(2),
		Currency:              expense.Currency,
		ExpenseDate:           expense.ExpenseDate.Format("2006-01-02"),
		Description:           expense.Description,
		CreatedByAI:           expense.CreatedByAI,
		WasAISuggestionEdited: expense.WasAISuggestionEdited,
		CreatedAt:             expense.CreatedAt,
	}
}

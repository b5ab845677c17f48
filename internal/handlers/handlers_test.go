package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paragoniusz-backend/internal/middleware"
	"paragoniusz-backend/internal/models"
	"paragoniusz-backend/internal/receipt"
)

var testUserID = uuid.New()

// withUser stands in for the auth middleware in handler tests.
func withUser(c *gin.Context) {
	c.Set(middleware.UserIDKey, testUserID)
	c.Next()
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	models.RegisterValidators()
	return gin.New()
}

type fakeReceiptStorage struct {
	path    string
	err     error
	gotMime string
	gotExt  string
	gotData []byte
}

func (f *fakeReceiptStorage) UploadReceipt(userID uuid.UUID, data []byte, contentType, ext string) (string, error) {
	f.gotData = data
	f.gotMime = contentType
	f.gotExt = ext
	if f.err != nil {
		return "", f.err
	}
	if f.path == "" {
		f.path = receipt.NewStoragePath(userID, ext)
	}
	return f.path, nil
}

func multipartImage(t *testing.T, field, filename, mimeType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestUpload_Success(t *testing.T) {
	storage := &fakeReceiptStorage{}
	router := newRouter()
	router.POST("/api/v1/receipts/upload", withUser, NewUploadHandler(storage).Upload)

	body, contentType := multipartImage(t, "image", "receipt.jpg", "image/jpeg", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, receipt.ValidStoragePath(resp.FilePath))
	assert.Equal(t, int64(len("jpeg-bytes")), resp.Size)
	assert.Equal(t, "image/jpeg", storage.gotMime)
	assert.Equal(t, "jpg", storage.gotExt)
}

func TestUpload_NoFile(t *testing.T) {
	router := newRouter()
	router.POST("/api/v1/receipts/upload", withUser, NewUploadHandler(&fakeReceiptStorage{}).Upload)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/upload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	router := newRouter()
	router.POST("/api/v1/receipts/upload", withUser, NewUploadHandler(&fakeReceiptStorage{}).Upload)

	body, contentType := multipartImage(t, "image", "notes.pdf", "application/pdf", []byte("%PDF-"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeProcessor struct {
	result  *receipt.ScanResult
	err     error
	gotPath string
}

func (f *fakeProcessor) ProcessReceipt(ctx context.Context, userID uuid.UUID, filePath string) (*receipt.ScanResult, error) {
	f.gotPath = filePath
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestProcess_Success(t *testing.T) {
	processor := &fakeProcessor{result: &receipt.ScanResult{
		Expenses: []receipt.ExtractedExpense{
			{CategoryID: 1, CategoryName: "Żywność", Amount: "30.00", Items: []string{"mleko"}},
		},
		TotalAmount:      "30.00",
		Currency:         "PLN",
		ReceiptDate:      "2024-01-15",
		ProcessingTimeMS: 1200,
	}}
	router := newRouter()
	router.POST("/api/v1/receipts/process", withUser, NewProcessHandler(processor).Process)

	path := receipt.NewStoragePath(testUserID, "jpg")
	payload, _ := json.Marshal(models.ProcessRequest{FilePath: path})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/process", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, path, processor.gotPath)

	var result receipt.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Expenses, 1)
	assert.Equal(t, "PLN", result.Currency)
}

func TestProcess_MissingFilePath(t *testing.T) {
	router := newRouter()
	router.POST("/api/v1/receipts/process", withUser, NewProcessHandler(&fakeProcessor{}).Process)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/process", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcess_ErrorCodeMapsToStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{receipt.CodeProcessingTimeout, http.StatusRequestTimeout},
		{receipt.CodeExtractionFailed, http.StatusUnprocessableEntity},
		{receipt.CodeAIConsentRequired, http.StatusForbidden},
		{receipt.CodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{receipt.CodeRateLimited, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			processor := &fakeProcessor{err: &receipt.APIError{Code: tt.code, Message: "boom"}}
			router := newRouter()
			router.POST("/api/v1/receipts/process", withUser, NewProcessHandler(processor).Process)

			payload, _ := json.Marshal(models.ProcessRequest{FilePath: receipt.NewStoragePath(testUserID, "jpg")})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/process", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			var envelope receipt.ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			assert.Equal(t, tt.code, envelope.Err.Code)
		})
	}
}

type fakeExpenseStore struct {
	created    []models.Expense
	batchErr   error
	deleteErr  error
	categories []models.Category
}

func (f *fakeExpenseStore) CreateExpense(expense *models.Expense) (*models.Expense, error) {
	stamped := *expense
	stamped.ID = uuid.New()
	stamped.CreatedAt = time.Now()
	f.created = append(f.created, stamped)
	return &stamped, nil
}

func (f *fakeExpenseStore) CreateExpensesBatch(expenses []models.Expense) ([]models.Expense, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	created := make([]models.Expense, 0, len(expenses))
	for _, expense := range expenses {
		stamped := expense
		stamped.ID = uuid.New()
		stamped.CreatedAt = time.Now()
		created = append(created, stamped)
	}
	f.created = append(f.created, created...)
	return created, nil
}

func (f *fakeExpenseStore) ListExpenses(userID uuid.UUID) ([]models.Expense, error) {
	return f.created, nil
}

func (f *fakeExpenseStore) DeleteExpense(expenseID, userID uuid.UUID) error {
	return f.deleteErr
}

func (f *fakeExpenseStore) ListCategories() ([]models.Category, error) {
	return f.categories, nil
}

func batchPayload(t *testing.T, items ...models.CreateExpenseRequest) *bytes.Reader {
	t.Helper()
	payload, err := json.Marshal(models.BatchExpenseRequest{Expenses: items})
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

func validItem() models.CreateExpenseRequest {
	return models.CreateExpenseRequest{
		CategoryID:  1,
		Amount:      "30.00",
		ExpenseDate: "2024-01-15",
		CreatedByAI: true,
	}
}

func TestCreateBatch_Success(t *testing.T) {
	store := &fakeExpenseStore{}
	router := newRouter()
	router.POST("/api/v1/expenses/batch", withUser, NewExpenseHandler(store).CreateBatch)

	second := validItem()
	second.CategoryID = 2
	second.Amount = "20.70"
	second.WasAISuggestionEdited = true

	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses/batch", batchPayload(t, validItem(), second))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.BatchExpenseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, "30.00", resp.Data[0].Amount)
	assert.Equal(t, "PLN", resp.Data[0].Currency)
	assert.True(t, resp.Data[1].WasAISuggestionEdited)

	require.Len(t, store.created, 2)
	assert.Equal(t, testUserID, store.created[0].UserID)
	assert.True(t, store.created[0].Amount.Equal(decimal.RequireFromString("30.00")))
}

func TestCreateBatch_EmptyRejected(t *testing.T) {
	router := newRouter()
	router.POST("/api/v1/expenses/batch", withUser, NewExpenseHandler(&fakeExpenseStore{}).CreateBatch)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses/batch", batchPayload(t))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBatch_InvalidAmountRejectsWholeBatch(t *testing.T) {
	store := &fakeExpenseStore{}
	router := newRouter()
	router.POST("/api/v1/expenses/batch", withUser, NewExpenseHandler(store).CreateBatch)

	bad := validItem()
	bad.Amount = "-5.00"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses/batch", batchPayload(t, validItem(), bad))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.created, "no expense may be created when one item is invalid")
}

func TestCreateBatch_FutureDateRejected(t *testing.T) {
	router := newRouter()
	router.POST("/api/v1/expenses/batch", withUser, NewExpenseHandler(&fakeExpenseStore{}).CreateBatch)

	item := validItem()
	item.ExpenseDate = time.Now().AddDate(0, 0, 2).Format("2006-01-02")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses/batch", batchPayload(t, item))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteExpense_NotFound(t *testing.T) {
	store := &fakeExpenseStore{deleteErr: sql.ErrNoRows}
	router := newRouter()
	router.DELETE("/api/v1/expenses/:expense_id", withUser, NewExpenseHandler(store).Delete)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/expenses/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCategories(t *testing.T) {
	store := &fakeExpenseStore{categories: []models.Category{
		{ID: 1, Name: "Żywność"},
		{ID: 2, Name: "Chemia domowa"},
	}}
	router := newRouter()
	router.GET("/api/v1/categories", withUser, NewExpenseHandler(store).ListCategories)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.CategoryListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, "Żywność", resp.Categories[0].Name)
}

type fakeProfileStore struct {
	profile *models.Profile
	err     error
}

func (f *fakeProfileStore) GetProfile(userID uuid.UUID) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeProfileStore) UpdateConsent(userID uuid.UUID, consent bool) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.profile.AIConsent = consent
	if consent {
		f.profile.ConsentedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return f.profile, nil
}

func TestProfileMe(t *testing.T) {
	store := &fakeProfileStore{profile: &models.Profile{ID: testUserID, AIConsent: false}}
	router := newRouter()
	router.GET("/api/v1/profiles/me", withUser, NewProfileHandler(store).Me)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testUserID.String(), resp.ID)
	assert.False(t, resp.AIConsent)
	assert.Nil(t, resp.ConsentedAt)
}

func TestUpdateConsent(t *testing.T) {
	store := &fakeProfileStore{profile: &models.Profile{ID: testUserID}}
	router := newRouter()
	router.PATCH("/api/v1/profiles/me/consent", withUser, NewProfileHandler(store).UpdateConsent)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/profiles/me/consent", bytes.NewReader([]byte(`{"ai_consent":true}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.AIConsent)
	require.NotNil(t, resp.ConsentedAt)
}

func TestUpdateConsent_MissingBody(t *testing.T) {
	store := &fakeProfileStore{profile: &models.Profile{ID: testUserID}}
	router := newRouter()
	router.PATCH("/api/v1/profiles/me/consent", withUser, NewProfileHandler(store).UpdateConsent)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/profiles/me/consent", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newRouter()
	router.GET("/health", HealthHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

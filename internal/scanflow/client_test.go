package scanflow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"paragoniusz-backend/internal/receipt"
)

func TestClient_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/receipts/upload", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "receipt.jpg", header.Filename)
		assert.Equal(t, []byte("image-bytes"), data)

		json.NewEncoder(w).Encode(map[string]string{
			"file_path": "receipts/0d2a0c90-9f3e-4d5e-9d6e-1a2b3c4d5e6f/5e4d3c2b-1a09-48f7-a6b5-c4d3e2f1a0b9.jpg",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	path, err := client.Upload(context.Background(), "receipt.jpg", []byte("image-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, receipt.ValidStoragePath(path))
}

func TestClient_ProcessSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/receipts/process", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req["file_path"])

		json.NewEncoder(w).Encode(receipt.ScanResult{
			Expenses: []receipt.ExtractedExpense{
				{CategoryID: 1, Amount: "30.00", Items: []string{"milk"}},
			},
			TotalAmount:      "30.00",
			Currency:         "PLN",
			ReceiptDate:      "2024-01-15",
			ProcessingTimeMS: 1200,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	result, err := client.Process(context.Background(), "receipts/a/b.jpg")
	require.NoError(t, err)
	assert.Len(t, result.Expenses, 1)
	assert.Equal(t, int64(1200), result.ProcessingTimeMS)
}

func TestClient_ProcessTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
		json.NewEncoder(w).Encode(receipt.ErrorBody{Err: receipt.APIError{
			Code:    receipt.CodeProcessingTimeout,
			Message: "processing took too long",
		}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	_, err := client.Process(context.Background(), "receipts/a/b.jpg")
	require.Error(t, err)

	apiErr := receipt.AsAPIError(err)
	assert.Equal(t, receipt.CodeProcessingTimeout, apiErr.Code)
	assert.Equal(t, "processing took too long", apiErr.Message)
}

func TestClient_UntypedErrorBodyGetsFallbackCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	_, err := client.Process(context.Background(), "receipts/a/b.jpg")
	require.Error(t, err)
	assert.Equal(t, receipt.CodeAIServiceError, receipt.AsAPIError(err).Code)
}

func TestClient_UnauthorizedStatusMapsToUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing token", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	_, err := client.HasAIConsent(context.Background())
	require.Error(t, err)
	assert.Equal(t, receipt.CodeUnauthorized, receipt.AsAPIError(err).Code)
}

func TestClient_SaveBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/expenses/batch", r.URL.Path)
		var req receipt.BatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Expenses, 2)
		assert.True(t, req.Expenses[0].CreatedByAI)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"id": "1"}, {"id": "2"}},
			"count": 2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	count, err := client.SaveBatch(context.Background(), receipt.BatchRequest{Expenses: []receipt.BatchItem{
		{CategoryID: 1, Amount: "30.00", ExpenseDate: "2024-01-15", Currency: "PLN", CreatedByAI: true},
		{CategoryID: 2, Amount: "20.70", ExpenseDate: "2024-01-15", Currency: "PLN", CreatedByAI: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paragoniusz-backend/internal/models"
	"paragoniusz-backend/internal/receipt"
)

// ReceiptProcessor runs the extraction pipeline for an uploaded image.
type ReceiptProcessor interface {
	ProcessReceipt(ctx context.Context, userID uuid.UUID, filePath string) (*receipt.ScanResult, error)
}

type ProcessHandler struct {
	processor ReceiptProcessor
}

func NewProcessHandler(processor ReceiptProcessor) *ProcessHandler {
	return &ProcessHandler{processor: processor}
}

// Process godoc
// @Summary     Extract expenses from an uploaded receipt
// @Description Runs AI extraction against a previously uploaded image and
// @Description returns category-grouped expense candidates. The stored image
// @Description is removed once processing finishes.
// @Tags        receipts
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.ProcessRequest true "Storage path from the upload endpoint"
// @Success     200 {object} receipt.ScanResult
// @Failure     400 {object} receipt.ErrorBody
// @Failure     403 {object} receipt.ErrorBody
// @Failure     408 {object} receipt.ErrorBody
// @Failure     422 {object} receipt.ErrorBody
// @Router      /receipts/process [post]
func (h *ProcessHandler) Process(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "file_path is required")
		return
	}

	result, err := h.processor.ProcessReceipt(c.Request.Context(), userID, req.FilePath)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

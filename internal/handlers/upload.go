package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paragoniusz-backend/internal/models"
	"paragoniusz-backend/internal/scanflow"
)

// ReceiptStorage stores uploaded receipt images.
type ReceiptStorage interface {
	UploadReceipt(userID uuid.UUID, data []byte, contentType, ext string) (string, error)
}

type UploadHandler struct {
	storage ReceiptStorage
}

func NewUploadHandler(storage ReceiptStorage) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// Upload godoc
// @Summary     Upload a receipt image
// @Description Accepts a single receipt photo and stores it under the
// @Description authenticated user's prefix. The returned file_path is the
// @Description input for the processing endpoint.
// @Tags        receipts
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       image formData file true "Receipt image (JPEG, PNG or HEIC, max 10 MB)"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} receipt.ErrorBody
// @Failure     401 {object} receipt.ErrorBody
// @Router      /receipts/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "no image file provided")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if err := scanflow.ValidateFile(fileHeader.Filename, mimeType, fileHeader.Size); err != nil {
		badRequest(c, err.Error())
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		badRequest(c, "failed to read uploaded file")
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")
	if ext == "" {
		ext = "jpg"
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	storagePath, err := h.storage.UploadReceipt(userID, data, mimeType, ext)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{
		FilePath: storagePath,
		Size:     int64(len(data)),
	})
}

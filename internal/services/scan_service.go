package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"paragoniusz-backend/internal/models"
	"paragoniusz-backend/internal/openrouter"
	"paragoniusz-backend/internal/receipt"
)

const maxReceiptBytes = 10 << 20

// Storage is the subset of the storage client the scan pipeline needs.
type Storage interface {
	DownloadFile(storagePath string) ([]byte, error)
	DeleteFile(storagePath string) error
}

// ProfileStore resolves the user's AI processing consent.
type ProfileStore interface {
	GetProfile(userID uuid.UUID) (*models.Profile, error)
	ListCategories() ([]models.Category, error)
}

// Extractor turns a receipt image into structured expense data.
type Extractor interface {
	ExtractExpenses(ctx context.Context, imageData []byte, mimeType string, categories []openrouter.Category) (*openrouter.Extraction, error)
}

type ScanServiceConfig struct {
	Enabled    bool
	Timeout    time.Duration
	RateLimit  int
	RateWindow time.Duration
}

type ScanService struct {
	storage   Storage
	profiles  ProfileStore
	extractor Extractor
	cfg       ScanServiceConfig

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

func NewScanService(storage Storage, profiles ProfileStore, extractor Extractor, cfg ScanServiceConfig) *ScanService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Hour
	}
	return &ScanService{
		storage:   storage,
		profiles:  profiles,
		extractor: extractor,
		cfg:       cfg,
		limiters:  make(map[uuid.UUID]*rate.Limiter),
	}
}

// ProcessReceipt runs the extraction pipeline for a previously uploaded
// receipt image. The stored image is deleted once processing finishes,
// whether it succeeded or not.
func (s *ScanService) ProcessReceipt(ctx context.Context, userID uuid.UUID, filePath string) (*receipt.ScanResult, error) {
	if !s.cfg.Enabled {
		return nil, &receipt.APIError{
			Code:    receipt.CodeAIServiceError,
			Message: "receipt scanning is currently disabled",
		}
	}

	if !receipt.ValidStoragePath(filePath) {
		return nil, &receipt.APIError{
			Code:    receipt.CodeValidationError,
			Message: "file_path does not match the expected storage layout",
		}
	}
	owner, ok := receipt.PathUserID(filePath)
	if !ok || owner != userID {
		return nil, &receipt.APIError{
			Code:    receipt.CodeValidationError,
			Message: "file_path does not belong to the authenticated user",
		}
	}

	if !s.limiter(userID).Allow() {
		return nil, &receipt.APIError{
			Code:    receipt.CodeRateLimited,
			Message: "too many scan requests, try again later",
		}
	}

	profile, err := s.profiles.GetProfile(userID)
	if err != nil {
		return nil, &receipt.APIError{
			Code:    receipt.CodeAIServiceError,
			Message: "failed to load user profile",
		}
	}
	if !profile.AIConsent {
		return nil, &receipt.APIError{
			Code:    receipt.CodeAIConsentRequired,
			Message: "AI processing consent has not been granted",
		}
	}

	imageData, err := s.storage.DownloadFile(filePath)
	if err != nil {
		return nil, &receipt.APIError{
			Code:    receipt.CodeValidationError,
			Message: "uploaded file could not be read",
		}
	}
	// The image is single use. Remove it regardless of the outcome so
	// receipts never linger in storage.
	defer func() {
		if err := s.storage.DeleteFile(filePath); err != nil {
			slog.Warn("failed to delete processed receipt", "path", filePath, "error", err)
		}
	}()

	if int64(len(imageData)) > maxReceiptBytes {
		return nil, &receipt.APIError{
			Code:    receipt.CodePayloadTooLarge,
			Message: "receipt image exceeds the 10 MB size limit",
		}
	}

	categories, err := s.profiles.ListCategories()
	if err != nil {
		return nil, &receipt.APIError{
			Code:    receipt.CodeAIServiceError,
			Message: "failed to load expense categories",
		}
	}
	known := make(map[int64]string, len(categories))
	promptCategories := make([]openrouter.Category, 0, len(categories))
	for _, c := range categories {
		known[c.ID] = c.Name
		promptCategories = append(promptCategories, openrouter.Category{ID: c.ID, Name: c.Name})
	}

	started := time.Now()
	extractCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	extraction, err := s.extractor.ExtractExpenses(extractCtx, imageData, mimeFromPath(filePath), promptCategories)
	if err != nil {
		return nil, mapExtractionError(err)
	}

	result := &receipt.ScanResult{
		Currency:         extraction.Currency,
		ReceiptDate:      extraction.ReceiptDate,
		TotalAmount:      extraction.TotalAmount.String(),
		ProcessingTimeMS: time.Since(started).Milliseconds(),
	}
	for _, item := range extraction.Expenses {
		name, ok := known[item.CategoryID]
		if !ok {
			// The model occasionally invents category ids. Skip those
			// entries rather than failing the whole scan.
			slog.Warn("extraction returned unknown category", "category_id", item.CategoryID)
			continue
		}
		if _, err := receipt.ParseAmount(item.Amount.String()); err != nil {
			slog.Warn("extraction returned invalid amount", "amount", item.Amount.String())
			continue
		}
		result.Expenses = append(result.Expenses, receipt.ExtractedExpense{
			CategoryID:   item.CategoryID,
			CategoryName: name,
			Amount:       item.Amount.String(),
			Items:        item.Items,
		})
	}
	if len(result.Expenses) == 0 {
		return nil, &receipt.APIError{
			Code:    receipt.CodeExtractionFailed,
			Message: "no expenses could be extracted from the receipt",
		}
	}

	return result, nil
}

func (s *ScanService) limiter(userID uuid.UUID) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[userID]
	if !ok {
		interval := s.cfg.RateWindow / time.Duration(s.cfg.RateLimit)
		limiter = rate.NewLimiter(rate.Every(interval), s.cfg.RateLimit)
		s.limiters[userID] = limiter
	}
	return limiter
}

func mapExtractionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &receipt.APIError{
			Code:    receipt.CodeProcessingTimeout,
			Message: "receipt processing took too long",
		}
	}
	if errors.Is(err, openrouter.ErrUnparsable) {
		return &receipt.APIError{
			Code:    receipt.CodeExtractionFailed,
			Message: "the receipt could not be read",
		}
	}
	var statusErr *openrouter.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusRequestEntityTooLarge {
		return &receipt.APIError{
			Code:    receipt.CodePayloadTooLarge,
			Message: "receipt image was rejected as too large",
		}
	}
	return &receipt.APIError{
		Code:    receipt.CodeAIServiceError,
		Message: "receipt processing failed",
	}
}

func mimeFromPath(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}

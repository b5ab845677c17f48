package receipt

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the receipt processing pipeline. The client maps
// each code to a fixed UI configuration instead of branching per call site.
const (
	CodeProcessingTimeout = "PROCESSING_TIMEOUT"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeValidationError   = "VALIDATION_ERROR"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeAIConsentRequired = "AI_CONSENT_REQUIRED"
	CodeAIServiceError    = "AI_SERVICE_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	// CodeRateLimited has no dedicated UI entry; clients render it through
	// the default configuration.
	CodeRateLimited = "RATE_LIMITED"
)

// APIError is the typed error body crossing the processing boundary,
// serialized as { "error": { "code", "message", "details?" } }.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// ErrorBody is the wire envelope for an APIError.
type ErrorBody struct {
	Err APIError `json:"error"`
}

// AsAPIError extracts a typed APIError from err. Anything untyped becomes an
// AI_SERVICE_ERROR so the caller always has a code to look up.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Code: CodeAIServiceError, Message: err.Error()}
}

// HTTPStatus maps an error code to the status the processing endpoint
// responds with.
func HTTPStatus(code string) int {
	switch code {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeAIConsentRequired:
		return http.StatusForbidden
	case CodeProcessingTimeout:
		return http.StatusRequestTimeout
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeExtractionFailed:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorConfig is the fixed UI tuple shown for an error code: which icon,
// title and description to render and which of the retry / add-manually /
// cancel actions are offered.
type ErrorConfig struct {
	Icon           string
	Title          string
	Description    string
	CanRetry       bool
	CanAddManually bool
	CanCancel      bool
}

var errorConfigs = map[string]ErrorConfig{
	CodeProcessingTimeout: {
		Icon:           "clock",
		Title:          "Processing took too long",
		Description:    "The receipt could not be analyzed within 20 seconds. Try again or add the expenses manually.",
		CanRetry:       true,
		CanAddManually: true,
		CanCancel:      true,
	},
	CodeExtractionFailed: {
		Icon:           "file-x",
		Title:          "Could not read the receipt",
		Description:    "No expenses could be extracted from this image. Try a sharper photo or add the expenses manually.",
		CanRetry:       true,
		CanAddManually: true,
		CanCancel:      true,
	},
	CodeValidationError: {
		Icon:           "alert-triangle",
		Title:          "Invalid request",
		Description:    "The uploaded file reference was rejected. Start over with a new photo.",
		CanRetry:       true,
		CanAddManually: true,
		CanCancel:      true,
	},
	CodePayloadTooLarge: {
		Icon:           "image-off",
		Title:          "Image too large",
		Description:    "The image exceeds the processing size limit. Retake the photo at a lower resolution.",
		CanRetry:       true,
		CanAddManually: false,
		CanCancel:      true,
	},
	CodeAIConsentRequired: {
		Icon:           "shield",
		Title:          "AI processing consent required",
		Description:    "Receipt images are sent to an external AI service. Grant consent in your profile to use scanning.",
		CanRetry:       false,
		CanAddManually: true,
		CanCancel:      true,
	},
	CodeAIServiceError: {
		Icon:           "server-crash",
		Title:          "AI service unavailable",
		Description:    "The extraction service returned an error. Try again in a moment.",
		CanRetry:       true,
		CanAddManually: true,
		CanCancel:      true,
	},
	CodeUnauthorized: {
		Icon:           "lock",
		Title:          "Session expired",
		Description:    "Your session is no longer valid. Sign in again to continue.",
		CanRetry:       false,
		CanAddManually: false,
		CanCancel:      true,
	},
}

// defaultErrorConfig covers unrecognized codes. It still offers retry and
// manual entry so the user is never left stuck.
var defaultErrorConfig = ErrorConfig{
	Icon:           "alert-circle",
	Title:          "Something went wrong",
	Description:    "An unexpected error occurred while processing the receipt.",
	CanRetry:       true,
	CanAddManually: true,
	CanCancel:      true,
}

// ConfigFor returns the UI configuration for an error code, falling back to
// the generic entry for unknown codes.
func ConfigFor(code string) ErrorConfig {
	if cfg, ok := errorConfigs[code]; ok {
		return cfg
	}
	return defaultErrorConfig
}

package scanflow

import (
	"errors"
	"path/filepath"
	"strings"
)

// MaxFileSize is the upload size bound checked before any network call.
const MaxFileSize = 10 << 20

// Typed rejection reasons surfaced as field-level messages. They never
// advance the flow.
var (
	ErrNoFile          = errors.New("no file selected")
	ErrEmptyFile       = errors.New("selected file is empty")
	ErrFileTooLarge    = errors.New("file exceeds the 10 MB size limit")
	ErrUnsupportedType = errors.New("unsupported file type: use a JPEG, PNG or HEIC image")
)

var acceptedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/heic": true,
}

// Extension fallback: some mobile browsers omit or misreport the MIME type
// for HEIC, so a recognized extension is enough.
var acceptedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"heic": true,
}

// PendingUpload is a user-selected file that passed validation but has not
// been sent yet.
type PendingUpload struct {
	Filename string
	MIMEType string
	Data     []byte
}

// ValidateFile checks a candidate file before upload. Checks run in order:
// presence, non-zero size, size bound, type acceptance (MIME type or
// filename extension).
func ValidateFile(filename, mimeType string, size int64) error {
	if filename == "" {
		return ErrNoFile
	}
	if size == 0 {
		return ErrEmptyFile
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	if acceptedMIMETypes[strings.ToLower(strings.TrimSpace(mimeType))] {
		return nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if acceptedExtensions[ext] {
		return nil
	}
	return ErrUnsupportedType
}

package scanflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paragoniusz-backend/internal/receipt"
)

// Step is the scan flow's current position. The flow is a closed state
// machine: consent → upload → processing → verification → saving → complete,
// with error reachable from upload, processing and saving. Flow state is
// never persisted; a fresh Flow always starts at upload (or consent).
type Step int

const (
	StepConsent Step = iota
	StepUpload
	StepProcessing
	StepVerification
	StepSaving
	StepComplete
	StepError
	StepCancelled
)

func (s Step) String() string {
	switch s {
	case StepConsent:
		return "consent"
	case StepUpload:
		return "upload"
	case StepProcessing:
		return "processing"
	case StepVerification:
		return "verification"
	case StepSaving:
		return "saving"
	case StepComplete:
		return "complete"
	case StepError:
		return "error"
	case StepCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// API is the backend surface the flow drives. *Client satisfies it.
type API interface {
	Upload(ctx context.Context, filename string, data []byte, mimeType string) (string, error)
	Process(ctx context.Context, filePath string) (*receipt.ScanResult, error)
	SaveBatch(ctx context.Context, batch receipt.BatchRequest) (int, error)
	HasAIConsent(ctx context.Context) (bool, error)
	GrantAIConsent(ctx context.Context) error
}

// Config carries the feature flag and timing knobs, injected at
// construction rather than read from ambient state.
type Config struct {
	// AIScanEnabled is the environment-driven on/off switch for the whole
	// scanning feature.
	AIScanEnabled bool
	WarningAfter  time.Duration
	TimeoutAfter  time.Duration
	// RedirectDelay is how long the complete screen shows before the caller
	// navigates away.
	RedirectDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.WarningAfter <= 0 {
		c.WarningAfter = DefaultWarningAfter
	}
	if c.TimeoutAfter <= 0 {
		c.TimeoutAfter = DefaultTimeoutAfter
	}
	if c.RedirectDelay <= 0 {
		c.RedirectDelay = 1500 * time.Millisecond
	}
	return c
}

// ErrScanDisabled is returned when the flow is constructed with the AI
// feature switched off.
var ErrScanDisabled = errors.New("receipt scanning is disabled")

// Flow sequences the scan pipeline and surfaces typed errors to the UI. It
// is driven by a single caller; each step performs at most one in-flight
// request.
type Flow struct {
	api API
	cfg Config

	step         Step
	lastErr      *receipt.APIError
	verification *Verification
	timer        *ProcessingTimer
}

// NewFlow checks consent once via a profile lookup and positions the flow at
// consent or upload accordingly.
func NewFlow(ctx context.Context, api API, cfg Config) (*Flow, error) {
	if !cfg.AIScanEnabled {
		return nil, ErrScanDisabled
	}
	consent, err := api.HasAIConsent(ctx)
	if err != nil {
		return nil, fmt.Errorf("consent lookup failed: %w", err)
	}
	f := &Flow{api: api, cfg: cfg.withDefaults(), step: StepUpload}
	if !consent {
		f.step = StepConsent
	}
	return f, nil
}

func (f *Flow) Step() Step                   { return f.step }
func (f *Flow) Err() *receipt.APIError       { return f.lastErr }
func (f *Flow) Verification() *Verification  { return f.verification }
func (f *Flow) RedirectDelay() time.Duration { return f.cfg.RedirectDelay }

// ErrActions returns the UI configuration for the current error.
func (f *Flow) ErrActions() receipt.ErrorConfig {
	if f.lastErr == nil {
		return receipt.ConfigFor("")
	}
	return receipt.ConfigFor(f.lastErr.Code)
}

// ProcessingWarned reports whether the taking-longer-than-usual warning has
// fired for the in-flight extraction.
func (f *Flow) ProcessingWarned() bool {
	return f.timer != nil && f.timer.Warned()
}

// ProcessingElapsed is the wall-clock time the extraction has been running.
func (f *Flow) ProcessingElapsed() time.Duration {
	if f.timer == nil {
		return 0
	}
	return f.timer.Elapsed()
}

// GrantConsent persists AI-processing consent and advances to upload.
func (f *Flow) GrantConsent(ctx context.Context) error {
	if f.step != StepConsent {
		return fmt.Errorf("cannot grant consent from step %s", f.step)
	}
	if err := f.api.GrantAIConsent(ctx); err != nil {
		return err
	}
	f.step = StepUpload
	return nil
}

// Submit validates, optionally compresses, uploads and processes a selected
// file. Validation failures resolve locally and leave the flow at upload;
// upload and processing failures move it to error.
func (f *Flow) Submit(ctx context.Context, upload PendingUpload) error {
	if f.step != StepUpload {
		return fmt.Errorf("cannot submit from step %s", f.step)
	}
	if err := ValidateFile(upload.Filename, upload.MIMEType, int64(len(upload.Data))); err != nil {
		return err
	}

	data, mimeType := Compress(upload.Data, upload.MIMEType)
	filename := upload.Filename
	if mimeType == "image/jpeg" {
		filename = jpegFilename(filename)
	}

	filePath, err := f.api.Upload(ctx, filename, data, mimeType)
	if err != nil {
		return f.fail(err)
	}

	f.step = StepProcessing
	result, err := f.process(ctx, filePath)
	if err != nil {
		return f.fail(err)
	}

	verification, err := NewVerification(result)
	if err != nil {
		return f.fail(receipt.NewAPIError(receipt.CodeExtractionFailed, err.Error()))
	}
	f.verification = verification
	f.step = StepVerification
	return nil
}

// process runs the extraction request against the local deadline. A result
// arriving after the local timeout is treated as a timeout regardless of
// server outcome; the in-flight request is not cancelled, its late result is
// simply ignored.
func (f *Flow) process(ctx context.Context, filePath string) (*receipt.ScanResult, error) {
	timedOut := make(chan struct{})
	f.timer = NewProcessingTimer(f.cfg.WarningAfter, f.cfg.TimeoutAfter, nil, func() { close(timedOut) })
	f.timer.Start()
	defer f.timer.Stop()

	type outcome struct {
		result *receipt.ScanResult
		err    error
	}
	results := make(chan outcome, 1)
	go func() {
		result, err := f.api.Process(ctx, filePath)
		results <- outcome{result, err}
	}()

	select {
	case out := <-results:
		return out.result, out.err
	case <-timedOut:
		return nil, receipt.NewAPIError(receipt.CodeProcessingTimeout,
			"receipt processing exceeded the 20 second limit")
	}
}

// Save submits the verified batch. The validation gate must pass first, and
// a save cannot start while one is in flight.
func (f *Flow) Save(ctx context.Context) error {
	if f.step != StepVerification {
		return fmt.Errorf("cannot save from step %s", f.step)
	}
	if err := f.verification.Validate(); err != nil {
		return err
	}

	f.step = StepSaving
	_, err := f.api.SaveBatch(ctx, receipt.BatchRequest{Expenses: f.verification.BatchItems()})
	if err != nil {
		return f.fail(err)
	}
	f.step = StepComplete
	return nil
}

// Retry returns from the error state to upload when the error kind offers a
// retry.
func (f *Flow) Retry() error {
	if f.step != StepError {
		return fmt.Errorf("cannot retry from step %s", f.step)
	}
	if !f.ErrActions().CanRetry {
		return fmt.Errorf("retry is not available for %s", f.lastErr.Code)
	}
	f.lastErr = nil
	f.verification = nil
	f.step = StepUpload
	return nil
}

// Cancel abandons the flow from any state. It is not an error and calls no
// cleanup endpoint; the server eventually discards an unprocessed upload.
func (f *Flow) Cancel() {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.step = StepCancelled
}

func (f *Flow) fail(err error) error {
	f.lastErr = receipt.AsAPIError(err)
	f.step = StepError
	return f.lastErr
}

func jpegFilename(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		filename = filename[:i]
	}
	return filename + ".jpg"
}

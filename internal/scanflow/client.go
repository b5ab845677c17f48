package scanflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"paragoniusz-backend/internal/receipt"
)

// Client talks to the Paragoniusz API on behalf of the scan flow. Every call
// is a single in-flight request; no automatic retries are performed — the
// user re-initiates from the upload step.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			// Longer than the 20 s processing deadline so the local timer,
			// not the transport, decides when to give up.
			Timeout: 30 * time.Second,
		},
	}
}

type uploadResponse struct {
	FilePath string `json:"file_path"`
}

// Upload sends one validated image and returns the server-assigned storage
// path.
func (c *Client) Upload(ctx context.Context, filename string, data []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/receipts/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.FilePath == "" {
		return "", fmt.Errorf("file_path is empty in upload response")
	}
	return result.FilePath, nil
}

type processRequest struct {
	FilePath string `json:"file_path"`
}

// Process posts a storage path to the extraction endpoint and awaits the
// structured expense candidates or a typed error.
func (c *Client) Process(ctx context.Context, filePath string) (*receipt.ScanResult, error) {
	resp, err := c.postJSON(ctx, "/api/v1/receipts/process", processRequest{FilePath: filePath})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var result receipt.ScanResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

type batchResponse struct {
	Data  []json.RawMessage `json:"data"`
	Count int               `json:"count"`
}

// SaveBatch submits the finalized expense list as one atomic creation
// request and returns the number of created records.
func (c *Client) SaveBatch(ctx context.Context, batch receipt.BatchRequest) (int, error) {
	resp, err := c.postJSON(ctx, "/api/v1/expenses/batch", batch)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return 0, decodeAPIError(resp)
	}

	var result batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Count, nil
}

type profileResponse struct {
	ID        string `json:"id"`
	AIConsent bool   `json:"ai_consent"`
}

// HasAIConsent looks up whether the user has granted AI-processing consent.
func (c *Client) HasAIConsent(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/profiles/me", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, decodeAPIError(resp)
	}

	var result profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.AIConsent, nil
}

type consentRequest struct {
	AIConsent bool `json:"ai_consent"`
}

// GrantAIConsent persists consent so subsequent sessions skip the consent
// step.
func (c *Client) GrantAIConsent(ctx context.Context) error {
	body, err := json.Marshal(consentRequest{AIConsent: true})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/api/v1/profiles/me/consent", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	return resp, nil
}

// decodeAPIError turns a non-2xx response into a typed APIError. Bodies that
// do not carry the error envelope fall back to a code derived from the
// status so the error table always has something to look up.
func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var envelope receipt.ErrorBody
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Err.Code != "" {
		return &envelope.Err
	}

	code := receipt.CodeAIServiceError
	if resp.StatusCode == http.StatusUnauthorized {
		code = receipt.CodeUnauthorized
	}
	return &receipt.APIError{
		Code:    code,
		Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		Details: strings.TrimSpace(string(raw)),
	}
}

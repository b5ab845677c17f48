package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "google/gemini-2.0-flash-001"
)

// Client calls the OpenRouter chat-completions API with a receipt image and
// a structured-extraction prompt. The caller owns the deadline via ctx; the
// transport timeout is only a safety net.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Category is one expense category the model may assign line items to.
type Category struct {
	ID   int64
	Name string
}

// StatusError is a non-200 response from the gateway.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openrouter returned status %d: %s", e.StatusCode, e.Body)
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *format       `json:"response_format,omitempty"`
}

type format struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []messagePart `json:"content"`
}

type messagePart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const extractionPromptTemplate = `You are analyzing a photo of a shop receipt. Read every line item and group the purchases into expense categories.

Available categories (use the numeric id):
%s

Return ONLY valid JSON in this exact format:
{
  "expenses": [
    {"category_id": 1, "category_name": "Groceries", "amount": "30.00", "items": ["milk", "bread"]}
  ],
  "total_amount": "50.70",
  "currency": "PLN",
  "receipt_date": "YYYY-MM-DD"
}

Important:
- Group items belonging to the same category into one expense entry
- Amounts are decimal strings with exactly two fractional digits
- total_amount is the receipt's grand total as printed
- currency is the ISO code printed on the receipt, default "PLN"
- receipt_date is the purchase date in YYYY-MM-DD format
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// ExtractExpenses sends the receipt image and returns the parsed extraction.
func (c *Client) ExtractExpenses(ctx context.Context, imageData []byte, mimeType string, categories []Category) (*Extraction, error) {
	var list strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&list, "%d. %s\n", cat.ID, cat.Name)
	}
	prompt := fmt.Sprintf(extractionPromptTemplate, list.String())

	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []messagePart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		ResponseFormat: &format{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", ErrUnparsable)
	}

	return parseExtraction(result.Choices[0].Message.Content)
}

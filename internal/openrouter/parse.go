package openrouter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparsable marks model output that could not be turned into an
// extraction result.
var ErrUnparsable = errors.New("model response could not be parsed")

// Extraction is the structured result read from the model's reply.
type Extraction struct {
	Expenses    []ExtractedItem `json:"expenses"`
	TotalAmount flexString      `json:"total_amount"`
	Currency    string          `json:"currency"`
	ReceiptDate string          `json:"receipt_date"`
}

// ExtractedItem is one category-grouped expense entry.
type ExtractedItem struct {
	CategoryID   int64      `json:"category_id"`
	CategoryName string     `json:"category_name"`
	Amount       flexString `json:"amount"`
	Items        []string   `json:"items"`
}

// flexString accepts both JSON strings and bare numbers; models do not
// reliably quote amounts despite the prompt.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(b, &unquoted); err != nil {
			return err
		}
		*f = flexString(unquoted)
		return nil
	}
	*f = flexString(s)
	return nil
}

func (f flexString) String() string { return string(f) }

// parseExtraction extracts the JSON object from raw model output. Models
// occasionally wrap JSON in markdown fences or surrounding prose; both are
// tolerated.
func parseExtraction(text string) (*Extraction, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrUnparsable)
	}
	text = text[start : end+1]

	var extraction Extraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	if len(extraction.Expenses) == 0 {
		return nil, fmt.Errorf("%w: no expenses extracted", ErrUnparsable)
	}

	extraction.ReceiptDate = normalizeDate(extraction.ReceiptDate)

	extraction.Currency = strings.ToUpper(strings.TrimSpace(extraction.Currency))
	if len(extraction.Currency) != 3 {
		extraction.Currency = "PLN"
	}

	return &extraction, nil
}

// normalizeDate coerces the model-reported date into YYYY-MM-DD. Unparseable
// or future dates fall back to today; the user corrects the date during
// verification.
func normalizeDate(raw string) string {
	today := time.Now()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today.Format("2006-01-02")
	}

	formats := []string{"2006-01-02", "2006/01/02", "02.01.2006", "02-01-2006", "01/02/2006"}
	for _, format := range formats {
		parsed, err := time.Parse(format, raw)
		if err != nil {
			continue
		}
		if parsed.After(today) {
			return today.Format("2006-01-02")
		}
		return parsed.Format("2006-01-02")
	}
	return today.Format("2006-01-02")
}

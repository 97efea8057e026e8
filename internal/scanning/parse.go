package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scansheet/scansheet/internal/optional"
)

// dateLayouts are the date formats accepted from a model, most specific first
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// parseReceiptJSON parses a model response into ReceiptData.
// Only a response with no JSON object at all is an error; individual
// fields that are missing, null or of the wrong type come back absent.
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = stripCodeFence(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return &ReceiptData{
		Merchant: parseText(fields["merchant"]),
		Date:     parseDate(fields["date"]),
		Total:    parseTotal(fields["total"]),
		Category: parseText(fields["category"]),
	}, nil
}

func parseText(v any) optional.Value[string] {
	s, ok := v.(string)
	if !ok {
		return optional.None[string]()
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return optional.None[string]()
	}
	return optional.Some(s)
}

// parseDate normalizes a date to YYYY-MM-DD
func parseDate(v any) optional.Value[string] {
	s, ok := parseText(v).Get()
	if !ok {
		return optional.None[string]()
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return optional.Some(d.Format("2006-01-02"))
		}
	}
	return optional.None[string]()
}

// parseTotal accepts a JSON number or a numeric string such as "$14.25" or "14,25".
// Negative amounts are treated as unreadable.
func parseTotal(v any) optional.Value[decimal.Decimal] {
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = cleanAmount(t)
	default:
		return optional.None[decimal.Decimal]()
	}

	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return optional.None[decimal.Decimal]()
	}
	return optional.Some(d)
}

// cleanAmount strips currency symbols and normalizes the decimal separator
func cleanAmount(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, s)

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		// A comma before exactly three digits groups thousands
		if i := strings.LastIndex(s, ","); len(s)-i-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	return s
}

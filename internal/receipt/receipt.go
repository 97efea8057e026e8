package receipt

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scansheet/scansheet/internal/capture"
)

// dateLayout is the calendar date format used for receipt dates
const dateLayout = "2006-01-02"

// Receipt is a committed, fully populated expense record
type Receipt struct {
	ID        string          `json:"id"`
	Date      string          `json:"date"` // YYYY-MM-DD
	Merchant  string          `json:"merchant"`
	Total     Amount          `json:"total"`
	Category  Category        `json:"category"`
	ImageURL  capture.Payload `json:"imageUrl"`
	Timestamp int64           `json:"timestamp"` // Commit time in epoch milliseconds
}

// Validate checks that every field of the record is populated and well formed
func (r Receipt) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrIncompleteRecord)
	case r.ImageURL == "":
		return fmt.Errorf("%w: %s has no image", ErrIncompleteRecord, r.ID)
	case !r.Category.Valid():
		return fmt.Errorf("%w: %s has unknown category %q", ErrIncompleteRecord, r.ID, r.Category)
	case r.Total.IsNegative():
		return fmt.Errorf("%w: %s has a negative total", ErrIncompleteRecord, r.ID)
	case r.Timestamp <= 0:
		return fmt.Errorf("%w: %s has no timestamp", ErrIncompleteRecord, r.ID)
	}
	if _, err := time.Parse(dateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: %s has invalid date %q", ErrIncompleteRecord, r.ID, r.Date)
	}
	return nil
}

// CommittedAt returns the commit timestamp as a time
func (r Receipt) CommittedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Amount is an exact, non-negative money amount. It is serialized as a
// JSON number rather than decimal's default quoted string.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// ParseAmount parses a decimal string such as "15.00"
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Amount{Decimal: d}, nil
}

// MustAmount is ParseAmount for constants; it panics on malformed input
func MustAmount(s string) Amount {
	return Amount{Decimal: decimal.RequireFromString(s)}
}

// MarshalJSON writes the amount as a bare JSON number
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both a JSON number and a quoted decimal string
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// String formats the amount with two decimal places
func (a Amount) String() string {
	return a.StringFixed(2)
}

// Summary is the aggregate shown on the listing
type Summary struct {
	Total    Amount    `json:"total"`
	Count    int       `json:"count"`
	Receipts []Receipt `json:"receipts"`
}

// Summarize sums the totals of receipts exactly
func Summarize(receipts []Receipt) Summary {
	total := decimal.Zero
	for _, r := range receipts {
		total = total.Add(r.Total.Decimal)
	}
	if receipts == nil {
		receipts = []Receipt{}
	}
	return Summary{
		Total:    NewAmount(total),
		Count:    len(receipts),
		Receipts: receipts,
	}
}

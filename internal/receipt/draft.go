package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/scansheet/scansheet/internal/capture"
	"github.com/scansheet/scansheet/internal/optional"
	"github.com/scansheet/scansheet/internal/scanning"
)

// Draft is a candidate receipt awaiting user confirmation. Its id and image
// are fixed at capture time; the extracted fields may each be absent.
type Draft struct {
	ID         string
	ImageURL   capture.Payload
	CapturedAt time.Time

	Merchant optional.Value[string]
	Date     optional.Value[string]
	Total    optional.Value[Amount]
	Category optional.Value[Category]
}

// NewDraft builds a draft from an extraction result. A category outside the
// closed set counts as absent.
func NewDraft(id string, image capture.Payload, capturedAt time.Time, data *scanning.ReceiptData) *Draft {
	d := &Draft{
		ID:         id,
		ImageURL:   image,
		CapturedAt: capturedAt,
	}
	if data == nil {
		return d
	}

	d.Merchant = data.Merchant
	d.Date = data.Date
	if total, ok := data.Total.Get(); ok {
		d.Total = optional.Some(NewAmount(total))
	}
	if raw, ok := data.Category.Get(); ok {
		if c, known := ParseCategory(raw); known {
			d.Category = optional.Some(c)
		}
	}
	return d
}

// Fields are the editable values of a draft with defaults applied
type Fields struct {
	Merchant string   `json:"merchant"`
	Date     string   `json:"date"`
	Total    Amount   `json:"total"`
	Category Category `json:"category"`
}

// Fields returns the form values: empty merchant, zero total, today's date
// and the default category stand in for absent fields.
func (d *Draft) Fields(now time.Time) Fields {
	return Fields{
		Merchant: d.Merchant.Or(""),
		Date:     d.Date.Or(now.Format(dateLayout)),
		Total:    d.Total.Or(Amount{}),
		Category: d.Category.Or(DefaultCategory),
	}
}

// Edits are the values the user changed on the form; absent means untouched
type Edits struct {
	Merchant optional.Value[string]
	Date     optional.Value[string]
	Total    optional.Value[Amount]
	Category optional.Value[Category]
}

// Promote turns a draft plus the user's edits into a receipt. Defaults are
// applied here and nowhere else; the timestamp is the commit time now.
func Promote(d *Draft, e Edits, now time.Time) (Receipt, error) {
	if d == nil {
		return Receipt{}, fmt.Errorf("%w: no draft", ErrInvalidDraft)
	}

	merged := Draft{
		Merchant: d.Merchant.Override(e.Merchant),
		Date:     d.Date.Override(e.Date),
		Total:    d.Total.Override(e.Total),
		Category: d.Category.Override(e.Category),
	}
	fields := merged.Fields(now)

	if _, err := time.Parse(dateLayout, fields.Date); err != nil {
		return Receipt{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidDraft, fields.Date)
	}
	if fields.Total.IsNegative() {
		return Receipt{}, fmt.Errorf("%w: total cannot be negative", ErrInvalidDraft)
	}
	if !fields.Category.Valid() {
		return Receipt{}, fmt.Errorf("%w: unknown category %q", ErrInvalidDraft, fields.Category)
	}

	r := Receipt{
		ID:        d.ID,
		Date:      fields.Date,
		Merchant:  strings.TrimSpace(fields.Merchant),
		Total:     NewAmount(fields.Total.Round(2)),
		Category:  fields.Category,
		ImageURL:  d.ImageURL,
		Timestamp: now.UnixMilli(),
	}
	if err := r.Validate(); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	return r, nil
}

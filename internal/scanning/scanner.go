package scanning

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/scansheet/scansheet/internal/optional"
)

// ReceiptData contains the fields a model managed to read from a receipt.
// Any field may be absent; malformed values are reported as absent too.
type ReceiptData struct {
	Merchant optional.Value[string]
	Date     optional.Value[string] // YYYY-MM-DD
	Total    optional.Value[decimal.Decimal]
	Category optional.Value[string] // raw model output, not yet canonicalised
}

// Scanner defines the interface for receipt extraction backends
type Scanner interface {
	// ScanReceipt analyzes a receipt image and extracts its fields
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}

package view

import (
	"time"

	"github.com/scansheet/scansheet/internal/receipt"
)

// FormatAmount formats an amount as dollars and cents.
func FormatAmount(a receipt.Amount) string {
	return "$" + a.String()
}

// FormatTimestamp formats a commit time for the listing.
func FormatTimestamp(r receipt.Receipt) string {
	return r.CommittedAt().Local().Format(time.DateTime)
}

package receipt

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Receipts"

// ExportXLSX renders receipts as a spreadsheet with a closing TOTAL row
func ExportXLSX(receipts []Receipt) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	headers := []string{"Date", "Merchant", "Category", "Total", "Saved At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	row := 2
	for _, r := range receipts {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
		write(1, r.Date)
		write(2, r.Merchant)
		write(3, string(r.Category))
		write(4, r.Total.InexactFloat64())
		write(5, r.CommittedAt().UTC().Format(time.RFC3339))
		row++
	}

	summary := Summarize(receipts)
	labelCell, _ := excelize.CoordinatesToCellName(3, row)
	totalCell, _ := excelize.CoordinatesToCellName(4, row)
	_ = f.SetCellValue(exportSheet, labelCell, "TOTAL")
	_ = f.SetCellValue(exportSheet, totalCell, summary.Total.InexactFloat64())

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return nil, fmt.Errorf("creating style: %w", err)
	}
	_ = f.SetCellStyle(exportSheet, "A1", "E1", bold)
	_ = f.SetCellStyle(exportSheet, "D2", totalCell, money)
	_ = f.SetCellStyle(exportSheet, labelCell, labelCell, bold)

	_ = f.SetColWidth(exportSheet, "A", "A", 12) // date
	_ = f.SetColWidth(exportSheet, "B", "B", 32) // merchant
	_ = f.SetColWidth(exportSheet, "C", "C", 16) // category
	_ = f.SetColWidth(exportSheet, "D", "D", 12) // total
	_ = f.SetColWidth(exportSheet, "E", "E", 22) // saved at

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	slog.Debug("Exported receipts", "rows", len(receipts), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

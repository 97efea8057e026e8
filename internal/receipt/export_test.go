package receipt

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("ExportXLSX", func() {
	open := func(data []byte) *excelize.File {
		f, err := excelize.OpenReader(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(f.Close)
		return f
	}

	It("should write a row per receipt and a closing total", func() {
		data, err := ExportXLSX([]Receipt{
			sampleReceipt("a", "Blue Bottle", "37.49"),
			sampleReceipt("b", "Corner Store", "12.50"),
		})
		Expect(err).NotTo(HaveOccurred())

		rows, err := open(data).GetRows("Receipts")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(4))
		Expect(rows[0]).To(Equal([]string{"Date", "Merchant", "Category", "Total", "Saved At"}))
		Expect(rows[1][:3]).To(Equal([]string{"2024-03-09", "Blue Bottle", "Food & Dining"}))
		Expect(rows[2][1]).To(Equal("Corner Store"))
		Expect(rows[3][2]).To(Equal("TOTAL"))
		Expect(rows[3][3]).To(Equal("49.99"))
	})

	It("should write only headers and a zero total when empty", func() {
		data, err := ExportXLSX(nil)
		Expect(err).NotTo(HaveOccurred())

		rows, err := open(data).GetRows("Receipts")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[1][2]).To(Equal("TOTAL"))
	})
})

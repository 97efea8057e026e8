package receipt

import (
	"encoding/json"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func sampleReceipt(id, merchant, total string) Receipt {
	return Receipt{
		ID:        id,
		Date:      "2024-03-09",
		Merchant:  merchant,
		Total:     MustAmount(total),
		Category:  FoodAndDining,
		ImageURL:  testPayload(),
		Timestamp: 1710000000000,
	}
}

var _ = Describe("Store", func() {
	var (
		slot  *memSlot
		store *Store
	)

	BeforeEach(func() {
		slot = &memSlot{}
		store = NewStore(slot)
	})

	Describe("Load", func() {
		It("should return an empty collection for an empty slot", func() {
			Expect(store.Load()).To(BeEmpty())
		})

		It("should round-trip what SaveAll wrote", func() {
			a := sampleReceipt("a", "Blue Bottle", "37.49")
			b := sampleReceipt("b", "Corner Store", "12.50")
			Expect(store.SaveAll([]Receipt{a, b})).To(Succeed())

			loaded := NewStore(slot).Load()
			Expect(loaded).To(HaveLen(2))
			Expect(loaded[0].ID).To(Equal("a"))
			Expect(loaded[0].Total.String()).To(Equal("37.49"))
			Expect(loaded[1].ID).To(Equal("b"))
			Expect(loaded[1].ImageURL).To(Equal(b.ImageURL))
		})

		It("should write the versioned layout", func() {
			Expect(store.Append(sampleReceipt("a", "Blue Bottle", "37.49"))).To(Succeed())

			var raw map[string]json.RawMessage
			Expect(json.Unmarshal(slot.data, &raw)).To(Succeed())
			Expect(string(raw["version"])).To(Equal("1"))

			var entries []map[string]any
			Expect(json.Unmarshal(raw["receipts"], &entries)).To(Succeed())
			Expect(entries[0]).To(HaveKeyWithValue("total", 37.49))
			Expect(entries[0]).To(HaveKeyWithValue("imageUrl", HavePrefix("data:image/jpeg;base64,")))
			Expect(entries[0]).To(HaveKey("timestamp"))
		})

		It("should write category names unescaped", func() {
			Expect(store.Append(sampleReceipt("a", "Blue Bottle", "37.49"))).To(Succeed())
			Expect(string(slot.data)).To(ContainSubstring(`"category":"Food & Dining"`))
			Expect(NewStore(slot).List()[0].Category).To(Equal(FoodAndDining))
		})

		It("should accept a bare array", func() {
			r := sampleReceipt("legacy", "Old Shop", "5")
			data, err := json.Marshal([]Receipt{r})
			Expect(err).NotTo(HaveOccurred())
			slot.data = data

			loaded := store.Load()
			Expect(loaded).To(HaveLen(1))
			Expect(loaded[0].ID).To(Equal("legacy"))
		})

		It("should start empty when the blob is corrupt", func() {
			slot.data = []byte("{not json")
			Expect(store.Load()).To(BeEmpty())
		})

		It("should start empty when the slot cannot be read", func() {
			slot.getErr = errors.New("permission denied")
			Expect(store.Load()).To(BeEmpty())
		})

		It("should skip incomplete and duplicate entries", func() {
			good := sampleReceipt("a", "Blue Bottle", "37.49")
			goodJSON, err := json.Marshal(good)
			Expect(err).NotTo(HaveOccurred())
			slot.data = []byte(fmt.Sprintf(
				`{"version":1,"receipts":[%s,{"id":"b","merchant":"No image"},%s,"junk"]}`,
				goodJSON, goodJSON,
			))

			loaded := store.Load()
			Expect(loaded).To(HaveLen(1))
			Expect(loaded[0].ID).To(Equal("a"))
		})
	})

	Describe("Append", func() {
		It("should insert at the head", func() {
			Expect(store.Append(sampleReceipt("a", "First", "1"))).To(Succeed())
			Expect(store.Append(sampleReceipt("b", "Second", "2"))).To(Succeed())

			list := store.List()
			Expect(list[0].ID).To(Equal("b"))
			Expect(list[1].ID).To(Equal("a"))
		})

		It("should persist every mutation", func() {
			Expect(store.Append(sampleReceipt("a", "First", "1"))).To(Succeed())
			Expect(slot.puts).To(Equal(1))
			Expect(NewStore(slot).List()).To(HaveLen(1))
		})

		It("should reject a duplicate id", func() {
			Expect(store.Append(sampleReceipt("a", "First", "1"))).To(Succeed())
			Expect(store.Append(sampleReceipt("a", "Again", "2"))).To(MatchError(ErrDuplicateID))
			Expect(store.List()).To(HaveLen(1))
		})

		It("should reject a partial record", func() {
			r := sampleReceipt("a", "First", "1")
			r.ImageURL = ""
			Expect(store.Append(r)).To(MatchError(ErrIncompleteRecord))
			Expect(slot.puts).To(Equal(0))
		})

		When("the slot cannot be written", func() {
			BeforeEach(func() {
				slot.putErr = errors.New("quota exceeded")
			})

			It("should keep the receipt in memory", func() {
				Expect(store.Append(sampleReceipt("a", "First", "1"))).To(Succeed())
				Expect(store.List()).To(HaveLen(1))
			})
		})
	})

	Describe("Remove", func() {
		BeforeEach(func() {
			Expect(store.SaveAll([]Receipt{
				sampleReceipt("a", "First", "1"),
				sampleReceipt("b", "Second", "2"),
			})).To(Succeed())
		})

		It("should remove the receipt and persist", func() {
			store.Remove("a")
			Expect(store.List()).To(HaveLen(1))
			Expect(NewStore(slot).List()[0].ID).To(Equal("b"))
		})

		It("should do nothing for an unknown id", func() {
			puts := slot.puts
			store.Remove("missing")
			Expect(store.List()).To(HaveLen(2))
			Expect(slot.puts).To(Equal(puts))
		})
	})

	Describe("SaveAll", func() {
		It("should reject duplicate ids", func() {
			err := store.SaveAll([]Receipt{
				sampleReceipt("a", "First", "1"),
				sampleReceipt("a", "Second", "2"),
			})
			Expect(err).To(MatchError(ErrDuplicateID))
		})
	})

	Describe("Summary", func() {
		It("should sum totals exactly", func() {
			Expect(store.Append(sampleReceipt("a", "Blue Bottle", "37.49"))).To(Succeed())
			Expect(store.Append(sampleReceipt("b", "Corner Store", "12.50"))).To(Succeed())

			summary := store.Summary()
			Expect(summary.Count).To(Equal(2))
			Expect(summary.Total.String()).To(Equal("49.99"))
		})

		It("should be zero for an empty store", func() {
			summary := store.Summary()
			Expect(summary.Count).To(Equal(0))
			Expect(summary.Total.String()).To(Equal("0.00"))
			Expect(summary.Receipts).NotTo(BeNil())
		})
	})
})

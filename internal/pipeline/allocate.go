package pipeline

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"beersync/internal"
	"beersync/internal/catalog"
)

// NetSales folds per-date demand and return lines into net sale records
// per commercial product. Returns are matched by product id only, not by
// lot. Records whose net quantity falls below 1 are dropped.
func NetSales(demands, returns []internal.SaleLine) []internal.SaleRecord {
	net := map[string]int{}
	for _, line := range demands {
		net[line.UUID] += line.Quantity
	}
	for _, line := range returns {
		net[line.UUID] -= line.Quantity
	}

	out := make([]internal.SaleRecord, 0, len(net))
	for uuid, qty := range net {
		if qty < 1 {
			continue
		}
		out = append(out, internal.SaleRecord{UUID: uuid, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

// Allocator converts net retail sales into consumption entries against the
// regulatory stock registers. One Allocate call owns its register copies;
// the caller must persist entries and decrements as a single unit.
type Allocator struct {
	idx      *catalog.Index
	collator *collate.Collator
}

func NewAllocator(idx *catalog.Index) *Allocator {
	return &Allocator{idx: idx, collator: collate.New(language.Russian)}
}

// Allocate returns the journal entries for the given sales and the final
// register quantity of every code it consumed from. Sale quantity that no
// linked code could cover is dropped: stock data lags, under-reporting is
// accepted.
func (a *Allocator) Allocate(sales []internal.SaleRecord) ([]internal.JournalEntry, map[string]int) {
	type item struct {
		product internal.CommercialProduct
		qty     int
	}

	items := make([]item, 0, len(sales))
	for _, sale := range sales {
		if sale.Quantity <= 0 {
			continue
		}
		product, ok := a.idx.CommercialByUUID[sale.UUID]
		if !ok {
			continue
		}
		if !product.Kind.ExciseTracked() || product.IsDraft {
			continue
		}
		items = append(items, item{product: product, qty: sale.Quantity})
	}

	sort.Slice(items, func(i, j int) bool {
		a1, a2 := items[i].product.DisplayName(), items[j].product.DisplayName()
		if a1 != a2 {
			return a.collator.CompareString(a1, a2) < 0
		}
		return items[i].product.UUID < items[j].product.UUID
	})

	entries := []internal.JournalEntry{}
	updated := map[string]int{}
	remaining := func(code string) int {
		if qty, ok := updated[code]; ok {
			return qty
		}
		stock := a.idx.RegulatoryByCode[code].Stock.Shop
		if stock == nil {
			return 0
		}
		return *stock
	}

	for _, it := range items {
		left := it.qty
		for _, code := range a.idx.LinkedCodes[it.product.UUID] {
			if left == 0 {
				break
			}
			regulatory, ok := a.idx.RegulatoryByCode[code]
			if !ok {
				continue
			}
			stock := remaining(code)
			if stock <= 0 {
				continue
			}

			consumed := stock
			if left < consumed {
				consumed = left
			}
			updated[code] = stock - consumed
			left -= consumed

			entries = append(entries, internal.JournalEntry{
				CommercialName: it.product.DisplayName(),
				RegulatoryName: regulatory.FullName,
				Code:           regulatory.Code,
				KindCode:       regulatory.KindCode,
				Capacity:       regulatory.Capacity,
				Quantity:       consumed,
				Price:          it.product.Price,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return a.collator.CompareString(entries[i].CommercialName, entries[j].CommercialName) < 0
	})
	return entries, updated
}

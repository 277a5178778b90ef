package pipeline

import (
	"testing"

	"beersync/internal"
	"beersync/internal/catalog"
	"beersync/internal/util"
)

func TestNetSales(t *testing.T) {
	demands := []internal.SaleLine{
		{UUID: "c-1", Quantity: 5},
		{UUID: "c-1", Quantity: 2},
		{UUID: "c-2", Quantity: 3},
		{UUID: "c-3", Quantity: 1},
	}
	returns := []internal.SaleLine{
		{UUID: "c-1", Quantity: 2},
		{UUID: "c-2", Quantity: 5},
		{UUID: "c-3", Quantity: 1},
		{UUID: "c-4", Quantity: 1},
	}

	net := NetSales(demands, returns)
	if len(net) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(net), net)
	}
	// c-1: 7 sold, 2 returned. c-2 went negative, c-3 to zero, c-4 was
	// never sold; all three drop.
	if net[0].UUID != "c-1" || net[0].Quantity != 5 {
		t.Fatalf("unexpected record: %+v", net[0])
	}
}

func allocIndex(shopA, shopB int) *catalog.Index {
	commercial := []internal.CommercialProduct{
		{UUID: "c-1", Brewery: "4Пивовара", Name: "Вброс", Kind: internal.KindBeer, Capacity: 0.5},
	}
	regulatory := []internal.RegulatoryProduct{
		{Code: "A", FullName: "Пиво Вброс (партия 1)", Capacity: 0.5, KindCode: 520, Stock: internal.RegulatoryStock{Shop: util.IntPtr(shopA)}},
		{Code: "B", FullName: "Пиво Вброс (партия 2)", Capacity: 0.5, KindCode: 520, Stock: internal.RegulatoryStock{Shop: util.IntPtr(shopB)}},
	}
	links := []internal.Link{
		{UUID: "c-1", Code: "A"},
		{UUID: "c-1", Code: "B"},
	}
	return catalog.BuildIndex(commercial, regulatory, links)
}

func TestAllocateCarryOverAcrossCodes(t *testing.T) {
	idx := allocIndex(4, 10)
	entries, stocks := NewAllocator(idx).Allocate([]internal.SaleRecord{{UUID: "c-1", Quantity: 10}})

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].Code != "A" || entries[0].Quantity != 4 {
		t.Fatalf("first entry: %+v", entries[0])
	}
	if entries[1].Code != "B" || entries[1].Quantity != 6 {
		t.Fatalf("second entry: %+v", entries[1])
	}
	if stocks["A"] != 0 || stocks["B"] != 4 {
		t.Fatalf("stocks: %+v", stocks)
	}
}

func TestAllocateTruncatesOnExhaustedStock(t *testing.T) {
	idx := allocIndex(2, 3)
	entries, stocks := NewAllocator(idx).Allocate([]internal.SaleRecord{{UUID: "c-1", Quantity: 10}})

	total := 0
	for _, e := range entries {
		total += e.Quantity
		if e.Quantity <= 0 {
			t.Fatalf("non-positive consumption: %+v", e)
		}
	}
	// Surplus demand is dropped, never borrowed from a register.
	if total != 5 {
		t.Fatalf("consumed %d, want 5", total)
	}
	for code, qty := range stocks {
		if qty < 0 {
			t.Fatalf("register %s went negative: %d", code, qty)
		}
	}
}

func TestAllocateConservesQuantity(t *testing.T) {
	idx := allocIndex(100, 100)
	sale := internal.SaleRecord{UUID: "c-1", Quantity: 7}
	entries, _ := NewAllocator(idx).Allocate([]internal.SaleRecord{sale})

	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	if total != sale.Quantity {
		t.Fatalf("consumed %d, want exactly %d with ample stock", total, sale.Quantity)
	}
}

func TestAllocateSkipsWithoutStockedLinks(t *testing.T) {
	commercial := []internal.CommercialProduct{
		{UUID: "c-1", Name: "Вброс", Kind: internal.KindBeer},
		{UUID: "c-2", Name: "Unlinked", Kind: internal.KindBeer},
	}
	regulatory := []internal.RegulatoryProduct{
		{Code: "A", FullName: "Пиво Вброс", Stock: internal.RegulatoryStock{}},
	}
	links := []internal.Link{{UUID: "c-1", Code: "A"}}
	idx := catalog.BuildIndex(commercial, regulatory, links)

	entries, stocks := NewAllocator(idx).Allocate([]internal.SaleRecord{
		{UUID: "c-1", Quantity: 3}, // linked, but register unknown (nil)
		{UUID: "c-2", Quantity: 3}, // no links at all
	})

	if len(entries) != 0 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if len(stocks) != 0 {
		t.Fatalf("unexpected stock updates: %+v", stocks)
	}
}

func TestAllocateExcludesNonExciseKindsAndDraft(t *testing.T) {
	commercial := []internal.CommercialProduct{
		{UUID: "c-1", Name: "Комбуча Лесная", Kind: internal.KindKombucha},
		{UUID: "c-2", Name: "Лимонад Юдзу", Kind: internal.KindLemonade},
		{UUID: "c-3", Name: "Сет", Kind: internal.KindOther},
		{UUID: "c-4", Name: "Разливное", Kind: internal.KindBeer, IsDraft: true},
		{UUID: "c-5", Name: "Сидр яблочный", Kind: internal.KindCider},
	}
	regulatory := []internal.RegulatoryProduct{
		{Code: "A", FullName: "Сидр яблочный", Stock: internal.RegulatoryStock{Shop: util.IntPtr(10)}},
	}
	var links []internal.Link
	for _, uuid := range []string{"c-1", "c-2", "c-3", "c-4", "c-5"} {
		links = append(links, internal.Link{UUID: uuid, Code: "A"})
	}
	idx := catalog.BuildIndex(commercial, regulatory, links)

	sales := make([]internal.SaleRecord, 0, 5)
	for _, uuid := range []string{"c-1", "c-2", "c-3", "c-4", "c-5"} {
		sales = append(sales, internal.SaleRecord{UUID: uuid, Quantity: 1})
	}

	entries, _ := NewAllocator(idx).Allocate(sales)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want only the cider: %+v", len(entries), entries)
	}
	if entries[0].CommercialName != "Сидр яблочный" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestAllocateOutputOrderedByName(t *testing.T) {
	commercial := []internal.CommercialProduct{
		{UUID: "c-1", Brewery: "Яуза", Name: "Тёмное", Kind: internal.KindBeer},
		{UUID: "c-2", Brewery: "Бакунин", Name: "Светлое", Kind: internal.KindBeer},
		{UUID: "c-3", Brewery: "Anchor", Name: "Steam", Kind: internal.KindBeer},
	}
	regulatory := []internal.RegulatoryProduct{
		{Code: "A", Stock: internal.RegulatoryStock{Shop: util.IntPtr(10)}},
		{Code: "B", Stock: internal.RegulatoryStock{Shop: util.IntPtr(10)}},
		{Code: "C", Stock: internal.RegulatoryStock{Shop: util.IntPtr(10)}},
	}
	links := []internal.Link{
		{UUID: "c-1", Code: "A"},
		{UUID: "c-2", Code: "B"},
		{UUID: "c-3", Code: "C"},
	}
	idx := catalog.BuildIndex(commercial, regulatory, links)

	entries, _ := NewAllocator(idx).Allocate([]internal.SaleRecord{
		{UUID: "c-1", Quantity: 1},
		{UUID: "c-2", Quantity: 1},
		{UUID: "c-3", Quantity: 1},
	})

	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	want := []string{"Anchor - Steam", "Бакунин - Светлое", "Яуза - Тёмное"}
	for i, name := range want {
		if entries[i].CommercialName != name {
			t.Fatalf("entry %d: got %q want %q", i, entries[i].CommercialName, name)
		}
	}
}

package storage

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"beersync/internal"
	"beersync/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCommercialSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)

	products := []internal.CommercialProduct{
		{
			UUID: "c-1", FullName: "4Пивовара - Вброс (Gose. ABV 4,5%)",
			Brewery: "4Пивовара", Name: "Вброс", Style: "Gose",
			ABV: 4.5, IsAlco: true, Kind: internal.KindBeer, Capacity: 0.5,
			Price: decimal.RequireFromString("189.99"), Quantity: 12,
		},
	}
	if err := db.ReplaceCommercialProducts(products); err != nil {
		t.Fatalf("replace: %v", err)
	}

	stored, err := db.ListCommercialProducts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d products", len(stored))
	}
	got := stored[0]
	if got.Name != "Вброс" || got.Kind != internal.KindBeer || !got.IsAlco {
		t.Fatalf("round trip mangled product: %+v", got)
	}
	if !got.Price.Equal(decimal.RequireFromString("189.99")) {
		t.Fatalf("price: %s", got.Price)
	}

	// A second sync replaces, not merges.
	if err := db.ReplaceCommercialProducts(nil); err != nil {
		t.Fatalf("replace empty: %v", err)
	}
	stored, err = db.ListCommercialProducts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("snapshot not replaced: %+v", stored)
	}
}

func TestRegulatorySnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)

	goods := []internal.RegulatoryProduct{
		{
			Code: "0100000000000012345", FullName: "Пиво тёмное", Capacity: 0.75, KindCode: 520,
			Producer: internal.Producer{FSRARID: "030000161", ShortName: "4Пивовара", FullName: "ООО 4Пивовара"},
			Stock:    internal.RegulatoryStock{Shop: util.IntPtr(9)},
		},
	}
	if err := db.ReplaceRegulatoryProducts(goods); err != nil {
		t.Fatalf("replace: %v", err)
	}

	stored, err := db.ListRegulatoryProducts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d goods", len(stored))
	}
	got := stored[0]
	if got.Producer.ShortName != "4Пивовара" {
		t.Fatalf("producer lost: %+v", got.Producer)
	}
	if got.Producer.INN != nil {
		t.Fatalf("foreign producer INN must stay nil")
	}
	if got.Stock.Shop == nil || *got.Stock.Shop != 9 {
		t.Fatalf("stock: %+v", got.Stock)
	}
	if got.Stock.Warehouse != nil {
		t.Fatalf("warehouse stock should stay nil")
	}
}

func TestLinksInsertOrderAndIgnore(t *testing.T) {
	db := openTestDB(t)

	added, err := db.InsertLinks([]internal.Link{
		{UUID: "c-1", Code: "B"},
		{UUID: "c-1", Code: "A"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if added != 2 {
		t.Fatalf("added=%d want 2", added)
	}

	added, err = db.InsertLinks([]internal.Link{
		{UUID: "c-1", Code: "A"}, // existing
		{UUID: "c-2", Code: "A"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if added != 1 {
		t.Fatalf("added=%d want 1", added)
	}

	links, err := db.ListLinks()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []internal.Link{
		{UUID: "c-1", Code: "B"},
		{UUID: "c-1", Code: "A"},
		{UUID: "c-2", Code: "A"},
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links", len(links))
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("link %d: got %+v want %+v", i, links[i], want[i])
		}
	}
}

func TestApplyAllocation(t *testing.T) {
	db := openTestDB(t)

	goods := []internal.RegulatoryProduct{
		{
			Code: "A", FullName: "Пиво", Capacity: 0.5, KindCode: 520,
			Producer: internal.Producer{FSRARID: "p-1", ShortName: "X", FullName: "X"},
			Stock:    internal.RegulatoryStock{Shop: util.IntPtr(10)},
		},
	}
	if err := db.ReplaceRegulatoryProducts(goods); err != nil {
		t.Fatalf("replace: %v", err)
	}

	entries := []internal.JournalEntry{
		{CommercialName: "X - Пиво", RegulatoryName: "Пиво", Code: "A", KindCode: 520, Capacity: 0.5, Quantity: 6, Price: decimal.NewFromInt(200)},
	}
	if err := db.ApplyAllocation("2026-08-30", entries, map[string]int{"A": 4}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	stored, err := db.ListJournal("2026-08-30")
	if err != nil {
		t.Fatalf("list journal: %v", err)
	}
	if len(stored) != 1 || stored[0].Quantity != 6 || stored[0].Code != "A" {
		t.Fatalf("journal: %+v", stored)
	}

	regs, err := db.ListRegulatoryProducts()
	if err != nil {
		t.Fatalf("list regulatory: %v", err)
	}
	if regs[0].Stock.Shop == nil || *regs[0].Stock.Shop != 4 {
		t.Fatalf("register not decremented: %+v", regs[0].Stock)
	}

	// Re-applying the same date overwrites rather than appends.
	if err := db.ApplyAllocation("2026-08-30", entries, map[string]int{"A": 4}); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	stored, err = db.ListJournal("2026-08-30")
	if err != nil {
		t.Fatalf("list journal: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("journal duplicated: %d rows", len(stored))
	}
}

func TestRevertAllocation(t *testing.T) {
	db := openTestDB(t)

	goods := []internal.RegulatoryProduct{
		{
			Code: "A", FullName: "Пиво", Capacity: 0.5, KindCode: 520,
			Producer: internal.Producer{FSRARID: "p-1", ShortName: "X", FullName: "X"},
			Stock:    internal.RegulatoryStock{Shop: util.IntPtr(10)},
		},
	}
	if err := db.ReplaceRegulatoryProducts(goods); err != nil {
		t.Fatalf("replace: %v", err)
	}

	entries := []internal.JournalEntry{
		{CommercialName: "X - Пиво", RegulatoryName: "Пиво", Code: "A", KindCode: 520, Capacity: 0.5, Quantity: 6, Price: decimal.NewFromInt(200)},
	}
	if err := db.ApplyAllocation("2026-08-30", entries, map[string]int{"A": 4}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := db.RevertAllocation("2026-08-30"); err != nil {
		t.Fatalf("revert: %v", err)
	}

	regs, err := db.ListRegulatoryProducts()
	if err != nil {
		t.Fatalf("list regulatory: %v", err)
	}
	if regs[0].Stock.Shop == nil || *regs[0].Stock.Shop != 10 {
		t.Fatalf("register not restored: %+v", regs[0].Stock)
	}
	stored, err := db.ListJournal("2026-08-30")
	if err != nil {
		t.Fatalf("list journal: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("journal rows survived the revert: %+v", stored)
	}

	// Reverting a date with no journal is a no-op.
	if err := db.RevertAllocation("2026-08-30"); err != nil {
		t.Fatalf("second revert: %v", err)
	}
	regs, err = db.ListRegulatoryProducts()
	if err != nil {
		t.Fatalf("list regulatory: %v", err)
	}
	if *regs[0].Stock.Shop != 10 {
		t.Fatalf("no-op revert moved the register: %+v", regs[0].Stock)
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)

	value, err := db.GetMetadata("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != nil {
		t.Fatalf("expected nil for missing key")
	}

	if err := db.SetMetadata("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetMetadata("k", "v2"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	value, err = db.GetMetadata("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value == nil || *value != "v2" {
		t.Fatalf("got %v", value)
	}
}

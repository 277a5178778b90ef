package commercial

import (
	"encoding/json"
	"testing"

	"beersync/internal"
	"beersync/internal/util"
)

func TestToProduct(t *testing.T) {
	qty := -3.0
	path := "Пиво/Крафт"
	row := assortmentRow{
		ID:       "c-1",
		Name:     "4Пивовара - Вброс (Gose - Fruited. ABV 4,5%, IBU 8)",
		PathName: &path,
		Quantity: &qty,
		SalePrices: []struct {
			Value float64 `json:"value"`
		}{{Value: 18999}},
	}

	product, ok := toProduct(row)
	if !ok {
		t.Fatalf("row was skipped")
	}
	if product.Brewery != "4Пивовара" || product.Name != "Вброс" {
		t.Fatalf("parse: %+v", product)
	}
	if product.Quantity != 0 {
		t.Fatalf("negative on-hand must clamp to 0, got %d", product.Quantity)
	}
	if product.Price.String() != "189.99" {
		t.Fatalf("price: %s", product.Price)
	}
}

func TestToProductSkipsBundles(t *testing.T) {
	row := assortmentRow{ID: "c-1", Name: "Разливное 1л (комплект)"}
	if _, ok := toProduct(row); ok {
		t.Fatalf("bundle row (no quantity) must be skipped")
	}
}

func TestToProductDraftFlags(t *testing.T) {
	qty := 5.0
	row := assortmentRow{ID: "c-1", Name: "Хочу Лагер (Lager. ABV 4%)", Quantity: &qty}
	row.Attributes = []struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	}{
		{Name: "Розлив", Value: json.RawMessage(`"Да"`)},
		{Name: "Код", Value: json.RawMessage(`"1"`)},
	}

	product, ok := toProduct(row)
	if !ok {
		t.Fatalf("row was skipped")
	}
	if !product.IsDraft {
		t.Fatalf("draft flag lost: %+v", product)
	}
	if product.Kind != internal.KindBeer {
		t.Fatalf("kind: %q", product.Kind)
	}
}

func TestToProductExplicitCapacity(t *testing.T) {
	qty := 5.0
	row := assortmentRow{
		ID:       "c-1",
		Name:     "Хочу Лагер (Lager. ABV 4%)",
		Quantity: &qty,
		Volume:   util.FloatPtr(0.45),
	}
	product, ok := toProduct(row)
	if !ok {
		t.Fatalf("row was skipped")
	}
	if product.Capacity != 0.45 {
		t.Fatalf("capacity: %v", product.Capacity)
	}
}

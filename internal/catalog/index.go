package catalog

import (
	"beersync/internal"
)

// Index holds the lookup structures the matcher and the allocator work
// against. It is built once per run from fresh snapshots; reusing an Index
// across runs is unsafe because link and stock state move underneath it.
type Index struct {
	CommercialByUUID map[string]internal.CommercialProduct
	CommercialByName map[string][]internal.CommercialProduct
	RegulatoryByCode map[string]internal.RegulatoryProduct

	// LinkedCodes preserves link insertion order per commercial product;
	// the allocator depletes codes first-linked-first.
	LinkedCodes map[string][]string
}

func BuildIndex(commercial []internal.CommercialProduct, regulatory []internal.RegulatoryProduct, links []internal.Link) *Index {
	idx := &Index{
		CommercialByUUID: map[string]internal.CommercialProduct{},
		CommercialByName: map[string][]internal.CommercialProduct{},
		RegulatoryByCode: map[string]internal.RegulatoryProduct{},
		LinkedCodes:      map[string][]string{},
	}

	for _, p := range commercial {
		idx.CommercialByUUID[p.UUID] = p
		idx.CommercialByName[p.Name] = append(idx.CommercialByName[p.Name], p)
	}
	for _, g := range regulatory {
		idx.RegulatoryByCode[g.Code] = g
	}
	for _, link := range links {
		if idx.HasLink(link.UUID, link.Code) {
			continue
		}
		idx.LinkedCodes[link.UUID] = append(idx.LinkedCodes[link.UUID], link.Code)
	}

	return idx
}

func (idx *Index) HasLink(uuid, code string) bool {
	for _, linked := range idx.LinkedCodes[uuid] {
		if linked == code {
			return true
		}
	}
	return false
}

// Candidates returns the non-draft commercial products with the given
// short name, narrowed by brewery when one is supplied.
func (idx *Index) Candidates(name, brewery string) []internal.CommercialProduct {
	var out []internal.CommercialProduct
	for _, p := range idx.CommercialByName[name] {
		if p.IsDraft {
			continue
		}
		if brewery != "" && p.Brewery != brewery {
			continue
		}
		out = append(out, p)
	}
	return out
}

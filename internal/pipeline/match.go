package pipeline

import (
	"beersync/internal"
	"beersync/internal/catalog"
)

// Matcher links correspondence rows to catalog entries. Matching only ever
// adds links; re-running it with the same inputs is a no-op.
type Matcher struct {
	idx *catalog.Index
}

func NewMatcher(idx *catalog.Index) *Matcher {
	return &Matcher{idx: idx}
}

// Match walks the correspondence rows in order and returns the links to
// create plus the rows it refused, each with a reason for review. Rows
// that duplicate an existing link produce neither.
func (m *Matcher) Match(rows []internal.CorrespondenceRow) ([]internal.Link, []internal.Rejection) {
	links := make([]internal.Link, 0, len(rows))
	var rejections []internal.Rejection

	created := map[internal.Link]struct{}{}
	addLink := func(uuid, code string) {
		link := internal.Link{UUID: uuid, Code: code}
		if m.idx.HasLink(uuid, code) {
			return
		}
		if _, ok := created[link]; ok {
			return
		}
		created[link] = struct{}{}
		links = append(links, link)
	}

	for _, row := range rows {
		if row.Code == "" {
			rejections = append(rejections, internal.Rejection{Row: row, Reason: internal.ReasonMissingCode})
			continue
		}

		regulatory, ok := m.idx.RegulatoryByCode[row.Code]
		if !ok {
			rejections = append(rejections, internal.Rejection{Row: row, Reason: internal.ReasonUnknownCode})
			continue
		}

		candidates := m.idx.Candidates(row.ShortName(), row.Brewery())
		switch {
		case len(candidates) == 0:
			rejections = append(rejections, internal.Rejection{Row: row, Reason: internal.ReasonNotFound})

		case len(candidates) == 1:
			addLink(candidates[0].UUID, regulatory.Code)

		default:
			// Several size variants share the name; the container
			// capacity decides. Every capacity match gets a link:
			// the same beer under one code may exist as separate
			// POS entries.
			narrowed := candidates[:0:0]
			for _, p := range candidates {
				if p.Capacity == regulatory.Capacity {
					narrowed = append(narrowed, p)
				}
			}
			if len(narrowed) == 0 {
				rejections = append(rejections, internal.Rejection{Row: row, Reason: internal.ReasonAmbiguous})
				continue
			}
			for _, p := range narrowed {
				addLink(p.UUID, regulatory.Code)
			}
		}
	}

	return links, rejections
}

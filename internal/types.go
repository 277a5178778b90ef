package internal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BeverageKind classifies a commercial product by what is in the container.
type BeverageKind string

const (
	KindBeer     BeverageKind = "beer"
	KindCider    BeverageKind = "cider"
	KindMead     BeverageKind = "mead"
	KindKombucha BeverageKind = "kombucha"
	KindLemonade BeverageKind = "lemonade"
	KindOther    BeverageKind = "other"
)

// ExciseTracked reports whether sales of this kind are written to the
// regulatory sales journal. Kombucha and lemonade live in the same POS
// folder but are not excise goods.
func (k BeverageKind) ExciseTracked() bool {
	switch k {
	case KindBeer, KindCider, KindMead:
		return true
	default:
		return false
	}
}

// ParsedName holds the structured attributes recovered from a raw POS
// product name.
type ParsedName struct {
	Brewery  string
	Name     string
	Style    string
	ABV      float64
	OG       float64
	IBU      int
	IsAlco   bool
	IsDraft  bool
	Kind     BeverageKind
	Capacity float64
}

// CommercialProduct is one POS catalog entry after name parsing. The set is
// replaced wholesale on every sync; records are never merged in place.
type CommercialProduct struct {
	UUID       string
	ParentUUID string
	FullName   string
	PathName   string
	Brewery    string
	Name       string
	Style      string
	ABV        float64
	OG         float64
	IBU        int
	IsAlco     bool
	IsDraft    bool
	Kind       BeverageKind
	Capacity   float64
	Price      decimal.Decimal
	Quantity   int
}

// DisplayName is the name the correspondence table and the journal use.
func (p CommercialProduct) DisplayName() string {
	if p.Brewery == "" {
		return p.Name
	}
	return p.Brewery + " - " + p.Name
}

// Producer is an excise-registered manufacturer. INN is nil for foreign
// producers.
type Producer struct {
	FSRARID   string
	ShortName string
	FullName  string
	INN       *string
}

// BulkCapacity is the sentinel the regulatory feed implies when a product
// has no container size (kegs).
const BulkCapacity = 99.0

// draftCapacityThreshold separates packaged goods from kegs on the
// regulatory side.
const draftCapacityThreshold = 10.0

// RegulatoryProduct is one excise catalog entry keyed by its government
// product code.
type RegulatoryProduct struct {
	Code     string
	FullName string
	Producer Producer
	Capacity float64
	KindCode int
	Stock    RegulatoryStock
}

func (g RegulatoryProduct) IsDraft() bool {
	return g.Capacity > draftCapacityThreshold
}

// RegulatoryStock holds the register quantities reported for a code. Nil
// means the service has no stock row for the register yet.
type RegulatoryStock struct {
	Warehouse *int
	Shop      *int
}

// Link associates a commercial product with a regulatory code. Many-to-many:
// the same beer arrives in several batches, each batch with its own code.
type Link struct {
	UUID string
	Code string
}

// CorrespondenceRow is one row of the externally maintained mapping table.
// The display name follows the catalog convention: "Brewery - Name", with
// the delimiter absent when no brewery is given.
type CorrespondenceRow struct {
	Name string
	Code string
}

func (r CorrespondenceRow) Brewery() string {
	if parts := strings.SplitN(r.Name, " - ", 2); len(parts) == 2 {
		return parts[0]
	}
	return ""
}

func (r CorrespondenceRow) ShortName() string {
	if parts := strings.SplitN(r.Name, " - ", 2); len(parts) == 2 {
		return parts[1]
	}
	return r.Name
}

// RejectReason explains why the matcher refused a correspondence row.
type RejectReason string

const (
	ReasonMissingCode RejectReason = "missing code"
	ReasonUnknownCode RejectReason = "unknown excise code"
	ReasonNotFound    RejectReason = "not found in commercial catalog, possibly draft"
	ReasonAmbiguous   RejectReason = "ambiguous, no capacity match"
)

// Rejection pairs a refused correspondence row with the reason, for
// operator review.
type Rejection struct {
	Row    CorrespondenceRow
	Reason RejectReason
}

// SaleLine is one demand or return position as the POS reports it.
type SaleLine struct {
	UUID     string
	Quantity int
}

// SaleRecord is the net quantity sold for one commercial product on one
// date, already floored at zero.
type SaleRecord struct {
	UUID     string
	Quantity int
}

// JournalEntry is one consumption row of the regulatory sales journal for
// a date.
type JournalEntry struct {
	CommercialName string
	RegulatoryName string
	Code           string
	KindCode       int
	Capacity       float64
	Quantity       int
	Price          decimal.Decimal
}

func (e JournalEntry) String() string {
	return fmt.Sprintf("%s -> %s x%d", e.CommercialName, e.Code, e.Quantity)
}

package models

import (
	"math"
	"time"
)

// Stock represents the availability state reported by the catalog.
type Stock string

const (
	StockOutOfStock Stock = "OutOfStock"
	StockInStock    Stock = "InStock"
	StockPreOrder   Stock = "PreOrder"
)

// Product is one listing tile from the catalog grid. The same phone appears
// as separate products per condition ("new", "like-new") sharing a model key.
type Product struct {
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Condition string `json:"condition"`
	Link      string `json:"link"`
}

// Variant is one spec/color combination scraped from a product detail page.
// Prices are in minor currency units (pence).
type Variant struct {
	Spec      string `json:"spec"`
	Color     string `json:"color"`
	Stock     Stock  `json:"stock"`
	CashPrice int64  `json:"cash_price"`
	RRP       int64  `json:"rrp"`
}

// ProductVariant joins a Variant with its product identity. It is the atomic
// unit of comparison for ranking, dedup, and snapshot persistence.
type ProductVariant struct {
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Spec      string `json:"spec"`
	Color     string `json:"color"`
	Condition string `json:"condition"`
	Stock     Stock  `json:"stock"`
	CashPrice int64  `json:"cash_price"`
	RRP       int64  `json:"rrp"`
	Link      string `json:"link"`
}

// ModelKey groups variants that share a reference price. Conditions and
// colors of the same phone spec all resolve to one key, so the used listing
// can borrow the new listing's rrp as its value anchor.
type ModelKey struct {
	Brand string
	Model string
	Spec  string
}

// DealKey identifies one reportable offer. Colors of the same offer collapse
// onto a single key; only the best-priced color survives dedup.
type DealKey struct {
	Brand     string
	Model     string
	Spec      string
	Condition string
}

func (v ProductVariant) ModelKey() ModelKey {
	return ModelKey{Brand: v.Brand, Model: v.Model, Spec: v.Spec}
}

func (v ProductVariant) DealKey() DealKey {
	return DealKey{Brand: v.Brand, Model: v.Model, Spec: v.Spec, Condition: v.Condition}
}

// RankedVariant pairs a variant with the reference price of its model key at
// ranking time.
type RankedVariant struct {
	ReferencePrice int64          `json:"reference_price"`
	Variant        ProductVariant `json:"variant"`
}

// ValueRatio is the ranking criterion: cash price as a fraction of the
// reference price, lower is a better deal. A zero reference price yields
// +Inf so the variant sorts after every priced one instead of panicking.
func (r RankedVariant) ValueRatio() float64 {
	if r.ReferencePrice == 0 {
		return math.Inf(1)
	}
	return float64(r.Variant.CashPrice) / float64(r.ReferencePrice)
}

// RowKind classifies a report row against the previous snapshot.
type RowKind string

const (
	RowKindNewDeal     RowKind = "new_deal"
	RowKindPriceUpdate RowKind = "price_update"
)

// ReportRow is one reportable delta. PreviousPrice is nil for new deals.
type ReportRow struct {
	Kind           RowKind        `json:"kind"`
	Variant        ProductVariant `json:"variant"`
	ReferencePrice int64          `json:"reference_price"`
	PreviousPrice  *int64         `json:"previous_price,omitempty"`
}

// DealReport is the engine output: emitted rows in ranked order plus the
// full accepted set to rewrite the snapshot with. Accepted keeps ranked
// order and includes members that produced no row (unchanged prices), since
// the snapshot must stay current for them too.
type DealReport struct {
	Rows     []ReportRow     `json:"rows"`
	Accepted []RankedVariant `json:"accepted"`
}

// HasChanges reports whether the run produced anything worth notifying. A
// report without changes must not touch the snapshot store.
func (r *DealReport) HasChanges() bool {
	return len(r.Rows) > 0
}

// RunSummary records the outcome of one deal-update run for the API surface.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`
	Products    int       `json:"products"`
	Variants    int       `json:"variants"`
	RowsEmitted int       `json:"rows_emitted"`
	ReportText  string    `json:"report_text"`
}

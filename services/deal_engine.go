package services

import (
	"sort"

	"github.com/fenilmodi00/deals-backend/models"
)

// DealEngine ranks variants by value, dedups them to one offer per
// (brand, model, spec, condition) key, and diffs the survivors against the
// previous snapshot. It is pure: no I/O, deterministic for a given input,
// safe to call once all fetching has completed.
type DealEngine struct {
	resultLimit int
}

// NewDealEngine creates an engine that reports at most resultLimit deals.
func NewDealEngine(resultLimit int) *DealEngine {
	return &DealEngine{resultLimit: resultLimit}
}

// ComputeReferencePrices accumulates the maximum rrp per model key over the
// whole variant set. It must see the unfiltered set, out-of-stock variants
// included: used-phone rrp is depressed or absent, so the anchor usually
// comes from the new-condition variant even when that one cannot be ranked.
// Unseen keys read as zero.
func (e *DealEngine) ComputeReferencePrices(variants []models.ProductVariant) map[models.ModelKey]int64 {
	referencePrices := make(map[models.ModelKey]int64)

	for _, variant := range variants {
		key := variant.ModelKey()
		if variant.RRP > referencePrices[key] {
			referencePrices[key] = variant.RRP
		}
	}

	return referencePrices
}

// RankByValue filters out-of-stock variants and orders the rest ascending by
// cash price as a fraction of the reference price. The sort is stable and
// keyed on the ratio only, so equal ratios keep their fetch order. Variants
// whose model key has a zero reference price get a +Inf ratio and sort last
// instead of crashing the run.
func (e *DealEngine) RankByValue(variants []models.ProductVariant, referencePrices map[models.ModelKey]int64) []models.RankedVariant {
	ranked := make([]models.RankedVariant, 0, len(variants))
	for _, variant := range variants {
		if variant.Stock == models.StockOutOfStock {
			continue
		}
		ranked = append(ranked, models.RankedVariant{
			ReferencePrice: referencePrices[variant.ModelKey()],
			Variant:        variant,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ValueRatio() < ranked[j].ValueRatio()
	})

	return ranked
}

// SelectBestDeals walks the ranked sequence and accepts at most the result
// limit of distinct deal keys, first wins. A worse-ranked duplicate (another
// color of an already-claimed offer) is discarded without counting toward
// the limit and can never displace the claimed variant.
func (e *DealEngine) SelectBestDeals(ranked []models.RankedVariant) []models.RankedVariant {
	claimed := make(map[models.DealKey]struct{})
	var accepted []models.RankedVariant

	for _, candidate := range ranked {
		if len(accepted) >= e.resultLimit {
			break
		}

		key := candidate.Variant.DealKey()
		if _, taken := claimed[key]; taken {
			continue
		}

		claimed[key] = struct{}{}
		accepted = append(accepted, candidate)
	}

	return accepted
}

// DiffAgainstSnapshot classifies each accepted deal against the previous
// snapshot: absent keys become new-deal rows, changed prices become
// price-update rows carrying both prices, and unchanged prices are
// suppressed. The accepted set is returned in full either way — unchanged
// deals still belong in the rewritten snapshot.
func (e *DealEngine) DiffAgainstSnapshot(accepted []models.RankedVariant, previous map[models.DealKey]models.ProductVariant) *models.DealReport {
	report := &models.DealReport{Accepted: accepted}

	for _, deal := range accepted {
		previousDeal, seen := previous[deal.Variant.DealKey()]
		if !seen {
			report.Rows = append(report.Rows, models.ReportRow{
				Kind:           models.RowKindNewDeal,
				Variant:        deal.Variant,
				ReferencePrice: deal.ReferencePrice,
			})
			continue
		}

		if deal.Variant.CashPrice == previousDeal.CashPrice {
			// Seen before at the same price, nothing to notify.
			continue
		}

		previousPrice := previousDeal.CashPrice
		report.Rows = append(report.Rows, models.ReportRow{
			Kind:           models.RowKindPriceUpdate,
			Variant:        deal.Variant,
			ReferencePrice: deal.ReferencePrice,
			PreviousPrice:  &previousPrice,
		})
	}

	return report
}

// BuildReport runs the full pass: reference prices over the unfiltered set,
// ranking, dedup-and-select, then the snapshot diff.
func (e *DealEngine) BuildReport(variants []models.ProductVariant, previous map[models.DealKey]models.ProductVariant) *models.DealReport {
	referencePrices := e.ComputeReferencePrices(variants)
	ranked := e.RankByValue(variants, referencePrices)
	accepted := e.SelectBestDeals(ranked)
	return e.DiffAgainstSnapshot(accepted, previous)
}

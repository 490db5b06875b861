package services

import (
	"testing"

	"github.com/fenilmodi00/deals-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variant(brand, model, spec, color, condition string, stock models.Stock, cashPrice, rrp int64) models.ProductVariant {
	return models.ProductVariant{
		Brand:     brand,
		Model:     model,
		Spec:      spec,
		Color:     color,
		Condition: condition,
		Stock:     stock,
		CashPrice: cashPrice,
		RRP:       rrp,
		Link:      "/shop/tariff/" + brand + "/" + model,
	}
}

func snapshotOf(deals ...models.ProductVariant) map[models.DealKey]models.ProductVariant {
	snapshot := make(map[models.DealKey]models.ProductVariant)
	for _, deal := range deals {
		snapshot[deal.DealKey()] = deal
	}
	return snapshot
}

func TestComputeReferencePricesTakesMaxAcrossConditions(t *testing.T) {
	engine := NewDealEngine(10)

	variants := []models.ProductVariant{
		variant("O2", "iphone-15", "memory:128gb", "black", "like-new", models.StockInStock, 45000, 48000),
		variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockInStock, 79900, 79900),
	}

	referencePrices := engine.ComputeReferencePrices(variants)

	key := models.ModelKey{Brand: "O2", Model: "iphone-15", Spec: "memory:128gb"}
	assert.Equal(t, int64(79900), referencePrices[key])
}

func TestComputeReferencePricesIncludesOutOfStock(t *testing.T) {
	engine := NewDealEngine(10)

	// The out-of-stock new variant carries the best rrp; it must still
	// anchor the reference price even though it never gets ranked.
	variants := []models.ProductVariant{
		variant("O2", "iphone-15", "memory:128gb", "black", "like-new", models.StockInStock, 45000, 48000),
		variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockOutOfStock, 79900, 89900),
	}

	referencePrices := engine.ComputeReferencePrices(variants)
	ranked := engine.RankByValue(variants, referencePrices)

	key := models.ModelKey{Brand: "O2", Model: "iphone-15", Spec: "memory:128gb"}
	assert.Equal(t, int64(89900), referencePrices[key])

	require.Len(t, ranked, 1)
	assert.Equal(t, "like-new", ranked[0].Variant.Condition)
	assert.Equal(t, int64(89900), ranked[0].ReferencePrice)
}

func TestComputeReferencePricesDefaultsToZero(t *testing.T) {
	engine := NewDealEngine(10)

	referencePrices := engine.ComputeReferencePrices(nil)
	assert.Zero(t, referencePrices[models.ModelKey{Brand: "O2", Model: "unseen", Spec: ""}])
}

func TestRankByValueOrdersByRatioAscending(t *testing.T) {
	engine := NewDealEngine(10)

	variants := []models.ProductVariant{
		variant("O2", "pixel-9", "memory:128gb", "black", "new", models.StockInStock, 60000, 100000),   // 0.60
		variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockInStock, 40000, 100000), // 0.40
	}

	ranked := engine.RankByValue(variants, engine.ComputeReferencePrices(variants))

	require.Len(t, ranked, 2)
	assert.Equal(t, "iphone-15", ranked[0].Variant.Model)
	assert.Equal(t, "pixel-9", ranked[1].Variant.Model)
}

func TestRankByValueExcludesOutOfStock(t *testing.T) {
	engine := NewDealEngine(10)

	variants := []models.ProductVariant{
		variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockOutOfStock, 40000, 100000),
		variant("O2", "pixel-9", "memory:128gb", "black", "new", models.StockPreOrder, 60000, 100000),
	}

	ranked := engine.RankByValue(variants, engine.ComputeReferencePrices(variants))

	require.Len(t, ranked, 1)
	assert.Equal(t, "pixel-9", ranked[0].Variant.Model)
}

func TestRankByValueZeroReferenceSortsLast(t *testing.T) {
	engine := NewDealEngine(10)

	variants := []models.ProductVariant{
		variant("O2", "no-rrp-phone", "memory:64gb", "black", "new", models.StockInStock, 10000, 0),
		variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockInStock, 90000, 100000), // 0.90
	}

	var ranked []models.RankedVariant
	require.NotPanics(t, func() {
		ranked = engine.RankByValue(variants, engine.ComputeReferencePrices(variants))
	})

	require.Len(t, ranked, 2)
	assert.Equal(t, "iphone-15", ranked[0].Variant.Model)
	assert.Equal(t, "no-rrp-phone", ranked[1].Variant.Model)
	assert.Zero(t, ranked[1].ReferencePrice)
}

func TestRankByValueTiesKeepFetchOrder(t *testing.T) {
	engine := NewDealEngine(10)

	variants := []models.ProductVariant{
		variant("O2", "first-seen", "memory:64gb", "black", "new", models.StockInStock, 50000, 100000),
		variant("O2", "second-seen", "memory:64gb", "black", "new", models.StockInStock, 40000, 80000),
	}

	ranked := engine.RankByValue(variants, engine.ComputeReferencePrices(variants))

	require.Len(t, ranked, 2)
	assert.Equal(t, "first-seen", ranked[0].Variant.Model)
	assert.Equal(t, "second-seen", ranked[1].Variant.Model)
}

func TestSelectBestDealsDedupsByColorFirstWins(t *testing.T) {
	engine := NewDealEngine(10)

	variants := []models.ProductVariant{
		variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockInStock, 40000, 100000),
		variant("O2", "iphone-15", "memory:128gb", "white", "new", models.StockInStock, 45000, 100000),
	}

	accepted := engine.SelectBestDeals(engine.RankByValue(variants, engine.ComputeReferencePrices(variants)))

	// The worse-ranked white color is dropped entirely, not merged.
	require.Len(t, accepted, 1)
	assert.Equal(t, "black", accepted[0].Variant.Color)
	assert.Equal(t, int64(40000), accepted[0].Variant.CashPrice)
}

func TestSelectBestDealsHonorsResultLimit(t *testing.T) {
	engine := NewDealEngine(2)

	variants := []models.ProductVariant{
		variant("O2", "phone-a", "memory:64gb", "black", "new", models.StockInStock, 30000, 100000), // 0.30
		variant("O2", "phone-b", "memory:64gb", "black", "new", models.StockInStock, 50000, 100000), // 0.50
		variant("O2", "phone-c", "memory:64gb", "black", "new", models.StockInStock, 40000, 100000), // 0.40
		variant("O2", "phone-d", "memory:64gb", "black", "new", models.StockInStock, 60000, 100000), // 0.60
		variant("O2", "phone-e", "memory:64gb", "black", "new", models.StockInStock, 70000, 100000), // 0.70
	}

	accepted := engine.SelectBestDeals(engine.RankByValue(variants, engine.ComputeReferencePrices(variants)))

	require.Len(t, accepted, 2)
	assert.Equal(t, "phone-a", accepted[0].Variant.Model)
	assert.Equal(t, "phone-c", accepted[1].Variant.Model)
}

func TestSelectBestDealsDuplicatesDoNotCountTowardLimit(t *testing.T) {
	engine := NewDealEngine(2)

	variants := []models.ProductVariant{
		variant("O2", "phone-a", "memory:64gb", "black", "new", models.StockInStock, 30000, 100000),
		variant("O2", "phone-a", "memory:64gb", "white", "new", models.StockInStock, 35000, 100000),
		variant("O2", "phone-b", "memory:64gb", "black", "new", models.StockInStock, 50000, 100000),
	}

	accepted := engine.SelectBestDeals(engine.RankByValue(variants, engine.ComputeReferencePrices(variants)))

	require.Len(t, accepted, 2)
	assert.Equal(t, "phone-a", accepted[0].Variant.Model)
	assert.Equal(t, "phone-b", accepted[1].Variant.Model)
}

func TestDiffClassifiesNewDeal(t *testing.T) {
	engine := NewDealEngine(10)

	variants := []models.ProductVariant{
		variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockInStock, 50000, 100000),
	}

	report := engine.BuildReport(variants, nil)

	require.Len(t, report.Rows, 1)
	assert.Equal(t, models.RowKindNewDeal, report.Rows[0].Kind)
	assert.Nil(t, report.Rows[0].PreviousPrice)
	assert.Equal(t, int64(50000), report.Rows[0].Variant.CashPrice)
	require.Len(t, report.Accepted, 1)
}

func TestDiffClassifiesPriceUpdate(t *testing.T) {
	engine := NewDealEngine(10)

	current := variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockInStock, 50000, 100000)
	previous := current
	previous.CashPrice = 55000

	report := engine.BuildReport([]models.ProductVariant{current}, snapshotOf(previous))

	require.Len(t, report.Rows, 1)
	assert.Equal(t, models.RowKindPriceUpdate, report.Rows[0].Kind)
	require.NotNil(t, report.Rows[0].PreviousPrice)
	assert.Equal(t, int64(55000), *report.Rows[0].PreviousPrice)
	assert.Equal(t, int64(50000), report.Rows[0].Variant.CashPrice)
}

func TestDiffSuppressesUnchangedButKeepsAccepted(t *testing.T) {
	engine := NewDealEngine(10)

	unchanged := variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockInStock, 50000, 100000)
	changed := variant("O2", "pixel-9", "memory:128gb", "black", "new", models.StockInStock, 60000, 100000)
	previousPixel := changed
	previousPixel.CashPrice = 65000

	report := engine.BuildReport(
		[]models.ProductVariant{unchanged, changed},
		snapshotOf(unchanged, previousPixel),
	)

	require.Len(t, report.Rows, 1)
	assert.Equal(t, "pixel-9", report.Rows[0].Variant.Model)

	// The unchanged deal emits no row but still belongs in the snapshot.
	require.Len(t, report.Accepted, 2)
}

func TestDiffIsIdempotent(t *testing.T) {
	engine := NewDealEngine(10)

	variants := []models.ProductVariant{
		variant("O2", "iphone-15", "memory:128gb", "black", "new", models.StockInStock, 50000, 100000),
		variant("O2", "pixel-9", "memory:128gb", "black", "new", models.StockInStock, 60000, 100000),
	}

	firstReport := engine.BuildReport(variants, nil)
	require.Len(t, firstReport.Rows, 2)

	snapshot := make(map[models.DealKey]models.ProductVariant)
	for _, deal := range firstReport.Accepted {
		snapshot[deal.Variant.DealKey()] = deal.Variant
	}

	secondReport := engine.BuildReport(variants, snapshot)
	assert.Empty(t, secondReport.Rows)
	assert.False(t, secondReport.HasChanges())
}

package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
)

func TestCleanInventory(t *testing.T) {
	tests := []struct {
		name      string
		row       invRow
		check     func(t *testing.T, rec domain.InventoryRecord)
		field     string
		kind      CorrectionKind
		wantCount int
	}{
		{
			name: "negative stock corrected to zero",
			row:  invRow{Article: "A1", Site: "S1", RPType: "RF", Stock: "-5", Source: "1"},
			check: func(t *testing.T, rec domain.InventoryRecord) {
				assert.Equal(t, int64(0), rec.StockOnHand)
				assert.Contains(t, rec.Notes, "SaSa Net Stock: corrected negative value -5 to 0")
			},
			field: ColStockOnHand, kind: CorrectionNegative, wantCount: 1,
		},
		{
			name: "last month outlier capped",
			row:  invRow{Article: "A1", Site: "S1", RPType: "RF", LastMonth: "150000", Source: "1"},
			check: func(t *testing.T, rec domain.InventoryRecord) {
				assert.Equal(t, int64(100000), rec.LastMonthSoldQty)
				assert.Contains(t, rec.Notes, "Last Month Sold Qty: capped outlier 150000 to 100000")
			},
			field: ColLastMonthSold, kind: CorrectionOutlier, wantCount: 1,
		},
		{
			name: "unparsable number becomes zero",
			row:  invRow{Article: "A1", Site: "S1", RPType: "RF", MOQ: "ten", Source: "1"},
			check: func(t *testing.T, rec domain.InventoryRecord) {
				assert.Equal(t, int64(0), rec.MOQ)
				assert.Contains(t, rec.Notes, `MOQ: invalid number "ten" set to 0`)
			},
			field: ColMOQ, kind: CorrectionInvalidNumeric, wantCount: 1,
		},
		{
			name: "moq beyond exact float range becomes zero",
			row:  invRow{Article: "A1", Site: "S1", RPType: "RF", MOQ: "9223372036854775807", Source: "1"},
			check: func(t *testing.T, rec domain.InventoryRecord) {
				assert.Equal(t, int64(0), rec.MOQ)
				assert.Contains(t, rec.Notes, "MOQ: out of range number 9223372036854775807 set to 0 (1 row)")
			},
			field: ColMOQ, kind: CorrectionInvalidNumeric, wantCount: 1,
		},
		{
			name: "unknown supply source replaced",
			row:  invRow{Article: "A1", Site: "S1", RPType: "RF", Source: "9"},
			check: func(t *testing.T, rec domain.InventoryRecord) {
				assert.Equal(t, domain.InvalidSupplySource, rec.SupplySource)
			},
			field: ColSupplySource, kind: CorrectionInvalidCode, wantCount: 1,
		},
	}

	c := NewCleaner(DefaultSettings())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, log := c.CleanInventory(inventoryTable(tt.row))
			require.Len(t, recs, 1)
			tt.check(t, recs[0])
			assert.Equal(t, tt.wantCount, log.Count(tt.field, tt.kind))
		})
	}
}

func TestCleanInventoryCoercion(t *testing.T) {
	c := NewCleaner(DefaultSettings())
	recs, log := c.CleanInventory(inventoryTable(
		invRow{Article: " A1 ", Site: " S1 ", RPType: "rf", MOQ: "1,200", Stock: "2.5", Pending: "", Safety: "-0.4", Source: "2.0"},
		invRow{Article: "A2", Site: "S1", RPType: "ND", MOQ: "6", Stock: "3", Source: "4", QI: "7", Blocked: "1"},
	))
	require.Len(t, recs, 2)

	a1 := recs[0]
	assert.Equal(t, "A1", a1.Article)
	assert.Equal(t, "S1", a1.Site)
	assert.Equal(t, "RF", a1.RPType)
	assert.Equal(t, int64(1200), a1.MOQ)
	assert.Equal(t, int64(3), a1.StockOnHand, "half rounds away from zero")
	assert.Equal(t, int64(0), a1.PendingReceived)
	assert.Equal(t, int64(0), a1.SafetyStock)
	assert.Equal(t, "2", a1.SupplySource)
	assert.Equal(t, 1, log.Count(ColSafetyStock, CorrectionNegative))

	a2 := recs[1]
	assert.Equal(t, domain.NoCorrectionsNote, a2.Notes)
	assert.Equal(t, int64(7), a2.InQualityInspectionQty)
	assert.Equal(t, int64(1), a2.BlockedQty)
}

func TestCleanInventoryQuantitiesNeverNegative(t *testing.T) {
	c := NewCleaner(DefaultSettings())
	values := []string{"-1", "-99999999", "-0.6", "abc", "", "0", "12", "1e3", "250000"}

	for _, v := range values {
		recs, _ := c.CleanInventory(inventoryTable(invRow{
			Article: "A", Site: "S", MOQ: v, Stock: v, Pending: v, Safety: v, LastMonth: v, MTD: v, QI: v, Blocked: v,
		}))
		r := recs[0]
		for _, q := range []int64{r.MOQ, r.StockOnHand, r.PendingReceived, r.SafetyStock, r.LastMonthSoldQty, r.MTDSoldQty, r.InQualityInspectionQty, r.BlockedQty} {
			assert.GreaterOrEqual(t, q, int64(0), "value %q", v)
		}
		assert.LessOrEqual(t, r.LastMonthSoldQty, int64(100000))
		assert.LessOrEqual(t, r.MTDSoldQty, int64(100000))
	}
}

func TestCleanInventoryNotesAreCumulative(t *testing.T) {
	c := NewCleaner(DefaultSettings())
	recs, log := c.CleanInventory(inventoryTable(
		invRow{Article: "A1", Site: "S1", Stock: "-5", MTD: "200000", Source: "1"},
		invRow{Article: "A2", Site: "S1", Stock: "-1", Source: "1"},
	))

	assert.Equal(t, "SaSa Net Stock: corrected negative value -5 to 0 (2 rows); MTD Sold Qty: capped outlier 200000 to 100000 (1 row)", recs[0].Notes)
	assert.Equal(t, "SaSa Net Stock: corrected negative value -1 to 0 (2 rows)", recs[1].Notes)
	assert.Equal(t, 2, log.Count(ColStockOnHand, CorrectionNegative))
	assert.Equal(t, 1, log.Count(ColMTDSold, CorrectionOutlier))
	assert.Equal(t, 3, log.Total())
}

func TestCleanTargets(t *testing.T) {
	c := NewCleaner(DefaultSettings())

	sku, skuLog := c.CleanSkuTargets(skuTable([]string{"1.0", " A1 ", "-100", " hk ", "7", "14"}))
	require.Len(t, sku, 1)
	assert.Equal(t, "1", sku[0].GroupNo)
	assert.Equal(t, "A1", sku[0].Article)
	assert.Equal(t, int64(0), sku[0].SKUTarget)
	assert.Equal(t, "HK", sku[0].TargetType)
	assert.Equal(t, 1, skuLog.Count(ColSKUTarget, CorrectionNegative))

	shop, shopLog := c.CleanShopTargets(shopTable([]string{"S1", "50%", "-0.2", "x"}))
	require.Len(t, shop, 1)
	assert.InDelta(t, 0.5, shop[0].ShopTargetHK, 1e-9)
	assert.Equal(t, 0.0, shop[0].ShopTargetMO)
	assert.Equal(t, 0.0, shop[0].ShopTargetALL)
	assert.Equal(t, 1, shopLog.Count(ColShopTargetMO, CorrectionNegative))
	assert.Equal(t, 1, shopLog.Count(ColShopTargetALL, CorrectionInvalidNumeric))
}

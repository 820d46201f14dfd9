package dispatch

import "github.com/andresuchdata/promo-dispatch/internal/table"

// Table names used in errors and correction logs.
const (
	TableInventory   = "inventory"
	TableSkuTargets  = "sku_targets"
	TableShopTargets = "shop_targets"
)

// Column headers as they appear in the source workbooks.
const (
	ColArticle            = "Article"
	ColArticleDescription = "Article Description"
	ColRPType             = "RP Type"
	ColSite               = "Site"
	ColMOQ                = "MOQ"
	ColStockOnHand        = "SaSa Net Stock"
	ColPendingReceived    = "Pending Received"
	ColSafetyStock        = "Safety Stock"
	ColLastMonthSold      = "Last Month Sold Qty"
	ColMTDSold            = "MTD Sold Qty"
	ColSupplySource       = "Supply source"
	ColBuyerGroup         = "Description p. group"
	ColInQualityInsp      = "In Quality Insp. Qty"
	ColBlocked            = "Blocked Qty"
	ColNotes              = "Notes"

	ColGroupNo         = "Group No."
	ColSKUTarget       = "SKU Target"
	ColTargetType      = "Target Type"
	ColPromotionDays   = "Promotion Days"
	ColTargetCoverDays = "Target Cover Days"

	ColShopTargetHK  = "Shop Target(HK)"
	ColShopTargetMO  = "Shop Target(MO)"
	ColShopTargetALL = "Shop Target(ALL)"
)

var (
	InventoryColumns = []string{
		ColArticle, ColArticleDescription, ColRPType, ColSite, ColMOQ, ColStockOnHand,
		ColPendingReceived, ColSafetyStock, ColLastMonthSold, ColMTDSold, ColSupplySource, ColBuyerGroup,
	}
	SkuTargetColumns = []string{
		ColGroupNo, ColArticle, ColSKUTarget, ColTargetType, ColPromotionDays, ColTargetCoverDays,
	}
	ShopTargetColumns = []string{
		ColSite, ColShopTargetHK, ColShopTargetMO, ColShopTargetALL,
	}
)

// MissingColumns returns every required column absent from t, in declaration order.
func MissingColumns(t table.Table, required []string) []string {
	var missing []string
	for _, col := range required {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// ValidateInputs checks all three tables and reports every gap at once.
func ValidateInputs(in Inputs) error {
	checks := []struct {
		name     string
		tbl      table.Table
		required []string
	}{
		{TableInventory, in.Inventory, InventoryColumns},
		{TableSkuTargets, in.SkuTargets, SkuTargetColumns},
		{TableShopTargets, in.ShopTargets, ShopTargetColumns},
	}

	var schemaErr *SchemaError
	for _, c := range checks {
		missing := MissingColumns(c.tbl, c.required)
		if len(missing) == 0 {
			continue
		}
		if schemaErr == nil {
			schemaErr = &SchemaError{}
		}
		schemaErr.Tables = append(schemaErr.Tables, MissingFields{Table: c.name, Fields: missing})
	}

	if schemaErr != nil {
		return schemaErr
	}
	return nil
}

package domain

// InventoryRecord is one cleaned inventory row, keyed by Article and Site.
type InventoryRecord struct {
	Article                string `json:"article"`
	Site                   string `json:"site"`
	ArticleDescription     string `json:"article_description"`
	BuyerGroup             string `json:"buyer_group"`
	RPType                 string `json:"rp_type"`
	MOQ                    int64  `json:"moq"`
	StockOnHand            int64  `json:"stock_on_hand"`
	PendingReceived        int64  `json:"pending_received"`
	SafetyStock            int64  `json:"safety_stock"`
	LastMonthSoldQty       int64  `json:"last_month_sold_qty"`
	MTDSoldQty             int64  `json:"mtd_sold_qty"`
	InQualityInspectionQty int64  `json:"in_quality_inspection_qty"`
	BlockedQty             int64  `json:"blocked_qty"`
	SupplySource           string `json:"supply_source"`
	Notes                  string `json:"notes"`
}

// SkuPromotionTarget is one row of the SKU target sheet.
type SkuPromotionTarget struct {
	GroupNo         string `json:"group_no"`
	Article         string `json:"article"`
	SKUTarget       int64  `json:"sku_target"`
	TargetType      string `json:"target_type"`
	PromotionDays   int64  `json:"promotion_days"`
	TargetCoverDays int64  `json:"target_cover_days"`
}

// ShopPromotionTarget holds the per-site quota fractions.
type ShopPromotionTarget struct {
	Site          string  `json:"site"`
	ShopTargetHK  float64 `json:"shop_target_hk"`
	ShopTargetMO  float64 `json:"shop_target_mo"`
	ShopTargetALL float64 `json:"shop_target_all"`
}

// MergedRecord is an inventory row joined with its promotion targets plus
// every value the demand calculator derives from it.
type MergedRecord struct {
	InventoryRecord
	GroupNo         string  `json:"group_no"`
	SKUTarget       int64   `json:"sku_target"`
	TargetType      string  `json:"target_type"`
	PromotionDays   int64   `json:"promotion_days"`
	TargetCoverDays int64   `json:"target_cover_days"`
	ShopTargetHK    float64 `json:"shop_target_hk"`
	ShopTargetMO    float64 `json:"shop_target_mo"`
	ShopTargetALL   float64 `json:"shop_target_all"`

	DailySalesRate       float64 `json:"daily_sales_rate"`
	SiteTargetPct        float64 `json:"site_target_pct"`
	RegularDemand        float64 `json:"regular_demand"`
	PooledRegularDemand  float64 `json:"pooled_regular_demand"`
	PromotionDemand      float64 `json:"promotion_demand"`
	TotalDemand          float64 `json:"total_demand"`
	AvailableStock       int64   `json:"available_stock"`
	NetDemand            float64 `json:"net_demand"`
	SuggestedDispatchQty int64   `json:"suggested_dispatch_qty"`
	DispatchType         string  `json:"dispatch_type"`
	CalculationNotes     string  `json:"calculation_notes"`
}

// SummaryRecord is the (GroupNo, Article) rollup of branch and depot figures.
type SummaryRecord struct {
	GroupNo                  string  `json:"group_no"`
	Article                  string  `json:"article"`
	BranchTotalDemand        float64 `json:"branch_total_demand"`
	BranchStockOnHand        int64   `json:"branch_stock_on_hand"`
	BranchPendingReceived    int64   `json:"branch_pending_received"`
	BranchSuggestedDispatch  int64   `json:"branch_suggested_dispatch"`
	DepotStockOnHand         int64   `json:"depot_stock_on_hand"`
	DepotInQualityInspection int64   `json:"depot_in_quality_inspection"`
	DepotBlocked             int64   `json:"depot_blocked"`
	DepotPendingReceived     int64   `json:"depot_pending_received"`
	TotalStockAvailable      int64   `json:"total_stock_available"`
	OutOfStockWarning        string  `json:"out_of_stock_warning"`
}

package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
	"github.com/andresuchdata/promo-dispatch/internal/table"
)

// SalesPolicy selects how the daily sales rate is derived.
type SalesPolicy string

const (
	// SalesPolicyLastMonth uses LastMonthSoldQty / 30.
	SalesPolicyLastMonth SalesPolicy = "last_month"
	// SalesPolicyBlended averages the last-month rate with the month-to-date rate.
	SalesPolicyBlended SalesPolicy = "blended"
)

const daysInMonth = 30

// ParseSalesPolicy accepts the policy names case-insensitively; "" maps to last_month.
func ParseSalesPolicy(s string) (SalesPolicy, error) {
	switch SalesPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SalesPolicyLastMonth:
		return SalesPolicyLastMonth, nil
	case SalesPolicyBlended:
		return SalesPolicyBlended, nil
	}
	return "", fmt.Errorf("%w: unknown sales policy %q", ErrInvalidParams, s)
}

// Settings are the engine-wide tunables, fixed for the lifetime of an Engine.
type Settings struct {
	DepotSite           string
	OutlierThreshold    int64
	SalesPolicy         SalesPolicy
	ValidSupplySources  []string
	BuyerSupplySources  []string
	RPTeamSupplySources []string
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		DepotSite:           domain.DefaultDepotSite,
		OutlierThreshold:    100000,
		SalesPolicy:         SalesPolicyLastMonth,
		ValidSupplySources:  []string{"1", "2", "4"},
		BuyerSupplySources:  []string{"1", "4"},
		RPTeamSupplySources: []string{"2"},
	}
}

// Params are the per-run inputs besides the tables.
type Params struct {
	// RunID is generated when empty.
	RunID string `json:"run_id"`
	// LeadTime in days, used as given.
	LeadTime float64 `json:"lead_time"`
	// SalesPolicy; empty selects Settings.SalesPolicy.
	SalesPolicy SalesPolicy `json:"sales_policy"`
	// AsOf stamps the calculation notes and drives the blended policy.
	// Zero means the engine clock.
	AsOf time.Time `json:"as_of"`
}

// Inputs are the three raw tables of a run.
type Inputs struct {
	Inventory   table.Table `json:"inventory"`
	SkuTargets  table.Table `json:"sku_targets"`
	ShopTargets table.Table `json:"shop_targets"`
}

// Clone returns a deep copy so concurrent runs never share cells.
func (in Inputs) Clone() Inputs {
	return Inputs{
		Inventory:   in.Inventory.Clone(),
		SkuTargets:  in.SkuTargets.Clone(),
		ShopTargets: in.ShopTargets.Clone(),
	}
}

// Stats are the headline figures of a run.
type Stats struct {
	TotalRecords           int            `json:"total_records"`
	TotalDemand            float64        `json:"total_demand"`
	TotalSuggestedDispatch int64          `json:"total_suggested_dispatch"`
	AverageDailySalesRate  float64        `json:"average_daily_sales_rate"`
	DispatchTypeCounts     map[string]int `json:"dispatch_type_counts"`
}

// Result is everything a run hands back. Err is nil on success and Message is always set.
type Result struct {
	RunID       string                 `json:"run_id"`
	Params      Params                 `json:"params"`
	Records     []domain.MergedRecord  `json:"records"`
	Summary     []domain.SummaryRecord `json:"summary"`
	Stats       Stats                  `json:"stats"`
	Corrections CorrectionLog          `json:"corrections"`
	Message     string                 `json:"message"`
	Err         error                  `json:"-"`
}

// Restamp returns a copy of r attributed to another run with the same inputs.
// Only the run ID, the params and the calculation notes change.
func (r Result) Restamp(p Params) Result {
	out := r
	out.RunID = p.RunID
	out.Params = p
	if r.Records != nil {
		out.Records = make([]domain.MergedRecord, len(r.Records))
		for i, rec := range r.Records {
			rec.CalculationNotes = calculationNote(p.LeadTime, p.AsOf)
			out.Records[i] = rec
		}
	}
	return out
}

// OK reports whether the run completed.
func (r Result) OK() bool {
	return r.Err == nil
}

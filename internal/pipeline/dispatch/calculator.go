package dispatch

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
)

// calculationDateLayout is the timestamp format written into calculation notes.
const calculationDateLayout = "2006-01-02 15:04:05"

// DemandCalculator derives demand and dispatch figures for merged records.
type DemandCalculator struct {
	leadTime     float64
	policy       SalesPolicy
	asOf         time.Time
	depotSite    string
	buyerSources map[string]struct{}
	rpSources    map[string]struct{}
}

// NewDemandCalculator creates a calculator for one run.
func NewDemandCalculator(s Settings, leadTime float64, policy SalesPolicy, asOf time.Time) *DemandCalculator {
	return &DemandCalculator{
		leadTime:     leadTime,
		policy:       policy,
		asOf:         asOf,
		depotSite:    s.DepotSite,
		buyerSources: toSet(s.BuyerSupplySources),
		rpSources:    toSet(s.RPTeamSupplySources),
	}
}

type groupSiteKey struct {
	GroupNo string
	Site    string
}

// Calculate returns new records with every computed field set. The input is not modified.
func (dc *DemandCalculator) Calculate(records []domain.MergedRecord) ([]domain.MergedRecord, error) {
	out := make([]domain.MergedRecord, len(records))
	copy(out, records)

	// Regular demand first, so pooling can see the whole batch.
	for i := range out {
		r := &out[i]

		// 1. Daily sales rate
		r.DailySalesRate = dc.dailySalesRate(r)

		// 2. Site target % selected by target type
		r.SiteTargetPct = siteTargetPct(r)

		// 3. Regular demand = daily rate × (cover days + lead time)
		r.RegularDemand = r.DailySalesRate * (float64(r.TargetCoverDays) + dc.leadTime)

		// 4. Promotion demand = SKU target × site target %
		r.PromotionDemand = float64(r.SKUTarget) * r.SiteTargetPct
	}

	// 5. Total demand, pooling regular demand per (group, site) for multi-SKU groups
	pooled := poolRegularDemand(out)
	for i := range out {
		r := &out[i]
		if sum, ok := pooled[groupSiteKey{r.GroupNo, r.Site}]; ok {
			r.PooledRegularDemand = sum
		} else {
			r.PooledRegularDemand = r.RegularDemand
		}
		r.TotalDemand = r.PooledRegularDemand + r.PromotionDemand

		// 6. Net demand = max(0, total - (stock + pending) + safety stock)
		r.AvailableStock = r.StockOnHand + r.PendingReceived
		r.NetDemand = math.Max(0, r.TotalDemand-float64(r.AvailableStock)+float64(r.SafetyStock))

		// 7. Suggested dispatch, RF only, rounded up to a MOQ multiple
		r.SuggestedDispatchQty = suggestedDispatch(r)

		// 8. Dispatch routing
		r.DispatchType = dc.dispatchType(r)

		// 9. Calculation notes
		r.CalculationNotes = calculationNote(dc.leadTime, dc.asOf)

		if err := checkFinite(r); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func calculationNote(leadTime float64, asOf time.Time) string {
	return fmt.Sprintf("Lead Time: %s days; Calculation Date: %s", formatLeadTime(leadTime), asOf.Format(calculationDateLayout))
}

func (dc *DemandCalculator) dailySalesRate(r *domain.MergedRecord) float64 {
	lastMonthRate := float64(r.LastMonthSoldQty) / daysInMonth
	if dc.policy != SalesPolicyBlended {
		return math.Max(0, lastMonthRate)
	}
	if r.LastMonthSoldQty <= 0 && r.MTDSoldQty <= 0 {
		return 0
	}
	elapsed := dc.asOf.Day()
	if elapsed < 1 {
		elapsed = 1
	}
	mtdRate := float64(r.MTDSoldQty) / float64(elapsed)
	return math.Max(0, (lastMonthRate+mtdRate)/2)
}

func siteTargetPct(r *domain.MergedRecord) float64 {
	switch domain.NormalizeTargetType(r.TargetType) {
	case domain.TargetTypeHK:
		return r.ShopTargetHK
	case domain.TargetTypeMO:
		return r.ShopTargetMO
	case domain.TargetTypeALL:
		return r.ShopTargetALL
	}
	return 0
}

// poolRegularDemand sums regular demand per (group, site) for groups with more
// than one distinct article. Records without a group are never pooled.
func poolRegularDemand(records []domain.MergedRecord) map[groupSiteKey]float64 {
	articles := make(map[string]map[string]struct{})
	for _, r := range records {
		if r.GroupNo == "" {
			continue
		}
		set, ok := articles[r.GroupNo]
		if !ok {
			set = make(map[string]struct{})
			articles[r.GroupNo] = set
		}
		set[r.Article] = struct{}{}
	}

	pooled := make(map[groupSiteKey]float64)
	for _, r := range records {
		if r.GroupNo == "" || len(articles[r.GroupNo]) < 2 {
			continue
		}
		pooled[groupSiteKey{r.GroupNo, r.Site}] += r.RegularDemand
	}
	return pooled
}

// maxDispatchQty caps the unrounded dispatch so rounding up to a MOQ multiple
// stays inside int64.
const maxDispatchQty int64 = 1 << 53

func suggestedDispatch(r *domain.MergedRecord) int64 {
	if !strings.EqualFold(r.RPType, domain.RPTypeRF) {
		return 0
	}
	need := maxDispatchQty
	if net := ceilQty(r.NetDemand); net < float64(maxDispatchQty) {
		need = int64(math.Max(0, net))
	}
	moq := min(max(r.MOQ, 0), maxDispatchQty)
	qty := max(need, moq)
	if moq > 0 {
		if rem := qty % moq; rem != 0 {
			qty += moq - rem
		}
	}
	return qty
}

func (dc *DemandCalculator) dispatchType(r *domain.MergedRecord) string {
	if strings.EqualFold(r.Site, dc.depotSite) {
		return domain.DispatchTypeDepot
	}
	if strings.EqualFold(r.RPType, domain.RPTypeND) {
		return domain.DispatchTypeND
	}
	if _, ok := dc.buyerSources[r.SupplySource]; ok {
		return domain.DispatchTypeBuyerOrder
	}
	if _, ok := dc.rpSources[r.SupplySource]; ok {
		return domain.DispatchTypeDNRequired
	}
	return domain.DispatchTypeUnclassified
}

func checkFinite(r *domain.MergedRecord) error {
	values := []struct {
		name string
		v    float64
	}{
		{"daily sales rate", r.DailySalesRate},
		{"regular demand", r.RegularDemand},
		{"pooled regular demand", r.PooledRegularDemand},
		{"promotion demand", r.PromotionDemand},
		{"total demand", r.TotalDemand},
		{"net demand", r.NetDemand},
	}
	for _, f := range values {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ComputationError{
				Stage: "demand calculator",
				Cause: fmt.Errorf("non-finite %s for article %s at site %s", f.name, r.Article, r.Site),
			}
		}
	}
	return nil
}

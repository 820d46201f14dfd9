package dispatch

import (
	"sort"
	"strings"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
)

type groupArticleKey struct {
	GroupNo string
	Article string
}

type depotTotals struct {
	stock, inspection, blocked, pending int64
}

// Summarize rolls records up to (GroupNo, Article). Branch rows form the left
// side; depot stock is joined onto it with zero fill.
func Summarize(records []domain.MergedRecord, depotSite string) []domain.SummaryRecord {
	branch := make(map[groupArticleKey]*domain.SummaryRecord)
	depot := make(map[groupArticleKey]*depotTotals)

	for _, r := range records {
		key := groupArticleKey{r.GroupNo, r.Article}

		if strings.EqualFold(r.Site, depotSite) {
			d, ok := depot[key]
			if !ok {
				d = &depotTotals{}
				depot[key] = d
			}
			d.stock += r.StockOnHand
			d.inspection += r.InQualityInspectionQty
			d.blocked += r.BlockedQty
			d.pending += r.PendingReceived
			continue
		}

		s, ok := branch[key]
		if !ok {
			s = &domain.SummaryRecord{GroupNo: r.GroupNo, Article: r.Article}
			branch[key] = s
		}
		s.BranchTotalDemand += r.TotalDemand
		s.BranchStockOnHand += r.StockOnHand
		s.BranchPendingReceived += r.PendingReceived
		s.BranchSuggestedDispatch += r.SuggestedDispatchQty
	}

	out := make([]domain.SummaryRecord, 0, len(branch))
	for key, s := range branch {
		if d, ok := depot[key]; ok {
			s.DepotStockOnHand = d.stock
			s.DepotInQualityInspection = d.inspection
			s.DepotBlocked = d.blocked
			s.DepotPendingReceived = d.pending
		}
		s.TotalStockAvailable = s.BranchStockOnHand + s.BranchPendingReceived
		s.OutOfStockWarning = outOfStockWarning(s)
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupNo != out[j].GroupNo {
			return out[i].GroupNo < out[j].GroupNo
		}
		return out[i].Article < out[j].Article
	})
	return out
}

// outOfStockWarning checks depot shortfall before branch shortfall.
func outOfStockWarning(s *domain.SummaryRecord) string {
	switch {
	case s.BranchSuggestedDispatch > s.DepotStockOnHand:
		return domain.WarningDepotInsufficient
	case s.BranchTotalDemand > float64(s.TotalStockAvailable):
		return domain.WarningBranchShortage
	}
	return domain.WarningNone
}

// ComputeStats derives the headline figures of a run.
func ComputeStats(records []domain.MergedRecord) Stats {
	stats := Stats{
		TotalRecords:       len(records),
		DispatchTypeCounts: make(map[string]int),
	}
	var rateSum float64
	for _, r := range records {
		stats.TotalDemand += r.TotalDemand
		stats.TotalSuggestedDispatch += r.SuggestedDispatchQty
		rateSum += r.DailySalesRate
		stats.DispatchTypeCounts[dispatchTypeLabel(r.DispatchType)]++
	}
	if len(records) > 0 {
		stats.AverageDailySalesRate = rateSum / float64(len(records))
	}
	return stats
}

func dispatchTypeLabel(t string) string {
	if t == domain.DispatchTypeUnclassified {
		return "Unclassified"
	}
	return t
}

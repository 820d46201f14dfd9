package dispatch

import "github.com/andresuchdata/promo-dispatch/internal/domain"

// JoinSpec declares one left join: which key the right side is indexed by,
// what an unmatched left row receives, and the note it gets.
type JoinSpec[R any] struct {
	Name          string
	KeyColumn     string
	Key           func(R) string
	Fill          R
	UnmatchedNote string
}

// Index builds the lookup for the right-hand rows. Duplicate keys: last row wins.
func (j JoinSpec[R]) Index(rows []R) map[string]R {
	idx := make(map[string]R, len(rows))
	for _, r := range rows {
		idx[j.Key(r)] = r
	}
	return idx
}

// Lookup returns the matching row, or Fill and false.
func (j JoinSpec[R]) Lookup(idx map[string]R, key string) (R, bool) {
	if r, ok := idx[key]; ok {
		return r, true
	}
	return j.Fill, false
}

var (
	skuTargetJoin = JoinSpec[domain.SkuPromotionTarget]{
		Name:          TableSkuTargets,
		KeyColumn:     ColArticle,
		Key:           func(r domain.SkuPromotionTarget) string { return r.Article },
		UnmatchedNote: domain.NoPromotionTargetNote,
	}
	shopTargetJoin = JoinSpec[domain.ShopPromotionTarget]{
		Name:          TableShopTargets,
		KeyColumn:     ColSite,
		Key:           func(r domain.ShopPromotionTarget) string { return r.Site },
		UnmatchedNote: domain.NoShopTargetNote,
	}
)

// Merge left-joins inventory with SKU targets on Article and shop targets on Site.
// Every inventory row is kept, in input order.
func Merge(inv []domain.InventoryRecord, sku []domain.SkuPromotionTarget, shop []domain.ShopPromotionTarget) []domain.MergedRecord {
	skuIdx := skuTargetJoin.Index(sku)
	shopIdx := shopTargetJoin.Index(shop)

	out := make([]domain.MergedRecord, 0, len(inv))
	for _, rec := range inv {
		m := domain.MergedRecord{InventoryRecord: rec}

		target, ok := skuTargetJoin.Lookup(skuIdx, rec.Article)
		if !ok {
			m.Notes = appendNote(m.Notes, skuTargetJoin.UnmatchedNote)
		}
		m.GroupNo = target.GroupNo
		m.SKUTarget = target.SKUTarget
		m.TargetType = target.TargetType
		m.PromotionDays = target.PromotionDays
		m.TargetCoverDays = target.TargetCoverDays

		shopTarget, ok := shopTargetJoin.Lookup(shopIdx, rec.Site)
		if !ok {
			m.Notes = appendNote(m.Notes, shopTargetJoin.UnmatchedNote)
		}
		m.ShopTargetHK = shopTarget.ShopTargetHK
		m.ShopTargetMO = shopTarget.ShopTargetMO
		m.ShopTargetALL = shopTarget.ShopTargetALL

		out = append(out, m)
	}
	return out
}

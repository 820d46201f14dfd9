package dispatch

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
	"github.com/andresuchdata/promo-dispatch/internal/table"
)

// maxQuantity is the largest integer float64 holds exactly. Demand math runs in
// float64, so larger cells are treated as unreadable.
var maxQuantity = decimal.NewFromInt(1 << 53)

// Cleaner coerces raw table cells into typed records and logs every fix it makes.
type Cleaner struct {
	outlierThreshold int64
	validSources     map[string]struct{}
}

// NewCleaner creates a cleaner from the engine settings.
func NewCleaner(s Settings) *Cleaner {
	return &Cleaner{
		outlierThreshold: s.OutlierThreshold,
		validSources:     toSet(s.ValidSupplySources),
	}
}

type rowNote struct {
	field string
	kind  CorrectionKind
	text  string
}

// rowCleaner accumulates notes for the row being cleaned.
type rowCleaner struct {
	c     *Cleaner
	table string
	log   *CorrectionLog
	notes []rowNote
}

func (r *rowCleaner) record(field string, kind CorrectionKind, note string) {
	r.log.Add(r.table, field, kind)
	r.notes = append(r.notes, rowNote{field: field, kind: kind, text: note})
}

// quantity parses a non-negative integer quantity; volume fields are also capped.
func (r *rowCleaner) quantity(raw, field string, volume bool) int64 {
	d, ok := parseNumber(raw)
	if !ok {
		r.record(field, CorrectionInvalidNumeric, fmt.Sprintf("invalid number %q set to 0", strings.TrimSpace(raw)))
		return 0
	}
	if d.GreaterThan(maxQuantity) {
		r.record(field, CorrectionInvalidNumeric, fmt.Sprintf("out of range number %s set to 0", d.String()))
		return 0
	}
	if d.IsNegative() {
		r.record(field, CorrectionNegative, fmt.Sprintf("corrected negative value %s to 0", d.String()))
		return 0
	}
	if volume && r.c.outlierThreshold > 0 && d.GreaterThan(decimal.NewFromInt(r.c.outlierThreshold)) {
		r.record(field, CorrectionOutlier, fmt.Sprintf("capped outlier %s to %d", d.String(), r.c.outlierThreshold))
		return r.c.outlierThreshold
	}
	// Round is half away from zero.
	return d.Round(0).IntPart()
}

func (r *rowCleaner) fraction(raw, field string) float64 {
	d, ok := parseFraction(raw)
	if !ok {
		r.record(field, CorrectionInvalidNumeric, fmt.Sprintf("invalid number %q set to 0", strings.TrimSpace(raw)))
		return 0
	}
	if d.IsNegative() {
		r.record(field, CorrectionNegative, fmt.Sprintf("corrected negative value %s to 0", d.String()))
		return 0
	}
	return d.InexactFloat64()
}

func (r *rowCleaner) supplySource(raw string) string {
	code := normalizeCode(raw)
	if code == "" {
		return code
	}
	if _, ok := r.c.validSources[code]; !ok {
		r.record(ColSupplySource, CorrectionInvalidCode, fmt.Sprintf("invalid code %q replaced with %s", code, domain.InvalidSupplySource))
		return domain.InvalidSupplySource
	}
	return code
}

// finish renders the row notes once the whole table is cleaned, so every
// note can carry how many rows of its field got the same fix.
func (r *rowCleaner) finish() string {
	if len(r.notes) == 0 {
		return domain.NoCorrectionsNote
	}
	parts := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", n.field, n.text, rowCount(r.log.countIn(r.table, n.field, n.kind))))
	}
	return strings.Join(parts, noteSeparator)
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}

// CleanInventory converts the inventory table. Row order is preserved.
func (c *Cleaner) CleanInventory(t table.Table) ([]domain.InventoryRecord, CorrectionLog) {
	var log CorrectionLog

	idxArticle := t.Column(ColArticle)
	idxSite := t.Column(ColSite)
	idxDesc := t.Column(ColArticleDescription)
	idxBuyer := t.Column(ColBuyerGroup)
	idxRP := t.Column(ColRPType)
	idxMOQ := t.Column(ColMOQ)
	idxStock := t.Column(ColStockOnHand)
	idxPending := t.Column(ColPendingReceived)
	idxSafety := t.Column(ColSafetyStock)
	idxLastMonth := t.Column(ColLastMonthSold)
	idxMTD := t.Column(ColMTDSold)
	idxQI := t.Column(ColInQualityInsp, "In Quality Inspection Qty")
	idxBlocked := t.Column(ColBlocked)
	idxSource := t.Column(ColSupplySource)

	out := make([]domain.InventoryRecord, 0, t.Len())
	rows := make([]rowCleaner, t.Len())
	for i := range t.Rows {
		r := &rows[i]
		*r = rowCleaner{c: c, table: TableInventory, log: &log}
		rec := domain.InventoryRecord{
			Article:                t.Cell(i, idxArticle),
			Site:                   t.Cell(i, idxSite),
			ArticleDescription:     t.Cell(i, idxDesc),
			BuyerGroup:             t.Cell(i, idxBuyer),
			RPType:                 strings.ToUpper(t.Cell(i, idxRP)),
			MOQ:                    r.quantity(t.Cell(i, idxMOQ), ColMOQ, false),
			StockOnHand:            r.quantity(t.Cell(i, idxStock), ColStockOnHand, false),
			PendingReceived:        r.quantity(t.Cell(i, idxPending), ColPendingReceived, false),
			SafetyStock:            r.quantity(t.Cell(i, idxSafety), ColSafetyStock, false),
			LastMonthSoldQty:       r.quantity(t.Cell(i, idxLastMonth), ColLastMonthSold, true),
			MTDSoldQty:             r.quantity(t.Cell(i, idxMTD), ColMTDSold, true),
			InQualityInspectionQty: r.quantity(t.Cell(i, idxQI), ColInQualityInsp, false),
			BlockedQty:             r.quantity(t.Cell(i, idxBlocked), ColBlocked, false),
		}
		rec.SupplySource = r.supplySource(t.Cell(i, idxSource))
		out = append(out, rec)
	}
	for i := range out {
		out[i].Notes = rows[i].finish()
	}
	return out, log
}

// CleanSkuTargets converts the SKU target sheet.
func (c *Cleaner) CleanSkuTargets(t table.Table) ([]domain.SkuPromotionTarget, CorrectionLog) {
	var log CorrectionLog

	idxGroup := t.Column(ColGroupNo)
	idxArticle := t.Column(ColArticle)
	idxTarget := t.Column(ColSKUTarget)
	idxType := t.Column(ColTargetType)
	idxPromoDays := t.Column(ColPromotionDays)
	idxCoverDays := t.Column(ColTargetCoverDays)

	out := make([]domain.SkuPromotionTarget, 0, t.Len())
	for i := range t.Rows {
		r := rowCleaner{c: c, table: TableSkuTargets, log: &log}
		out = append(out, domain.SkuPromotionTarget{
			GroupNo:         normalizeCode(t.Cell(i, idxGroup)),
			Article:         t.Cell(i, idxArticle),
			SKUTarget:       r.quantity(t.Cell(i, idxTarget), ColSKUTarget, false),
			TargetType:      domain.NormalizeTargetType(t.Cell(i, idxType)),
			PromotionDays:   r.quantity(t.Cell(i, idxPromoDays), ColPromotionDays, false),
			TargetCoverDays: r.quantity(t.Cell(i, idxCoverDays), ColTargetCoverDays, false),
		})
	}
	return out, log
}

// CleanShopTargets converts the shop target sheet. Fractions accept "50%".
func (c *Cleaner) CleanShopTargets(t table.Table) ([]domain.ShopPromotionTarget, CorrectionLog) {
	var log CorrectionLog

	idxSite := t.Column(ColSite)
	idxHK := t.Column(ColShopTargetHK)
	idxMO := t.Column(ColShopTargetMO)
	idxALL := t.Column(ColShopTargetALL)

	out := make([]domain.ShopPromotionTarget, 0, t.Len())
	for i := range t.Rows {
		r := rowCleaner{c: c, table: TableShopTargets, log: &log}
		out = append(out, domain.ShopPromotionTarget{
			Site:          t.Cell(i, idxSite),
			ShopTargetHK:  r.fraction(t.Cell(i, idxHK), ColShopTargetHK),
			ShopTargetMO:  r.fraction(t.Cell(i, idxMO), ColShopTargetMO),
			ShopTargetALL: r.fraction(t.Cell(i, idxALL), ColShopTargetALL),
		})
	}
	return out, log
}

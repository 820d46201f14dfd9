package dispatch

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/promo-dispatch/internal/table"
)

var fixedAsOf = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

var inventoryHeader = []string{
	"Article", "Article Description", "RP Type", "Site", "MOQ", "SaSa Net Stock", "Pending Received",
	"Safety Stock", "Last Month Sold Qty", "MTD Sold Qty", "Supply source", "Description p. group",
	"In Quality Insp. Qty", "Blocked Qty",
}

type invRow struct {
	Article, Site, RPType                       string
	MOQ, Stock, Pending, Safety, LastMonth, MTD string
	Source, QI, Blocked                         string
}

func (r invRow) cells() []string {
	return []string{
		r.Article, "desc " + r.Article, r.RPType, r.Site, r.MOQ, r.Stock, r.Pending,
		r.Safety, r.LastMonth, r.MTD, r.Source, "BG1", r.QI, r.Blocked,
	}
}

func inventoryTable(rows ...invRow) table.Table {
	t := table.New(TableInventory, inventoryHeader...)
	for _, r := range rows {
		t.Append(r.cells()...)
	}
	return t
}

// skuTable rows: group, article, target, type, promotion days, cover days.
func skuTable(rows ...[]string) table.Table {
	t := table.New(TableSkuTargets, "Group No.", "Article", "SKU Target", "Target Type", "Promotion Days", "Target Cover Days")
	for _, r := range rows {
		t.Append(r...)
	}
	return t
}

// shopTable rows: site, HK, MO, ALL.
func shopTable(rows ...[]string) table.Table {
	t := table.New(TableShopTargets, "Site", "Shop Target(HK)", "Shop Target(MO)", "Shop Target(ALL)")
	for _, r := range rows {
		t.Append(r...)
	}
	return t
}

// scenarioRow is the reference A1/S1 record.
func scenarioRow() invRow {
	return invRow{
		Article: "A1", Site: "S1", RPType: "RF",
		MOQ: "10", Stock: "5", Pending: "2", Safety: "3", LastMonth: "30", MTD: "0",
		Source: "2",
	}
}

func scenarioInputs() Inputs {
	return Inputs{
		Inventory:   inventoryTable(scenarioRow()),
		SkuTargets:  skuTable([]string{"G1", "A1", "100", "HK", "7", "14"}),
		ShopTargets: shopTable([]string{"S1", "0.5", "0.3", "0.8"}),
	}
}

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithLogger(zerolog.Nop()),
		WithClock(func() time.Time { return fixedAsOf }),
		WithIDGenerator(func() string { return "run-test" }),
	}
	return NewEngine(DefaultSettings(), append(base, opts...)...)
}

package sheet

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
	"github.com/andresuchdata/promo-dispatch/internal/table"
)

const (
	SheetAnalysis    = "Analysis Results"
	SheetSummary     = "Summary"
	SheetCorrections = "Corrections"

	reportDecimals = 2
)

// column renders one output column from a record.
type column[R any] struct {
	header string
	value  func(R) any
}

func qty(v int64) any { return v }

func amount(v float64) any {
	return decimal.NewFromFloat(v).Round(reportDecimals).InexactFloat64()
}

var recordColumns = []column[domain.MergedRecord]{
	{dispatch.ColArticle, func(r domain.MergedRecord) any { return r.Article }},
	{dispatch.ColArticleDescription, func(r domain.MergedRecord) any { return r.ArticleDescription }},
	{dispatch.ColSite, func(r domain.MergedRecord) any { return r.Site }},
	{dispatch.ColBuyerGroup, func(r domain.MergedRecord) any { return r.BuyerGroup }},
	{dispatch.ColRPType, func(r domain.MergedRecord) any { return r.RPType }},
	{dispatch.ColSupplySource, func(r domain.MergedRecord) any { return r.SupplySource }},
	{dispatch.ColMOQ, func(r domain.MergedRecord) any { return qty(r.MOQ) }},
	{dispatch.ColStockOnHand, func(r domain.MergedRecord) any { return qty(r.StockOnHand) }},
	{dispatch.ColPendingReceived, func(r domain.MergedRecord) any { return qty(r.PendingReceived) }},
	{dispatch.ColSafetyStock, func(r domain.MergedRecord) any { return qty(r.SafetyStock) }},
	{dispatch.ColLastMonthSold, func(r domain.MergedRecord) any { return qty(r.LastMonthSoldQty) }},
	{dispatch.ColMTDSold, func(r domain.MergedRecord) any { return qty(r.MTDSoldQty) }},
	{dispatch.ColInQualityInsp, func(r domain.MergedRecord) any { return qty(r.InQualityInspectionQty) }},
	{dispatch.ColBlocked, func(r domain.MergedRecord) any { return qty(r.BlockedQty) }},
	{dispatch.ColGroupNo, func(r domain.MergedRecord) any { return r.GroupNo }},
	{dispatch.ColSKUTarget, func(r domain.MergedRecord) any { return qty(r.SKUTarget) }},
	{dispatch.ColTargetType, func(r domain.MergedRecord) any { return r.TargetType }},
	{dispatch.ColPromotionDays, func(r domain.MergedRecord) any { return qty(r.PromotionDays) }},
	{dispatch.ColTargetCoverDays, func(r domain.MergedRecord) any { return qty(r.TargetCoverDays) }},
	{dispatch.ColShopTargetHK, func(r domain.MergedRecord) any { return r.ShopTargetHK }},
	{dispatch.ColShopTargetMO, func(r domain.MergedRecord) any { return r.ShopTargetMO }},
	{dispatch.ColShopTargetALL, func(r domain.MergedRecord) any { return r.ShopTargetALL }},
	{"Daily Sales Rate", func(r domain.MergedRecord) any { return amount(r.DailySalesRate) }},
	{"Site Target %", func(r domain.MergedRecord) any { return r.SiteTargetPct }},
	{"Regular Demand", func(r domain.MergedRecord) any { return amount(r.RegularDemand) }},
	{"Pooled Regular Demand", func(r domain.MergedRecord) any { return amount(r.PooledRegularDemand) }},
	{"Promotion Demand", func(r domain.MergedRecord) any { return amount(r.PromotionDemand) }},
	{"Total Demand", func(r domain.MergedRecord) any { return amount(r.TotalDemand) }},
	{"Available Stock", func(r domain.MergedRecord) any { return qty(r.AvailableStock) }},
	{"Net Demand", func(r domain.MergedRecord) any { return amount(r.NetDemand) }},
	{"Suggested Dispatch Qty", func(r domain.MergedRecord) any { return qty(r.SuggestedDispatchQty) }},
	{"Dispatch Type", func(r domain.MergedRecord) any { return r.DispatchType }},
	{dispatch.ColNotes, func(r domain.MergedRecord) any { return r.Notes }},
	{"Calculation Notes", func(r domain.MergedRecord) any { return r.CalculationNotes }},
}

var summaryColumns = []column[domain.SummaryRecord]{
	{dispatch.ColGroupNo, func(s domain.SummaryRecord) any { return s.GroupNo }},
	{dispatch.ColArticle, func(s domain.SummaryRecord) any { return s.Article }},
	{"Total Demand", func(s domain.SummaryRecord) any { return amount(s.BranchTotalDemand) }},
	{dispatch.ColStockOnHand, func(s domain.SummaryRecord) any { return qty(s.BranchStockOnHand) }},
	{dispatch.ColPendingReceived, func(s domain.SummaryRecord) any { return qty(s.BranchPendingReceived) }},
	{"Suggested Dispatch Qty", func(s domain.SummaryRecord) any { return qty(s.BranchSuggestedDispatch) }},
	{"D001 SaSa Net Stock", func(s domain.SummaryRecord) any { return qty(s.DepotStockOnHand) }},
	{"D001 In Quality Insp. Qty", func(s domain.SummaryRecord) any { return qty(s.DepotInQualityInspection) }},
	{"D001 Blocked Qty", func(s domain.SummaryRecord) any { return qty(s.DepotBlocked) }},
	{"D001 Pending Received", func(s domain.SummaryRecord) any { return qty(s.DepotPendingReceived) }},
	{"Total_Stock_Available", func(s domain.SummaryRecord) any { return qty(s.TotalStockAvailable) }},
	{"Out_of_Stock_Warning", func(s domain.SummaryRecord) any { return s.OutOfStockWarning }},
}

var correctionColumns = []column[dispatch.Correction]{
	{"Table", func(c dispatch.Correction) any { return c.Table }},
	{"Field", func(c dispatch.Correction) any { return c.Field }},
	{"Correction", func(c dispatch.Correction) any { return c.Describe() }},
	{"Rows", func(c dispatch.Correction) any { return int64(c.Count) }},
}

func headers[R any](cols []column[R]) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

func values[R any](cols []column[R], r R) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c.value(r)
	}
	return out
}

func toTable[R any](name string, cols []column[R], rows []R) table.Table {
	t := table.New(name, headers(cols)...)
	for _, r := range rows {
		vals := values(cols, r)
		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = formatCell(v)
		}
		t.Append(cells...)
	}
	return t
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// RecordsTable renders the per-record result as a table.
func RecordsTable(res dispatch.Result) table.Table {
	return toTable(SheetAnalysis, recordColumns, res.Records)
}

// SummaryTable renders the (group, article) rollup as a table.
func SummaryTable(res dispatch.Result) table.Table {
	return toTable(SheetSummary, summaryColumns, res.Summary)
}

// ReportFileName is the download name for a report generated at t.
func ReportFileName(t time.Time) string {
	return fmt.Sprintf("Promotion_Demand_Report_%s.xlsx", t.Format("20060102_150405"))
}

// WriteReport writes the analysis, summary and corrections sheets as an xlsx
// workbook. Summary and corrections are omitted when they have no rows.
func WriteReport(w io.Writer, res dispatch.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetAnalysis); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSheet(f, SheetAnalysis, headerStyle, recordColumns, res.Records); err != nil {
		return err
	}

	if len(res.Summary) > 0 {
		if _, err := f.NewSheet(SheetSummary); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", SheetSummary, err)
		}
		if err := writeSheet(f, SheetSummary, headerStyle, summaryColumns, res.Summary); err != nil {
			return err
		}
	}

	if len(res.Corrections.Entries) > 0 {
		if _, err := f.NewSheet(SheetCorrections); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", SheetCorrections, err)
		}
		if err := writeSheet(f, SheetCorrections, headerStyle, correctionColumns, res.Corrections.Entries); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeSheet[R any](f *excelize.File, sheet string, headerStyle int, cols []column[R], rows []R) error {
	header := make([]any, len(cols))
	for i, h := range headers(cols) {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}

	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return fmt.Errorf("failed to resolve header range of %s: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row %d of %s: %w", i+2, sheet, err)
		}
		vals := values(cols, r)
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header of %s: %w", sheet, err)
	}
	return nil
}

// Package sheet moves tables in and out of xlsx workbooks.
package sheet

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
	"github.com/andresuchdata/promo-dispatch/internal/table"
)

// Workbook is every sheet of an xlsx file, in workbook order.
type Workbook struct {
	Name   string
	Sheets []string
	Tables map[string]table.Table
}

// Sheet returns the i-th sheet as a table.
func (w *Workbook) Sheet(i int) (table.Table, error) {
	if i < 0 || i >= len(w.Sheets) {
		return table.Table{}, fmt.Errorf("workbook %s has %d sheets, sheet %d requested", w.Name, len(w.Sheets), i+1)
	}
	return w.Tables[w.Sheets[i]], nil
}

// ReadWorkbook reads every sheet of an xlsx stream. The first non-empty row of
// each sheet is its header; fully blank rows are skipped.
func ReadWorkbook(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx %s has no sheets", name)
	}

	wb := &Workbook{Name: name, Sheets: sheets, Tables: make(map[string]table.Table, len(sheets))}
	for _, sheet := range sheets {
		t, err := readSheet(f, sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		wb.Tables[sheet] = t
	}
	return wb, nil
}

func readSheet(f *excelize.File, sheet string) (table.Table, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	t := table.Table{Name: sheet}
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return table.Table{}, fmt.Errorf("failed to read row from sheet %s: %w", sheet, err)
		}
		if isBlank(record) {
			continue
		}
		if t.Header == nil {
			t.Header = record
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if err := rows.Error(); err != nil {
		return table.Table{}, fmt.Errorf("error iterating rows in sheet %s: %w", sheet, err)
	}
	return t, nil
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// LoadInputs reads the inventory workbook (first sheet) and the promotion
// workbook (SKU targets on sheet 1, shop targets on sheet 2) concurrently.
func LoadInputs(ctx context.Context, inventory, promotion io.Reader) (dispatch.Inputs, error) {
	var inv, promo *Workbook

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		wb, err := ReadWorkbook(inventory, dispatch.TableInventory)
		inv = wb
		return err
	})
	g.Go(func() error {
		wb, err := ReadWorkbook(promotion, "promotion")
		promo = wb
		return err
	})
	if err := g.Wait(); err != nil {
		return dispatch.Inputs{}, err
	}

	invTable, err := inv.Sheet(0)
	if err != nil {
		return dispatch.Inputs{}, err
	}
	skuTable, err := promo.Sheet(0)
	if err != nil {
		return dispatch.Inputs{}, err
	}
	shopTable, err := promo.Sheet(1)
	if err != nil {
		return dispatch.Inputs{}, err
	}

	invTable.Name = dispatch.TableInventory
	skuTable.Name = dispatch.TableSkuTargets
	shopTable.Name = dispatch.TableShopTargets
	return dispatch.Inputs{Inventory: invTable, SkuTargets: skuTable, ShopTargets: shopTable}, nil
}

// LoadFiles is LoadInputs for two paths on disk.
func LoadFiles(ctx context.Context, inventoryPath, promotionPath string) (dispatch.Inputs, error) {
	inv, err := os.Open(inventoryPath)
	if err != nil {
		return dispatch.Inputs{}, fmt.Errorf("failed to open inventory file %s: %w", inventoryPath, err)
	}
	defer inv.Close()

	promo, err := os.Open(promotionPath)
	if err != nil {
		return dispatch.Inputs{}, fmt.Errorf("failed to open promotion file %s: %w", promotionPath, err)
	}
	defer promo.Close()

	return LoadInputs(ctx, inv, promo)
}

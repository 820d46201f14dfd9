// Package sheettest builds in-memory workbooks for tests.
package sheettest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
)

// Workbook writes sheets (name → rows) into an xlsx, keeping the order of names.
func Workbook(t testing.TB, names []string, sheets map[string][][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range names {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			vals := row
			require.NoError(t, f.SetSheetRow(name, cell, &vals))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

// Inventory is one branch row for article A1 at S1 plus its depot row, with a
// blank row in between.
func Inventory(t testing.TB) *bytes.Buffer {
	header := make([]any, 0, len(dispatch.InventoryColumns))
	for _, c := range dispatch.InventoryColumns {
		header = append(header, c)
	}
	return Workbook(t, []string{"Stock"}, map[string][][]any{
		"Stock": {
			header,
			{"A1", "Lipstick", "RF", "S1", 10, 5, 2, 3, 30, 0, 2, "BG1"},
			{},
			{"A1", "Lipstick", "RF", "D001", 10, 100, 0, 0, 0, 0, 2, "BG1"},
		},
	})
}

// Promotion targets A1 with 100 units in HK; S1 takes half of HK.
func Promotion(t testing.TB) *bytes.Buffer {
	return Workbook(t, []string{"SKU", "Shop"}, map[string][][]any{
		"SKU": {
			{"Group No.", "Article", "SKU Target", "Target Type", "Promotion Days", "Target Cover Days"},
			{"G1", "A1", 100, "HK", 7, 14},
		},
		"Shop": {
			{"Site", "Shop Target(HK)", "Shop Target(MO)", "Shop Target(ALL)"},
			{"S1", 0.5, 0.3, 0.8},
			{"D001", 0, 0, 0},
		},
	})
}

// MissingColumns is an inventory workbook without the stock columns.
func MissingColumns(t testing.TB) *bytes.Buffer {
	return Workbook(t, []string{"Stock"}, map[string][][]any{
		"Stock": {
			{"Article", "Site", "RP Type"},
			{"A1", "S1", "RF"},
		},
	})
}

package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/promo-dispatch/internal/table"
)

func TestMissingColumnsReportsEveryField(t *testing.T) {
	tbl := table.New("inventory", "article", "site", "SaSa_Net_Stock")

	missing := MissingColumns(tbl, InventoryColumns)
	assert.Equal(t, []string{
		"Article Description", "RP Type", "MOQ", "Pending Received", "Safety Stock",
		"Last Month Sold Qty", "MTD Sold Qty", "Supply source", "Description p. group",
	}, missing)

	assert.Empty(t, MissingColumns(inventoryTable(), InventoryColumns))
}

func TestValidateInputs(t *testing.T) {
	require.NoError(t, ValidateInputs(scenarioInputs()))

	in := scenarioInputs()
	in.SkuTargets = table.New(TableSkuTargets, "Group No.", "Article")
	in.ShopTargets = table.New(TableShopTargets, "Site", "Shop Target(HK)")

	err := ValidateInputs(in)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Nil(t, schemaErr.Missing(TableInventory))
	assert.Equal(t, []string{"SKU Target", "Target Type", "Promotion Days", "Target Cover Days"}, schemaErr.Missing(TableSkuTargets))
	assert.Equal(t, []string{"Shop Target(MO)", "Shop Target(ALL)"}, schemaErr.Missing(TableShopTargets))
	assert.Contains(t, err.Error(), "shop_targets: Shop Target(MO), Shop Target(ALL)")
}

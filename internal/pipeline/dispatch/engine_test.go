package dispatch

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
	"github.com/andresuchdata/promo-dispatch/internal/table"
)

func TestRunReferenceScenario(t *testing.T) {
	res := newTestEngine().Run(context.Background(), scenarioInputs(), Params{LeadTime: 2})
	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, "run-test", res.RunID)
	assert.Equal(t, successMessage, res.Message)

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.InDelta(t, 66.0, r.TotalDemand, 1e-9)
	assert.InDelta(t, 62.0, r.NetDemand, 1e-9)
	assert.Equal(t, int64(70), r.SuggestedDispatchQty)
	assert.Equal(t, domain.NoCorrectionsNote, r.Notes)
	assert.Equal(t, "G1", r.GroupNo)

	require.Len(t, res.Summary, 1)
	assert.Equal(t, domain.WarningDepotInsufficient, res.Summary[0].OutOfStockWarning)
	assert.Equal(t, int64(70), res.Stats.TotalSuggestedDispatch)
}

func TestRunIsIdempotent(t *testing.T) {
	in := scenarioInputs()
	in.Inventory.Append(invRow{Article: "A1", Site: "D001", RPType: "RF", MOQ: "10", Stock: "-5", LastMonth: "150000", Source: "7"}.cells()...)
	in.Inventory.Append(invRow{Article: "A2", Site: "S2", RPType: "ND", MOQ: "4", Stock: "1", LastMonth: "12", Source: "1"}.cells()...)

	e := NewEngine(DefaultSettings(), WithIDGenerator(func() string { return "ignored" }))
	p := Params{RunID: "run-1", LeadTime: 1.5, AsOf: fixedAsOf}

	first := e.Run(context.Background(), in, p)
	second := e.Run(context.Background(), in, p)
	require.NoError(t, first.Err)
	assert.Equal(t, first, second)
	assert.Equal(t, "run-1", first.RunID)
}

func TestRunDoesNotMutateInputs(t *testing.T) {
	in := scenarioInputs()
	in.Inventory.Rows[0][5] = "-5"
	snapshot := in.Clone()

	newTestEngine().Run(context.Background(), in, Params{})
	assert.Equal(t, snapshot, in)
}

func TestRunCleaningScenarios(t *testing.T) {
	in := scenarioInputs()
	row := scenarioRow()
	row.LastMonth = "150000"
	row.Stock = "-5"
	in.Inventory = inventoryTable(row)

	res := newTestEngine().Run(context.Background(), in, Params{})
	require.NoError(t, res.Err)

	r := res.Records[0]
	assert.Equal(t, int64(100000), r.LastMonthSoldQty)
	assert.Equal(t, int64(0), r.StockOnHand)
	assert.Contains(t, r.Notes, "Last Month Sold Qty: capped outlier")
	assert.Contains(t, r.Notes, "SaSa Net Stock: corrected negative value")
	assert.Equal(t, 1, res.Corrections.Count(ColLastMonthSold, CorrectionOutlier))
	assert.Equal(t, 1, res.Corrections.Count(ColStockOnHand, CorrectionNegative))
}

func TestRunFailures(t *testing.T) {
	missingCols := scenarioInputs()
	missingCols.Inventory = table.New(TableInventory, "Article", "Site")
	missingCols.Inventory.Append("A1", "S1")

	tests := []struct {
		name   string
		in     Inputs
		params Params
		check  func(t *testing.T, err error)
	}{
		{
			name: "empty tables",
			in:   Inputs{},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyInput)
			},
		},
		{
			name: "header only",
			in: Inputs{
				Inventory:   inventoryTable(),
				SkuTargets:  skuTable([]string{"G1", "A1", "1", "HK", "1", "1"}),
				ShopTargets: shopTable([]string{"S1", "1", "1", "1"}),
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyInput)
			},
		},
		{
			name: "schema",
			in:   missingCols,
			check: func(t *testing.T, err error) {
				var schemaErr *SchemaError
				require.True(t, errors.As(err, &schemaErr))
				assert.Len(t, schemaErr.Missing(TableInventory), 10)
			},
		},
		{
			name:   "negative lead time",
			in:     scenarioInputs(),
			params: Params{LeadTime: -1},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidParams)
			},
		},
		{
			name:   "nan lead time",
			in:     scenarioInputs(),
			params: Params{LeadTime: math.NaN()},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidParams)
			},
		},
		{
			name:   "unknown sales policy",
			in:     scenarioInputs(),
			params: Params{SalesPolicy: "weekly"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidParams)
			},
		},
		{
			name:   "infinite lead time",
			in:     scenarioInputs(),
			params: Params{LeadTime: math.Inf(1)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidParams)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestEngine().Run(context.Background(), tt.in, tt.params)
			require.Error(t, res.Err)
			assert.False(t, res.OK())
			assert.NotEmpty(t, res.Message)
			assert.NotNil(t, res.Records)
			assert.Empty(t, res.Records)
			assert.Empty(t, res.Summary)
			tt.check(t, res.Err)
		})
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestEngine().Run(ctx, scenarioInputs(), Params{})
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, res.Records)
}

func TestResolveParamsDefaults(t *testing.T) {
	p, err := newTestEngine().ResolveParams(Params{})
	require.NoError(t, err)
	assert.Equal(t, "run-test", p.RunID)
	assert.Equal(t, 0.0, p.LeadTime, "lead time is never substituted")
	assert.Equal(t, SalesPolicyLastMonth, p.SalesPolicy)
	assert.Equal(t, fixedAsOf, p.AsOf)

	p, err = newTestEngine().ResolveParams(Params{LeadTime: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.LeadTime)
}

func TestRunZeroLeadTime(t *testing.T) {
	res := newTestEngine().Run(context.Background(), scenarioInputs(), Params{LeadTime: 0})
	require.NoError(t, res.Err)
	// 1/day × 14 cover days, no lead time
	assert.InDelta(t, 14.0, res.Records[0].RegularDemand, 1e-9)
	assert.Equal(t, "Lead Time: 0 days; Calculation Date: 2024-05-10 09:30:00", res.Records[0].CalculationNotes)
}

func TestRunHugeMOQ(t *testing.T) {
	in := scenarioInputs()
	row := scenarioRow()
	row.MOQ = "9223372036854775807"
	in.Inventory = inventoryTable(row)

	res := newTestEngine().Run(context.Background(), in, Params{LeadTime: 2})
	require.NoError(t, res.Err)

	r := res.Records[0]
	assert.Equal(t, int64(0), r.MOQ)
	assert.Equal(t, int64(62), r.SuggestedDispatchQty)
	assert.Contains(t, r.Notes, "MOQ: out of range number")
	assert.Equal(t, 1, res.Corrections.Count(ColMOQ, CorrectionInvalidNumeric))
}

func TestRunNotesCarryFieldCounts(t *testing.T) {
	in := scenarioInputs()
	first := scenarioRow()
	first.Stock = "-5"
	second := scenarioRow()
	second.Site = "S2"
	second.Stock = "-7"
	in.Inventory = inventoryTable(first, second)

	res := newTestEngine().Run(context.Background(), in, Params{LeadTime: 2})
	require.NoError(t, res.Err)
	require.Len(t, res.Records, 2)

	assert.Equal(t, "SaSa Net Stock: corrected negative value -5 to 0 (2 rows)", res.Records[0].Notes)
	assert.Equal(t, "SaSa Net Stock: corrected negative value -7 to 0 (2 rows); "+domain.NoShopTargetNote, res.Records[1].Notes)
}

func TestResultRestamp(t *testing.T) {
	res := newTestEngine().Run(context.Background(), scenarioInputs(), Params{LeadTime: 2})
	require.NoError(t, res.Err)

	p := Params{RunID: "run-2", LeadTime: 2, SalesPolicy: SalesPolicyLastMonth, AsOf: fixedAsOf.Add(time.Hour)}
	got := res.Restamp(p)

	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, p, got.Params)
	assert.Equal(t, "Lead Time: 2 days; Calculation Date: 2024-05-10 10:30:00", got.Records[0].CalculationNotes)
	assert.Equal(t, res.Records[0].SuggestedDispatchQty, got.Records[0].SuggestedDispatchQty)
	assert.Equal(t, "run-test", res.RunID)
	assert.Equal(t, "Lead Time: 2 days; Calculation Date: 2024-05-10 09:30:00", res.Records[0].CalculationNotes)
}

func TestFailureMessageForComputationError(t *testing.T) {
	msg := failureMessage(&ComputationError{Stage: "merger", Cause: errors.New("boom")})
	assert.Equal(t, "Calculation error: boom", msg)
}

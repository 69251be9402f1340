package inventory_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/inventory"
	invdb "foh-coordinator/internal/inventory/db"
	"foh-coordinator/internal/models"
)

func setupTestDB(t *testing.T) (*inventory.Service, *invdb.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Ingredient)(nil),
		(*models.InventoryLog)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	store := &invdb.DB{Bun: bunDB}
	return inventory.NewService(store, nil), store, bunDB
}

func seedIngredient(t *testing.T, bunDB *bun.DB, ing models.Ingredient) {
	_, err := bunDB.NewInsert().Model(&ing).Exec(context.Background())
	require.NoError(t, err)
}

func TestRestockWeightedAverageCost(t *testing.T) {
	svc, _, bunDB := setupTestDB(t)
	defer bunDB.Close()

	// 10kg at 20/kg, restock 5kg for 120: 15kg at (10*20+120)/15.
	seedIngredient(t, bunDB, models.Ingredient{
		ID: "i1", Name: "Rice Noodles", Unit: "kg",
		Stock: 10, MinThreshold: 2, UnitCost: 20,
	})

	cost := 120.0
	snap, err := svc.Restock(context.Background(), "i1", 5, &cost)
	require.NoError(t, err)

	assert.Equal(t, 15.0, snap.Stock)
	assert.InDelta(t, 21.3333, snap.UnitCost, 0.001)
}

func TestRestockWithoutCostKeepsUnitCost(t *testing.T) {
	svc, store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedIngredient(t, bunDB, models.Ingredient{
		ID: "i1", Name: "Shrimp", Unit: "kg",
		Stock: 4, UnitCost: 220,
	})

	snap, err := svc.Restock(context.Background(), "i1", 2, nil)
	require.NoError(t, err)

	assert.Equal(t, 6.0, snap.Stock)
	assert.Equal(t, 220.0, snap.UnitCost)

	logs, err := store.LogsByIngredient(context.Background(), "i1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	// The movement is valued at the standing unit cost.
	assert.Equal(t, 440.0, logs[0].Cost)
	assert.Equal(t, models.StockRestock, logs[0].Kind)
}

func TestRestockRejectsNonPositiveAmount(t *testing.T) {
	svc, _, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := svc.Restock(context.Background(), "i1", 0, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestConsumeDecrementsStock(t *testing.T) {
	svc, _, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedIngredient(t, bunDB, models.Ingredient{
		ID: "i1", Name: "Tea Leaves", Unit: "kg",
		Stock: 2, UnitCost: 180,
	})

	snap, err := svc.Consume(context.Background(), "i1", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, snap.Stock)
}

func TestConsumeNeverGoesNegative(t *testing.T) {
	svc, store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedIngredient(t, bunDB, models.Ingredient{
		ID: "i1", Name: "Tea Leaves", Unit: "kg",
		Stock: 1, UnitCost: 180,
	})

	_, err := svc.Consume(context.Background(), "i1", 5)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	// The failed draw left no trace: no log row, stock unchanged.
	ing, err := store.GetIngredient(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ing.Stock)

	logs, err := store.LogsByIngredient(context.Background(), "i1")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestAdjustLogsSignedDelta(t *testing.T) {
	svc, store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedIngredient(t, bunDB, models.Ingredient{
		ID: "i1", Name: "Rice Noodles", Unit: "kg",
		Stock: 10, UnitCost: 35,
	})

	snap, err := svc.Adjust(context.Background(), "i1", 8)
	require.NoError(t, err)
	assert.Equal(t, 8.0, snap.Stock)

	logs, err := store.LogsByIngredient(context.Background(), "i1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, -2.0, logs[0].Change)
	assert.Equal(t, models.StockAdjustment, logs[0].Kind)
}

func TestLedgerSumMatchesCachedStock(t *testing.T) {
	svc, store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	initial := 10.0
	seedIngredient(t, bunDB, models.Ingredient{
		ID: "i1", Name: "Rice Noodles", Unit: "kg",
		Stock: initial, UnitCost: 35,
	})

	ctx := context.Background()
	_, err := svc.Restock(ctx, "i1", 5, nil)
	require.NoError(t, err)
	_, err = svc.Consume(ctx, "i1", 3)
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, "i1", 20)
	require.NoError(t, err)
	_, err = svc.Consume(ctx, "i1", 2.5)
	require.NoError(t, err)

	// The log is the source of truth; the cached column must equal the
	// initial value plus the signed sum of every entry.
	logs, err := store.LogsByIngredient(ctx, "i1")
	require.NoError(t, err)
	sum := initial
	for _, l := range logs {
		sum += l.Change
	}

	ing, err := store.GetIngredient(ctx, "i1")
	require.NoError(t, err)
	assert.InDelta(t, sum, ing.Stock, 1e-9)
	assert.Equal(t, 17.5, ing.Stock)
}

func TestLowStockIsDerived(t *testing.T) {
	svc, _, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedIngredient(t, bunDB, models.Ingredient{
		ID: "low", Name: "Shrimp", Unit: "kg",
		Stock: 1, MinThreshold: 2, UnitCost: 220,
	})
	seedIngredient(t, bunDB, models.Ingredient{
		ID: "ok", Name: "Rice Noodles", Unit: "kg",
		Stock: 10, MinThreshold: 2, UnitCost: 35,
	})

	snaps, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "low", snaps[0].IngredientID)
	assert.True(t, snaps[0].LowStock)
}

func TestUnknownIngredient(t *testing.T) {
	svc, _, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := svc.Consume(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

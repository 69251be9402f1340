package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	orderdb "foh-coordinator/internal/order/db"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/models"
)

func setupTestDB(t *testing.T) (*orderdb.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Order)(nil),
		(*models.OrderLine)(nil),
		(*models.MenuItem)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}
	if _, err := bunDB.NewCreateIndex().
		Model((*models.Order)(nil)).
		Index("idx_orders_code").
		Unique().
		Column("order_code").
		Exec(ctx); err != nil {
		t.Fatalf("Failed to create order code index: %v", err)
	}

	return &orderdb.DB{Bun: bunDB}, bunDB
}

func insertOrder(t *testing.T, store *orderdb.DB, o models.Order) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	require.NoError(t, store.InsertOrder(context.Background(), &o))
}

func TestDuplicateOrderCodeIsDetected(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	insertOrder(t, store, models.Order{
		ID: "o1", OrderCode: "ORD202608310001", TableID: "t1",
		Status: models.OrderPending, Payment: models.PaymentUnpaid,
	})

	err := store.InsertOrder(context.Background(), &models.Order{
		ID: "o2", OrderCode: "ORD202608310001", TableID: "t2",
		Status: models.OrderPending, Payment: models.PaymentUnpaid,
		CreatedAt: time.Now(),
	})
	require.Error(t, err)
	assert.True(t, orderdb.IsDuplicate(err))
}

func TestMaxDailySequence(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	day := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	seq, err := store.MaxDailySequence(context.Background(), "ORD", day)
	require.NoError(t, err)
	assert.Equal(t, 0, seq, "empty day starts at zero")

	for i, code := range []string{"ORD202608310001", "ORD202608310007", "ORD202608310003"} {
		insertOrder(t, store, models.Order{
			ID: code, OrderCode: code, TableID: "t1",
			Status: models.OrderCompleted, Payment: models.PaymentCash,
			CreatedAt: day.Add(time.Duration(i) * time.Minute),
		})
	}
	// Yesterday's codes must not bleed into today's sequence.
	insertOrder(t, store, models.Order{
		ID: "old", OrderCode: "ORD202608300099", TableID: "t1",
		Status: models.OrderCompleted, Payment: models.PaymentCash,
	})

	seq, err = store.MaxDailySequence(context.Background(), "ORD", day)
	require.NoError(t, err)
	assert.Equal(t, 7, seq)
}

func TestSetLineStatusCAS(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	line := models.OrderLine{
		ID: "l1", OrderID: "o1", MenuItemID: "m1", Name: "Pad Thai",
		Qty: 1, UnitPrice: 120, Status: models.LinePending, CreatedAt: time.Now(),
	}
	require.NoError(t, store.InsertLine(ctx, &line))

	ok, err := store.SetLineStatus(ctx, "l1", models.LinePending, models.LineCooking)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second caller raced on the same transition and must lose.
	ok, err = store.SetLineStatus(ctx, "l1", models.LinePending, models.LineCooking)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetLine(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, models.LineCooking, got.Status)
}

func TestSettleOrderGuardFiresOnce(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	insertOrder(t, store, models.Order{
		ID: "o1", OrderCode: "ORD202608310001", TableID: "t1",
		Status: models.OrderServed, Payment: models.PaymentUnpaid,
	})

	at := time.Now()
	ok, err := store.SettleOrder(ctx, "o1", models.PaymentCash, "", 250, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SettleOrder(ctx, "o1", models.PaymentPromptPay, "slip-9", 250, at)
	require.NoError(t, err)
	assert.False(t, ok, "guard is consumed by the first settlement")

	got, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, got.Status)
	assert.Equal(t, models.PaymentCash, got.Payment)
	assert.Equal(t, 250.0, got.Total)
	assert.Empty(t, got.PaymentProof)
}

func TestSettleOrderRequiresServed(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	insertOrder(t, store, models.Order{
		ID: "o1", OrderCode: "ORD202608310001", TableID: "t1",
		Status: models.OrderCooking, Payment: models.PaymentUnpaid,
	})

	ok, err := store.SettleOrder(context.Background(), "o1", models.PaymentCash, "", 100, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettleOrderStoresProof(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	insertOrder(t, store, models.Order{
		ID: "o1", OrderCode: "ORD202608310001", TableID: "t1",
		Status: models.OrderServed, Payment: models.PaymentUnpaid,
	})

	ok, err := store.SettleOrder(ctx, "o1", models.PaymentPromptPay, "slip-42", 180, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPromptPay, got.Payment)
	assert.Equal(t, "slip-42", got.PaymentProof)
}

func TestCancelOrderSkipsTerminal(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	insertOrder(t, store, models.Order{
		ID: "open", OrderCode: "ORD202608310001", TableID: "t1",
		Status: models.OrderCooking, Payment: models.PaymentUnpaid,
	})
	insertOrder(t, store, models.Order{
		ID: "done", OrderCode: "ORD202608310002", TableID: "t2",
		Status: models.OrderCompleted, Payment: models.PaymentCash,
	})

	ok, err := store.CancelOrder(ctx, "open")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CancelOrder(ctx, "done")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetOrder(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, got.Status)
}

func TestSyncDerivedStatusNeverResurrectsTerminal(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	insertOrder(t, store, models.Order{
		ID: "o1", OrderCode: "ORD202608310001", TableID: "t1",
		Status: models.OrderCancelled, Payment: models.PaymentUnpaid,
	})

	require.NoError(t, store.SyncDerivedStatus(ctx, "o1", models.OrderCooking))

	got, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
}

func TestOpenOrdersSnapshot(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	insertOrder(t, store, models.Order{
		ID: "older", OrderCode: "ORD202608310001", TableID: "t1",
		Status: models.OrderPending, Payment: models.PaymentUnpaid, CreatedAt: base,
	})
	insertOrder(t, store, models.Order{
		ID: "newer", OrderCode: "ORD202608310002", TableID: "t2",
		Status: models.OrderCooking, Payment: models.PaymentUnpaid, CreatedAt: base.Add(time.Minute),
	})
	insertOrder(t, store, models.Order{
		ID: "served", OrderCode: "ORD202608310003", TableID: "t3",
		Status: models.OrderServed, Payment: models.PaymentUnpaid, CreatedAt: base,
	})
	require.NoError(t, store.InsertLine(ctx, &models.OrderLine{
		ID: "l1", OrderID: "newer", MenuItemID: "m1", Name: "Pad Thai",
		Qty: 2, UnitPrice: 120, Status: models.LineCooking, CreatedAt: base,
	}))

	snap, err := store.OpenOrders(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 2, "served orders are off the board")
	assert.Equal(t, "older", snap[0].Order.ID)
	assert.Equal(t, "newer", snap[1].Order.ID)
	assert.Empty(t, snap[0].Lines)
	require.Len(t, snap[1].Lines, 1)
	assert.Equal(t, "Pad Thai", snap[1].Lines[0].Name)
}

func TestActiveOrderByTable(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	insertOrder(t, store, models.Order{
		ID: "done", OrderCode: "ORD202608310001", TableID: "t1",
		Status: models.OrderCompleted, Payment: models.PaymentCash,
	})

	active, err := store.ActiveOrderByTable(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, active, "completed orders do not block the table")

	insertOrder(t, store, models.Order{
		ID: "live", OrderCode: "ORD202608310002", TableID: "t1",
		Status: models.OrderCooking, Payment: models.PaymentUnpaid,
	})

	active, err = store.ActiveOrderByTable(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "live", active.ID)
}

func TestGetOrderNotFound(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := store.GetOrder(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

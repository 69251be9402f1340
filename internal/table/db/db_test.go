package db_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	tabledb "foh-coordinator/internal/table/db"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/models"
)

func setupTestDB(t *testing.T) (*tabledb.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	if _, err := bunDB.NewCreateTable().Model((*models.DiningTable)(nil)).Exec(ctx); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return &tabledb.DB{Bun: bunDB}, bunDB
}

func seedTable(t *testing.T, bunDB *bun.DB, tab models.DiningTable) {
	_, err := bunDB.NewInsert().Model(&tab).Exec(context.Background())
	require.NoError(t, err)
}

func TestSetTableStatusCAS(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ctx := context.Background()
	seedTable(t, bunDB, models.DiningTable{
		ID: "t1", Label: "T1", Seats: 2, Status: models.TableVacant,
	})

	won, err := store.SetTableStatus(ctx, "t1", models.TableVacant, models.TableOccupied)
	require.NoError(t, err)
	assert.True(t, won)

	// The second terminal raced the same seat and must lose.
	won, err = store.SetTableStatus(ctx, "t1", models.TableVacant, models.TableOccupied)
	require.NoError(t, err)
	assert.False(t, won)

	got, err := store.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, got.Status)
}

func TestListTablesOrdersByLabel(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedTable(t, bunDB, models.DiningTable{ID: "b", Label: "T2", Status: models.TableVacant})
	seedTable(t, bunDB, models.DiningTable{ID: "a", Label: "T1", Status: models.TableOccupied})

	tables, err := store.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "T1", tables[0].Label)
	assert.Equal(t, "T2", tables[1].Label)
}

func TestGetTableNotFound(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := store.GetTable(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

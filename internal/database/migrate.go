package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"foh-coordinator/internal/models"
)

// Migrate creates the coordinator schema and guarantees the takeaway slot
// exists. Safe to run on every boot.
func Migrate(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.DiningTable)(nil),
		(*models.Order)(nil),
		(*models.OrderLine)(nil),
		(*models.MenuItem)(nil),
		(*models.SessionToken)(nil),
		(*models.LoyaltyAccount)(nil),
		(*models.Ingredient)(nil),
		(*models.InventoryLog)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	// The unique index on order_code closes the day-sequence race: the
	// read-max-then-insert loop retries on collision.
	if _, err := db.NewCreateIndex().
		Model((*models.Order)(nil)).
		Index("idx_orders_code").
		Unique().
		Column("order_code").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create order_code index: %w", err)
	}

	slot := &models.DiningTable{
		ID:         models.TakeawaySlotID,
		Label:      "Takeaway",
		Seats:      0,
		Status:     models.TableVacant,
		IsTakeaway: true,
	}
	if _, err := db.NewInsert().
		Model(slot).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("seed takeaway slot: %w", err)
	}

	return nil
}

// Seed loads a starter floor plan, menu and pantry for a fresh install.
func Seed(ctx context.Context, db *bun.DB) error {
	tables := []models.DiningTable{
		{ID: "t1", Label: "T1", Seats: 2, Status: models.TableVacant},
		{ID: "t2", Label: "T2", Seats: 4, Status: models.TableVacant},
		{ID: "t3", Label: "T3", Seats: 4, Status: models.TableVacant},
		{ID: "t4", Label: "T4", Seats: 6, Status: models.TableVacant},
	}
	for i := range tables {
		if _, err := db.NewInsert().
			Model(&tables[i]).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("seed table %s: %w", tables[i].ID, err)
		}
	}

	items := []models.MenuItem{
		{ID: "m-padthai", Name: "Pad Thai", Price: 80, Active: true},
		{ID: "m-tomyum", Name: "Tom Yum Goong", Price: 150, Active: true},
		{ID: "m-rice", Name: "Steamed Rice", Price: 15, Active: true},
		{ID: "m-thaitea", Name: "Thai Iced Tea", Price: 45, Active: true},
	}
	for i := range items {
		if _, err := db.NewInsert().
			Model(&items[i]).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("seed menu item %s: %w", items[i].ID, err)
		}
	}

	ingredients := []models.Ingredient{
		{ID: "i-noodles", Name: "Rice Noodles", Unit: "kg", Stock: 10, MinThreshold: 2, UnitCost: 35},
		{ID: "i-shrimp", Name: "Shrimp", Unit: "kg", Stock: 5, MinThreshold: 1, UnitCost: 220},
		{ID: "i-tea", Name: "Tea Leaves", Unit: "kg", Stock: 2, MinThreshold: 0.5, UnitCost: 180},
	}
	for i := range ingredients {
		if _, err := db.NewInsert().
			Model(&ingredients[i]).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("seed ingredient %s: %w", ingredients[i].ID, err)
		}
	}

	return nil
}

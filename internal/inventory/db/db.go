package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetIngredient(ctx context.Context, id string) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := d.Bun.NewSelect().
		Model(&ing).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ingredient %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ing, nil
}

func (d *DB) ListLowStock(ctx context.Context) ([]models.Ingredient, error) {
	var ings []models.Ingredient
	err := d.Bun.NewSelect().
		Model(&ings).
		Where("stock <= min_threshold").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return ings, nil
}

func (d *DB) LogsByIngredient(ctx context.Context, ingredientID string) ([]models.InventoryLog, error) {
	var logs []models.InventoryLog
	err := d.Bun.NewSelect().
		Model(&logs).
		Where("ingredient_id = ?", ingredientID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ApplyRestock appends the restock log row and moves the cached stock and
// unit cost in one transaction; the log is the source of truth, the cached
// columns are its materialized view.
func (d *DB) ApplyRestock(ctx context.Context, entry *models.InventoryLog, newUnitCost float64) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.Ingredient)(nil)).
			Set("stock = stock + ?", entry.Change).
			Set("unit_cost = ?", newUnitCost).
			Where("id = ?", entry.IngredientID).
			Exec(ctx)
		return err
	})
}

// ApplyConsumption decrements stock behind a no-negative guard and appends
// the signed log row. Zero affected rows aborts the transaction with
// ErrInsufficientStock.
func (d *DB) ApplyConsumption(ctx context.Context, entry *models.InventoryLog) error {
	amount := -entry.Change
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Ingredient)(nil)).
			Set("stock = stock - ?", amount).
			Where("id = ?", entry.IngredientID).
			Where("stock >= ?", amount).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("consume %.3f of %s: %w", amount, entry.IngredientID, apperr.ErrInsufficientStock)
		}
		_, err = tx.NewInsert().Model(entry).Exec(ctx)
		return err
	})
}

// ApplyAdjustment sets the cached stock to the recounted absolute value and
// logs the signed delta.
func (d *DB) ApplyAdjustment(ctx context.Context, entry *models.InventoryLog, newAbsolute float64) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.Ingredient)(nil)).
			Set("stock = ?", newAbsolute).
			Where("id = ?", entry.IngredientID).
			Exec(ctx)
		return err
	})
}

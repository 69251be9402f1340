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

// GetTable → fetch one table by its ID
func (d *DB) GetTable(ctx context.Context, id string) (*models.DiningTable, error) {
	var table models.DiningTable
	err := d.Bun.NewSelect().
		Model(&table).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ListTables → the floor view, seated tables plus the takeaway slot
func (d *DB) ListTables(ctx context.Context) ([]models.DiningTable, error) {
	var tables []models.DiningTable
	err := d.Bun.NewSelect().
		Model(&tables).
		Order("label ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// SetTableStatus is the occupancy CAS: the update applies only while the row
// still holds the expected state. A false result means another terminal won.
func (d *DB) SetTableStatus(ctx context.Context, id string, from, to models.TableStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.DiningTable)(nil)).
		Set("status = ?", to).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

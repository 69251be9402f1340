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

func (d *DB) GetAccount(ctx context.Context, id string) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := d.Bun.NewSelect().
		Model(&account).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loyalty account %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// AddPoints applies accrual as an increment in the store, so two
// settlements for the same customer cannot drop each other's points.
func (d *DB) AddPoints(ctx context.Context, id string, earned int) (int, error) {
	_, err := d.Bun.NewUpdate().
		Model((*models.LoyaltyAccount)(nil)).
		Set("points = points + ?", earned).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	account, err := d.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.Points, nil
}

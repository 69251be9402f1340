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

func (d *DB) GetToken(ctx context.Context, token string) (*models.SessionToken, error) {
	var st models.SessionToken
	err := d.Bun.NewSelect().
		Model(&st).
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", apperr.ErrTokenNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (d *DB) InsertToken(ctx context.Context, token *models.SessionToken) error {
	_, err := d.Bun.NewInsert().Model(token).Exec(ctx)
	return err
}

// CloseActiveForTable supersedes every active token bound to the table.
// Closed rows stay behind as the audit trail.
func (d *DB) CloseActiveForTable(ctx context.Context, tableID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.SessionToken)(nil)).
		Set("status = ?", models.SessionCompleted).
		Where("table_id = ?", tableID).
		Where("status = ?", models.SessionActive).
		Exec(ctx)
	return err
}

// SetTokenStatus conditionally transitions one token.
func (d *DB) SetTokenStatus(ctx context.Context, token string, from, to models.SessionStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.SessionToken)(nil)).
		Set("status = ?", to).
		Where("token = ?", token).
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

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// IsDuplicate reports whether an insert failed on a unique index. Covers the
// pg wire error and the sqlite shim used in tests.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}

// GetOrder → fetch one order by its ID
func (d *DB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderWithLines retrieves an order and all of its lines.
func (d *DB) GetOrderWithLines(ctx context.Context, id string) (*models.OrderWithLines, error) {
	order, err := d.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := d.LinesByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.OrderWithLines{Order: *order, Lines: lines}, nil
}

func (d *DB) GetLine(ctx context.Context, id string) (*models.OrderLine, error) {
	var line models.OrderLine
	err := d.Bun.NewSelect().
		Model(&line).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("line %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (d *DB) LinesByOrder(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := d.Bun.NewSelect().
		Model(&lines).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (d *DB) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := d.Bun.NewSelect().
		Model(&item).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("menu item %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertOrder → insert new order; the unique index on order_code surfaces
// day-sequence collisions to the caller's retry loop.
func (d *DB) InsertOrder(ctx context.Context, order *models.Order) error {
	_, err := d.Bun.NewInsert().Model(order).Exec(ctx)
	return err
}

func (d *DB) InsertLine(ctx context.Context, line *models.OrderLine) error {
	_, err := d.Bun.NewInsert().Model(line).Exec(ctx)
	return err
}

// MaxDailySequence reads the highest sequence already used for the day's
// code prefix. The read-then-insert race is closed by the unique index plus
// the caller's retry, not by this read.
func (d *DB) MaxDailySequence(ctx context.Context, prefix string, day time.Time) (int, error) {
	pattern := prefix + day.Format("20060102") + "%"
	var codes []string
	err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Column("order_code").
		Where("order_code LIKE ?", pattern).
		Order("order_code DESC").
		Limit(1).
		Scan(ctx, &codes)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}
	tail := codes[0][len(pattern)-1:]
	var seq int
	if _, err := fmt.Sscanf(tail, "%d", &seq); err != nil {
		return 0, fmt.Errorf("malformed order code %q: %w", codes[0], err)
	}
	return seq, nil
}

// SetLineStatus is the per-line CAS; false means the line was not in the
// expected state anymore.
func (d *DB) SetLineStatus(ctx context.Context, id string, from, to models.LineStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.OrderLine)(nil)).
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

// SetOrderStatus conditionally moves an order between lifecycle states.
func (d *DB) SetOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
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

// SyncDerivedStatus persists a freshly derived order status, guarded so a
// terminal order is never resurrected.
func (d *DB) SyncDerivedStatus(ctx context.Context, id string, to models.OrderStatus) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", to).
		Where("id = ?", id).
		Where("status NOT IN (?)", bun.In([]models.OrderStatus{models.OrderCompleted, models.OrderCancelled})).
		Exec(ctx)
	return err
}

// CancelOrder moves any non-terminal order to cancelled.
func (d *DB) CancelOrder(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.OrderCancelled).
		Where("id = ?", id).
		Where("status NOT IN (?)", bun.In([]models.OrderStatus{models.OrderCompleted, models.OrderCancelled})).
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

// SettleOrder is the settlement guard: one conditional write flips lifecycle
// served→completed and payment unpaid→method together. Zero rows means the
// guard was already consumed.
func (d *DB) SettleOrder(ctx context.Context, id string, method models.PaymentMethod, proofRef string, total float64, at time.Time) (bool, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.OrderCompleted).
		Set("payment = ?", method).
		Set("total = ?", total).
		Set("settled_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.OrderServed).
		Where("payment = ?", models.PaymentUnpaid)
	if proofRef != "" {
		q = q.Set("payment_proof = ?", proofRef)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// OpenOrders returns the kitchen snapshot: every pending or cooking order
// with its lines, oldest first.
func (d *DB) OpenOrders(ctx context.Context) ([]models.OrderWithLines, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("status IN (?)", bun.In([]models.OrderStatus{models.OrderPending, models.OrderCooking})).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []models.OrderWithLines{}, nil
	}

	orderIDs := make([]string, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}

	var lines []models.OrderLine
	err = d.Bun.NewSelect().
		Model(&lines).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Order("order_id", "created_at").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	linesByOrder := make(map[string][]models.OrderLine)
	for _, l := range lines {
		linesByOrder[l.OrderID] = append(linesByOrder[l.OrderID], l)
	}

	result := make([]models.OrderWithLines, len(orders))
	for i, o := range orders {
		result[i] = models.OrderWithLines{Order: o, Lines: linesByOrder[o.ID]}
		if result[i].Lines == nil {
			result[i].Lines = []models.OrderLine{}
		}
	}
	return result, nil
}

// ActiveOrderByTable finds the current non-terminal order for a table, if
// any. Used to hold the one-active-order-per-table invariant.
func (d *DB) ActiveOrderByTable(ctx context.Context, tableID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("table_id = ?", tableID).
		Where("status NOT IN (?)", bun.In([]models.OrderStatus{models.OrderCompleted, models.OrderCancelled})).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

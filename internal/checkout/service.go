package checkout

import (
	"context"
	"fmt"
	"math"
	"time"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/models"
)

// pointsPer is the loyalty accrual divisor: one point per 100 currency units
// of a settled order.
const pointsPer = 100.0

type OrderStore interface {
	GetOrderWithLines(ctx context.Context, id string) (*models.OrderWithLines, error)
	SettleOrder(ctx context.Context, id string, method models.PaymentMethod, proofRef string, total float64, at time.Time) (bool, error)
}

type LoyaltyStore interface {
	GetAccount(ctx context.Context, id string) (*models.LoyaltyAccount, error)
	AddPoints(ctx context.Context, id string, earned int) (int, error)
}

type TableReleaser interface {
	Release(ctx context.Context, tableID string) error
}

type SessionCloser interface {
	CloseForTable(ctx context.Context, tableID string) error
}

type FastLock interface {
	Acquire(ctx context.Context, key, owner string) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// Service settles one order for one table: recompute the total server-side,
// win the settlement guard exactly once, accrue points, free the table,
// close the session.
type Service struct {
	Orders   OrderStore
	Loyalty  LoyaltyStore
	Tables   TableReleaser
	Sessions SessionCloser
	Lock     FastLock
	Logger   *logger.Logger
	now      func() time.Time
}

func NewService(orders OrderStore, loyalty LoyaltyStore, tables TableReleaser, sessions SessionCloser, lock FastLock, log *logger.Logger) *Service {
	return &Service{
		Orders:   orders,
		Loyalty:  loyalty,
		Tables:   tables,
		Sessions: sessions,
		Lock:     lock,
		Logger:   log,
		now:      time.Now,
	}
}

// Settle executes payment idempotently. On ErrAlreadySettled the prior
// receipt is returned alongside the error so the terminal can simply show it
// again; a double-tap is success from the caller's point of view.
//
// Failures before the guard leave all state untouched. Failures after the
// guard (accrual, table release, session close) are logged and left to their
// individually idempotent retries; the financial fact is already durable.
func (s *Service) Settle(ctx context.Context, orderID string, method models.PaymentMethod, proofRef string) (*models.Receipt, error) {
	switch method {
	case models.PaymentCash:
	case models.PaymentPromptPay:
		if proofRef == "" {
			return nil, fmt.Errorf("promptpay settlement: %w", apperr.ErrMissingProof)
		}
	default:
		return nil, fmt.Errorf("payment method %q: %w", method, apperr.ErrValidation)
	}

	ow, err := s.Orders.GetOrderWithLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// The total is always recomputed from line snapshots; a client-submitted
	// figure is never trusted.
	total := models.LineTotal(ow.Lines)

	if ow.Order.Status == models.OrderCompleted {
		return s.priorReceipt(ctx, &ow.Order, total), fmt.Errorf("order %s: %w", orderID, apperr.ErrAlreadySettled)
	}
	if ow.Order.Status != models.OrderServed {
		return nil, fmt.Errorf("order %s is %s, not served: %w", orderID, ow.Order.Status, apperr.ErrInvalidTransition)
	}

	// Fast path against a double-tap; the conditional write below is the
	// real guard.
	lockKey := "settle_lock:" + orderID
	if s.Lock != nil {
		ok, err := s.Lock.Acquire(ctx, lockKey, orderID)
		if err == nil && !ok {
			return nil, fmt.Errorf("settlement of %s in progress: %w", orderID, apperr.ErrConflict)
		}
		defer func() { _ = s.Lock.Release(context.Background(), lockKey, orderID) }()
	}

	settledAt := s.now()
	won, err := s.Orders.SettleOrder(ctx, orderID, method, proofRef, total, settledAt)
	if err != nil {
		return nil, fmt.Errorf("settlement guard for %s: %w", orderID, err)
	}
	if !won {
		// Someone else consumed the served/unpaid precondition between our
		// fetch and the write.
		fresh, ferr := s.Orders.GetOrderWithLines(ctx, orderID)
		if ferr != nil {
			return nil, ferr
		}
		if fresh.Order.Status == models.OrderCompleted {
			return s.priorReceipt(ctx, &fresh.Order, models.LineTotal(fresh.Lines)), fmt.Errorf("order %s: %w", orderID, apperr.ErrAlreadySettled)
		}
		return nil, fmt.Errorf("order %s is %s: %w", orderID, fresh.Order.Status, apperr.ErrInvalidTransition)
	}

	if s.Logger != nil {
		s.Logger.LogCheckout("SETTLE", orderID, fmt.Sprintf("%s %.2f via %s", ow.Order.OrderCode, total, method))
	}

	receipt := &models.Receipt{
		OrderID:   orderID,
		OrderCode: ow.Order.OrderCode,
		Total:     total,
		Method:    method,
		SettledAt: settledAt,
	}

	// Everything below is gated on having won the guard and never fails the
	// settlement.
	if ow.Order.LoyaltyAccountID != "" && total > 0 {
		earned := PointsFor(total)
		if earned > 0 {
			balance, err := s.Loyalty.AddPoints(ctx, ow.Order.LoyaltyAccountID, earned)
			if err != nil {
				if s.Logger != nil {
					s.Logger.Error("CHECKOUT", fmt.Sprintf("accrue %d points on %s: %v", earned, ow.Order.LoyaltyAccountID, err))
				}
			} else {
				receipt.PointsEarned = earned
				receipt.PointsBalance = balance
			}
		}
	}

	if ow.Order.TableID != models.TakeawaySlotID {
		if err := s.Tables.Release(ctx, ow.Order.TableID); err != nil && s.Logger != nil {
			s.Logger.Error("CHECKOUT", fmt.Sprintf("release table %s: %v", ow.Order.TableID, err))
		}
	}

	if err := s.Sessions.CloseForTable(ctx, ow.Order.TableID); err != nil && s.Logger != nil {
		s.Logger.Error("CHECKOUT", fmt.Sprintf("close session for %s: %v", ow.Order.TableID, err))
	}

	return receipt, nil
}

// priorReceipt rebuilds the receipt for an order that was already settled so
// a re-submitting terminal can re-render it.
func (s *Service) priorReceipt(ctx context.Context, o *models.Order, total float64) *models.Receipt {
	receipt := &models.Receipt{
		OrderID:   o.ID,
		OrderCode: o.OrderCode,
		Total:     total,
		Method:    o.Payment,
		SettledAt: o.SettledAt,
	}
	if o.Total > 0 {
		receipt.Total = o.Total
	}
	if o.LoyaltyAccountID != "" && receipt.Total > 0 {
		receipt.PointsEarned = PointsFor(receipt.Total)
		if account, err := s.Loyalty.GetAccount(ctx, o.LoyaltyAccountID); err == nil {
			receipt.PointsBalance = account.Points
		}
	}
	return receipt
}

// PointsFor is the accrual rule: floor(total / 100).
func PointsFor(total float64) int {
	return int(math.Floor(total / pointsPer))
}

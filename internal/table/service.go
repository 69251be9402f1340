package table

import (
	"context"
	"errors"
	"fmt"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/models"
)

type Store interface {
	GetTable(ctx context.Context, id string) (*models.DiningTable, error)
	ListTables(ctx context.Context) ([]models.DiningTable, error)
	SetTableStatus(ctx context.Context, id string, from, to models.TableStatus) (bool, error)
}

type OrderOpener interface {
	CreateOrder(ctx context.Context, tableID string, headcount int, loyaltyAccountID string) (*models.Order, error)
}

type SessionIssuer interface {
	Issue(ctx context.Context, tableID string) (*models.SessionToken, error)
	CloseForTable(ctx context.Context, tableID string) error
}

type FastLock interface {
	Acquire(ctx context.Context, key, owner string) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// Service drives the vacant → occupied → checkout → vacant occupancy machine.
// The takeaway slot never transitions; its slips carry their own status.
type Service struct {
	DB       Store
	Orders   OrderOpener
	Sessions SessionIssuer
	Lock     FastLock
	Logger   *logger.Logger
}

func NewService(db Store, orders OrderOpener, sessions SessionIssuer, lock FastLock, log *logger.Logger) *Service {
	return &Service{DB: db, Orders: orders, Sessions: sessions, Lock: lock, Logger: log}
}

// Open seats a party at a vacant table: occupancy CAS, session token, fresh
// pending order. Exactly one of two racing terminals wins; the other gets
// Conflict and should refresh its floor view.
func (s *Service) Open(ctx context.Context, tableID string, headcount int) (*models.OpenTableResponse, error) {
	t, err := s.DB.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if t.IsTakeaway {
		return nil, fmt.Errorf("table %s is the takeaway slot: %w", tableID, apperr.ErrValidation)
	}
	if headcount < 1 {
		headcount = 1
	}

	// Fast path against a double-tap from the same terminal. Correctness
	// still rests on the occupancy CAS below.
	lockKey := "table_open:" + tableID
	if s.Lock != nil {
		ok, err := s.Lock.Acquire(ctx, lockKey, tableID)
		if err == nil && !ok {
			return nil, fmt.Errorf("table %s open in progress: %w", tableID, apperr.ErrConflict)
		}
		defer func() { _ = s.Lock.Release(context.Background(), lockKey, tableID) }()
	}

	won, err := s.DB.SetTableStatus(ctx, tableID, models.TableVacant, models.TableOccupied)
	if err != nil {
		return nil, fmt.Errorf("occupy table %s: %w", tableID, err)
	}
	if !won {
		return nil, fmt.Errorf("table %s is not vacant: %w", tableID, apperr.ErrConflict)
	}

	token, err := s.Sessions.Issue(ctx, tableID)
	if err != nil {
		s.revertOpen(ctx, tableID)
		return nil, fmt.Errorf("issue session for table %s: %w", tableID, err)
	}

	order, err := s.Orders.CreateOrder(ctx, tableID, headcount, "")
	if err != nil {
		_ = s.Sessions.CloseForTable(ctx, tableID)
		s.revertOpen(ctx, tableID)
		return nil, fmt.Errorf("create order for table %s: %w", tableID, err)
	}

	if s.Logger != nil {
		s.Logger.LogTable("OPEN", tableID, fmt.Sprintf("order %s opened", order.OrderCode))
	}

	return &models.OpenTableResponse{
		OrderID:      order.ID,
		OrderCode:    order.OrderCode,
		SessionToken: token.Token,
	}, nil
}

// revertOpen compensates a won occupancy CAS when downstream creation fails.
func (s *Service) revertOpen(ctx context.Context, tableID string) {
	if _, err := s.DB.SetTableStatus(ctx, tableID, models.TableOccupied, models.TableVacant); err != nil && s.Logger != nil {
		s.Logger.Error("TABLE", fmt.Sprintf("revert open of %s failed: %v", tableID, err))
	}
}

// StartTakeaway starts a slip on the shared takeaway slot. The slot has no
// occupancy state, so there is no CAS here; the order rows carry liveness.
func (s *Service) StartTakeaway(ctx context.Context, headcount int) (*models.OpenTableResponse, error) {
	if headcount < 1 {
		headcount = 1
	}

	token, err := s.Sessions.Issue(ctx, models.TakeawaySlotID)
	if err != nil {
		return nil, fmt.Errorf("issue takeaway session: %w", err)
	}

	order, err := s.Orders.CreateOrder(ctx, models.TakeawaySlotID, headcount, "")
	if err != nil {
		return nil, fmt.Errorf("create takeaway order: %w", err)
	}

	if s.Logger != nil {
		s.Logger.LogTable("TAKEAWAY", models.TakeawaySlotID, fmt.Sprintf("slip %s started", order.OrderCode))
	}

	return &models.OpenTableResponse{
		OrderID:      order.ID,
		OrderCode:    order.OrderCode,
		SessionToken: token.Token,
	}, nil
}

// MarkReadyForCheckout moves an occupied table to checkout once every line of
// its active order is completed. Calling it on a table already in checkout is
// a no-op.
func (s *Service) MarkReadyForCheckout(ctx context.Context, tableID string) error {
	t, err := s.DB.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	if t.IsTakeaway {
		return nil
	}

	won, err := s.DB.SetTableStatus(ctx, tableID, models.TableOccupied, models.TableCheckout)
	if err != nil {
		return fmt.Errorf("checkout table %s: %w", tableID, err)
	}
	if won {
		if s.Logger != nil {
			s.Logger.LogTable("CHECKOUT", tableID, "ready for checkout")
		}
		return nil
	}

	cur, err := s.DB.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	if cur.Status == models.TableCheckout {
		return nil
	}
	return fmt.Errorf("table %s is %s: %w", tableID, cur.Status, apperr.ErrInvalidTransition)
}

// Release frees a table after settlement. Releasing from any state other
// than checkout means a stale client and is rejected.
func (s *Service) Release(ctx context.Context, tableID string) error {
	t, err := s.DB.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	if t.IsTakeaway {
		return nil
	}

	won, err := s.DB.SetTableStatus(ctx, tableID, models.TableCheckout, models.TableVacant)
	if err != nil {
		return fmt.Errorf("release table %s: %w", tableID, err)
	}
	if !won {
		return fmt.Errorf("table %s is not in checkout: %w", tableID, apperr.ErrInvalidTransition)
	}
	if s.Logger != nil {
		s.Logger.LogTable("RELEASE", tableID, "vacant")
	}
	return nil
}

// Abandon frees a table whose order was cancelled mid-service, from either
// occupied or checkout.
func (s *Service) Abandon(ctx context.Context, tableID string) error {
	t, err := s.DB.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	if t.IsTakeaway {
		return nil
	}

	won, err := s.DB.SetTableStatus(ctx, tableID, models.TableOccupied, models.TableVacant)
	if err != nil {
		return err
	}
	if won {
		return nil
	}
	won, err = s.DB.SetTableStatus(ctx, tableID, models.TableCheckout, models.TableVacant)
	if err != nil {
		return err
	}
	if !won {
		cur, err := s.DB.GetTable(ctx, tableID)
		if err != nil {
			return err
		}
		if cur.Status == models.TableVacant {
			return nil
		}
		return fmt.Errorf("table %s is %s: %w", tableID, cur.Status, apperr.ErrInvalidTransition)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.DiningTable, error) {
	return s.DB.ListTables(ctx)
}

// IsConflict helps terminals decide to silently refresh instead of raising
// an error dialog.
func IsConflict(err error) bool {
	return errors.Is(err, apperr.ErrConflict)
}

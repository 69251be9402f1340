package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/models"
	"foh-coordinator/internal/utils"
)

// codeRetries bounds the day-sequence insert loop when two terminals create
// orders in the same instant.
const codeRetries = 5

type Store interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderWithLines(ctx context.Context, id string) (*models.OrderWithLines, error)
	GetLine(ctx context.Context, id string) (*models.OrderLine, error)
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	LinesByOrder(ctx context.Context, orderID string) ([]models.OrderLine, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertLine(ctx context.Context, line *models.OrderLine) error
	MaxDailySequence(ctx context.Context, prefix string, day time.Time) (int, error)
	SetLineStatus(ctx context.Context, id string, from, to models.LineStatus) (bool, error)
	SetOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error)
	SyncDerivedStatus(ctx context.Context, id string, to models.OrderStatus) error
	CancelOrder(ctx context.Context, id string) (bool, error)
	ActiveOrderByTable(ctx context.Context, tableID string) (*models.Order, error)
}

// TableNotifier is how line completion reaches the occupancy machine without
// a package cycle; the table service implements it.
type TableNotifier interface {
	MarkReadyForCheckout(ctx context.Context, tableID string) error
	Abandon(ctx context.Context, tableID string) error
}

type IsDuplicateFunc func(error) bool

// Service tracks order lines pending → cooking → completed and keeps the
// order-level status in step with them.
type Service struct {
	DB          Store
	Tables      TableNotifier
	CodePrefix  string
	IsDuplicate IsDuplicateFunc
	Logger      *logger.Logger
	now         func() time.Time
}

func NewService(db Store, tables TableNotifier, codePrefix string, isDup IsDuplicateFunc, log *logger.Logger) *Service {
	return &Service{
		DB:          db,
		Tables:      tables,
		CodePrefix:  codePrefix,
		IsDuplicate: isDup,
		Logger:      log,
		now:         time.Now,
	}
}

// CreateOrder mints a new pending, unpaid order with a unique day-sequence
// code. Called by the table service after it wins the occupancy CAS, and for
// every takeaway slip.
func (s *Service) CreateOrder(ctx context.Context, tableID string, headcount int, loyaltyAccountID string) (*models.Order, error) {
	if tableID != models.TakeawaySlotID {
		active, err := s.DB.ActiveOrderByTable(ctx, tableID)
		if err != nil {
			return nil, err
		}
		if active != nil {
			return nil, fmt.Errorf("table %s already has order %s: %w", tableID, active.OrderCode, apperr.ErrConflict)
		}
	}

	now := s.now()
	var lastErr error
	for attempt := 0; attempt < codeRetries; attempt++ {
		seq, err := s.DB.MaxDailySequence(ctx, s.CodePrefix, now)
		if err != nil {
			return nil, fmt.Errorf("read day sequence: %w", err)
		}

		order := &models.Order{
			ID:               uuid.NewString(),
			OrderCode:        utils.DayCode(s.CodePrefix, now, seq+1),
			TableID:          tableID,
			Status:           models.OrderPending,
			Payment:          models.PaymentUnpaid,
			Headcount:        headcount,
			LoyaltyAccountID: loyaltyAccountID,
			CreatedAt:        now,
		}

		err = s.DB.InsertOrder(ctx, order)
		if err == nil {
			if s.Logger != nil {
				s.Logger.LogOrder("CREATE", order.ID, fmt.Sprintf("code %s table %s", order.OrderCode, tableID))
			}
			return order, nil
		}
		if s.IsDuplicate != nil && s.IsDuplicate(err) {
			// Another terminal took this sequence number; re-read and retry.
			lastErr = err
			continue
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return nil, fmt.Errorf("day-sequence contention after %d attempts (%v): %w", codeRetries, lastErr, apperr.ErrConflict)
}

// AddLine appends a line with the menu price snapshotted at call time.
// Catalog price changes afterwards never move historical totals. A line can
// be inserted directly completed for checkout-side add-ons.
func (s *Service) AddLine(ctx context.Context, orderID, menuItemID string, qty int, note string, initial models.LineStatus) (*models.OrderLine, error) {
	if qty < 1 {
		return nil, fmt.Errorf("qty must be >= 1, got %d: %w", qty, apperr.ErrValidation)
	}
	switch initial {
	case models.LinePending, models.LineCompleted:
	default:
		return nil, fmt.Errorf("initial line status %q: %w", initial, apperr.ErrValidation)
	}

	o, err := s.DB.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, o.Status, apperr.ErrInvalidTransition)
	}

	item, err := s.DB.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}

	line := &models.OrderLine{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		MenuItemID: item.ID,
		Name:       item.Name,
		Qty:        qty,
		UnitPrice:  item.Price,
		Note:       note,
		Status:     initial,
		CreatedAt:  s.now(),
	}
	if err := s.DB.InsertLine(ctx, line); err != nil {
		return nil, fmt.Errorf("insert line: %w", err)
	}

	if _, err := s.syncOrder(ctx, orderID); err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.LogOrder("ADD_LINE", orderID, fmt.Sprintf("%dx %s @ %.2f", qty, item.Name, item.Price))
	}
	return line, nil
}

// AdvanceLine moves a line one step forward. When the move completes the
// last unfinished line, the order flips to served and the table is marked
// ready for checkout.
func (s *Service) AdvanceLine(ctx context.Context, lineID string) (*models.AdvanceLineResponse, error) {
	line, err := s.DB.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}

	var next models.LineStatus
	switch line.Status {
	case models.LinePending:
		next = models.LineCooking
	case models.LineCooking:
		next = models.LineCompleted
	default:
		return nil, fmt.Errorf("line %s already completed: %w", lineID, apperr.ErrInvalidTransition)
	}

	won, err := s.DB.SetLineStatus(ctx, lineID, line.Status, next)
	if err != nil {
		return nil, fmt.Errorf("advance line %s: %w", lineID, err)
	}
	if !won {
		return nil, fmt.Errorf("line %s changed under us: %w", lineID, apperr.ErrConflict)
	}

	orderStatus, err := s.syncOrder(ctx, line.OrderID)
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.LogOrder("ADVANCE", line.OrderID, fmt.Sprintf("line %s -> %s", lineID, next))
	}

	return &models.AdvanceLineResponse{
		LineID:      lineID,
		LineStatus:  next,
		OrderID:     line.OrderID,
		OrderStatus: orderStatus,
	}, nil
}

// syncOrder re-derives the order status from its lines and persists it. When
// the derivation lands on served, exactly one caller wins the served CAS and
// pushes the table to checkout.
func (s *Service) syncOrder(ctx context.Context, orderID string) (models.OrderStatus, error) {
	o, err := s.DB.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.Status.Terminal() {
		return o.Status, nil
	}

	lines, err := s.DB.LinesByOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	derived := DeriveStatus(lines)

	if derived == models.OrderServed {
		won, err := s.DB.SetOrderStatus(ctx, orderID, o.Status, models.OrderServed)
		if err != nil {
			return "", err
		}
		if won {
			if err := s.Tables.MarkReadyForCheckout(ctx, o.TableID); err != nil {
				// The order is correctly served; the table transition is
				// idempotent and will be retried by the next poll action.
				if s.Logger != nil {
					s.Logger.Warn("ORDER", fmt.Sprintf("mark table %s for checkout: %v", o.TableID, err))
				}
			}
		}
		return models.OrderServed, nil
	}

	if derived != o.Status {
		if err := s.DB.SyncDerivedStatus(ctx, orderID, derived); err != nil {
			return "", err
		}
	}
	return derived, nil
}

// DeriveStatus is the pure order-level derivation rule: pending while no
// line has started, served once every line is done, cooking in between.
func DeriveStatus(lines []models.OrderLine) models.OrderStatus {
	if len(lines) == 0 {
		return models.OrderPending
	}
	allPending, allCompleted := true, true
	for _, l := range lines {
		if l.Status != models.LinePending {
			allPending = false
		}
		if l.Status != models.LineCompleted {
			allCompleted = false
		}
	}
	switch {
	case allCompleted:
		return models.OrderServed
	case allPending:
		return models.OrderPending
	default:
		return models.OrderCooking
	}
}

// Cancel voids a non-terminal order and frees its table.
func (s *Service) Cancel(ctx context.Context, orderID string) error {
	o, err := s.DB.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	won, err := s.DB.CancelOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if !won {
		return fmt.Errorf("order %s is %s: %w", orderID, o.Status, apperr.ErrInvalidTransition)
	}

	if err := s.Tables.Abandon(ctx, o.TableID); err != nil && s.Logger != nil {
		s.Logger.Warn("ORDER", fmt.Sprintf("free table %s after cancel: %v", o.TableID, err))
	}
	if s.Logger != nil {
		s.Logger.LogOrder("CANCEL", orderID, "cancelled")
	}
	return nil
}

func (s *Service) OrderWithLines(ctx context.Context, orderID string) (*models.OrderWithLines, error) {
	return s.DB.GetOrderWithLines(ctx, orderID)
}

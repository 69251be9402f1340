package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/models"
)

type Store interface {
	GetIngredient(ctx context.Context, id string) (*models.Ingredient, error)
	ListLowStock(ctx context.Context) ([]models.Ingredient, error)
	LogsByIngredient(ctx context.Context, ingredientID string) ([]models.InventoryLog, error)
	ApplyRestock(ctx context.Context, entry *models.InventoryLog, newUnitCost float64) error
	ApplyConsumption(ctx context.Context, entry *models.InventoryLog) error
	ApplyAdjustment(ctx context.Context, entry *models.InventoryLog, newAbsolute float64) error
}

// Service is the inventory ledger: every stock movement is an appended log
// row, and the ingredient's cached stock and weighted-average unit cost move
// with it atomically.
type Service struct {
	DB     Store
	Logger *logger.Logger
	now    func() time.Time
}

func NewService(db Store, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log, now: time.Now}
}

// Restock adds purchased stock. With costPaid the unit cost is re-blended:
// (oldStock*oldCost + costPaid) / (oldStock + amount). Without it, the
// movement is valued at the current unit cost and the cost stays put.
func (s *Service) Restock(ctx context.Context, ingredientID string, amount float64, costPaid *float64) (*models.StockSnapshot, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("restock amount must be > 0, got %.3f: %w", amount, apperr.ErrValidation)
	}
	ing, err := s.DB.GetIngredient(ctx, ingredientID)
	if err != nil {
		return nil, err
	}

	newUnitCost := ing.UnitCost
	var logCost float64
	if costPaid != nil {
		if *costPaid < 0 {
			return nil, fmt.Errorf("cost paid must be >= 0: %w", apperr.ErrValidation)
		}
		logCost = *costPaid
		newUnitCost = (ing.Stock*ing.UnitCost + *costPaid) / (ing.Stock + amount)
	} else {
		logCost = amount * ing.UnitCost
	}

	entry := &models.InventoryLog{
		ID:           uuid.NewString(),
		IngredientID: ingredientID,
		Change:       amount,
		Kind:         models.StockRestock,
		Cost:         logCost,
		CreatedAt:    s.now(),
	}
	if err := s.DB.ApplyRestock(ctx, entry, newUnitCost); err != nil {
		return nil, fmt.Errorf("apply restock: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("INVENTORY", fmt.Sprintf("restock %s +%.3f, unit cost %.4f", ing.Name, amount, newUnitCost))
	}
	return s.snapshot(ctx, ingredientID)
}

// Consume removes stock used in preparation. Stock never goes negative; a
// draw beyond the current level fails with InsufficientStock.
func (s *Service) Consume(ctx context.Context, ingredientID string, amount float64) (*models.StockSnapshot, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("consume amount must be > 0, got %.3f: %w", amount, apperr.ErrValidation)
	}
	ing, err := s.DB.GetIngredient(ctx, ingredientID)
	if err != nil {
		return nil, err
	}

	entry := &models.InventoryLog{
		ID:           uuid.NewString(),
		IngredientID: ingredientID,
		Change:       -amount,
		Kind:         models.StockConsumption,
		Cost:         amount * ing.UnitCost,
		CreatedAt:    s.now(),
	}
	if err := s.DB.ApplyConsumption(ctx, entry); err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("INVENTORY", fmt.Sprintf("consume %s -%.3f", ing.Name, amount))
	}
	return s.snapshot(ctx, ingredientID)
}

// Adjust records a physical recount, logging the signed difference against
// the cached level.
func (s *Service) Adjust(ctx context.Context, ingredientID string, newAbsolute float64) (*models.StockSnapshot, error) {
	if newAbsolute < 0 {
		return nil, fmt.Errorf("adjusted stock must be >= 0, got %.3f: %w", newAbsolute, apperr.ErrValidation)
	}
	ing, err := s.DB.GetIngredient(ctx, ingredientID)
	if err != nil {
		return nil, err
	}

	delta := newAbsolute - ing.Stock
	entry := &models.InventoryLog{
		ID:           uuid.NewString(),
		IngredientID: ingredientID,
		Change:       delta,
		Kind:         models.StockAdjustment,
		Cost:         delta * ing.UnitCost,
		CreatedAt:    s.now(),
	}
	if err := s.DB.ApplyAdjustment(ctx, entry, newAbsolute); err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("INVENTORY", fmt.Sprintf("adjust %s to %.3f (delta %+.3f)", ing.Name, newAbsolute, delta))
	}
	return s.snapshot(ctx, ingredientID)
}

// LowStock lists ingredients at or below their minimum threshold. Derived
// on demand; never a stored flag that could desync.
func (s *Service) LowStock(ctx context.Context) ([]models.StockSnapshot, error) {
	ings, err := s.DB.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	snapshots := make([]models.StockSnapshot, len(ings))
	for i, ing := range ings {
		snapshots[i] = toSnapshot(&ing)
	}
	return snapshots, nil
}

func (s *Service) snapshot(ctx context.Context, ingredientID string) (*models.StockSnapshot, error) {
	ing, err := s.DB.GetIngredient(ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	snap := toSnapshot(ing)
	return &snap, nil
}

func toSnapshot(ing *models.Ingredient) models.StockSnapshot {
	return models.StockSnapshot{
		IngredientID: ing.ID,
		Name:         ing.Name,
		Unit:         ing.Unit,
		Stock:        ing.Stock,
		UnitCost:     ing.UnitCost,
		LowStock:     ing.LowStock(),
	}
}

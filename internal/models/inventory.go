package models

import (
	"time"

	"github.com/uptrace/bun"
)

type StockChangeKind string

const (
	StockRestock     StockChangeKind = "restock"
	StockConsumption StockChangeKind = "consumption"
	StockAdjustment  StockChangeKind = "manual-adjustment"
)

type Ingredient struct {
	bun.BaseModel `bun:"table:ingredients"`

	ID           string  `bun:"id,pk" json:"id"`
	Name         string  `bun:"name,notnull" json:"name"`
	Unit         string  `bun:"unit,notnull" json:"unit"`
	Stock        float64 `bun:"stock,notnull" json:"stock"`
	MinThreshold float64 `bun:"min_threshold" json:"min_threshold"`
	UnitCost     float64 `bun:"unit_cost" json:"unit_cost"`
}

// LowStock is a derived signal, never a stored flag.
func (i Ingredient) LowStock() bool {
	return i.Stock <= i.MinThreshold
}

// InventoryLog is the append-only source of truth for stock levels. The
// ingredient's cached stock column must be updated in the same transaction
// as every log insert.
type InventoryLog struct {
	bun.BaseModel `bun:"table:inventory_logs"`

	ID           string          `bun:"id,pk" json:"id"`
	IngredientID string          `bun:"ingredient_id,notnull" json:"ingredient_id"`
	Change       float64         `bun:"change,notnull" json:"change"`
	Kind         StockChangeKind `bun:"kind,notnull" json:"kind"`
	Cost         float64         `bun:"cost" json:"cost"`
	CreatedAt    time.Time       `bun:"created_at,notnull" json:"created_at"`
}

type StockSnapshot struct {
	IngredientID string  `json:"ingredient_id"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	Stock        float64 `json:"stock"`
	UnitCost     float64 `json:"unit_cost"`
	LowStock     bool    `json:"low_stock"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCooking   OrderStatus = "cooking"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the order can no longer change.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

type PaymentMethod string

const (
	PaymentUnpaid    PaymentMethod = "unpaid"
	PaymentCash      PaymentMethod = "cash"
	PaymentPromptPay PaymentMethod = "promptpay"
)

type LineStatus string

const (
	LinePending   LineStatus = "pending"
	LineCooking   LineStatus = "cooking"
	LineCompleted LineStatus = "completed"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID               string        `bun:"id,pk" json:"id"`
	OrderCode        string        `bun:"order_code,notnull,unique" json:"order_code"`
	TableID          string        `bun:"table_id,notnull" json:"table_id"`
	Status           OrderStatus   `bun:"status,notnull" json:"status"`
	Payment          PaymentMethod `bun:"payment,notnull" json:"payment"`
	PaymentProof     string        `bun:"payment_proof,nullzero" json:"payment_proof,omitempty"`
	Total            float64       `bun:"total" json:"total"`
	Headcount        int           `bun:"headcount" json:"headcount"`
	LoyaltyAccountID string        `bun:"loyalty_account_id,nullzero" json:"loyalty_account_id,omitempty"`
	CreatedAt        time.Time     `bun:"created_at,notnull" json:"created_at"`
	SettledAt        time.Time     `bun:"settled_at,nullzero" json:"settled_at,omitempty"`
}

type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID         string     `bun:"id,pk" json:"id"`
	OrderID    string     `bun:"order_id,notnull" json:"order_id"`
	MenuItemID string     `bun:"menu_item_id,notnull" json:"menu_item_id"`
	Name       string     `bun:"name,notnull" json:"name"`
	Qty        int        `bun:"qty,notnull" json:"qty"`
	UnitPrice  float64    `bun:"unit_price,notnull" json:"unit_price"`
	Note       string     `bun:"note,nullzero" json:"note,omitempty"`
	Status     LineStatus `bun:"status,notnull" json:"status"`
	CreatedAt  time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// MenuItem is the read-only price source for line snapshots. Catalog CRUD
// lives outside this service.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID     string  `bun:"id,pk" json:"id"`
	Name   string  `bun:"name,notnull" json:"name"`
	Price  float64 `bun:"price,notnull" json:"price"`
	Active bool    `bun:"active" json:"active"`
}

type OrderWithLines struct {
	Order Order       `json:"order"`
	Lines []OrderLine `json:"lines"`
}

// LineTotal sums unit_price x qty over the order's lines. Checkout always
// recomputes the total from this, never from a client-submitted figure.
func LineTotal(lines []OrderLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.UnitPrice * float64(l.Qty)
	}
	return total
}

type AddLineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Qty        int    `json:"qty"`
	Note       string `json:"note,omitempty"`
	// Completed inserts the line already completed, for checkout-side
	// add-ons that need no preparation (e.g. a bottled drink).
	Completed bool `json:"completed,omitempty"`
}

type AdvanceLineResponse struct {
	LineID      string      `json:"line_id"`
	LineStatus  LineStatus  `json:"line_status"`
	OrderID     string      `json:"order_id"`
	OrderStatus OrderStatus `json:"order_status"`
}

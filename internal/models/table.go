package models

import "github.com/uptrace/bun"

type TableStatus string

const (
	TableVacant   TableStatus = "vacant"
	TableOccupied TableStatus = "occupied"
	TableCheckout TableStatus = "checkout"
)

// TakeawaySlotID is the fixed ID of the shared takeaway slot. The slot is a
// table row that never transitions; its slips carry their own order status.
const TakeawaySlotID = "takeaway"

type DiningTable struct {
	bun.BaseModel `bun:"table:dining_tables"`

	ID         string      `bun:"id,pk" json:"id"`
	Label      string      `bun:"label,notnull" json:"label"`
	Seats      int         `bun:"seats" json:"seats"`
	Status     TableStatus `bun:"status,notnull" json:"status"`
	IsTakeaway bool        `bun:"is_takeaway" json:"is_takeaway"`
}

// OpenTableResponse is what a terminal gets back from seating a party or
// starting a takeaway slip: the fresh order plus the session token to print
// as a QR code.
type OpenTableResponse struct {
	OrderID      string `json:"order_id"`
	OrderCode    string `json:"order_code"`
	SessionToken string `json:"session_token"`
}

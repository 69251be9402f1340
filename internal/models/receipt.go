package models

import "time"

type SettleRequest struct {
	Method   PaymentMethod `json:"method"`
	ProofRef string        `json:"proof_ref,omitempty"`
}

// Receipt is the settlement result handed back to the terminal. Rendering
// and printing happen outside this service.
type Receipt struct {
	OrderID       string        `json:"order_id"`
	OrderCode     string        `json:"order_code"`
	Total         float64       `json:"total"`
	Method        PaymentMethod `json:"method"`
	PointsEarned  int           `json:"points_earned"`
	PointsBalance int           `json:"points_balance"`
	SettledAt     time.Time     `json:"settled_at"`
}

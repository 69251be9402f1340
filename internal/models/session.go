package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

// SessionToken binds a table or the takeaway slot to the customer self-order
// channel. Superseded tokens are closed, never deleted.
type SessionToken struct {
	bun.BaseModel `bun:"table:session_tokens"`

	Token     string        `bun:"token,pk" json:"token"`
	TableID   string        `bun:"table_id,notnull" json:"table_id"`
	Status    SessionStatus `bun:"status,notnull" json:"status"`
	IssuedAt  time.Time     `bun:"issued_at,notnull" json:"issued_at"`
	ExpiresAt time.Time     `bun:"expires_at,notnull" json:"expires_at"`
}

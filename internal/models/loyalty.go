package models

import (
	"github.com/uptrace/bun"
)

type LoyaltyAccount struct {
	bun.BaseModel `bun:"table:loyalty_accounts"`

	ID     string `bun:"id,pk" json:"id"`
	Name   string `bun:"name" json:"name"`
	Phone  string `bun:"phone,nullzero" json:"phone,omitempty"`
	Points int    `bun:"points,notnull" json:"points"`
}

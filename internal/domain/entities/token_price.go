package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenPrice is one observation of a token's fiat price, keyed by token
// and minute-truncated timestamp. The series doubles as a write-through
// cache of fetched prices and as the lookup table for valuing past events.
type TokenPrice struct {
	ID        int64           `db:"id"`
	TokenID   string          `db:"token_id"`
	PriceUsd  decimal.Decimal `db:"price_usd"`
	Timestamp time.Time       `db:"timestamp"`
	Source    string          `db:"source"`
	CreatedAt time.Time       `db:"created_at"`
}

package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PotPayout is an immutable disbursement from a pot to a recipient,
// unique on transaction hash like Donation.
type PotPayout struct {
	ID              int64           `db:"id"`
	PotID           string          `db:"pot_id"`
	RecipientID     string          `db:"recipient_id"`
	AmountNear      decimal.Decimal `db:"amount_near"`
	AmountUsd       decimal.Decimal `db:"amount_usd"`
	FtID            string          `db:"ft_id"`
	PaidAt          time.Time       `db:"paid_at"`
	BlockHeight     uint64          `db:"block_height"`
	TransactionHash string          `db:"transaction_hash"`
	CreatedAt       time.Time       `db:"created_at"`
}

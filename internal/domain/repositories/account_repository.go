package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/potlock/donation-indexer/internal/domain/entities"
)

// DonorDelta is the donor-side aggregate increment for one donation.
// Applied at most once per transaction hash, after the donation row
// insert succeeded.
type DonorDelta struct {
	AmountUsd          decimal.Decimal
	AmountNear         decimal.Decimal
	Bucket             entities.Bucket
	ReferralFeePaidUsd decimal.Decimal
	DonatedAt          time.Time
}

// RecipientDelta is the recipient-side aggregate increment for one
// donation or payout. HasBucket is false for plain pot donations, which
// update no recipient at all and therefore never produce a delta.
type RecipientDelta struct {
	AmountUsd  decimal.Decimal
	AmountNear decimal.Decimal
	Bucket     entities.Bucket
	ReceivedAt time.Time
}

// AccountRepository defines the interface for account data operations
type AccountRepository interface {
	// Upsert creates the account if absent, otherwise touches its
	// last-activity marker
	Upsert(ctx context.Context, id string, activityAt time.Time) error

	// GetByID retrieves an account, nil if unknown
	GetByID(ctx context.Context, id string) (*entities.Account, error)

	// GetAllPaginated retrieves accounts with pagination and sorting
	GetAllPaginated(ctx context.Context, limit, offset int, sortBy, sortOrder string) ([]entities.Account, int64, error)

	// ApplyDonorDelta applies the donor-side increments for one donation
	ApplyDonorDelta(ctx context.Context, id string, delta DonorDelta) error

	// ApplyRecipientDelta applies the recipient-side increments for one
	// donation or payout
	ApplyRecipientDelta(ctx context.Context, id string, delta RecipientDelta) error

	// AddReferralFeesEarned credits a referrer with an earned fee
	AddReferralFeesEarned(ctx context.Context, id string, feeUsd decimal.Decimal) error

	// CountDonors returns the number of accounts that have sent at least
	// one donation
	CountDonors(ctx context.Context) (int64, error)

	// CountRecipients returns the number of accounts that have received
	// at least one donation
	CountRecipients(ctx context.Context) (int64, error)
}

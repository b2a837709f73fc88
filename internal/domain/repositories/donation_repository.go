package repositories

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/potlock/donation-indexer/internal/domain/entities"
)

// ErrDuplicateTransaction indicates an insert collided with an already
// ingested transaction hash. Expected and benign under restart-induced
// reprocessing; callers must not apply aggregate deltas when they see it.
var ErrDuplicateTransaction = errors.New("transaction already ingested")

// GlobalStatsResult holds platform-wide donation aggregates
type GlobalStatsResult struct {
	TotalDonationsUsd  decimal.Decimal
	TotalDonationsNear decimal.Decimal
	TotalCount         int64
	TotalReferralFees  decimal.Decimal
	AmountByType       map[entities.DonationType]decimal.Decimal
}

// DonationRepository defines the interface for donation data operations
type DonationRepository interface {
	// Insert persists a donation. Returns ErrDuplicateTransaction when a
	// row with the same transaction hash already exists.
	Insert(ctx context.Context, donation *entities.Donation) error

	// GetByFilter retrieves donations matching the given filter
	GetByFilter(ctx context.Context, filter entities.DonationFilter) ([]entities.Donation, error)

	// GetCount returns the count of donations matching the filter
	GetCount(ctx context.Context, filter entities.DonationFilter) (int64, error)

	// CountByReferrer returns how many donations credited the referrer
	CountByReferrer(ctx context.Context, referrerID string) (int64, error)

	// GetGlobalStats returns platform-wide aggregates
	GetGlobalStats(ctx context.Context) (*GlobalStatsResult, error)
}

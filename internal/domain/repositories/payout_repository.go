package repositories

import (
	"context"

	"github.com/potlock/donation-indexer/internal/domain/entities"
)

// PayoutRepository defines the interface for pot payout data operations
type PayoutRepository interface {
	// Insert persists a pot payout. Returns ErrDuplicateTransaction when
	// a row with the same transaction hash already exists.
	Insert(ctx context.Context, payout *entities.PotPayout) error

	// GetByRecipient retrieves payouts for a recipient, newest first
	GetByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]entities.PotPayout, int64, error)
}

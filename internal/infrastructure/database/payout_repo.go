package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
)

// Ensure PayoutRepo implements PayoutRepository
var _ repositories.PayoutRepository = (*PayoutRepo)(nil)

// PayoutRepo implements PayoutRepository using PostgreSQL
type PayoutRepo struct {
	db *sqlx.DB
}

// NewPayoutRepo creates a new payout repository
func NewPayoutRepo(db *sqlx.DB) *PayoutRepo {
	return &PayoutRepo{db: db}
}

// Insert persists a pot payout with the same duplicate rule as donations
func (r *PayoutRepo) Insert(ctx context.Context, p *entities.PotPayout) error {
	query := `
		INSERT INTO pot_payouts (
			pot_id, recipient_id, amount_near, amount_usd, ft_id,
			paid_at, block_height, transaction_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (transaction_hash) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		p.PotID,
		p.RecipientID,
		p.AmountNear,
		p.AmountUsd,
		p.FtID,
		p.PaidAt,
		p.BlockHeight,
		p.TransactionHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payout: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrDuplicateTransaction
	}

	return nil
}

// GetByRecipient retrieves payouts for a recipient, newest first
func (r *PayoutRepo) GetByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]entities.PotPayout, int64, error) {
	query := `
		SELECT * FROM pot_payouts
		WHERE recipient_id = $1
		ORDER BY paid_at DESC
		LIMIT $2 OFFSET $3
	`

	var payouts []entities.PotPayout
	if err := r.db.SelectContext(ctx, &payouts, query, recipientID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to get payouts: %w", err)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM pot_payouts WHERE recipient_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, recipientID); err != nil {
		return nil, 0, fmt.Errorf("failed to count payouts: %w", err)
	}

	return payouts, total, nil
}

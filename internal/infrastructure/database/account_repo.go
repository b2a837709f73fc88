package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
)

// Ensure AccountRepo implements AccountRepository
var _ repositories.AccountRepository = (*AccountRepo)(nil)

// AccountRepo implements AccountRepository using PostgreSQL
type AccountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo creates a new account repository
func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Upsert creates the account if absent, otherwise touches last_activity_at
func (r *AccountRepo) Upsert(ctx context.Context, id string, activityAt time.Time) error {
	query := `
		INSERT INTO accounts (id, first_seen_at, last_activity_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET last_activity_at = EXCLUDED.last_activity_at
	`

	if _, err := r.db.ExecContext(ctx, query, id, activityAt); err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", id, err)
	}

	return nil
}

// GetByID retrieves an account, nil if unknown
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	var account entities.Account
	query := `SELECT * FROM accounts WHERE id = $1`

	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// accountSortColumns whitelists sortable columns for GetAllPaginated
var accountSortColumns = map[string]string{
	"total_donated_usd":        "total_donated_usd",
	"total_received_usd":       "total_received_usd",
	"donations_sent_count":     "donations_sent_count",
	"donations_received_count": "donations_received_count",
	"first_seen_at":            "first_seen_at",
	"last_activity_at":         "last_activity_at",
}

// GetAllPaginated retrieves accounts with pagination and sorting
func (r *AccountRepo) GetAllPaginated(ctx context.Context, limit, offset int, sortBy, sortOrder string) ([]entities.Account, int64, error) {
	column, ok := accountSortColumns[sortBy]
	if !ok {
		column = "total_donated_usd"
	}
	order := "DESC"
	if sortOrder == "asc" {
		order = "ASC"
	}

	query := fmt.Sprintf(`SELECT * FROM accounts ORDER BY %s %s LIMIT $1 OFFSET $2`, column, order)

	var accounts []entities.Account
	if err := r.db.SelectContext(ctx, &accounts, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to get accounts: %w", err)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM accounts`); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return accounts, total, nil
}

// ApplyDonorDelta applies the donor-side increments for one donation.
// first_donation_date is only set when previously unset; everything else
// is a pure increment so the row stays a running summary.
func (r *AccountRepo) ApplyDonorDelta(ctx context.Context, id string, delta repositories.DonorDelta) error {
	bucket := string(delta.Bucket)

	query := fmt.Sprintf(`
		UPDATE accounts SET
			total_donated_usd = total_donated_usd + $2,
			total_donated_near = total_donated_near + $3,
			donations_sent_count = donations_sent_count + 1,
			referral_fees_paid_usd = referral_fees_paid_usd + $4,
			first_donation_date = COALESCE(first_donation_date, $5),
			last_donation_date = $5,
			last_activity_at = $5,
			%s_donated_usd = %s_donated_usd + $2,
			%s_sent_count = %s_sent_count + 1
		WHERE id = $1
	`, bucket, bucket, bucket, bucket)

	result, err := r.db.ExecContext(ctx, query, id, delta.AmountUsd, delta.AmountNear, delta.ReferralFeePaidUsd, delta.DonatedAt)
	if err != nil {
		return fmt.Errorf("failed to apply donor delta: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("donor account %s not found", id)
	}

	return nil
}

// ApplyRecipientDelta applies the recipient-side increments for one
// donation or payout
func (r *AccountRepo) ApplyRecipientDelta(ctx context.Context, id string, delta repositories.RecipientDelta) error {
	bucket := string(delta.Bucket)

	query := fmt.Sprintf(`
		UPDATE accounts SET
			total_received_usd = total_received_usd + $2,
			total_received_near = total_received_near + $3,
			donations_received_count = donations_received_count + 1,
			last_activity_at = $4,
			%s_received_usd = %s_received_usd + $2,
			%s_received_count = %s_received_count + 1
		WHERE id = $1
	`, bucket, bucket, bucket, bucket)

	result, err := r.db.ExecContext(ctx, query, id, delta.AmountUsd, delta.AmountNear, delta.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to apply recipient delta: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("recipient account %s not found", id)
	}

	return nil
}

// AddReferralFeesEarned credits a referrer with an earned fee
func (r *AccountRepo) AddReferralFeesEarned(ctx context.Context, id string, feeUsd decimal.Decimal) error {
	query := `
		UPDATE accounts SET
			referral_fees_earned_usd = referral_fees_earned_usd + $2
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, feeUsd); err != nil {
		return fmt.Errorf("failed to add referral fees earned: %w", err)
	}

	return nil
}

// CountDonors returns the number of accounts with at least one sent donation
func (r *AccountRepo) CountDonors(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM accounts WHERE donations_sent_count > 0`

	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count donors: %w", err)
	}

	return count, nil
}

// CountRecipients returns the number of accounts with at least one
// received donation
func (r *AccountRepo) CountRecipients(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM accounts WHERE donations_received_count > 0`

	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count recipients: %w", err)
	}

	return count, nil
}

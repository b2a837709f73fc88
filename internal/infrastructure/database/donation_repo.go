package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
)

// Ensure DonationRepo implements DonationRepository
var _ repositories.DonationRepository = (*DonationRepo)(nil)

// DonationRepo implements DonationRepository using PostgreSQL
type DonationRepo struct {
	db *sqlx.DB
}

// NewDonationRepo creates a new donation repository
func NewDonationRepo(db *sqlx.DB) *DonationRepo {
	return &DonationRepo{db: db}
}

// Insert persists a donation. The unique index on transaction_hash is the
// idempotency guard: a conflicting insert affects zero rows and surfaces
// as ErrDuplicateTransaction so the caller skips the aggregate deltas.
func (r *DonationRepo) Insert(ctx context.Context, d *entities.Donation) error {
	query := `
		INSERT INTO donations (
			type, donor_id, recipient_id, amount_near, amount_usd, ft_id,
			message, donated_at, block_height, transaction_hash,
			protocol_fee_near, protocol_fee_usd,
			referrer_id, referrer_fee_near, referrer_fee_usd,
			pot_id, campaign_id, net_amount_near, chef_id, chef_fee_near, project_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (transaction_hash) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		d.Type,
		d.DonorID,
		d.RecipientID,
		d.AmountNear,
		d.AmountUsd,
		d.FtID,
		d.Message,
		d.DonatedAt,
		d.BlockHeight,
		d.TransactionHash,
		d.ProtocolFeeNear,
		d.ProtocolFeeUsd,
		d.ReferrerID,
		d.ReferrerFeeNear,
		d.ReferrerFeeUsd,
		d.PotID,
		d.CampaignID,
		d.NetAmountNear,
		d.ChefID,
		d.ChefFeeNear,
		d.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
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

// GetByFilter retrieves donations matching the given filter
func (r *DonationRepo) GetByFilter(ctx context.Context, filter entities.DonationFilter) ([]entities.Donation, error) {
	query, args := r.buildFilterQuery(filter, false)

	var donations []entities.Donation
	if err := r.db.SelectContext(ctx, &donations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get donations: %w", err)
	}

	return donations, nil
}

// GetCount returns the count of donations matching the filter
func (r *DonationRepo) GetCount(ctx context.Context, filter entities.DonationFilter) (int64, error) {
	query, args := r.buildFilterQuery(filter, true)

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to get donation count: %w", err)
	}

	return count, nil
}

// donationSortColumns whitelists sortable columns for GetByFilter
var donationSortColumns = map[string]string{
	"donated_at":  "donated_at",
	"amount_usd":  "amount_usd",
	"amount_near": "amount_near",
}

// buildFilterQuery builds the SQL query for filtering donations
func (r *DonationRepo) buildFilterQuery(filter entities.DonationFilter, countOnly bool) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	if filter.DonorID != nil {
		conditions = append(conditions, fmt.Sprintf("donor_id = $%d", argIdx))
		args = append(args, *filter.DonorID)
		argIdx++
	}

	if filter.RecipientID != nil {
		conditions = append(conditions, fmt.Sprintf("recipient_id = $%d", argIdx))
		args = append(args, *filter.RecipientID)
		argIdx++
	}

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.FromTime != nil {
		conditions = append(conditions, fmt.Sprintf("donated_at >= $%d", argIdx))
		args = append(args, *filter.FromTime)
		argIdx++
	}

	if filter.ToTime != nil {
		conditions = append(conditions, fmt.Sprintf("donated_at <= $%d", argIdx))
		args = append(args, *filter.ToTime)
		argIdx++
	}

	if filter.MinAmountUsd != nil {
		conditions = append(conditions, fmt.Sprintf("amount_usd >= $%d", argIdx))
		args = append(args, *filter.MinAmountUsd)
		argIdx++
	}

	if filter.MaxAmountUsd != nil {
		conditions = append(conditions, fmt.Sprintf("amount_usd <= $%d", argIdx))
		args = append(args, *filter.MaxAmountUsd)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	if countOnly {
		return fmt.Sprintf("SELECT COUNT(*) FROM donations %s", whereClause), args
	}

	column, ok := donationSortColumns[filter.SortBy]
	if !ok {
		column = "donated_at"
	}
	order := "DESC"
	if filter.SortOrder == "asc" {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT * FROM donations
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, column, order, argIdx, argIdx+1)

	args = append(args, filter.Limit, filter.Offset)

	return query, args
}

// CountByReferrer returns how many donations credited the referrer
func (r *DonationRepo) CountByReferrer(ctx context.Context, referrerID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM donations WHERE referrer_id = $1`

	if err := r.db.GetContext(ctx, &count, query, referrerID); err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}

	return count, nil
}

// globalStatsRow holds the result of the global stats query
type globalStatsRow struct {
	TotalUsd     decimal.Decimal `db:"total_usd"`
	TotalNear    decimal.Decimal `db:"total_near"`
	TotalCount   int64           `db:"total_count"`
	ReferralFees decimal.Decimal `db:"referral_fees"`
}

// typeBreakdownRow holds one row of the per-type breakdown query
type typeBreakdownRow struct {
	Type      entities.DonationType `db:"type"`
	AmountUsd decimal.Decimal       `db:"amount_usd"`
}

// GetGlobalStats returns platform-wide aggregates
func (r *DonationRepo) GetGlobalStats(ctx context.Context) (*repositories.GlobalStatsResult, error) {
	query := `
		SELECT
			COALESCE(SUM(amount_usd), 0) as total_usd,
			COALESCE(SUM(amount_near), 0) as total_near,
			COUNT(*) as total_count,
			COALESCE(SUM(referrer_fee_usd), 0) as referral_fees
		FROM donations
	`

	var row globalStatsRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}

	breakdownQuery := `
		SELECT type, COALESCE(SUM(amount_usd), 0) as amount_usd
		FROM donations
		GROUP BY type
	`

	var breakdown []typeBreakdownRow
	if err := r.db.SelectContext(ctx, &breakdown, breakdownQuery); err != nil {
		return nil, fmt.Errorf("failed to get type breakdown: %w", err)
	}

	result := &repositories.GlobalStatsResult{
		TotalDonationsUsd:  row.TotalUsd,
		TotalDonationsNear: row.TotalNear,
		TotalCount:         row.TotalCount,
		TotalReferralFees:  row.ReferralFees,
		AmountByType:       make(map[entities.DonationType]decimal.Decimal, len(breakdown)),
	}
	for _, b := range breakdown {
		result.AmountByType[b.Type] = b.AmountUsd
	}

	return result, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
)

// Ensure PriceRepo implements PriceRepository
var _ repositories.PriceRepository = (*PriceRepo)(nil)

// PriceRepo implements PriceRepository using PostgreSQL
type PriceRepo struct {
	db *sqlx.DB
}

// NewPriceRepo creates a new token price repository
func NewPriceRepo(db *sqlx.DB) *PriceRepo {
	return &PriceRepo{db: db}
}

// Save upserts a price observation keyed by token and minute-truncated
// timestamp
func (r *PriceRepo) Save(ctx context.Context, p *entities.TokenPrice) error {
	query := `
		INSERT INTO token_prices (token_id, price_usd, timestamp, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id, timestamp) DO UPDATE SET price_usd = EXCLUDED.price_usd
	`

	if _, err := r.db.ExecContext(ctx, query, p.TokenID, p.PriceUsd, p.Timestamp, p.Source); err != nil {
		return fmt.Errorf("failed to save token price: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent observation for a token
func (r *PriceRepo) GetLatest(ctx context.Context, tokenID string) (*entities.TokenPrice, error) {
	var price entities.TokenPrice
	query := `SELECT * FROM token_prices WHERE token_id = $1 ORDER BY timestamp DESC LIMIT 1`

	if err := r.db.GetContext(ctx, &price, query, tokenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	return &price, nil
}

// GetLatestAt retrieves the most recent observation at or before the
// given instant
func (r *PriceRepo) GetLatestAt(ctx context.Context, tokenID string, at time.Time) (*entities.TokenPrice, error) {
	var price entities.TokenPrice
	query := `
		SELECT * FROM token_prices
		WHERE token_id = $1 AND timestamp <= $2
		ORDER BY timestamp DESC
		LIMIT 1
	`

	if err := r.db.GetContext(ctx, &price, query, tokenID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get historical price: %w", err)
	}

	return &price, nil
}

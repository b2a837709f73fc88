package repositories

import (
	"context"
	"time"

	"github.com/potlock/donation-indexer/internal/domain/entities"
)

// PriceRepository defines the interface for the token price history
type PriceRepository interface {
	// Save upserts a price observation keyed by token and
	// minute-truncated timestamp
	Save(ctx context.Context, price *entities.TokenPrice) error

	// GetLatest retrieves the most recent observation for a token, nil
	// if none exists
	GetLatest(ctx context.Context, tokenID string) (*entities.TokenPrice, error)

	// GetLatestAt retrieves the most recent observation at or before the
	// given instant, nil if none exists
	GetLatestAt(ctx context.Context, tokenID string, at time.Time) (*entities.TokenPrice, error)
}

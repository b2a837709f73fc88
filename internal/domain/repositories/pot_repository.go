package repositories

import (
	"context"
	"time"
)

// PotRepository defines the interface for pot data operations
type PotRepository interface {
	// Upsert creates the pot if absent, otherwise touches its updated-at
	// marker
	Upsert(ctx context.Context, id string, touchedAt time.Time) error
}

// CampaignRepository defines the interface for campaign data operations
type CampaignRepository interface {
	// Upsert creates the campaign if absent, otherwise touches its
	// updated-at marker
	Upsert(ctx context.Context, id string, touchedAt time.Time) error
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/potlock/donation-indexer/internal/domain/repositories"
)

// Ensure PotRepo and CampaignRepo implement their interfaces
var (
	_ repositories.PotRepository      = (*PotRepo)(nil)
	_ repositories.CampaignRepository = (*CampaignRepo)(nil)
)

// PotRepo implements PotRepository using PostgreSQL
type PotRepo struct {
	db *sqlx.DB
}

// NewPotRepo creates a new pot repository
func NewPotRepo(db *sqlx.DB) *PotRepo {
	return &PotRepo{db: db}
}

// Upsert creates the pot if absent, otherwise touches updated_at
func (r *PotRepo) Upsert(ctx context.Context, id string, touchedAt time.Time) error {
	query := `
		INSERT INTO pots (id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, id, touchedAt); err != nil {
		return fmt.Errorf("failed to upsert pot %s: %w", id, err)
	}

	return nil
}

// CampaignRepo implements CampaignRepository using PostgreSQL
type CampaignRepo struct {
	db *sqlx.DB
}

// NewCampaignRepo creates a new campaign repository
func NewCampaignRepo(db *sqlx.DB) *CampaignRepo {
	return &CampaignRepo{db: db}
}

// Upsert creates the campaign if absent, otherwise touches updated_at
func (r *CampaignRepo) Upsert(ctx context.Context, id string, touchedAt time.Time) error {
	query := `
		INSERT INTO campaigns (id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, id, touchedAt); err != nil {
		return fmt.Errorf("failed to upsert campaign %s: %w", id, err)
	}

	return nil
}

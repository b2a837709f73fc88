package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
)

// Ensure CheckpointRepo implements CheckpointRepository
var _ repositories.CheckpointRepository = (*CheckpointRepo)(nil)

// CheckpointRepo implements CheckpointRepository using PostgreSQL
type CheckpointRepo struct {
	db *sqlx.DB
}

// NewCheckpointRepo creates a new checkpoint repository
func NewCheckpointRepo(db *sqlx.DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

// Get retrieves the checkpoint, nil if none has been written yet
func (r *CheckpointRepo) Get(ctx context.Context) (*entities.Checkpoint, error) {
	var cp entities.Checkpoint
	query := `SELECT * FROM indexer_checkpoint WHERE id = $1`

	if err := r.db.GetContext(ctx, &cp, query, entities.CheckpointID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return &cp, nil
}

// Save creates or overwrites the checkpoint. The row is a cursor, not a
// history: each block completion replaces the previous value.
func (r *CheckpointRepo) Save(ctx context.Context, cp *entities.Checkpoint) error {
	query := `
		INSERT INTO indexer_checkpoint (id, last_block_height, last_block_hash, last_block_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			last_block_height = EXCLUDED.last_block_height,
			last_block_hash = EXCLUDED.last_block_hash,
			last_block_time = EXCLUDED.last_block_time,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		entities.CheckpointID,
		cp.LastBlockHeight,
		cp.LastBlockHash,
		cp.LastBlockTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// Delete removes the checkpoint
func (r *CheckpointRepo) Delete(ctx context.Context) error {
	query := `DELETE FROM indexer_checkpoint WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, entities.CheckpointID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	return nil
}

package repositories

import (
	"context"

	"github.com/potlock/donation-indexer/internal/domain/entities"
)

// CheckpointRepository defines the interface for the singleton ingestion
// checkpoint
type CheckpointRepository interface {
	// Get retrieves the checkpoint, nil if none has been written yet
	Get(ctx context.Context) (*entities.Checkpoint, error)

	// Save creates or overwrites the checkpoint
	Save(ctx context.Context, checkpoint *entities.Checkpoint) error

	// Delete removes the checkpoint so ingestion restarts from the
	// configured start height
	Delete(ctx context.Context) error
}

package entities

import "time"

// CheckpointID is the fixed id of the single checkpoint row
const CheckpointID = "singleton"

// Checkpoint is the durable cursor recording the last fully-ingested
// block. It is advanced only after a block's donations and payouts have
// been persisted, and deleted if it is ever found ahead of the chain.
type Checkpoint struct {
	ID              string    `db:"id"`
	LastBlockHeight uint64    `db:"last_block_height"`
	LastBlockHash   string    `db:"last_block_hash"`
	LastBlockTime   time.Time `db:"last_block_time"`
	UpdatedAt       time.Time `db:"updated_at"`
}

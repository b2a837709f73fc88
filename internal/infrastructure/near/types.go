package near

import "time"

// BlockHeader holds the fields of a block header the indexer cares about.
// Heights are unsigned 64-bit integers end to end; they must never pass
// through a float.
type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"` // nanoseconds since epoch
}

// Time returns the block timestamp as a time.Time
func (h BlockHeader) Time() time.Time {
	return time.Unix(0, h.Timestamp)
}

// ChunkHeader references one chunk of a block
type ChunkHeader struct {
	ChunkHash      string `json:"chunk_hash"`
	ShardID        uint64 `json:"shard_id"`
	HeightCreated  uint64 `json:"height_created"`
	HeightIncluded uint64 `json:"height_included"`
}

// Block is a block header plus its chunk references
type Block struct {
	Header BlockHeader   `json:"header"`
	Chunks []ChunkHeader `json:"chunks"`
}

// Transaction is a signed transaction included in a chunk
type Transaction struct {
	Hash       string `json:"hash"`
	SignerID   string `json:"signer_id"`
	ReceiverID string `json:"receiver_id"`
}

// Receipt is the unit of on-chain execution carried by a chunk
type Receipt struct {
	ReceiptID     string `json:"receipt_id"`
	PredecessorID string `json:"predecessor_id"`
	ReceiverID    string `json:"receiver_id"`
}

// ExecutionOutcome is the result of executing one receipt, including any
// log lines the contract emitted
type ExecutionOutcome struct {
	ExecutorID string   `json:"executor_id"`
	Logs       []string `json:"logs"`
}

// ExecutionOutcomeWithID pairs an outcome with its identifier, which for
// receipts converted from a transaction is the transaction hash
type ExecutionOutcomeWithID struct {
	ID      string            `json:"id"`
	Outcome *ExecutionOutcome `json:"outcome"`
}

// ReceiptExecutionOutcome pairs a receipt with its execution outcome
type ReceiptExecutionOutcome struct {
	Receipt          *Receipt                `json:"receipt"`
	ExecutionOutcome *ExecutionOutcomeWithID `json:"execution_outcome"`
}

// ChunkDetails is the full contents of one chunk
type ChunkDetails struct {
	Transactions             []Transaction             `json:"transactions"`
	ReceiptExecutionOutcomes []ReceiptExecutionOutcome `json:"receipt_execution_outcomes"`
}

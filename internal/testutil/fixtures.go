package testutil

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/infrastructure/near"
)

// Common test account ids
const (
	AliceID   = "alice.near"
	BobID     = "bob.near"
	CarolID   = "carol.near"
	PotID     = "quadratic.v1.potfactory.potlock.near"
	ProjectID = "greenenergy.near"
	CampID    = "save-the-trees"
)

// DonatedAt is the fixed event time used by fixtures
var DonatedAt = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// CreateTestAccount creates a test account with default values
func CreateTestAccount(opts ...AccountOption) *entities.Account {
	a := &entities.Account{
		ID:             AliceID,
		FirstSeenAt:    DonatedAt,
		LastActivityAt: DonatedAt,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type AccountOption func(*entities.Account)

func AccountWithID(id string) AccountOption {
	return func(a *entities.Account) {
		a.ID = id
	}
}

func AccountWithTotalDonated(usd string) AccountOption {
	return func(a *entities.Account) {
		a.TotalDonatedUsd = decimal.RequireFromString(usd)
	}
}

func AccountWithTotalReceived(usd string) AccountOption {
	return func(a *entities.Account) {
		a.TotalReceivedUsd = decimal.RequireFromString(usd)
	}
}

func AccountWithSentCount(count int64) AccountOption {
	return func(a *entities.Account) {
		a.DonationsSentCount = count
	}
}

func AccountWithReferralFeesEarned(usd string) AccountOption {
	return func(a *entities.Account) {
		a.ReferralFeesEarnedUsd = decimal.RequireFromString(usd)
	}
}

// CreateTestDonation creates a test donation with default values
func CreateTestDonation(opts ...DonationOption) *entities.Donation {
	recipient := BobID
	d := &entities.Donation{
		ID:              1,
		Type:            entities.DonationDirect,
		DonorID:         AliceID,
		RecipientID:     &recipient,
		AmountNear:      decimal.RequireFromString("10"),
		AmountUsd:       decimal.RequireFromString("40"),
		FtID:            "near",
		DonatedAt:       DonatedAt,
		BlockHeight:     100,
		TransactionHash: "tx-fixture-1",
		CreatedAt:       time.Now(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

type DonationOption func(*entities.Donation)

func DonationWithType(t entities.DonationType) DonationOption {
	return func(d *entities.Donation) {
		d.Type = t
	}
}

func DonationWithDonor(id string) DonationOption {
	return func(d *entities.Donation) {
		d.DonorID = id
	}
}

func DonationWithRecipient(id string) DonationOption {
	return func(d *entities.Donation) {
		d.RecipientID = &id
	}
}

func DonationWithAmountUsd(usd string) DonationOption {
	return func(d *entities.Donation) {
		d.AmountUsd = decimal.RequireFromString(usd)
	}
}

func DonationWithTxHash(hash string) DonationOption {
	return func(d *entities.Donation) {
		d.TransactionHash = hash
	}
}

func DonationWithDonatedAt(at time.Time) DonationOption {
	return func(d *entities.Donation) {
		d.DonatedAt = at
	}
}

func DonationWithReferrer(id, feeUsd string) DonationOption {
	return func(d *entities.Donation) {
		d.ReferrerID = &id
		d.ReferrerFeeUsd = decimal.RequireFromString(feeUsd)
	}
}

// EventLog renders one EVENT_JSON log line under the platform standard
func EventLog(event string, data map[string]interface{}) string {
	payload, err := json.Marshal(map[string]interface{}{
		"standard": "potlock",
		"version":  "1.0.0",
		"event":    event,
		"data":     data,
	})
	if err != nil {
		panic(err)
	}
	return "EVENT_JSON:" + string(payload)
}

// DonateLog renders a direct donation event log line. yocto amounts are
// decimal strings of base units.
func DonateLog(donor, recipient, yoctoAmount string, donatedAt time.Time) string {
	return EventLog("donate", map[string]interface{}{
		"donor_id":      donor,
		"recipient_id":  recipient,
		"amount":        yoctoAmount,
		"donated_at_ms": donatedAt.UnixMilli(),
	})
}

// DonateLogWithFees renders a direct donation carrying protocol and
// referrer fees
func DonateLogWithFees(donor, recipient, yoctoAmount, protocolFee, referrer, referrerFee string, donatedAt time.Time) string {
	return EventLog("donate", map[string]interface{}{
		"donor_id":      donor,
		"recipient_id":  recipient,
		"amount":        yoctoAmount,
		"donated_at_ms": donatedAt.UnixMilli(),
		"protocol_fee":  protocolFee,
		"referrer_id":   referrer,
		"referrer_fee":  referrerFee,
	})
}

// PotDonateLog renders a pot donation event log line
func PotDonateLog(donor, potID, yoctoTotal string, donatedAt time.Time) string {
	return EventLog("pot_donate", map[string]interface{}{
		"donor_id":      donor,
		"pot_id":        potID,
		"total_amount":  yoctoTotal,
		"donated_at_ms": donatedAt.UnixMilli(),
	})
}

// PotPayoutLog renders a pot payout event log line
func PotPayoutLog(potID, recipient, yoctoAmount string, paidAt time.Time) string {
	return EventLog("pot_payout", map[string]interface{}{
		"pot_id":       potID,
		"recipient_id": recipient,
		"amount":       yoctoAmount,
		"paid_at_ms":   paidAt.UnixMilli(),
	})
}

// BlockWithLogs builds a single-chunk block whose one receipt carries
// the given log lines, wiring the chunk into the client as it goes
func BlockWithLogs(client *MockChainClient, height uint64, txHash string, logs ...string) *near.Block {
	chunkHash := fmt.Sprintf("chunk-%d", height)

	block := &near.Block{
		Header: near.BlockHeader{
			Height:    height,
			Hash:      fmt.Sprintf("block-%d", height),
			Timestamp: DonatedAt.UnixNano(),
		},
		Chunks: []near.ChunkHeader{{ChunkHash: chunkHash}},
	}

	client.Blocks[height] = block
	client.Chunks[chunkHash] = &near.ChunkDetails{
		ReceiptExecutionOutcomes: []near.ReceiptExecutionOutcome{
			{
				Receipt: &near.Receipt{ReceiptID: "receipt-" + txHash, ReceiverID: "donate.potlock.near"},
				ExecutionOutcome: &near.ExecutionOutcomeWithID{
					ID:      txHash,
					Outcome: &near.ExecutionOutcome{Logs: logs},
				},
			},
		},
	}

	return block
}

// EmptyBlock builds a block with no chunks and wires it into the client
func EmptyBlock(client *MockChainClient, height uint64) *near.Block {
	block := &near.Block{
		Header: near.BlockHeader{
			Height:    height,
			Hash:      fmt.Sprintf("block-%d", height),
			Timestamp: DonatedAt.UnixNano(),
		},
	}
	client.Blocks[height] = block
	return block
}

// PointerTo returns a pointer to the given value
func PointerTo[T any](v T) *T {
	return &v
}

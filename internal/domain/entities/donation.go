package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationType classifies how a donation was routed on chain
type DonationType string

const (
	DonationDirect     DonationType = "DIRECT"
	DonationPot        DonationType = "POT"
	DonationPotProject DonationType = "POT_PROJECT"
	DonationCampaign   DonationType = "CAMPAIGN"
)

// Valid reports whether t is a known donation type
func (t DonationType) Valid() bool {
	switch t {
	case DonationDirect, DonationPot, DonationPotProject, DonationCampaign:
		return true
	}
	return false
}

// Bucket is the per-category aggregate an amount is counted under
type Bucket string

const (
	BucketDirect   Bucket = "direct"
	BucketPot      Bucket = "pot"
	BucketCampaign Bucket = "campaign"
)

// DonorBucket maps a donation type to the donor-side aggregate bucket.
// POT and POT_PROJECT donations both count against the donor's pot bucket.
func (t DonationType) DonorBucket() Bucket {
	switch t {
	case DonationDirect:
		return BucketDirect
	case DonationPot, DonationPotProject:
		return BucketPot
	case DonationCampaign:
		return BucketCampaign
	}
	return BucketDirect
}

// RecipientBucket maps a donation type to the recipient-side aggregate
// bucket. Plain POT donations target the pot rather than a person, so
// they update no recipient bucket at all.
func (t DonationType) RecipientBucket() (Bucket, bool) {
	switch t {
	case DonationDirect:
		return BucketDirect, true
	case DonationPotProject:
		return BucketPot, true
	case DonationCampaign:
		return BucketCampaign, true
	case DonationPot:
		return "", false
	}
	return "", false
}

// Donation is an immutable donation fact, unique on transaction hash
type Donation struct {
	ID              int64               `db:"id"`
	Type            DonationType        `db:"type"`
	DonorID         string              `db:"donor_id"`
	RecipientID     *string             `db:"recipient_id"`
	AmountNear      decimal.Decimal     `db:"amount_near"`
	AmountUsd       decimal.Decimal     `db:"amount_usd"`
	FtID            string              `db:"ft_id"`
	Message         *string             `db:"message"`
	DonatedAt       time.Time           `db:"donated_at"`
	BlockHeight     uint64              `db:"block_height"`
	TransactionHash string              `db:"transaction_hash"`
	ProtocolFeeNear decimal.Decimal     `db:"protocol_fee_near"`
	ProtocolFeeUsd  decimal.Decimal     `db:"protocol_fee_usd"`
	ReferrerID      *string             `db:"referrer_id"`
	ReferrerFeeNear decimal.Decimal     `db:"referrer_fee_near"`
	ReferrerFeeUsd  decimal.Decimal     `db:"referrer_fee_usd"`
	PotID           *string             `db:"pot_id"`
	CampaignID      *string             `db:"campaign_id"`
	NetAmountNear   decimal.NullDecimal `db:"net_amount_near"`
	ChefID          *string             `db:"chef_id"`
	ChefFeeNear     decimal.NullDecimal `db:"chef_fee_near"`
	ProjectID       *string             `db:"project_id"`
	CreatedAt       time.Time           `db:"created_at"`
}

// DonationFilter contains filters for querying donations
type DonationFilter struct {
	DonorID      *string
	RecipientID  *string
	Type         *DonationType
	FromTime     *time.Time
	ToTime       *time.Time
	MinAmountUsd *decimal.Decimal
	MaxAmountUsd *decimal.Decimal
	SortBy       string // donated_at | amount_usd | amount_near
	SortOrder    string // asc | desc
	Limit        int
	Offset       int
}

// DefaultDonationFilter returns a filter with sensible defaults
func DefaultDonationFilter() DonationFilter {
	return DonationFilter{
		SortBy:    "donated_at",
		SortOrder: "desc",
		Limit:     20,
		Offset:    0,
	}
}

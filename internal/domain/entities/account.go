package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a running materialized summary of everything an on-chain
// account has donated, received and earned. Rows are created lazily on
// first appearance as donor, recipient or referrer, mutated only by
// increments, and never deleted or recomputed from scratch.
type Account struct {
	ID             string    `db:"id"`
	FirstSeenAt    time.Time `db:"first_seen_at"`
	LastActivityAt time.Time `db:"last_activity_at"`

	TotalDonatedUsd  decimal.Decimal `db:"total_donated_usd"`
	TotalDonatedNear decimal.Decimal `db:"total_donated_near"`

	TotalReceivedUsd  decimal.Decimal `db:"total_received_usd"`
	TotalReceivedNear decimal.Decimal `db:"total_received_near"`

	DonationsSentCount     int64 `db:"donations_sent_count"`
	DonationsReceivedCount int64 `db:"donations_received_count"`

	DirectDonatedUsd    decimal.Decimal `db:"direct_donated_usd"`
	DirectSentCount     int64           `db:"direct_sent_count"`
	DirectReceivedUsd   decimal.Decimal `db:"direct_received_usd"`
	DirectReceivedCount int64           `db:"direct_received_count"`

	PotDonatedUsd    decimal.Decimal `db:"pot_donated_usd"`
	PotSentCount     int64           `db:"pot_sent_count"`
	PotReceivedUsd   decimal.Decimal `db:"pot_received_usd"`
	PotReceivedCount int64           `db:"pot_received_count"`

	CampaignDonatedUsd    decimal.Decimal `db:"campaign_donated_usd"`
	CampaignSentCount     int64           `db:"campaign_sent_count"`
	CampaignReceivedUsd   decimal.Decimal `db:"campaign_received_usd"`
	CampaignReceivedCount int64           `db:"campaign_received_count"`

	ReferralFeesPaidUsd   decimal.Decimal `db:"referral_fees_paid_usd"`
	ReferralFeesEarnedUsd decimal.Decimal `db:"referral_fees_earned_usd"`

	FirstDonationDate *time.Time `db:"first_donation_date"`
	LastDonationDate  *time.Time `db:"last_donation_date"`
}

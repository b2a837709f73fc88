package entities

import "time"

// ParsedDonation is a donation event extracted from receipt logs, before
// price conversion. Monetary fields are decimal strings of native base
// units (yoctoNEAR); an empty string means the field was absent in the
// event, which is distinct from an explicit zero.
type ParsedDonation struct {
	Type        DonationType
	DonorID     string
	RecipientID string
	Amount      string
	FtID        string
	Message     string
	DonatedAt   time.Time
	ProtocolFee string
	ReferrerID  string
	ReferrerFee string
	PotID       string
	CampaignID  string
	NetAmount   string
	ChefID      string
	ChefFee     string
	ProjectID   string

	TransactionHash string
	BlockHeight     uint64
}

// ParsedPayout is a pot payout event extracted from receipt logs
type ParsedPayout struct {
	PotID           string
	RecipientID     string
	Amount          string
	FtID            string
	PaidAt          time.Time
	TransactionHash string
	BlockHeight     uint64
}

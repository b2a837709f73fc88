package near

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/domain/entities"
)

// EventJSONPrefix marks a log line carrying a structured event
const EventJSONPrefix = "EVENT_JSON:"

// PotlockStandard is the event namespace of the donation platform; events
// under any other standard are ignored
const PotlockStandard = "potlock"

// potlockEvent is the envelope of a structured event log line
type potlockEvent struct {
	Standard string          `json:"standard"`
	Version  string          `json:"version"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
}

// EventParser extracts typed donation and payout events from receipt
// execution outcome logs. It holds no mutable state and is safe for
// concurrent use.
type EventParser struct {
	logger *zap.Logger
}

// NewEventParser creates a new event parser
func NewEventParser(logger *zap.Logger) *EventParser {
	return &EventParser{logger: logger}
}

// ParseExecutionOutcome extracts zero or more donations from the log lines
// of one execution outcome. Malformed candidate lines and events with
// missing required fields are skipped with a warning; they never abort the
// remaining lines.
func (p *EventParser) ParseExecutionOutcome(outcome *ExecutionOutcome, blockHeight uint64, txHash string) []entities.ParsedDonation {
	var donations []entities.ParsedDonation

	if outcome == nil || len(outcome.Logs) == 0 {
		return donations
	}

	for _, line := range outcome.Logs {
		if !strings.HasPrefix(line, EventJSONPrefix) {
			continue
		}

		var event potlockEvent
		if err := json.Unmarshal([]byte(line[len(EventJSONPrefix):]), &event); err != nil {
			p.logger.Warn("Failed to parse event log",
				zap.String("tx_hash", txHash),
				zap.Error(err),
			)
			continue
		}

		if event.Standard != PotlockStandard {
			continue
		}

		parsed, ok := p.parseDonationEvent(event, blockHeight, txHash)
		if ok {
			donations = append(donations, parsed)
		}
	}

	return donations
}

// parseDonationEvent dispatches one recognized-standard event by type.
// Unrecognized event names are ignored.
func (p *EventParser) parseDonationEvent(event potlockEvent, blockHeight uint64, txHash string) (entities.ParsedDonation, bool) {
	switch event.Event {
	case "donate":
		return p.parseDirectDonation(event.Data, blockHeight, txHash)
	case "pot_donate":
		return p.parsePotDonation(event.Data, blockHeight, txHash)
	case "pot_project_donation":
		return p.parsePotProjectDonation(event.Data, blockHeight, txHash)
	case "campaign_donate":
		return p.parseCampaignDonation(event.Data, blockHeight, txHash)
	default:
		return entities.ParsedDonation{}, false
	}
}

// directDonateData is the payload of a "donate" event. All amounts stay
// decimal strings; parsing them as floats would lose precision above 2^53.
type directDonateData struct {
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
	Amount      string `json:"amount"`
	FtID        string `json:"ft_id"`
	Message     string `json:"message"`
	DonatedAtMs int64  `json:"donated_at_ms"`
	ProtocolFee string `json:"protocol_fee"`
	ReferrerID  string `json:"referrer_id"`
	ReferrerFee string `json:"referrer_fee"`
}

func (p *EventParser) parseDirectDonation(data json.RawMessage, blockHeight uint64, txHash string) (entities.ParsedDonation, bool) {
	var d directDonateData
	if err := json.Unmarshal(data, &d); err != nil {
		p.warnMalformed("donate", txHash, err)
		return entities.ParsedDonation{}, false
	}
	if d.DonorID == "" || d.Amount == "" || d.DonatedAtMs == 0 {
		p.warnMissingFields("donate", txHash)
		return entities.ParsedDonation{}, false
	}

	return entities.ParsedDonation{
		Type:            entities.DonationDirect,
		DonorID:         d.DonorID,
		RecipientID:     d.RecipientID,
		Amount:          d.Amount,
		FtID:            defaultFt(d.FtID),
		Message:         d.Message,
		DonatedAt:       time.UnixMilli(d.DonatedAtMs),
		ProtocolFee:     d.ProtocolFee,
		ReferrerID:      d.ReferrerID,
		ReferrerFee:     d.ReferrerFee,
		TransactionHash: txHash,
		BlockHeight:     blockHeight,
	}, true
}

// potDonateData is the payload of a "pot_donate" event. The headline
// amount is total_amount, with amount as a legacy fallback; net_amount is
// what reaches the pot after fees.
type potDonateData struct {
	DonorID     string `json:"donor_id"`
	PotID       string `json:"pot_id"`
	TotalAmount string `json:"total_amount"`
	Amount      string `json:"amount"`
	NetAmount   string `json:"net_amount"`
	FtID        string `json:"ft_id"`
	Message     string `json:"message"`
	DonatedAtMs int64  `json:"donated_at_ms"`
	ProtocolFee string `json:"protocol_fee"`
	ReferrerID  string `json:"referrer_id"`
	ReferrerFee string `json:"referrer_fee"`
	ChefID      string `json:"chef_id"`
	ChefFee     string `json:"chef_fee"`
}

func (p *EventParser) parsePotDonation(data json.RawMessage, blockHeight uint64, txHash string) (entities.ParsedDonation, bool) {
	var d potDonateData
	if err := json.Unmarshal(data, &d); err != nil {
		p.warnMalformed("pot_donate", txHash, err)
		return entities.ParsedDonation{}, false
	}

	amount := d.TotalAmount
	if amount == "" {
		amount = d.Amount
	}
	if d.DonorID == "" || d.PotID == "" || amount == "" || d.DonatedAtMs == 0 {
		p.warnMissingFields("pot_donate", txHash)
		return entities.ParsedDonation{}, false
	}

	return entities.ParsedDonation{
		Type:            entities.DonationPot,
		DonorID:         d.DonorID,
		PotID:           d.PotID,
		Amount:          amount,
		NetAmount:       d.NetAmount,
		FtID:            defaultFt(d.FtID),
		Message:         d.Message,
		DonatedAt:       time.UnixMilli(d.DonatedAtMs),
		ProtocolFee:     d.ProtocolFee,
		ReferrerID:      d.ReferrerID,
		ReferrerFee:     d.ReferrerFee,
		ChefID:          d.ChefID,
		ChefFee:         d.ChefFee,
		TransactionHash: txHash,
		BlockHeight:     blockHeight,
	}, true
}

// potProjectDonationData is the payload of a "pot_project_donation"
// event: matched funds flowing from a pot to a project
type potProjectDonationData struct {
	DonorID     string `json:"donor_id"`
	ProjectID   string `json:"project_id"`
	PotID       string `json:"pot_id"`
	Amount      string `json:"amount"`
	FtID        string `json:"ft_id"`
	DonatedAtMs int64  `json:"donated_at_ms"`
	ReferrerID  string `json:"referrer_id"`
	ReferrerFee string `json:"referrer_fee"`
}

func (p *EventParser) parsePotProjectDonation(data json.RawMessage, blockHeight uint64, txHash string) (entities.ParsedDonation, bool) {
	var d potProjectDonationData
	if err := json.Unmarshal(data, &d); err != nil {
		p.warnMalformed("pot_project_donation", txHash, err)
		return entities.ParsedDonation{}, false
	}
	if d.DonorID == "" || d.ProjectID == "" || d.Amount == "" || d.DonatedAtMs == 0 {
		p.warnMissingFields("pot_project_donation", txHash)
		return entities.ParsedDonation{}, false
	}

	return entities.ParsedDonation{
		Type:            entities.DonationPotProject,
		DonorID:         d.DonorID,
		RecipientID:     d.ProjectID,
		ProjectID:       d.ProjectID,
		PotID:           d.PotID,
		Amount:          d.Amount,
		FtID:            defaultFt(d.FtID),
		DonatedAt:       time.UnixMilli(d.DonatedAtMs),
		ReferrerID:      d.ReferrerID,
		ReferrerFee:     d.ReferrerFee,
		TransactionHash: txHash,
		BlockHeight:     blockHeight,
	}, true
}

// campaignDonateData is the payload of a "campaign_donate" event
type campaignDonateData struct {
	DonorID     string `json:"donor_id"`
	CampaignID  string `json:"campaign_id"`
	Amount      string `json:"amount"`
	FtID        string `json:"ft_id"`
	Message     string `json:"message"`
	DonatedAtMs int64  `json:"donated_at_ms"`
	ProtocolFee string `json:"protocol_fee"`
	ReferrerID  string `json:"referrer_id"`
	ReferrerFee string `json:"referrer_fee"`
}

func (p *EventParser) parseCampaignDonation(data json.RawMessage, blockHeight uint64, txHash string) (entities.ParsedDonation, bool) {
	var d campaignDonateData
	if err := json.Unmarshal(data, &d); err != nil {
		p.warnMalformed("campaign_donate", txHash, err)
		return entities.ParsedDonation{}, false
	}
	if d.DonorID == "" || d.CampaignID == "" || d.Amount == "" || d.DonatedAtMs == 0 {
		p.warnMissingFields("campaign_donate", txHash)
		return entities.ParsedDonation{}, false
	}

	return entities.ParsedDonation{
		Type:            entities.DonationCampaign,
		DonorID:         d.DonorID,
		CampaignID:      d.CampaignID,
		Amount:          d.Amount,
		FtID:            defaultFt(d.FtID),
		Message:         d.Message,
		DonatedAt:       time.UnixMilli(d.DonatedAtMs),
		ProtocolFee:     d.ProtocolFee,
		ReferrerID:      d.ReferrerID,
		ReferrerFee:     d.ReferrerFee,
		TransactionHash: txHash,
		BlockHeight:     blockHeight,
	}, true
}

// potPayoutData is the payload of a "pot_payout" event
type potPayoutData struct {
	PotID       string `json:"pot_id"`
	RecipientID string `json:"recipient_id"`
	Amount      string `json:"amount"`
	FtID        string `json:"ft_id"`
	PaidAtMs    int64  `json:"paid_at_ms"`
}

// ParsePotPayout extracts at most one pot payout from the log lines of
// one execution outcome
func (p *EventParser) ParsePotPayout(outcome *ExecutionOutcome, blockHeight uint64, txHash string) *entities.ParsedPayout {
	if outcome == nil || len(outcome.Logs) == 0 {
		return nil
	}

	for _, line := range outcome.Logs {
		if !strings.HasPrefix(line, EventJSONPrefix) {
			continue
		}

		var event potlockEvent
		if err := json.Unmarshal([]byte(line[len(EventJSONPrefix):]), &event); err != nil {
			p.logger.Warn("Failed to parse payout log",
				zap.String("tx_hash", txHash),
				zap.Error(err),
			)
			continue
		}

		if event.Standard != PotlockStandard || event.Event != "pot_payout" {
			continue
		}

		var d potPayoutData
		if err := json.Unmarshal(event.Data, &d); err != nil {
			p.warnMalformed("pot_payout", txHash, err)
			continue
		}
		if d.PotID == "" || d.RecipientID == "" || d.Amount == "" || d.PaidAtMs == 0 {
			p.warnMissingFields("pot_payout", txHash)
			continue
		}

		return &entities.ParsedPayout{
			PotID:           d.PotID,
			RecipientID:     d.RecipientID,
			Amount:          d.Amount,
			FtID:            defaultFt(d.FtID),
			PaidAt:          time.UnixMilli(d.PaidAtMs),
			TransactionHash: txHash,
			BlockHeight:     blockHeight,
		}
	}

	return nil
}

// defaultFt returns the native token id when the event omits ft_id
func defaultFt(ftID string) string {
	if ftID == "" {
		return "near"
	}
	return ftID
}

func (p *EventParser) warnMalformed(eventType, txHash string, err error) {
	p.logger.Warn("Malformed event data",
		zap.String("event", eventType),
		zap.String("tx_hash", txHash),
		zap.Error(err),
	)
}

func (p *EventParser) warnMissingFields(eventType, txHash string) {
	p.logger.Warn("Event missing required fields",
		zap.String("event", eventType),
		zap.String("tx_hash", txHash),
	)
}

package near

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/domain/entities"
)

func newTestParser() *EventParser {
	return NewEventParser(zap.NewNop())
}

func TestParseExecutionOutcome_DirectDonation(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","version":"1.0.0","event":"donate","data":{"donor_id":"alice.near","recipient_id":"bob.near","amount":"40000000000000000000000000","ft_id":"near","message":"keep building","donated_at_ms":1700000000000,"protocol_fee":"800000000000000000000000","referrer_id":"carol.near","referrer_fee":"1200000000000000000000000"}}`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 100, "tx-1")
	if len(donations) != 1 {
		t.Fatalf("expected 1 donation, got %d", len(donations))
	}

	d := donations[0]
	if d.Type != entities.DonationDirect {
		t.Errorf("expected type DIRECT, got %s", d.Type)
	}
	if d.DonorID != "alice.near" {
		t.Errorf("expected donor alice.near, got %s", d.DonorID)
	}
	if d.RecipientID != "bob.near" {
		t.Errorf("expected recipient bob.near, got %s", d.RecipientID)
	}
	if d.Amount != "40000000000000000000000000" {
		t.Errorf("unexpected amount %s", d.Amount)
	}
	if d.ProtocolFee != "800000000000000000000000" {
		t.Errorf("unexpected protocol fee %s", d.ProtocolFee)
	}
	if d.ReferrerID != "carol.near" {
		t.Errorf("expected referrer carol.near, got %s", d.ReferrerID)
	}
	if d.ReferrerFee != "1200000000000000000000000" {
		t.Errorf("unexpected referrer fee %s", d.ReferrerFee)
	}
	if d.Message != "keep building" {
		t.Errorf("unexpected message %s", d.Message)
	}
	if !d.DonatedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("unexpected donated_at %v", d.DonatedAt)
	}
	if d.TransactionHash != "tx-1" {
		t.Errorf("unexpected tx hash %s", d.TransactionHash)
	}
	if d.BlockHeight != 100 {
		t.Errorf("unexpected block height %d", d.BlockHeight)
	}
}

func TestParseExecutionOutcome_IgnoresOtherStandards(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"nep171","version":"1.0.0","event":"donate","data":{"donor_id":"alice.near","amount":"1","donated_at_ms":1700000000000}}`,
			`EVENT_JSON:{"standard":"potlock","version":"1.0.0","event":"nft_mint","data":{}}`,
			`plain log line without a structured event`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 100, "tx-1")
	if len(donations) != 0 {
		t.Fatalf("expected 0 donations, got %d", len(donations))
	}
}

func TestParseExecutionOutcome_MalformedLineDoesNotAbortSiblings(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"donate","data":{"donor_id":"truncat`,
			`EVENT_JSON:{"standard":"potlock","version":"1.0.0","event":"donate","data":{"donor_id":"alice.near","recipient_id":"bob.near","amount":"1000","donated_at_ms":1700000000000}}`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 100, "tx-1")
	if len(donations) != 1 {
		t.Fatalf("expected 1 donation despite malformed sibling, got %d", len(donations))
	}
	if donations[0].DonorID != "alice.near" {
		t.Errorf("expected donor alice.near, got %s", donations[0].DonorID)
	}
}

func TestParseExecutionOutcome_MissingRequiredFields(t *testing.T) {
	parser := newTestParser()

	tests := []struct {
		name string
		log  string
	}{
		{
			name: "missing donor",
			log:  `EVENT_JSON:{"standard":"potlock","event":"donate","data":{"recipient_id":"bob.near","amount":"1000","donated_at_ms":1700000000000}}`,
		},
		{
			name: "missing amount",
			log:  `EVENT_JSON:{"standard":"potlock","event":"donate","data":{"donor_id":"alice.near","recipient_id":"bob.near","donated_at_ms":1700000000000}}`,
		},
		{
			name: "missing timestamp",
			log:  `EVENT_JSON:{"standard":"potlock","event":"donate","data":{"donor_id":"alice.near","recipient_id":"bob.near","amount":"1000"}}`,
		},
		{
			name: "pot donate missing pot id",
			log:  `EVENT_JSON:{"standard":"potlock","event":"pot_donate","data":{"donor_id":"alice.near","total_amount":"1000","donated_at_ms":1700000000000}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := &ExecutionOutcome{Logs: []string{tt.log}}
			donations := parser.ParseExecutionOutcome(outcome, 100, "tx-1")
			if len(donations) != 0 {
				t.Errorf("expected event to be skipped, got %d donations", len(donations))
			}
		})
	}
}

func TestParseExecutionOutcome_PotDonation(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","version":"1.0.0","event":"pot_donate","data":{"donor_id":"alice.near","pot_id":"quadratic.v1.potfactory.potlock.near","total_amount":"5000000000000000000000000","net_amount":"4800000000000000000000000","donated_at_ms":1700000000000,"chef_id":"chef.near","chef_fee":"100000000000000000000000"}}`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 200, "tx-2")
	if len(donations) != 1 {
		t.Fatalf("expected 1 donation, got %d", len(donations))
	}

	d := donations[0]
	if d.Type != entities.DonationPot {
		t.Errorf("expected type POT, got %s", d.Type)
	}
	if d.PotID != "quadratic.v1.potfactory.potlock.near" {
		t.Errorf("unexpected pot id %s", d.PotID)
	}
	if d.Amount != "5000000000000000000000000" {
		t.Errorf("expected total_amount to win, got %s", d.Amount)
	}
	if d.NetAmount != "4800000000000000000000000" {
		t.Errorf("unexpected net amount %s", d.NetAmount)
	}
	if d.ChefID != "chef.near" || d.ChefFee != "100000000000000000000000" {
		t.Errorf("unexpected chef fields %s %s", d.ChefID, d.ChefFee)
	}
	if d.RecipientID != "" {
		t.Errorf("pot donation should have no recipient, got %s", d.RecipientID)
	}
}

func TestParseExecutionOutcome_PotDonationAmountFallback(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"pot_donate","data":{"donor_id":"alice.near","pot_id":"pot.near","amount":"777","donated_at_ms":1700000000000}}`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 200, "tx-2")
	if len(donations) != 1 {
		t.Fatalf("expected 1 donation, got %d", len(donations))
	}
	if donations[0].Amount != "777" {
		t.Errorf("expected legacy amount fallback, got %s", donations[0].Amount)
	}
}

func TestParseExecutionOutcome_PotProjectDonation(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"pot_project_donation","data":{"donor_id":"alice.near","project_id":"project.near","pot_id":"pot.near","amount":"3000","donated_at_ms":1700000000000}}`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 300, "tx-3")
	if len(donations) != 1 {
		t.Fatalf("expected 1 donation, got %d", len(donations))
	}

	d := donations[0]
	if d.Type != entities.DonationPotProject {
		t.Errorf("expected type POT_PROJECT, got %s", d.Type)
	}
	if d.RecipientID != "project.near" {
		t.Errorf("expected project as recipient, got %s", d.RecipientID)
	}
	if d.ProjectID != "project.near" || d.PotID != "pot.near" {
		t.Errorf("unexpected project/pot ids %s %s", d.ProjectID, d.PotID)
	}
}

func TestParseExecutionOutcome_CampaignDonation(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"campaign_donate","data":{"donor_id":"alice.near","campaign_id":"42","amount":"9000","donated_at_ms":1700000000000}}`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 400, "tx-4")
	if len(donations) != 1 {
		t.Fatalf("expected 1 donation, got %d", len(donations))
	}
	if donations[0].Type != entities.DonationCampaign {
		t.Errorf("expected type CAMPAIGN, got %s", donations[0].Type)
	}
	if donations[0].CampaignID != "42" {
		t.Errorf("unexpected campaign id %s", donations[0].CampaignID)
	}
}

func TestParseExecutionOutcome_DefaultsFtToNear(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"donate","data":{"donor_id":"alice.near","recipient_id":"bob.near","amount":"1000","donated_at_ms":1700000000000}}`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 100, "tx-1")
	if len(donations) != 1 {
		t.Fatalf("expected 1 donation, got %d", len(donations))
	}
	if donations[0].FtID != "near" {
		t.Errorf("expected ft_id default near, got %s", donations[0].FtID)
	}
}

func TestParseExecutionOutcome_MultipleEventsInOneOutcome(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"donate","data":{"donor_id":"alice.near","recipient_id":"bob.near","amount":"1000","donated_at_ms":1700000000000}}`,
			`EVENT_JSON:{"standard":"potlock","event":"campaign_donate","data":{"donor_id":"alice.near","campaign_id":"7","amount":"2000","donated_at_ms":1700000001000}}`,
		},
	}

	donations := parser.ParseExecutionOutcome(outcome, 100, "tx-1")
	if len(donations) != 2 {
		t.Fatalf("expected 2 donations, got %d", len(donations))
	}
	if donations[0].Type != entities.DonationDirect || donations[1].Type != entities.DonationCampaign {
		t.Errorf("events came out in the wrong order: %s, %s", donations[0].Type, donations[1].Type)
	}
}

func TestParseExecutionOutcome_NilOutcome(t *testing.T) {
	parser := newTestParser()

	if got := parser.ParseExecutionOutcome(nil, 100, "tx-1"); len(got) != 0 {
		t.Errorf("expected no donations from nil outcome, got %d", len(got))
	}
}

func TestParsePotPayout(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"pot_payout","data":{"pot_id":"pot.near","recipient_id":"project.near","amount":"15000000000000000000000000","paid_at_ms":1700000000000}}`,
		},
	}

	payout := parser.ParsePotPayout(outcome, 500, "tx-5")
	if payout == nil {
		t.Fatal("expected payout, got nil")
	}
	if payout.PotID != "pot.near" || payout.RecipientID != "project.near" {
		t.Errorf("unexpected payout parties %s %s", payout.PotID, payout.RecipientID)
	}
	if payout.Amount != "15000000000000000000000000" {
		t.Errorf("unexpected payout amount %s", payout.Amount)
	}
	if payout.FtID != "near" {
		t.Errorf("expected ft_id default near, got %s", payout.FtID)
	}
	if !payout.PaidAt.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("unexpected paid_at %v", payout.PaidAt)
	}
	if payout.BlockHeight != 500 || payout.TransactionHash != "tx-5" {
		t.Errorf("unexpected provenance %d %s", payout.BlockHeight, payout.TransactionHash)
	}
}

func TestParsePotPayout_MissingFields(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"pot_payout","data":{"pot_id":"pot.near","amount":"1000","paid_at_ms":1700000000000}}`,
		},
	}

	if payout := parser.ParsePotPayout(outcome, 500, "tx-5"); payout != nil {
		t.Errorf("expected incomplete payout to be skipped, got %+v", payout)
	}
}

func TestParsePotPayout_IgnoresDonationEvents(t *testing.T) {
	parser := newTestParser()

	outcome := &ExecutionOutcome{
		Logs: []string{
			`EVENT_JSON:{"standard":"potlock","event":"donate","data":{"donor_id":"alice.near","amount":"1000","donated_at_ms":1700000000000}}`,
		},
	}

	if payout := parser.ParsePotPayout(outcome, 500, "tx-5"); payout != nil {
		t.Errorf("expected no payout from donation log, got %+v", payout)
	}
}

package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
	"github.com/potlock/donation-indexer/internal/testutil"
)

func setupStatsServiceTest() (*StatsService, *testutil.MockDonationRepository, *testutil.MockAccountRepository) {
	donationRepo := testutil.NewMockDonationRepository()
	accountRepo := testutil.NewMockAccountRepository()
	logger := zap.NewNop()

	service := NewStatsService(donationRepo, accountRepo, nil, logger)
	return service, donationRepo, accountRepo
}

func TestGetGlobalStats(t *testing.T) {
	service, donationRepo, accountRepo := setupStatsServiceTest()
	ctx := context.Background()

	donations := []*entities.Donation{
		testutil.CreateTestDonation(
			testutil.DonationWithTxHash("tx-1"),
			testutil.DonationWithAmountUsd("40"),
			testutil.DonationWithReferrer(testutil.CarolID, "1.2"),
		),
		testutil.CreateTestDonation(
			testutil.DonationWithTxHash("tx-2"),
			testutil.DonationWithType(entities.DonationPot),
			testutil.DonationWithAmountUsd("10"),
		),
	}
	for _, d := range donations {
		if err := donationRepo.Insert(ctx, d); err != nil {
			t.Fatalf("failed to seed donation: %v", err)
		}
	}

	// One donor, one recipient
	accountRepo.Upsert(ctx, testutil.AliceID, testutil.DonatedAt)
	accountRepo.Upsert(ctx, testutil.BobID, testutil.DonatedAt)
	accountRepo.ApplyDonorDelta(ctx, testutil.AliceID, donorDelta("50"))
	accountRepo.ApplyRecipientDelta(ctx, testutil.BobID, recipientDelta("40"))

	resp, err := service.GetGlobalStats(ctx)
	if err != nil {
		t.Fatalf("GetGlobalStats failed: %v", err)
	}

	if resp.Data.TotalDonationsUsd != "50" {
		t.Errorf("expected total 50, got %s", resp.Data.TotalDonationsUsd)
	}
	if resp.Data.TotalDonationsCount != 2 {
		t.Errorf("expected count 2, got %d", resp.Data.TotalDonationsCount)
	}
	if resp.Data.TotalDonorsCount != 1 || resp.Data.TotalRecipientsCount != 1 {
		t.Errorf("expected 1 donor and 1 recipient, got %d and %d",
			resp.Data.TotalDonorsCount, resp.Data.TotalRecipientsCount)
	}
	if resp.Data.TotalReferralFeesUsd != "1.2" {
		t.Errorf("expected referral fees 1.2, got %s", resp.Data.TotalReferralFeesUsd)
	}
	if resp.Data.AmountByTypeUsd["DIRECT"] != "40" || resp.Data.AmountByTypeUsd["POT"] != "10" {
		t.Errorf("unexpected per-type breakdown %v", resp.Data.AmountByTypeUsd)
	}
}

func TestGetLeaderboard(t *testing.T) {
	service, _, accountRepo := setupStatsServiceTest()
	ctx := context.Background()

	accountRepo.Upsert(ctx, testutil.AliceID, testutil.DonatedAt)
	accountRepo.Upsert(ctx, testutil.BobID, testutil.DonatedAt)
	accountRepo.Upsert(ctx, testutil.CarolID, testutil.DonatedAt)
	accountRepo.ApplyDonorDelta(ctx, testutil.AliceID, donorDelta("100"))
	accountRepo.ApplyDonorDelta(ctx, testutil.BobID, donorDelta("250"))
	accountRepo.ApplyDonorDelta(ctx, testutil.CarolID, donorDelta("50"))

	resp, err := service.GetLeaderboard(ctx, LeaderboardByDonated, 2)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}

	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Entries[0].AccountID != testutil.BobID || resp.Entries[0].Rank != 1 {
		t.Errorf("expected bob first, got %+v", resp.Entries[0])
	}
	if resp.Entries[0].AmountUsd != "250" {
		t.Errorf("expected 250, got %s", resp.Entries[0].AmountUsd)
	}
	if resp.Entries[1].AccountID != testutil.AliceID {
		t.Errorf("expected alice second, got %s", resp.Entries[1].AccountID)
	}
}

func TestGetLeaderboard_ByReceived(t *testing.T) {
	service, _, accountRepo := setupStatsServiceTest()
	ctx := context.Background()

	accountRepo.Upsert(ctx, testutil.AliceID, testutil.DonatedAt)
	accountRepo.Upsert(ctx, testutil.BobID, testutil.DonatedAt)
	accountRepo.ApplyRecipientDelta(ctx, testutil.AliceID, recipientDelta("30"))
	accountRepo.ApplyRecipientDelta(ctx, testutil.BobID, recipientDelta("70"))

	resp, err := service.GetLeaderboard(ctx, LeaderboardByReceived, 10)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}
	if resp.Entries[0].AccountID != testutil.BobID || resp.Entries[0].AmountUsd != "70" {
		t.Errorf("expected bob leading with 70, got %+v", resp.Entries[0])
	}
}

func TestGetLeaderboard_UnknownDimension(t *testing.T) {
	service, _, _ := setupStatsServiceTest()

	if _, err := service.GetLeaderboard(context.Background(), "volume", 10); err == nil {
		t.Fatal("expected error for unknown dimension")
	}
}

func donorDelta(usd string) repositories.DonorDelta {
	return repositories.DonorDelta{
		AmountUsd: decimal.RequireFromString(usd),
		Bucket:    entities.BucketDirect,
		DonatedAt: testutil.DonatedAt,
	}
}

func recipientDelta(usd string) repositories.RecipientDelta {
	return repositories.RecipientDelta{
		AmountUsd:  decimal.RequireFromString(usd),
		Bucket:     entities.BucketDirect,
		ReceivedAt: testutil.DonatedAt,
	}
}

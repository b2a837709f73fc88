package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/testutil"
)

func setupAccountServiceTest() (*AccountService, *testutil.MockAccountRepository, *testutil.MockDonationRepository) {
	accountRepo := testutil.NewMockAccountRepository()
	donationRepo := testutil.NewMockDonationRepository()
	logger := zap.NewNop()

	service := NewAccountService(accountRepo, donationRepo, nil, logger)
	return service, accountRepo, donationRepo
}

func seedAccounts(t *testing.T, repo *testutil.MockAccountRepository) {
	t.Helper()
	ctx := context.Background()

	for _, id := range []string{testutil.AliceID, testutil.BobID, testutil.CarolID} {
		if err := repo.Upsert(ctx, id, testutil.DonatedAt); err != nil {
			t.Fatalf("failed to seed account %s: %v", id, err)
		}
	}
}

func TestGetAccount(t *testing.T) {
	service, accountRepo, _ := setupAccountServiceTest()
	seedAccounts(t, accountRepo)

	resp, err := service.GetAccount(context.Background(), testutil.AliceID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if resp == nil {
		t.Fatal("expected account response")
	}
	if resp.Data.ID != testutil.AliceID {
		t.Errorf("expected %s, got %s", testutil.AliceID, resp.Data.ID)
	}
	if resp.Data.TotalDonatedUsd != "0" {
		t.Errorf("expected zero donated, got %s", resp.Data.TotalDonatedUsd)
	}
}

func TestGetAccount_Unknown(t *testing.T) {
	service, _, _ := setupAccountServiceTest()

	resp, err := service.GetAccount(context.Background(), "nobody.near")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil for unknown account, got %+v", resp)
	}
}

func TestGetAccounts_Pagination(t *testing.T) {
	service, accountRepo, _ := setupAccountServiceTest()
	seedAccounts(t, accountRepo)

	resp, err := service.GetAccounts(context.Background(), 2, 0, "id", "asc")
	if err != nil {
		t.Fatalf("GetAccounts failed: %v", err)
	}
	if len(resp.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(resp.Accounts))
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if !resp.HasMore {
		t.Error("expected has_more with one account left")
	}

	rest, err := service.GetAccounts(context.Background(), 2, 2, "id", "asc")
	if err != nil {
		t.Fatalf("GetAccounts failed: %v", err)
	}
	if len(rest.Accounts) != 1 || rest.HasMore {
		t.Errorf("expected final page of 1, got %d (has_more=%v)", len(rest.Accounts), rest.HasMore)
	}
}

func TestGetReferralSummary(t *testing.T) {
	service, accountRepo, donationRepo := setupAccountServiceTest()
	ctx := context.Background()

	seedAccounts(t, accountRepo)
	if err := accountRepo.AddReferralFeesEarned(ctx, testutil.CarolID, decimal.RequireFromString("2.4")); err != nil {
		t.Fatalf("failed to seed referral fees: %v", err)
	}

	for i, hash := range []string{"tx-1", "tx-2"} {
		d := testutil.CreateTestDonation(
			testutil.DonationWithTxHash(hash),
			testutil.DonationWithReferrer(testutil.CarolID, "1.2"),
		)
		d.ID = int64(i + 1)
		if err := donationRepo.Insert(ctx, d); err != nil {
			t.Fatalf("failed to seed donation: %v", err)
		}
	}

	resp, err := service.GetReferralSummary(ctx, testutil.CarolID)
	if err != nil {
		t.Fatalf("GetReferralSummary failed: %v", err)
	}
	if resp == nil {
		t.Fatal("expected referral summary")
	}
	if resp.Data.ReferralFeesEarnedUsd != "2.4" {
		t.Errorf("expected fees earned 2.4, got %s", resp.Data.ReferralFeesEarnedUsd)
	}
	if resp.Data.ReferredDonations != 2 {
		t.Errorf("expected 2 referred donations, got %d", resp.Data.ReferredDonations)
	}
}

func TestGetReferralSummary_UnknownAccount(t *testing.T) {
	service, _, _ := setupAccountServiceTest()

	resp, err := service.GetReferralSummary(context.Background(), "nobody.near")
	if err != nil {
		t.Fatalf("GetReferralSummary failed: %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil for unknown account, got %+v", resp)
	}
}

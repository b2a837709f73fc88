package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/application/services"
	"github.com/potlock/donation-indexer/internal/testutil"
)

func setupAccountHandlerTest(t *testing.T) (chi.Router, *testutil.MockAccountRepository, *testutil.MockDonationRepository) {
	t.Helper()
	accountRepo := testutil.NewMockAccountRepository()
	donationRepo := testutil.NewMockDonationRepository()
	logger := zap.NewNop()

	service := services.NewAccountService(accountRepo, donationRepo, nil, logger)
	handler := NewAccountHandler(service, logger)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, accountRepo, donationRepo
}

func TestAccountHandler_GetAccount(t *testing.T) {
	router, accountRepo, _ := setupAccountHandlerTest(t)
	accountRepo.Upsert(context.Background(), testutil.AliceID, testutil.DonatedAt)

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+testutil.AliceID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.AccountResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.ID != testutil.AliceID {
		t.Errorf("expected %s, got %s", testutil.AliceID, response.Data.ID)
	}
}

func TestAccountHandler_GetAccount_NotFound(t *testing.T) {
	router, _, _ := setupAccountHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts/nobody.near", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestAccountHandler_GetAccount_InvalidID(t *testing.T) {
	router, _, _ := setupAccountHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts/UPPER.CASE", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestAccountHandler_GetAccounts(t *testing.T) {
	router, accountRepo, _ := setupAccountHandlerTest(t)
	ctx := context.Background()
	accountRepo.Upsert(ctx, testutil.AliceID, testutil.DonatedAt)
	accountRepo.Upsert(ctx, testutil.BobID, testutil.DonatedAt)

	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=1&sort_by=id&sort_order=asc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.AccountListResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Accounts) != 1 || response.Total != 2 || !response.HasMore {
		t.Errorf("unexpected page: len=%d total=%d has_more=%v",
			len(response.Accounts), response.Total, response.HasMore)
	}
}

func TestAccountHandler_GetAccounts_InvalidSort(t *testing.T) {
	router, _, _ := setupAccountHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts?sort_by=drop_table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestAccountHandler_GetReferrals(t *testing.T) {
	router, accountRepo, donationRepo := setupAccountHandlerTest(t)
	ctx := context.Background()

	accountRepo.Upsert(ctx, testutil.CarolID, testutil.DonatedAt)
	accountRepo.AddReferralFeesEarned(ctx, testutil.CarolID, decimal.RequireFromString("1.2"))
	donationRepo.Insert(ctx, testutil.CreateTestDonation(
		testutil.DonationWithTxHash("tx-1"),
		testutil.DonationWithReferrer(testutil.CarolID, "1.2"),
	))

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+testutil.CarolID+"/referrals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.ReferralSummaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.ReferralFeesEarnedUsd != "1.2" || response.Data.ReferredDonations != 1 {
		t.Errorf("unexpected referral summary %+v", response.Data)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/application/services"
	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/testutil"
)

func setupDonationHandlerTest(t *testing.T) (chi.Router, *testutil.MockDonationRepository, *testutil.MockAccountRepository) {
	t.Helper()
	donationRepo := testutil.NewMockDonationRepository()
	accountRepo := testutil.NewMockAccountRepository()
	logger := zap.NewNop()

	service := services.NewDonationService(donationRepo, accountRepo, nil, logger)
	handler := NewDonationHandler(service, logger)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, donationRepo, accountRepo
}

func seedHandlerDonations(t *testing.T, donationRepo *testutil.MockDonationRepository, accountRepo *testutil.MockAccountRepository) {
	t.Helper()
	ctx := context.Background()
	accountRepo.Upsert(ctx, testutil.AliceID, testutil.DonatedAt)
	accountRepo.Upsert(ctx, testutil.BobID, testutil.DonatedAt)

	donations := []*entities.Donation{
		testutil.CreateTestDonation(testutil.DonationWithTxHash("tx-1")),
		testutil.CreateTestDonation(
			testutil.DonationWithTxHash("tx-2"),
			testutil.DonationWithType(entities.DonationCampaign),
			testutil.DonationWithAmountUsd("5"),
			testutil.DonationWithDonatedAt(testutil.DonatedAt.Add(time.Hour)),
		),
	}
	for _, d := range donations {
		if err := donationRepo.Insert(ctx, d); err != nil {
			t.Fatalf("failed to seed donation: %v", err)
		}
	}
}

func TestDonationHandler_GetDonations(t *testing.T) {
	router, donationRepo, accountRepo := setupDonationHandlerTest(t)
	seedHandlerDonations(t, donationRepo, accountRepo)

	req := httptest.NewRequest(http.MethodGet, "/donations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.DonationListResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Donations) != 2 || response.Total != 2 {
		t.Errorf("expected 2 donations, got len=%d total=%d", len(response.Donations), response.Total)
	}
	// Newest first by default
	if response.Donations[0].TransactionHash != "tx-2" {
		t.Errorf("expected tx-2 first, got %s", response.Donations[0].TransactionHash)
	}
}

func TestDonationHandler_GetDonations_TypeFilter(t *testing.T) {
	router, donationRepo, accountRepo := setupDonationHandlerTest(t)
	seedHandlerDonations(t, donationRepo, accountRepo)

	req := httptest.NewRequest(http.MethodGet, "/donations?type=CAMPAIGN", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.DonationListResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Donations) != 1 || response.Donations[0].Type != string(entities.DonationCampaign) {
		t.Errorf("expected one CAMPAIGN donation, got %+v", response.Donations)
	}
}

func TestDonationHandler_GetDonations_InvalidType(t *testing.T) {
	router, _, _ := setupDonationHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/donations?type=LOTTERY", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestDonationHandler_GetDonations_InvalidAmount(t *testing.T) {
	router, _, _ := setupDonationHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/donations?min_amount_usd=lots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestDonationHandler_GetDonations_InvalidTime(t *testing.T) {
	router, _, _ := setupDonationHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/donations?from_time=yesterday", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestDonationHandler_GetSentDonations(t *testing.T) {
	router, donationRepo, accountRepo := setupDonationHandlerTest(t)
	seedHandlerDonations(t, donationRepo, accountRepo)

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+testutil.AliceID+"/donations/sent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.DonationListResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Total != 2 {
		t.Errorf("expected 2 sent donations, got %d", response.Total)
	}
	for _, d := range response.Donations {
		if d.DonorID != testutil.AliceID {
			t.Errorf("expected donor %s, got %s", testutil.AliceID, d.DonorID)
		}
	}
}

func TestDonationHandler_GetSentDonations_UnknownAccount(t *testing.T) {
	router, _, _ := setupDonationHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts/nobody.near/donations/sent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestDonationHandler_GetReceivedDonations(t *testing.T) {
	router, donationRepo, accountRepo := setupDonationHandlerTest(t)
	seedHandlerDonations(t, donationRepo, accountRepo)

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+testutil.BobID+"/donations/received", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.DonationListResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Total != 2 {
		t.Errorf("expected 2 received donations, got %d", response.Total)
	}
}

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
	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
	"github.com/potlock/donation-indexer/internal/testutil"
)

func setupStatsHandlerTest(t *testing.T) (chi.Router, *testutil.MockDonationRepository, *testutil.MockAccountRepository) {
	t.Helper()
	donationRepo := testutil.NewMockDonationRepository()
	accountRepo := testutil.NewMockAccountRepository()
	logger := zap.NewNop()

	service := services.NewStatsService(donationRepo, accountRepo, nil, logger)
	handler := NewStatsHandler(service, logger)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, donationRepo, accountRepo
}

func TestStatsHandler_GetGlobalStats(t *testing.T) {
	router, donationRepo, _ := setupStatsHandlerTest(t)
	ctx := context.Background()

	if err := donationRepo.Insert(ctx, testutil.CreateTestDonation(testutil.DonationWithTxHash("tx-1"))); err != nil {
		t.Fatalf("failed to seed donation: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.GlobalStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.TotalDonationsCount != 1 {
		t.Errorf("expected 1 donation, got %d", response.Data.TotalDonationsCount)
	}
	if response.Data.TotalDonationsUsd != "40" {
		t.Errorf("expected total 40, got %s", response.Data.TotalDonationsUsd)
	}
}

func TestStatsHandler_GetLeaderboard(t *testing.T) {
	router, _, accountRepo := setupStatsHandlerTest(t)
	ctx := context.Background()

	accountRepo.Upsert(ctx, testutil.AliceID, testutil.DonatedAt)
	accountRepo.ApplyDonorDelta(ctx, testutil.AliceID, repositories.DonorDelta{
		AmountUsd:  decimal.RequireFromString("100"),
		AmountNear: decimal.RequireFromString("25"),
		Bucket:     entities.BucketDirect,
		DonatedAt:  testutil.DonatedAt,
	})

	req := httptest.NewRequest(http.MethodGet, "/stats/leaderboard?by=donated&limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.LeaderboardResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.By != services.LeaderboardByDonated {
		t.Errorf("expected by=donated, got %s", response.By)
	}
	if len(response.Entries) != 1 || response.Entries[0].AccountID != testutil.AliceID {
		t.Fatalf("unexpected entries %+v", response.Entries)
	}
	if response.Entries[0].Rank != 1 || response.Entries[0].AmountUsd != "100" {
		t.Errorf("unexpected leading entry %+v", response.Entries[0])
	}
}

func TestStatsHandler_GetLeaderboard_DefaultsToDonated(t *testing.T) {
	router, _, _ := setupStatsHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/stats/leaderboard", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.LeaderboardResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.By != services.LeaderboardByDonated {
		t.Errorf("expected by=donated, got %s", response.By)
	}
}

func TestStatsHandler_GetLeaderboard_InvalidDimension(t *testing.T) {
	router, _, _ := setupStatsHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/stats/leaderboard?by=popularity", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

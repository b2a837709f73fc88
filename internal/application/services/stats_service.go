package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/domain/repositories"
	"github.com/potlock/donation-indexer/internal/infrastructure/cache"
)

// Leaderboard dimensions
const (
	LeaderboardByDonated  = "donated"
	LeaderboardByReceived = "received"
)

// StatsService provides business logic for platform-wide statistics
type StatsService struct {
	donationRepo repositories.DonationRepository
	accountRepo  repositories.AccountRepository
	cache        *cache.RedisCache
	logger       *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(
	donationRepo repositories.DonationRepository,
	accountRepo repositories.AccountRepository,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		donationRepo: donationRepo,
		accountRepo:  accountRepo,
		cache:        cache,
		logger:       logger,
	}
}

// GlobalStatsDTO is the API representation of platform-wide statistics
type GlobalStatsDTO struct {
	TotalDonationsUsd    string            `json:"total_donations_usd"`
	TotalDonationsNear   string            `json:"total_donations_near"`
	TotalDonationsCount  int64             `json:"total_donations_count"`
	TotalDonorsCount     int64             `json:"total_donors_count"`
	TotalRecipientsCount int64             `json:"total_recipients_count"`
	TotalReferralFeesUsd string            `json:"total_referral_fees_usd"`
	AmountByTypeUsd      map[string]string `json:"amount_by_type_usd"`
}

// GlobalStatsResponse is the API response for stats queries
type GlobalStatsResponse struct {
	Data GlobalStatsDTO `json:"data"`
}

// LeaderboardEntryDTO is one row of a leaderboard
type LeaderboardEntryDTO struct {
	Rank      int    `json:"rank"`
	AccountID string `json:"account_id"`
	AmountUsd string `json:"amount_usd"`
	Count     int64  `json:"count"`
}

// LeaderboardResponse is the API response for leaderboard queries
type LeaderboardResponse struct {
	By      string                `json:"by"`
	Entries []LeaderboardEntryDTO `json:"entries"`
}

// GetGlobalStats retrieves platform-wide donation statistics
func (s *StatsService) GetGlobalStats(ctx context.Context) (*GlobalStatsResponse, error) {
	cacheKey := "stats:global"

	var cached GlobalStatsResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	stats, err := s.donationRepo.GetGlobalStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}

	donors, err := s.accountRepo.CountDonors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count donors: %w", err)
	}

	recipients, err := s.accountRepo.CountRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipients: %w", err)
	}

	byType := make(map[string]string, len(stats.AmountByType))
	for t, amount := range stats.AmountByType {
		byType[string(t)] = amount.String()
	}

	response := &GlobalStatsResponse{
		Data: GlobalStatsDTO{
			TotalDonationsUsd:    stats.TotalDonationsUsd.String(),
			TotalDonationsNear:   stats.TotalDonationsNear.String(),
			TotalDonationsCount:  stats.TotalCount,
			TotalDonorsCount:     donors,
			TotalRecipientsCount: recipients,
			TotalReferralFeesUsd: stats.TotalReferralFees.String(),
			AmountByTypeUsd:      byType,
		},
	}

	// Stats move with every block, keep the cache short
	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, response, 60*time.Second); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// GetLeaderboard retrieves the top accounts by donated or received USD
func (s *StatsService) GetLeaderboard(ctx context.Context, by string, limit int) (*LeaderboardResponse, error) {
	var sortBy string
	switch by {
	case LeaderboardByDonated, "":
		by = LeaderboardByDonated
		sortBy = "total_donated_usd"
	case LeaderboardByReceived:
		sortBy = "total_received_usd"
	default:
		return nil, fmt.Errorf("unknown leaderboard dimension %q", by)
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%d", by, limit)

	var cached LeaderboardResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	accounts, _, err := s.accountRepo.GetAllPaginated(ctx, limit, 0, sortBy, "desc")
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntryDTO, len(accounts))
	for i := range accounts {
		entry := LeaderboardEntryDTO{
			Rank:      i + 1,
			AccountID: accounts[i].ID,
		}
		if by == LeaderboardByDonated {
			entry.AmountUsd = accounts[i].TotalDonatedUsd.String()
			entry.Count = accounts[i].DonationsSentCount
		} else {
			entry.AmountUsd = accounts[i].TotalReceivedUsd.String()
			entry.Count = accounts[i].DonationsReceivedCount
		}
		entries[i] = entry
	}

	response := &LeaderboardResponse{By: by, Entries: entries}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, response, 60*time.Second); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
	"github.com/potlock/donation-indexer/internal/infrastructure/cache"
)

// AccountService provides business logic for account queries
type AccountService struct {
	accountRepo  repositories.AccountRepository
	donationRepo repositories.DonationRepository
	cache        *cache.RedisCache
	logger       *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	accountRepo repositories.AccountRepository,
	donationRepo repositories.DonationRepository,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accountRepo:  accountRepo,
		donationRepo: donationRepo,
		cache:        cache,
		logger:       logger,
	}
}

// AccountDTO is the API representation of an account summary
type AccountDTO struct {
	ID             string `json:"id"`
	FirstSeenAt    string `json:"first_seen_at"`
	LastActivityAt string `json:"last_activity_at"`

	TotalDonatedUsd  string `json:"total_donated_usd"`
	TotalDonatedNear string `json:"total_donated_near"`

	TotalReceivedUsd  string `json:"total_received_usd"`
	TotalReceivedNear string `json:"total_received_near"`

	DonationsSentCount     int64 `json:"donations_sent_count"`
	DonationsReceivedCount int64 `json:"donations_received_count"`

	DirectDonatedUsd    string `json:"direct_donated_usd"`
	DirectSentCount     int64  `json:"direct_sent_count"`
	DirectReceivedUsd   string `json:"direct_received_usd"`
	DirectReceivedCount int64  `json:"direct_received_count"`

	PotDonatedUsd    string `json:"pot_donated_usd"`
	PotSentCount     int64  `json:"pot_sent_count"`
	PotReceivedUsd   string `json:"pot_received_usd"`
	PotReceivedCount int64  `json:"pot_received_count"`

	CampaignDonatedUsd    string `json:"campaign_donated_usd"`
	CampaignSentCount     int64  `json:"campaign_sent_count"`
	CampaignReceivedUsd   string `json:"campaign_received_usd"`
	CampaignReceivedCount int64  `json:"campaign_received_count"`

	ReferralFeesPaidUsd   string `json:"referral_fees_paid_usd"`
	ReferralFeesEarnedUsd string `json:"referral_fees_earned_usd"`

	FirstDonationDate string `json:"first_donation_date,omitempty"`
	LastDonationDate  string `json:"last_donation_date,omitempty"`
}

// AccountResponse is the API response for single account queries
type AccountResponse struct {
	Data AccountDTO `json:"data"`
}

// AccountListResponse is the API response for account list queries
type AccountListResponse struct {
	Accounts []AccountDTO `json:"accounts"`
	Total    int64        `json:"total"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
	HasMore  bool         `json:"has_more"`
}

// ReferralSummaryDTO summarizes an account's referral activity
type ReferralSummaryDTO struct {
	AccountID             string `json:"account_id"`
	ReferralFeesEarnedUsd string `json:"referral_fees_earned_usd"`
	ReferralFeesPaidUsd   string `json:"referral_fees_paid_usd"`
	ReferredDonations     int64  `json:"referred_donations"`
}

// ReferralSummaryResponse is the API response for referral queries
type ReferralSummaryResponse struct {
	Data ReferralSummaryDTO `json:"data"`
}

// GetAccounts retrieves accounts with pagination and sorting
func (s *AccountService) GetAccounts(ctx context.Context, limit, offset int, sortBy, sortOrder string) (*AccountListResponse, error) {
	cacheKey := fmt.Sprintf("accounts:%d:%d:%s:%s", limit, offset, sortBy, sortOrder)

	var cached AccountListResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	accounts, total, err := s.accountRepo.GetAllPaginated(ctx, limit, offset, sortBy, sortOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	dtos := make([]AccountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}

	response := &AccountListResponse{
		Accounts: dtos,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		HasMore:  int64(offset+len(accounts)) < total,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// GetAccount retrieves a single account, nil if unknown
func (s *AccountService) GetAccount(ctx context.Context, id string) (*AccountResponse, error) {
	cacheKey := "account:" + id

	var cached AccountResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, nil
	}

	response := &AccountResponse{Data: toAccountDTO(account)}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// GetReferralSummary retrieves an account's referral fees and the number
// of donations it referred, nil if the account is unknown
func (s *AccountService) GetReferralSummary(ctx context.Context, id string) (*ReferralSummaryResponse, error) {
	cacheKey := "referrals:" + id

	var cached ReferralSummaryResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, nil
	}

	referred, err := s.donationRepo.CountByReferrer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count referred donations: %w", err)
	}

	response := &ReferralSummaryResponse{
		Data: ReferralSummaryDTO{
			AccountID:             id,
			ReferralFeesEarnedUsd: account.ReferralFeesEarnedUsd.String(),
			ReferralFeesPaidUsd:   account.ReferralFeesPaidUsd.String(),
			ReferredDonations:     referred,
		},
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

func toAccountDTO(a *entities.Account) AccountDTO {
	dto := AccountDTO{
		ID:             a.ID,
		FirstSeenAt:    a.FirstSeenAt.Format(time.RFC3339),
		LastActivityAt: a.LastActivityAt.Format(time.RFC3339),

		TotalDonatedUsd:  a.TotalDonatedUsd.String(),
		TotalDonatedNear: a.TotalDonatedNear.String(),

		TotalReceivedUsd:  a.TotalReceivedUsd.String(),
		TotalReceivedNear: a.TotalReceivedNear.String(),

		DonationsSentCount:     a.DonationsSentCount,
		DonationsReceivedCount: a.DonationsReceivedCount,

		DirectDonatedUsd:    a.DirectDonatedUsd.String(),
		DirectSentCount:     a.DirectSentCount,
		DirectReceivedUsd:   a.DirectReceivedUsd.String(),
		DirectReceivedCount: a.DirectReceivedCount,

		PotDonatedUsd:    a.PotDonatedUsd.String(),
		PotSentCount:     a.PotSentCount,
		PotReceivedUsd:   a.PotReceivedUsd.String(),
		PotReceivedCount: a.PotReceivedCount,

		CampaignDonatedUsd:    a.CampaignDonatedUsd.String(),
		CampaignSentCount:     a.CampaignSentCount,
		CampaignReceivedUsd:   a.CampaignReceivedUsd.String(),
		CampaignReceivedCount: a.CampaignReceivedCount,

		ReferralFeesPaidUsd:   a.ReferralFeesPaidUsd.String(),
		ReferralFeesEarnedUsd: a.ReferralFeesEarnedUsd.String(),
	}

	if a.FirstDonationDate != nil {
		dto.FirstDonationDate = a.FirstDonationDate.Format(time.RFC3339)
	}
	if a.LastDonationDate != nil {
		dto.LastDonationDate = a.LastDonationDate.Format(time.RFC3339)
	}

	return dto
}

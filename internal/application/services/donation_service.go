package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
	"github.com/potlock/donation-indexer/internal/infrastructure/cache"
)

// DonationService provides business logic for donation queries
type DonationService struct {
	donationRepo repositories.DonationRepository
	accountRepo  repositories.AccountRepository
	cache        *cache.RedisCache
	logger       *zap.Logger
}

// NewDonationService creates a new donation service
func NewDonationService(
	donationRepo repositories.DonationRepository,
	accountRepo repositories.AccountRepository,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *DonationService {
	return &DonationService{
		donationRepo: donationRepo,
		accountRepo:  accountRepo,
		cache:        cache,
		logger:       logger,
	}
}

// DonationDTO is the API representation of a donation
type DonationDTO struct {
	ID              int64  `json:"id"`
	Type            string `json:"type"`
	DonorID         string `json:"donor_id"`
	RecipientID     string `json:"recipient_id,omitempty"`
	AmountNear      string `json:"amount_near"`
	AmountUsd       string `json:"amount_usd"`
	FtID            string `json:"ft_id"`
	Message         string `json:"message,omitempty"`
	DonatedAt       string `json:"donated_at"`
	BlockHeight     uint64 `json:"block_height"`
	TransactionHash string `json:"transaction_hash"`
	ProtocolFeeUsd  string `json:"protocol_fee_usd"`
	ReferrerID      string `json:"referrer_id,omitempty"`
	ReferrerFeeUsd  string `json:"referrer_fee_usd"`
	PotID           string `json:"pot_id,omitempty"`
	CampaignID      string `json:"campaign_id,omitempty"`
	ProjectID       string `json:"project_id,omitempty"`
}

// DonationListResponse is the API response for donation list queries
type DonationListResponse struct {
	Donations []DonationDTO `json:"donations"`
	Total     int64         `json:"total"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
	HasMore   bool          `json:"has_more"`
}

// GetDonations retrieves donations matching the given filter
func (s *DonationService) GetDonations(ctx context.Context, filter entities.DonationFilter) (*DonationListResponse, error) {
	cacheKey := s.generateCacheKey(filter)

	var cached DonationListResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	donations, err := s.donationRepo.GetByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get donations: %w", err)
	}

	total, err := s.donationRepo.GetCount(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get donation count: %w", err)
	}

	dtos := make([]DonationDTO, len(donations))
	for i := range donations {
		dtos[i] = toDonationDTO(&donations[i])
	}

	response := &DonationListResponse{
		Donations: dtos,
		Total:     total,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
		HasMore:   int64(filter.Offset+len(donations)) < total,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// GetSentDonations retrieves donations sent by an account, nil if the
// account is unknown
func (s *DonationService) GetSentDonations(ctx context.Context, accountID string, filter entities.DonationFilter) (*DonationListResponse, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, nil
	}

	filter.DonorID = &accountID
	return s.GetDonations(ctx, filter)
}

// GetReceivedDonations retrieves donations received by an account, nil
// if the account is unknown
func (s *DonationService) GetReceivedDonations(ctx context.Context, accountID string, filter entities.DonationFilter) (*DonationListResponse, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, nil
	}

	filter.RecipientID = &accountID
	return s.GetDonations(ctx, filter)
}

// generateCacheKey generates a unique cache key for the filter
func (s *DonationService) generateCacheKey(filter entities.DonationFilter) string {
	var parts []string

	if filter.DonorID != nil {
		parts = append(parts, "donor:"+*filter.DonorID)
	}
	if filter.RecipientID != nil {
		parts = append(parts, "recipient:"+*filter.RecipientID)
	}
	if filter.Type != nil {
		parts = append(parts, "type:"+string(*filter.Type))
	}
	if filter.FromTime != nil {
		parts = append(parts, fmt.Sprintf("ft:%d", filter.FromTime.Unix()))
	}
	if filter.ToTime != nil {
		parts = append(parts, fmt.Sprintf("tt:%d", filter.ToTime.Unix()))
	}
	if filter.MinAmountUsd != nil {
		parts = append(parts, "min:"+filter.MinAmountUsd.String())
	}
	if filter.MaxAmountUsd != nil {
		parts = append(parts, "max:"+filter.MaxAmountUsd.String())
	}

	parts = append(parts, fmt.Sprintf("s:%s:%s:l:%d:o:%d", filter.SortBy, filter.SortOrder, filter.Limit, filter.Offset))

	key := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(key))
	return "donations:" + hex.EncodeToString(hash[:8])
}

func toDonationDTO(d *entities.Donation) DonationDTO {
	dto := DonationDTO{
		ID:              d.ID,
		Type:            string(d.Type),
		DonorID:         d.DonorID,
		AmountNear:      d.AmountNear.String(),
		AmountUsd:       d.AmountUsd.String(),
		FtID:            d.FtID,
		DonatedAt:       d.DonatedAt.Format(time.RFC3339),
		BlockHeight:     d.BlockHeight,
		TransactionHash: d.TransactionHash,
		ProtocolFeeUsd:  d.ProtocolFeeUsd.String(),
		ReferrerFeeUsd:  d.ReferrerFeeUsd.String(),
	}

	if d.RecipientID != nil {
		dto.RecipientID = *d.RecipientID
	}
	if d.Message != nil {
		dto.Message = *d.Message
	}
	if d.ReferrerID != nil {
		dto.ReferrerID = *d.ReferrerID
	}
	if d.PotID != nil {
		dto.PotID = *d.PotID
	}
	if d.CampaignID != nil {
		dto.CampaignID = *d.CampaignID
	}
	if d.ProjectID != nil {
		dto.ProjectID = *d.ProjectID
	}

	return dto
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/potlock/donation-indexer/internal/config"
	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
)

// yoctoDecimals is the number of base-10 digits between yoctoNEAR and NEAR
const yoctoDecimals = 24

// priceSource tags persisted observations with where they came from
const priceSource = "coingecko"

// PriceService converts native token amounts to fiat. Remote lookups go
// through an in-memory cache and the price history table; conversion
// itself never fails, degrading to a zero valuation when no price can be
// found so ingestion is never blocked on the feed.
type PriceService struct {
	httpClient *http.Client
	priceRepo  repositories.PriceRepository
	config     config.PricingConfig
	logger     *zap.Logger

	mu       sync.Mutex
	cached   decimal.Decimal
	cachedAt time.Time

	group singleflight.Group
}

// NewPriceService creates a new price service
func NewPriceService(priceRepo repositories.PriceRepository, cfg config.PricingConfig, logger *zap.Logger) *PriceService {
	return &PriceService{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		priceRepo:  priceRepo,
		config:     cfg,
		logger:     logger,
	}
}

// NearAmount converts a yoctoNEAR decimal string to NEAR. Unparsable
// input yields zero with a warning rather than an error; a bad amount on
// one event must not stall the block it arrived in.
func (s *PriceService) NearAmount(yocto string) decimal.Decimal {
	if yocto == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(yocto)
	if err != nil {
		s.logger.Warn("Unparsable native amount",
			zap.String("amount", yocto),
			zap.Error(err),
		)
		return decimal.Zero
	}

	return d.Shift(-yoctoDecimals)
}

// CurrentPrice returns the current USD price of the native token. The
// fallback order is fresh cache, remote feed, stale cache, price
// history, zero.
func (s *PriceService) CurrentPrice(ctx context.Context) decimal.Decimal {
	s.mu.Lock()
	if !s.cachedAt.IsZero() && time.Since(s.cachedAt) < s.config.CacheTTL {
		price := s.cached
		s.mu.Unlock()
		return price
	}
	s.mu.Unlock()

	// Concurrent refreshes collapse into one remote call
	v, err, _ := s.group.Do(s.config.TokenID, func() (interface{}, error) {
		return s.fetchRemote(ctx)
	})
	if err == nil {
		price := v.(decimal.Decimal)
		s.persist(ctx, price)

		s.mu.Lock()
		s.cached = price
		s.cachedAt = time.Now()
		s.mu.Unlock()

		return price
	}

	s.logger.Warn("Price feed unavailable", zap.Error(err))

	s.mu.Lock()
	if !s.cachedAt.IsZero() {
		price := s.cached
		s.mu.Unlock()
		return price
	}
	s.mu.Unlock()

	if latest, dbErr := s.priceRepo.GetLatest(ctx, s.config.TokenID); dbErr == nil && latest != nil {
		return latest.PriceUsd
	}

	s.logger.Warn("No price available, valuing at zero",
		zap.String("token", s.config.TokenID),
	)
	return decimal.Zero
}

// HistoricalPrice returns the USD price at or before the given instant,
// falling back to the current price when the history has nothing that old
func (s *PriceService) HistoricalPrice(ctx context.Context, at time.Time) decimal.Decimal {
	price, err := s.priceRepo.GetLatestAt(ctx, s.config.TokenID, at)
	if err != nil {
		s.logger.Warn("Failed to look up historical price",
			zap.Time("at", at),
			zap.Error(err),
		)
	}
	if price != nil {
		return price.PriceUsd
	}

	return s.CurrentPrice(ctx)
}

// UsdValueAt converts a yoctoNEAR string to its NEAR amount and the USD
// value it had at the given instant
func (s *PriceService) UsdValueAt(ctx context.Context, yocto string, at time.Time) (decimal.Decimal, decimal.Decimal) {
	nearAmount := s.NearAmount(yocto)
	if nearAmount.IsZero() {
		return nearAmount, decimal.Zero
	}

	price := s.HistoricalPrice(ctx, at)
	return nearAmount, nearAmount.Mul(price)
}

// fetchRemote queries the price feed for the current spot price
func (s *PriceService) fetchRemote(ctx context.Context) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		s.config.FeedURL, s.config.TokenID, s.config.VsCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return decimal.Zero, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}

	var payload map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode price response: %w", err)
	}

	price, ok := payload[s.config.TokenID][s.config.VsCurrency]
	if !ok {
		return decimal.Zero, fmt.Errorf("price feed response missing %s/%s", s.config.TokenID, s.config.VsCurrency)
	}

	return price, nil
}

// persist records a fetched price in the history table, truncated to the
// minute so repeated fetches within one minute collapse to one row
func (s *PriceService) persist(ctx context.Context, price decimal.Decimal) {
	observation := &entities.TokenPrice{
		TokenID:   s.config.TokenID,
		PriceUsd:  price,
		Timestamp: time.Now().Truncate(time.Minute),
		Source:    priceSource,
	}

	if err := s.priceRepo.Save(ctx, observation); err != nil {
		s.logger.Warn("Failed to persist price observation", zap.Error(err))
	}
}

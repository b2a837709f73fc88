package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/potlock/donation-indexer/internal/config"
	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
	"github.com/potlock/donation-indexer/internal/infrastructure/near"
)

// ChainClient is the chain access surface the indexer needs
type ChainClient interface {
	LatestBlock(ctx context.Context) (*near.Block, error)
	BlockByHeight(ctx context.Context, height uint64) (*near.Block, error)
	Chunk(ctx context.Context, chunkHash string) (*near.ChunkDetails, error)
}

// PriceOracle converts native amounts to fiat valuations
type PriceOracle interface {
	NearAmount(yocto string) decimal.Decimal
	CurrentPrice(ctx context.Context) decimal.Decimal
	HistoricalPrice(ctx context.Context, at time.Time) decimal.Decimal
	UsdValueAt(ctx context.Context, yocto string, at time.Time) (decimal.Decimal, decimal.Decimal)
}

// IndexerService drives ingestion: a single worker that walks the chain
// one block at a time, extracts donation and payout events, converts
// them at event-time prices and applies account aggregates exactly once
// per transaction hash. The checkpoint advances only after a block is
// fully persisted, so a crash anywhere replays the block and duplicate
// detection absorbs the replay.
type IndexerService struct {
	chain          ChainClient
	parser         *near.EventParser
	prices         PriceOracle
	accountRepo    repositories.AccountRepository
	donationRepo   repositories.DonationRepository
	payoutRepo     repositories.PayoutRepository
	potRepo        repositories.PotRepository
	campaignRepo   repositories.CampaignRepository
	checkpointRepo repositories.CheckpointRepository
	config         config.IndexerConfig
	logger         *zap.Logger
	metrics        *IndexerMetrics
	stopCh         chan struct{}
	wg             sync.WaitGroup
}

// NewIndexerService creates a new indexer service. Metrics may be nil.
func NewIndexerService(
	chain ChainClient,
	parser *near.EventParser,
	prices PriceOracle,
	accountRepo repositories.AccountRepository,
	donationRepo repositories.DonationRepository,
	payoutRepo repositories.PayoutRepository,
	potRepo repositories.PotRepository,
	campaignRepo repositories.CampaignRepository,
	checkpointRepo repositories.CheckpointRepository,
	cfg config.IndexerConfig,
	logger *zap.Logger,
	metrics *IndexerMetrics,
) *IndexerService {
	return &IndexerService{
		chain:          chain,
		parser:         parser,
		prices:         prices,
		accountRepo:    accountRepo,
		donationRepo:   donationRepo,
		payoutRepo:     payoutRepo,
		potRepo:        potRepo,
		campaignRepo:   campaignRepo,
		checkpointRepo: checkpointRepo,
		config:         cfg,
		logger:         logger,
		metrics:        metrics,
		stopCh:         make(chan struct{}),
	}
}

// Start resolves the starting height and begins the ingestion loop
func (s *IndexerService) Start(ctx context.Context) error {
	height, err := s.resolveStartHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve start height: %w", err)
	}

	s.logger.Info("Starting indexer",
		zap.Uint64("start_height", height),
		zap.String("chunk_failure_policy", s.config.ChunkFailurePolicy),
	)

	s.wg.Add(1)
	go s.run(ctx, height)

	return nil
}

// Stop gracefully stops the indexer, waiting for the in-flight block to
// finish
func (s *IndexerService) Stop() {
	s.logger.Info("Stopping indexer")
	close(s.stopCh)
	s.wg.Wait()
}

// resolveStartHeight picks the first block to process. A checkpoint
// ahead of the chain head means the chain the checkpoint was written
// against is gone, so the checkpoint is deleted and ingestion restarts
// from the configured start.
func (s *IndexerService) resolveStartHeight(ctx context.Context) (uint64, error) {
	head, err := s.chain.LatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch chain head: %w", err)
	}
	headHeight := head.Header.Height

	cp, err := s.checkpointRepo.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if cp != nil && cp.LastBlockHeight > headHeight {
		s.logger.Warn("Checkpoint ahead of chain head, discarding it",
			zap.Uint64("checkpoint_height", cp.LastBlockHeight),
			zap.Uint64("head_height", headHeight),
		)
		if err := s.checkpointRepo.Delete(ctx); err != nil {
			return 0, fmt.Errorf("failed to delete stale checkpoint: %w", err)
		}
		cp = nil
	}

	if cp != nil {
		return cp.LastBlockHeight + 1, nil
	}

	if s.config.StartBlockHeight > 0 {
		return s.config.StartBlockHeight, nil
	}
	if headHeight > s.config.StartOffset {
		return headHeight - s.config.StartOffset, nil
	}
	return 0, nil
}

// run is the main ingestion loop. A block error is logged and the same
// height retried after the poll interval; the loop never advances past a
// block it could not fully persist.
func (s *IndexerService) run(ctx context.Context, height uint64) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		head, err := s.chain.LatestBlock(ctx)
		if err != nil {
			s.logger.Error("Failed to fetch chain head", zap.Error(err))
			s.metrics.ErrorOccurred()
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		if height > head.Header.Height {
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		start := time.Now()
		if err := s.processBlock(ctx, height); err != nil {
			s.logger.Error("Failed to process block",
				zap.Uint64("height", height),
				zap.Error(err),
			)
			s.metrics.ErrorOccurred()
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		s.metrics.BlockProcessed(height, time.Since(start))
		height++
	}
}

// sleep waits one poll interval, returning false when the service is
// shutting down
func (s *IndexerService) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	case <-time.After(s.config.PollInterval):
		return true
	}
}

// processBlock ingests one block end to end and then advances the
// checkpoint. The checkpoint write is last: everything before it must be
// safe to replay.
func (s *IndexerService) processBlock(ctx context.Context, height uint64) error {
	block, err := s.chain.BlockByHeight(ctx, height)
	if err != nil {
		return fmt.Errorf("failed to fetch block %d: %w", height, err)
	}

	for _, chunkHeader := range block.Chunks {
		chunk, err := s.chain.Chunk(ctx, chunkHeader.ChunkHash)
		if err != nil {
			if s.config.ChunkFailurePolicy == config.ChunkPolicySkip {
				s.logger.Warn("Skipping unfetchable chunk",
					zap.Uint64("height", height),
					zap.String("chunk", chunkHeader.ChunkHash),
					zap.Error(err),
				)
				continue
			}
			return fmt.Errorf("failed to fetch chunk %s: %w", chunkHeader.ChunkHash, err)
		}

		for i := range chunk.ReceiptExecutionOutcomes {
			if err := s.processReceipt(ctx, &chunk.ReceiptExecutionOutcomes[i], height); err != nil {
				if s.config.ChunkFailurePolicy == config.ChunkPolicySkip {
					s.logger.Warn("Skipping failed receipt",
						zap.Uint64("height", height),
						zap.Error(err),
					)
					continue
				}
				return fmt.Errorf("failed to process receipt in block %d: %w", height, err)
			}
		}
	}

	cp := &entities.Checkpoint{
		LastBlockHeight: height,
		LastBlockHash:   block.Header.Hash,
		LastBlockTime:   block.Header.Time(),
	}
	if err := s.checkpointRepo.Save(ctx, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint at %d: %w", height, err)
	}

	s.logger.Debug("Processed block", zap.Uint64("height", height))
	return nil
}

// processReceipt extracts and persists every donation and payout event
// carried by one receipt's execution outcome
func (s *IndexerService) processReceipt(ctx context.Context, reo *near.ReceiptExecutionOutcome, height uint64) error {
	if reo.Receipt == nil || reo.ExecutionOutcome == nil || reo.ExecutionOutcome.Outcome == nil {
		return nil
	}

	txHash := reo.ExecutionOutcome.ID
	if txHash == "" {
		txHash = reo.Receipt.ReceiptID
	}

	outcome := reo.ExecutionOutcome.Outcome

	for _, parsed := range s.parser.ParseExecutionOutcome(outcome, height, txHash) {
		if err := s.saveDonation(ctx, &parsed); err != nil {
			return err
		}
	}

	if payout := s.parser.ParsePotPayout(outcome, height, txHash); payout != nil {
		if err := s.savePayout(ctx, payout); err != nil {
			return err
		}
	}

	return nil
}

// saveDonation persists one donation and applies its account aggregates.
// The donation insert is the idempotency gate: a duplicate transaction
// hash means every side effect below it already happened on a previous
// pass, so the whole call becomes a no-op.
func (s *IndexerService) saveDonation(ctx context.Context, parsed *entities.ParsedDonation) error {
	amountNear, amountUsd := s.prices.UsdValueAt(ctx, parsed.Amount, parsed.DonatedAt)
	protocolFeeNear, protocolFeeUsd := s.prices.UsdValueAt(ctx, parsed.ProtocolFee, parsed.DonatedAt)
	referrerFeeNear, referrerFeeUsd := s.prices.UsdValueAt(ctx, parsed.ReferrerFee, parsed.DonatedAt)

	donation := &entities.Donation{
		Type:            parsed.Type,
		DonorID:         parsed.DonorID,
		AmountNear:      amountNear,
		AmountUsd:       amountUsd,
		FtID:            parsed.FtID,
		DonatedAt:       parsed.DonatedAt,
		BlockHeight:     parsed.BlockHeight,
		TransactionHash: parsed.TransactionHash,
		ProtocolFeeNear: protocolFeeNear,
		ProtocolFeeUsd:  protocolFeeUsd,
		ReferrerFeeNear: referrerFeeNear,
		ReferrerFeeUsd:  referrerFeeUsd,
	}
	if parsed.RecipientID != "" {
		donation.RecipientID = &parsed.RecipientID
	}
	if parsed.Message != "" {
		donation.Message = &parsed.Message
	}
	if parsed.ReferrerID != "" {
		donation.ReferrerID = &parsed.ReferrerID
	}
	if parsed.PotID != "" {
		donation.PotID = &parsed.PotID
	}
	if parsed.CampaignID != "" {
		donation.CampaignID = &parsed.CampaignID
	}
	if parsed.ProjectID != "" {
		donation.ProjectID = &parsed.ProjectID
	}
	if parsed.NetAmount != "" {
		donation.NetAmountNear = decimal.NewNullDecimal(s.prices.NearAmount(parsed.NetAmount))
	}
	if parsed.ChefID != "" {
		donation.ChefID = &parsed.ChefID
	}
	if parsed.ChefFee != "" {
		donation.ChefFeeNear = decimal.NewNullDecimal(s.prices.NearAmount(parsed.ChefFee))
	}

	// Referenced accounts and destinations exist before any aggregate
	// touches them. These upserts are idempotent, so a replayed block
	// just touches timestamps.
	if err := s.accountRepo.Upsert(ctx, parsed.DonorID, parsed.DonatedAt); err != nil {
		return fmt.Errorf("failed to upsert donor %s: %w", parsed.DonorID, err)
	}
	if parsed.RecipientID != "" {
		if err := s.accountRepo.Upsert(ctx, parsed.RecipientID, parsed.DonatedAt); err != nil {
			return fmt.Errorf("failed to upsert recipient %s: %w", parsed.RecipientID, err)
		}
	}
	if parsed.ReferrerID != "" {
		if err := s.accountRepo.Upsert(ctx, parsed.ReferrerID, parsed.DonatedAt); err != nil {
			return fmt.Errorf("failed to upsert referrer %s: %w", parsed.ReferrerID, err)
		}
	}
	if parsed.PotID != "" {
		if err := s.potRepo.Upsert(ctx, parsed.PotID, parsed.DonatedAt); err != nil {
			return fmt.Errorf("failed to upsert pot %s: %w", parsed.PotID, err)
		}
	}
	if parsed.CampaignID != "" {
		if err := s.campaignRepo.Upsert(ctx, parsed.CampaignID, parsed.DonatedAt); err != nil {
			return fmt.Errorf("failed to upsert campaign %s: %w", parsed.CampaignID, err)
		}
	}

	if err := s.donationRepo.Insert(ctx, donation); err != nil {
		if errors.Is(err, repositories.ErrDuplicateTransaction) {
			s.logger.Debug("Donation already ingested",
				zap.String("tx_hash", parsed.TransactionHash),
			)
			s.metrics.DuplicateSkipped()
			return nil
		}
		return fmt.Errorf("failed to insert donation %s: %w", parsed.TransactionHash, err)
	}

	if err := s.accountRepo.ApplyDonorDelta(ctx, parsed.DonorID, repositories.DonorDelta{
		AmountUsd:          amountUsd,
		AmountNear:         amountNear,
		Bucket:             parsed.Type.DonorBucket(),
		ReferralFeePaidUsd: referrerFeeUsd,
		DonatedAt:          parsed.DonatedAt,
	}); err != nil {
		return fmt.Errorf("failed to apply donor delta for %s: %w", parsed.DonorID, err)
	}

	if bucket, ok := parsed.Type.RecipientBucket(); ok && parsed.RecipientID != "" {
		if err := s.accountRepo.ApplyRecipientDelta(ctx, parsed.RecipientID, repositories.RecipientDelta{
			AmountUsd:  amountUsd,
			AmountNear: amountNear,
			Bucket:     bucket,
			ReceivedAt: parsed.DonatedAt,
		}); err != nil {
			return fmt.Errorf("failed to apply recipient delta for %s: %w", parsed.RecipientID, err)
		}
	}

	if parsed.ReferrerID != "" && referrerFeeUsd.IsPositive() {
		if err := s.accountRepo.AddReferralFeesEarned(ctx, parsed.ReferrerID, referrerFeeUsd); err != nil {
			return fmt.Errorf("failed to credit referrer %s: %w", parsed.ReferrerID, err)
		}
	}

	s.metrics.DonationIndexed()
	s.logger.Info("Indexed donation",
		zap.String("type", string(parsed.Type)),
		zap.String("donor", parsed.DonorID),
		zap.String("tx_hash", parsed.TransactionHash),
		zap.Uint64("height", parsed.BlockHeight),
	)

	return nil
}

// savePayout persists one pot payout and credits the recipient's pot
// bucket, with the same duplicate-transaction gate as donations
func (s *IndexerService) savePayout(ctx context.Context, parsed *entities.ParsedPayout) error {
	amountNear, amountUsd := s.prices.UsdValueAt(ctx, parsed.Amount, parsed.PaidAt)

	if err := s.accountRepo.Upsert(ctx, parsed.RecipientID, parsed.PaidAt); err != nil {
		return fmt.Errorf("failed to upsert payout recipient %s: %w", parsed.RecipientID, err)
	}
	if err := s.potRepo.Upsert(ctx, parsed.PotID, parsed.PaidAt); err != nil {
		return fmt.Errorf("failed to upsert pot %s: %w", parsed.PotID, err)
	}

	payout := &entities.PotPayout{
		PotID:           parsed.PotID,
		RecipientID:     parsed.RecipientID,
		AmountNear:      amountNear,
		AmountUsd:       amountUsd,
		FtID:            parsed.FtID,
		PaidAt:          parsed.PaidAt,
		BlockHeight:     parsed.BlockHeight,
		TransactionHash: parsed.TransactionHash,
	}

	if err := s.payoutRepo.Insert(ctx, payout); err != nil {
		if errors.Is(err, repositories.ErrDuplicateTransaction) {
			s.logger.Debug("Payout already ingested",
				zap.String("tx_hash", parsed.TransactionHash),
			)
			s.metrics.DuplicateSkipped()
			return nil
		}
		return fmt.Errorf("failed to insert payout %s: %w", parsed.TransactionHash, err)
	}

	if err := s.accountRepo.ApplyRecipientDelta(ctx, parsed.RecipientID, repositories.RecipientDelta{
		AmountUsd:  amountUsd,
		AmountNear: amountNear,
		Bucket:     entities.BucketPot,
		ReceivedAt: parsed.PaidAt,
	}); err != nil {
		return fmt.Errorf("failed to apply payout delta for %s: %w", parsed.RecipientID, err)
	}

	s.metrics.PayoutIndexed()
	s.logger.Info("Indexed pot payout",
		zap.String("pot", parsed.PotID),
		zap.String("recipient", parsed.RecipientID),
		zap.String("tx_hash", parsed.TransactionHash),
	)

	return nil
}

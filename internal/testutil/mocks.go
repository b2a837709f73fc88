package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/potlock/donation-indexer/internal/domain/entities"
	"github.com/potlock/donation-indexer/internal/domain/repositories"
	"github.com/potlock/donation-indexer/internal/infrastructure/near"
)

// MockCall records one invocation of a mock method
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAccountRepository is an in-memory AccountRepository whose deltas
// behave like the real SQL increments, so aggregate-level assertions in
// service tests exercise the actual arithmetic.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*entities.Account

	// Function hooks for custom behavior
	UpsertFunc            func(ctx context.Context, id string, activityAt time.Time) error
	ApplyDonorDeltaFunc   func(ctx context.Context, id string, delta repositories.DonorDelta) error
	GetAllPaginatedFunc   func(ctx context.Context, limit, offset int, sortBy, sortOrder string) ([]entities.Account, int64, error)

	// Call tracking
	Calls []MockCall
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*entities.Account),
		Calls:    make([]MockCall, 0),
	}
}

func (m *MockAccountRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockAccountRepository) Upsert(ctx context.Context, id string, activityAt time.Time) error {
	m.record("Upsert", id, activityAt)

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, id, activityAt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.accounts[id]; ok {
		existing.LastActivityAt = activityAt
		return nil
	}
	m.accounts[id] = &entities.Account{
		ID:             id,
		FirstSeenAt:    activityAt,
		LastActivityAt: activityAt,
	}
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	m.record("GetByID", id)

	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (m *MockAccountRepository) GetAllPaginated(ctx context.Context, limit, offset int, sortBy, sortOrder string) ([]entities.Account, int64, error) {
	m.record("GetAllPaginated", limit, offset, sortBy, sortOrder)

	if m.GetAllPaginatedFunc != nil {
		return m.GetAllPaginatedFunc(ctx, limit, offset, sortBy, sortOrder)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]entities.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		all = append(all, *a)
	}

	sort.Slice(all, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "total_donated_usd":
			less = all[i].TotalDonatedUsd.LessThan(all[j].TotalDonatedUsd)
		case "total_received_usd":
			less = all[i].TotalReceivedUsd.LessThan(all[j].TotalReceivedUsd)
		case "last_activity_at":
			less = all[i].LastActivityAt.Before(all[j].LastActivityAt)
		default:
			less = all[i].ID < all[j].ID
		}
		if sortOrder == "desc" {
			return !less && all[i].ID != all[j].ID
		}
		return less
	})

	total := int64(len(all))
	if offset > len(all) {
		return []entities.Account{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *MockAccountRepository) ApplyDonorDelta(ctx context.Context, id string, delta repositories.DonorDelta) error {
	m.record("ApplyDonorDelta", id, delta)

	if m.ApplyDonorDeltaFunc != nil {
		return m.ApplyDonorDeltaFunc(ctx, id, delta)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("account %s not found", id)
	}

	account.TotalDonatedUsd = account.TotalDonatedUsd.Add(delta.AmountUsd)
	account.TotalDonatedNear = account.TotalDonatedNear.Add(delta.AmountNear)
	account.DonationsSentCount++
	account.ReferralFeesPaidUsd = account.ReferralFeesPaidUsd.Add(delta.ReferralFeePaidUsd)

	switch delta.Bucket {
	case entities.BucketDirect:
		account.DirectDonatedUsd = account.DirectDonatedUsd.Add(delta.AmountUsd)
		account.DirectSentCount++
	case entities.BucketPot:
		account.PotDonatedUsd = account.PotDonatedUsd.Add(delta.AmountUsd)
		account.PotSentCount++
	case entities.BucketCampaign:
		account.CampaignDonatedUsd = account.CampaignDonatedUsd.Add(delta.AmountUsd)
		account.CampaignSentCount++
	}

	if account.FirstDonationDate == nil {
		t := delta.DonatedAt
		account.FirstDonationDate = &t
	}
	t := delta.DonatedAt
	account.LastDonationDate = &t
	account.LastActivityAt = delta.DonatedAt

	return nil
}

func (m *MockAccountRepository) ApplyRecipientDelta(ctx context.Context, id string, delta repositories.RecipientDelta) error {
	m.record("ApplyRecipientDelta", id, delta)

	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("account %s not found", id)
	}

	account.TotalReceivedUsd = account.TotalReceivedUsd.Add(delta.AmountUsd)
	account.TotalReceivedNear = account.TotalReceivedNear.Add(delta.AmountNear)
	account.DonationsReceivedCount++

	switch delta.Bucket {
	case entities.BucketDirect:
		account.DirectReceivedUsd = account.DirectReceivedUsd.Add(delta.AmountUsd)
		account.DirectReceivedCount++
	case entities.BucketPot:
		account.PotReceivedUsd = account.PotReceivedUsd.Add(delta.AmountUsd)
		account.PotReceivedCount++
	case entities.BucketCampaign:
		account.CampaignReceivedUsd = account.CampaignReceivedUsd.Add(delta.AmountUsd)
		account.CampaignReceivedCount++
	}

	account.LastActivityAt = delta.ReceivedAt

	return nil
}

func (m *MockAccountRepository) AddReferralFeesEarned(ctx context.Context, id string, feeUsd decimal.Decimal) error {
	m.record("AddReferralFeesEarned", id, feeUsd)

	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("account %s not found", id)
	}
	account.ReferralFeesEarnedUsd = account.ReferralFeesEarnedUsd.Add(feeUsd)
	return nil
}

func (m *MockAccountRepository) CountDonors(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, a := range m.accounts {
		if a.DonationsSentCount > 0 {
			count++
		}
	}
	return count, nil
}

func (m *MockAccountRepository) CountRecipients(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, a := range m.accounts {
		if a.DonationsReceivedCount > 0 {
			count++
		}
	}
	return count, nil
}

// MockDonationRepository is an in-memory DonationRepository with real
// duplicate detection on transaction hash
type MockDonationRepository struct {
	mu        sync.RWMutex
	donations []entities.Donation
	byHash    map[string]bool
	nextID    int64

	// Function hooks for custom behavior
	InsertFunc func(ctx context.Context, donation *entities.Donation) error

	// Call tracking
	Calls []MockCall
}

func NewMockDonationRepository() *MockDonationRepository {
	return &MockDonationRepository{
		donations: make([]entities.Donation, 0),
		byHash:    make(map[string]bool),
		nextID:    1,
		Calls:     make([]MockCall, 0),
	}
}

func (m *MockDonationRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockDonationRepository) Insert(ctx context.Context, donation *entities.Donation) error {
	m.record("Insert", donation.TransactionHash)

	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, donation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byHash[donation.TransactionHash] {
		return repositories.ErrDuplicateTransaction
	}

	donation.ID = m.nextID
	m.nextID++
	m.byHash[donation.TransactionHash] = true
	m.donations = append(m.donations, *donation)
	return nil
}

// Donations returns a snapshot of everything inserted so far
func (m *MockDonationRepository) Donations() []entities.Donation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.Donation, len(m.donations))
	copy(out, m.donations)
	return out
}

func (m *MockDonationRepository) matches(d *entities.Donation, filter entities.DonationFilter) bool {
	if filter.DonorID != nil && d.DonorID != *filter.DonorID {
		return false
	}
	if filter.RecipientID != nil && (d.RecipientID == nil || *d.RecipientID != *filter.RecipientID) {
		return false
	}
	if filter.Type != nil && d.Type != *filter.Type {
		return false
	}
	if filter.FromTime != nil && d.DonatedAt.Before(*filter.FromTime) {
		return false
	}
	if filter.ToTime != nil && d.DonatedAt.After(*filter.ToTime) {
		return false
	}
	if filter.MinAmountUsd != nil && d.AmountUsd.LessThan(*filter.MinAmountUsd) {
		return false
	}
	if filter.MaxAmountUsd != nil && d.AmountUsd.GreaterThan(*filter.MaxAmountUsd) {
		return false
	}
	return true
}

func (m *MockDonationRepository) GetByFilter(ctx context.Context, filter entities.DonationFilter) ([]entities.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.Donation, 0)
	for i := range m.donations {
		if m.matches(&m.donations[i], filter) {
			result = append(result, m.donations[i])
		}
	}

	sort.Slice(result, func(i, j int) bool {
		var less bool
		switch filter.SortBy {
		case "amount_usd":
			less = result[i].AmountUsd.LessThan(result[j].AmountUsd)
		case "amount_near":
			less = result[i].AmountNear.LessThan(result[j].AmountNear)
		default:
			less = result[i].DonatedAt.Before(result[j].DonatedAt)
		}
		if filter.SortOrder == "asc" {
			return less
		}
		return !less
	})

	start := filter.Offset
	if start > len(result) {
		return []entities.Donation{}, nil
	}
	end := len(result)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return result[start:end], nil
}

func (m *MockDonationRepository) GetCount(ctx context.Context, filter entities.DonationFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for i := range m.donations {
		if m.matches(&m.donations[i], filter) {
			count++
		}
	}
	return count, nil
}

func (m *MockDonationRepository) CountByReferrer(ctx context.Context, referrerID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for i := range m.donations {
		if m.donations[i].ReferrerID != nil && *m.donations[i].ReferrerID == referrerID {
			count++
		}
	}
	return count, nil
}

func (m *MockDonationRepository) GetGlobalStats(ctx context.Context) (*repositories.GlobalStatsResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := &repositories.GlobalStatsResult{
		AmountByType: make(map[entities.DonationType]decimal.Decimal),
	}
	for i := range m.donations {
		d := &m.donations[i]
		result.TotalDonationsUsd = result.TotalDonationsUsd.Add(d.AmountUsd)
		result.TotalDonationsNear = result.TotalDonationsNear.Add(d.AmountNear)
		result.TotalCount++
		result.TotalReferralFees = result.TotalReferralFees.Add(d.ReferrerFeeUsd)
		result.AmountByType[d.Type] = result.AmountByType[d.Type].Add(d.AmountUsd)
	}
	return result, nil
}

// MockPayoutRepository is an in-memory PayoutRepository with real
// duplicate detection on transaction hash
type MockPayoutRepository struct {
	mu      sync.RWMutex
	payouts []entities.PotPayout
	byHash  map[string]bool
	nextID  int64

	// Function hooks for custom behavior
	InsertFunc func(ctx context.Context, payout *entities.PotPayout) error

	// Call tracking
	Calls []MockCall
}

func NewMockPayoutRepository() *MockPayoutRepository {
	return &MockPayoutRepository{
		payouts: make([]entities.PotPayout, 0),
		byHash:  make(map[string]bool),
		nextID:  1,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockPayoutRepository) Insert(ctx context.Context, payout *entities.PotPayout) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Insert", Args: []interface{}{payout.TransactionHash}})
	m.mu.Unlock()

	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, payout)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byHash[payout.TransactionHash] {
		return repositories.ErrDuplicateTransaction
	}

	payout.ID = m.nextID
	m.nextID++
	m.byHash[payout.TransactionHash] = true
	m.payouts = append(m.payouts, *payout)
	return nil
}

func (m *MockPayoutRepository) GetByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]entities.PotPayout, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entities.PotPayout, 0)
	for i := range m.payouts {
		if m.payouts[i].RecipientID == recipientID {
			result = append(result, m.payouts[i])
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PaidAt.After(result[j].PaidAt)
	})

	total := int64(len(result))
	if offset > len(result) {
		return []entities.PotPayout{}, total, nil
	}
	end := len(result)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return result[offset:end], total, nil
}

// Payouts returns a snapshot of everything inserted so far
func (m *MockPayoutRepository) Payouts() []entities.PotPayout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.PotPayout, len(m.payouts))
	copy(out, m.payouts)
	return out
}

// MockPotRepository is an in-memory PotRepository
type MockPotRepository struct {
	mu   sync.RWMutex
	Pots map[string]time.Time
}

func NewMockPotRepository() *MockPotRepository {
	return &MockPotRepository{Pots: make(map[string]time.Time)}
}

func (m *MockPotRepository) Upsert(ctx context.Context, id string, touchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pots[id] = touchedAt
	return nil
}

// MockCampaignRepository is an in-memory CampaignRepository
type MockCampaignRepository struct {
	mu        sync.RWMutex
	Campaigns map[string]time.Time
}

func NewMockCampaignRepository() *MockCampaignRepository {
	return &MockCampaignRepository{Campaigns: make(map[string]time.Time)}
}

func (m *MockCampaignRepository) Upsert(ctx context.Context, id string, touchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Campaigns[id] = touchedAt
	return nil
}

// MockCheckpointRepository is an in-memory CheckpointRepository
type MockCheckpointRepository struct {
	mu         sync.RWMutex
	checkpoint *entities.Checkpoint

	// Function hooks for custom behavior
	SaveFunc func(ctx context.Context, checkpoint *entities.Checkpoint) error

	// Call tracking
	Calls []MockCall
}

func NewMockCheckpointRepository() *MockCheckpointRepository {
	return &MockCheckpointRepository{Calls: make([]MockCall, 0)}
}

func (m *MockCheckpointRepository) Get(ctx context.Context) (*entities.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.checkpoint == nil {
		return nil, nil
	}
	copied := *m.checkpoint
	return &copied, nil
}

func (m *MockCheckpointRepository) Save(ctx context.Context, checkpoint *entities.Checkpoint) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Save", Args: []interface{}{checkpoint.LastBlockHeight}})
	m.mu.Unlock()

	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, checkpoint)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *checkpoint
	copied.ID = entities.CheckpointID
	m.checkpoint = &copied
	return nil
}

func (m *MockCheckpointRepository) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: "Delete"})
	m.checkpoint = nil
	return nil
}

// SetCheckpoint seeds the stored checkpoint directly
func (m *MockCheckpointRepository) SetCheckpoint(cp *entities.Checkpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoint = cp
}

// SavedHeights returns every height passed to Save, in order
func (m *MockCheckpointRepository) SavedHeights() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	heights := make([]uint64, 0)
	for _, c := range m.Calls {
		if c.Method == "Save" {
			heights = append(heights, c.Args[0].(uint64))
		}
	}
	return heights
}

// MockPriceRepository is an in-memory PriceRepository
type MockPriceRepository struct {
	mu     sync.RWMutex
	prices []entities.TokenPrice

	// Function hooks for custom behavior
	GetLatestFunc   func(ctx context.Context, tokenID string) (*entities.TokenPrice, error)
	GetLatestAtFunc func(ctx context.Context, tokenID string, at time.Time) (*entities.TokenPrice, error)

	// Call tracking
	Calls []MockCall
}

func NewMockPriceRepository() *MockPriceRepository {
	return &MockPriceRepository{
		prices: make([]entities.TokenPrice, 0),
		Calls:  make([]MockCall, 0),
	}
}

func (m *MockPriceRepository) Save(ctx context.Context, price *entities.TokenPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Method: "Save", Args: []interface{}{price.TokenID, price.Timestamp}})

	for i := range m.prices {
		if m.prices[i].TokenID == price.TokenID && m.prices[i].Timestamp.Equal(price.Timestamp) {
			m.prices[i].PriceUsd = price.PriceUsd
			return nil
		}
	}
	m.prices = append(m.prices, *price)
	return nil
}

func (m *MockPriceRepository) GetLatest(ctx context.Context, tokenID string) (*entities.TokenPrice, error) {
	if m.GetLatestFunc != nil {
		return m.GetLatestFunc(ctx, tokenID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *entities.TokenPrice
	for i := range m.prices {
		if m.prices[i].TokenID != tokenID {
			continue
		}
		if latest == nil || m.prices[i].Timestamp.After(latest.Timestamp) {
			latest = &m.prices[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *MockPriceRepository) GetLatestAt(ctx context.Context, tokenID string, at time.Time) (*entities.TokenPrice, error) {
	if m.GetLatestAtFunc != nil {
		return m.GetLatestAtFunc(ctx, tokenID, at)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *entities.TokenPrice
	for i := range m.prices {
		if m.prices[i].TokenID != tokenID || m.prices[i].Timestamp.After(at) {
			continue
		}
		if latest == nil || m.prices[i].Timestamp.After(latest.Timestamp) {
			latest = &m.prices[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// Prices returns a snapshot of every saved observation
func (m *MockPriceRepository) Prices() []entities.TokenPrice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.TokenPrice, len(m.prices))
	copy(out, m.prices)
	return out
}

// MockChainClient serves canned blocks and chunks, standing in for the
// RPC client in indexer tests
type MockChainClient struct {
	mu     sync.RWMutex
	Head   uint64
	Blocks map[uint64]*near.Block
	Chunks map[string]*near.ChunkDetails

	// Function hooks for custom behavior
	LatestBlockFunc   func(ctx context.Context) (*near.Block, error)
	BlockByHeightFunc func(ctx context.Context, height uint64) (*near.Block, error)
	ChunkFunc         func(ctx context.Context, chunkHash string) (*near.ChunkDetails, error)
}

func NewMockChainClient() *MockChainClient {
	return &MockChainClient{
		Blocks: make(map[uint64]*near.Block),
		Chunks: make(map[string]*near.ChunkDetails),
	}
}

func (m *MockChainClient) LatestBlock(ctx context.Context) (*near.Block, error) {
	if m.LatestBlockFunc != nil {
		return m.LatestBlockFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	block, ok := m.Blocks[m.Head]
	if !ok {
		return nil, fmt.Errorf("no block at head height %d", m.Head)
	}
	return block, nil
}

func (m *MockChainClient) BlockByHeight(ctx context.Context, height uint64) (*near.Block, error) {
	if m.BlockByHeightFunc != nil {
		return m.BlockByHeightFunc(ctx, height)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	block, ok := m.Blocks[height]
	if !ok {
		return nil, fmt.Errorf("no block at height %d", height)
	}
	return block, nil
}

func (m *MockChainClient) Chunk(ctx context.Context, chunkHash string) (*near.ChunkDetails, error) {
	if m.ChunkFunc != nil {
		return m.ChunkFunc(ctx, chunkHash)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	chunk, ok := m.Chunks[chunkHash]
	if !ok {
		return nil, errors.New("unknown chunk " + chunkHash)
	}
	return chunk, nil
}

// MockPriceOracle converts amounts at a fixed price, making USD
// assertions in indexer tests exact
type MockPriceOracle struct {
	Price decimal.Decimal

	// Function hooks for custom behavior
	HistoricalPriceFunc func(ctx context.Context, at time.Time) decimal.Decimal
}

func NewMockPriceOracle(price string) *MockPriceOracle {
	return &MockPriceOracle{Price: decimal.RequireFromString(price)}
}

func (m *MockPriceOracle) NearAmount(yocto string) decimal.Decimal {
	if yocto == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(yocto)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-24)
}

func (m *MockPriceOracle) CurrentPrice(ctx context.Context) decimal.Decimal {
	return m.Price
}

func (m *MockPriceOracle) HistoricalPrice(ctx context.Context, at time.Time) decimal.Decimal {
	if m.HistoricalPriceFunc != nil {
		return m.HistoricalPriceFunc(ctx, at)
	}
	return m.Price
}

func (m *MockPriceOracle) UsdValueAt(ctx context.Context, yocto string, at time.Time) (decimal.Decimal, decimal.Decimal) {
	nearAmount := m.NearAmount(yocto)
	if nearAmount.IsZero() {
		return nearAmount, decimal.Zero
	}
	return nearAmount, nearAmount.Mul(m.HistoricalPrice(ctx, at))
}

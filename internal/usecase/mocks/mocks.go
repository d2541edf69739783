package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc            func(ctx context.Context, account *domain.Account) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	SetActiveFunc         func(ctx context.Context, id string, active bool, updatedAt time.Time) error
	ListFunc              func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	BalanceFunc           func(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, decimal.Decimal, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Seed registers an account in the in-memory store.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if acc, ok := m.accounts[id]; ok {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Active = active
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func (m *MockAccountRepository) Balance(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, decimal.Decimal, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, accountID, at)
	}
	return decimal.Zero, decimal.Zero, nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	CreateFunc               func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	GetByIDFunc              func(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdateFunc     func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error)
	MarkReversedFunc         func(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error
	ListByAccountFunc        func(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error)
	ListEntriesByAccountFunc func(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.Transaction),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[txn.ID] = txn
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if txn, ok := m.transactions[id]; ok {
		return txn, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) MarkReversed(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	if m.MarkReversedFunc != nil {
		return m.MarkReversedFunc(ctx, tx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn, ok := m.transactions[id]; ok {
		txn.Reversed = true
	}
	return nil
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	return nil, nil
}

func (m *MockTransactionRepository) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	if m.ListEntriesByAccountFunc != nil {
		return m.ListEntriesByAccountFunc(ctx, accountID, limit, offset)
	}
	return nil, nil
}

// MockPositionRepository is a mock implementation of PositionRepository.
type MockPositionRepository struct {
	mu        sync.RWMutex
	positions map[string]*domain.Position

	CreateFunc                  func(ctx context.Context, tx usecase.Transaction, position *domain.Position) error
	GetByIDFunc                 func(ctx context.Context, id string) (*domain.Position, error)
	GetByIDForUpdateFunc        func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Position, error)
	GetByAccountSecurityFunc    func(ctx context.Context, accountID, securityID string) (*domain.Position, error)
	ListBySecurityForUpdateFunc func(ctx context.Context, tx usecase.Transaction, securityID string) ([]*domain.Position, error)
	SetFrozenFunc               func(ctx context.Context, id string, frozen bool, updatedAt time.Time) error
	UpdateSecurityFunc          func(ctx context.Context, tx usecase.Transaction, id, securityID string, updatedAt time.Time) error
	ListByAccountFunc           func(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error)
}

func NewMockPositionRepository() *MockPositionRepository {
	return &MockPositionRepository{
		positions: make(map[string]*domain.Position),
	}
}

// Seed registers a position in the in-memory store.
func (m *MockPositionRepository) Seed(position *domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[position.ID] = position
}

func (m *MockPositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, position)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[position.ID] = position
	return nil
}

func (m *MockPositionRepository) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.positions[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPositionNotFound
}

func (m *MockPositionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Position, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockPositionRepository) GetByAccountSecurity(ctx context.Context, accountID, securityID string) (*domain.Position, error) {
	if m.GetByAccountSecurityFunc != nil {
		return m.GetByAccountSecurityFunc(ctx, accountID, securityID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.positions {
		if p.AccountID == accountID && p.SecurityID == securityID {
			return p, nil
		}
	}
	return nil, domain.ErrPositionNotFound
}

func (m *MockPositionRepository) ListBySecurityForUpdate(ctx context.Context, tx usecase.Transaction, securityID string) ([]*domain.Position, error) {
	if m.ListBySecurityForUpdateFunc != nil {
		return m.ListBySecurityForUpdateFunc(ctx, tx, securityID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var positions []*domain.Position
	for _, p := range m.positions {
		if p.SecurityID == securityID {
			positions = append(positions, p)
		}
	}
	return positions, nil
}

func (m *MockPositionRepository) SetFrozen(ctx context.Context, id string, frozen bool, updatedAt time.Time) error {
	if m.SetFrozenFunc != nil {
		return m.SetFrozenFunc(ctx, id, frozen, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.positions[id]; ok {
		p.Frozen = frozen
		p.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockPositionRepository) UpdateSecurity(ctx context.Context, tx usecase.Transaction, id, securityID string, updatedAt time.Time) error {
	if m.UpdateSecurityFunc != nil {
		return m.UpdateSecurityFunc(ctx, tx, id, securityID, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.positions[id]; ok {
		p.SecurityID = securityID
		p.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockPositionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var positions []*domain.Position
	for _, p := range m.positions {
		if p.AccountID == accountID {
			positions = append(positions, p)
		}
	}
	return positions, nil
}

// MockLotRepository is a mock implementation of LotRepository backed by an
// in-memory lot table, so multi-step flows (reduce, rewrite, wash-sale
// basis) behave like the real store.
type MockLotRepository struct {
	mu   sync.RWMutex
	lots map[string]*domain.Lot

	CreateFunc                      func(ctx context.Context, tx usecase.Transaction, lot *domain.Lot) error
	GetByIDFunc                     func(ctx context.Context, id string) (*domain.Lot, error)
	ListByPositionFunc              func(ctx context.Context, positionID string) ([]*domain.Lot, error)
	ListOpenByPositionForUpdateFunc func(ctx context.Context, tx usecase.Transaction, positionID string) ([]*domain.Lot, error)
	ReduceFunc                      func(ctx context.Context, tx usecase.Transaction, lotID string, quantity decimal.Decimal, updatedAt time.Time) error
	RewriteFunc                     func(ctx context.Context, tx usecase.Transaction, lot *domain.Lot) error
	AddWashSaleBasisFunc            func(ctx context.Context, tx usecase.Transaction, lotID string, increase decimal.Decimal, updatedAt time.Time) error
	ListWashSaleCandidatesFunc      func(ctx context.Context, tx usecase.Transaction, securityID, ownerID string, from, to time.Time, excludeLotIDs []string) ([]*domain.Lot, error)
}

func NewMockLotRepository() *MockLotRepository {
	return &MockLotRepository{
		lots: make(map[string]*domain.Lot),
	}
}

// Seed registers a lot in the in-memory store.
func (m *MockLotRepository) Seed(lot *domain.Lot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lots[lot.ID] = lot
}

func (m *MockLotRepository) Create(ctx context.Context, tx usecase.Transaction, lot *domain.Lot) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, lot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lots[lot.ID] = lot
	return nil
}

func (m *MockLotRepository) GetByID(ctx context.Context, id string) (*domain.Lot, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if lot, ok := m.lots[id]; ok {
		return lot, nil
	}
	return nil, domain.ErrLotNotFound
}

func (m *MockLotRepository) ListByPosition(ctx context.Context, positionID string) ([]*domain.Lot, error) {
	if m.ListByPositionFunc != nil {
		return m.ListByPositionFunc(ctx, positionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var lots []*domain.Lot
	for _, lot := range m.lots {
		if lot.PositionID == positionID {
			lots = append(lots, lot)
		}
	}
	return lots, nil
}

func (m *MockLotRepository) ListOpenByPositionForUpdate(ctx context.Context, tx usecase.Transaction, positionID string) ([]*domain.Lot, error) {
	if m.ListOpenByPositionForUpdateFunc != nil {
		return m.ListOpenByPositionForUpdateFunc(ctx, tx, positionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var lots []*domain.Lot
	for _, lot := range m.lots {
		if lot.PositionID == positionID && lot.Open() {
			lots = append(lots, lot)
		}
	}
	return lots, nil
}

func (m *MockLotRepository) Reduce(ctx context.Context, tx usecase.Transaction, lotID string, quantity decimal.Decimal, updatedAt time.Time) error {
	if m.ReduceFunc != nil {
		return m.ReduceFunc(ctx, tx, lotID, quantity, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[lotID]
	if !ok {
		return domain.ErrLotNotFound
	}
	lot.RemainingQuantity = lot.RemainingQuantity.Sub(quantity)
	lot.UpdatedAt = updatedAt
	return nil
}

func (m *MockLotRepository) Rewrite(ctx context.Context, tx usecase.Transaction, lot *domain.Lot) error {
	if m.RewriteFunc != nil {
		return m.RewriteFunc(ctx, tx, lot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lots[lot.ID]; !ok {
		return domain.ErrLotNotFound
	}
	m.lots[lot.ID] = lot
	return nil
}

func (m *MockLotRepository) AddWashSaleBasis(ctx context.Context, tx usecase.Transaction, lotID string, increase decimal.Decimal, updatedAt time.Time) error {
	if m.AddWashSaleBasisFunc != nil {
		return m.AddWashSaleBasisFunc(ctx, tx, lotID, increase, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[lotID]
	if !ok {
		return domain.ErrLotNotFound
	}
	if lot.RemainingQuantity.IsPositive() {
		lot.CostPerUnit = lot.CostPerUnit.Add(increase.Div(lot.RemainingQuantity))
	}
	lot.UpdatedAt = updatedAt
	return nil
}

func (m *MockLotRepository) ListWashSaleCandidates(ctx context.Context, tx usecase.Transaction, securityID, ownerID string, from, to time.Time, excludeLotIDs []string) ([]*domain.Lot, error) {
	if m.ListWashSaleCandidatesFunc != nil {
		return m.ListWashSaleCandidatesFunc(ctx, tx, securityID, ownerID, from, to, excludeLotIDs)
	}
	return nil, nil
}

// MockDispositionRepository is a mock implementation of DispositionRepository.
type MockDispositionRepository struct {
	mu           sync.RWMutex
	dispositions []*domain.Disposition

	CreateBatchFunc     func(ctx context.Context, tx usecase.Transaction, transactionID string, dispositions []domain.Disposition) error
	ListByAccountFunc   func(ctx context.Context, accountID string, from, to time.Time) ([]*domain.Disposition, error)
	ListByLotFunc       func(ctx context.Context, lotID string) ([]*domain.Disposition, error)
	SumReducedByLotFunc func(ctx context.Context, positionID string) (map[string]decimal.Decimal, error)
}

func NewMockDispositionRepository() *MockDispositionRepository {
	return &MockDispositionRepository{}
}

// Stored returns everything written through CreateBatch.
func (m *MockDispositionRepository) Stored() []*domain.Disposition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dispositions
}

func (m *MockDispositionRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, transactionID string, dispositions []domain.Disposition) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tx, transactionID, dispositions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range dispositions {
		d := dispositions[i]
		m.dispositions = append(m.dispositions, &d)
	}
	return nil
}

func (m *MockDispositionRepository) ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]*domain.Disposition, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, from, to)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dispositions, nil
}

func (m *MockDispositionRepository) ListByLot(ctx context.Context, lotID string) ([]*domain.Disposition, error) {
	if m.ListByLotFunc != nil {
		return m.ListByLotFunc(ctx, lotID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Disposition
	for _, d := range m.dispositions {
		if d.LotID == lotID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockDispositionRepository) SumReducedByLot(ctx context.Context, positionID string) (map[string]decimal.Decimal, error) {
	if m.SumReducedByLotFunc != nil {
		return m.SumReducedByLotFunc(ctx, positionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sums := make(map[string]decimal.Decimal)
	for _, d := range m.dispositions {
		sums[d.LotID] = sums[d.LotID].Add(d.Quantity)
	}
	return sums, nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	CheckConsistencyFunc func(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	if m.CheckConsistencyFunc != nil {
		return m.CheckConsistencyFunc(ctx)
	}
	return decimal.Zero, decimal.Zero, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Events returns everything recorded so far.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var unpublished []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			unpublished = append(unpublished, e)
		}
	}
	return unpublished, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog

	CreateFunc   func(ctx context.Context, log *domain.AuditLog) error
	CreateTxFunc func(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

// Logs returns everything recorded so far.
func (m *MockAuditRepository) Logs() []*domain.AuditLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logs
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, log)
	}
	return m.Create(ctx, log)
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logs, nil
}

func (m *MockAuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditLog
	for _, l := range m.logs {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			out = append(out, l)
		}
	}
	return out, nil
}

// MockTransaction is a mock database transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed  bool
	RolledBack bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockTransactionManager is a mock transaction manager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	LastTx *MockTransaction
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.LastTx = &MockTransaction{}
	return m.LastTx, nil
}

// MockIDGenerator generates predictable sequential IDs.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "id-" + strconv.Itoa(m.counter)
}

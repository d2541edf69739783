package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	accountRepo AccountRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, auditRepo AuditRepository, idGen IDGenerator, metrics *metrics.Metrics) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Name    string
	Type    domain.AccountType
	OwnerID string
}

// CreateAccount creates a new account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}
	if !domain.ValidAccountType(input.Type) {
		return nil, domain.ErrInvalidAccountType
	}

	now := time.Now().UTC()

	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Name:      input.Name,
		Type:      input.Type,
		OwnerID:   input.OwnerID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}

	uc.audit(ctx, account.ID, domain.AuditActionAccountCreate, nil, domain.JSON{
		"name": account.Name,
		"type": string(account.Type),
	})

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// DeactivateAccount marks an account inactive. Inactive accounts reject new
// postings; their history stays queryable.
func (uc *AccountUseCase) DeactivateAccount(ctx context.Context, id string) error {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.accountRepo.SetActive(ctx, id, false, time.Now().UTC()); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.AccountOperations.WithLabelValues("deactivate").Inc()
	}

	uc.audit(ctx, id, domain.AuditActionAccountDeactivate,
		domain.JSON{"active": account.Active}, domain.JSON{"active": false})

	return nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return uc.accountRepo.List(ctx, limit, offset)
}

// AccountBalance is the derived balance of one account as of a point in time.
type AccountBalance struct {
	AccountID string
	Debits    decimal.Decimal
	Credits   decimal.Decimal
	Net       decimal.Decimal
	AsOf      time.Time
}

// GetBalance derives the account balance from its entries. Balances are
// never stored; the entry history is the single source of truth.
func (uc *AccountUseCase) GetBalance(ctx context.Context, accountID string, at time.Time) (*AccountBalance, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}

	debits, credits, err := uc.accountRepo.Balance(ctx, accountID, at)
	if err != nil {
		return nil, err
	}

	net := debits.Sub(credits)
	switch account.Type {
	case domain.AccountTypeLiability, domain.AccountTypeEquity, domain.AccountTypeIncome:
		net = credits.Sub(debits)
	}

	return &AccountBalance{
		AccountID: accountID,
		Debits:    debits,
		Credits:   credits,
		Net:       net,
		AsOf:      at,
	}, nil
}

func (uc *AccountUseCase) audit(ctx context.Context, accountID string, action domain.AuditAction, before, after domain.JSON) {
	_ = uc.auditRepo.Create(ctx, &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		Action:       string(action),
		ResourceType: "account",
		ResourceID:   accountID,
		BeforeState:  before,
		AfterState:   after,
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	})
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerbus/ledgerbus/internal/events"
	"github.com/ledgerbus/ledgerbus/internal/profile"
)

// Service is the transfer engine. It validates requests, mutates balances
// through the store and emits one event per committed mutation. Events go
// out after the commit; their delivery never affects the operation outcome.
type Service struct {
	store     Store
	numbers   *NumberGenerator
	publisher events.Publisher
	profiles  profile.Client
	logger    *slog.Logger
}

// NewService wires the transfer engine.
func NewService(store Store, numbers *NumberGenerator, publisher events.Publisher, profiles profile.Client, logger *slog.Logger) *Service {
	return &Service{store: store, numbers: numbers, publisher: publisher, profiles: profiles, logger: logger}
}

// CreateAccountInput captures data required to open an account. Pointer
// fields fall back to type-specific defaults when nil.
type CreateAccountInput struct {
	OwnerID        string
	Name           string
	Type           AccountType
	InitialDeposit int64
	OverdraftLimit *int64
	InterestRate   *decimal.Decimal
}

// AccountView is an account enriched with its owner profile when the lookup
// succeeded. Owner is nil when the profile service was unavailable.
type AccountView struct {
	Account
	Owner *profile.Profile
}

// CreateAccount opens an account with a freshly issued number and emits an
// account.created event.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	if input.OwnerID == "" {
		return Account{}, fmt.Errorf("owner id is required")
	}
	if !ValidType(input.Type) {
		return Account{}, fmt.Errorf("unsupported account type %q", input.Type)
	}
	if input.InitialDeposit < 0 {
		return Account{}, ErrInvalidAmount
	}

	number, err := s.numbers.Generate(ctx)
	if err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	account := Account{
		ID:        uuid.NewString(),
		Number:    number,
		Type:      input.Type,
		Balance:   input.InitialDeposit,
		OwnerID:   input.OwnerID,
		Name:      input.Name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch input.Type {
	case TypeChecking:
		if input.OverdraftLimit != nil {
			if *input.OverdraftLimit < 0 {
				return Account{}, fmt.Errorf("overdraft limit must not be negative")
			}
			account.OverdraftLimit = *input.OverdraftLimit
		}
	case TypeSavings:
		account.InterestRate = DefaultInterestRate
		if input.InterestRate != nil {
			account.InterestRate = *input.InterestRate
		}
	}

	if err := s.store.Create(ctx, account); err != nil {
		return Account{}, err
	}

	s.publisher.Publish(ctx, events.Event{
		Kind:             events.KindAccountCreated,
		AccountID:        account.ID,
		AccountNumber:    account.Number,
		OwnerID:          account.OwnerID,
		ResultingBalance: account.Balance,
	})

	return account, nil
}

// Deposit credits the account and emits a ledger.deposit event.
func (s *Service) Deposit(ctx context.Context, number string, amount int64) (Account, error) {
	if amount <= 0 {
		return Account{}, ErrInvalidAmount
	}

	account, err := s.store.Deposit(ctx, number, amount)
	if err != nil {
		return Account{}, err
	}

	s.publisher.Publish(ctx, events.Event{
		Kind:             events.KindDeposit,
		AccountID:        account.ID,
		AccountNumber:    account.Number,
		OwnerID:          account.OwnerID,
		Amount:           amount,
		ResultingBalance: account.Balance,
	})

	return account, nil
}

// Withdraw debits the account after the available-funds check and emits a
// ledger.withdrawal event. Overdraft applies to checking accounts only.
func (s *Service) Withdraw(ctx context.Context, number string, amount int64) (Account, error) {
	if amount <= 0 {
		return Account{}, ErrInvalidAmount
	}

	account, err := s.store.Withdraw(ctx, number, amount)
	if err != nil {
		return Account{}, err
	}

	s.publisher.Publish(ctx, events.Event{
		Kind:             events.KindWithdrawal,
		AccountID:        account.ID,
		AccountNumber:    account.Number,
		OwnerID:          account.OwnerID,
		Amount:           amount,
		ResultingBalance: account.Balance,
	})

	return account, nil
}

// Transfer moves funds between two accounts as one atomic unit and emits a
// single ledger.transfer event referencing both.
func (s *Service) Transfer(ctx context.Context, fromNumber, toNumber string, amount int64) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if fromNumber == toNumber {
		return TransferResult{}, ErrSelfTransfer
	}

	result, err := s.store.Transfer(ctx, fromNumber, toNumber, amount)
	if err != nil {
		return TransferResult{}, err
	}

	s.publisher.Publish(ctx, events.Event{
		Kind:               events.KindTransfer,
		AccountID:          result.From.ID,
		AccountNumber:      result.From.Number,
		CounterpartyID:     result.To.ID,
		CounterpartyNumber: result.To.Number,
		OwnerID:            result.From.OwnerID,
		Amount:             amount,
		ResultingBalance:   result.From.Balance,
	})

	return result, nil
}

// Deactivate closes the account to further mutations and emits an
// account.deactivated event. Rows are never deleted.
func (s *Service) Deactivate(ctx context.Context, id string) (Account, error) {
	account, err := s.store.Deactivate(ctx, id)
	if err != nil {
		return Account{}, err
	}

	s.publisher.Publish(ctx, events.Event{
		Kind:             events.KindAccountDeactivated,
		AccountID:        account.ID,
		AccountNumber:    account.Number,
		OwnerID:          account.OwnerID,
		ResultingBalance: account.Balance,
	})

	return account, nil
}

// Get returns the account enriched with its owner profile when available.
func (s *Service) Get(ctx context.Context, id string) (AccountView, error) {
	account, err := s.store.Get(ctx, id)
	if err != nil {
		return AccountView{}, err
	}
	return s.enrich(ctx, account), nil
}

// GetByNumber returns the account enriched with its owner profile when available.
func (s *Service) GetByNumber(ctx context.Context, number string) (AccountView, error) {
	account, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		return AccountView{}, err
	}
	return s.enrich(ctx, account), nil
}

// ListByOwner returns all accounts for an owner.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Account, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func (s *Service) enrich(ctx context.Context, account Account) AccountView {
	view := AccountView{Account: account}
	owner, err := s.profiles.GetOwner(ctx, account.OwnerID)
	if err != nil {
		if !errors.Is(err, profile.ErrUnavailable) {
			s.logger.Warn("owner lookup failed", "owner_id", account.OwnerID, "error", err)
		}
		return view
	}
	view.Owner = &owner
	return view
}

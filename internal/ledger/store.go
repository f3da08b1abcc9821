package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInvalidAmount occurs when an operation amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountClosed indicates a mutating operation hit a deactivated account.
	ErrAccountClosed = errors.New("account is closed")

	// ErrInsufficientFunds occurs when a debit exceeds available funds,
	// overdraft included.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer indicates source and destination are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")

	// ErrDuplicateNumber indicates the account number is already taken.
	ErrDuplicateNumber = errors.New("account number already exists")

	// ErrConflict indicates concurrent-mutation contention; the caller may retry.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrGenerationExhausted indicates the number generator ran out of attempts.
	ErrGenerationExhausted = errors.New("account number space exhausted")
)

// TransferResult carries both post-transfer account states.
type TransferResult struct {
	From Account
	To   Account
}

// Store is the durable home of account rows and the sole authority on
// balances. Implementations serialize operations that touch the same
// account; a transfer acquires both rows in ascending account-number order
// so opposite-direction transfers cannot deadlock.
type Store interface {
	Create(ctx context.Context, account Account) error
	Get(ctx context.Context, id string) (Account, error)
	GetByNumber(ctx context.Context, number string) (Account, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Account, error)
	Deposit(ctx context.Context, number string, amount int64) (Account, error)
	Withdraw(ctx context.Context, number string, amount int64) (Account, error)
	Transfer(ctx context.Context, fromNumber, toNumber string, amount int64) (TransferResult, error)
	Deactivate(ctx context.Context, id string) (Account, error)
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, number, type, balance, overdraft_limit, interest_rate::text, owner_id, name, active, created_at, updated_at`

// PostgresStore persists accounts in PostgreSQL. Row locks taken in
// ascending account-number order serialize concurrent balance mutations.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the accounts table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS accounts (
        id UUID PRIMARY KEY,
        number TEXT NOT NULL UNIQUE,
        type TEXT NOT NULL,
        balance BIGINT NOT NULL DEFAULT 0,
        overdraft_limit BIGINT NOT NULL DEFAULT 0,
        interest_rate NUMERIC(8,6) NOT NULL DEFAULT 0,
        owner_id TEXT NOT NULL,
        name TEXT NOT NULL DEFAULT '',
        active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

// Create inserts an account row.
func (s *PostgresStore) Create(ctx context.Context, account Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO accounts
        (id, number, type, balance, overdraft_limit, interest_rate, owner_id, name, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID, account.Number, string(account.Type), account.Balance, account.OverdraftLimit,
		account.InterestRate.String(), account.OwnerID, account.Name, account.Active,
		account.CreatedAt.UTC(), account.UpdatedAt.UTC())
	return storeErr(err)
}

// Get fetches an account by internal identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByNumber fetches an account by its account number.
func (s *PostgresStore) GetByNumber(ctx context.Context, number string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE number = $1`, number)
	return scanAccount(row)
}

// NumberExists reports whether the account number is already assigned.
func (s *PostgresStore) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE number = $1)`, number).Scan(&exists)
	return exists, err
}

// ListByOwner returns all accounts belonging to the owner.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Deposit credits the account under a row lock.
func (s *PostgresStore) Deposit(ctx context.Context, number string, amount int64) (Account, error) {
	return s.mutate(ctx, number, func(account Account) (int64, error) {
		return account.Balance + amount, nil
	})
}

// Withdraw debits the account under a row lock after the available-funds check.
func (s *PostgresStore) Withdraw(ctx context.Context, number string, amount int64) (Account, error) {
	return s.mutate(ctx, number, func(account Account) (int64, error) {
		if amount > account.Available() {
			return 0, ErrInsufficientFunds
		}
		return account.Balance - amount, nil
	})
}

// Transfer debits the source and credits the destination inside one
// transaction. Row locks are acquired in ascending account-number order.
func (s *PostgresStore) Transfer(ctx context.Context, fromNumber, toNumber string, amount int64) (TransferResult, error) {
	if fromNumber == toNumber {
		return TransferResult{}, ErrSelfTransfer
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, storeErr(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := fromNumber, toNumber
	if toNumber < fromNumber {
		first, second = toNumber, fromNumber
	}

	locked := make(map[string]Account, 2)
	for _, number := range []string{first, second} {
		account, err := lockAccount(ctx, tx, number)
		if err != nil {
			return TransferResult{}, err
		}
		locked[number] = account
	}

	from, to := locked[fromNumber], locked[toNumber]
	if !from.Active || !to.Active {
		return TransferResult{}, ErrAccountClosed
	}
	if amount > from.Available() {
		return TransferResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	from.Balance -= amount
	from.UpdatedAt = now
	to.Balance += amount
	to.UpdatedAt = now

	for _, account := range []Account{from, to} {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1, updated_at = $2 WHERE number = $3`,
			account.Balance, account.UpdatedAt, account.Number); err != nil {
			return TransferResult{}, storeErr(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, storeErr(err)
	}

	return TransferResult{From: from, To: to}, nil
}

// Deactivate marks the account inactive. The row is kept forever.
func (s *PostgresStore) Deactivate(ctx context.Context, id string) (Account, error) {
	row := s.db.QueryRow(ctx, `UPDATE accounts SET active = FALSE, updated_at = $1 WHERE id = $2
        RETURNING `+accountColumns, time.Now().UTC(), id)
	return scanAccount(row)
}

func (s *PostgresStore) mutate(ctx context.Context, number string, next func(Account) (int64, error)) (Account, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Account{}, storeErr(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	account, err := lockAccount(ctx, tx, number)
	if err != nil {
		return Account{}, err
	}
	if !account.Active {
		return Account{}, ErrAccountClosed
	}

	balance, err := next(account)
	if err != nil {
		return Account{}, err
	}

	account.Balance = balance
	account.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1, updated_at = $2 WHERE number = $3`,
		account.Balance, account.UpdatedAt, number); err != nil {
		return Account{}, storeErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, storeErr(err)
	}

	return account, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, number string) (Account, error) {
	row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE number = $1 FOR UPDATE`, number)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var accountType, rate string
	err := row.Scan(&a.ID, &a.Number, &accountType, &a.Balance, &a.OverdraftLimit, &rate,
		&a.OwnerID, &a.Name, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, storeErr(err)
	}
	a.Type = AccountType(accountType)
	a.InterestRate, err = decimal.NewFromString(rate)
	if err != nil {
		return Account{}, fmt.Errorf("parse interest rate: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization failure, deadlock detected
			return ErrConflict
		case "23505":
			return ErrDuplicateNumber
		}
	}
	return err
}

package ledger

import (
	"context"
	"sync"
	"time"
)

type memoryAccount struct {
	mu      sync.Mutex
	account Account
}

type memoryStore struct {
	mu       sync.RWMutex
	byNumber map[string]*memoryAccount
	byID     map[string]*memoryAccount
}

// NewMemoryStore creates a concurrency-safe in-memory store useful for unit
// tests and local development.
func NewMemoryStore() Store {
	return &memoryStore{
		byNumber: make(map[string]*memoryAccount),
		byID:     make(map[string]*memoryAccount),
	}
}

func (s *memoryStore) Create(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byNumber[account.Number]; exists {
		return ErrDuplicateNumber
	}
	rec := &memoryAccount{account: account}
	s.byNumber[account.Number] = rec
	s.byID[account.ID] = rec
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	rec, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.account, nil
}

func (s *memoryStore) GetByNumber(_ context.Context, number string) (Account, error) {
	rec, err := s.lookup(number)
	if err != nil {
		return Account{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.account, nil
}

func (s *memoryStore) NumberExists(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byNumber[number]
	return ok, nil
}

func (s *memoryStore) ListByOwner(_ context.Context, ownerID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []Account
	for _, rec := range s.byID {
		rec.mu.Lock()
		if rec.account.OwnerID == ownerID {
			accounts = append(accounts, rec.account)
		}
		rec.mu.Unlock()
	}
	return accounts, nil
}

func (s *memoryStore) Deposit(_ context.Context, number string, amount int64) (Account, error) {
	rec, err := s.lookup(number)
	if err != nil {
		return Account{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.account.Active {
		return Account{}, ErrAccountClosed
	}

	rec.account.Balance += amount
	rec.account.UpdatedAt = time.Now().UTC()
	return rec.account, nil
}

func (s *memoryStore) Withdraw(_ context.Context, number string, amount int64) (Account, error) {
	rec, err := s.lookup(number)
	if err != nil {
		return Account{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.account.Active {
		return Account{}, ErrAccountClosed
	}
	if amount > rec.account.Available() {
		return Account{}, ErrInsufficientFunds
	}

	rec.account.Balance -= amount
	rec.account.UpdatedAt = time.Now().UTC()
	return rec.account, nil
}

func (s *memoryStore) Transfer(_ context.Context, fromNumber, toNumber string, amount int64) (TransferResult, error) {
	if fromNumber == toNumber {
		return TransferResult{}, ErrSelfTransfer
	}

	from, err := s.lookup(fromNumber)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := s.lookup(toNumber)
	if err != nil {
		return TransferResult{}, err
	}

	// Lock both rows in ascending account-number order so a concurrent
	// opposite-direction transfer cannot deadlock against us.
	first, second := from, to
	if toNumber < fromNumber {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if !from.account.Active || !to.account.Active {
		return TransferResult{}, ErrAccountClosed
	}
	if amount > from.account.Available() {
		return TransferResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	from.account.Balance -= amount
	from.account.UpdatedAt = now
	to.account.Balance += amount
	to.account.UpdatedAt = now

	return TransferResult{From: from.account, To: to.account}, nil
}

func (s *memoryStore) Deactivate(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	rec, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Account{}, ErrAccountNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.account.Active = false
	rec.account.UpdatedAt = time.Now().UTC()
	return rec.account, nil
}

func (s *memoryStore) lookup(number string) (*memoryAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byNumber[number]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return rec, nil
}

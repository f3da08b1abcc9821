package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType distinguishes the product behaviour of an account.
type AccountType string

const (
	// TypeChecking supports overdraft up to the account's limit.
	TypeChecking AccountType = "checking"
	// TypeSavings accrues interest at the account's rate.
	TypeSavings AccountType = "savings"
	// TypeCredit is a plain credit-line account.
	TypeCredit AccountType = "credit"
)

// DefaultInterestRate applies to savings accounts created without an explicit rate.
var DefaultInterestRate = decimal.New(1, -2) // 1%

// Account is a ledger row. Balance is held in minor currency units.
type Account struct {
	ID             string
	Number         string
	Type           AccountType
	Balance        int64
	OverdraftLimit int64
	InterestRate   decimal.Decimal
	OwnerID        string
	Name           string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Available returns the maximum amount that can be withdrawn or transferred
// out. Overdraft applies to checking accounts only.
func (a Account) Available() int64 {
	if a.Type == TypeChecking {
		return a.Balance + a.OverdraftLimit
	}
	return a.Balance
}

// ValidType reports whether t names a supported account type.
func ValidType(t AccountType) bool {
	switch t {
	case TypeChecking, TypeSavings, TypeCredit:
		return true
	default:
		return false
	}
}

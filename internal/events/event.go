// Package events defines the immutable records emitted for every committed
// ledger mutation and the publisher that feeds them into the event log.
package events

import (
	"context"
	"time"
)

// SchemaVersion is stamped on every event so consumers can evolve
// independently of producers.
const SchemaVersion = 1

// Kind identifies what a ledger event describes.
type Kind string

const (
	KindAccountCreated     Kind = "account.created"
	KindAccountDeactivated Kind = "account.deactivated"
	KindDeposit            Kind = "ledger.deposit"
	KindWithdrawal         Kind = "ledger.withdrawal"
	KindTransfer           Kind = "ledger.transfer"
	KindStatusChange       Kind = "transaction.status"
)

const (
	// TopicAccounts carries account lifecycle events.
	TopicAccounts = "account.events"
	// TopicTransactions carries balance mutations and status changes.
	TopicTransactions = "transaction.events"
)

// TopicFor maps an event kind to the topic it is published on.
func TopicFor(kind Kind) string {
	switch kind {
	case KindAccountCreated, KindAccountDeactivated:
		return TopicAccounts
	default:
		return TopicTransactions
	}
}

// Event is one committed ledger mutation. All fields are named and
// versioned; payloads are JSON, never positional strings.
type Event struct {
	SchemaVersion      int       `json:"schema_version"`
	EventID            string    `json:"event_id"`
	Kind               Kind      `json:"kind"`
	AccountID          string    `json:"account_id,omitempty"`
	AccountNumber      string    `json:"account_number,omitempty"`
	CounterpartyID     string    `json:"counterparty_id,omitempty"`
	CounterpartyNumber string    `json:"counterparty_number,omitempty"`
	OwnerID            string    `json:"owner_id,omitempty"`
	Amount             int64     `json:"amount,omitempty"`
	ResultingBalance   int64     `json:"resulting_balance"`
	Reference          string    `json:"reference,omitempty"`
	Status             string    `json:"status,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
	CorrelationID      string    `json:"correlation_id,omitempty"`
}

// PartitionKey groups events about the same account so consumers observe
// them in causal order.
func (e Event) PartitionKey() string {
	if e.AccountNumber != "" {
		return e.AccountNumber
	}
	return e.Reference
}

type correlationKey struct{}

// WithCorrelation attaches a correlation identifier to the context.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationFrom extracts the correlation identifier, if any.
func CorrelationFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

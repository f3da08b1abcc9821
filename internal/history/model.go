// Package history materializes the transaction-history projection from the
// event stream. It owns its records entirely; the transfer engine never
// writes here.
package history

import (
	"errors"
	"strings"
	"time"
)

// Status tracks a record through its life cycle. Completed and Failed are
// terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status accepts no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ValidStatus reports whether s names a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

var (
	// ErrRecordNotFound indicates no record exists for the reference.
	ErrRecordNotFound = errors.New("transaction record not found")

	// ErrDuplicateRecord indicates a record already exists for the
	// reference; redelivered events hit this and are no-ops.
	ErrDuplicateRecord = errors.New("transaction record already exists")

	// ErrStatusFinal indicates a transition was attempted on a terminal record.
	ErrStatusFinal = errors.New("transaction status is final")
)

// Record is one materialized transaction.
type Record struct {
	Reference          string
	Type               string
	SourceAccount      string
	DestinationAccount string
	Amount             int64
	BalanceAfter       int64
	Description        string
	Timestamp          time.Time
	Status             Status
}

const referenceLength = 16

// ReferenceFromEventID derives the stable record reference from an event
// identifier. The same event always yields the same reference, which is what
// makes consumption idempotent.
func ReferenceFromEventID(eventID string) string {
	ref := strings.ToUpper(strings.ReplaceAll(eventID, "-", ""))
	if len(ref) > referenceLength {
		ref = ref[:referenceLength]
	}
	return ref
}

package history

import (
	"context"
	"fmt"

	"github.com/ledgerbus/ledgerbus/internal/events"
)

// Service exposes the read side of the projection and status transitions.
// A status change is not applied directly: it is published as a
// transaction.status event that the recorder consumes like any other.
type Service struct {
	repo      Repository
	publisher events.Publisher
}

// NewService builds a history service instance.
func NewService(repo Repository, publisher events.Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// GetByReference returns a single record.
func (s *Service) GetByReference(ctx context.Context, reference string) (Record, error) {
	return s.repo.GetByReference(ctx, reference)
}

// ListByAccount returns records involving the account, newest first.
func (s *Service) ListByAccount(ctx context.Context, accountNumber string, limit int) ([]Record, error) {
	return s.repo.ListByAccount(ctx, accountNumber, limit)
}

// RequestStatusChange publishes the transition event. The projection applies
// it asynchronously; callers observe the new status on a later read.
func (s *Service) RequestStatusChange(ctx context.Context, reference string, status Status) error {
	if !ValidStatus(status) || !status.Terminal() {
		return fmt.Errorf("invalid target status %q", status)
	}
	if _, err := s.repo.GetByReference(ctx, reference); err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.Event{
		Kind:      events.KindStatusChange,
		Reference: reference,
		Status:    string(status),
	})
	return nil
}

package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ledgerbus/ledgerbus/internal/eventlog"
	"github.com/ledgerbus/ledgerbus/internal/events"
)

// ConsumerGroup identifies the recorder on the event log.
const ConsumerGroup = "transaction-recorder"

// Recorder consumes the transaction event stream and materializes records.
// Consumption is idempotent: the record reference derives from the event id,
// so a redelivered event changes nothing. Payloads that cannot be parsed are
// dead-lettered and never block the loop.
type Recorder struct {
	repo   Repository
	log    eventlog.Log
	logger *slog.Logger
}

// NewRecorder wires the projection consumer.
func NewRecorder(repo Repository, log eventlog.Log, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, log: log, logger: logger}
}

// Run subscribes to the transaction topic until ctx is done.
func (r *Recorder) Run(ctx context.Context) error {
	return r.log.Subscribe(ctx, []string{events.TopicTransactions}, ConsumerGroup, r.Handle)
}

// Handle processes one delivered message. It returns an error only for
// transient store failures, where redelivery is the right outcome.
func (r *Recorder) Handle(ctx context.Context, msg eventlog.Message) error {
	var event events.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return r.deadLetter(ctx, msg, "unparseable payload: "+err.Error())
	}
	if event.EventID == "" {
		return r.deadLetter(ctx, msg, "missing event id")
	}

	switch event.Kind {
	case events.KindDeposit, events.KindWithdrawal, events.KindTransfer:
		return r.record(ctx, event)
	case events.KindStatusChange:
		return r.transition(ctx, msg, event)
	default:
		r.logger.Warn("unhandled event kind", "kind", event.Kind, "event_id", event.EventID)
		return nil
	}
}

func (r *Recorder) record(ctx context.Context, event events.Event) error {
	record := Record{
		Reference:     ReferenceFromEventID(event.EventID),
		SourceAccount: event.AccountNumber,
		Amount:        event.Amount,
		BalanceAfter:  event.ResultingBalance,
		Timestamp:     event.OccurredAt,
		Status:        StatusCompleted,
	}

	switch event.Kind {
	case events.KindDeposit:
		record.Type = "deposit"
		record.DestinationAccount = event.AccountNumber
		record.Description = "Deposit to account"
	case events.KindWithdrawal:
		record.Type = "withdrawal"
		record.Description = "Withdrawal from account"
	case events.KindTransfer:
		record.Type = "transfer"
		record.DestinationAccount = event.CounterpartyNumber
		record.Description = "Transfer between accounts"
	}

	err := r.repo.Insert(ctx, record)
	if errors.Is(err, ErrDuplicateRecord) {
		r.logger.Debug("event already recorded", "reference", record.Reference)
		return nil
	}
	if err != nil {
		return err
	}

	r.logger.Info("transaction recorded", "reference", record.Reference, "type", record.Type)
	return nil
}

func (r *Recorder) transition(ctx context.Context, msg eventlog.Message, event events.Event) error {
	status := Status(event.Status)
	if !ValidStatus(status) || !status.Terminal() {
		return r.deadLetter(ctx, msg, "invalid target status: "+event.Status)
	}
	if event.Reference == "" {
		return r.deadLetter(ctx, msg, "status change without reference")
	}

	_, err := r.repo.UpdateStatus(ctx, event.Reference, status)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		r.logger.Warn("status change for unknown record", "reference", event.Reference)
		return nil
	case errors.Is(err, ErrStatusFinal):
		r.logger.Warn("status change on terminal record", "reference", event.Reference, "status", event.Status)
		return nil
	case err != nil:
		return err
	}

	r.logger.Info("transaction status updated", "reference", event.Reference, "status", event.Status)
	return nil
}

func (r *Recorder) deadLetter(ctx context.Context, msg eventlog.Message, reason string) error {
	r.logger.Error("dead-lettering message", "topic", msg.Topic, "id", msg.ID, "reason", reason)
	if err := eventlog.PublishDeadLetter(ctx, r.log, msg, reason); err != nil {
		// Keep the message pending so it is retried together with its
		// dead-letter write.
		return err
	}
	return nil
}
